// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "puzzleshot", cfg.Logger.ServiceName)
	assert.Equal(t, EngineChromedp, cfg.Browser.Engine)
	assert.Equal(t, 60*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Capture.PollInterval)
	assert.Equal(t, 2, cfg.Capture.StableChecks)
	assert.Equal(t, 60*time.Second, cfg.Capture.CanvasTimeout)
	assert.Equal(t, 20*time.Second, cfg.Capture.ElementTimeout)
	assert.Equal(t, TimeoutPolicyWarn, cfg.Capture.TimeoutPolicy)
	assert.Equal(t, "e-sudoku.fr", cfg.Sites.Consent.Domain)
	assert.Equal(t, "xpath=/html/body/main/div/canvas", cfg.Sites.Loopy.Canvas)
	assert.Equal(t, "#gametype > li:nth-child(%d) > label:nth-child(1)", cfg.Sites.Unequal.MenuEntry)
	assert.Empty(t, cfg.Run.Tasks, "an empty task list selects the built-in run")

	require.NoError(t, cfg.Validate(), "defaults must always validate")
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Browser Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Browser.Engine = "selenium"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported engine")

		cfg = NewDefaultConfig()
		cfg.Browser.Type = "firefox"
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "engine chromedp only drives chromium")

		cfg.Browser.Engine = EnginePlaywright
		assert.NoError(t, cfg.Validate(), "playwright can drive firefox")

		cfg.Browser.Type = "netscape"
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported playwright browser type")
	})

	t.Run("Capture Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Capture.StableChecks = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stable_checks must be a positive integer")

		cfg = NewDefaultConfig()
		cfg.Capture.TimeoutPolicy = "ignore"
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout_policy must be")

		cfg = NewDefaultConfig()
		cfg.Capture.OutputDir = ""
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "output_dir is required")

		cfg = NewDefaultConfig()
		cfg.Capture.HoverTimeout = 0
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "hover_timeout must be positive")

		cfg = NewDefaultConfig()
		cfg.Capture.ConsentTimeout = -time.Second
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "consent_timeout and hover_timeout must be positive")

		cfg = NewDefaultConfig()
		cfg.Capture.WindowSettle = -time.Millisecond
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "window_settle must not be negative")

		cfg = NewDefaultConfig()
		cfg.Capture.WindowSettle = 0
		assert.NoError(t, cfg.Validate(), "a zero window_settle disables the pause")
	})

	t.Run("Sites Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Sites.Unequal.MenuEntry = "#gametype > li:nth-child(3)"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly one %d verb")
	})

	t.Run("Run Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Run.Tasks = []TaskConfig{{Recipe: "loopy"}, {Difficulty: "Moyen"}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "run.tasks[1].recipe is required")
	})
}

// -- Viper Integration Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("should override defaults from yaml", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		yamlConfig := []byte(`
browser:
  engine: playwright
  type: firefox
capture:
  output_dir: /tmp/shots
  poll_interval: 50ms
  timeout_policy: fail
sites:
  killer:
    solve: "input.bouton:nth-child(7)"
run:
  tasks:
    - recipe: sudoku_classic
      difficulty: Facile
    - recipe: unequal_adjacent
      puzzle_type: adjacent
      difficulty: Tricky
`)
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, EnginePlaywright, cfg.Browser.Engine)
		assert.Equal(t, "firefox", cfg.Browser.Type)
		assert.Equal(t, "/tmp/shots", cfg.Capture.OutputDir)
		assert.Equal(t, 50*time.Millisecond, cfg.Capture.PollInterval)
		assert.Equal(t, TimeoutPolicyFail, cfg.Capture.TimeoutPolicy)
		assert.Equal(t, "input.bouton:nth-child(7)", cfg.Sites.Killer.Solve)
		// Untouched keys keep their defaults.
		assert.Equal(t, "table.tours", cfg.Sites.Killer.Grid)

		require.Len(t, cfg.Run.Tasks, 2)
		assert.Equal(t, TaskConfig{Recipe: "sudoku_classic", Difficulty: "Facile"}, cfg.Run.Tasks[0])
		assert.Equal(t, TaskConfig{Recipe: "unequal_adjacent", PuzzleType: "adjacent", Difficulty: "Tricky"}, cfg.Run.Tasks[1])
	})

	t.Run("should reject invalid values", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("capture.stable_checks", -1)

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}
