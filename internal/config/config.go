// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Engines supported by the browser factory.
const (
	EngineChromedp   = "chromedp"
	EnginePlaywright = "playwright"
)

// Policies applied when a canvas never stabilizes.
const (
	TimeoutPolicyWarn = "warn"
	TimeoutPolicyFail = "fail"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
	Sites   SitesConfig   `mapstructure:"sites" yaml:"sites"`
	Run     RunConfig     `mapstructure:"run" yaml:"run"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig selects and tunes the browser backend.
type BrowserConfig struct {
	// Engine is either "chromedp" or "playwright".
	Engine string `mapstructure:"engine" yaml:"engine"`
	// Type is the browser family for playwright: chromium, firefox or webkit.
	Type              string         `mapstructure:"type" yaml:"type"`
	Headless          bool           `mapstructure:"headless" yaml:"headless"`
	Install           bool           `mapstructure:"install" yaml:"install"`
	ExecPath          string         `mapstructure:"exec_path" yaml:"exec_path"`
	UserAgent         string         `mapstructure:"user_agent" yaml:"user_agent"`
	Args              []string       `mapstructure:"args" yaml:"args"`
	Viewport          ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// ViewportConfig is the initial window size.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// CaptureConfig tunes waits, polling and output.
type CaptureConfig struct {
	OutputDir      string        `mapstructure:"output_dir" yaml:"output_dir"`
	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	StableChecks   int           `mapstructure:"stable_checks" yaml:"stable_checks"`
	CanvasTimeout  time.Duration `mapstructure:"canvas_timeout" yaml:"canvas_timeout"`
	ElementTimeout time.Duration `mapstructure:"element_timeout" yaml:"element_timeout"`
	ClickTimeout   time.Duration `mapstructure:"click_timeout" yaml:"click_timeout"`
	ConsentTimeout time.Duration `mapstructure:"consent_timeout" yaml:"consent_timeout"`
	HoverTimeout   time.Duration `mapstructure:"hover_timeout" yaml:"hover_timeout"`
	WindowSettle   time.Duration `mapstructure:"window_settle" yaml:"window_settle"`
	// TimeoutPolicy is "warn" (log and continue) or "fail" (abort the task).
	TimeoutPolicy string `mapstructure:"timeout_policy" yaml:"timeout_policy"`
}

// SitesConfig is the selector table for every supported site. Selectors use
// the "xpath=" or "css=" prefix; a bare value starting with "/" is XPath,
// anything else is CSS.
type SitesConfig struct {
	Consent   ConsentConfig `mapstructure:"consent" yaml:"consent"`
	Loopy     CanvasSite    `mapstructure:"loopy" yaml:"loopy"`
	Killer    TableSite     `mapstructure:"killer" yaml:"killer"`
	Classic   TableSite     `mapstructure:"classic" yaml:"classic"`
	Irregular TableSite     `mapstructure:"irregular" yaml:"irregular"`
	Unequal   CanvasSite    `mapstructure:"unequal" yaml:"unequal"`
}

// ConsentConfig identifies the cookie overlay shared by a domain family.
type ConsentConfig struct {
	Domain string `mapstructure:"domain" yaml:"domain"`
	Button string `mapstructure:"button" yaml:"button"`
}

// CanvasSite describes a site whose puzzle is drawn on a canvas.
type CanvasSite struct {
	URL    string `mapstructure:"url" yaml:"url"`
	Canvas string `mapstructure:"canvas" yaml:"canvas"`
	Solve  string `mapstructure:"solve" yaml:"solve"`
	// Menu and MenuEntry are only used by sites with a hover menu. MenuEntry
	// holds a single %d verb for the entry index.
	Menu      string `mapstructure:"menu" yaml:"menu"`
	MenuEntry string `mapstructure:"menu_entry" yaml:"menu_entry"`
}

// TableSite describes a site whose puzzle is an HTML table.
type TableSite struct {
	URL          string `mapstructure:"url" yaml:"url"`
	Grid         string `mapstructure:"grid" yaml:"grid"`
	Solve        string `mapstructure:"solve" yaml:"solve"`
	Difficulty   string `mapstructure:"difficulty" yaml:"difficulty"`
	SolutionGrid string `mapstructure:"solution_grid" yaml:"solution_grid"`
}

// RunConfig overrides the task list. An empty list means the built-in one.
type RunConfig struct {
	Tasks []TaskConfig `mapstructure:"tasks" yaml:"tasks"`
}

// TaskConfig binds a recipe to its parameters.
type TaskConfig struct {
	Recipe     string `mapstructure:"recipe" yaml:"recipe"`
	PuzzleType string `mapstructure:"puzzle_type" yaml:"puzzle_type"`
	Difficulty string `mapstructure:"difficulty" yaml:"difficulty"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "puzzleshot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.engine", EngineChromedp)
	v.SetDefault("browser.type", "chromium")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.install", false)
	v.SetDefault("browser.viewport.width", 1280)
	v.SetDefault("browser.viewport.height", 1024)
	v.SetDefault("browser.navigation_timeout", "60s")

	// -- Capture --
	v.SetDefault("capture.output_dir", "./CDV_XX_jeux_avec_solution/")
	v.SetDefault("capture.poll_interval", "200ms")
	v.SetDefault("capture.stable_checks", 2)
	v.SetDefault("capture.canvas_timeout", "60s")
	v.SetDefault("capture.element_timeout", "20s")
	v.SetDefault("capture.click_timeout", "10s")
	v.SetDefault("capture.consent_timeout", "3s")
	v.SetDefault("capture.hover_timeout", "10s")
	v.SetDefault("capture.window_settle", "1s")
	v.SetDefault("capture.timeout_policy", TimeoutPolicyWarn)

	// -- Sites --
	v.SetDefault("sites.consent.domain", "e-sudoku.fr")
	v.SetDefault("sites.consent.button", ".fc-cta-consent")

	v.SetDefault("sites.loopy.url", "https://www.chiark.greenend.org.uk/~sgtatham/puzzles/js/loopy.html")
	v.SetDefault("sites.loopy.canvas", "xpath=/html/body/main/div/canvas")
	v.SetDefault("sites.loopy.solve", "#solve")

	v.SetDefault("sites.killer.url", "https://www.e-sudoku.fr/sudoku-killer.php")
	v.SetDefault("sites.killer.grid", "table.tours")
	v.SetDefault("sites.killer.solve", "input.bouton:nth-child(6)")
	v.SetDefault("sites.killer.solution_grid", ".tours")

	v.SetDefault("sites.classic.url", "https://www.e-sudoku.fr/jouer-sudoku-solo.php")
	v.SetDefault("sites.classic.difficulty", "#options > p:nth-child(3) > select")
	v.SetDefault("sites.classic.grid", "#grille > table")
	v.SetDefault("sites.classic.solve", "#options > p:nth-child(3) > input:nth-child(1)")

	v.SetDefault("sites.irregular.url", "https://www.e-sudoku.fr/sudoku-irregulier.php")
	v.SetDefault("sites.irregular.difficulty", "#grille-sudoku > div.ecran > p > select")
	v.SetDefault("sites.irregular.grid", "table.tours")
	v.SetDefault("sites.irregular.solve", "#grille-sudoku > div.ecran > input:nth-child(6)")
	v.SetDefault("sites.irregular.solution_grid", "body > div:nth-child(2) > table")

	v.SetDefault("sites.unequal.url", "https://www.chiark.greenend.org.uk/~sgtatham/puzzles/js/unequal.html")
	v.SetDefault("sites.unequal.menu", "#gamemenu > ul:nth-child(1) > li:nth-child(2) > div:nth-child(1)")
	v.SetDefault("sites.unequal.menu_entry", "#gametype > li:nth-child(%d) > label:nth-child(1)")
	v.SetDefault("sites.unequal.canvas", `xpath=//*[@id="puzzlecanvas"]`)
	v.SetDefault("sites.unequal.solve", "#solve")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Browser.Validate(); err != nil {
		return fmt.Errorf("browser: %w", err)
	}
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if c.Sites.Unequal.MenuEntry != "" && strings.Count(c.Sites.Unequal.MenuEntry, "%d") != 1 {
		return fmt.Errorf("sites.unequal.menu_entry must contain exactly one %%d verb")
	}
	for i, t := range c.Run.Tasks {
		if t.Recipe == "" {
			return fmt.Errorf("run.tasks[%d].recipe is required", i)
		}
	}
	return nil
}

// Validate checks the browser settings.
func (b *BrowserConfig) Validate() error {
	switch b.Engine {
	case EngineChromedp:
		if b.Type != "" && b.Type != "chromium" {
			return fmt.Errorf("engine chromedp only drives chromium, got type %q", b.Type)
		}
	case EnginePlaywright:
		switch b.Type {
		case "chromium", "firefox", "webkit":
		default:
			return fmt.Errorf("unsupported playwright browser type %q", b.Type)
		}
	default:
		return fmt.Errorf("unsupported engine %q (supported: %s, %s)", b.Engine, EngineChromedp, EnginePlaywright)
	}
	if b.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout must be a positive duration")
	}
	return nil
}

// Validate checks the capture settings.
func (c *CaptureConfig) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be a positive duration")
	}
	if c.StableChecks <= 0 {
		return fmt.Errorf("stable_checks must be a positive integer")
	}
	if c.CanvasTimeout <= 0 || c.ElementTimeout <= 0 || c.ClickTimeout <= 0 {
		return fmt.Errorf("canvas_timeout, element_timeout and click_timeout must be positive durations")
	}
	if c.ConsentTimeout <= 0 || c.HoverTimeout <= 0 {
		return fmt.Errorf("consent_timeout and hover_timeout must be positive durations")
	}
	if c.WindowSettle < 0 {
		return fmt.Errorf("window_settle must not be negative")
	}
	if c.TimeoutPolicy != TimeoutPolicyWarn && c.TimeoutPolicy != TimeoutPolicyFail {
		return fmt.Errorf("timeout_policy must be %q or %q, got %q", TimeoutPolicyWarn, TimeoutPolicyFail, c.TimeoutPolicy)
	}
	return nil
}
