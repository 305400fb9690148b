// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/puzzleshot/internal/browser"
	"github.com/xkilldash9x/puzzleshot/internal/config"
	"github.com/xkilldash9x/puzzleshot/internal/observability"
	"github.com/xkilldash9x/puzzleshot/internal/orchestrator"
)

// factoryBuilder turns the browser configuration into a session factory.
type factoryBuilder func(cfg config.BrowserConfig, logger *zap.Logger) (browser.Factory, error)

// deps are the seams replaced by tests.
type deps struct {
	newFactory factoryBuilder
	fs         afero.Fs
	console    zapcore.WriteSyncer
	envFile    string
}

func defaultDeps() deps {
	return deps{
		newFactory: browser.NewFactory,
		fs:         afero.NewOsFs(),
		console:    zapcore.Lock(os.Stdout),
		envFile:    ".env",
	}
}

// NewRootCommand builds a fresh root command. Running it without a
// subcommand performs the full capture run.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultDeps())
}

func newRootCommand(d deps) *cobra.Command {
	v := viper.New()
	var (
		cfgFile string
		cfg     *config.Config
	)

	rootCmd := &cobra.Command{
		Use:           "puzzleshot",
		Short:         "Captures puzzle grids and their solutions from puzzle websites as PNG files.",
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// This runs before any command, setting up config and logging.
			if err := loadEnvFile(d.envFile); err != nil {
				return err
			}
			if err := initializeConfig(v, cfgFile); err != nil {
				return err
			}
			if err := bindFlags(v, cmd); err != nil {
				return err
			}

			var err error
			cfg, err = config.NewConfigFromViper(v)
			if err != nil {
				observability.Initialize(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "puzzleshot"}, d.console)
				return err
			}

			observability.Initialize(cfg.Logger, d.console)
			observability.GetLogger().Info("Starting puzzleshot", zap.String("version", Version))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(cmd.Context(), cfg, d)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	flags.StringP("output", "o", "", "directory receiving the PNG files")
	flags.Bool("headless", false, "run the browser without a window")
	flags.String("engine", "", "browser backend: chromedp or playwright")
	flags.String("browser", "", "browser type for playwright: chromium, firefox or webkit")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newTasksCmd(func() *config.Config { return cfg }))
	return rootCmd
}

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"output":   "capture.output_dir",
	"headless": "browser.headless",
	"engine":   "browser.engine",
	"browser":  "browser.type",
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("could not bind --%s: %w", name, err)
		}
	}
	return nil
}

// loadEnvFile exports the variables of a dotenv file when one exists.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// initializeConfig reads in the config file and PUZZLESHOT_* variables.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PUZZLESHOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars
	}
	return nil
}

// runCapture executes the task list. Task failures are reported in the log
// and never turn into a non-zero exit status.
func runCapture(ctx context.Context, cfg *config.Config, d deps) error {
	logger := observability.GetLogger()
	defer observability.Sync()

	tasks, err := orchestrator.TasksFromConfig(cfg.Run)
	if err != nil {
		return err
	}
	factory, err := d.newFactory(cfg.Browser, logger)
	if err != nil {
		return err
	}
	orch, err := orchestrator.New(cfg, logger, factory, d.fs, tasks)
	if err != nil {
		return err
	}

	_, err = orch.Run(ctx)
	return err
}

// Execute runs the root command with ctx and logs a failure.
func Execute(ctx context.Context) error {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		observability.Sync()
		return err
	}
	return nil
}
