package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"jobflow/internal/config"
	"jobflow/internal/store"
)

// App carries the loaded configuration to every subcommand.
type App struct {
	ConfigPath string
	Cfg        *config.Config
	K          *koanf.Koanf
}

// openStore opens the configured snapshot backend.
func (a *App) openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, a.Cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.Cfg.Storage.Backend, err)
	}
	return st, nil
}

func NewRootCmd() *cobra.Command {
	app := &App{}
	var logLevel string

	cmd := &cobra.Command{
		Use:           "jobflow",
		Short:         "Durable single-worker job queue",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, k, err := config.Load(app.ConfigPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			setupLogging(cfg.Logging)
			app.Cfg, app.K = cfg, k
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&app.ConfigPath, "config", "c", os.Getenv("JOBFLOW_CONFIG_PATH"), "path to TOML config file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	configCmd := NewConfigRootCmd()
	configCmd.AddCommand(NewConfigGetCmd(app), NewConfigSetCmd(app))

	cmd.AddCommand(
		NewServeCmd(app),
		NewSubmitCmd(app),
		NewStatusCmd(app),
		NewListCmd(app),
		NewResetCmd(app),
		NewStopCmd(app),
		configCmd,
	)
	return cmd
}

func setupLogging(cfg config.LoggingConfig) {
	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}
	log.Debug().Str("level", cfg.Level).Msg("log level configured")
}
