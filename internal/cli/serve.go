package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"jobflow/internal/api"
	"jobflow/internal/engine"
	"jobflow/internal/event"
	"jobflow/internal/processor"
	"jobflow/internal/server"
)

const shutdownTimeout = 30 * time.Second

func NewServeCmd(app *App) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the queue engine and accept submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Cfg
			if port > 0 {
				cfg.Server.Port = port
			}
			dir := cfg.Runtime.Dir

			engine.RemoveStopFile(dir)
			if err := engine.WritePID(dir, os.Getpid()); err != nil {
				return err
			}
			defer engine.RemovePID(dir)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := app.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			proc, err := processor.ByName(cfg.Processor.Name, cfg.Processor.Shell)
			if err != nil {
				return err
			}

			bus := event.NewBus()
			bus.Subscribe(event.JobFailed, func(_ context.Context, e event.Event) error {
				j := e.Payload.(event.JobEvent).Job
				fmt.Printf("Job %s failed permanently after %d attempt(s)\n", j.ID, j.Attempts)
				return nil
			})

			eng := engine.New(st, bus,
				engine.WithRetryDelay(cfg.Queue.RetryDelay),
				engine.WithMaxAttempts(cfg.Queue.MaxAttempts),
				engine.WithHistory(cfg.Queue.History),
			)
			eng.SetProcessFunc(proc)
			// The engine outlives the signal context so Stop can drain the in-flight job.
			if err := eng.Start(context.Background()); err != nil {
				return fmt.Errorf("start engine: %w", err)
			}

			errCh := make(chan error, 2)
			srv := server.New(eng, bus, server.WithIdleTimeout(cfg.Server.IdleTimeout))
			go func() {
				if err := srv.ListenAndServe(ctx, cfg.Server.Addr()); err != nil {
					errCh <- err
				}
			}()

			var httpApp *fiber.App
			if cfg.API.Enabled {
				httpApp = api.New(eng)
				go func() {
					if err := httpApp.Listen(cfg.API.Addr); err != nil {
						errCh <- fmt.Errorf("status api: %w", err)
					}
				}()
				log.Info().Str("addr", cfg.API.Addr).Msg("status API listening")
			}

			fmt.Printf("jobflow serving on %s (PID: %d). Use `jobflow stop` to stop.\n", cfg.Server.Addr(), os.Getpid())

			var runErr error
			select {
			case <-ctx.Done():
			case <-engine.WatchStopFile(ctx, dir, 500*time.Millisecond):
				log.Info().Msg("stop requested")
			case runErr = <-errCh:
			}

			fmt.Println("Stopping gracefully...")
			srv.Close()
			if httpApp != nil {
				if err := httpApp.ShutdownWithTimeout(5 * time.Second); err != nil {
					log.Warn().Err(err).Msg("status api shutdown")
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := eng.Stop(shutdownCtx); err != nil {
				runErr = errors.Join(runErr, fmt.Errorf("stop engine: %w", err))
			}
			engine.RemoveStopFile(dir)
			return runErr
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server.port")
	return cmd
}
