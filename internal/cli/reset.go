package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"jobflow/internal/engine"
	"jobflow/internal/store"
)

func NewResetCmd(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the persisted queue (development only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pid, err := engine.ReadPID(app.Cfg.Runtime.Dir); err == nil && !force {
				return fmt.Errorf("server is running (PID %d); stop it first or pass --force", pid)
			}

			st, err := app.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			if err := store.ResetQueue(cmd.Context(), st); err != nil {
				return fmt.Errorf("failed to clear jobs: %w", err)
			}

			fmt.Println("Queue cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "reset even if a server appears to be running")
	return cmd
}
