package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"jobflow/internal/engine"
)

func NewStopCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Gracefully stop a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := app.Cfg.Runtime.Dir
			if _, err := engine.ReadPID(dir); err != nil {
				fmt.Println("No running server found.")
				return nil
			}
			if err := engine.CreateStopFile(dir); err != nil {
				return fmt.Errorf("failed to request stop: %w", err)
			}
			fmt.Println("Stop requested. The server will exit after finishing the current job.")
			return nil
		},
	}
}
