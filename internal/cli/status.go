package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"jobflow/internal/engine"
	"jobflow/internal/store"
)

func NewStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := store.QueueStatus(cmd.Context(), st)
			if err != nil {
				return err
			}

			if pid, err := engine.ReadPID(app.Cfg.Runtime.Dir); err == nil {
				fmt.Printf("Server: running (PID %d)\n", pid)
			} else {
				fmt.Println("Server: not running")
			}

			states := make([]string, 0, len(stats))
			for state := range stats {
				states = append(states, state)
			}
			sort.Strings(states)

			fmt.Println("Queue Status:")
			for _, state := range states {
				fmt.Printf("  %-10s %d\n", state, stats[state])
			}
			return nil
		},
	}
}
