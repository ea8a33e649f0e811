package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"jobflow/internal/store"
)

func NewListCmd(app *App) *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs in the persisted queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			jobs, err := store.ListJobs(cmd.Context(), st, state)
			if err != nil {
				return err
			}

			if len(jobs) == 0 {
				fmt.Println("No jobs found.")
				return nil
			}

			for _, j := range jobs {
				line := fmt.Sprintf("%s | %-9s | attempts=%d | created %s",
					j.ID, store.State(j), j.Attempts, humanize.Time(j.CreatedAt))
				if j.RetryAt != nil {
					line += " | retry " + humanize.Time(*j.RetryAt)
				}
				if j.Error != nil {
					line += " | " + j.Error.Message
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "status", "", "Filter by job state (pending,retrying)")
	return cmd
}
