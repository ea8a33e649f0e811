package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"jobflow/internal/client"
)

func NewSubmitCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "submit '{\"command\":\"sleep 2\"}'",
		Short: "Submit a job payload to a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := json.RawMessage(args[0])
			if !json.Valid(payload) {
				return fmt.Errorf("invalid job json: %s", args[0])
			}
			if addr == "" {
				addr = app.Cfg.Client.Addr()
			}

			c := client.New(addr, client.WithTimeout(app.Cfg.Client.Timeout))
			rcpt, err := c.Submit(cmd.Context(), payload)
			if err != nil {
				return err
			}

			fmt.Println("Job queued:", rcpt.JobID)
			fmt.Println("Worker:", rcpt.WorkerID)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "server address (defaults to client.host:client.port)")
	return cmd
}
