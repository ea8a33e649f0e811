package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewConfigGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Args:  cobra.ExactArgs(1),
		Short: "Get the effective config value (defaults, file, env)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.K.Exists(args[0]) {
				fmt.Println("(not set)")
				return nil
			}
			fmt.Println(app.K.Get(args[0]))
			return nil
		},
	}
}
