package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"lira-rate-alerts/internal/app"
)

var showOpts app.ShowOptions

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current rates and recent transactions",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if showOpts.Limit <= 0 {
			return errors.New("--limit must be greater than zero")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Show(cmd.Context(), showOpts)
	},
}

func init() {
	showCmd.Flags().IntVarP(&showOpts.Limit, "limit", "n", 20, "Number of transactions to display, newest first")
}
