package cli

import (
	"github.com/spf13/cobra"

	"lira-rate-alerts/internal/app"
)

var (
	simulateUSDToLBP string
	simulateLBPToUSD string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Evaluate all alerts against hypothetical rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Simulate(cmd.Context(), app.SimulateOptions{
			USDToLBP: simulateUSDToLBP,
			LBPToUSD: simulateLBPToUSD,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateUSDToLBP, "usd-to-lbp", "", "Hypothetical usd_to_lbp rate (LBP per USD)")
	simulateCmd.Flags().StringVar(&simulateLBPToUSD, "lbp-to-usd", "", "Hypothetical lbp_to_usd rate (LBP per USD)")
}
