package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lira-rate-alerts/internal/app"
)

var (
	exportFrom      string
	exportTo        string
	exportInterval  string
	exportDirection string
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

const flagTimeLayout = "2006-01-02 15:04:05"

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the bucketed rate history as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			Interval:  exportInterval,
			Direction: exportDirection,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		}

		if exportFrom != "" {
			from, err := parseFlagTime(exportFrom)
			if err != nil {
				return fmt.Errorf("invalid --from value: %w", err)
			}
			opts.From = &from
		}

		if exportTo != "" {
			to, err := parseFlagTime(exportTo)
			if err != nil {
				return fmt.Errorf("invalid --to value: %w", err)
			}
			opts.To = &to
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func parseFlagTime(v string) (time.Time, error) {
	if t, err := time.ParseInLocation(flagTimeLayout, v, time.Local); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", v, time.Local)
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start time, local (YYYY-MM-DD[ HH:MM:SS]); requires --to")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End time, local (YYYY-MM-DD[ HH:MM:SS]); requires --from")
	exportCmd.Flags().StringVar(&exportInterval, "interval", "", "Bucket interval: hourly or daily (defaults to daily)")
	exportCmd.Flags().StringVar(&exportDirection, "direction", "", "usd_to_lbp or lbp_to_usd (defaults to usd_to_lbp)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}
