package cli

import (
	"github.com/spf13/cobra"

	"lira-rate-alerts/internal/app"
)

var (
	importFile   string
	importNotify bool
	importDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import historical transactions from CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Import(cmd.Context(), app.ImportOptions{
			Path:   importFile,
			Notify: importNotify,
			DryRun: importDryRun,
		})
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "CSV file with added_date,usd_amount,lbp_amount,direction[,user_id,source]")
	importCmd.Flags().BoolVar(&importNotify, "notify", false, "Evaluate alerts and write notifications after the import")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Parse the file without inserting anything")
}
