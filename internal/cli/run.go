package cli

import (
	"github.com/spf13/cobra"

	"lira-rate-alerts/internal/app"
)

var (
	serveWithScheduler bool
	runNow             bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Serve(cmd.Context(), app.ServeOptions{WithScheduler: serveWithScheduler, RunNow: runNow})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduled ingest and digest loop without the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context(), app.RunOptions{RunNow: runNow})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		applied, err := getApp().Migrate(cmd.Context())
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			cmd.Println("schema up to date")
			return nil
		}
		for _, name := range applied {
			cmd.Println("applied", name)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runNow, "now", false, "Process one tick at startup (scheduler.run_immediately does the same)")
	serveCmd.Flags().BoolVar(&runNow, "now", false, "With the scheduler, process one tick at startup")
	serveCmd.Flags().BoolVar(&serveWithScheduler, "with-scheduler", false, "Also run the scheduler (scheduler.enabled does the same)")
}
