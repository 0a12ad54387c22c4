package cli

import (
	"github.com/spf13/cobra"

	"lira-rate-alerts/internal/app"
)

var (
	tokenUser int64
	tokenRole string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token signed with auth.secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Token(cmd.OutOrStdout(), app.TokenOptions{UserID: tokenUser, Role: tokenRole})
	},
}

func init() {
	tokenCmd.Flags().Int64Var(&tokenUser, "user", 0, "User id carried in the token subject")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "USER", "Role claim; use the configured admin role for admin routes")
}
