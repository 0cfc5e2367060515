package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage server-side sessions",
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "End a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewClient(adminURL, adminToken)
		if _, err := client.Request(cmd.Context(), "DELETE", "/admin/sessions/"+args[0], nil); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Session '%s' deleted.\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
}
