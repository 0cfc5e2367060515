package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-xsf/internal/api"
	"github.com/sirosfoundation/go-xsf/internal/domain"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
	Long:  `Commands for managing the accounts that can authenticate against the dispatcher.`,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewClient(adminURL, adminToken)
		data, err := client.Request(cmd.Context(), "GET", "/admin/users", nil)
		if err != nil {
			return err
		}

		if output == "json" {
			return printJSON(cmd.OutOrStdout(), data)
		}

		var resp struct {
			Users []api.UserResponse `json:"users"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}

		if len(resp.Users) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No users found.")
			return nil
		}

		headers := []string{"ID", "USERNAME", "EMAIL", "ADMIN", "ROLES", "ORGS"}
		rows := make([][]string, len(resp.Users))
		for i, u := range resp.Users {
			rows[i] = []string{u.ID, u.Username, u.Email, strconv.FormatBool(u.Admin), strings.Join(u.Roles, ","), strings.Join(u.Orgs, ",")}
		}
		printTable(cmd.OutOrStdout(), headers, rows)
		return nil
	},
}

var userCreateReq domain.RegisterRequest

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewClient(adminURL, adminToken)
		data, err := client.Request(cmd.Context(), "POST", "/admin/users", userCreateReq)
		if err != nil {
			return err
		}

		if output == "json" {
			return printJSON(cmd.OutOrStdout(), data)
		}

		var u api.UserResponse
		if err := json.Unmarshal(data, &u); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "User '%s' created with ID %s.\n", u.Username, u.ID)
		return nil
	},
}

var userDeleteID string

var userDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewClient(adminURL, adminToken)
		if _, err := client.Request(cmd.Context(), "DELETE", "/admin/users/"+userDeleteID, nil); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "User '%s' deleted.\n", userDeleteID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userDeleteCmd)

	f := userCreateCmd.Flags()
	f.StringVar(&userCreateReq.Username, "username", "", "Username (required)")
	f.StringVar(&userCreateReq.Password, "password", "", "Password (required)")
	f.StringVar(&userCreateReq.Email, "email", "", "E-mail address")
	f.StringVar(&userCreateReq.DisplayName, "display-name", "", "Display name")
	f.StringSliceVar(&userCreateReq.Roles, "role", nil, "Role (repeatable)")
	f.StringSliceVar(&userCreateReq.Orgs, "org", nil, "Organization (repeatable)")
	f.BoolVar(&userCreateReq.Admin, "admin", false, "Grant administrator rights")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")

	userDeleteCmd.Flags().StringVar(&userDeleteID, "id", "", "User ID (required)")
	_ = userDeleteCmd.MarkFlagRequired("id")
}
