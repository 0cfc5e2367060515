package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/sirosfoundation/go-xsf/internal/auth"
	"github.com/sirosfoundation/go-xsf/internal/service"
	"github.com/sirosfoundation/go-xsf/pkg/config"
)

// These commands work offline; they need the server's JWT settings but no
// running server.

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Work with bearer tokens",
}

var (
	tokenJWT       config.JWTConfig
	tokenPrincipal auth.Principal
)

var tokenMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Sign a bearer token for a principal",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenJWT.Secret == "" {
			return fmt.Errorf("--secret or XSF_JWT_SECRET is required")
		}

		token, err := auth.NewTokens(tokenJWT, nil).Issue(&tokenPrincipal)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var tokenInspectCmd = &cobra.Command{
	Use:   "inspect <token>",
	Short: "Verify a bearer token and print its principal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenJWT.Secret == "" {
			return fmt.Errorf("--secret or XSF_JWT_SECRET is required")
		}

		claims, err := auth.NewTokens(tokenJWT, nil).Parse(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		p := claims.Principal()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Subject:  %s\n", p.Subject)
		fmt.Fprintf(out, "Name:     %s\n", p.Name)
		fmt.Fprintf(out, "Admin:    %t\n", p.Admin)
		fmt.Fprintf(out, "Roles:    %s\n", strings.Join(p.Roles, ","))
		fmt.Fprintf(out, "Orgs:     %s\n", strings.Join(p.Orgs, ","))
		if claims.ExpiresAt != nil {
			fmt.Fprintf(out, "Expires:  %s\n", claims.ExpiresAt.Time)
		}
		return nil
	},
}

var hashPasswordCost int

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print the bcrypt hash of a password",
	Long:  `Print the bcrypt hash of a password. Without an argument the password is read from stdin.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}

		hash, err := service.HashPassword(password, hashPasswordCost)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(hashPasswordCmd)
	tokenCmd.AddCommand(tokenMintCmd)
	tokenCmd.AddCommand(tokenInspectCmd)

	pf := tokenCmd.PersistentFlags()
	pf.StringVar(&tokenJWT.Secret, "secret", os.Getenv("XSF_JWT_SECRET"), "JWT signing secret")
	pf.StringVar(&tokenJWT.Issuer, "issuer", envOr("XSF_JWT_ISSUER", "xsf"), "JWT issuer")
	pf.IntVar(&tokenJWT.ExpiryHours, "expiry-hours", 24, "Token lifetime in hours")

	f := tokenMintCmd.Flags()
	f.StringVar(&tokenPrincipal.Subject, "subject", "", "Subject (user ID) (required)")
	f.StringVar(&tokenPrincipal.Name, "name", "", "Username")
	f.StringVar(&tokenPrincipal.Email, "email", "", "E-mail address")
	f.StringSliceVar(&tokenPrincipal.Roles, "role", nil, "Role (repeatable)")
	f.StringSliceVar(&tokenPrincipal.Orgs, "org", nil, "Organization (repeatable)")
	f.BoolVar(&tokenPrincipal.Admin, "admin", false, "Administrator")
	_ = tokenMintCmd.MarkFlagRequired("subject")

	hashPasswordCmd.Flags().IntVar(&hashPasswordCost, "cost", bcrypt.DefaultCost, "bcrypt cost")
}
