package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"storyteller-admin/internal/auth"
	"storyteller-admin/internal/middleware"
)

func newRoleCommand() *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "role <token>",
		Short: "Decode a session token and show where the console sends it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verifier, err := auth.NewVerifier(secret)
			if err != nil {
				return err
			}

			principal, err := verifier.Verify(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("decode token: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Subject: %s\n", valueOr(principal.Subject, "-"))
			fmt.Fprintf(out, "Role:    %s\n", valueOr(principal.Role, "-"))
			fmt.Fprintf(out, "Email:   %s\n", valueOr(principal.Email, "-"))
			if !principal.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "Expires: %s\n", principal.ExpiresAt.UTC().Format("2006-01-02 15:04:05Z"))
			}
			fmt.Fprintf(out, "Login:   %s\n", valueOr(middleware.GateRedirect(middleware.LoginPath, &principal), middleware.LoginPath))
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HMAC secret; empty decodes without verification")
	return cmd
}

func valueOr(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
