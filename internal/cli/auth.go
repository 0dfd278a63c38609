package cli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/auth"
	"github.com/Makepad-fr/tada/internal/ui"
)

// NewAuthCommand creates the auth command group.
func NewAuthCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the token sent to a remote server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newAuthLoginCommand())
	cmd.AddCommand(newAuthLogoutCommand())
	cmd.AddCommand(newAuthStatusCommand())
	cmd.AddCommand(newAuthWhoAmICommand())
	return cmd
}

func newAuthLoginCommand() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save a token to ~/.tada/credentials.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Paste your token: ")
				sc := bufio.NewScanner(cmd.InOrStdin())
				if !sc.Scan() {
					if err := sc.Err(); err != nil {
						return WrapExitError(ExitFailure, "read token", err)
					}
					return NewExitError(ExitUsage, "read token: no input")
				}
				token = sc.Text()
			}
			if err := auth.SetToken(token, nil); err != nil {
				return WrapExitError(ExitUsage, "save token", err)
			}
			ui.OK(cmd.OutOrStdout(), "logged in")
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "token to save (read from stdin when empty)")
	return cmd
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ti, _ := auth.GetToken()
			if ti != nil && ti.Source == auth.SourceEnv {
				ui.OK(cmd.OutOrStdout(), "token is provided by "+auth.EnvToken+" env var (nothing to delete)")
				return nil
			}
			if err := auth.DeleteToken(); err != nil {
				return WrapExitError(ExitFailure, "logout", err)
			}
			ui.OK(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the token comes from and when it expires",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ti, err := auth.GetToken()
			if err != nil {
				return WrapExitError(ExitFailure, "status", err)
			}
			if ti == nil {
				fmt.Fprintln(out, ui.C(ui.Current().Muted, "not logged in"))
				fmt.Fprintln(out, "Run: todo auth login")
				return nil
			}
			fmt.Fprintf(out, "source: %s\n", ti.Source)
			switch {
			case ti.ExpiresAt == nil:
				fmt.Fprintln(out, "expires: (unknown)")
			case ti.Expired(time.Now()):
				fmt.Fprintf(out, "expires: %s (expired)\n", ti.ExpiresAt.UTC().Format(time.RFC3339))
			default:
				fmt.Fprintf(out, "expires: %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339))
			}
			fmt.Fprintln(out, "env override: "+auth.EnvToken)
			return nil
		},
	}
}

// whoami decodes a JWT locally without verifying it; opaque tokens print
// basic info only.
func newAuthWhoAmICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the claims of the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ti, err := auth.GetToken()
			if err != nil {
				return WrapExitError(ExitFailure, "whoami", err)
			}
			if ti == nil || strings.TrimSpace(ti.Token) == "" {
				return &ExitError{Code: ExitUsage, Message: "not logged in", Hint: "run `todo auth login`"}
			}
			claims, err := auth.Claims(ti.Token)
			if err != nil {
				fmt.Fprintln(out, "Opaque token (cannot introspect locally).")
				fmt.Fprintln(out, "source:", ti.Source)
				return nil
			}
			b, err := json.MarshalIndent(claims, "", "  ")
			if err != nil {
				return WrapExitError(ExitFailure, "whoami", err)
			}
			fmt.Fprintln(out, "JWT payload:")
			fmt.Fprintln(out, string(b))
			return nil
		},
	}
}
