package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Makepad-fr/tada/internal/server"
	"github.com/Makepad-fr/tada/internal/ui"
)

// NewServeCommand creates the serve command.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local list over HTTP",
		Long: `Serve the local list over HTTP/JSON until interrupted.

The server always uses local storage; --remote is ignored. Set server.token
(or TADA_SERVER_TOKEN) to require "Authorization: Bearer <token>".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg.Server
			if addr != "" {
				cfg.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m, release, err := opts.local(ctx)
			if err != nil {
				return err
			}
			defer release()

			srv, err := server.New(m, cfg, opts.log)
			if err != nil {
				return WrapExitError(ExitUsage, "server config", err)
			}
			if cfg.Token == "" {
				opts.log.Warn("no server token configured; API is open to anyone who can reach it",
					zap.String("addr", cfg.Addr))
			}
			if err := srv.Run(ctx); err != nil {
				return WrapExitError(ExitFailure, "serve", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}

// NewRepairCommand creates the repair command.
func NewRepairCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Renumber local positions so they are dense again",
		Long: `Renumber positions to 1..n following the current order.

Only needed when the storage file was edited by hand or by another tool.
Runs against local storage only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, release, err := opts.local(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			items, changed, err := m.Repair(cmd.Context())
			if err != nil {
				return classify(err)
			}
			out := cmd.OutOrStdout()
			if changed == 0 {
				ui.OK(out, fmt.Sprintf("positions already dense (%d items)", len(items)))
				return nil
			}
			ui.OK(out, fmt.Sprintf("repaired %d of %d positions", changed, len(items)))
			return nil
		},
	}
}
