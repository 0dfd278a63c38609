// Package cli is the cobra command tree of the todo binary.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Makepad-fr/tada/internal/auth"
	"github.com/Makepad-fr/tada/internal/client"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/order"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
	"github.com/Makepad-fr/tada/internal/store/sqlitestore"
	"github.com/Makepad-fr/tada/internal/ui"
)

// RootOptions holds global flags for all commands and the state built from
// them before a command runs.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Remote     string
	Theme      string

	cfg        *config.Config
	configPath string
	log        *zap.Logger
}

// NewRootCommand creates the root command for the todo CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "todo",
		Short: "todo - a tiny ordered todo list",
		Long: `todo keeps a single ordered list of items.

Items are stored locally (SQLite or a JSON file) or on a remote server
started with "todo serve". Positions shown by "todo ls" are 1-based.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.tada/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Remote, "remote", "", "server URL; overrides client.url")
	cmd.PersistentFlags().StringVar(&opts.Theme, "theme", "", "output theme (classic|neon|mono)")

	// Add subcommands
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewMoveCommand(opts))
	cmd.AddCommand(NewTUICommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRepairCommand(opts))
	cmd.AddCommand(NewAuthCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

func (o *RootOptions) setup(cmd *cobra.Command) error {
	path := o.ConfigPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return WrapExitError(ExitFailure, "config", err)
		}
		path = p
	}
	o.configPath = path
	cfg, err := config.Load(path)
	if err != nil {
		return WrapExitError(ExitUsage, "config", err)
	}
	if o.Theme != "" {
		cfg.UI.Theme = o.Theme
	}
	o.cfg = cfg

	ui.SetColorMode(cfg.UI.Color)
	ui.SetTheme(cfg.UI.Theme)

	// Only the server logs at info by default; other commands keep their
	// output to the result unless asked.
	lc := cfg.Logging
	if cmd.Name() != "serve" {
		if lvl, err := logging.ParseLevel(lc.Level); err == nil && lvl < zapcore.WarnLevel {
			lc.Level = "warn"
		}
	}
	log, err := logging.New(lc, o.Verbose)
	if err != nil {
		return WrapExitError(ExitUsage, "logging", err)
	}
	o.log = log
	return nil
}

func (o *RootOptions) remoteURL() string {
	if o.Remote != "" {
		return o.Remote
	}
	return o.cfg.Client.URL
}

// todos returns the backend commands operate on: the remote server when one
// is configured, the local store otherwise. The returned func releases it.
func (o *RootOptions) todos(ctx context.Context) (order.Todos, func(), error) {
	if url := o.remoteURL(); url != "" {
		c, err := o.remote(url)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}
	m, release, err := o.local(ctx)
	if err != nil {
		return nil, nil, err
	}
	return m, release, nil
}

func (o *RootOptions) remote(url string) (*client.Client, error) {
	timeout, err := o.cfg.Client.TimeoutDuration()
	if err != nil {
		return nil, WrapExitError(ExitUsage, "config", err)
	}
	copts := []client.Option{client.WithTimeout(timeout)}
	ti, err := auth.GetToken()
	if err != nil {
		o.log.Warn("ignoring unreadable credentials", zap.Error(err))
	}
	if ti != nil {
		copts = append(copts, client.WithToken(ti.Token))
	}
	c, err := client.New(url, copts...)
	if err != nil {
		return nil, WrapExitError(ExitUsage, "remote", err)
	}
	o.log.Debug("using remote server", zap.String("url", url))
	return c, nil
}

// local opens the configured store and wraps it in a Maintainer.
func (o *RootOptions) local(ctx context.Context) (*order.Maintainer, func(), error) {
	store, err := openStore(ctx, o.cfg.Storage)
	if err != nil {
		return nil, nil, WrapExitError(ExitFailure, "open storage", err)
	}
	o.log.Debug("opened local storage",
		zap.String("driver", o.cfg.Storage.Driver),
		zap.String("path", o.cfg.Storage.Path),
	)
	release := func() {
		if err := store.Close(); err != nil {
			o.log.Warn("closing storage", zap.Error(err))
		}
	}
	return order.New(store, order.WithLogger(o.log)), release, nil
}

func openStore(ctx context.Context, sc config.StorageConfig) (order.Store, error) {
	switch sc.Driver {
	case config.DriverJSON:
		return jsonstore.Open(sc.Path)
	case config.DriverSQLite, config.DriverSQLitePure:
		return sqlitestore.Open(ctx, sqlitestore.Options{Driver: sc.Driver, Path: sc.Path})
	}
	return nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
}
