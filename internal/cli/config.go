package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/ui"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newConfigInitCommand(opts))
	cmd.AddCommand(newConfigPathCommand(opts))
	return cmd
}

func newConfigInitCommand(opts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			_, err := os.Stat(path)
			switch {
			case err == nil && !force:
				return &ExitError{
					Code:    ExitUsage,
					Message: fmt.Sprintf("config init: %s already exists", path),
					Hint:    "pass --force to overwrite it",
				}
			case err != nil && !errors.Is(err, os.ErrNotExist):
				return WrapExitError(ExitFailure, "config init", err)
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return WrapExitError(ExitFailure, "config init", err)
			}
			ui.OK(cmd.OutOrStdout(), "wrote "+path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigPathCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), opts.configPath)
			return nil
		},
	}
}
