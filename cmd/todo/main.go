package main

import (
	"errors"
	"os"

	"github.com/Makepad-fr/tada/internal/cli"
	"github.com/Makepad-fr/tada/internal/ui"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		ui.Fail(os.Stderr, err.Error())
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) && exitErr.Hint != "" {
			ui.Hint(os.Stderr, exitErr.Hint)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
