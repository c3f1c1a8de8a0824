package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/waftester/jsonparams/pkg/defaults"
	"github.com/waftester/jsonparams/pkg/finding"
	"github.com/waftester/jsonparams/pkg/ui"
)

// exitWithError prints a formatted error message and exits with
// ExitUserError.
func exitWithError(format string, args ...any) {
	ui.PrintError(fmt.Sprintf(format, args...))
	os.Exit(defaults.ExitUserError)
}

// exitWithUsage prints an error message followed by a usage hint, then exits.
func exitWithUsage(msg, usage string) {
	ui.PrintError(msg)
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage:", usage)
	os.Exit(defaults.ExitUserError)
}

// exitForError prints err and exits with the code matching its cause.
func exitForError(prefix string, err error) {
	ui.PrintError(fmt.Sprintf("%s: %v", prefix, err))
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return defaults.ExitSuccess
	case errors.Is(err, finding.ErrTargetUnreachable),
		errors.Is(err, finding.ErrTimeout),
		errors.Is(err, finding.ErrRateLimited):
		return defaults.ExitNetworkError
	case errors.Is(err, finding.ErrNoPayloads):
		return defaults.ExitInternalError
	default:
		return defaults.ExitUserError
	}
}
