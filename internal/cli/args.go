package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

// Process exit codes, matching the table in the root command help.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
	ExitPanic = 3
)

// usageError marks argument and flag validation failures so main can map
// them to ExitUsage.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

// ExitCodeForError maps an Execute error to a process exit code.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitOK
	}
	var ue usageError
	if errors.As(err, &ue) {
		return ExitUsage
	}
	return ExitError
}

// Validators below wrap cobra's so arg-count failures carry the usage
// marker.

func noArgs() cobra.PositionalArgs {
	return wrapArgs(cobra.NoArgs)
}

func exactArgs(n int) cobra.PositionalArgs {
	return wrapArgs(cobra.ExactArgs(n))
}

func maximumArgs(n int) cobra.PositionalArgs {
	return wrapArgs(cobra.MaximumNArgs(n))
}

func wrapArgs(inner cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := inner(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
