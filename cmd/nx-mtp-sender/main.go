package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/sinajet/nx-mtp-sender/internal/cli"
)

func main() {
	// Recover from panics so the process still exits with a diagnostic
	// instead of a bare crash.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(cli.ExitPanic)
		}
	}()

	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCodeForError(err))
	}
}
