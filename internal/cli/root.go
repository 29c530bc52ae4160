// Package cli implements the nx-mtp-sender command line interface.
package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nx-mtp-sender",
	Short: "Transfer files to and from portable devices",
	Long: `nx-mtp-sender copies files and folders to and from MTP devices
(phones, cameras, media players) through the platform's native device
stack, with the same path-based interface on every platform.

Device paths start at the device root; the first component is the
storage name, e.g. "Internal Storage/Documents/report.pdf". The device
label itself may be given as a leading component and is ignored.

Exit Codes:
  0 - Success (for "exists": the path exists)
  1 - Error (for "exists": the path does not exist)
  2 - CLI usage error (invalid arguments or flags)
  3 - Panic or unexpected system error`,
	SilenceUsage: true,
}

// Execute runs the root command with signal-aware cancellation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})
	rootCmd.PersistentFlags().StringP("device", "d", "", "Select device by name substring (default: first device)")
	rootCmd.PersistentFlags().String("backend", "", "Device backend: auto, wpd, gvfs or sim")
	rootCmd.PersistentFlags().String("log-level", "", "Override log level: debug, info, warn, error")
}
