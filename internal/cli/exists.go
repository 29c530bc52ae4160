package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// errNotExists makes "exists" leave with code 1 without an error message;
// the printed "false" is the diagnostic.
var errNotExists = errors.New("path does not exist")

var existsCmd = &cobra.Command{
	Use:   "exists <device-path>",
	Short: "Check whether a device path exists",
	Long: `Print "true" and exit 0 when the path resolves on the device,
"false" and exit 1 when it does not.`,
	Args:          exactArgs(1),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := runWithDevice(cmd, func(ctx context.Context, s *session) error {
			ok, err := s.dev.Exists(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "false")
				return errNotExists
			}
			fmt.Fprintln(cmd.OutOrStdout(), "true")
			return nil
		})
		// Cobra is silenced for this command so a plain "false" is the
		// whole output on a miss; every other failure still needs its
		// diagnostic printed.
		if err != nil && !errors.Is(err, errNotExists) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(existsCmd)
}
