package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <device-path>",
	Short: "Delete a file or folder on the device",
	Long: `Delete a device file, or a folder and everything below it. The
deletion is verified afterwards; a device that merely acknowledged the
request without removing the entry is reported as an error.`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDevice(cmd, func(ctx context.Context, s *session) error {
			node, err := s.dev.Resolve(ctx, nil, args[0])
			if err != nil {
				return err
			}
			return newEngine(s).Remove(ctx, node)
		})
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
