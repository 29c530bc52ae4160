package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download <device-path> <local-path>",
	Short: "Copy a device file or folder to local storage",
	Long: `Copy a file from the device to a local path, or a folder and
everything below it into a local directory.`,
	Args: exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		devicePath, local := args[0], args[1]
		return runWithDevice(cmd, func(ctx context.Context, s *session) error {
			node, err := s.dev.Resolve(ctx, nil, devicePath)
			if err != nil {
				return err
			}
			return newEngine(s).Download(ctx, node, local)
		})
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
}
