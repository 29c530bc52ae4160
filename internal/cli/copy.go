package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sinajet/nx-mtp-sender/pkg/mtp"
)

var copyCmd = &cobra.Command{
	Use:   "copy <local-path> <device-folder>",
	Short: "Copy a local file or directory to the device",
	Long: `Copy a local file or a whole directory into a folder on the
device. Missing folders along the destination path are created, except
storages, which only the device itself can create.`,
	Args: exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		local, destPath := args[0], args[1]
		info, err := os.Stat(local)
		if err != nil {
			return err
		}
		return runWithDevice(cmd, func(ctx context.Context, s *session) error {
			eng := newEngine(s)
			dest, err := eng.MakeDirs(ctx, destPath)
			if err != nil {
				return err
			}
			if info.IsDir() {
				return eng.UploadTree(ctx, local, dest)
			}
			node, err := eng.Upload(ctx, local, dest)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), node.FullName())
			return nil
		})
	},
}

// newEngine builds the transfer engine from session configuration.
func newEngine(s *session) *mtp.Engine {
	eng := mtp.NewEngine(s.dev)
	eng.StagingDir = s.cfg.StagingDir
	eng.Retry.MaxAttempts = s.cfg.RetryAttempts
	return eng
}

func init() {
	rootCmd.AddCommand(copyCmd)
}
