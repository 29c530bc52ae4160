package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var mkdirsCmd = &cobra.Command{
	Use:   "mkdirs <device-path>",
	Short: "Create folders on the device",
	Long: `Create every missing folder along the given path. Existing
folders are left alone; storages cannot be created.`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDevice(cmd, func(ctx context.Context, s *session) error {
			node, err := newEngine(s).MakeDirs(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), node.FullName())
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(mkdirsCmd)
}
