package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var sizeCmd = &cobra.Command{
	Use:   "size <device-path>",
	Short: "Print the size of a device file or folder in bytes",
	Long: `Print a file's size, or for a folder the sum of the sizes of
every file below it, computed by walking the subtree.`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDevice(cmd, func(ctx context.Context, s *session) error {
			node, err := s.dev.Resolve(ctx, nil, args[0])
			if err != nil {
				return err
			}
			n, err := newEngine(s).Size(ctx, node)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(sizeCmd)
}
