package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls [device-path]",
	Short: "List the children of a device folder",
	Args:  maximumArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		return runWithDevice(cmd, func(ctx context.Context, s *session) error {
			node, err := s.dev.Resolve(ctx, nil, path)
			if err != nil {
				return err
			}
			children, err := node.Children(ctx)
			if err != nil {
				return err
			}
			for _, c := range children {
				if c.IsFolder() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s/\n", c.Name())
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", c.Name(), c.Size())
				}
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
