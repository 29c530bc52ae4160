package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat <device-path>",
	Short: "Show the current properties of a device entry",
	Long: `Re-read an entry's properties from the device and print its
full path, kind, size and modification time.`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDevice(cmd, func(ctx context.Context, s *session) error {
			node, err := s.dev.Resolve(ctx, nil, args[0])
			if err != nil {
				return err
			}
			if err := node.Refresh(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "path:\t%s\n", node.FullName())
			fmt.Fprintf(out, "kind:\t%s\n", node.Kind())
			if !node.IsFolder() {
				fmt.Fprintf(out, "size:\t%d\n", node.Size())
			}
			if mod := node.Modified(); !mod.IsZero() {
				fmt.Fprintf(out, "modified:\t%s\n", mod.UTC().Format(time.RFC3339))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statCmd)
}
