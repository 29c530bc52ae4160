package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sinajet/nx-mtp-sender/internal/browse"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the device content tree interactively",
	Args:  noArgs(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDevice(cmd, func(ctx context.Context, s *session) error {
			return browse.Run(s.dev)
		})
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
}
