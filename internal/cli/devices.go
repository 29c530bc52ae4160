package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sinajet/nx-mtp-sender/pkg/mtp"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List connected devices",
	Long:  "List the label of every connected device, one per line.",
	Args:  noArgs(),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, b, err := openBackend(cmd)
		if err != nil {
			return err
		}
		defer b.Close()

		devices, err := b.ListDevices(cmd.Context())
		if err != nil {
			return fmt.Errorf("enumerate devices: %w", err)
		}
		for _, d := range devices {
			fmt.Fprintln(cmd.OutOrStdout(), mtp.LabelFor(d))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
