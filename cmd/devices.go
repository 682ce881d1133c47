// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"spectrum/internal/audio"
	"spectrum/internal/tui"

	"github.com/spf13/cobra"
)

func newDevicesCommand(opts *rootOptions) *cobra.Command {
	var interactive bool

	devicesCmd := &cobra.Command{
		Use:     "devices",
		Aliases: []string{"list"},
		Short:   "List available audio devices",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.loadConfig(); err != nil {
				return err
			}
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			if !interactive {
				return audio.ListDevices(cmd.OutOrStdout())
			}

			devices, err := audio.HostDevices()
			if err != nil {
				return err
			}
			sel, ok, err := tui.PickDevice(devices)
			if err != nil || !ok {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Selected %q. Add to your config:\n\naudio:\n  input_device: %d\n  sample_rate: %.0f\n",
				sel.Device.Name, sel.Device.ID, sel.SampleRate)
			return nil
		},
	}
	devicesCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Pick a device in a terminal UI")

	return devicesCmd
}
