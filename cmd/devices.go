// File: cmd/devices.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/phonepilot-cli/internal/device"
)

// newDevicesCmd creates the `devices` command, which lists the devices
// visible to the configured backend's bridge tool.
func newDevicesCmd() *cobra.Command {
	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "Lists devices reachable through the configured backend",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("device.backend", cmd.Flags().Lookup("backend")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			backend := device.BackendKind(cfg.Device.Backend)
			runner := device.NewExecRunner(cfg.Device.CommandTimeout)

			ids, err := device.ListDevices(ctx, backend, runner)
			if err != nil {
				return fmt.Errorf("failed to list devices: %w", err)
			}

			if len(ids) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No %s devices found.\n", backend)
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	devicesCmd.Flags().StringP("backend", "b", "", "Device backend: adb, hdc or ios. (Overrides config/env)")
	return devicesCmd
}
