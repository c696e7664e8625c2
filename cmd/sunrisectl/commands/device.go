package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sunrised/pkg/client"
)

// NewDeviceCommand creates the device command
func NewDeviceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "device",
		Aliases: []string{"devices"},
		Short:   "Manage configured bulbs",
	}

	cmd.AddCommand(
		newDeviceListCommand(),
		newDeviceProbeCommand(),
		newDevicePowerCommand(),
	)

	return cmd
}

// newDeviceListCommand creates the device list command
func newDeviceListCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context().Value(ClientContextKey).(client.ClientInterface)
			devices, err := c.GetDevices()
			if err != nil {
				return fmt.Errorf("failed to get devices: %w", err)
			}

			if len(devices) == 0 {
				if parseable {
					return nil
				}
				pterm.Info.Println("No devices configured")
				return nil
			}

			if parseable {
				for _, device := range devices {
					fmt.Println(DeviceParseable(device))
				}
				return nil
			}

			for _, device := range devices {
				pterm.DefaultTable.WithData(DeviceTableData(device)).Render()
				pterm.Println() // Add a blank line between devices
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}

// newDeviceProbeCommand creates the device probe command
func newDeviceProbeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe [id]",
		Short: "Check a device's reachability and current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context().Value(ClientContextKey).(client.ClientInterface)
			resp, err := c.ProbeDevice(args[0])
			if err != nil {
				return fmt.Errorf("failed to probe device: %w", err)
			}

			reachable, _ := resp["reachable"].(bool)
			if !reachable {
				pterm.Warning.Printf("Device %s is unreachable: %v\n", args[0], resp["reason"])
				return nil
			}

			state, _ := resp["state"].(map[string]any)
			power := "OFF"
			if on, ok := state["power"].(bool); ok && on {
				power = "ON"
			}
			pterm.Success.Printf("Device %s is reachable\n", args[0])
			pterm.DefaultTable.WithData(pterm.TableData{
				[]string{"Power", power},
				[]string{"Mode", fmt.Sprintf("%v", state["mode"])},
				[]string{"Brightness", fmt.Sprintf("%v", state["brightness"])},
				[]string{"Color temp", fmt.Sprintf("%v", state["color_temp"])},
			}).Render()
			return nil
		},
	}
	return cmd
}

// newDevicePowerCommand creates the device power command
func newDevicePowerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "power [id] [on|off]",
		Short: "Turn a device on or off",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var on bool
			switch args[1] {
			case "on", "true":
				on = true
			case "off", "false":
				on = false
			default:
				return fmt.Errorf("invalid power state: %s. Must be on or off", args[1])
			}

			c := cmd.Context().Value(ClientContextKey).(client.ClientInterface)
			if err := c.SetDevicePower(args[0], on); err != nil {
				return fmt.Errorf("failed to set device power: %w", err)
			}

			pterm.Success.Printf("Device %s turned %s\n", args[0], args[1])
			return nil
		},
	}
	return cmd
}
