package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sunrised/pkg/client"
)

// NewRampCommand creates the ramp command
func NewRampCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ramp",
		Short: "Start or cancel manual ramps",
	}

	cmd.AddCommand(
		newRampStartCommand(),
		newRampCancelCommand(),
	)

	return cmd
}

// newRampStartCommand creates the ramp start command
func newRampStartCommand() *cobra.Command {
	var duration int
	var parseable bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a ramp on every enabled device",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context().Value(ClientContextKey).(client.ClientInterface)
			runs, err := c.StartRamp(duration)
			if err != nil {
				return fmt.Errorf("failed to start ramp: %w", err)
			}

			if parseable {
				for _, run := range runs {
					fmt.Println(RampParseable(run))
				}
				return nil
			}

			pterm.Success.Printf("Started %d ramp(s)\n", len(runs))
			for _, run := range runs {
				pterm.Printf("  %v on %v (%vs)\n", run["id"], run["device_id"], run["duration_seconds"])
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&duration, "duration", "d", 0, "Ramp duration in seconds (0 = configured duration)")
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}

// newRampCancelCommand creates the ramp cancel command
func newRampCancelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel [run-id]",
		Short: "Cancel an in-flight ramp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context().Value(ClientContextKey).(client.ClientInterface)
			if err := c.CancelRamp(args[0]); err != nil {
				return fmt.Errorf("failed to cancel ramp: %w", err)
			}

			pterm.Success.Printf("Ramp %s cancelled\n", args[0])
			return nil
		},
	}
	return cmd
}
