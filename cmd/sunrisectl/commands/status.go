package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sunrised/pkg/client"
)

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the schedule state and active ramps",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context().Value(ClientContextKey).(client.ClientInterface)
			resp, err := c.GetStatus()
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}

			sched, _ := resp["schedule"].(map[string]any)
			ramps, _ := resp["active_ramps"].([]any)

			if parseable {
				fmt.Printf("mode=%v next_start=%v triggered=%v duration=%v active_ramps=%d\n",
					sched["mode"], sched["next_start"], sched["triggered_today"],
					sched["duration_seconds"], len(ramps))
				return nil
			}

			table := pterm.TableData{
				[]string{"Mode", fmt.Sprintf("%v", sched["mode"])},
				[]string{"Next ramp", fmt.Sprintf("%v", sched["next_start"])},
				[]string{"Triggered today", fmt.Sprintf("%v", sched["triggered_today"])},
				[]string{"Ramp duration", fmt.Sprintf("%vs", sched["duration_seconds"])},
			}
			if sunrise, ok := sched["sunrise"].(string); ok && sunrise != "" {
				table = append(table, []string{"Sunrise", sunrise})
			}
			pterm.DefaultTable.WithData(table).Render()

			if len(ramps) == 0 {
				pterm.Info.Println("No active ramps")
				return nil
			}
			pterm.Println()
			for _, r := range ramps {
				run, ok := r.(map[string]any)
				if !ok {
					continue
				}
				pterm.DefaultTable.WithData(pterm.TableData{
					[]string{pterm.Bold.Sprint("Run"), pterm.Bold.Sprintf("%v", run["id"])},
					[]string{"Device", fmt.Sprintf("%v", run["device_id"])},
					[]string{"Started", fmt.Sprintf("%v", run["started"])},
					[]string{"Duration", fmt.Sprintf("%vs", run["duration_seconds"])},
				}).Render()
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}

// NewNextCommand creates the next command
func NewNextCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next scheduled ramp start",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context().Value(ClientContextKey).(client.ClientInterface)
			resp, err := c.NextRamp()
			if err != nil {
				return fmt.Errorf("failed to get next ramp: %w", err)
			}

			fmt.Printf("Mode: %v\n", resp["mode"])
			if sunrise, ok := resp["sunrise"].(string); ok && sunrise != "" {
				fmt.Printf("Sunrise: %v\n", sunrise)
			}
			fmt.Printf("Ramp start: %v\n", resp["next_start"])
			if d, ok := resp["duration_seconds"].(float64); ok {
				fmt.Printf("Ramp duration: %.0f minutes\n", d/60)
			}
			if triggered, ok := resp["triggered_today"].(bool); ok && triggered {
				fmt.Println("Already triggered today; next ramp is tomorrow")
			}
			return nil
		},
	}
	return cmd
}
