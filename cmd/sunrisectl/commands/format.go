package commands

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
)

// DeviceTableData returns the table data for a device, with bold ID and value
func DeviceTableData(device map[string]any) pterm.TableData {
	return pterm.TableData{
		[]string{pterm.Bold.Sprint("ID"), pterm.Bold.Sprintf("%v", device["id"])},
		[]string{"Name", fmt.Sprintf("%v", device["name"])},
		[]string{"Host", fmt.Sprintf("%v", device["host"])},
		[]string{"Version", fmt.Sprintf("%v", device["version"])},
		[]string{"Enabled", fmt.Sprintf("%v", device["enabled"])},
		[]string{"Last Seen", formatLastSeen(device["last_seen"])},
	}
}

// formatLastSeen formats the last-seen time for display
func formatLastSeen(lastSeen any) string {
	s, ok := lastSeen.(string)
	if !ok {
		return "N/A"
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil || t.IsZero() {
		return "N/A"
	}
	return t.Format(time.RFC1123Z)
}

// DeviceParseable returns the parseable key=value string for a device
func DeviceParseable(device map[string]any) string {
	return fmt.Sprintf(
		"id=\"%v\" name=\"%v\" host=\"%v\" version=\"%v\" enabled=%v",
		device["id"],
		device["name"],
		device["host"],
		device["version"],
		device["enabled"],
	)
}

// RampParseable returns the parseable key=value string for a ramp run
func RampParseable(run map[string]any) string {
	return fmt.Sprintf(
		"id=\"%v\" device=\"%v\" started=\"%v\" duration=%v",
		run["id"],
		run["device_id"],
		run["started"],
		run["duration_seconds"],
	)
}
