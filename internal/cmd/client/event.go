package client

import (
	"net/http"

	"github.com/spf13/cobra"
)

// NewEventCommand constructs the `event` command group for publishing
// telemetry through the API.
func NewEventCommand(baseURL BaseURLFunc) *cobra.Command {
	eventCmd := &cobra.Command{Use: "event", Short: "Publish telemetry events"}
	eventCmd.AddCommand(newTrackGPSCommand(baseURL), newTrackAlertCommand(baseURL))
	return eventCmd
}

func newTrackGPSCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track-gps",
		Short: "Publish a GPS location event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			device, _ := cmd.Flags().GetString("device")
			lat, _ := cmd.Flags().GetFloat64("lat")
			lon, _ := cmd.Flags().GetFloat64("lon")
			name, _ := cmd.Flags().GetString("location")
			ts, _ := cmd.Flags().GetString("timestamp")
			body := map[string]any{
				"device_id":     device,
				"latitude":      lat,
				"longitude":     lon,
				"location_name": name,
				"timestamp":     ts,
			}
			return doJSON(cmd, http.MethodPost, baseURL()+"/events/track-gps", body)
		},
	}
	cmd.Flags().String("device", "", "Device identifier")
	cmd.Flags().Float64("lat", 0, "Latitude")
	cmd.Flags().Float64("lon", 0, "Longitude")
	cmd.Flags().String("location", "", "Human-readable location name")
	cmd.Flags().String("timestamp", "", "Event timestamp (RFC3339)")
	_ = cmd.MarkFlagRequired("device")
	return cmd
}

func newTrackAlertCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track-alert",
		Short: "Publish an alert event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			device, _ := cmd.Flags().GetString("device")
			lat, _ := cmd.Flags().GetFloat64("lat")
			lon, _ := cmd.Flags().GetFloat64("lon")
			name, _ := cmd.Flags().GetString("location")
			ts, _ := cmd.Flags().GetString("timestamp")
			desc, _ := cmd.Flags().GetString("desc")
			body := map[string]any{
				"device_id":     device,
				"latitude":      lat,
				"longitude":     lon,
				"location_name": name,
				"timestamp":     ts,
				"alert_desc":    desc,
			}
			return doJSON(cmd, http.MethodPost, baseURL()+"/events/track-alerts", body)
		},
	}
	cmd.Flags().String("device", "", "Device identifier")
	cmd.Flags().Float64("lat", 0, "Latitude")
	cmd.Flags().Float64("lon", 0, "Longitude")
	cmd.Flags().String("location", "", "Human-readable location name")
	cmd.Flags().String("timestamp", "", "Event timestamp (RFC3339)")
	cmd.Flags().String("desc", "", "Alert description")
	_ = cmd.MarkFlagRequired("device")
	return cmd
}
