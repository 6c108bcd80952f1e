package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the tracker client.
// It registers the event, reading, stats, reconcile, and anomaly groups.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "simpletracker",
		Short: "Tracker client commands",
	}
	root.AddCommand(NewEventCommand(baseURL))
	root.AddCommand(NewReadingCommand(baseURL))
	root.AddCommand(NewStatsCommand(baseURL))
	root.AddCommand(NewReconcileCommand(baseURL))
	root.AddCommand(NewAnomalyCommand(baseURL))
	return root
}
