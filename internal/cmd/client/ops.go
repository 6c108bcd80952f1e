package client

import (
	"net/http"

	"github.com/spf13/cobra"
)

// NewStatsCommand constructs the `stats` command group.
func NewStatsCommand(baseURL BaseURLFunc) *cobra.Command {
	statsCmd := &cobra.Command{Use: "stats", Short: "Cumulative event statistics"}
	statsCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the current counters",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return doJSON(cmd, http.MethodGet, baseURL()+"/stats", nil)
			},
		},
		&cobra.Command{
			Use:   "update",
			Short: "Run one aggregation pass",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return doJSON(cmd, http.MethodPost, baseURL()+"/stats/update", nil)
			},
		},
	)
	return statsCmd
}

// NewReconcileCommand constructs the `reconcile` command group.
func NewReconcileCommand(baseURL BaseURLFunc) *cobra.Command {
	recCmd := &cobra.Command{Use: "reconcile", Short: "Cross-check feed, store, and counters"}
	recCmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run one reconciliation pass",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return doJSON(cmd, http.MethodPost, baseURL()+"/checks/update", nil)
			},
		},
		&cobra.Command{
			Use:   "report",
			Short: "Show the latest drift report",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return doJSON(cmd, http.MethodGet, baseURL()+"/checks", nil)
			},
		},
	)
	return recCmd
}

// NewAnomalyCommand constructs the `anomaly` command group.
func NewAnomalyCommand(baseURL BaseURLFunc) *cobra.Command {
	anomalyCmd := &cobra.Command{Use: "anomaly", Short: "Anomaly detection"}
	anomalyCmd.AddCommand(
		&cobra.Command{
			Use:   "scan",
			Short: "Run one detector scan",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return doJSON(cmd, http.MethodPut, baseURL()+"/anomalies/update", nil)
			},
		},
		&cobra.Command{
			Use:   "latest",
			Short: "Show the latest finding",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return doJSON(cmd, http.MethodGet, baseURL()+"/anomalies", nil)
			},
		},
	)
	return anomalyCmd
}
