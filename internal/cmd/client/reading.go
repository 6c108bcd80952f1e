package client

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

// NewReadingCommand constructs the `reading` command group for feed reads.
func NewReadingCommand(baseURL BaseURLFunc) *cobra.Command {
	readingCmd := &cobra.Command{Use: "reading", Short: "Read events back from the feed"}
	readingCmd.AddCommand(
		newReadingIndexCommand(baseURL, "location", "/track/locations"),
		newReadingIndexCommand(baseURL, "alert", "/track/alerts"),
		newReadingCountsCommand(baseURL),
	)
	return readingCmd
}

func newReadingIndexCommand(baseURL BaseURLFunc, use, path string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Read the %s event at an index", use),
		RunE: func(cmd *cobra.Command, _ []string) error {
			index, _ := cmd.Flags().GetInt("index")
			url := fmt.Sprintf("%s%s?index=%d", baseURL(), path, index)
			return doJSON(cmd, http.MethodGet, url, nil)
		},
	}
	cmd.Flags().Int("index", 0, "Ordinal position in the feed (0-based)")
	return cmd
}

func newReadingCountsCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Count events per type across the feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return doJSON(cmd, http.MethodGet, baseURL()+"/stats/queue", nil)
		},
	}
}
