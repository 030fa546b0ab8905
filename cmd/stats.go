package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manjain15/propwealth-scraper/internal/observability"
)

func newStatsCmd() *cobra.Command {
	var (
		suburb   string
		state    string
		postcode string
	)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Fetch normalized market statistics for a suburb",
		Long: `Logs in to the market-data provider (reusing a cached session where
possible), queries the statistics endpoint for the given suburb and prints
the normalized snapshot as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			components, err := buildComponents(ctx, cfg)
			if err != nil {
				return err
			}
			defer components.Shutdown()

			stats, err := components.Aggregator.GetMarketStats(ctx, suburb, strings.ToUpper(state), postcode)
			if err != nil {
				observability.GetLogger().Error("Market stats scrape failed")
				return err
			}

			out, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to serialize market stats: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	statsCmd.Flags().StringVar(&suburb, "suburb", "", "Suburb name (required)")
	statsCmd.Flags().StringVar(&state, "state", "", "State abbreviation, e.g. NSW (required)")
	statsCmd.Flags().StringVar(&postcode, "postcode", "", "Four digit postcode (required)")
	_ = statsCmd.MarkFlagRequired("suburb")
	_ = statsCmd.MarkFlagRequired("state")
	_ = statsCmd.MarkFlagRequired("postcode")

	return statsCmd
}
