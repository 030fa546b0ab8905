package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/manjain15/propwealth-scraper/internal/observability"
)

func newCompsCmd() *cobra.Command {
	var addresses []string

	compsCmd := &cobra.Command{
		Use:   "comps",
		Short: "Extract reduced records for a batch of comparable sales",
		Long: `Looks up each address in one paced browser session and prints one
result per address, in input order. A failed address is reported inline and
never aborts the rest of the batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			components, err := buildComponents(ctx, cfg)
			if err != nil {
				return err
			}
			defer components.Shutdown()

			results := components.Aggregator.GetComparables(ctx, addresses)

			failed := 0
			for _, r := range results {
				if !r.Success {
					failed++
				}
			}
			if failed > 0 {
				observability.GetLogger().Warn("Some comparable lookups failed",
					zap.Int("failed", failed), zap.Int("total", len(results)))
			}

			out, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to serialize comparable records: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	compsCmd.Flags().StringSliceVar(&addresses, "address", nil,
		"Address to look up, repeatable (at least one required)")
	_ = compsCmd.MarkFlagRequired("address")

	return compsCmd
}
