package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newPropertyCmd() *cobra.Command {
	var address string

	propertyCmd := &cobra.Command{
		Use:   "property",
		Short: "Extract the full record for a single property",
		Long: `Drives the property provider's UI for the given address: searches,
opens the detail page, walks the valuation and rental tabs and prints the
assembled record as JSON. Fields the page does not expose are left empty.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			components, err := buildComponents(ctx, cfg)
			if err != nil {
				return err
			}
			defer components.Shutdown()

			rec, err := components.Aggregator.GetProperty(ctx, address)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to serialize property record: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	propertyCmd.Flags().StringVar(&address, "address", "", "Full street address (required)")
	_ = propertyCmd.MarkFlagRequired("address")

	return propertyCmd
}
