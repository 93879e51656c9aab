package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"historyScope/internal/model"
	"historyScope/internal/protocols"
)

type counterpartyEntry struct {
	model.CounterpartyDetails
	Products []model.Product `json:"products,omitempty"`
}

func runCounterparties(cmd *cobra.Command, _ []string) error {
	chainID, err := cmd.Flags().GetUint64("chain-id")
	if err != nil {
		return err
	}
	registry, err := protocols.BuildRegistry(chainID)
	if err != nil {
		return err
	}

	catalog := registry.Counterparties()
	entries := make([]counterpartyEntry, 0, len(catalog))
	for _, cpt := range catalog {
		entries = append(entries, counterpartyEntry{
			CounterpartyDetails: cpt,
			Products:            registry.Products(cpt.Identifier),
		})
	}

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
