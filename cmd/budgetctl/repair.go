package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"famledger/internal/notify"
)

func newRepairCommand() *cobra.Command {
	var familyID string

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Recalculate the usage of every active budget of a family",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := uuid.Parse(familyID); err != nil {
				return fmt.Errorf("invalid --family: %w", err)
			}

			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			svc := rt.services(notify.LogPublisher{})
			result, err := svc.Budgets.RecalculateFamily(cmd.Context(), familyID)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d of %d budgets failed to recalculate", result.Failed, result.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&familyID, "family", "", "family ID (required)")
	_ = cmd.MarkFlagRequired("family")

	return cmd
}
