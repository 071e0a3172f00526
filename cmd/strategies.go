// File: cmd/strategies.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/scalpel-heal/internal/healing"
)

func newStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the healing strategies in priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, name := range healing.NewResolver().Strategies() {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s\n", i+1, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
