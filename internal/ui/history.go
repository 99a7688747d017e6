package ui

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func (a *App) historyCmd() *cobra.Command {
	var (
		limit   int
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent placements",
		Long: `List how recent placements, moves and room changes ended, newest first.
Every flow is recorded locally, including cancelled and failed ones.

Example:
  examdesk history --limit=20`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if noColor {
				DisableColor()
			}
			if err := a.ensureDB(); err != nil {
				return err
			}
			entries, err := a.db.ListSettlements(context.Background(), limit)
			if err != nil {
				return fmt.Errorf("reading history: %w", err)
			}
			PrintHistory(os.Stdout, entries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable color output")
	return cmd
}
