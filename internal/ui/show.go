package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/examdesk/internal/dateutil"
	"github.com/javiermolinar/examdesk/internal/db"
	"github.com/javiermolinar/examdesk/internal/store"
)

func (a *App) showCmd() *cobra.Command {
	var (
		day      string
		cached   bool
		verbose  bool
		students bool
		noColor  bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the exam schedule",
		Long: `Display the scheduled exams slot by slot, followed by a short summary.

With --cached the last schedule saved locally is shown, without contacting
the scheduling service.

Example:
  examdesk show --day=2025-06-10`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if noColor {
				DisableColor()
			}
			ctx := context.Background()

			snap, err := a.loadSnapshot(ctx, cached)
			if err != nil {
				return err
			}

			days := snap.PeriodDays()
			if day != "" {
				d, err := dateutil.ParseDay(day, time.Now())
				if err != nil {
					return err
				}
				days = []time.Time{d}
			}
			if len(days) == 0 {
				fmt.Println("No exam period configured.")
				return nil
			}

			opts := PrintOpts{Verbose: verbose, ShowStudents: students}
			for i, d := range days {
				if i > 0 {
					fmt.Println()
				}
				PrintDay(os.Stdout, snap, d, a.config.Windows(), opts)
			}
			fmt.Println()
			PrintStats(os.Stdout, ComputeStats(snap))
			return nil
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "Only show this day (YYYY-MM-DD, today, tomorrow or a weekday)")
	cmd.Flags().BoolVar(&cached, "cached", false, "Show the locally saved schedule")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show full labels")
	cmd.Flags().BoolVar(&students, "students", false, "Show head counts")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable color output")
	return cmd
}

// loadSnapshot fetches the schedule from the service, or reads the local
// copy when cached is set.
func (a *App) loadSnapshot(ctx context.Context, cached bool) (*store.Snapshot, error) {
	if cached {
		if err := a.ensureDB(); err != nil {
			return nil, err
		}
		snap, savedAt, err := a.db.LoadSnapshot(ctx)
		if errors.Is(err, db.ErrNoSnapshot) {
			return nil, errors.New("no schedule saved locally yet; run without --cached first")
		}
		if err != nil {
			return nil, fmt.Errorf("reading local schedule: %w", err)
		}
		fmt.Println(formatMuted("Saved " + savedAt.Local().Format("2006-01-02 15:04")))
		return snap, nil
	}

	if err := a.loadConsole(ctx); err != nil {
		return nil, err
	}
	return a.console.Store().Snapshot(), nil
}
