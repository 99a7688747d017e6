package ui

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/javiermolinar/examdesk/internal/dateutil"
	"github.com/javiermolinar/examdesk/internal/devserver"
)

func (a *App) serveDevCmd() *cobra.Command {
	var (
		addr     string
		start    string
		days     int
		operator string
		ttl      time.Duration
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "serve-dev",
		Short: "Run a local scheduling service with demo data",
		Long: `Start an in-memory scheduling service seeded with a demo exam period.
Placements clash when two groups share students, and room changes are
checked against room capacity and occupancy.

A signed operator token is printed on start; put it in the [server]
section of the config, or export EXAMDESK_TOKEN.

Example:
  examdesk serve-dev --days=5 --start=2025-06-09`,
		RunE: func(_ *cobra.Command, _ []string) error {
			first, err := periodStart(start, time.Now())
			if err != nil {
				return err
			}

			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
				Level(level).With().Timestamp().Logger()

			tokens := devserver.NewTokens(a.config.DevServer.Secret)
			token, err := tokens.Issue("operator-1", operator, "scheduler", ttl)
			if err != nil {
				return fmt.Errorf("issuing token: %w", err)
			}

			state := devserver.Seed(first, days, a.config.Windows())
			srv := devserver.New(state, devserver.WithTokens(tokens), devserver.WithLogger(logger))

			fmt.Printf("%s http://%s\n", formatHeader("Serving"), addr)
			fmt.Printf("%s %s .. %s (%d days)\n", formatHeader("Period"), first.Format("2006-01-02"), lastDay(state), days)
			fmt.Printf("%s %s\n", formatHeader("Token"), token)
			fmt.Println(formatMuted("Valid for " + ttl.String() + "."))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", a.config.DevServer.Addr, "Listen address")
	cmd.Flags().StringVar(&start, "start", "", "First day of the period (YYYY-MM-DD or a weekday, default: next Monday)")
	cmd.Flags().IntVar(&days, "days", 5, "Number of weekdays in the period")
	cmd.Flags().StringVar(&operator, "operator", "Dev Operator", "Operator name carried by the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	return cmd
}

// periodStart resolves s, or returns the Monday after now when s is empty.
func periodStart(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return dateutil.NextWeekday(now, time.Monday), nil
	}
	return dateutil.ParseDay(s, now)
}

func lastDay(state *devserver.State) string {
	slots := state.Slots()
	if len(slots) == 0 {
		return "-"
	}
	return slots[len(slots)-1].DayKey()
}
