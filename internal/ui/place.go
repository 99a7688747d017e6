package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/examdesk/internal/assign"
	"github.com/javiermolinar/examdesk/internal/dateutil"
	"github.com/javiermolinar/examdesk/internal/exam"
)

// reviewFlags decide what happens when a placement clashes.
type reviewFlags struct {
	accept bool // commit the working slot, the service's best suggestion
	pick   int  // 1-based suggestion to re-check and commit
}

func (f *reviewFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.accept, "accept", false, "On conflict, commit the suggested slot")
	cmd.Flags().IntVar(&f.pick, "pick", 0, "On conflict, re-check and commit alternative N")
}

func (a *App) placeCmd() *cobra.Command {
	var (
		course int64
		group  int64
		review reviewFlags
	)

	cmd := &cobra.Command{
		Use:   "place [date] [slot]",
		Short: "Place an unscheduled course or group on a slot",
		Long: `Verify a placement with the scheduling service and commit it.

A whole course binds its first unscheduled group. When the placement
clashes, the conflicts and alternatives are printed and nothing is
committed unless --accept or --pick is given.

Example:
  examdesk place 2025-06-10 Morning --group=101
  examdesk place 2025-06-10 Morning --course=4 --accept
  examdesk place next-monday Afternoon --group=102`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			if (course == 0) == (group == 0) {
				return errors.New("exactly one of --course or --group is required")
			}
			ctx := context.Background()
			if err := a.loadConsole(ctx); err != nil {
				return err
			}

			var err error
			if course != 0 {
				_, err = a.console.BeginCourse(course)
			} else {
				_, err = a.console.BeginGroup(group)
			}
			if err != nil {
				return err
			}
			return a.dropAndSettle(ctx, args[0], args[1], review)
		},
	}

	cmd.Flags().Int64Var(&course, "course", 0, "Course id")
	cmd.Flags().Int64Var(&group, "group", 0, "Course group id")
	review.register(cmd)
	return cmd
}

func (a *App) moveCmd() *cobra.Command {
	var review reviewFlags

	cmd := &cobra.Command{
		Use:   "move [group-id] [date] [slot]",
		Short: "Move a scheduled exam to another slot",
		Long: `Move the exam of a course group to another slot. The exam keeps its id.

Example:
  examdesk move 101 2025-06-11 Afternoon`,
		Args: cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			groupID, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()
			if err := a.loadConsole(ctx); err != nil {
				return err
			}
			e, ok := a.console.Store().Snapshot().ExamByGroup(groupID)
			if !ok {
				return fmt.Errorf("group %d has no exam", groupID)
			}
			if _, err := a.console.Begin(exam.ScheduledEntity(e)); err != nil {
				return err
			}
			return a.dropAndSettle(ctx, args[1], args[2], review)
		},
	}

	review.register(cmd)
	return cmd
}

func (a *App) roomCmd() *cobra.Command {
	var (
		students []string
		review   reviewFlags
	)

	cmd := &cobra.Command{
		Use:   "room [group-id] [room]",
		Short: "Change the room of a scheduled exam",
		Long: `Move a scheduled exam, or some of its students, to another room.
The service checks the room is free and large enough first.

Example:
  examdesk room 101 B-201
  examdesk room 101 A-102 --students=s12,s40`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			groupID, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()
			if err := a.loadConsole(ctx); err != nil {
				return err
			}

			var list []exam.Student
			for _, id := range students {
				list = append(list, exam.Student{ID: id})
			}
			res, err := a.console.ChangeRoom(ctx, groupID, args[1], list)
			if err != nil {
				return err
			}
			return a.settle(ctx, fmt.Sprintf("group %d in room %s", groupID, args[1]), res, review)
		},
	}

	cmd.Flags().StringSliceVar(&students, "students", nil, "Only move these student ids")
	review.register(cmd)
	return cmd
}

func (a *App) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [group-id]",
		Short: "Unschedule the exam of a course group",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			groupID, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()
			if err := a.loadConsole(ctx); err != nil {
				return err
			}
			e, ok := a.console.Store().Snapshot().ExamByGroup(groupID)
			if !ok {
				return fmt.Errorf("group %d has no exam", groupID)
			}
			if err := a.console.Remove(ctx, groupID); err != nil {
				return fmt.Errorf("removing exam: %w", err)
			}
			fmt.Printf("Unscheduled %s from %s\n", e.Group.Label(), e.Slot)
			return nil
		},
	}
}

func (a *App) slotTimeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slot-time [date] [slot] [start] [end]",
		Short: "Change the time window of a slot",
		Long: `Change when a slot starts and ends. Times use HH:MM.

Example:
  examdesk slot-time 2025-06-10 Morning 08:30 11:30
  examdesk slot-time tomorrow Evening 17:30 20:30`,
		Args: cobra.ExactArgs(4),
		RunE: func(_ *cobra.Command, args []string) error {
			key, err := dateutil.DayKey(args[0], time.Now())
			if err != nil {
				return err
			}
			ref, err := exam.ParseSlotRef(key, args[1])
			if err != nil {
				return err
			}
			if err := exam.ValidateWindow(args[2], args[3]); err != nil {
				return err
			}
			ctx := context.Background()
			if err := a.loadConsole(ctx); err != nil {
				return err
			}
			if err := a.console.EditSlotTime(ctx, ref, args[2], args[3]); err != nil {
				return fmt.Errorf("updating slot: %w", err)
			}
			fmt.Printf("%s now runs %s-%s\n", ref, args[2], args[3])
			return nil
		},
	}
}

func (a *App) unscheduledCmd() *cobra.Command {
	var noColor bool
	cmd := &cobra.Command{
		Use:   "unscheduled",
		Short: "List course groups without an exam",
		RunE: func(_ *cobra.Command, _ []string) error {
			if noColor {
				DisableColor()
			}
			ctx := context.Background()
			if err := a.loadConsole(ctx); err != nil {
				return err
			}
			PrintUnscheduled(os.Stdout, a.console.Store().Snapshot().Unscheduled)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable color output")
	return cmd
}

// loadConsole builds the console and fetches the schedule.
func (a *App) loadConsole(ctx context.Context) error {
	if err := a.ensureConsole(); err != nil {
		return err
	}
	if err := a.console.Load(ctx); err != nil {
		return fmt.Errorf("loading schedule: %w", err)
	}
	return nil
}

// dropAndSettle drops the carried entity on date/slot and drives the review.
func (a *App) dropAndSettle(ctx context.Context, date, slot string, review reviewFlags) error {
	key, err := dateutil.DayKey(date, time.Now())
	if err != nil {
		return err
	}
	carried, _ := a.console.Carrying()
	res, err := a.console.Drop(ctx, key, slot)
	if err != nil {
		return err
	}
	return a.settle(ctx, carried.Label(), res, review)
}

// settle drives an open review to an end according to the review flags and
// prints the outcome. Without --accept or --pick a clash is cancelled.
func (a *App) settle(ctx context.Context, subject string, res assign.Result, review reviewFlags) error {
	if res.Review != nil {
		PrintReview(os.Stdout, subject, res.Review)

		var err error
		switch {
		case review.pick > 0:
			res, err = a.console.Pick(ctx, review.pick-1)
			if errors.Is(err, assign.ErrAlreadySelected) {
				res, err = a.console.Confirm(ctx)
				break
			}
			if err == nil && res.Review != nil {
				if len(res.Review.Conflicts) > 0 {
					PrintReview(os.Stdout, subject, res.Review)
					err = fmt.Errorf("alternative %d clashes too", review.pick)
					break
				}
				res, err = a.console.Confirm(ctx)
			}
		case review.accept:
			if res.Review.Best == nil {
				err = errors.New("the service offered no alternative to accept")
				break
			}
			res, err = a.console.Confirm(ctx)
		default:
			var s assign.Settlement
			s, err = a.console.Cancel(ctx)
			res = assign.Result{Settled: &s}
		}
		if err != nil {
			// Leave nothing half open before reporting.
			_, _ = a.console.Cancel(ctx)
			return err
		}
	}

	if res.Settled == nil {
		return errors.New("placement did not settle")
	}
	PrintSettlement(os.Stdout, *res.Settled)
	if res.Settled.Outcome == assign.OutcomeFailed {
		return res.Settled.Err
	}
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}
