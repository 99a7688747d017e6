package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/javiermolinar/examdesk/internal/assign"
	"github.com/javiermolinar/examdesk/internal/db"
	"github.com/javiermolinar/examdesk/internal/exam"
	"github.com/javiermolinar/examdesk/internal/llm"
	"github.com/javiermolinar/examdesk/internal/store"
)

// Stats holds aggregated statistics for a schedule.
type Stats struct {
	Exams       int
	Unscheduled int
	Students    int
	DayExams    map[string]int
}

// Total returns the number of groups, placed or not.
func (s Stats) Total() int {
	return s.Exams + s.Unscheduled
}

// PlacedPercent returns the share of groups with an exam.
func (s Stats) PlacedPercent() int {
	if s.Total() == 0 {
		return 0
	}
	return (s.Exams * 100) / s.Total()
}

// BusiestDay returns the day key with the most exams.
func (s Stats) BusiestDay() (day string, exams int) {
	keys := make([]string, 0, len(s.DayExams))
	for k := range s.DayExams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s.DayExams[k] > exams {
			day, exams = k, s.DayExams[k]
		}
	}
	return day, exams
}

// ComputeStats summarises snap.
func ComputeStats(snap *store.Snapshot) Stats {
	stats := Stats{DayExams: make(map[string]int), Unscheduled: snap.GroupCount()}
	for _, e := range snap.AllExams() {
		stats.Exams++
		stats.Students += e.Group.StudentCount
		stats.DayExams[e.Slot.DayKey()]++
	}
	return stats
}

// PrintOpts configures schedule printing.
type PrintOpts struct {
	Verbose       bool // Show full labels
	ShowStudents  bool // Show the head count column
	MaxLabelWidth int  // Maximum label width (0 = auto)
}

// CalcMaxLabelWidth calculates the maximum label width based on options.
func (o PrintOpts) CalcMaxLabelWidth(defaultWidth int) int {
	if o.MaxLabelWidth > 0 {
		return o.MaxLabelWidth
	}
	if !o.Verbose {
		return defaultWidth
	}
	// "    #12345  " prefix, "  room" and "  NNN students" suffixes
	overhead := 40
	if available := termWidth() - overhead; available > defaultWidth {
		return available
	}
	return defaultWidth
}

func truncate(s string, width int) string {
	if width <= 3 || len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}

// PrintDay prints the slots of one day and the exams placed in each.
func PrintDay(w io.Writer, snap *store.Snapshot, day time.Time, windows map[exam.SlotName][2]string, opts PrintOpts) {
	fmt.Fprintf(w, "=== %s ===\n", formatHeader(day.Format("Monday, January 2, 2006")))
	width := opts.CalcMaxLabelWidth(32)
	for _, name := range exam.SlotNames {
		ref := exam.NewSlotRef(day, name)
		win := snap.Window(ref, windows)
		exams := snap.ExamsIn(ref)
		fmt.Fprintf(w, "  %-9s %s-%s  %s\n", name, win.Start, win.End, formatMuted(plural(len(exams), "exam")))
		for _, e := range exams {
			PrintExamRow(w, e, opts, width)
		}
	}
}

// PrintExamRow prints a single scheduled exam.
func PrintExamRow(w io.Writer, e exam.ScheduledExam, opts PrintOpts, width int) {
	room := e.Room
	if room == "" {
		room = "-"
	}
	line := fmt.Sprintf("    #%-6d %s  %s", e.ID, formatExam(fmt.Sprintf("%-*s", width, truncate(e.Group.Label(), width))), room)
	if opts.ShowStudents {
		line += "  " + formatMuted(plural(e.Group.StudentCount, "student"))
	}
	fmt.Fprintln(w, line)
}

// PrintUnscheduled prints the courses still waiting for a slot.
func PrintUnscheduled(w io.Writer, courses []exam.UnscheduledCourse) {
	if len(courses) == 0 {
		fmt.Fprintln(w, "Every group has an exam.")
		return
	}
	for _, c := range courses {
		fmt.Fprintf(w, "%s %s %s\n", formatHeader(c.Title), formatMuted(fmt.Sprintf("course %d", c.CourseID)), formatMuted(plural(c.StudentCount(), "student")))
		for _, g := range c.Groups {
			fmt.Fprintf(w, "  group %-6d %-6s %s\n", g.ID, g.GroupName, plural(g.StudentCount, "student"))
		}
	}
}

// PrintStats prints the stats summary line.
func PrintStats(w io.Writer, stats Stats) {
	fmt.Fprintf(w, "Exams: %d | Unscheduled groups: %d | Students seated: %d\n",
		stats.Exams, stats.Unscheduled, stats.Students)
	if day, n := stats.BusiestDay(); n > 0 {
		fmt.Fprintf(w, "Busiest day: %s (%s)\n", day, plural(n, "exam"))
	}
	fmt.Fprintf(w, "Placed: %s\n", ProgressBar(stats.Exams, stats.Total(), 20))
}

// ProgressBar creates an ASCII bar showing the share of placed groups.
func ProgressBar(placed, total, width int) string {
	if total == 0 {
		return "[" + strings.Repeat("░", width) + "] (0%)"
	}
	filled := (placed * width) / total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %s", formatExam(bar), formatSuggestion(fmt.Sprintf("(%d%%)", placed*100/total)))
}

// PrintReview prints the conflicts and alternatives of an open review.
func PrintReview(w io.Writer, subject string, r *assign.Review) {
	fmt.Fprintf(w, "%s %s on %s\n", formatConflict("Conflict:"), subject, r.Original)
	for _, line := range strings.Split(strings.TrimRight(llm.FormatConflicts(r.Conflicts), "\n"), "\n") {
		if line != "" {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	if len(r.Suggestions) == 0 {
		fmt.Fprintln(w, formatMuted("No alternatives offered."))
		return
	}
	fmt.Fprintln(w, "Alternatives:")
	for i, s := range r.Suggestions {
		text := s.SlotRef().String()
		if s.Room != "" {
			text += " room " + s.Room
		}
		if r.Best != nil && r.Best.SlotRef().Equal(s.SlotRef()) && r.Best.Room == s.Room {
			text += " (best)"
		}
		if s.Reason != "" {
			text += ": " + s.Reason
		}
		if s.Suggested {
			text = formatSuggestion(text)
		} else {
			text = formatMuted(text)
		}
		fmt.Fprintf(w, "  %d. %s\n", i+1, text)
	}
}

// PrintSettlement prints how a flow ended.
func PrintSettlement(w io.Writer, s assign.Settlement) {
	e := s.Proposal.Entity
	switch {
	case s.Outcome == assign.OutcomeCommitted && e.Kind.IsRoomChange():
		fmt.Fprintf(w, "Moved %s to room %s\n", e.Label(), e.Room)
	case s.Outcome == assign.OutcomeCommitted:
		fmt.Fprintf(w, "Placed %s on %s (exam #%d)\n", e.Label(), s.Target, s.ExamID)
	case s.Err != nil:
		fmt.Fprintf(w, "%s %s: %v\n", formatConflict(s.Outcome.String()+":"), e.Label(), s.Err)
	default:
		fmt.Fprintf(w, "%s %s\n", formatMuted(s.Outcome.String()+":"), e.Label())
	}
}

// PrintHistory prints journal entries, newest first.
func PrintHistory(w io.Writer, entries []db.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No placements recorded yet.")
		return
	}
	for _, e := range entries {
		target := "-"
		if !e.Target.IsZero() {
			target = e.Target.String()
		}
		outcome := e.Outcome
		if e.Error != "" {
			outcome = formatConflict(outcome)
		} else {
			outcome = formatSuggestion(outcome)
		}
		fmt.Fprintf(w, "%s  %-10s %-14s %-28s %s", formatMuted(e.RecordedAt.Format("2006-01-02 15:04")), outcome, e.Kind, truncate(e.Label, 28), target)
		if e.ExamID != 0 {
			fmt.Fprintf(w, " #%d", e.ExamID)
		}
		if e.Room != "" {
			fmt.Fprintf(w, " room %s", e.Room)
		}
		if e.Error != "" {
			fmt.Fprintf(w, "  %s", formatMuted(e.Error))
		}
		fmt.Fprintln(w)
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
