package tui

import (
	"time"

	"github.com/javiermolinar/examdesk/internal/exam"
	"github.com/javiermolinar/examdesk/internal/store"
)

// Position is a cursor position in the grid.
type Position struct {
	Day  int // index into the period days
	Slot int // index into exam.SlotNames
	Item int // exam within the slot
}

// listRow is one line of the unscheduled list: a course header, or one of
// its groups when Group is set.
type listRow struct {
	Course exam.UnscheduledCourse
	Group  *exam.CourseGroup
}

// listRows flattens courses into header and group rows.
func listRows(courses []exam.UnscheduledCourse) []listRow {
	rows := make([]listRow, 0, len(courses)*2)
	for _, c := range courses {
		rows = append(rows, listRow{Course: c})
		for i := range c.Groups {
			g := c.Groups[i]
			rows = append(rows, listRow{Course: c, Group: &g})
		}
	}
	return rows
}

// periodDays returns the days shown as grid columns.
func periodDays(snap *store.Snapshot) []time.Time {
	return snap.PeriodDays()
}

// refAt returns the slot under pos.
func refAt(days []time.Time, pos Position) (exam.SlotRef, bool) {
	if pos.Day < 0 || pos.Day >= len(days) || pos.Slot < 0 || pos.Slot >= len(exam.SlotNames) {
		return exam.SlotRef{}, false
	}
	return exam.NewSlotRef(days[pos.Day], exam.SlotNames[pos.Slot]), true
}

// positionOf returns the grid position of ref, if it is inside the period.
func positionOf(days []time.Time, ref exam.SlotRef) (Position, bool) {
	for i, d := range days {
		if d.Format(exam.DateLayout) == ref.DayKey() {
			return Position{Day: i, Slot: ref.Name.Index()}, true
		}
	}
	return Position{}, false
}

// examAt returns the exam under pos.
func examAt(snap *store.Snapshot, days []time.Time, pos Position) (exam.ScheduledExam, bool) {
	ref, ok := refAt(days, pos)
	if !ok {
		return exam.ScheduledExam{}, false
	}
	exams := snap.ExamsIn(ref)
	if pos.Item < 0 || pos.Item >= len(exams) {
		return exam.ScheduledExam{}, false
	}
	return exams[pos.Item], true
}

// cellLen returns the number of exams in the slot under pos.
func cellLen(snap *store.Snapshot, days []time.Time, pos Position) int {
	ref, ok := refAt(days, pos)
	if !ok {
		return 0
	}
	return len(snap.ExamsIn(ref))
}

// moveDown walks the exams of the current slot before stepping to the next slot.
func moveDown(snap *store.Snapshot, days []time.Time, pos Position) Position {
	if pos.Item < cellLen(snap, days, pos)-1 {
		pos.Item++
		return pos
	}
	if pos.Slot < len(exam.SlotNames)-1 {
		pos.Slot++
		pos.Item = 0
	}
	return pos
}

// moveUp is the reverse of moveDown, landing on the last exam of the previous slot.
func moveUp(snap *store.Snapshot, days []time.Time, pos Position) Position {
	if pos.Item > 0 {
		pos.Item--
		return pos
	}
	if pos.Slot > 0 {
		pos.Slot--
		pos.Item = max(0, cellLen(snap, days, pos)-1)
	}
	return pos
}

// moveDay steps delta days, keeping the slot and resetting the item.
func moveDay(days []time.Time, pos Position, delta int) Position {
	pos.Day = clamp(pos.Day+delta, 0, len(days)-1)
	pos.Item = 0
	return pos
}

// clampPosition keeps pos inside the grid after the schedule changed.
func clampPosition(snap *store.Snapshot, days []time.Time, pos Position) Position {
	pos.Day = clamp(pos.Day, 0, len(days)-1)
	pos.Slot = clamp(pos.Slot, 0, len(exam.SlotNames)-1)
	pos.Item = clamp(pos.Item, 0, cellLen(snap, days, pos)-1)
	return pos
}

// gridColumns returns how many day columns fit in width and how wide each is.
func gridColumns(width, days int) (visible, colWidth int) {
	if days <= 0 {
		return 0, defaultColWidth
	}
	if width <= 0 {
		return min(days, 5), defaultColWidth
	}
	avail := width - listWidth - slotLabelWidth - 4
	visible = clamp(avail/minColWidth, 1, days)
	colWidth = avail / visible
	if colWidth > defaultColWidth*2 {
		colWidth = defaultColWidth * 2
	}
	if colWidth < minColWidth {
		colWidth = minColWidth
	}
	return visible, colWidth
}

// scrollFor returns the first visible day so that cursor stays on screen.
func scrollFor(offset, cursor, visible int) int {
	if visible <= 0 {
		return 0
	}
	if cursor < offset {
		return cursor
	}
	if cursor >= offset+visible {
		return cursor - visible + 1
	}
	return offset
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
