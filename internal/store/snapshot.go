// Package store holds the client view of the exam schedule.
//
// A Snapshot is immutable once published. Mutations clone the current
// snapshot, change the clone and swap it in, so a reader holding an older
// snapshot never observes a partial move.
package store

import (
	"sort"
	"time"

	"github.com/javiermolinar/examdesk/internal/exam"
)

// SlotExams is one slot of a day together with the exams placed in it.
type SlotExams struct {
	Slot  exam.Slot
	Exams []exam.ScheduledExam
}

// Day groups the occupied slots of one date.
type Day struct {
	Date  time.Time
	Slots []SlotExams
}

// Snapshot is the scheduled/unscheduled partition at one point in time.
type Snapshot struct {
	Unscheduled []exam.UnscheduledCourse
	Days        []Day
	// Windows holds start/end times per slot, independent of occupancy.
	Windows []exam.Slot
}

// Course returns the unscheduled course with the given id.
func (s *Snapshot) Course(courseID int64) (exam.UnscheduledCourse, bool) {
	if s == nil {
		return exam.UnscheduledCourse{}, false
	}
	for _, c := range s.Unscheduled {
		if c.CourseID == courseID {
			return c, true
		}
	}
	return exam.UnscheduledCourse{}, false
}

// UnscheduledGroup finds an unscheduled group by id.
func (s *Snapshot) UnscheduledGroup(groupID int64) (exam.CourseGroup, bool) {
	if s == nil {
		return exam.CourseGroup{}, false
	}
	for _, c := range s.Unscheduled {
		for _, g := range c.Groups {
			if g.ID == groupID {
				return g, true
			}
		}
	}
	return exam.CourseGroup{}, false
}

// ExamByGroup finds the scheduled exam for a group.
func (s *Snapshot) ExamByGroup(groupID int64) (exam.ScheduledExam, bool) {
	if s == nil {
		return exam.ScheduledExam{}, false
	}
	for _, d := range s.Days {
		for _, se := range d.Slots {
			for _, e := range se.Exams {
				if e.Group.ID == groupID {
					return e, true
				}
			}
		}
	}
	return exam.ScheduledExam{}, false
}

// ExamsIn returns the exams placed in a slot.
func (s *Snapshot) ExamsIn(ref exam.SlotRef) []exam.ScheduledExam {
	if s == nil {
		return nil
	}
	for _, d := range s.Days {
		if d.Date.Format(exam.DateLayout) != ref.DayKey() {
			continue
		}
		for _, se := range d.Slots {
			if se.Slot.Name == ref.Name {
				return se.Exams
			}
		}
	}
	return nil
}

// AllExams returns every scheduled exam in canonical order.
func (s *Snapshot) AllExams() []exam.ScheduledExam {
	if s == nil {
		return nil
	}
	var out []exam.ScheduledExam
	for _, d := range s.Days {
		for _, se := range d.Slots {
			out = append(out, se.Exams...)
		}
	}
	return out
}

// Window returns the start/end times for a slot. Unknown slots get the
// fallback times for their slot name.
func (s *Snapshot) Window(ref exam.SlotRef, fallback map[exam.SlotName][2]string) exam.Slot {
	if s != nil {
		for _, w := range s.Windows {
			if w.Key() == ref.Key() {
				return w
			}
		}
	}
	slot := exam.Slot{SlotRef: ref}
	if f, ok := fallback[ref.Name]; ok {
		slot.Start, slot.End = f[0], f[1]
	}
	return slot
}

// GroupCount returns the number of unscheduled groups.
func (s *Snapshot) GroupCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, c := range s.Unscheduled {
		n += len(c.Groups)
	}
	return n
}

// PeriodDays returns every day of the exam period in order. A day belongs
// to the period when it has a slot window or a scheduled exam.
func (s *Snapshot) PeriodDays() []time.Time {
	if s == nil {
		return nil
	}
	seen := make(map[string]time.Time)
	for _, w := range s.Windows {
		seen[w.DayKey()] = w.Day
	}
	for _, d := range s.Days {
		key := d.Date.Format(exam.DateLayout)
		if _, ok := seen[key]; !ok {
			seen[key] = d.Date
		}
	}
	days := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// clone deep-copies the snapshot.
func (s *Snapshot) clone() *Snapshot {
	if s == nil {
		return &Snapshot{}
	}
	out := &Snapshot{}
	if s.Unscheduled != nil {
		out.Unscheduled = make([]exam.UnscheduledCourse, len(s.Unscheduled))
		for i, c := range s.Unscheduled {
			c.Groups = append([]exam.CourseGroup(nil), c.Groups...)
			out.Unscheduled[i] = c
		}
	}
	if s.Days != nil {
		out.Days = make([]Day, len(s.Days))
		for i, d := range s.Days {
			slots := make([]SlotExams, len(d.Slots))
			for j, se := range d.Slots {
				slots[j] = SlotExams{Slot: se.Slot, Exams: append([]exam.ScheduledExam(nil), se.Exams...)}
			}
			out.Days[i] = Day{Date: d.Date, Slots: slots}
		}
	}
	if s.Windows != nil {
		out.Windows = append([]exam.Slot(nil), s.Windows...)
	}
	return out
}

// normalize puts the snapshot into canonical order.
func (s *Snapshot) normalize() {
	sort.SliceStable(s.Unscheduled, func(i, j int) bool {
		return s.Unscheduled[i].CourseID < s.Unscheduled[j].CourseID
	})
	for i := range s.Unscheduled {
		sortGroups(s.Unscheduled[i].Groups)
	}
	sort.SliceStable(s.Days, func(i, j int) bool {
		return s.Days[i].Date.Format(exam.DateLayout) < s.Days[j].Date.Format(exam.DateLayout)
	})
	for i := range s.Days {
		slots := s.Days[i].Slots
		sort.SliceStable(slots, func(a, b int) bool {
			return slots[a].Slot.Name.Index() < slots[b].Slot.Name.Index()
		})
		for j := range slots {
			exams := slots[j].Exams
			sort.SliceStable(exams, func(a, b int) bool { return exams[a].Group.ID < exams[b].Group.ID })
		}
	}
	sort.SliceStable(s.Windows, func(i, j int) bool { return s.Windows[i].Before(s.Windows[j].SlotRef) })

	// Empty collections are stored as nil so equal states compare equal.
	if len(s.Unscheduled) == 0 {
		s.Unscheduled = nil
	}
	if len(s.Days) == 0 {
		s.Days = nil
	}
	if len(s.Windows) == 0 {
		s.Windows = nil
	}
}

func sortGroups(groups []exam.CourseGroup) {
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
}

// FromCollections builds a canonical snapshot from fetched collections.
// Scheduled exams are grouped by day and slot name.
func FromCollections(unscheduled []exam.UnscheduledCourse, scheduled []exam.ScheduledExam, windows []exam.Slot) *Snapshot {
	s := &Snapshot{Windows: append([]exam.Slot(nil), windows...)}
	for _, c := range unscheduled {
		if len(c.Groups) == 0 {
			continue
		}
		c.Groups = append([]exam.CourseGroup(nil), c.Groups...)
		s.Unscheduled = append(s.Unscheduled, c)
	}
	for _, e := range scheduled {
		s.insertExam(e)
	}
	s.normalize()
	return s
}
