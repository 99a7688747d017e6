package store

import (
	"fmt"

	"github.com/javiermolinar/examdesk/internal/exam"
)

// removeUnscheduledGroup drops a group from the unscheduled list. The course
// goes with it when it was the last group.
func (s *Snapshot) removeUnscheduledGroup(groupID int64) (exam.CourseGroup, error) {
	for i, c := range s.Unscheduled {
		for j, g := range c.Groups {
			if g.ID != groupID {
				continue
			}
			c.Groups = append(c.Groups[:j:j], c.Groups[j+1:]...)
			if len(c.Groups) == 0 {
				s.Unscheduled = append(s.Unscheduled[:i:i], s.Unscheduled[i+1:]...)
			} else {
				s.Unscheduled[i] = c
			}
			return g, nil
		}
	}
	return exam.CourseGroup{}, fmt.Errorf("%w: group %d is not unscheduled", exam.ErrGroupNotFound, groupID)
}

// insertUnscheduledGroup puts a freed group back, recreating its course.
func (s *Snapshot) insertUnscheduledGroup(g exam.CourseGroup) {
	for i, c := range s.Unscheduled {
		if c.CourseID == g.CourseID {
			c.Groups = append(c.Groups, g)
			sortGroups(c.Groups)
			s.Unscheduled[i] = c
			return
		}
	}
	course := exam.CourseFromGroup(g)
	course.Groups = []exam.CourseGroup{g}
	s.Unscheduled = append(s.Unscheduled, course)
}

// removeExam takes a group out of the grid. A slot left empty is removed
// from its day, and a day left empty is removed from the grid.
func (s *Snapshot) removeExam(groupID int64) (exam.ScheduledExam, error) {
	for di, d := range s.Days {
		for si, se := range d.Slots {
			for ei, e := range se.Exams {
				if e.Group.ID != groupID {
					continue
				}
				se.Exams = append(se.Exams[:ei:ei], se.Exams[ei+1:]...)
				if len(se.Exams) == 0 {
					d.Slots = append(d.Slots[:si:si], d.Slots[si+1:]...)
				} else {
					d.Slots[si] = se
				}
				if len(d.Slots) == 0 {
					s.Days = append(s.Days[:di:di], s.Days[di+1:]...)
				} else {
					s.Days[di] = d
				}
				return e, nil
			}
		}
	}
	return exam.ScheduledExam{}, fmt.Errorf("%w: group %d", exam.ErrExamNotFound, groupID)
}

// insertExam adds an exam under its slot, creating the day and slot entries.
func (s *Snapshot) insertExam(e exam.ScheduledExam) {
	dayKey := e.Slot.DayKey()
	for di, d := range s.Days {
		if d.Date.Format(exam.DateLayout) != dayKey {
			continue
		}
		for si, se := range d.Slots {
			if se.Slot.Name == e.Slot.Name {
				se.Exams = append(se.Exams, e)
				d.Slots[si] = se
				s.Days[di] = d
				return
			}
		}
		d.Slots = append(d.Slots, SlotExams{Slot: s.windowFor(e.Slot), Exams: []exam.ScheduledExam{e}})
		s.Days[di] = d
		return
	}
	s.Days = append(s.Days, Day{
		Date:  e.Slot.Day,
		Slots: []SlotExams{{Slot: s.windowFor(e.Slot), Exams: []exam.ScheduledExam{e}}},
	})
}

func (s *Snapshot) windowFor(ref exam.SlotRef) exam.Slot {
	return s.Window(ref, nil)
}

// setRoom changes the room of a scheduled group in place.
func (s *Snapshot) setRoom(groupID int64, room string) error {
	for di := range s.Days {
		for si := range s.Days[di].Slots {
			exams := s.Days[di].Slots[si].Exams
			for ei := range exams {
				if exams[ei].Group.ID == groupID {
					exams[ei].Room = room
					return nil
				}
			}
		}
	}
	return fmt.Errorf("%w: group %d", exam.ErrExamNotFound, groupID)
}

// place moves a group into target. The group is taken from the unscheduled
// list or from its current slot, whichever holds it.
func (s *Snapshot) place(g exam.CourseGroup, target exam.SlotRef, examID int64, room string) error {
	if _, err := s.removeUnscheduledGroup(g.ID); err != nil {
		old, rerr := s.removeExam(g.ID)
		if rerr != nil {
			return fmt.Errorf("%w: group %d is neither unscheduled nor scheduled", exam.ErrGroupNotFound, g.ID)
		}
		if examID == 0 {
			examID = old.ID
		}
		if room == "" {
			room = old.Room
		}
	}
	s.insertExam(exam.ScheduledExam{ID: examID, Group: g, Slot: target, Room: room})
	s.normalize()
	return nil
}

// unplace is the mirror of place for an unscheduled group.
func (s *Snapshot) unplace(groupID int64) (exam.ScheduledExam, error) {
	e, err := s.removeExam(groupID)
	if err != nil {
		return exam.ScheduledExam{}, err
	}
	s.insertUnscheduledGroup(e.Group)
	s.normalize()
	return e, nil
}
