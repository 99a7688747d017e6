package devserver

import (
	"errors"
	"testing"
	"time"

	"github.com/javiermolinar/examdesk/internal/exam"
)

var (
	day1 = time.Date(2025, 6, 10, 0, 0, 0, 0, time.Local)
	day2 = time.Date(2025, 6, 11, 0, 0, 0, 0, time.Local)
)

var testWindows = map[exam.SlotName][2]string{
	exam.Morning:   {"09:00", "12:00"},
	exam.Afternoon: {"13:00", "16:00"},
	exam.Evening:   {"17:00", "20:00"},
}

func students(ids ...string) []exam.Student {
	out := make([]exam.Student, 0, len(ids))
	for _, id := range ids {
		out = append(out, exam.Student{ID: id})
	}
	return out
}

// newTestState has three single-group courses. Groups 1 and 2 share
// student b; group 2 starts out in the first morning.
func newTestState(t *testing.T) *State {
	t.Helper()
	s := NewState([]time.Time{day2, day1}, testWindows)
	s.AddRoom(Room{Name: "R30", Capacity: 30})
	s.AddRoom(Room{Name: "R5", Capacity: 5})
	s.AddRoom(Room{Name: "R10", Capacity: 10})
	s.AddGroup(exam.CourseGroup{ID: 1, CourseID: 1, GroupName: "A", CourseTitle: "Algebra"}, students("a", "b"))
	s.AddGroup(exam.CourseGroup{ID: 2, CourseID: 2, GroupName: "A", CourseTitle: "Biology"}, students("b", "c"))
	s.AddGroup(exam.CourseGroup{ID: 3, CourseID: 3, GroupName: "A", CourseTitle: "Chemistry"}, students("d"))
	if _, err := s.Place(2, exam.NewSlotRef(day1, exam.Morning), ""); err != nil {
		t.Fatalf("Place: %v", err)
	}
	return s
}

func TestVerifyPlacement_SharedStudents(t *testing.T) {
	s := newTestState(t)
	morning := exam.NewSlotRef(day1, exam.Morning)

	conflicts, all, best, err := s.VerifyPlacement(1, morning)
	if err != nil {
		t.Fatalf("VerifyPlacement: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	c := conflicts[0]
	if c.First.GroupID != 1 || c.Second.GroupID != 2 || c.Second.ExamID == 0 {
		t.Errorf("unexpected conflict pair: %+v", c)
	}
	if len(c.Students) != 1 || c.Students[0].ID != "b" {
		t.Errorf("shared students = %+v, want [b]", c.Students)
	}

	if len(all) != 5 {
		t.Errorf("expected every other slot listed, got %d", len(all))
	}
	for _, sug := range all {
		if sug.SlotRef().Equal(morning) {
			t.Error("requested slot offered as a suggestion")
		}
	}
	if best == nil || !best.SlotRef().Equal(exam.NewSlotRef(day1, exam.Afternoon)) {
		t.Errorf("best = %+v, want first afternoon", best)
	}
}

func TestVerifyPlacement_Clear(t *testing.T) {
	s := newTestState(t)

	conflicts, all, best, err := s.VerifyPlacement(3, exam.NewSlotRef(day1, exam.Morning))
	if err != nil {
		t.Fatalf("VerifyPlacement: %v", err)
	}
	if len(conflicts) != 0 || len(all) != 0 || best != nil {
		t.Errorf("expected a clear verdict, got %v %v %v", conflicts, all, best)
	}
}

func TestVerifyPlacement_Errors(t *testing.T) {
	s := newTestState(t)
	outside := exam.NewSlotRef(day1.AddDate(0, 1, 0), exam.Morning)

	if _, _, _, err := s.VerifyPlacement(99, exam.NewSlotRef(day1, exam.Morning)); !errors.Is(err, ErrUnknownGroup) {
		t.Errorf("unknown group: got %v", err)
	}
	if _, _, _, err := s.VerifyPlacement(1, outside); !errors.Is(err, ErrOutsidePeriod) {
		t.Errorf("outside period: got %v", err)
	}
}

func TestCheckPlacement(t *testing.T) {
	s := newTestState(t)

	tests := []struct {
		name     string
		kind     exam.EntityKind
		courseID int64
		groupID  int64
		want     error
	}{
		{"unscheduled group", exam.KindCourseGroup, 1, 1, nil},
		{"whole course", exam.KindCourse, 1, 1, nil},
		{"move scheduled", exam.KindScheduledGroup, 2, 2, nil},
		{"move unscheduled", exam.KindScheduledGroup, 1, 1, ErrGroupNotPlaced},
		{"place scheduled", exam.KindCourseGroup, 2, 2, ErrGroupPlaced},
		{"wrong course", exam.KindCourseGroup, 3, 1, ErrCourseMismatch},
		{"unknown group", exam.KindCourseGroup, 1, 42, ErrUnknownGroup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.CheckPlacement(tt.kind, tt.courseID, tt.groupID)
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPlace_AssignsRooms(t *testing.T) {
	s := newTestState(t)
	morning := exam.NewSlotRef(day1, exam.Morning)

	placed, err := s.Place(3, morning, "")
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if placed.Room != "R10" {
		t.Errorf("receipt room = %q, want R10", placed.Room)
	}

	byGroup := map[int64]exam.ScheduledExam{}
	for _, e := range s.Scheduled() {
		byGroup[e.Group.ID] = e
	}
	if byGroup[2].Room != "R5" {
		t.Errorf("group 2 room = %q, want smallest room R5", byGroup[2].Room)
	}
	if byGroup[3].Room != "R10" || byGroup[3].ID != placed.ExamID {
		t.Errorf("group 3 = %+v, want R10 and id %d", byGroup[3], placed.ExamID)
	}

	// Moving keeps the exam id.
	moved, err := s.Place(3, exam.NewSlotRef(day2, exam.Evening), "")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.ExamID != placed.ExamID {
		t.Errorf("move changed exam id: %d -> %d", placed.ExamID, moved.ExamID)
	}
}

// A move into a slot where the current room is taken lands elsewhere, and
// the receipt says where.
func TestPlace_ReceiptReportsReassignedRoom(t *testing.T) {
	s := newTestState(t)
	morning := exam.NewSlotRef(day1, exam.Morning)
	if _, err := s.Place(3, exam.NewSlotRef(day2, exam.Morning), "R5"); err != nil {
		t.Fatalf("Place: %v", err)
	}

	// Group 2 already sits in R5 on day1 morning.
	got, err := s.Place(3, morning, "")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if got.Room == "" || got.Room == "R5" {
		t.Fatalf("receipt room = %q, want a free room other than R5", got.Room)
	}
	for _, e := range s.Scheduled() {
		if e.Group.ID == 3 && e.Room != got.Room {
			t.Errorf("scheduled room = %q, receipt says %q", e.Room, got.Room)
		}
	}
}

func TestVerifyRoom(t *testing.T) {
	s := newTestState(t)
	if _, err := s.Place(3, exam.NewSlotRef(day1, exam.Morning), ""); err != nil {
		t.Fatalf("Place: %v", err)
	}

	t.Run("occupied", func(t *testing.T) {
		conflicts, all, best, err := s.VerifyRoom(3, "R5", 0)
		if err != nil {
			t.Fatalf("VerifyRoom: %v", err)
		}
		if len(conflicts) != 1 || conflicts[0].Second.GroupID != 2 {
			t.Errorf("conflicts = %+v", conflicts)
		}
		if len(all) != 1 || all[0].Room != "R30" {
			t.Errorf("suggestions = %+v, want R30 only", all)
		}
		if best == nil || best.Room != "R30" || !best.SlotRef().Equal(exam.NewSlotRef(day1, exam.Morning)) {
			t.Errorf("best = %+v", best)
		}
	})

	t.Run("too small", func(t *testing.T) {
		conflicts, _, _, err := s.VerifyRoom(3, "R5", 12)
		if err != nil {
			t.Fatalf("VerifyRoom: %v", err)
		}
		if len(conflicts) != 2 {
			t.Errorf("expected occupancy and capacity conflicts, got %+v", conflicts)
		}
	})

	t.Run("free", func(t *testing.T) {
		conflicts, _, _, err := s.VerifyRoom(3, "R30", 0)
		if err != nil || len(conflicts) != 0 {
			t.Errorf("expected clear, got %v %v", conflicts, err)
		}
	})

	t.Run("unknown room", func(t *testing.T) {
		if _, _, _, err := s.VerifyRoom(3, "Z9", 0); !errors.Is(err, ErrUnknownRoom) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("unscheduled group", func(t *testing.T) {
		if _, _, _, err := s.VerifyRoom(1, "R30", 0); !errors.Is(err, ErrGroupNotPlaced) {
			t.Errorf("got %v", err)
		}
	})
}

func TestSetRoomAndSplit(t *testing.T) {
	s := newTestState(t)

	if err := s.SplitStudents(2, "R30", []string{"c"}); err != nil {
		t.Fatalf("SplitStudents: %v", err)
	}
	if got := s.Split(2, "R30"); len(got) != 1 || got[0] != "c" {
		t.Errorf("split = %v", got)
	}

	if err := s.SetRoom(2, "R10"); err != nil {
		t.Fatalf("SetRoom: %v", err)
	}
	if got := s.Split(2, "R30"); got != nil {
		t.Errorf("whole-group move should clear splits, got %v", got)
	}
	if err := s.SetRoom(1, "R10"); !errors.Is(err, ErrGroupNotPlaced) {
		t.Errorf("SetRoom on unscheduled group: got %v", err)
	}
}

func TestUnscheduledAndRemove(t *testing.T) {
	s := newTestState(t)

	courses := s.Unscheduled()
	if len(courses) != 2 || courses[0].CourseID != 1 || courses[1].CourseID != 3 {
		t.Fatalf("unexpected unscheduled courses: %+v", courses)
	}
	if courses[0].Title != "Algebra" || courses[0].Groups[0].StudentCount != 2 {
		t.Errorf("unexpected course shell: %+v", courses[0])
	}

	if err := s.Remove(2); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(s.Scheduled()) != 0 || len(s.Unscheduled()) != 3 {
		t.Error("removed group should return to the unscheduled list")
	}
	if err := s.Remove(2); !errors.Is(err, ErrGroupNotPlaced) {
		t.Errorf("second remove: got %v", err)
	}
}

func TestSlots(t *testing.T) {
	s := newTestState(t)
	evening := exam.NewSlotRef(day2, exam.Evening)

	if err := s.SetSlotTime(exam.Slot{SlotRef: evening, Start: "18:00", End: "17:00"}); err == nil {
		t.Error("expected end-before-start to be rejected")
	}
	if err := s.SetSlotTime(exam.Slot{SlotRef: evening, Start: "18:00", End: "21:00"}); err != nil {
		t.Fatalf("SetSlotTime: %v", err)
	}

	slots := s.Slots()
	if len(slots) != 6 {
		t.Fatalf("expected 6 slots, got %d", len(slots))
	}
	if !slots[0].SlotRef.Equal(exam.NewSlotRef(day1, exam.Morning)) || slots[0].Start != "09:00" {
		t.Errorf("first slot = %+v", slots[0])
	}
	last := slots[5]
	if !last.SlotRef.Equal(evening) || last.Start != "18:00" || last.End != "21:00" {
		t.Errorf("override not applied: %+v", last)
	}
}

func TestSeed(t *testing.T) {
	s := Seed(day1, 5, testWindows)

	if got := len(s.Slots()); got != 15 {
		t.Errorf("expected 15 slots over 5 weekdays, got %d", got)
	}
	scheduled := s.Scheduled()
	if len(scheduled) != 3 {
		t.Fatalf("expected 3 seeded exams, got %d", len(scheduled))
	}
	for _, e := range scheduled {
		if e.Room == "" {
			t.Errorf("seeded exam %d has no room", e.ID)
		}
	}
	if len(s.Unscheduled()) == 0 {
		t.Error("expected unscheduled courses in the seed")
	}
}
