package devserver

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/javiermolinar/examdesk/internal/exam"
)

// State errors.
var (
	ErrUnknownGroup   = errors.New("unknown course group")
	ErrGroupPlaced    = errors.New("group is already scheduled")
	ErrGroupNotPlaced = errors.New("group is not scheduled")
	ErrUnknownRoom    = errors.New("unknown room")
	ErrOutsidePeriod  = errors.New("day is outside the exam period")
	ErrCourseMismatch = errors.New("group does not belong to course")
)

// Room is an exam hall.
type Room struct {
	Name     string
	Capacity int
}

type placement struct {
	examID int64
	slot   exam.SlotRef
	room   string
}

// State is the in-memory schedule served by the development server.
type State struct {
	mu sync.Mutex

	days     []time.Time
	defaults map[exam.SlotName][2]string
	windows  map[string]exam.Slot // explicit slot times by slot key

	groups     map[int64]exam.CourseGroup
	students   map[int64][]exam.Student // enrolment by group
	rooms      []Room
	placements map[int64]placement // by group id
	splits     map[int64]map[string][]string
	nextExamID int64
}

// NewState creates an empty schedule for the given exam days.
func NewState(days []time.Time, defaults map[exam.SlotName][2]string) *State {
	normalized := make([]time.Time, 0, len(days))
	for _, d := range days {
		normalized = append(normalized, exam.NewSlotRef(d, exam.Morning).Day)
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i].Before(normalized[j]) })
	return &State{
		days:       normalized,
		defaults:   defaults,
		windows:    map[string]exam.Slot{},
		groups:     map[int64]exam.CourseGroup{},
		students:   map[int64][]exam.Student{},
		placements: map[int64]placement{},
		splits:     map[int64]map[string][]string{},
		nextExamID: 1000,
	}
}

// AddGroup registers a group and its enrolled students.
func (s *State) AddGroup(g exam.CourseGroup, students []exam.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.StudentCount == 0 {
		g.StudentCount = len(students)
	}
	s.groups[g.ID] = g
	s.students[g.ID] = students
}

// AddRoom registers an exam hall.
func (s *State) AddRoom(r Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = append(s.rooms, r)
	sort.Slice(s.rooms, func(i, j int) bool { return s.rooms[i].Capacity < s.rooms[j].Capacity })
}

// Place schedules a group directly, bypassing verification. The receipt
// carries the room the group ended up in, which differs from room when
// that one is taken.
func (s *State) Place(groupID int64, slot exam.SlotRef, room string) (exam.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.place(groupID, slot, room)
}

func (s *State) place(groupID int64, slot exam.SlotRef, room string) (exam.Receipt, error) {
	if _, ok := s.groups[groupID]; !ok {
		return exam.Receipt{}, fmt.Errorf("%w: %d", ErrUnknownGroup, groupID)
	}
	if !s.inPeriod(slot) {
		return exam.Receipt{}, fmt.Errorf("%w: %s", ErrOutsidePeriod, slot.DayKey())
	}
	p, ok := s.placements[groupID]
	if !ok {
		s.nextExamID++
		p.examID = s.nextExamID
	}
	p.slot = slot
	if room != "" {
		p.room = room
	}
	if _, taken := s.roomOccupant(p.room, slot, groupID); p.room == "" || taken {
		p.room = s.freeRoom(slot, s.groups[groupID].StudentCount, groupID)
		delete(s.splits, groupID)
	}
	s.placements[groupID] = p
	return exam.Receipt{ExamID: p.examID, Room: p.room}, nil
}

func (s *State) inPeriod(ref exam.SlotRef) bool {
	if !ref.Name.Valid() {
		return false
	}
	for _, d := range s.days {
		if d.Format(exam.DateLayout) == ref.DayKey() {
			return true
		}
	}
	return false
}

func (s *State) ref(groupID int64) exam.ExamRef {
	g := s.groups[groupID]
	return exam.ExamRef{
		ExamID:   s.placements[groupID].examID,
		GroupID:  g.ID,
		CourseID: g.CourseID,
		Title:    g.Label(),
	}
}

// sharedStudents returns the students enrolled in both groups.
func (s *State) sharedStudents(a, b int64) []exam.Student {
	in := make(map[string]bool, len(s.students[a]))
	for _, st := range s.students[a] {
		in[st.ID] = true
	}
	var shared []exam.Student
	for _, st := range s.students[b] {
		if in[st.ID] {
			shared = append(shared, st)
		}
	}
	return shared
}

// conflictsAt lists exams at slot sharing students with groupID.
func (s *State) conflictsAt(groupID int64, slot exam.SlotRef) []exam.ConflictRecord {
	var out []exam.ConflictRecord
	for _, other := range s.sortedPlacedGroups() {
		if other == groupID || !s.placements[other].slot.Equal(slot) {
			continue
		}
		if shared := s.sharedStudents(groupID, other); len(shared) > 0 {
			out = append(out, exam.ConflictRecord{
				First:    s.ref(groupID),
				Second:   s.ref(other),
				Students: shared,
			})
		}
	}
	return out
}

func (s *State) sortedPlacedGroups() []int64 {
	ids := make([]int64, 0, len(s.placements))
	for id := range s.placements {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// slotSuggestions ranks every slot in the period by the number of clashing
// students. Clash-free slots are offered; the rest are listed for context.
func (s *State) slotSuggestions(groupID int64, requested exam.SlotRef) ([]exam.Suggestion, *exam.Suggestion) {
	type ranked struct {
		s       exam.Suggestion
		clashes int
	}
	var all []ranked
	for _, d := range s.days {
		for _, name := range exam.SlotNames {
			ref := exam.NewSlotRef(d, name)
			if ref.Equal(requested) {
				continue
			}
			clashes := 0
			for _, c := range s.conflictsAt(groupID, ref) {
				clashes += len(c.Students)
			}
			sug := exam.Suggestion{Date: ref.Day, SlotName: name, Suggested: clashes == 0}
			if clashes == 0 {
				sug.Reason = "no shared students"
			} else {
				sug.Reason = fmt.Sprintf("%d shared students", clashes)
			}
			all = append(all, ranked{s: sug, clashes: clashes})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].clashes < all[j].clashes })

	out := make([]exam.Suggestion, 0, len(all))
	for _, r := range all {
		out = append(out, r.s)
	}
	if len(out) > 0 && out[0].Suggested {
		best := out[0]
		return out, &best
	}
	return out, nil
}

// VerifyPlacement checks placing groupID at slot.
func (s *State) VerifyPlacement(groupID int64, slot exam.SlotRef) ([]exam.ConflictRecord, []exam.Suggestion, *exam.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return nil, nil, nil, fmt.Errorf("%w: %d", ErrUnknownGroup, groupID)
	}
	if !s.inPeriod(slot) {
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrOutsidePeriod, slot.DayKey())
	}
	conflicts := s.conflictsAt(groupID, slot)
	if len(conflicts) == 0 {
		return nil, nil, nil, nil
	}
	all, best := s.slotSuggestions(groupID, slot)
	return conflicts, all, best, nil
}

// CheckPlacement validates the kind-specific preconditions of a placement.
func (s *State) CheckPlacement(kind exam.EntityKind, courseID, groupID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownGroup, groupID)
	}
	if courseID != 0 && g.CourseID != courseID {
		return fmt.Errorf("%w: group %d, course %d", ErrCourseMismatch, groupID, courseID)
	}
	_, placed := s.placements[groupID]
	switch kind {
	case exam.KindScheduledGroup:
		if !placed {
			return fmt.Errorf("%w: %d", ErrGroupNotPlaced, groupID)
		}
	case exam.KindCourse, exam.KindCourseGroup:
		if placed {
			return fmt.Errorf("%w: %d", ErrGroupPlaced, groupID)
		}
	default:
		return fmt.Errorf("unsupported placement kind %q", kind)
	}
	return nil
}

// Remove unschedules a group.
func (s *State) Remove(groupID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.placements[groupID]; !ok {
		return fmt.Errorf("%w: %d", ErrGroupNotPlaced, groupID)
	}
	delete(s.placements, groupID)
	delete(s.splits, groupID)
	return nil
}

// SetSlotTime overrides the window of one slot.
func (s *State) SetSlotTime(slot exam.Slot) error {
	if err := slot.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inPeriod(slot.SlotRef) {
		return fmt.Errorf("%w: %s", ErrOutsidePeriod, slot.DayKey())
	}
	s.windows[slot.Key()] = slot
	return nil
}

func (s *State) room(name string) (Room, bool) {
	for _, r := range s.rooms {
		if r.Name == name {
			return r, true
		}
	}
	return Room{}, false
}

func (s *State) roomOccupant(room string, slot exam.SlotRef, except int64) (int64, bool) {
	for _, id := range s.sortedPlacedGroups() {
		p := s.placements[id]
		if id != except && p.room == room && p.slot.Equal(slot) {
			return id, true
		}
	}
	return 0, false
}

// freeRoom picks the smallest unoccupied room seating headcount, or "" if none.
func (s *State) freeRoom(slot exam.SlotRef, headcount int, except int64) string {
	for _, r := range s.rooms {
		if r.Capacity < headcount {
			continue
		}
		if _, taken := s.roomOccupant(r.Name, slot, except); !taken {
			return r.Name
		}
	}
	return ""
}

// VerifyRoom checks moving headcount students of groupID into room.
func (s *State) VerifyRoom(groupID int64, room string, headcount int) ([]exam.ConflictRecord, []exam.Suggestion, *exam.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.placements[groupID]
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: %d", ErrGroupNotPlaced, groupID)
	}
	r, ok := s.room(room)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrUnknownRoom, room)
	}
	if headcount == 0 {
		headcount = s.groups[groupID].StudentCount
	}

	var conflicts []exam.ConflictRecord
	if occupant, taken := s.roomOccupant(room, p.slot, groupID); taken {
		conflicts = append(conflicts, exam.ConflictRecord{First: s.ref(groupID), Second: s.ref(occupant)})
	}
	if r.Capacity < headcount {
		conflicts = append(conflicts, exam.ConflictRecord{First: s.ref(groupID), Second: exam.ExamRef{Title: fmt.Sprintf("%s seats %d", r.Name, r.Capacity)}})
	}
	if len(conflicts) == 0 {
		return nil, nil, nil, nil
	}

	var all []exam.Suggestion
	var best *exam.Suggestion
	for _, candidate := range s.rooms {
		if candidate.Name == room || candidate.Name == p.room {
			continue
		}
		_, taken := s.roomOccupant(candidate.Name, p.slot, groupID)
		fits := candidate.Capacity >= headcount
		sug := exam.Suggestion{
			Date:      p.slot.Day,
			SlotName:  p.slot.Name,
			Room:      candidate.Name,
			Suggested: fits && !taken,
		}
		switch {
		case taken:
			sug.Reason = "occupied"
		case !fits:
			sug.Reason = fmt.Sprintf("seats %d", candidate.Capacity)
		default:
			sug.Reason = fmt.Sprintf("free, seats %d", candidate.Capacity)
		}
		all = append(all, sug)
		if sug.Suggested && best == nil {
			b := sug
			best = &b
		}
	}
	return conflicts, all, best, nil
}

// SetRoom moves a whole group into room.
func (s *State) SetRoom(groupID int64, room string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.placements[groupID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrGroupNotPlaced, groupID)
	}
	if _, ok := s.room(room); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRoom, room)
	}
	p.room = room
	s.placements[groupID] = p
	delete(s.splits, groupID)
	return nil
}

// SplitStudents seats some students of a group in a second room.
func (s *State) SplitStudents(groupID int64, room string, studentIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.placements[groupID]; !ok {
		return fmt.Errorf("%w: %d", ErrGroupNotPlaced, groupID)
	}
	if _, ok := s.room(room); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRoom, room)
	}
	if s.splits[groupID] == nil {
		s.splits[groupID] = map[string][]string{}
	}
	s.splits[groupID][room] = append([]string(nil), studentIDs...)
	return nil
}

// Split returns the students of groupID seated in room.
func (s *State) Split(groupID int64, room string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.splits[groupID][room]
}

// Unscheduled returns courses with groups not yet placed.
func (s *State) Unscheduled() []exam.UnscheduledCourse {
	s.mu.Lock()
	defer s.mu.Unlock()
	byCourse := map[int64]*exam.UnscheduledCourse{}
	var order []int64
	for _, g := range s.groups {
		if _, placed := s.placements[g.ID]; placed {
			continue
		}
		c, ok := byCourse[g.CourseID]
		if !ok {
			shell := exam.CourseFromGroup(g)
			c = &shell
			byCourse[g.CourseID] = c
			order = append(order, g.CourseID)
		}
		c.Groups = append(c.Groups, g)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]exam.UnscheduledCourse, 0, len(order))
	for _, id := range order {
		c := byCourse[id]
		sort.Slice(c.Groups, func(i, j int) bool { return c.Groups[i].ID < c.Groups[j].ID })
		out = append(out, *c)
	}
	return out
}

// Scheduled returns every placed exam ordered by slot and group.
func (s *State) Scheduled() []exam.ScheduledExam {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]exam.ScheduledExam, 0, len(s.placements))
	for _, id := range s.sortedPlacedGroups() {
		p := s.placements[id]
		out = append(out, exam.ScheduledExam{ID: p.examID, Group: s.groups[id], Slot: p.slot, Room: p.room})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Slot.Before(out[j].Slot) })
	return out
}

// Slots returns the window of every slot in the period.
func (s *State) Slots() []exam.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]exam.Slot, 0, len(s.days)*len(exam.SlotNames))
	for _, d := range s.days {
		for _, name := range exam.SlotNames {
			ref := exam.NewSlotRef(d, name)
			if w, ok := s.windows[ref.Key()]; ok {
				out = append(out, w)
				continue
			}
			times := s.defaults[name]
			out = append(out, exam.Slot{SlotRef: ref, Start: times[0], End: times[1]})
		}
	}
	return out
}
