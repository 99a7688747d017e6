package assign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/javiermolinar/examdesk/internal/exam"
	"github.com/javiermolinar/examdesk/internal/store"
)

var testDay = time.Date(2025, 6, 10, 0, 0, 0, 0, time.Local)

const testDayKey = "2025-06-10"

var errService = errors.New("service unavailable")

func group(id, courseID int64, name string) exam.CourseGroup {
	return exam.CourseGroup{
		ID:           id,
		CourseID:     courseID,
		GroupName:    name,
		StudentCount: 30,
		CourseTitle:  fmt.Sprintf("Course %d", courseID),
	}
}

func ref(name exam.SlotName) exam.SlotRef {
	return exam.NewSlotRef(testDay, name)
}

func suggestion(name exam.SlotName, suggested bool) exam.Suggestion {
	return exam.Suggestion{Date: testDay, SlotName: name, Suggested: suggested, Reason: "fewer clashes"}
}

// fakeGateway answers verify calls from a per-slot table and counts every
// call it receives.
type fakeGateway struct {
	mu sync.Mutex

	verdicts  map[string]exam.Verdict
	verifyErr error
	commitErr error
	removeErr error
	timeErr   error
	fetchErr  error
	nextID    int64
	// room is what commits report as the assigned room.
	room string

	// hold runs inside Verify, outside the lock, before the answer.
	hold func(ctx context.Context) error
	// onCommit runs inside Commit before it answers.
	onCommit func()

	unscheduled []exam.UnscheduledCourse
	scheduled   []exam.ScheduledExam
	slots       []exam.Slot

	verifies    []exam.SlotRef
	commits     []exam.SlotRef
	removes     int
	timeChanges []exam.Slot
	fetches     int
}

// newFakeGateway serves course 1 with groups 10 and 11 unscheduled and
// course 2 with group 20 in the morning (exam 500, room R1) and group 21
// unscheduled.
func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		verdicts: map[string]exam.Verdict{},
		nextID:   900,
		room:     "H-1",
		unscheduled: []exam.UnscheduledCourse{
			{CourseID: 1, Title: "Course 1", Groups: []exam.CourseGroup{group(10, 1, "A"), group(11, 1, "B")}},
			{CourseID: 2, Title: "Course 2", Groups: []exam.CourseGroup{group(21, 2, "B")}},
		},
		scheduled: []exam.ScheduledExam{{ID: 500, Group: group(20, 2, "A"), Slot: ref(exam.Morning), Room: "R1"}},
		slots:     []exam.Slot{{SlotRef: ref(exam.Morning), Start: "09:00", End: "11:00"}},
	}
}

func (g *fakeGateway) Verify(ctx context.Context, _ exam.Entity, target exam.SlotRef) (exam.Verdict, error) {
	g.mu.Lock()
	g.verifies = append(g.verifies, target)
	hold := g.hold
	g.mu.Unlock()
	if hold != nil {
		if err := hold(ctx); err != nil {
			return exam.Verdict{}, err
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.verifyErr != nil {
		return exam.Verdict{}, g.verifyErr
	}
	return g.verdicts[target.Key()], nil
}

func (g *fakeGateway) Commit(_ context.Context, _ exam.Entity, target exam.SlotRef) (exam.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.commits = append(g.commits, target)
	if g.onCommit != nil {
		g.onCommit()
	}
	if g.commitErr != nil {
		return exam.Receipt{}, g.commitErr
	}
	g.nextID++
	return exam.Receipt{ExamID: g.nextID, Room: g.room}, nil
}

func (g *fakeGateway) Remove(context.Context, exam.ScheduledExam) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removes++
	return g.removeErr
}

func (g *fakeGateway) ChangeSlotTime(_ context.Context, slot exam.Slot) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.timeChanges = append(g.timeChanges, slot)
	if g.timeErr != nil {
		return g.timeErr
	}
	g.slots = append(g.slots, slot)
	return nil
}

func (g *fakeGateway) FetchUnscheduled(context.Context) ([]exam.UnscheduledCourse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches++
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	return g.unscheduled, nil
}

func (g *fakeGateway) FetchScheduled(context.Context) ([]exam.ScheduledExam, error) {
	return g.scheduled, nil
}

func (g *fakeGateway) FetchSlots(context.Context) ([]exam.Slot, error) {
	return g.slots, nil
}

// networkCalls counts calls that would change or query placement state.
func (g *fakeGateway) networkCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.verifies) + len(g.commits) + g.removes + len(g.timeChanges)
}

type memJournal struct {
	settled []Settlement
}

func (j *memJournal) RecordSettlement(_ context.Context, s Settlement) error {
	j.settled = append(j.settled, s)
	return nil
}

func newConsole(t *testing.T, gw *fakeGateway, opts ...ReconcilerOption) (*Console, *memJournal) {
	t.Helper()
	_, w := store.New()
	j := &memJournal{}
	c := NewConsole(gw, NewReconciler(gw, w, opts...), WithJournal(j, nil))
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c, j
}

func snapshotJSON(t *testing.T, s *store.Store) string {
	t.Helper()
	b, err := json.Marshal(s.Snapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	return string(b)
}
