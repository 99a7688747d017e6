package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/javiermolinar/examdesk/internal/assign"
	"github.com/javiermolinar/examdesk/internal/exam"
	"github.com/javiermolinar/examdesk/internal/llm"
	"github.com/javiermolinar/examdesk/internal/store"
)

var day = time.Date(2025, 6, 10, 0, 0, 0, 0, time.Local)

// fakeGateway serves one unscheduled group (10) and one exam (group 20,
// exam 500) in the morning. verify decides every verdict.
type fakeGateway struct {
	verify    func(exam.Entity, exam.SlotRef) (exam.Verdict, error)
	fetchErr  error
	nextID    int64
	removed   []int64
	slotTimes []exam.Slot
}

func (f *fakeGateway) Verify(_ context.Context, e exam.Entity, target exam.SlotRef) (exam.Verdict, error) {
	if f.verify == nil {
		return exam.Verdict{Kind: exam.VerdictClear}, nil
	}
	return f.verify(e, target)
}

func (f *fakeGateway) Commit(context.Context, exam.Entity, exam.SlotRef) (exam.Receipt, error) {
	f.nextID++
	return exam.Receipt{ExamID: f.nextID}, nil
}

func (f *fakeGateway) Remove(_ context.Context, e exam.ScheduledExam) error {
	f.removed = append(f.removed, e.ID)
	return nil
}

func (f *fakeGateway) ChangeSlotTime(_ context.Context, slot exam.Slot) error {
	f.slotTimes = append(f.slotTimes, slot)
	return nil
}

func (f *fakeGateway) FetchUnscheduled(context.Context) ([]exam.UnscheduledCourse, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	g := exam.CourseGroup{ID: 10, CourseID: 1, GroupName: "A", CourseTitle: "Algebra", StudentCount: 20}
	return []exam.UnscheduledCourse{{CourseID: 1, Title: "Algebra", Groups: []exam.CourseGroup{g}}}, nil
}

func (f *fakeGateway) FetchScheduled(context.Context) ([]exam.ScheduledExam, error) {
	g := exam.CourseGroup{ID: 20, CourseID: 2, GroupName: "A", CourseTitle: "Biology", StudentCount: 20}
	return []exam.ScheduledExam{{ID: 500, Group: g, Slot: exam.NewSlotRef(day, exam.Morning), Room: "R1"}}, nil
}

func (f *fakeGateway) FetchSlots(context.Context) ([]exam.Slot, error) {
	return []exam.Slot{{SlotRef: exam.NewSlotRef(day, exam.Morning), Start: "09:00", End: "12:00"}}, nil
}

func newConsole(t *testing.T, gw *fakeGateway) *assign.Console {
	t.Helper()
	_, w := store.New()
	c := assign.NewConsole(gw, assign.NewReconciler(gw, w))
	if msg := Load(c, false)(); msg != (LoadedMsg{}) {
		t.Fatalf("Load returned %#v", msg)
	}
	return c
}

func TestLoad(t *testing.T) {
	gw := &fakeGateway{}
	c := newConsole(t, gw)
	if c.Store().Snapshot().GroupCount() != 1 {
		t.Fatalf("expected one unscheduled group after load")
	}

	if msg, ok := Load(c, true)().(LoadedMsg); !ok || !msg.Background {
		t.Fatalf("expected background LoadedMsg, got %#v", msg)
	}

	gw.fetchErr = errors.New("down")
	msg, ok := Load(c, false)().(ErrMsg)
	if !ok || msg.Op != "load" || !errors.Is(msg.Err, gw.fetchErr) {
		t.Fatalf("expected load ErrMsg, got %#v", msg)
	}
}

func TestDrop_ClearVerdictCommits(t *testing.T) {
	gw := &fakeGateway{nextID: 700}
	c := newConsole(t, gw)
	if _, err := c.BeginGroup(10); err != nil {
		t.Fatalf("BeginGroup: %v", err)
	}

	msg, ok := Drop(c, exam.NewSlotRef(day, exam.Afternoon))().(FlowMsg)
	if !ok {
		t.Fatalf("expected FlowMsg, got %#v", msg)
	}
	if msg.Err != nil || msg.Result.Settled == nil {
		t.Fatalf("expected a settled result, got %+v", msg)
	}
	if msg.Result.Settled.Outcome != assign.OutcomeCommitted || msg.Result.Settled.ExamID != 701 {
		t.Errorf("unexpected settlement: %+v", msg.Result.Settled)
	}
}

func TestDrop_ConflictThenCancel(t *testing.T) {
	afternoon := exam.NewSlotRef(day, exam.Afternoon)
	gw := &fakeGateway{
		verify: func(_ exam.Entity, target exam.SlotRef) (exam.Verdict, error) {
			if target.Name == exam.Morning {
				best := exam.Suggestion{Date: day, SlotName: exam.Afternoon, Suggested: true}
				return exam.Verdict{
					Kind:        exam.VerdictConflict,
					Conflicts:   []exam.ConflictRecord{{Students: []exam.Student{{ID: "s1"}}}},
					Suggestions: []exam.Suggestion{best},
					Best:        &best,
				}, nil
			}
			return exam.Verdict{Kind: exam.VerdictClear}, nil
		},
	}
	c := newConsole(t, gw)
	if _, err := c.BeginGroup(10); err != nil {
		t.Fatalf("BeginGroup: %v", err)
	}

	msg := Drop(c, exam.NewSlotRef(day, exam.Morning))().(FlowMsg)
	if msg.Err != nil || msg.Result.Review == nil {
		t.Fatalf("expected a review, got %+v", msg)
	}
	if !msg.Result.Review.Working.Equal(afternoon) {
		t.Errorf("working = %s, want best suggestion", msg.Result.Review.Working)
	}

	cancelled, ok := Cancel(c)().(CancelledMsg)
	if !ok || cancelled.Settlement.Outcome != assign.OutcomeCancelled {
		t.Fatalf("expected CancelledMsg, got %#v", cancelled)
	}
	if _, carrying := c.Carrying(); carrying {
		t.Error("cancel should end the carry")
	}
}

func TestPickAndConfirm(t *testing.T) {
	gw := &fakeGateway{
		verify: func(_ exam.Entity, target exam.SlotRef) (exam.Verdict, error) {
			if target.Name != exam.Morning {
				return exam.Verdict{Kind: exam.VerdictClear}, nil
			}
			return exam.Verdict{
				Kind:      exam.VerdictConflict,
				Conflicts: []exam.ConflictRecord{{}},
				Suggestions: []exam.Suggestion{
					{Date: day, SlotName: exam.Afternoon, Suggested: true},
					{Date: day, SlotName: exam.Evening, Suggested: true},
				},
			}, nil
		},
	}
	c := newConsole(t, gw)
	if _, err := c.BeginGroup(10); err != nil {
		t.Fatalf("BeginGroup: %v", err)
	}
	if msg := Drop(c, exam.NewSlotRef(day, exam.Morning))().(FlowMsg); msg.Result.Review == nil {
		t.Fatalf("expected review, got %+v", msg)
	}

	picked := Pick(c, 1)().(FlowMsg)
	if picked.Err != nil || picked.Result.Review == nil {
		t.Fatalf("expected the dialog to stay open, got %+v", picked)
	}
	if got := picked.Result.Review.Working; !got.Equal(exam.NewSlotRef(day, exam.Evening)) {
		t.Errorf("working = %s, want evening", got)
	}

	confirmed := Confirm(c)().(FlowMsg)
	if confirmed.Err != nil || confirmed.Result.Settled == nil {
		t.Fatalf("expected a commit, got %+v", confirmed)
	}
	if !confirmed.Result.Settled.Target.Equal(exam.NewSlotRef(day, exam.Evening)) {
		t.Errorf("committed to %s", confirmed.Result.Settled.Target)
	}
}

func TestRemove(t *testing.T) {
	gw := &fakeGateway{}
	c := newConsole(t, gw)

	msg, ok := Remove(c, 20, "Biology (A)")().(RemovedMsg)
	if !ok || msg.Label != "Biology (A)" {
		t.Fatalf("expected RemovedMsg, got %#v", msg)
	}
	if len(gw.removed) != 1 || gw.removed[0] != 500 {
		t.Errorf("removed = %v, want [500]", gw.removed)
	}

	if _, ok := Remove(c, 99, "nothing")().(ErrMsg); !ok {
		t.Error("expected ErrMsg for an unknown group")
	}
}

func TestEditSlotTime(t *testing.T) {
	gw := &fakeGateway{}
	c := newConsole(t, gw)
	ref := exam.NewSlotRef(day, exam.Morning)

	if msg, ok := EditSlotTime(c, ref, "12:00", "09:00")().(ErrMsg); !ok || msg.Op != "slot time" {
		t.Fatalf("expected rejected window, got %#v", msg)
	}
	if len(gw.slotTimes) != 0 {
		t.Fatal("an invalid window must not reach the service")
	}

	msg, ok := EditSlotTime(c, ref, "08:30", "11:30")().(SlotTimeMsg)
	if !ok || !msg.Slot.Equal(ref) {
		t.Fatalf("expected SlotTimeMsg, got %#v", msg)
	}
	if len(gw.slotTimes) != 1 || gw.slotTimes[0].Start != "08:30" {
		t.Errorf("slot times sent = %+v", gw.slotTimes)
	}
}

func TestChangeRoom(t *testing.T) {
	gw := &fakeGateway{}
	c := newConsole(t, gw)

	msg := ChangeRoom(c, 20, "R2", nil)().(FlowMsg)
	if msg.Err != nil || msg.Result.Settled == nil || msg.Result.Settled.Outcome != assign.OutcomeCommitted {
		t.Fatalf("expected committed room change, got %+v", msg)
	}
	e, _ := c.Store().Snapshot().ExamByGroup(20)
	if e.Room != "R2" {
		t.Errorf("room = %q, want R2", e.Room)
	}
}

func TestRefreshAfter(t *testing.T) {
	if RefreshAfter(0) != nil {
		t.Error("zero interval should disable the refresh")
	}
	if RefreshAfter(time.Second) == nil {
		t.Error("expected a tick command")
	}
}

func TestExplain_Disabled(t *testing.T) {
	msg, ok := Explain(nil, llm.ConflictReport{})().(ErrMsg)
	if !ok || !errors.Is(msg.Err, llm.ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %#v", msg)
	}
}
