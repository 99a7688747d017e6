package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/examdesk/internal/assign"
	"github.com/javiermolinar/examdesk/internal/config"
	"github.com/javiermolinar/examdesk/internal/exam"
	"github.com/javiermolinar/examdesk/internal/store"
)

var (
	day1 = time.Date(2025, 6, 10, 0, 0, 0, 0, time.Local)
	day2 = time.Date(2025, 6, 11, 0, 0, 0, 0, time.Local)
)

func group(id, courseID int64, name, title string) exam.CourseGroup {
	return exam.CourseGroup{ID: id, CourseID: courseID, GroupName: name, CourseTitle: title, StudentCount: 25}
}

// fakeGateway serves course 1 (groups 10, 11) unscheduled and group 20 of
// course 2 in the first morning. Morning drops clash; every other slot is
// clear.
type fakeGateway struct {
	mu        sync.Mutex
	nextID    int64
	placed    map[int64]exam.ScheduledExam
	commits   []exam.SlotRef
	slotTimes []exam.Slot
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextID: 900,
		placed: map[int64]exam.ScheduledExam{
			20: {ID: 500, Group: group(20, 2, "A", "Biology"), Slot: exam.NewSlotRef(day1, exam.Morning), Room: "R1"},
		},
	}
}

func (g *fakeGateway) Verify(_ context.Context, e exam.Entity, target exam.SlotRef) (exam.Verdict, error) {
	if e.Kind.IsRoomChange() || target.Name != exam.Morning {
		return exam.Verdict{Kind: exam.VerdictClear}, nil
	}
	best := exam.Suggestion{Date: target.Day, SlotName: exam.Afternoon, Suggested: true, Reason: "no clashes"}
	return exam.Verdict{
		Kind: exam.VerdictConflict,
		Conflicts: []exam.ConflictRecord{{
			First:    exam.ExamRef{GroupID: 10, Title: "Algebra (A)"},
			Second:   exam.ExamRef{ExamID: 500, GroupID: 20, Title: "Biology (A)"},
			Students: []exam.Student{{ID: "s1", Name: "Ana"}},
		}},
		Suggestions: []exam.Suggestion{
			{Date: target.Day, SlotName: exam.Evening, Suggested: false, Reason: "2 clashes"},
			best,
		},
		Best: &best,
	}, nil
}

func (g *fakeGateway) Commit(_ context.Context, e exam.Entity, target exam.SlotRef) (exam.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.commits = append(g.commits, target)
	if e.Kind.IsRoomChange() {
		ex := g.placed[e.Group.ID]
		ex.Room = e.Room
		g.placed[e.Group.ID] = ex
		return exam.Receipt{ExamID: ex.ID, Room: ex.Room}, nil
	}
	id, room := g.nextID+1, "R9"
	if prev, ok := g.placed[e.Group.ID]; ok {
		id = prev.ID
	} else {
		g.nextID++
	}
	g.placed[e.Group.ID] = exam.ScheduledExam{ID: id, Group: e.Group, Slot: target, Room: room}
	return exam.Receipt{ExamID: id, Room: room}, nil
}

func (g *fakeGateway) Remove(_ context.Context, e exam.ScheduledExam) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.placed, e.Group.ID)
	return nil
}

func (g *fakeGateway) ChangeSlotTime(_ context.Context, slot exam.Slot) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.slotTimes = append(g.slotTimes, slot)
	return nil
}

func (g *fakeGateway) FetchUnscheduled(context.Context) ([]exam.UnscheduledCourse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var groups []exam.CourseGroup
	for _, gr := range []exam.CourseGroup{group(10, 1, "A", "Algebra"), group(11, 1, "B", "Algebra")} {
		if _, ok := g.placed[gr.ID]; !ok {
			groups = append(groups, gr)
		}
	}
	if len(groups) == 0 {
		return nil, nil
	}
	return []exam.UnscheduledCourse{{CourseID: 1, Title: "Algebra", Groups: groups}}, nil
}

func (g *fakeGateway) FetchScheduled(context.Context) ([]exam.ScheduledExam, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]exam.ScheduledExam, 0, len(g.placed))
	for _, e := range g.placed {
		out = append(out, e)
	}
	return out, nil
}

func (g *fakeGateway) FetchSlots(context.Context) ([]exam.Slot, error) {
	var out []exam.Slot
	for _, d := range []time.Time{day1, day2} {
		for _, name := range exam.SlotNames {
			out = append(out, exam.Slot{SlotRef: exam.NewSlotRef(d, name), Start: "09:00", End: "12:00"})
		}
	}
	return out, nil
}

// newTestModel returns a loaded model sized like a typical terminal.
func newTestModel(t *testing.T) (Model, *fakeGateway) {
	t.Helper()
	gw := newFakeGateway()
	_, w := store.New()
	console := assign.NewConsole(gw, assign.NewReconciler(gw, w))

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	m := New(console, config.Default(), WithClock(func() time.Time { return fixed }), WithOperator("Operator One"))
	m.tick = func(time.Duration, func(time.Time) tea.Msg) tea.Cmd { return nil }
	m = run(t, m, m.Init())
	m = update(t, m, tea.WindowSizeMsg{Width: 140, Height: 40})
	if !m.loaded {
		t.Fatal("model did not load")
	}
	return m, gw
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model
}

// run executes cmd synchronously and feeds every message it yields back
// into the model. Ticks are skipped so tests never sleep.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range collect(cmd) {
		var next tea.Cmd
		var model tea.Model
		model, next = m.Update(msg)
		m = model.(Model)
		m = run(t, m, next)
	}
	return m
}

// press sends a key and runs the resulting command.
func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(keyMsg(k))
		m = next.(Model)
		m = run(t, m, cmd)
	}
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// collect runs cmd and flattens batches.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	switch msg := msg.(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	case nil:
		return nil
	}
	return []tea.Msg{msg}
}
