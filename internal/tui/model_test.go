package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/examdesk/internal/assign"
	"github.com/javiermolinar/examdesk/internal/exam"
	"github.com/javiermolinar/examdesk/internal/tui/commands"
)

func TestNew_Defaults(t *testing.T) {
	m, _ := newTestModel(t)

	if m.focus != FocusList {
		t.Errorf("focus = %v, want list", m.focus)
	}
	if m.modalType != ModalNone || m.busy != "" || m.carry != nil {
		t.Errorf("expected an idle model, got modal=%v busy=%q carry=%v", m.modalType, m.busy, m.carry)
	}
	if got := len(periodDays(m.snapshot())); got != 2 {
		t.Errorf("expected 2 period days, got %d", got)
	}
}

func TestCarryFromListAndDropOnClearSlot(t *testing.T) {
	m, gw := newTestModel(t)

	// Row 0 is the course header, row 1 its first group.
	m = press(t, m, "j", "enter")
	if m.carry == nil || m.carry.Group.ID != 10 {
		t.Fatalf("expected group 10 carried, got %+v", m.carry)
	}
	if m.focus != FocusGrid {
		t.Fatal("carrying should move focus to the grid")
	}

	// The first morning holds one exam, so one step down lands on the afternoon.
	m = press(t, m, "j")
	if m.cursor.Slot != 1 {
		t.Fatalf("cursor = %+v, want afternoon", m.cursor)
	}
	m = press(t, m, "enter")

	afternoon := exam.NewSlotRef(day1, exam.Afternoon)
	if m.carry != nil || m.modalType != ModalNone || m.busy != "" {
		t.Fatalf("expected the flow to settle, got carry=%v modal=%v busy=%q", m.carry, m.modalType, m.busy)
	}
	if len(gw.commits) != 1 || !gw.commits[0].Equal(afternoon) {
		t.Fatalf("commits = %v, want one at %s", gw.commits, afternoon)
	}
	placed, ok := m.snapshot().ExamByGroup(10)
	if !ok || !placed.Slot.Equal(afternoon) {
		t.Errorf("store = %+v %v", placed, ok)
	}
	if !strings.Contains(m.statusMsg, "Placed Algebra (A)") || m.statusErr {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestConflictReviewPickAndConfirm(t *testing.T) {
	m, gw := newTestModel(t)

	m = press(t, m, "j", "enter", "enter")
	if m.modalType != ModalReview || m.review == nil {
		t.Fatalf("expected the conflict dialog, got modal=%v", m.modalType)
	}
	afternoon := exam.NewSlotRef(day1, exam.Afternoon)
	if !m.review.Working.Equal(afternoon) {
		t.Errorf("working = %s, want the best suggestion", m.review.Working)
	}
	if m.reviewSel != 1 {
		t.Errorf("reviewSel = %d, want the best suggestion preselected", m.reviewSel)
	}
	if m.subject != "Algebra (A)" {
		t.Errorf("subject = %q", m.subject)
	}

	// The evening entry is listed but not offered.
	m = press(t, m, "k", "enter")
	if m.modalType != ModalReview || !m.statusErr {
		t.Fatalf("picking an unoffered slot should keep the dialog open with an error, got modal=%v status=%q", m.modalType, m.statusMsg)
	}
	if len(gw.commits) != 0 {
		t.Fatal("nothing should be committed yet")
	}

	m = press(t, m, "c")
	if m.modalType != ModalNone || m.review != nil || m.carry != nil {
		t.Fatalf("expected the dialog to close after confirm, got modal=%v", m.modalType)
	}
	if len(gw.commits) != 1 || !gw.commits[0].Equal(afternoon) {
		t.Errorf("commits = %v, want the working slot", gw.commits)
	}
}

func TestConflictReviewCancel(t *testing.T) {
	m, gw := newTestModel(t)

	m = press(t, m, "j", "enter", "enter", "esc")
	if m.modalType != ModalNone || m.review != nil || m.carry != nil {
		t.Fatalf("expected the review to be abandoned, got modal=%v", m.modalType)
	}
	if len(gw.commits) != 0 {
		t.Errorf("cancel must not commit, got %v", gw.commits)
	}
	if _, ok := m.snapshot().UnscheduledGroup(10); !ok {
		t.Error("group 10 should still be unscheduled")
	}
	if !strings.HasPrefix(m.statusMsg, "Cancelled") {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestCancelCarry(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "j", "enter", "esc")
	if m.carry != nil {
		t.Fatal("esc should drop the carry")
	}
	if m.statusMsg != "Carry dropped" {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestMoveScheduledExam(t *testing.T) {
	m, gw := newTestModel(t)

	m = press(t, m, "tab", "enter")
	if m.carry == nil || m.carry.Kind != exam.KindScheduledGroup {
		t.Fatalf("expected the scheduled exam carried, got %+v", m.carry)
	}

	m = press(t, m, "l", "j", "enter")
	target := exam.NewSlotRef(day2, exam.Afternoon)
	if len(gw.commits) != 1 || !gw.commits[0].Equal(target) {
		t.Fatalf("commits = %v, want %s", gw.commits, target)
	}
	moved, ok := m.snapshot().ExamByGroup(20)
	if !ok || moved.ID != 500 || !moved.Slot.Equal(target) {
		t.Errorf("moved exam = %+v %v", moved, ok)
	}
	if m.cursor.Day != 1 {
		t.Errorf("cursor should follow the committed slot, got %+v", m.cursor)
	}
}

func TestRemoveExam(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "tab", "x")
	if m.modalType != ModalConfirmRemove || m.removeExam.ID != 500 {
		t.Fatalf("expected remove confirmation for exam 500, got modal=%v", m.modalType)
	}
	m = press(t, m, "n")
	if m.modalType != ModalNone {
		t.Fatal("n should close the confirmation")
	}
	if _, ok := m.snapshot().ExamByGroup(20); !ok {
		t.Fatal("declining must keep the exam")
	}

	m = press(t, m, "x", "y")
	if _, ok := m.snapshot().ExamByGroup(20); ok {
		t.Error("exam should be unscheduled")
	}
	if _, ok := m.snapshot().UnscheduledGroup(20); !ok {
		t.Error("group 20 should be back in the unscheduled list")
	}
}

func TestSlotTimeForm(t *testing.T) {
	m, gw := newTestModel(t)

	m = press(t, m, "tab", "t")
	if m.modalType != ModalSlotTime || len(m.inputs) != 2 {
		t.Fatalf("expected the slot time form, got modal=%v", m.modalType)
	}
	if m.inputs[0].Value() != "09:00" || m.inputs[1].Value() != "12:00" {
		t.Fatalf("form not prefilled: %q %q", m.inputs[0].Value(), m.inputs[1].Value())
	}

	m = press(t, m, "backspace", "backspace", "backspace", "backspace", "backspace", "1", "3", ":", "0", "0", "enter")
	if m.modalType != ModalSlotTime || !m.statusErr {
		t.Fatalf("end before start should be rejected locally, got modal=%v status=%q", m.modalType, m.statusMsg)
	}
	if len(gw.slotTimes) != 0 {
		t.Fatal("an invalid window must not reach the service")
	}

	m = press(t, m, "backspace", "backspace", "backspace", "backspace", "backspace", "0", "8", ":", "3", "0", "enter")
	if m.modalType != ModalNone {
		t.Fatalf("expected the form to close, got %v", m.modalType)
	}
	if len(gw.slotTimes) != 1 || gw.slotTimes[0].Start != "08:30" || gw.slotTimes[0].End != "12:00" {
		t.Errorf("slot times sent = %+v", gw.slotTimes)
	}
}

func TestRoomForm(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "tab", "r")
	if m.modalType != ModalRoom || m.inputs[0].Value() != "R1" {
		t.Fatalf("expected the room form prefilled with R1, got modal=%v", m.modalType)
	}
	m = press(t, m, "backspace", "1", "9", "enter")
	if m.modalType != ModalNone {
		t.Fatalf("expected the form to close, got %v", m.modalType)
	}
	e, _ := m.snapshot().ExamByGroup(20)
	if e.Room != "R19" {
		t.Errorf("room = %q, want R19", e.Room)
	}
	if !strings.Contains(m.statusMsg, "room R19") {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestBusyIgnoresKeys(t *testing.T) {
	m, _ := newTestModel(t)
	m.busy = busyVerifying

	next, cmd := m.Update(keyMsg("q"))
	if cmd != nil {
		t.Fatal("keys must be ignored while a request is in flight")
	}
	m = next.(Model)

	_, cmd = m.Update(keyMsg("ctrl+c"))
	if cmd == nil {
		t.Fatal("ctrl+c should always quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestEscCancelsPendingVerification(t *testing.T) {
	for _, busy := range []string{busyVerifying, busyRechecking, busyRoom} {
		t.Run(busy, func(t *testing.T) {
			m, gw := newTestModel(t)
			m.busy = busy

			next, cmd := m.Update(keyMsg("esc"))
			m = next.(Model)
			if cmd == nil || m.busy != busyCancelling {
				t.Fatalf("esc while %q: busy=%q cmd=%v", busy, m.busy, cmd != nil)
			}
			m = run(t, m, cmd)
			if m.busy != "" || m.modalType != ModalNone {
				t.Errorf("after cancel: busy=%q modal=%v", m.busy, m.modalType)
			}
			if len(gw.commits) != 0 {
				t.Errorf("cancel sent %d commits", len(gw.commits))
			}
		})
	}

	m, _ := newTestModel(t)
	m.busy = busyCommitting
	if _, cmd := m.Update(keyMsg("esc")); cmd != nil {
		t.Error("a commit on the wire cannot be cancelled")
	}
}

func TestStaleResultKeepsBusyState(t *testing.T) {
	m, _ := newTestModel(t)
	m.busy = busyRechecking

	m = update(t, m, commands.FlowMsg{Op: "pick", Err: assign.ErrStaleResponse})
	if m.busy != busyRechecking {
		t.Errorf("busy = %q, the superseding pick still owns it", m.busy)
	}
}

func TestCancelRefusedWhileCommitting(t *testing.T) {
	m, _ := newTestModel(t)
	m.busy = busyCancelling

	m = update(t, m, commands.ErrMsg{Op: "cancel", Err: assign.ErrCommitInFlight})
	if m.busy != busyCommitting {
		t.Errorf("busy = %q, want %q", m.busy, busyCommitting)
	}
	if !strings.Contains(m.statusMsg, "Commit already sent") {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestRefreshTick(t *testing.T) {
	m, _ := newTestModel(t)

	next, cmd := m.Update(commands.RefreshTickMsg{})
	m = next.(Model)
	if !m.refreshing || cmd == nil {
		t.Fatal("an idle tick should start a background refresh")
	}
	m = run(t, m, cmd)
	if m.refreshing {
		t.Fatal("refresh should finish")
	}

	m = press(t, m, "j", "enter")
	next, cmd = m.Update(commands.RefreshTickMsg{})
	m = next.(Model)
	if m.refreshing || cmd != nil {
		t.Fatal("a carry should hold off the refresh")
	}
}

func TestFlowErrorsReachStatus(t *testing.T) {
	m, _ := newTestModel(t)

	m = update(t, m, commands.FlowMsg{Op: "pick", Err: assign.ErrAlreadySelected})
	if !m.statusErr || !strings.Contains(m.statusMsg, "already selected") {
		t.Errorf("status = %q", m.statusMsg)
	}

	m.statusMsg = ""
	m = update(t, m, commands.FlowMsg{Op: "drop", Err: assign.ErrStaleResponse})
	if m.statusMsg != "" {
		t.Errorf("stale responses should be dropped silently, got %q", m.statusMsg)
	}
}

func TestExplainWithoutProvider(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "j", "enter", "enter", "e")
	if m.explaining {
		t.Fatal("no explainer is configured")
	}
	if !strings.Contains(m.statusMsg, "disabled") {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestReportText(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "j", "enter", "enter")
	report := m.reportText()
	for _, want := range []string{"Algebra (A) on", "Biology (A)", "Ana", "alternative: " + exam.NewSlotRef(day1, exam.Afternoon).String()} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
	if strings.Contains(report, "Evening") {
		t.Errorf("unoffered suggestions should be left out:\n%s", report)
	}
}

func TestParseStudents(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"s1", []string{"s1"}},
		{"s1, s2 s3,,", []string{"s1", "s2", "s3"}},
	}
	for _, tt := range tests {
		got := parseStudents(tt.in)
		if len(got) != len(tt.want) {
			t.Fatalf("parseStudents(%q) = %v", tt.in, got)
		}
		for i, s := range got {
			if s.ID != tt.want[i] {
				t.Errorf("parseStudents(%q)[%d] = %q, want %q", tt.in, i, s.ID, tt.want[i])
			}
		}
	}
}
