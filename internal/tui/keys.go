package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/examdesk/internal/assign"
	"github.com/javiermolinar/examdesk/internal/exam"
	"github.com/javiermolinar/examdesk/internal/llm"
	"github.com/javiermolinar/examdesk/internal/tui/commands"
)

// Busy labels shown while a request is in flight.
const (
	busyLoading    = "Loading schedule"
	busyVerifying  = "Verifying placement"
	busyRechecking = "Checking suggestion"
	busyCommitting = "Committing"
	busyCancelling = "Cancelling"
	busyRemoving   = "Removing exam"
	busySlotTime   = "Updating slot"
	busyRoom       = "Checking room"
)

// handleKeyMsg handles keyboard input.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	LogKeyPress(msg)

	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.busy != "" {
		return m.handleBusyKeys(msg)
	}

	switch m.modalType {
	case ModalReview:
		return m.handleReviewKeys(msg)
	case ModalConfirmRemove:
		return m.handleConfirmRemoveKeys(msg)
	case ModalSlotTime, ModalRoom:
		return m.handleFormKeys(msg)
	}
	return m.handleNormalKeys(msg)
}

// handleBusyKeys lets the operator abandon a verification still on the
// wire. Everything else waits for the request to return.
func (m Model) handleBusyKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.cancellable() {
		return m, nil
	}
	if k := msg.String(); k == "esc" || (k == "q" && m.modalType == ModalReview) {
		m.busy = busyCancelling
		return m, commands.Cancel(m.console)
	}
	return m, nil
}

// cancellable reports whether the request in flight is a verification.
func (m Model) cancellable() bool {
	switch m.busy {
	case busyVerifying, busyRechecking, busyRoom:
		return true
	}
	return false
}

// handleNormalKeys handles keys when no modal is open.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab":
		if m.focus == FocusList {
			m.focus = FocusGrid
		} else {
			m.focus = FocusList
		}
		return m, nil
	case "esc":
		if m.carry != nil {
			m.busy = busyCancelling
			return m, commands.Cancel(m.console)
		}
		return m, nil
	case "R":
		if m.refreshing {
			return m, nil
		}
		m.busy = busyLoading
		return m, commands.Load(m.console, false)
	}

	if m.focus == FocusList {
		return m.handleListKeys(msg)
	}
	return m.handleGridKeys(msg)
}

// handleListKeys handles the unscheduled list.
func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := listRows(m.snapshot().Unscheduled)
	switch msg.String() {
	case "j", "down":
		m.listCursor = clamp(m.listCursor+1, 0, len(rows)-1)
	case "k", "up":
		m.listCursor = clamp(m.listCursor-1, 0, len(rows)-1)
	case "g", "home":
		m.listCursor = 0
	case "G", "end":
		m.listCursor = max(0, len(rows)-1)
	case "enter", " ":
		if m.listCursor < 0 || m.listCursor >= len(rows) {
			return m, nil
		}
		row := rows[m.listCursor]
		if row.Group != nil {
			return m.beginCarry(exam.GroupEntity(*row.Group))
		}
		e, err := exam.CourseEntity(row.Course)
		if err != nil {
			return m, m.setStatus(describeError("carry", err), true)
		}
		return m.beginCarry(e)
	}
	return m, nil
}

// handleGridKeys handles the timetable grid.
func (m Model) handleGridKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.snapshot()
	days := periodDays(snap)

	switch msg.String() {
	case "h", "left":
		m.cursor = moveDay(days, m.cursor, -1)
	case "l", "right":
		m.cursor = moveDay(days, m.cursor, 1)
	case "j", "down":
		m.cursor = moveDown(snap, days, m.cursor)
	case "k", "up":
		m.cursor = moveUp(snap, days, m.cursor)
	case "enter", " ":
		if m.carry != nil {
			ref, ok := refAt(days, m.cursor)
			if !ok {
				return m, nil
			}
			m.busy = busyVerifying
			m.subject = m.carry.Label()
			return m, commands.Drop(m.console, ref)
		}
		if e, ok := examAt(snap, days, m.cursor); ok {
			return m.beginCarry(exam.ScheduledEntity(e))
		}
		return m, nil
	case "x", "delete":
		if m.carry != nil {
			return m, nil
		}
		if e, ok := examAt(snap, days, m.cursor); ok {
			m.removeExam = e
			m.modalType = ModalConfirmRemove
		}
		return m, nil
	case "t":
		if m.carry != nil {
			return m, nil
		}
		if ref, ok := refAt(days, m.cursor); ok {
			m.openSlotTimeForm(ref)
		}
		return m, nil
	case "r":
		if m.carry != nil {
			return m, nil
		}
		if e, ok := examAt(snap, days, m.cursor); ok {
			m.openRoomForm(e)
		}
		return m, nil
	default:
		return m, nil
	}

	LogCursorMove(m.cursor, msg.String())
	m.syncScroll()
	return m, nil
}

// beginCarry picks up e. Begin never touches the network, so it runs inline.
func (m Model) beginCarry(e exam.Entity) (tea.Model, tea.Cmd) {
	discarded, err := m.console.Begin(e)
	if err != nil {
		return m, m.setStatus(describeError("carry", err), true)
	}
	LogCarry(e, discarded)
	m.carry = &e
	m.focus = FocusGrid
	if src, ok := e.Source(); ok {
		m.focusSlot(src)
	}
	status := "Carrying " + e.Label()
	if discarded {
		status += " (previous carry dropped)"
	}
	return m, m.setStatus(status, false)
}

// handleReviewKeys handles the conflict dialog.
func (m Model) handleReviewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.review == nil {
		m.modalType = ModalNone
		return m, nil
	}
	n := len(m.review.Suggestions)

	switch msg.String() {
	case "j", "down":
		m.reviewSel = clamp(m.reviewSel+1, 0, n-1)
	case "k", "up":
		m.reviewSel = clamp(m.reviewSel-1, 0, n-1)
	case "enter", " ":
		if n == 0 {
			return m, nil
		}
		s := m.review.Suggestions[m.reviewSel]
		if !s.Suggested {
			return m, m.setStatus(describeError("pick", assign.ErrSuggestionNotSelectable), true)
		}
		m.busy = busyRechecking
		return m, commands.Pick(m.console, m.reviewSel)
	case "c":
		m.busy = busyCommitting
		return m, commands.Confirm(m.console)
	case "esc", "q":
		m.busy = busyCancelling
		return m, commands.Cancel(m.console)
	case "y":
		return m, commands.CopyReport(m.reportText())
	case "e":
		if m.explaining {
			return m, nil
		}
		if m.explainer == nil {
			return m, m.setStatus(describeError("explain", llm.ErrDisabled), true)
		}
		m.explaining = true
		return m, commands.Explain(m.explainer, m.conflictReport())
	}
	return m, nil
}

// conflictReport builds the explainer input from the open review.
func (m Model) conflictReport() llm.ConflictReport {
	r := llm.ConflictReport{Subject: m.subject}
	if m.review != nil {
		r.Target = m.review.Original
		r.Conflicts = m.review.Conflicts
		r.Suggestions = m.review.Suggestions
	}
	return r
}

// reportText is the plain-text conflict report put on the clipboard.
func (m Model) reportText() string {
	r := m.conflictReport()
	var b strings.Builder
	fmt.Fprintf(&b, "%s on %s\n", r.Subject, r.Target)
	b.WriteString(llm.FormatConflicts(r.Conflicts))
	for _, s := range r.Suggestions {
		if !s.Suggested {
			continue
		}
		fmt.Fprintf(&b, "alternative: %s", s.SlotRef())
		if s.Room != "" {
			fmt.Fprintf(&b, " room %s", s.Room)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// handleConfirmRemoveKeys handles the remove confirmation.
func (m Model) handleConfirmRemoveKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.modalType = ModalNone
		m.busy = busyRemoving
		e := m.removeExam
		return m, commands.Remove(m.console, e.Group.ID, e.Group.Label())
	case "n", "esc", "q":
		m.modalType = ModalNone
	}
	return m, nil
}

func (m *Model) newInput(placeholder, value string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 30
	ti.SetValue(value)
	ti.PlaceholderStyle = m.styles.ModalPlaceholderStyle
	ti.TextStyle = m.styles.ModalInputTextStyle
	ti.PromptStyle = m.styles.ModalInputTextStyle
	ti.Prompt = ""
	return ti
}

func (m *Model) openSlotTimeForm(ref exam.SlotRef) {
	w := m.snapshot().Window(ref, m.config.Windows())
	m.editSlot = ref
	m.inputs = []textinput.Model{
		m.newInput("HH:MM", w.Start, 5),
		m.newInput("HH:MM", w.End, 5),
	}
	m.focusInput(0)
	m.modalType = ModalSlotTime
}

func (m *Model) openRoomForm(e exam.ScheduledExam) {
	m.roomExam = e
	m.inputs = []textinput.Model{
		m.newInput("room name", e.Room, 64),
		m.newInput("student ids, comma separated (optional)", "", 512),
	}
	m.focusInput(0)
	m.modalType = ModalRoom
}

func (m *Model) focusInput(i int) {
	m.inputFocus = i
	for j := range m.inputs {
		if j == i {
			m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
}

// handleFormKeys handles the slot time and room forms.
func (m Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.modalType = ModalNone
		m.inputs = nil
		return m, nil
	case "tab", "down":
		m.focusInput((m.inputFocus + 1) % len(m.inputs))
		return m, nil
	case "shift+tab", "up":
		m.focusInput((m.inputFocus + len(m.inputs) - 1) % len(m.inputs))
		return m, nil
	case "enter":
		return m.submitForm()
	}

	var cmd tea.Cmd
	m.inputs[m.inputFocus], cmd = m.inputs[m.inputFocus].Update(msg)
	return m, cmd
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	values := make([]string, len(m.inputs))
	for i, in := range m.inputs {
		values[i] = strings.TrimSpace(in.Value())
	}

	switch m.modalType {
	case ModalSlotTime:
		// Reject bad input before locking the console.
		if err := exam.ValidateWindow(values[0], values[1]); err != nil {
			return m, m.setStatus(err.Error(), true)
		}
		m.modalType = ModalNone
		m.busy = busySlotTime
		return m, commands.EditSlotTime(m.console, m.editSlot, values[0], values[1])

	case ModalRoom:
		if values[0] == "" {
			return m, m.setStatus("Room is required", true)
		}
		students := parseStudents(values[1])
		m.modalType = ModalNone
		m.busy = busyRoom
		m.subject = exam.RoomGroupEntity(m.roomExam, values[0]).Label()
		if len(students) > 0 {
			m.subject = exam.RoomStudentsEntity(m.roomExam, values[0], students).Label()
		}
		return m, commands.ChangeRoom(m.console, m.roomExam.Group.ID, values[0], students)
	}
	return m, nil
}

// parseStudents splits a comma or space separated list of student ids.
func parseStudents(s string) []exam.Student {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return nil
	}
	out := make([]exam.Student, 0, len(fields))
	for _, id := range fields {
		out = append(out, exam.Student{ID: id})
	}
	return out
}
