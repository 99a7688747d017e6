package tui

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/examdesk/internal/api"
	"github.com/javiermolinar/examdesk/internal/assign"
	"github.com/javiermolinar/examdesk/internal/exam"
	"github.com/javiermolinar/examdesk/internal/tui/commands"
)

const (
	statusTTL = 3 * time.Second
	errorTTL  = 6 * time.Second
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.syncScroll()
		return m, nil

	case commands.LoadedMsg:
		m.loaded = true
		if msg.Background {
			m.refreshing = false
		} else {
			m.busy = ""
		}
		m.clampCursors()
		if msg.Background {
			return m, nil
		}
		return m, m.setStatus("Schedule loaded", false)

	case commands.RefreshTickMsg:
		next := commands.RefreshAfter(m.refreshEvery)
		if !m.loaded || !m.idle() || m.carry != nil {
			return m, next
		}
		m.refreshing = true
		return m, tea.Batch(commands.Load(m.console, true), next)

	case commands.FlowMsg:
		return m.handleFlowMsg(msg)

	case commands.CancelledMsg:
		m.busy = ""
		m.closeReview()
		m.carry = nil
		if msg.Settlement.Proposal.Entity.Group.ID == 0 {
			return m, m.setStatus("Carry dropped", false)
		}
		return m, m.setStatus("Cancelled "+msg.Settlement.Proposal.Entity.Label(), false)

	case commands.RemovedMsg:
		m.busy = ""
		m.clampCursors()
		return m, m.setStatus("Unscheduled "+msg.Label, false)

	case commands.SlotTimeMsg:
		m.busy = ""
		return m, m.setStatus("Updated "+msg.Slot.String(), false)

	case commands.ExplainedMsg:
		m.explaining = false
		m.explanation = msg.Explanation
		return m, nil

	case commands.CopiedMsg:
		return m, m.setStatus("Conflict report copied", false)

	case commands.ErrMsg:
		return m.handleErrMsg(msg)

	case commands.StatusMsgCmd:
		return m, m.setStatus(msg.Msg, false)

	case commands.ClearStatusMsg:
		if !m.now().Before(m.statusTime) {
			m.statusMsg = ""
			m.statusErr = false
		}
		return m, nil
	}

	return m, nil
}

// handleFlowMsg applies the result of a drop, pick, confirm or room change.
func (m Model) handleFlowMsg(msg commands.FlowMsg) (tea.Model, tea.Cmd) {
	LogFlowResult(msg.Op, msg.Result, msg.Err)
	if errors.Is(msg.Err, assign.ErrStaleResponse) {
		// Cancelled or superseded; whatever replaced it owns the busy state.
		return m, nil
	}
	m.busy = ""

	switch {
	case msg.Result.Settled != nil:
		s := *msg.Result.Settled
		m.closeReview()
		m.carry = nil
		m.clampCursors()
		if s.Outcome == assign.OutcomeCommitted {
			m.focusSlot(s.Target)
			return m, m.setStatus(committedStatus(s), false)
		}
		return m, m.setStatus(describeError(msg.Op, s.Err), true)

	case msg.Result.Review != nil:
		review := *msg.Result.Review
		if m.review == nil || !m.review.Original.Equal(review.Original) {
			m.explanation = nil
		}
		m.review = &review
		m.reviewSel = workingIndex(review)
		m.modalType = ModalReview
		return m, nil

	case msg.Err != nil:
		return m, m.setStatus(describeError(msg.Op, msg.Err), true)
	}
	return m, nil
}

func (m Model) handleErrMsg(msg commands.ErrMsg) (tea.Model, tea.Cmd) {
	LogError(msg.Op, msg.Err)
	switch msg.Op {
	case "load":
		if m.refreshing {
			m.refreshing = false
			// Background refresh failures stay quiet; the next tick retries.
			if errors.Is(msg.Err, assign.ErrBusy) {
				return m, nil
			}
		}
		m.busy = ""
	case "explain":
		m.explaining = false
	case "copy":
	case "cancel":
		if errors.Is(msg.Err, assign.ErrCommitInFlight) {
			// The verdict came back clear and the commit is out; wait for it.
			m.busy = busyCommitting
			return m, m.setStatus("Commit already sent; waiting for the service", true)
		}
		m.busy = ""
	default:
		m.busy = ""
	}
	return m, m.setStatus(describeError(msg.Op, msg.Err), true)
}

// setStatus shows a temporary status line.
func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	ttl := statusTTL
	if isErr {
		ttl = errorTTL
	}
	m.statusMsg = text
	m.statusErr = isErr
	m.statusTime = m.now().Add(ttl)
	return m.tick(ttl, func(time.Time) tea.Msg {
		return commands.ClearStatusMsg{}
	})
}

func (m *Model) closeReview() {
	m.review = nil
	m.reviewSel = 0
	m.explanation = nil
	m.explaining = false
	if m.modalType == ModalReview {
		m.modalType = ModalNone
	}
}

// focusSlot moves the grid cursor onto ref.
func (m *Model) focusSlot(ref exam.SlotRef) {
	pos, ok := positionOf(periodDays(m.snapshot()), ref)
	if !ok {
		return
	}
	m.cursor = pos
	m.focus = FocusGrid
	m.syncScroll()
}

func (m *Model) clampCursors() {
	snap := m.snapshot()
	rows := listRows(snap.Unscheduled)
	m.listCursor = clamp(m.listCursor, 0, len(rows)-1)
	m.cursor = clampPosition(snap, periodDays(snap), m.cursor)
	m.syncScroll()
}

// syncScroll keeps the cursor day inside the visible columns.
func (m *Model) syncScroll() {
	days := periodDays(m.snapshot())
	visible, _ := gridColumns(m.width, len(days))
	m.dayOffset = scrollFor(m.dayOffset, m.cursor.Day, visible)
}

// workingIndex returns the suggestion matching the working slot, or the
// first selectable one.
func workingIndex(r assign.Review) int {
	first := -1
	for i, s := range r.Suggestions {
		if s.SlotRef().Equal(r.Working) && s.Suggested {
			return i
		}
		if first < 0 && s.Suggested {
			first = i
		}
	}
	return max(first, 0)
}

func committedStatus(s assign.Settlement) string {
	label := s.Proposal.Entity.Label()
	if s.Proposal.Entity.Kind.IsRoomChange() {
		return fmt.Sprintf("Moved %s to room %s", label, s.Proposal.Entity.Room)
	}
	return fmt.Sprintf("Placed %s on %s (exam #%d)", label, s.Target, s.ExamID)
}

// describeError turns flow and service errors into a status line.
func describeError(op string, err error) string {
	if err == nil {
		return op + " failed"
	}
	var rejected *assign.RejectedError
	switch {
	case errors.As(err, &rejected):
		return rejected.Reason
	case errors.Is(err, assign.ErrBusy):
		return "Another request is still running"
	case errors.Is(err, api.ErrUnauthorized):
		return "Session rejected by the scheduling service; sign in again"
	case errors.Is(err, api.ErrVerificationFailed):
		if msg := api.Message(err); msg != "" {
			return "Verification failed: " + msg
		}
		return "Verification failed"
	}
	if msg := api.Message(err); msg != "" {
		return fmt.Sprintf("%s: %s", op, msg)
	}
	return fmt.Sprintf("%s: %v", op, err)
}
