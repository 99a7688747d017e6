package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/javiermolinar/examdesk/internal/exam"
	"github.com/javiermolinar/examdesk/internal/llm"
	"github.com/javiermolinar/examdesk/internal/tui/view"
)

// Text width inside the modal frame.
const modalTextWidth = 58

// renderModal renders the current modal.
func (m Model) renderModal() string {
	switch m.modalType {
	case ModalReview:
		return m.renderReviewModal()
	case ModalConfirmRemove:
		return m.renderConfirmRemoveModal()
	case ModalSlotTime:
		return m.renderSlotTimeModal()
	case ModalRoom:
		return m.renderRoomModal()
	default:
		return ""
	}
}

// renderReviewModal renders the conflict dialog: what clashes, where the
// entity would land now, and the alternatives the service offered.
func (m Model) renderReviewModal() string {
	r := m.review
	if r == nil {
		return ""
	}
	s := m.styles
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", s.ModalLabelStyle.Render("Dropped on"), s.OriginalStyle.Render(" "+r.Original.String()+" "))
	fmt.Fprintf(&b, "%s %s\n", s.ModalLabelStyle.Render("Working"), s.TargetStyle.Render(" "+r.Working.String()+" "))

	b.WriteString("\n")
	b.WriteString(s.ConflictStyle.Render(fmt.Sprintf("%d conflicts", len(r.Conflicts))))
	b.WriteString("\n")
	for _, line := range strings.Split(strings.TrimRight(llm.FormatConflicts(r.Conflicts), "\n"), "\n") {
		if line == "" {
			continue
		}
		b.WriteString(s.ModalBodyStyle.Render(view.Fit(line, modalTextWidth)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if len(r.Suggestions) == 0 {
		b.WriteString(s.ModalHintStyle.Render("No alternatives offered"))
		b.WriteString("\n")
	}
	for i, sug := range r.Suggestions {
		b.WriteString(m.renderSuggestion(r.Best, sug, i == m.reviewSel))
		b.WriteString("\n")
	}

	switch {
	case m.explaining:
		b.WriteString("\n")
		b.WriteString(s.ModalHintStyle.Render("Asking for an explanation..."))
	case m.explanation != nil:
		b.WriteString("\n")
		b.WriteString(renderExplanation(m.explanation, s.ModalBodyStyle))
	}

	footer := view.RenderHints([]view.KeyHint{
		{Key: "jk", Desc: "select"},
		{Key: "enter", Desc: "check"},
		{Key: "c", Desc: "confirm"},
		{Key: "e", Desc: "explain"},
		{Key: "y", Desc: "copy"},
		{Key: "esc", Desc: "cancel"},
	}, s.HelpKeyStyle, s.ModalFooterStyle)

	title := "Conflicts"
	if m.subject != "" {
		title += ": " + m.subject
	}
	return view.RenderModalFrame(title, strings.TrimRight(b.String(), "\n"), footer, s.ModalStyles())
}

func (m Model) renderSuggestion(best *exam.Suggestion, sug exam.Suggestion, selected bool) string {
	s := m.styles
	marker := "  "
	if selected {
		marker = "> "
	}
	text := marker + sug.SlotRef().String()
	if sug.Room != "" {
		text += " room " + sug.Room
	}
	if best != nil && best.SlotRef().Equal(sug.SlotRef()) && best.Room == sug.Room {
		text += " (best)"
	}
	if sug.Reason != "" {
		text += ": " + sug.Reason
	}
	text = view.Fit(text, modalTextWidth)

	switch {
	case selected:
		return s.SuggestionSelStyle.Render(text)
	case !sug.Suggested:
		return s.SuggestionOffStyle.Render(text)
	default:
		return s.SuggestionStyle.Render(text)
	}
}

func renderExplanation(e *llm.Explanation, style lipgloss.Style) string {
	wrap := style.Width(modalTextWidth)
	parts := []string{wrap.Render(e.Summary)}
	for _, a := range e.Advice {
		parts = append(parts, wrap.Render("- "+a))
	}
	return strings.Join(parts, "\n")
}

func (m Model) renderConfirmRemoveModal() string {
	e := m.removeExam
	body := m.styles.ModalBodyStyle.Render(fmt.Sprintf("Unschedule %s from %s?", e.Group.Label(), e.Slot))
	if e.Room != "" {
		body += "\n" + m.styles.ModalHintStyle.Render("Room "+e.Room+" will be released.")
	}
	footer := view.RenderModalButtons(m.styles.ModalStyles(), "y Remove", "n Keep")
	return view.RenderModalFrame("Remove exam", body, footer, m.styles.ModalStyles())
}

func (m Model) renderSlotTimeModal() string {
	body := m.renderInputs([]string{"Start", "End"}, "")
	return view.RenderModalFrame("Slot window: "+m.editSlot.String(), body, m.formFooter(), m.styles.ModalStyles())
}

func (m Model) renderRoomModal() string {
	body := m.renderInputs([]string{"Room", "Students"}, "Leave students empty to move the whole group.")
	return view.RenderModalFrame("Change room: "+m.roomExam.Group.Label(), body, m.formFooter(), m.styles.ModalStyles())
}

func (m Model) renderInputs(labels []string, hint string) string {
	s := m.styles
	rows := make([]string, 0, len(m.inputs)+1)
	for i, in := range m.inputs {
		box := s.ModalInputStyle
		if i == m.inputFocus {
			box = s.ModalInputFocusedStyle
		}
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Bottom, s.ModalLabelStyle.Render(label), box.Render(in.View())))
	}
	if hint != "" {
		rows = append(rows, s.ModalHintStyle.Render(hint))
	}
	return strings.Join(rows, "\n")
}

func (m Model) formFooter() string {
	return view.RenderHints([]view.KeyHint{
		{Key: "tab", Desc: "next"},
		{Key: "enter", Desc: "save"},
		{Key: "esc", Desc: "close"},
	}, m.styles.HelpKeyStyle, m.styles.ModalFooterStyle)
}
