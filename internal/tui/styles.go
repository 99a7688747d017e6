// Package tui provides the terminal user interface for examdesk.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/javiermolinar/examdesk/internal/tui/theme"
	"github.com/javiermolinar/examdesk/internal/tui/view"
)

// Column widths before the terminal size is known.
const (
	defaultColWidth  = 22
	listWidth        = 30
	minColWidth      = 16
	slotLabelWidth   = 11
	maxExamsPerBlock = 4
)

// Styles holds all lipgloss styles for the TUI, derived from a theme.
type Styles struct {
	palette *theme.Palette

	TitleStyle    lipgloss.Style
	OperatorStyle lipgloss.Style
	PhaseStyle    lipgloss.Style

	DayHeaderStyle     lipgloss.Style
	SlotLabelStyle     lipgloss.Style
	SlotWindowStyle    lipgloss.Style
	EmptyCellStyle     lipgloss.Style
	ExamStyle          lipgloss.Style
	ExamAltStyle       lipgloss.Style
	GhostStyle         lipgloss.Style // carried exam at its source slot
	TargetStyle        lipgloss.Style // working slot of the open review
	OriginalStyle      lipgloss.Style // slot the operator dropped on
	CursorStyle        lipgloss.Style
	CursorCarryStyle   lipgloss.Style
	SeparatorStyle     lipgloss.Style
	PaneStyle          lipgloss.Style
	PaneFocusedStyle   lipgloss.Style
	ListCourseStyle    lipgloss.Style
	ListGroupStyle     lipgloss.Style
	ListSelectedStyle  lipgloss.Style
	ListCarriedStyle   lipgloss.Style
	CarryBannerStyle   lipgloss.Style
	StatusStyle        lipgloss.Style
	ErrorStyle         lipgloss.Style
	HelpStyle          lipgloss.Style
	HelpKeyStyle       lipgloss.Style
	BusyStyle          lipgloss.Style
	ConflictStyle      lipgloss.Style
	SuggestionStyle    lipgloss.Style
	SuggestionOffStyle lipgloss.Style
	SuggestionSelStyle lipgloss.Style

	ModalStyle             lipgloss.Style
	ModalHeaderStyle       lipgloss.Style
	ModalTitleStyle        lipgloss.Style
	ModalFooterStyle       lipgloss.Style
	ModalBodyStyle         lipgloss.Style
	ModalLabelStyle        lipgloss.Style
	ModalHintStyle         lipgloss.Style
	ModalInputStyle        lipgloss.Style
	ModalInputFocusedStyle lipgloss.Style
	ModalInputTextStyle    lipgloss.Style
	ModalPlaceholderStyle  lipgloss.Style
	ModalButtonStyle       lipgloss.Style
	ModalButtonActiveStyle lipgloss.Style
	ModalBgColor           lipgloss.Color
}

// NewStyles creates a new Styles instance from a theme.
func NewStyles(t *theme.Theme) *Styles {
	p := theme.NewPalette(t)
	s := &Styles{palette: p}

	s.TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(p.Accent)
	s.OperatorStyle = lipgloss.NewStyle().Foreground(p.Subtle)
	s.PhaseStyle = lipgloss.NewStyle().Foreground(p.OnAccent).Background(p.Accent).Padding(0, 1)

	s.DayHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(p.Text)
	s.SlotLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(p.Text)
	s.SlotWindowStyle = lipgloss.NewStyle().Foreground(p.Subtle)
	s.EmptyCellStyle = lipgloss.NewStyle().Foreground(p.Subtle)
	s.ExamStyle = lipgloss.NewStyle().Foreground(p.OnExam).Background(p.Exam)
	s.ExamAltStyle = lipgloss.NewStyle().Foreground(p.OnExam).Background(p.ExamAlt)
	s.GhostStyle = lipgloss.NewStyle().Foreground(p.Subtle).Background(p.Ghost).Italic(true)
	s.TargetStyle = lipgloss.NewStyle().Foreground(p.OnWorking).Background(p.Working).Bold(true)
	s.OriginalStyle = lipgloss.NewStyle().Foreground(p.OnClash).Background(p.Clash)
	s.CursorStyle = lipgloss.NewStyle().Foreground(p.Text).Background(p.Selection).Bold(true)
	s.CursorCarryStyle = lipgloss.NewStyle().Foreground(p.OnCarry).Background(p.Carry).Bold(true)
	s.SeparatorStyle = lipgloss.NewStyle().Foreground(p.Selection)
	s.PaneStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.Selection)
	s.PaneFocusedStyle = s.PaneStyle.BorderForeground(p.Accent)
	s.ListCourseStyle = lipgloss.NewStyle().Bold(true).Foreground(p.Text)
	s.ListGroupStyle = lipgloss.NewStyle().Foreground(p.Text)
	s.ListSelectedStyle = lipgloss.NewStyle().Foreground(p.Text).Background(p.Selection)
	s.ListCarriedStyle = lipgloss.NewStyle().Foreground(p.OnCarry).Background(p.Carry)
	s.CarryBannerStyle = lipgloss.NewStyle().Foreground(p.OnCarry).Background(p.Carry).Padding(0, 1)
	s.StatusStyle = lipgloss.NewStyle().Foreground(p.Target)
	s.ErrorStyle = lipgloss.NewStyle().Foreground(p.Conflict)
	s.HelpStyle = lipgloss.NewStyle().Foreground(p.Subtle)
	s.HelpKeyStyle = lipgloss.NewStyle().Foreground(p.Accent)
	s.BusyStyle = lipgloss.NewStyle().Foreground(p.Accent).Bold(true)
	s.ConflictStyle = lipgloss.NewStyle().Foreground(p.Conflict)
	s.SuggestionStyle = lipgloss.NewStyle().Foreground(p.Dialog.Text)
	s.SuggestionOffStyle = lipgloss.NewStyle().Foreground(p.Dialog.Subtle)
	s.SuggestionSelStyle = lipgloss.NewStyle().Foreground(p.OnWorking).Background(p.Working)

	s.ModalBgColor = p.Dialog.Bg
	s.ModalStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Dialog.Border).
		Padding(1, 2).
		Width(64)
	s.ModalHeaderStyle = lipgloss.NewStyle()
	s.ModalTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(p.Accent)
	s.ModalFooterStyle = lipgloss.NewStyle().Foreground(p.Dialog.Subtle)
	s.ModalBodyStyle = lipgloss.NewStyle().Foreground(p.Dialog.Text)
	s.ModalLabelStyle = lipgloss.NewStyle().Foreground(p.Dialog.Subtle).Width(10)
	s.ModalHintStyle = lipgloss.NewStyle().Foreground(p.Dialog.Subtle).Italic(true)
	s.ModalInputStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, true, false).BorderForeground(p.Dialog.Subtle)
	s.ModalInputFocusedStyle = s.ModalInputStyle.BorderForeground(p.Accent)
	s.ModalInputTextStyle = lipgloss.NewStyle().Foreground(p.Dialog.Text)
	s.ModalPlaceholderStyle = lipgloss.NewStyle().Foreground(p.Dialog.Subtle)
	s.ModalButtonStyle = lipgloss.NewStyle().Foreground(p.Dialog.Text).Background(p.Selection).Padding(0, 2)
	s.ModalButtonActiveStyle = lipgloss.NewStyle().Foreground(p.OnAccent).Background(p.Accent).Padding(0, 2)

	return s
}

// Palette returns the colors the styles were built from.
func (s *Styles) Palette() *theme.Palette {
	return s.palette
}

// ModalStyles returns the subset needed by the view package.
func (s *Styles) ModalStyles() view.ModalStyles {
	return view.ModalStyles{
		ModalHeaderStyle:       s.ModalHeaderStyle,
		ModalTitleStyle:        s.ModalTitleStyle,
		ModalFooterStyle:       s.ModalFooterStyle,
		ModalStyle:             s.ModalStyle,
		ModalButtonStyle:       s.ModalButtonStyle,
		ModalButtonActiveStyle: s.ModalButtonActiveStyle,
		ModalBodyStyle:         s.ModalBodyStyle,
	}
}
