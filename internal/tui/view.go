package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/javiermolinar/examdesk/internal/exam"
	"github.com/javiermolinar/examdesk/internal/store"
	"github.com/javiermolinar/examdesk/internal/tui/view"
)

// Lines taken by the header and the two footer lines.
const chromeLines = 3

// View renders the model.
func (m Model) View() string {
	if !m.loaded || m.width == 0 || m.height == 0 {
		return m.placeholder()
	}

	base := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderBody(),
		m.renderStatusLine(),
		m.renderHelpLine(),
	)

	state := view.ViewState{
		Width:        m.width,
		Height:       m.height,
		BaseContent:  base,
		ModalContent: m.renderModal(),
		ShowModal:    m.modalType != ModalNone,
		Overlay:      m.overlay,
	}
	if m.busy != "" {
		label := m.styles.BusyStyle.Render(m.busy + "...")
		if m.cancellable() {
			label += "  " + m.styles.HelpStyle.Render("esc cancel")
		}
		state.BusyContent = m.styles.ModalStyle.UnsetWidth().Render(label)
	}
	return view.Render(state)
}

func (m Model) placeholder() string {
	if m.statusErr {
		return m.styles.ErrorStyle.Render(m.statusMsg) + "\n" + m.styles.HelpStyle.Render("R retry  q quit")
	}
	return "Loading schedule..."
}

// phaseLabel names what the operator is doing right now.
func (m Model) phaseLabel() string {
	switch {
	case m.busy != "":
		return m.busy
	case m.review != nil:
		return "Conflict review"
	case m.carry != nil:
		return "Carrying"
	case m.refreshing:
		return "Refreshing"
	default:
		return "Idle"
	}
}

func (m Model) renderHeader() string {
	left := m.styles.TitleStyle.Render("examdesk")
	if m.operator != "" {
		left += "  " + m.styles.OperatorStyle.Render(m.operator)
	}
	snap := m.snapshot()
	left += "  " + m.styles.OperatorStyle.Render(fmt.Sprintf("%d exams, %d groups unscheduled", len(snap.AllExams()), snap.GroupCount()))
	right := m.styles.PhaseStyle.Render(m.phaseLabel())

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) bodyHeight() int {
	return max(m.height-chromeLines, 8)
}

func (m Model) renderBody() string {
	snap := m.snapshot()
	h := m.bodyHeight()

	listPane := m.styles.PaneStyle
	gridPane := m.styles.PaneStyle
	if m.focus == FocusList {
		listPane = m.styles.PaneFocusedStyle
	} else {
		gridPane = m.styles.PaneFocusedStyle
	}

	list := listPane.Width(listWidth - 2).Height(h - 2).Render(m.renderList(snap, h-2))
	grid := gridPane.Height(h - 2).Render(m.renderGrid(snap))
	return lipgloss.JoinHorizontal(lipgloss.Top, list, grid)
}

// renderList renders the unscheduled courses and their groups.
func (m Model) renderList(snap *store.Snapshot, height int) string {
	rows := listRows(snap.Unscheduled)
	width := listWidth - 2
	if len(rows) == 0 {
		return m.styles.EmptyCellStyle.Render(view.Fit("Everything is scheduled", width))
	}

	offset := 0
	if m.listCursor >= height {
		offset = m.listCursor - height + 1
	}

	lines := make([]string, 0, height)
	for i := offset; i < len(rows) && len(lines) < height; i++ {
		row := rows[i]
		var text string
		style := m.styles.ListGroupStyle
		if row.Group == nil {
			text = fmt.Sprintf("%s (%d)", row.Course.Title, row.Course.StudentCount())
			style = m.styles.ListCourseStyle
		} else {
			text = fmt.Sprintf("  %s  %d students", row.Group.GroupName, row.Group.StudentCount)
		}
		switch {
		case m.focus == FocusList && i == m.listCursor:
			style = m.styles.ListSelectedStyle
		case m.isCarried(row):
			style = m.styles.ListCarriedStyle
		}
		lines = append(lines, style.Render(view.Fit(text, width)))
	}
	return strings.Join(lines, "\n")
}

// isCarried reports whether row is the entity being carried.
func (m Model) isCarried(row listRow) bool {
	if m.carry == nil {
		return false
	}
	if row.Group == nil {
		return m.carry.Kind == exam.KindCourse && m.carry.Group.CourseID == row.Course.CourseID
	}
	return m.carry.Group.ID == row.Group.ID
}

// renderGrid renders the visible days as columns and the slots as rows.
func (m Model) renderGrid(snap *store.Snapshot) string {
	days := periodDays(snap)
	if len(days) == 0 {
		return m.styles.EmptyCellStyle.Render("No exam period configured")
	}
	visible, colWidth := gridColumns(m.width, len(days))
	first := clamp(m.dayOffset, 0, len(days)-visible)
	shown := days[first : first+visible]

	var b strings.Builder
	header := []string{view.Fit("", slotLabelWidth)}
	for _, d := range shown {
		header = append(header, m.styles.DayHeaderStyle.Render(view.Fit(d.Format("Mon 02 Jan"), colWidth)))
	}
	b.WriteString(strings.Join(header, " "))

	for si, name := range exam.SlotNames {
		for line := 0; line <= maxExamsPerBlock; line++ {
			cells := []string{m.slotLabel(name, line)}
			for di, d := range shown {
				pos := Position{Day: first + di, Slot: si}
				cells = append(cells, m.renderCell(snap, exam.NewSlotRef(d, name), pos, line, colWidth))
			}
			b.WriteString("\n")
			b.WriteString(strings.Join(cells, " "))
		}
	}
	return b.String()
}

func (m Model) slotLabel(name exam.SlotName, line int) string {
	if line == 0 {
		return m.styles.SlotLabelStyle.Render(view.Fit(string(name), slotLabelWidth))
	}
	return view.Fit("", slotLabelWidth)
}

// renderCell renders one line of a slot cell. Line 0 is the slot window,
// the rest list the exams placed there.
func (m Model) renderCell(snap *store.Snapshot, ref exam.SlotRef, pos Position, line, width int) string {
	onCursor := m.focus == FocusGrid && m.cursor.Day == pos.Day && m.cursor.Slot == pos.Slot

	if line == 0 {
		w := snap.Window(ref, m.config.Windows())
		text := fmt.Sprintf("%s-%s", w.Start, w.End)
		style := m.styles.SlotWindowStyle
		switch {
		case m.review != nil && m.review.Working.Equal(ref):
			text = "> " + text
			style = m.styles.TargetStyle
		case m.review != nil && m.review.Original.Equal(ref):
			style = m.styles.OriginalStyle
		case m.carry != nil && onCursor:
			text = "drop " + text
			style = m.styles.CursorCarryStyle
		}
		return style.Render(view.Fit(text, width))
	}

	exams := snap.ExamsIn(ref)
	start := 0
	if onCursor && m.cursor.Item >= maxExamsPerBlock {
		start = m.cursor.Item - maxExamsPerBlock + 1
	}
	idx := start + line - 1

	if len(exams) == 0 {
		if line == 1 && onCursor && m.carry == nil {
			return m.styles.CursorStyle.Render(view.Fit(" empty", width))
		}
		return view.Fit("", width)
	}
	if idx >= len(exams) {
		return view.Fit("", width)
	}
	if line == maxExamsPerBlock && idx < len(exams)-1 && !(onCursor && m.cursor.Item == idx) {
		return m.styles.EmptyCellStyle.Render(view.Fit(fmt.Sprintf(" +%d more", len(exams)-idx), width))
	}

	e := exams[idx]
	text := examLabel(e)
	style := m.styles.ExamStyle
	if idx%2 == 1 {
		style = m.styles.ExamAltStyle
	}
	switch {
	case m.carry != nil && m.carry.Exam != nil && m.carry.Exam.ID == e.ID:
		style = m.styles.GhostStyle
	case onCursor && m.carry == nil && m.cursor.Item == idx:
		style = m.styles.CursorStyle
	}
	return style.Render(view.Fit(text, width))
}

func examLabel(e exam.ScheduledExam) string {
	if e.Room == "" {
		return e.Group.Label()
	}
	return e.Group.Label() + " " + e.Room
}

func (m Model) renderStatusLine() string {
	var parts []string
	if m.carry != nil {
		parts = append(parts, m.styles.CarryBannerStyle.Render("Carrying "+m.carry.Label()))
	}
	if m.statusMsg != "" {
		style := m.styles.StatusStyle
		if m.statusErr {
			style = m.styles.ErrorStyle
		}
		parts = append(parts, style.Render(m.statusMsg))
	}
	return strings.Join(parts, " ")
}

func (m Model) renderHelpLine() string {
	var hints []view.KeyHint
	switch {
	case m.carry != nil:
		hints = []view.KeyHint{{Key: "hjkl", Desc: "move"}, {Key: "enter", Desc: "drop"}, {Key: "esc", Desc: "cancel"}}
	case m.focus == FocusList:
		hints = []view.KeyHint{{Key: "jk", Desc: "move"}, {Key: "enter", Desc: "carry"}, {Key: "tab", Desc: "grid"}, {Key: "R", Desc: "refresh"}, {Key: "q", Desc: "quit"}}
	default:
		hints = []view.KeyHint{
			{Key: "hjkl", Desc: "move"}, {Key: "enter", Desc: "carry"}, {Key: "r", Desc: "room"},
			{Key: "t", Desc: "slot time"}, {Key: "x", Desc: "remove"}, {Key: "tab", Desc: "list"},
			{Key: "R", Desc: "refresh"}, {Key: "q", Desc: "quit"},
		}
	}
	return view.RenderHints(hints, m.styles.HelpKeyStyle, m.styles.HelpStyle)
}
