package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/examdesk/internal/assign"
	"github.com/javiermolinar/examdesk/internal/config"
	"github.com/javiermolinar/examdesk/internal/exam"
	"github.com/javiermolinar/examdesk/internal/llm"
	"github.com/javiermolinar/examdesk/internal/store"
	"github.com/javiermolinar/examdesk/internal/tui/commands"
	"github.com/javiermolinar/examdesk/internal/tui/theme"
)

// Focus identifies the pane receiving navigation keys.
type Focus int

const (
	FocusList Focus = iota // unscheduled courses
	FocusGrid
)

// ModalType identifies the type of modal.
type ModalType int

const (
	ModalNone          ModalType = iota
	ModalReview                  // conflicts and suggestions
	ModalConfirmRemove           // unschedule an exam
	ModalSlotTime                // edit a slot window
	ModalRoom                    // change room or split students
)

// Model is the main TUI model.
//
// Console calls hold the console lock for the whole request, so the model
// never reads flow state from the console. It mirrors carry and review
// state from the messages each command returns instead.
type Model struct {
	// Dependencies
	console   *assign.Console
	config    *config.Config
	explainer *llm.Explainer
	operator  string
	now       func() time.Time

	// Theme and styles
	theme   *theme.Theme
	styles  *Styles
	overlay Overlay

	// Navigation
	focus      Focus
	listCursor int
	cursor     Position
	dayOffset  int

	// Mirrored flow state
	loaded     bool
	busy       string // label of the request in flight, empty when idle
	refreshing bool   // background refresh in flight
	carry      *exam.Entity
	review     *assign.Review
	reviewSel  int
	subject    string // label of the entity under review

	// Modal state
	modalType   ModalType
	removeExam  exam.ScheduledExam
	editSlot    exam.SlotRef
	roomExam    exam.ScheduledExam
	inputs      []textinput.Model
	inputFocus  int
	explanation *llm.Explanation
	explaining  bool

	refreshEvery time.Duration
	tick         func(time.Duration, func(time.Time) tea.Msg) tea.Cmd

	// Terminal dimensions
	width  int
	height int

	// Messages
	statusMsg  string
	statusErr  bool
	statusTime time.Time
}

// ModelOption configures optional model behavior.
type ModelOption func(*Model)

// WithExplainer enables plain-language conflict explanations.
func WithExplainer(e *llm.Explainer) ModelOption {
	return func(m *Model) { m.explainer = e }
}

// WithOperator shows the signed-in operator in the header.
func WithOperator(name string) ModelOption {
	return func(m *Model) { m.operator = name }
}

// WithRefreshInterval refreshes the schedule while idle. Zero disables it.
func WithRefreshInterval(d time.Duration) ModelOption {
	return func(m *Model) { m.refreshEvery = d }
}

// WithClock overrides the clock used for status expiry.
func WithClock(now func() time.Time) ModelOption {
	return func(m *Model) { m.now = now }
}

// New creates a new TUI model.
func New(console *assign.Console, cfg *config.Config, opts ...ModelOption) Model {
	t, err := theme.Load(cfg.UI.Theme)
	if err != nil {
		t, _ = theme.Load("mocha")
	}
	styles := NewStyles(t)

	m := Model{
		console: console,
		config:  cfg,
		now:     time.Now,
		tick:    tea.Tick,
		theme:   t,
		styles:  styles,
		overlay: NewOverlay(styles.ModalBgColor),
		focus:   FocusList,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init loads the schedule and starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(commands.Load(m.console, false), commands.RefreshAfter(m.refreshEvery))
}

// snapshot returns the schedule currently published by the store.
func (m Model) snapshot() *store.Snapshot {
	return m.console.Store().Snapshot()
}

// idle reports whether no request is in flight and no modal is open.
func (m Model) idle() bool {
	return m.busy == "" && !m.refreshing && m.modalType == ModalNone
}

// Run starts the TUI.
func Run(console *assign.Console, cfg *config.Config, opts ...ModelOption) error {
	return RunWithDebug(console, cfg, false, opts...)
}

// RunWithDebug starts the TUI with optional debug logging.
func RunWithDebug(console *assign.Console, cfg *config.Config, debug bool, opts ...ModelOption) error {
	if err := InitDebugLogger(debug); err != nil {
		return err
	}
	defer CloseDebugLogger()

	p := tea.NewProgram(New(console, cfg, opts...), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
