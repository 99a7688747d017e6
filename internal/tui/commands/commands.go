// Package commands provides TUI command constructors and message types.
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/examdesk/internal/assign"
	"github.com/javiermolinar/examdesk/internal/exam"
	"github.com/javiermolinar/examdesk/internal/llm"
)

// LoadedMsg is sent when the schedule has been fetched into the store.
type LoadedMsg struct {
	Background bool // periodic refresh rather than an operator request
}

// FlowMsg carries the outcome of one step of the conflict review flow.
type FlowMsg struct {
	Op     string
	Result assign.Result
	Err    error
}

// CancelledMsg is sent when a carry or review has been abandoned.
type CancelledMsg struct {
	Settlement assign.Settlement
}

// RemovedMsg is sent when an exam has been unscheduled.
type RemovedMsg struct {
	Label string
}

// SlotTimeMsg is sent when a slot window has been changed.
type SlotTimeMsg struct {
	Slot exam.SlotRef
}

// RefreshTickMsg triggers a background refresh.
type RefreshTickMsg struct{}

// ExplainedMsg carries a plain-language conflict explanation.
type ExplainedMsg struct {
	Explanation *llm.Explanation
}

// CopiedMsg is sent when the conflict report is on the clipboard.
type CopiedMsg struct{}

// ErrMsg is sent when an error occurs.
type ErrMsg struct {
	Op  string
	Err error
}

// StatusMsgCmd is sent for temporary status messages.
type StatusMsgCmd struct {
	Msg string
}

// ClearStatusMsg is sent to clear the status message.
type ClearStatusMsg struct{}

// Load fetches the schedule.
func Load(c *assign.Console, background bool) tea.Cmd {
	return func() tea.Msg {
		if err := c.Load(context.Background()); err != nil {
			return ErrMsg{Op: "load", Err: err}
		}
		return LoadedMsg{Background: background}
	}
}

// Drop drops the carried entity on ref and verifies it.
func Drop(c *assign.Console, ref exam.SlotRef) tea.Cmd {
	return func() tea.Msg {
		res, err := c.Drop(context.Background(), ref.DayKey(), string(ref.Name))
		return FlowMsg{Op: "drop", Result: res, Err: err}
	}
}

// ChangeRoom proposes a room change for a scheduled group.
func ChangeRoom(c *assign.Console, groupID int64, room string, students []exam.Student) tea.Cmd {
	return func() tea.Msg {
		res, err := c.ChangeRoom(context.Background(), groupID, room, students)
		return FlowMsg{Op: "room", Result: res, Err: err}
	}
}

// Pick re-verifies the suggestion at index i.
func Pick(c *assign.Console, i int) tea.Cmd {
	return func() tea.Msg {
		res, err := c.Pick(context.Background(), i)
		return FlowMsg{Op: "pick", Result: res, Err: err}
	}
}

// Confirm commits the working slot of the open review.
func Confirm(c *assign.Console) tea.Cmd {
	return func() tea.Msg {
		res, err := c.Confirm(context.Background())
		return FlowMsg{Op: "confirm", Result: res, Err: err}
	}
}

// Cancel abandons the carry or review.
func Cancel(c *assign.Console) tea.Cmd {
	return func() tea.Msg {
		s, err := c.Cancel(context.Background())
		if err != nil {
			return ErrMsg{Op: "cancel", Err: err}
		}
		return CancelledMsg{Settlement: s}
	}
}

// Remove unschedules the exam of groupID.
func Remove(c *assign.Console, groupID int64, label string) tea.Cmd {
	return func() tea.Msg {
		if err := c.Remove(context.Background(), groupID); err != nil {
			return ErrMsg{Op: "remove", Err: err}
		}
		return RemovedMsg{Label: label}
	}
}

// EditSlotTime changes the window of ref.
func EditSlotTime(c *assign.Console, ref exam.SlotRef, start, end string) tea.Cmd {
	return func() tea.Msg {
		if err := c.EditSlotTime(context.Background(), ref, start, end); err != nil {
			return ErrMsg{Op: "slot time", Err: err}
		}
		return SlotTimeMsg{Slot: ref}
	}
}

// RefreshAfter schedules the next background refresh.
func RefreshAfter(d time.Duration) tea.Cmd {
	if d <= 0 {
		return nil
	}
	return tea.Tick(d, func(time.Time) tea.Msg {
		return RefreshTickMsg{}
	})
}

// Explain asks the model to describe a conflict report.
func Explain(e *llm.Explainer, r llm.ConflictReport) tea.Cmd {
	return func() tea.Msg {
		if e == nil {
			return ErrMsg{Op: "explain", Err: llm.ErrDisabled}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		out, err := e.Explain(ctx, r)
		if err != nil {
			return ErrMsg{Op: "explain", Err: err}
		}
		return ExplainedMsg{Explanation: out}
	}
}

// CopyReport puts text on the system clipboard.
func CopyReport(text string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return ErrMsg{Op: "copy", Err: fmt.Errorf("copying to clipboard: %w", err)}
		}
		return CopiedMsg{}
	}
}
