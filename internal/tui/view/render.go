// Package view provides view composition helpers for the TUI.
package view

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// OverlayRenderer renders content centred on top of base content.
type OverlayRenderer interface {
	Render(base string, width, height int, content string) string
}

// ViewState contains pre-rendered content and overlay metadata.
type ViewState struct {
	Width        int
	Height       int
	BaseContent  string
	ModalContent string
	ShowModal    bool
	BusyContent  string // drawn above any modal while a request is in flight
	Overlay      OverlayRenderer
	Placeholder  string
}

// Render composes the final view output.
func Render(state ViewState) string {
	if state.Width == 0 || state.Height == 0 {
		if state.Placeholder != "" {
			return state.Placeholder
		}
		return "Loading..."
	}

	out := state.BaseContent
	if state.Overlay == nil {
		return out
	}
	if state.ShowModal {
		out = state.Overlay.Render(out, state.Width, state.Height, state.ModalContent)
	}
	if state.BusyContent != "" {
		out = state.Overlay.Render(out, state.Width, state.Height, state.BusyContent)
	}
	return out
}

// KeyHint is one entry of a help line.
type KeyHint struct {
	Key  string
	Desc string
}

// RenderHints renders "key desc" pairs separated by two spaces.
func RenderHints(hints []KeyHint, keyStyle, descStyle lipgloss.Style) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, keyStyle.Render(h.Key)+" "+descStyle.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}

// Fit truncates s to width cells, adding an ellipsis, and pads it to width.
func Fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) > width {
		s = ansi.Truncate(s, width, "…")
	}
	if pad := width - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}
