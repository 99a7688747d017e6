package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Margin around overlay content, in cells.
const (
	overlayPadX = 2
	overlayPadY = 1
)

// Overlay draws content in an opaque box centred over the base view. It
// backs the conflict dialog, the edit forms and the busy indicator.
type Overlay struct {
	bgColor lipgloss.Color
}

// NewOverlay creates an overlay filled with bg.
func NewOverlay(bg lipgloss.Color) Overlay {
	return Overlay{bgColor: bg}
}

// Render draws content over base, which is width by height cells.
func (o Overlay) Render(base string, width, height int, content string) string {
	if width <= 0 || height <= 0 {
		return base
	}
	contentLines := splitContent(content)
	if len(contentLines) == 0 {
		return base
	}

	contentW := 0
	for _, line := range contentLines {
		contentW = max(contentW, lipgloss.Width(line))
	}
	boxW := min(contentW+2*overlayPadX, width)
	boxH := min(len(contentLines)+2*overlayPadY, height)
	top := (height - boxH) / 2
	left := (width - boxW) / 2

	box := o.box(contentLines, contentW, boxW, boxH)
	baseLines := fitLines(base, width, height)
	for i, line := range box {
		row := top + i
		baseLines[row] = ansi.Cut(baseLines[row], 0, left) + line + ansi.Cut(baseLines[row], left+boxW, width)
	}
	return strings.Join(baseLines, "\n")
}

// box renders the filled box with content centred inside it.
func (o Overlay) box(content []string, contentW, boxW, boxH int) []string {
	bg := o.bgSeq()
	blank := bg + strings.Repeat(" ", boxW) + ansi.ResetStyle
	innerW := min(contentW, boxW)
	padLeft := (boxW - innerW) / 2
	padRight := boxW - innerW - padLeft
	innerH := min(len(content), boxH)
	padTop := (boxH - innerH) / 2

	lines := make([]string, boxH)
	for i := range lines {
		idx := i - padTop
		if idx < 0 || idx >= innerH {
			lines[i] = blank
			continue
		}
		line := content[idx]
		if w := lipgloss.Width(line); w > innerW {
			line = ansi.Cut(line, 0, innerW)
		} else if w < innerW {
			line += strings.Repeat(" ", innerW-w)
		}
		// Keep the fill colour after any reset inside the content.
		if bg != "" {
			line = strings.ReplaceAll(line, ansi.ResetStyle, ansi.ResetStyle+bg)
			line = strings.ReplaceAll(line, "\x1b[0m", "\x1b[0m"+bg)
			line = strings.ReplaceAll(line, "\x1b[49m", "\x1b[49m"+bg)
		}
		lines[i] = bg + strings.Repeat(" ", padLeft) + line + bg + strings.Repeat(" ", padRight) + ansi.ResetStyle
	}
	return lines
}

func (o Overlay) bgSeq() string {
	if o.bgColor == "" {
		return ""
	}
	return ansi.Style{}.BackgroundColor(ansi.HexColor(string(o.bgColor))).String()
}

func splitContent(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// fitLines pads or cuts base to exactly height lines of width cells.
func fitLines(base string, width, height int) []string {
	lines := strings.Split(base, "\n")
	for len(lines) < height {
		lines = append(lines, "")
	}
	lines = lines[:height]
	for i, line := range lines {
		w := lipgloss.Width(line)
		switch {
		case w > width:
			lines[i] = ansi.Cut(line, 0, width)
		case w < width:
			lines[i] = line + strings.Repeat(" ", width-w)
		}
	}
	return lines
}
