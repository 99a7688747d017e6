package theme

import (
	"fmt"
	"math"
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

// Palette holds the lipgloss colours the grid is drawn with.
type Palette struct {
	Text      lipgloss.Color
	Subtle    lipgloss.Color
	Accent    lipgloss.Color
	Selection lipgloss.Color
	Target    lipgloss.Color // status line foreground
	Conflict  lipgloss.Color // error and clash foreground

	// Block backgrounds.
	Exam    lipgloss.Color
	ExamAlt lipgloss.Color // every other exam in a slot
	Ghost   lipgloss.Color // source slot of a carried exam
	Carry   lipgloss.Color
	Working lipgloss.Color // working slot of a review
	Clash   lipgloss.Color // slot the operator dropped on

	// Text drawn over the matching background.
	OnAccent  lipgloss.Color
	OnExam    lipgloss.Color
	OnCarry   lipgloss.Color
	OnWorking lipgloss.Color
	OnClash   lipgloss.Color

	Dialog DialogColors
}

// DialogColors are the modal dialog colours.
type DialogColors struct {
	Bg     lipgloss.Color
	Border lipgloss.Color
	Text   lipgloss.Color
	Subtle lipgloss.Color
}

// shading turns a role colour into a block background: scaled towards
// black with a floor on dark themes, mixed into the background on light
// ones.
type shading struct {
	scale, floor float64
	mix          float64
}

var (
	blockShading = shading{scale: 0.50, floor: 40, mix: 0.75}
	ghostShading = shading{scale: 0.30, floor: 30, mix: 0.88}
)

func (s shading) apply(c, bg rgb, light bool) rgb {
	if light {
		return c.mix(bg, s.mix)
	}
	return c.scaled(s.scale, s.floor)
}

// NewPalette derives the palette of t. A nil theme uses DefaultName.
func NewPalette(t *Theme) *Palette {
	if t == nil {
		t, _ = Load(DefaultName)
	}
	bg, text := mustRGB(t.Background), mustRGB(t.Text)
	light := bg.luminance() > 0.55

	exam := blockShading.apply(mustRGB(t.Exam), bg, light)
	carry := blockShading.apply(mustRGB(t.Carry), bg, light)
	working := blockShading.apply(mustRGB(t.Target), bg, light)
	clash := blockShading.apply(mustRGB(t.Conflict), bg, light)
	ghost := ghostShading.apply(mustRGB(t.Carry), bg, light)

	examAlt := exam.mix(rgb{255, 255, 255}, 0.30)
	if light {
		examAlt = exam.mix(rgb{}, 0.10)
	}

	on := func(c rgb) lipgloss.Color { return lipgloss.Color(readableOn(c, bg, text).hex()) }
	return &Palette{
		Text:      lipgloss.Color(t.Text),
		Subtle:    lipgloss.Color(t.Subtle),
		Accent:    lipgloss.Color(t.Accent),
		Selection: lipgloss.Color(t.Selection),
		Target:    lipgloss.Color(t.Target),
		Conflict:  lipgloss.Color(t.Conflict),

		Exam:    lipgloss.Color(exam.hex()),
		ExamAlt: lipgloss.Color(examAlt.hex()),
		Ghost:   lipgloss.Color(ghost.hex()),
		Carry:   lipgloss.Color(carry.hex()),
		Working: lipgloss.Color(working.hex()),
		Clash:   lipgloss.Color(clash.hex()),

		OnAccent:  on(mustRGB(t.Accent)),
		OnExam:    on(exam),
		OnCarry:   on(carry),
		OnWorking: on(working),
		OnClash:   on(clash),

		Dialog: DialogColors{
			Bg:     lipgloss.Color(t.Dialog.Background),
			Border: lipgloss.Color(t.Dialog.Border),
			Text:   lipgloss.Color(t.Dialog.Text),
			Subtle: lipgloss.Color(t.Dialog.Subtle),
		},
	}
}

// rgb is a colour with 0-255 channels.
type rgb struct{ r, g, b float64 }

func parseRGB(hex string) (rgb, bool) {
	if len(hex) != 7 || hex[0] != '#' {
		return rgb{}, false
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return rgb{}, false
	}
	return rgb{float64(v >> 16 & 0xff), float64(v >> 8 & 0xff), float64(v & 0xff)}, true
}

// mustRGB parses a colour Load has already validated; anything else is
// treated as black.
func mustRGB(hex string) rgb {
	c, _ := parseRGB(hex)
	return c
}

func (c rgb) hex() string {
	return fmt.Sprintf("#%02x%02x%02x", int(c.r), int(c.g), int(c.b))
}

// mix moves c towards o by w, clamped to [0, 1].
func (c rgb) mix(o rgb, w float64) rgb {
	w = math.Max(0, math.Min(1, w))
	return rgb{c.r + (o.r-c.r)*w, c.g + (o.g-c.g)*w, c.b + (o.b-c.b)*w}
}

func (c rgb) scaled(f, floor float64) rgb {
	ch := func(v float64) float64 { return math.Max(math.Floor(v*f), floor) }
	return rgb{ch(c.r), ch(c.g), ch(c.b)}
}

// luminance is the WCAG relative luminance.
func (c rgb) luminance() float64 {
	lin := func(v float64) float64 {
		v /= 255
		if v <= 0.04045 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return 0.2126*lin(c.r) + 0.7152*lin(c.g) + 0.0722*lin(c.b)
}

func contrast(a, b rgb) float64 {
	la, lb := a.luminance(), b.luminance()
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

// readableOn returns whichever of a and b contrasts more with bg.
func readableOn(bg, a, b rgb) rgb {
	if contrast(bg, a) >= contrast(bg, b) {
		return a
	}
	return b
}
