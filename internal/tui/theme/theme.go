// Package theme loads the colour themes of the exam grid.
package theme

import (
	"embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed embedded/*.toml
var embedded embed.FS

// DefaultName is loaded for an empty or unknown theme name.
const DefaultName = "mocha"

var names = []string{"mocha", "macchiato", "frappe", "latte", "light"}

// ErrBadColor is returned for a role that is not a #rrggbb colour.
var ErrBadColor = errors.New("colour must be #rrggbb")

// Theme assigns a hex colour to each role on screen.
type Theme struct {
	Name string `toml:"name"`

	Background string `toml:"background"`
	Surface    string `toml:"surface"`   // panes, dialogs
	Selection  string `toml:"selection"` // cursor, list selection
	Text       string `toml:"text"`
	Subtle     string `toml:"subtle"` // slot windows, hints
	Accent     string `toml:"accent"`

	Exam     string `toml:"exam"`
	Carry    string `toml:"carry"`
	Target   string `toml:"target"` // working slot of a review
	Conflict string `toml:"conflict"`

	Dialog Dialog `toml:"dialog"`
}

// Dialog overrides the colours of modal dialogs. Empty fields take the
// matching base role.
type Dialog struct {
	Background string `toml:"background"`
	Border     string `toml:"border"`
	Text       string `toml:"text"`
	Subtle     string `toml:"subtle"`
}

// Load reads an embedded theme. Unknown names load DefaultName.
func Load(name string) (*Theme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !slices.Contains(names, name) {
		name = DefaultName
	}
	data, err := embedded.ReadFile("embedded/" + name + ".toml")
	if err != nil {
		return nil, fmt.Errorf("reading theme %q: %w", name, err)
	}

	var t Theme
	if err := toml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing theme %q: %w", name, err)
	}
	t.fillDialog()
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("theme %q: %w", name, err)
	}
	return &t, nil
}

// Validate checks that every role holds a #rrggbb colour.
func (t *Theme) Validate() error {
	roles := []struct{ name, hex string }{
		{"background", t.Background},
		{"surface", t.Surface},
		{"selection", t.Selection},
		{"text", t.Text},
		{"subtle", t.Subtle},
		{"accent", t.Accent},
		{"exam", t.Exam},
		{"carry", t.Carry},
		{"target", t.Target},
		{"conflict", t.Conflict},
		{"dialog.background", t.Dialog.Background},
		{"dialog.border", t.Dialog.Border},
		{"dialog.text", t.Dialog.Text},
		{"dialog.subtle", t.Dialog.Subtle},
	}
	for _, r := range roles {
		if _, ok := parseRGB(r.hex); !ok {
			return fmt.Errorf("%w: %s = %q", ErrBadColor, r.name, r.hex)
		}
	}
	return nil
}

func (t *Theme) fillDialog() {
	fill := func(v *string, fallback string) {
		if *v == "" {
			*v = fallback
		}
	}
	fill(&t.Dialog.Background, t.Surface)
	fill(&t.Dialog.Border, t.Accent)
	fill(&t.Dialog.Text, t.Text)
	fill(&t.Dialog.Subtle, t.Subtle)
}

// Available lists the embedded theme names.
func Available() []string {
	return slices.Clone(names)
}

// IsAvailable reports whether name is an embedded theme, ignoring case.
func IsAvailable(name string) bool {
	return slices.Contains(names, strings.ToLower(name))
}
