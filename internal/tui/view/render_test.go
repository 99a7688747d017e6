package view

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

type recordingOverlay struct {
	contents []string
}

func (r *recordingOverlay) Render(base string, width, height int, content string) string {
	r.contents = append(r.contents, content)
	return base + "|" + content
}

func TestRender_Layers(t *testing.T) {
	tests := []struct {
		name  string
		state ViewState
		want  string
		calls int
	}{
		{
			name:  "no size",
			state: ViewState{BaseContent: "grid"},
			want:  "Loading...",
		},
		{
			name:  "placeholder",
			state: ViewState{BaseContent: "grid", Placeholder: "wait"},
			want:  "wait",
		},
		{
			name:  "base only",
			state: ViewState{Width: 10, Height: 5, BaseContent: "grid"},
			want:  "grid",
		},
		{
			name:  "modal",
			state: ViewState{Width: 10, Height: 5, BaseContent: "grid", ShowModal: true, ModalContent: "review"},
			want:  "grid|review",
			calls: 1,
		},
		{
			name:  "busy above modal",
			state: ViewState{Width: 10, Height: 5, BaseContent: "grid", ShowModal: true, ModalContent: "review", BusyContent: "verifying"},
			want:  "grid|review|verifying",
			calls: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overlay := &recordingOverlay{}
			tt.state.Overlay = overlay
			if got := Render(tt.state); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
			if len(overlay.contents) != tt.calls {
				t.Errorf("overlay called %d times, want %d", len(overlay.contents), tt.calls)
			}
		})
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"abc", 5, "abc  "},
		{"abcdef", 4, "abc…"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := Fit(tt.in, tt.width); got != tt.want {
			t.Errorf("Fit(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestRenderHints(t *testing.T) {
	plain := lipgloss.NewStyle()
	got := RenderHints([]KeyHint{{"enter", "drop"}, {"esc", "cancel"}}, plain, plain)
	if !strings.Contains(got, "enter drop") || !strings.Contains(got, "esc cancel") {
		t.Errorf("RenderHints() = %q", got)
	}
}
