package view

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ModalStyles groups the styles needed to render modal frames and buttons.
type ModalStyles struct {
	ModalHeaderStyle       lipgloss.Style
	ModalTitleStyle        lipgloss.Style
	ModalFooterStyle       lipgloss.Style
	ModalStyle             lipgloss.Style
	ModalButtonStyle       lipgloss.Style
	ModalButtonActiveStyle lipgloss.Style
	ModalBodyStyle         lipgloss.Style
}

// RenderModalFrame renders a bordered modal. Empty body or footer sections
// are left out together with their spacing.
func RenderModalFrame(title, body, footer string, styles ModalStyles) string {
	sections := []string{styles.ModalHeaderStyle.Render(styles.ModalTitleStyle.Render(title))}
	if body != "" {
		sections = append(sections, body)
	}
	if footer != "" {
		sections = append(sections, styles.ModalFooterStyle.Render(footer))
	}
	return styles.ModalStyle.Render(strings.Join(sections, "\n\n"))
}

// RenderModalButtons renders a row of buttons. The first one is the
// default action and is highlighted.
func RenderModalButtons(styles ModalStyles, labels ...string) string {
	parts := make([]string, 0, len(labels))
	for i, label := range labels {
		style := styles.ModalButtonStyle
		if i == 0 {
			style = styles.ModalButtonActiveStyle
		}
		parts = append(parts, style.Render(label))
	}
	return strings.Join(parts, styles.ModalBodyStyle.Render(" "))
}
