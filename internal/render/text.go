package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/loqalabs/loqa-reply/internal/reply"
)

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorMuted   = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	summaryStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
)

// Text renders a result for a terminal, wrapping reply bodies to width.
// A width of zero or less disables wrapping.
func Text(res reply.Result, width int) string {
	box := boxStyle
	if width > 4 {
		box = box.Width(width - 2)
	}

	var sections []string
	sections = append(sections, titleStyle.Render("Summary"), summaryStyle.Render(res.Summary))

	if res.Reply != "" {
		sections = append(sections, "", titleStyle.Render("Reply"), box.Render(res.Reply))
	}
	for i, text := range res.Replies {
		sections = append(sections, "", titleStyle.Render(fmt.Sprintf("Reply %d", i+1)), box.Render(text))
	}
	return strings.Join(sections, "\n") + "\n"
}
