package tui

import (
	"fmt"
	"strings"

	"todo-notes/internal/richtext"

	"github.com/charmbracelet/lipgloss"
)

// renderDescription turns a stored HTML fragment into styled terminal
// lines. Fragments that fail to parse are shown as-is.
func renderDescription(fragment string, width int) string {
	if strings.TrimSpace(fragment) == "" {
		return mutedStyle.Render("(no description)")
	}
	doc, err := richtext.Parse(fragment)
	if err != nil {
		return fragment
	}
	return renderDocument(doc, width)
}

func renderDocument(doc richtext.Document, width int) string {
	lines := make([]string, 0, len(doc.Blocks))
	number := 0

	for _, b := range doc.Blocks {
		var prefix string
		switch b.List {
		case richtext.ListBullet:
			number = 0
			prefix = "• "
		case richtext.ListNumbered:
			number++
			prefix = fmt.Sprintf("%d. ", number)
		default:
			number = 0
		}

		var sb strings.Builder
		sb.WriteString(prefix)
		for _, r := range b.Runs {
			sb.WriteString(runStyle(r.Format).Render(r.Text))
		}

		line := sb.String()
		if width > 0 {
			line = lipgloss.NewStyle().Width(width).Align(position(b.Align)).Render(line)
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

func runStyle(f richtext.Format) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(f.Has(richtext.Bold)).
		Italic(f.Has(richtext.Italic)).
		Underline(f.Has(richtext.Underline))
}

func position(a richtext.Align) lipgloss.Position {
	switch a {
	case richtext.AlignCenter:
		return lipgloss.Center
	case richtext.AlignRight:
		return lipgloss.Right
	default:
		return lipgloss.Left
	}
}
