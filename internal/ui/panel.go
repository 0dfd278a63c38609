package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/tada/internal/model"
)

const maxTitleWidth = 80

// Panel draws a framed box using the current theme.
func Panel(w io.Writer, lines []string) {
	t := Current()
	maxw := 0
	for _, ln := range lines {
		if vis := lipgloss.Width(ln); vis > maxw {
			maxw = vis
		}
	}
	pad := func(s string) string {
		if vis := lipgloss.Width(s); vis < maxw {
			s += strings.Repeat(" ", maxw-vis)
		}
		return s
	}
	fmt.Fprintln(w, t.CornerTL+strings.Repeat(t.H, maxw+2)+t.CornerTR)
	for _, ln := range lines {
		fmt.Fprintln(w, t.V+" "+pad(ln)+" "+t.V)
	}
	fmt.Fprintln(w, t.CornerBL+strings.Repeat(t.H, maxw+2)+t.CornerBR)
}

// ItemLines renders items with their 1-based index, one title per line and
// an indented description underneath when present.
func ItemLines(items []model.Item) []string {
	t := Current()
	if len(items) == 0 {
		return []string{C(t.Muted, "no items")}
	}
	last := 0
	for _, it := range items {
		last = max(last, it.Position)
	}
	width := len(fmt.Sprint(last + 1))
	out := make([]string, 0, len(items))
	for _, it := range items {
		idx := fmt.Sprintf("%*d.", width, it.Position+1)
		out = append(out, fmt.Sprintf("%s %s %s",
			C(t.Index, idx), C(t.Accent, t.Bullet), truncate(it.Title)))
		if it.Description != "" {
			indent := strings.Repeat(" ", len(idx)+1+lipgloss.Width(t.Bullet)+1)
			out = append(out, indent+C(t.Muted, truncate(it.Description)))
		}
	}
	return out
}

// RenderList writes the framed list shown by `todo ls`.
func RenderList(w io.Writer, items []model.Item) {
	t := Current()
	lines := []string{
		fmt.Sprintf("%s  %s %d", C(t.Title, "Todos"), C(t.Accent, "Total"), len(items)),
		"",
	}
	lines = append(lines, ItemLines(items)...)
	lines = append(lines, "", C(t.Muted, "Tip: reorder with `todo mv <ref> <position>`"))
	Panel(w, lines)
}

func truncate(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) > maxTitleWidth {
		return string(r[:maxTitleWidth-3]) + "..."
	}
	return s
}
