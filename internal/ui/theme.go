package ui

import "strings"

// Theme bundles palette + symbols + box borders.
// All UI helpers pull from `current`.
type Theme struct {
	Name                                   string
	Title, Muted, Accent, Success, Error   string
	Index                                  string
	CornerTL, CornerTR, CornerBL, CornerBR string
	H, V                                   string
	Bullet, SymDone, SymFail               string
}

var current = classic()

// Themes lists the names SetTheme understands.
var Themes = []string{"classic", "neon", "mono"}

func classic() Theme {
	return Theme{
		Name:  "classic",
		Title: bold, Muted: fgGray, Accent: fgBlue,
		Success: fgGreen, Error: fgRed, Index: fgYellow,
		CornerTL: "┌", CornerTR: "┐", CornerBL: "└", CornerBR: "┘",
		H: "─", V: "│",
		Bullet: "•", SymDone: symCheck, SymFail: symCross,
	}
}

// SetTheme switches the active theme; unknown names fall back to classic.
// mono also turns color off.
func SetTheme(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "neon":
		current = Theme{
			Name:  "neon",
			Title: "\033[95m", // bright magenta
			Muted: fgGray, Accent: "\033[96m",
			Success: fgGreen, Error: fgRed, Index: "\033[93m",
			CornerTL: "╭", CornerTR: "╮", CornerBL: "╰", CornerBR: "╯",
			H: "─", V: "│",
			Bullet: "◆", SymDone: symCheck, SymFail: symCross,
		}
	case "mono":
		disableColor = true
		current = Theme{
			Name:     "mono",
			CornerTL: "+", CornerTR: "+", CornerBL: "+", CornerBR: "+",
			H: "-", V: "|",
			Bullet: "-", SymDone: "ok", SymFail: "error:",
		}
	default:
		current = classic()
	}
}

// Current returns the active theme.
func Current() Theme { return current }
