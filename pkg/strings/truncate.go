package strings

import (
	"strings"
)

// DefaultCellWidth is the widest a free-text table cell is printed.
const DefaultCellWidth = 60

// minWidth leaves room for one character plus the ellipsis.
const minWidth = 4

// Cell flattens s onto one line and shortens it to at most width runes,
// marking a cut with "...". Widths below 4 are treated as 4.
func Cell(s string, width int) string {
	if width < minWidth {
		width = minWidth
	}
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
