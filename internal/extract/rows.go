package extract

import "strings"

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimTrailingEmpty(cells []string) []string {
	for len(cells) > 0 && strings.TrimSpace(cells[len(cells)-1]) == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}

// padRows drops blank rows and pads the rest with empty cells to the width of
// the widest one. Spreadsheet readers lose trailing empty cells; padding keeps
// an empty last column empty instead of letting the previous cell take its place.
func padRows(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		if !blankRow(row) {
			width = max(width, len(trimTrailingEmpty(row)))
		}
	}
	var out [][]string
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		row = trimTrailingEmpty(row)
		for len(row) < width {
			row = append(row, "")
		}
		out = append(out, row)
	}
	return out
}
