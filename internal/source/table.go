package source

import (
	"strings"

	"github.com/sells-group/bizmap/internal/model"
)

// canonicalHeader maps header labels to canonical column names. Unknown
// labels pass through unchanged; a column seen twice keeps only its first
// occurrence, later ones keep their original label.
func canonicalHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[model.Column]bool, len(header))
	for i, h := range header {
		h = cleanLabel(h)
		out[i] = h
		col, ok := model.LookupColumn(h)
		if !ok || seen[col] {
			continue
		}
		seen[col] = true
		out[i] = string(col)
	}
	return out
}

func cleanLabel(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
}

// tableFromCells builds a Table from a header row and data rows, the way
// sheet-shaped sources (XLSX) arrive.
func tableFromCells(header []string, rows [][]string) *Table {
	canon := canonicalHeader(header)
	colIdx := make(map[model.Column]int, len(canon))
	for i, h := range canon {
		col, ok := model.LookupColumn(h)
		if !ok {
			continue
		}
		if _, dup := colIdx[col]; !dup {
			colIdx[col] = i
		}
	}

	t := &Table{Schema: model.NewSchema(canon)}
	for _, cells := range rows {
		if blank(cells) {
			continue
		}
		var row model.RawRow
		for col, idx := range colIdx {
			if idx < len(cells) {
				*row.Field(col) = cells[idx]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
