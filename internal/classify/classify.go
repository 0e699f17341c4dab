// Package classify assigns marker colors to records by a categorical
// attribute and describes the mapping as a legend.
package classify

import (
	"slices"

	"github.com/sells-group/bizmap/internal/model"
)

// MaxLegendEntries caps the legend; the rest are reported as truncated.
const MaxLegendEntries = 15

// DefaultColor marks records with no category and the unclassified view.
const DefaultColor = "blue"

// FallbackColor marks size classes outside the fixed palette and
// cash-flow grades beyond the last band.
const FallbackColor = "gray"

var sizeOrder = []string{"대기업", "중견기업", "중소기업", "기타"}

var sizeColors = map[string]string{
	"대기업":  "red",
	"중견기업": "blue",
	"중소기업": "green",
	"기타":   "gray",
}

var creditPalette = []string{
	"darkgreen", "green", "lightgreen", "blue", "lightblue",
	"orange", "salmon", "red", "darkred", "black",
}

var cashFlowPalette = []string{"darkgreen", "green", "orange", "red", "darkred"}

var industryPalette = []string{
	"blue", "red", "green", "purple", "orange",
	"darkblue", "darkgreen", "darkred", "cadetblue", "darkpurple",
}

var titles = map[model.Attribute]string{
	model.AttrSize:     "기업 규모",
	model.AttrCredit:   "신용등급",
	model.AttrCashFlow: "현금흐름등급",
	model.AttrIndustry: "업종",
}

// Classify colors every record by attr. Colors in the result line up
// with records. An attribute whose column the dataset lacks classifies
// as AttrNone.
func Classify(records []model.Record, schema model.Schema, attr model.Attribute) model.ColorAssignment {
	col, ok := attr.Column()
	if !ok || !schema.Has(col) {
		return constant(len(records))
	}

	present := distinct(records, col)

	var ordered []string
	var mapping map[string]string
	switch attr {
	case model.AttrSize:
		ordered, mapping = bySize(present)
	case model.AttrCredit:
		ordered, mapping = bySortedRank(present, creditPalette, true)
	case model.AttrCashFlow:
		ordered, mapping = bySortedRank(present, cashFlowPalette, false)
	case model.AttrIndustry:
		ordered, mapping = byFirstSeen(present, industryPalette)
	}

	colors := make([]string, len(records))
	for i := range records {
		colors[i] = DefaultColor
		if c, ok := mapping[records[i].Value(col)]; ok {
			colors[i] = c
		}
	}

	return model.ColorAssignment{
		Attribute: attr,
		Mapping:   mapping,
		Colors:    colors,
		Legend:    legend(titles[attr], ordered, mapping),
	}
}

func constant(n int) model.ColorAssignment {
	colors := make([]string, n)
	for i := range colors {
		colors[i] = DefaultColor
	}
	return model.ColorAssignment{
		Attribute: model.AttrNone,
		Mapping:   map[string]string{},
		Colors:    colors,
		Legend:    model.Legend{Entries: []model.LegendEntry{}},
	}
}

// distinct returns the non-empty values of col in first-seen order.
func distinct(records []model.Record, col model.Column) []string {
	seen := make(map[string]bool)
	var out []string
	for i := range records {
		v := records[i].Value(col)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func bySize(present []string) ([]string, map[string]string) {
	mapping := make(map[string]string, len(present))
	var known, unknown []string
	for _, v := range present {
		if c, ok := sizeColors[v]; ok {
			mapping[v] = c
			known = append(known, v)
			continue
		}
		mapping[v] = FallbackColor
		unknown = append(unknown, v)
	}
	slices.SortFunc(known, func(a, b string) int {
		return slices.Index(sizeOrder, a) - slices.Index(sizeOrder, b)
	})
	return append(known, unknown...), mapping
}

// bySortedRank assigns palette colors in ascending lexical order of the
// values. Beyond the palette, colors cycle or fall back to gray.
func bySortedRank(present []string, palette []string, cycle bool) ([]string, map[string]string) {
	ordered := slices.Clone(present)
	slices.Sort(ordered)
	mapping := make(map[string]string, len(ordered))
	for i, v := range ordered {
		switch {
		case i < len(palette):
			mapping[v] = palette[i]
		case cycle:
			mapping[v] = palette[i%len(palette)]
		default:
			mapping[v] = FallbackColor
		}
	}
	return ordered, mapping
}

func byFirstSeen(present []string, palette []string) ([]string, map[string]string) {
	mapping := make(map[string]string, len(present))
	for i, v := range present {
		mapping[v] = palette[i%len(palette)]
	}
	return present, mapping
}

func legend(title string, ordered []string, mapping map[string]string) model.Legend {
	l := model.Legend{Title: title, Entries: make([]model.LegendEntry, 0, min(len(ordered), MaxLegendEntries))}
	for i, v := range ordered {
		if i == MaxLegendEntries {
			l.Truncated = true
			break
		}
		l.Entries = append(l.Entries, model.LegendEntry{Value: v, Color: mapping[v]})
	}
	return l
}
