// Package filter applies facet selections and keyword search to a
// normalized record set.
package filter

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/bizmap/internal/model"
)

type predicate func(r *model.Record) bool

// facet pairs a criteria value with the column it constrains, in
// application order.
type facet struct {
	col   model.Column
	value string
}

func facets(c model.FilterCriteria) []facet {
	return []facet{
		{model.ColProvince, c.Province},
		{model.ColDistrict, c.District},
		{model.ColSizeClass, c.SizeClass},
		{model.ColCreditRating, c.CreditRating},
	}
}

// Apply returns the records matching every active criterion, in input
// order. The input slice is never modified. A facet whose column the
// dataset lacks does not constrain the result.
func Apply(records []model.Record, schema model.Schema, c model.FilterCriteria) []model.Record {
	preds := build(schema, c)

	out := make([]model.Record, 0, len(records))
	for i := range records {
		if matches(&records[i], preds) {
			out = append(out, records[i])
		}
	}
	return out
}

func matches(r *model.Record, preds []predicate) bool {
	for _, p := range preds {
		if !p(r) {
			return false
		}
	}
	return true
}

func build(schema model.Schema, c model.FilterCriteria) []predicate {
	var preds []predicate
	for _, f := range facets(c) {
		if model.IsAll(f.value) || !schema.Has(f.col) {
			continue
		}
		preds = append(preds, equals(f.col, canonical(f.value)))
	}
	if p := search(schema, c.SearchText); p != nil {
		preds = append(preds, p)
	}
	return preds
}

// canonical puts a user-supplied value in the form normalized records use.
func canonical(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func equals(col model.Column, want string) predicate {
	return func(r *model.Record) bool {
		return r.Value(col) == want
	}
}

// search matches when any present text column contains the term. The
// term is literal: pattern characters carry no special meaning.
func search(schema model.Schema, text string) predicate {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var cols []model.Column
	for _, col := range model.TextColumns {
		if schema.Has(col) {
			cols = append(cols, col)
		}
	}

	fold := cases.Fold()
	term := fold.String(canonical(text))
	return func(r *model.Record) bool {
		for _, col := range cols {
			v := r.Value(col)
			if v != "" && strings.Contains(fold.String(v), term) {
				return true
			}
		}
		return false
	}
}

// MissingColumns lists the columns of active facets that the dataset
// lacks. Those facets were ignored by Apply.
func MissingColumns(schema model.Schema, c model.FilterCriteria) []model.Column {
	var out []model.Column
	for _, f := range facets(c) {
		if !model.IsAll(f.value) && !schema.Has(f.col) {
			out = append(out, f.col)
		}
	}
	return out
}
