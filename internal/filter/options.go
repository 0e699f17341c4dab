package filter

import (
	"slices"

	"github.com/sells-group/bizmap/internal/model"
)

// Options lists the selectable values of every facet. District values
// are limited to the selected province; with no province selected the
// district facet offers only All.
func Options(records []model.Record, schema model.Schema, province string) model.Facets {
	f := model.Facets{
		Province:     options(records, schema, model.ColProvince, nil),
		SizeClass:    options(records, schema, model.ColSizeClass, nil),
		CreditRating: options(records, schema, model.ColCreditRating, nil),
	}

	if model.IsAll(province) || !schema.Has(model.ColProvince) {
		f.District = model.FacetOptions{
			Column:    model.ColDistrict,
			Available: options(records, schema, model.ColDistrict, nil).Available,
			Values:    []string{model.All},
		}
		return f
	}

	want := canonical(province)
	f.District = options(records, schema, model.ColDistrict, func(r *model.Record) bool {
		return r.Province == want
	})
	return f
}

func options(records []model.Record, schema model.Schema, col model.Column, keep predicate) model.FacetOptions {
	opts := model.FacetOptions{Column: col, Values: []string{model.All}}
	if !schema.Has(col) {
		return opts
	}

	seen := make(map[string]bool)
	var values []string
	for i := range records {
		r := &records[i]
		v := r.Value(col)
		if v == "" || seen[v] {
			continue
		}
		// Availability reflects the whole dataset, not the scoped subset.
		opts.Available = true
		if keep != nil && !keep(r) {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	slices.Sort(values)
	opts.Values = append(opts.Values, values...)
	return opts
}
