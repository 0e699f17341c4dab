// Package normalize turns raw dataset rows into validated, region-tagged
// company records.
package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/bizmap/internal/geo"
	"github.com/sells-group/bizmap/internal/model"
)

// Result is the output of one normalization pass.
type Result struct {
	Records []model.Record
	Schema  model.Schema
	Stats   model.LoadStats
}

// coordinatePair names the two columns holding one spelling of a position.
type coordinatePair struct {
	lat, lon model.Column
}

var coordinatePairs = []coordinatePair{
	{model.ColLatitude, model.ColLongitude},
	{model.ColLatitudeAlias, model.ColLongitudeAlias},
}

// Normalize validates rows and derives region fields. Rows without a
// position, or positioned outside the domestic box, are dropped. A
// dataset with no coordinate columns, or a coordinate cell that is not a
// number, fails the whole pass.
func Normalize(rows []model.RawRow, schema model.Schema) (*Result, error) {
	pairs := presentPairs(schema)
	if len(pairs) == 0 {
		return nil, eris.New("normalize: dataset has no latitude/longitude columns")
	}

	deriveProvince := !schema.Has(model.ColProvince) && hasAddress(schema)
	deriveDistrict := !schema.Has(model.ColDistrict) && hasAddress(schema)

	res := &Result{
		Records: make([]model.Record, 0, len(rows)),
		Schema:  outputSchema(schema, deriveProvince, deriveDistrict),
	}
	res.Stats.RowsRead = len(rows)

	for i := range rows {
		row := &rows[i]

		lat, lon, ok, err := resolvePosition(row, pairs)
		if err != nil {
			return nil, eris.Wrapf(err, "normalize: row %d", i+1)
		}
		if !ok {
			res.Stats.DroppedNoCoords++
			continue
		}
		if !geo.InBounds(lat, lon) {
			res.Stats.DroppedOutOfBounds++
			continue
		}

		rec := buildRecord(row, lat, lon)
		if deriveProvince || deriveDistrict {
			addr := rec.Address
			if addr == "" {
				addr = rec.LotAddress
			}
			if deriveProvince {
				if rec.Province = geo.ExtractProvince(addr); rec.Province != "" {
					res.Stats.ProvincesDerived++
				}
			}
			if deriveDistrict {
				if rec.District = geo.ExtractDistrict(addr); rec.District != "" {
					res.Stats.DistrictsDerived++
				}
			}
		}
		res.Records = append(res.Records, rec)
	}
	res.Stats.RecordsKept = len(res.Records)

	zap.L().With(zap.String("component", "normalize")).Info("dataset normalized",
		zap.Int("rows_read", res.Stats.RowsRead),
		zap.Int("records_kept", res.Stats.RecordsKept),
		zap.Int("dropped_no_coords", res.Stats.DroppedNoCoords),
		zap.Int("dropped_out_of_bounds", res.Stats.DroppedOutOfBounds),
	)
	return res, nil
}

func presentPairs(schema model.Schema) []coordinatePair {
	var out []coordinatePair
	for _, p := range coordinatePairs {
		if schema.Has(p.lat) && schema.Has(p.lon) {
			out = append(out, p)
		}
	}
	return out
}

func hasAddress(schema model.Schema) bool {
	return schema.Has(model.ColAddress) || schema.Has(model.ColLotAddress)
}

// outputSchema describes the records Normalize emits: positions always
// live in the canonical columns, and derived region columns are present.
func outputSchema(in model.Schema, province, district bool) model.Schema {
	out := in.Clone()
	delete(out, model.ColLatitudeAlias)
	delete(out, model.ColLongitudeAlias)
	out[model.ColLatitude] = true
	out[model.ColLongitude] = true
	if province {
		out[model.ColProvince] = true
	}
	if district {
		out[model.ColDistrict] = true
	}
	return out
}

// resolvePosition returns the first pair whose cells are both filled.
// ok is false when no pair is complete.
func resolvePosition(row *model.RawRow, pairs []coordinatePair) (lat, lon float64, ok bool, err error) {
	for _, p := range pairs {
		latText := strings.TrimSpace(*row.Field(p.lat))
		lonText := strings.TrimSpace(*row.Field(p.lon))
		if missing(latText) || missing(lonText) {
			continue
		}
		if lat, err = parseCoordinate(p.lat, latText); err != nil {
			return 0, 0, false, err
		}
		if lon, err = parseCoordinate(p.lon, lonText); err != nil {
			return 0, 0, false, err
		}
		return lat, lon, true, nil
	}
	return 0, 0, false, nil
}

// missing treats blank cells and spreadsheet NaN markers as absent.
func missing(s string) bool {
	return s == "" || strings.EqualFold(s, "nan")
}

func parseCoordinate(col model.Column, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value %q", col, s)
	}
	if math.IsNaN(v) {
		return 0, eris.Errorf("invalid %s value %q", col, s)
	}
	return v, nil
}

func buildRecord(row *model.RawRow, lat, lon float64) model.Record {
	return model.Record{
		Latitude:       lat,
		Longitude:      lon,
		BusinessRegID:  CleanIdentifier(row.BusinessRegID),
		Name:           CleanText(row.Name),
		SizeClass:      CleanText(row.SizeClass),
		CreditRating:   CleanText(row.CreditRating),
		CashFlowRating: CleanText(row.CashFlowRating),
		IndustryName:   CleanText(row.IndustryName),
		BusinessType:   CleanText(row.BusinessType),
		Products:       CleanText(row.Products),
		IndustryMajor:  CleanText(row.IndustryMajor),
		IndustryDetail: CleanText(row.IndustryDetail),
		Address:        CleanText(row.Address),
		LotAddress:     CleanText(row.LotAddress),
		Phone:          CleanText(row.Phone),
		Province:       CleanText(row.Province),
		District:       CleanText(row.District),
	}
}

// CleanText trims surrounding space and composes Hangul jamo so equal
// labels compare equal.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if missing(s) {
		return ""
	}
	return norm.NFC.String(s)
}

// CleanIdentifier strips a fractional suffix left by numeric parsing,
// e.g. "1234567890.0" becomes "1234567890".
func CleanIdentifier(s string) string {
	s = CleanText(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	return s
}
