// Package query answers map queries: it filters the cached record set,
// classifies the result, and suggests a viewport.
package query

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/bizmap/internal/classify"
	"github.com/sells-group/bizmap/internal/dataset"
	"github.com/sells-group/bizmap/internal/filter"
	"github.com/sells-group/bizmap/internal/geo"
	"github.com/sells-group/bizmap/internal/model"
)

// Snapshots supplies the current record set. *dataset.Cache implements it.
type Snapshots interface {
	Get(ctx context.Context, location string) (*dataset.Snapshot, error)
	Reload(ctx context.Context, location string) (*dataset.Snapshot, error)
}

// Request is one query submission.
type Request struct {
	Criteria   model.FilterCriteria  `json:"criteria" yaml:"criteria"`
	ColorBy    string                `json:"color_by,omitempty" yaml:"color_by,omitempty"`
	Clustering *model.ClusterOptions `json:"clustering,omitempty" yaml:"clustering,omitempty"`
}

// Service runs queries against one dataset location.
type Service struct {
	snapshots  Snapshots
	location   string
	clustering model.ClusterOptions
}

// NewService creates a Service. clustering is used for requests that do
// not carry their own options.
func NewService(snapshots Snapshots, location string, clustering model.ClusterOptions) *Service {
	return &Service{snapshots: snapshots, location: location, clustering: clustering}
}

// Location returns the dataset location the service queries.
func (s *Service) Location() string {
	return s.location
}

// Submit runs one query. An invalid request yields a *RequestError. When
// the dataset cannot be loaded the result is empty and the error is a
// *model.DataLoadError.
func (s *Service) Submit(ctx context.Context, req Request) (*model.QueryResult, error) {
	attr, err := model.ParseAttribute(req.ColorBy)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	clustering := s.clustering
	if req.Clustering != nil {
		clustering = *req.Clustering
	}
	if err := clustering.Validate(); err != nil {
		return nil, &RequestError{Err: err}
	}

	snap, loadErr := s.snapshots.Get(ctx, s.location)
	if snap == nil {
		snap = dataset.Empty(s.location)
	}

	filtered := filter.Apply(snap.Records, snap.Schema, req.Criteria)
	assignment := classify.Classify(filtered, snap.Schema, attr)

	res := &model.QueryResult{
		Dataset:    s.location,
		Total:      len(snap.Records),
		Count:      len(filtered),
		Empty:      len(filtered) == 0,
		Criteria:   req.Criteria,
		Attribute:  assignment.Attribute,
		Records:    make([]model.ClassifiedRecord, len(filtered)),
		Legend:     assignment.Legend,
		Truncated:  assignment.Legend.Truncated,
		Clustering: clustering,
		Warnings:   warnings(snap.Schema, req.Criteria, attr, len(filtered)),
	}

	coords := make([]model.Coordinate, len(filtered))
	for i, r := range filtered {
		res.Records[i] = model.ClassifiedRecord{Record: r, Color: assignment.Colors[i]}
		coords[i] = model.Coordinate{Latitude: r.Latitude, Longitude: r.Longitude}
	}
	res.Viewport = geo.ViewportFor(coords,
		regionSelected(snap.Schema, model.ColProvince, req.Criteria.Province),
		regionSelected(snap.Schema, model.ColDistrict, req.Criteria.District),
	)

	zap.L().Debug("query answered",
		zap.String("component", "query.service"),
		zap.Int("total", res.Total),
		zap.Int("count", res.Count),
		zap.String("color_by", string(res.Attribute)),
	)

	if loadErr != nil {
		return res, loadErr
	}
	return res, nil
}

// Facets lists the selectable filter values, with districts scoped to
// province.
func (s *Service) Facets(ctx context.Context, province string) (*model.Facets, error) {
	snap, err := s.snapshots.Get(ctx, s.location)
	if snap == nil {
		snap = dataset.Empty(s.location)
	}
	f := filter.Options(snap.Records, snap.Schema, province)
	return &f, err
}

// Snapshot returns the current record set.
func (s *Service) Snapshot(ctx context.Context) (*dataset.Snapshot, error) {
	return s.snapshots.Get(ctx, s.location)
}

// Reload discards the cached record set and loads the dataset again.
func (s *Service) Reload(ctx context.Context) (*dataset.Snapshot, error) {
	return s.snapshots.Reload(ctx, s.location)
}

func regionSelected(schema model.Schema, col model.Column, value string) bool {
	return schema.Has(col) && !model.IsAll(value)
}

func warnings(schema model.Schema, c model.FilterCriteria, attr model.Attribute, count int) []string {
	var out []string
	for _, col := range filter.MissingColumns(schema, c) {
		out = append(out, model.MissingColumnWarning(col))
	}
	if col, ok := attr.Column(); ok && !schema.Has(col) {
		out = append(out, model.MissingColumnWarning(col))
	}
	if count == 0 {
		out = append(out, model.WarningEmptyResult)
	}
	return out
}
