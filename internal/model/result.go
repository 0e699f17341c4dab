package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Warning codes attached to query results. None of them are errors.
const (
	WarningEmptyResult   = "empty_result"
	WarningMissingColumn = "missing_column"
)

// MissingColumnWarning formats the warning for an absent facet or
// classification column.
func MissingColumnWarning(col Column) string {
	return WarningMissingColumn + ":" + string(col)
}

// Coordinate is a WGS84 position.
type Coordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Extent is the bounding rectangle of a set of positions.
type Extent struct {
	South float64 `json:"south" yaml:"south"`
	West  float64 `json:"west" yaml:"west"`
	North float64 `json:"north" yaml:"north"`
	East  float64 `json:"east" yaml:"east"`
}

// Viewport suggests where a renderer should center and how far to zoom.
type Viewport struct {
	Center Coordinate `json:"center" yaml:"center"`
	Zoom   int        `json:"zoom" yaml:"zoom"`
	Extent *Extent    `json:"extent,omitempty" yaml:"extent,omitempty"`
}

// ClusterOptions are the marker grouping parameters handed to the renderer.
type ClusterOptions struct {
	Enabled        bool `json:"enabled" yaml:"enabled"`
	Radius         int  `json:"radius" yaml:"radius"`
	MinClusterSize int  `json:"min_cluster_size" yaml:"min_cluster_size"`
	DisableAtZoom  int  `json:"disable_at_zoom" yaml:"disable_at_zoom"`
}

// Cluster option bounds.
const (
	MinClusterRadius  = 10
	MaxClusterRadius  = 100
	MinClusterMembers = 2
	MaxClusterMembers = 10
)

// DefaultClusterOptions returns the grouping defaults.
func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{Enabled: true, Radius: 50, MinClusterSize: 2, DisableAtZoom: 15}
}

// Validate checks the options against the supported ranges.
func (o ClusterOptions) Validate() error {
	if !o.Enabled {
		return nil
	}
	if o.Radius < MinClusterRadius || o.Radius > MaxClusterRadius {
		return eris.Errorf("model: cluster radius %d outside [%d, %d]", o.Radius, MinClusterRadius, MaxClusterRadius)
	}
	if o.MinClusterSize < MinClusterMembers || o.MinClusterSize > MaxClusterMembers {
		return eris.Errorf("model: min cluster size %d outside [%d, %d]", o.MinClusterSize, MinClusterMembers, MaxClusterMembers)
	}
	return nil
}

// QueryResult is what the core hands to the map renderer.
type QueryResult struct {
	Dataset    string             `json:"dataset" yaml:"dataset"`
	Total      int                `json:"total" yaml:"total"`
	Count      int                `json:"count" yaml:"count"`
	Empty      bool               `json:"empty" yaml:"empty"`
	Criteria   FilterCriteria     `json:"criteria" yaml:"criteria"`
	Attribute  Attribute          `json:"color_by" yaml:"color_by"`
	Records    []ClassifiedRecord `json:"records" yaml:"records"`
	Legend     Legend             `json:"legend" yaml:"legend"`
	Truncated  bool               `json:"truncated" yaml:"truncated"`
	Viewport   Viewport           `json:"viewport" yaml:"viewport"`
	Clustering ClusterOptions     `json:"clustering" yaml:"clustering"`
	Warnings   []string           `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// FacetOptions lists the selectable values for one facet. Values always
// start with the All sentinel.
type FacetOptions struct {
	Column    Column   `json:"column" yaml:"column"`
	Available bool     `json:"available" yaml:"available"`
	Values    []string `json:"values" yaml:"values"`
}

// Facets are the options offered for each filter dimension.
type Facets struct {
	Province     FacetOptions `json:"province" yaml:"province"`
	District     FacetOptions `json:"district" yaml:"district"`
	SizeClass    FacetOptions `json:"company_size_class" yaml:"company_size_class"`
	CreditRating FacetOptions `json:"credit_rating" yaml:"credit_rating"`
}

// LoadStatus represents the state of a dataset load.
type LoadStatus string

const (
	LoadStatusRunning  LoadStatus = "running"
	LoadStatusComplete LoadStatus = "complete"
	LoadStatusFailed   LoadStatus = "failed"
)

// LoadStats summarizes one normalization pass.
type LoadStats struct {
	RowsRead           int `json:"rows_read" yaml:"rows_read"`
	RecordsKept        int `json:"records_kept" yaml:"records_kept"`
	DroppedNoCoords    int `json:"dropped_no_coords" yaml:"dropped_no_coords"`
	DroppedOutOfBounds int `json:"dropped_out_of_bounds" yaml:"dropped_out_of_bounds"`
	ProvincesDerived   int `json:"provinces_derived" yaml:"provinces_derived"`
	DistrictsDerived   int `json:"districts_derived" yaml:"districts_derived"`
}

// LoadRun is one audit entry describing a dataset load attempt.
type LoadRun struct {
	ID         string     `json:"id" yaml:"id"`
	Location   string     `json:"location" yaml:"location"`
	Identity   string     `json:"identity" yaml:"identity"`
	Status     LoadStatus `json:"status" yaml:"status"`
	Stats      LoadStats  `json:"stats" yaml:"stats"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}
