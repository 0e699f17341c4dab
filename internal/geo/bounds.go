// Package geo holds the domestic coverage area, administrative region
// extraction from addresses, and viewport suggestions for result sets.
package geo

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/bizmap/internal/model"
)

// Domestic coverage box (degrees, inclusive).
const (
	MinLatitude  = 33.0
	MaxLatitude  = 38.5
	MinLongitude = 124.0
	MaxLongitude = 132.0
)

// domestic is stored as XY, so X is longitude and Y is latitude.
var domestic = geom.NewBounds(geom.XY).Set(MinLongitude, MinLatitude, MaxLongitude, MaxLatitude)

// InBounds reports whether a position lies inside the domestic box.
func InBounds(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return domestic.OverlapsPoint(geom.XY, geom.Coord{lon, lat})
}

// ExtentOf returns the bounding rectangle of the given positions, or nil
// when there are none.
func ExtentOf(coords []model.Coordinate) *model.Extent {
	if len(coords) == 0 {
		return nil
	}
	flat := make([]float64, 0, 2*len(coords))
	for _, c := range coords {
		flat = append(flat, c.Longitude, c.Latitude)
	}
	b := geom.NewMultiPointFlat(geom.XY, flat).Bounds()
	return &model.Extent{
		South: b.Min(1),
		West:  b.Min(0),
		North: b.Max(1),
		East:  b.Max(0),
	}
}
