package geo

import "github.com/sells-group/bizmap/internal/model"

// National view center.
const (
	centerLatitude  = 36.0
	centerLongitude = 127.8
)

// Zoom levels by result scope.
const (
	ZoomNational = 7
	ZoomProvince = 10
	ZoomDistrict = 12
	ZoomSingle   = 14
)

// ViewportFor suggests a map view for a result set.
// Rules:
//   - one result: center on it at ZoomSingle
//   - province selected: center on the mean position, ZoomDistrict when a
//     district is also selected, ZoomProvince otherwise
//   - anything else, including a district without a province: national
//     center at ZoomNational
func ViewportFor(coords []model.Coordinate, provinceSelected, districtSelected bool) model.Viewport {
	vp := model.Viewport{
		Center: model.Coordinate{Latitude: centerLatitude, Longitude: centerLongitude},
		Zoom:   ZoomNational,
		Extent: ExtentOf(coords),
	}

	switch {
	case len(coords) == 1:
		vp.Center = coords[0]
		vp.Zoom = ZoomSingle
	case len(coords) > 1 && provinceSelected && districtSelected:
		vp.Center = mean(coords)
		vp.Zoom = ZoomDistrict
	case len(coords) > 1 && provinceSelected:
		vp.Center = mean(coords)
		vp.Zoom = ZoomProvince
	}
	return vp
}

func mean(coords []model.Coordinate) model.Coordinate {
	var lat, lon float64
	for _, c := range coords {
		lat += c.Latitude
		lon += c.Longitude
	}
	n := float64(len(coords))
	return model.Coordinate{Latitude: lat / n, Longitude: lon / n}
}
