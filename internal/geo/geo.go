// Package geo holds the coordinate math shared by all passes.
package geo

// Coord is a WGS84 coordinate pair
type Coord struct {
	Lat float64
	Lon float64
}

// Bounds is the axis-aligned bounding box of a coordinate set
type Bounds struct {
	North float64
	South float64
	East  float64
	West  float64
}

// Centroid returns the arithmetic mean position of the coordinates.
// An empty sequence yields (0, 0).
func Centroid(coords []Coord) Coord {
	if len(coords) == 0 {
		return Coord{}
	}

	var sumLat, sumLon float64
	for _, c := range coords {
		sumLat += c.Lat
		sumLon += c.Lon
	}
	n := float64(len(coords))
	return Coord{Lat: sumLat / n, Lon: sumLon / n}
}

// ComputeBounds returns the component-wise extrema of the coordinates.
// An empty sequence yields all-zero bounds.
func ComputeBounds(coords []Coord) Bounds {
	if len(coords) == 0 {
		return Bounds{}
	}

	b := Bounds{
		North: coords[0].Lat,
		South: coords[0].Lat,
		East:  coords[0].Lon,
		West:  coords[0].Lon,
	}
	for _, c := range coords[1:] {
		if c.Lat > b.North {
			b.North = c.Lat
		}
		if c.Lat < b.South {
			b.South = c.Lat
		}
		if c.Lon > b.East {
			b.East = c.Lon
		}
		if c.Lon < b.West {
			b.West = c.Lon
		}
	}
	return b
}
