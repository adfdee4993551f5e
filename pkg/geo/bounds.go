package geo

import "fmt"

// Bounds is an axis-aligned latitude/longitude box.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// MinasGerais is the bounding box of the state of Minas Gerais.
var MinasGerais = Bounds{South: -22.92, West: -51.01, North: -14.23, East: -39.85}

// Contains reports whether c lies inside the box (edges included).
func (b Bounds) Contains(c Coordinate) bool {
	return c.Lat >= b.South && c.Lat <= b.North && c.Lng >= b.West && c.Lng <= b.East
}

// Viewbox renders the box in Nominatim's "x1,y1,x2,y2" order:
// west,north,east,south.
func (b Bounds) Viewbox() string {
	return fmt.Sprintf("%s,%s,%s,%s", trim(b.West), trim(b.North), trim(b.East), trim(b.South))
}

// Validate checks that the box is not inverted and within WGS84 ranges.
func (b Bounds) Validate() error {
	if b.South < -90 || b.North > 90 || b.West < -180 || b.East > 180 {
		return fmt.Errorf("bounds out of range: %+v", b)
	}
	if b.South >= b.North || b.West >= b.East {
		return fmt.Errorf("bounds inverted or empty: %+v", b)
	}
	return nil
}

func trim(v float64) string {
	return fmt.Sprintf("%g", v)
}
