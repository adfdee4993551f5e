package hud

import (
	"math"

	"github.com/unklstewy/loc-v2/pkg/geo"
)

// Terminal cells are roughly twice as tall as they are wide, so one row
// covers twice the ground distance of one column.
const aspectRatio = 0.5

// pixelsPerColumn maps a terminal column onto web-mercator tile pixels so
// zoom levels feel the same as on a slippy map.
const pixelsPerColumn = 8

// Projection maps coordinates onto the radar grid and back.
type Projection struct {
	Center geo.Coordinate
	Zoom   int
	Width  int
	Height int
}

// MetersPerColumn is the ground width of one column at the center latitude.
func (p Projection) MetersPerColumn() float64 {
	mpp := 156543.03392 * math.Cos(p.Center.Lat*math.Pi/180) / math.Pow(2, float64(p.Zoom))
	return mpp * pixelsPerColumn
}

// MetersPerRow is the ground height of one row.
func (p Projection) MetersPerRow() float64 {
	return p.MetersPerColumn() / aspectRatio
}

func (p Projection) centerCell() (int, int) {
	return p.Width / 2, p.Height / 2
}

// ToScreen returns the cell for c. ok is false when c falls off the grid.
func (p Projection) ToScreen(c geo.Coordinate) (x, y int, ok bool) {
	east, north := geo.LocalDelta(p.Center, c)
	cx, cy := p.centerCell()
	x = cx + int(math.Round(east/p.MetersPerColumn()))
	y = cy - int(math.Round(north/p.MetersPerRow()))
	ok = x >= 0 && x < p.Width && y >= 0 && y < p.Height
	return x, y, ok
}

// ToCoord returns the coordinate under cell (x, y).
func (p Projection) ToCoord(x, y int) geo.Coordinate {
	cx, cy := p.centerCell()
	east := float64(x-cx) * p.MetersPerColumn()
	north := float64(cy-y) * p.MetersPerRow()
	return geo.Offset(p.Center, east, north)
}

// RangeMeters is the ground distance from the center to the nearest edge.
func (p Projection) RangeMeters() float64 {
	h := float64(p.Height/2) * p.MetersPerRow()
	w := float64(p.Width/2) * p.MetersPerColumn()
	return math.Min(h, w)
}

// screen returns the unrounded cell position of c.
func (p Projection) screen(c geo.Coordinate) (float64, float64) {
	east, north := geo.LocalDelta(p.Center, c)
	cx, cy := p.centerCell()
	return float64(cx) + east/p.MetersPerColumn(), float64(cy) - north/p.MetersPerRow()
}
