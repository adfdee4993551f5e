package hud

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/loc-v2/internal/controller"
	"github.com/unklstewy/loc-v2/pkg/geo"
	"github.com/unklstewy/loc-v2/pkg/routing"
)

type cellKind int

const (
	cellEmpty cellKind = iota
	cellMasked
	cellRing
	cellLabel
	cellCardinal
	cellRoute
	cellCrosshair
	cellTarget
	cellUser
	cellCursor
)

type cell struct {
	r    rune
	kind cellKind
}

// grid is the radar canvas. Higher kinds overwrite lower ones.
type grid [][]cell

func newGrid(w, h int) grid {
	g := make(grid, h)
	for y := range g {
		g[y] = make([]cell, w)
		for x := range g[y] {
			g[y][x] = cell{r: ' '}
		}
	}
	return g
}

func (g grid) set(x, y int, r rune, kind cellKind) {
	if y < 0 || y >= len(g) || x < 0 || x >= len(g[y]) {
		return
	}
	if kind >= g[y][x].kind {
		g[y][x] = cell{r: r, kind: kind}
	}
}

func (g grid) text(x, y int, s string, kind cellKind) {
	i := 0
	for _, r := range s {
		g.set(x+i, y, r, kind)
		i++
	}
}

// headingArrows are indexed by heading in 45 degree steps from north.
var headingArrows = []rune{'↑', '↗', '→', '↘', '↓', '↙', '←', '↖'}

func headingArrow(deg int) rune {
	idx := int(math.Round(float64(((deg%360)+360)%360)/45)) % len(headingArrows)
	return headingArrows[idx]
}

// ringSteps are candidate ring spacings in meters.
var ringSteps = []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 25000, 50000, 100000}

// ringSpacing picks the smallest spacing that leaves at most three rings.
func ringSpacing(rangeMeters float64) float64 {
	for _, step := range ringSteps {
		if rangeMeters/step <= 3 {
			return step
		}
	}
	return ringSteps[len(ringSteps)-1]
}

// radarView is what renderRadar needs from the model.
type radarView struct {
	state     controller.State
	proj      Projection
	theme     theme
	designate bool
	cursorX   int
	cursorY   int
	region    geo.Bounds
}

func renderRadar(v radarView) string {
	p := v.proj
	g := newGrid(p.Width, p.Height)
	cx, cy := p.centerCell()

	// region mask
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			if !v.region.Contains(p.ToCoord(x, y)) {
				g.set(x, y, '░', cellMasked)
			}
		}
	}

	// range rings
	spacing := ringSpacing(p.RangeMeters())
	for dist := spacing; dist <= p.RangeMeters(); dist += spacing {
		radius := int(dist / p.MetersPerRow())
		if radius < 1 {
			continue
		}
		drawCircle(g, cx, cy, radius, '·')
		label := routing.FormatDistance(dist)
		g.text(cx+1, cy-radius, label, cellLabel)
	}

	// cardinals
	g.set(cx, 0, 'N', cellCardinal)
	g.set(cx, p.Height-1, 'S', cellCardinal)
	g.set(p.Width-1, cy, 'E', cellCardinal)
	g.set(0, cy, 'W', cellCardinal)

	g.set(cx, cy, '+', cellCrosshair)

	if r := v.state.ActiveRoute; r != nil {
		for i := 1; i < len(r.Coordinates); i++ {
			x0, y0 := p.screen(r.Coordinates[i-1])
			x1, y1 := p.screen(r.Coordinates[i])
			drawSegment(g, x0, y0, x1, y1, '•')
		}
	}

	if t := v.state.Target; t != nil {
		if x, y, ok := p.ToScreen(t.Coordinate()); ok {
			g.set(x, y, '◎', cellTarget)
		}
	}

	if u := v.state.UserLocation; u != nil {
		if x, y, ok := p.ToScreen(*u); ok {
			mark := '●'
			if v.state.HasHeading {
				mark = headingArrow(v.state.Heading)
			}
			g.set(x, y, mark, cellUser)
		}
	}

	if v.designate {
		g.set(v.cursorX, v.cursorY, '✛', cellCursor)
	}

	return g.render(v.theme)
}

func (g grid) render(t theme) string {
	var b strings.Builder
	width := 0
	if len(g) > 0 {
		width = len(g[0])
	}
	b.WriteString(t.border.Render("┌" + strings.Repeat("─", width) + "┐"))
	b.WriteString("\n")
	for _, row := range g {
		b.WriteString(t.border.Render("│"))
		for _, c := range row {
			b.WriteString(styleFor(t, c.kind).Render(string(c.r)))
		}
		b.WriteString(t.border.Render("│"))
		b.WriteString("\n")
	}
	b.WriteString(t.border.Render("└" + strings.Repeat("─", width) + "┘"))
	return b.String()
}

func styleFor(t theme, k cellKind) lipgloss.Style {
	switch k {
	case cellMasked:
		return t.masked
	case cellRing:
		return t.ring
	case cellLabel, cellCardinal:
		return t.dim
	case cellRoute:
		return t.route
	case cellCrosshair:
		return t.text
	case cellTarget:
		return t.target
	case cellUser:
		return t.user
	case cellCursor:
		return t.cursor
	default:
		return t.text
	}
}

// drawCircle draws a ring with Bresenham's circle algorithm, stretching X to
// compensate for the cell aspect ratio.
func drawCircle(g grid, cx, cy, radius int, r rune) {
	x := radius
	y := 0
	err := 0

	for x >= y {
		xs := int(float64(x) / aspectRatio)
		ys := int(float64(y) / aspectRatio)

		g.set(cx+xs, cy+y, r, cellRing)
		g.set(cx+ys, cy+x, r, cellRing)
		g.set(cx-ys, cy+x, r, cellRing)
		g.set(cx-xs, cy+y, r, cellRing)
		g.set(cx-xs, cy-y, r, cellRing)
		g.set(cx-ys, cy-x, r, cellRing)
		g.set(cx+ys, cy-x, r, cellRing)
		g.set(cx+xs, cy-y, r, cellRing)

		y++
		err += 1 + 2*y
		if 2*(err-x)+1 > 0 {
			x--
			err += 1 - 2*x
		}
	}
}

// drawSegment clips the segment to the grid and rasterizes what remains.
func drawSegment(g grid, x0, y0, x1, y1 float64, r rune) {
	if len(g) == 0 {
		return
	}
	maxX := float64(len(g[0]) - 1)
	maxY := float64(len(g) - 1)
	x0, y0, x1, y1, ok := clipSegment(x0, y0, x1, y1, 0, 0, maxX, maxY)
	if !ok {
		return
	}
	drawLine(g, int(math.Round(x0)), int(math.Round(y0)), int(math.Round(x1)), int(math.Round(y1)), r)
}

// clipSegment is Liang-Barsky clipping against the rectangle.
func clipSegment(x0, y0, x1, y1, minX, minY, maxX, maxY float64) (float64, float64, float64, float64, bool) {
	dx := x1 - x0
	dy := y1 - y0
	t0, t1 := 0.0, 1.0

	edges := [4][2]float64{
		{-dx, x0 - minX},
		{dx, maxX - x0},
		{-dy, y0 - minY},
		{dy, maxY - y0},
	}
	for _, e := range edges {
		pv, qv := e[0], e[1]
		if pv == 0 {
			if qv < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		t := qv / pv
		if pv < 0 {
			if t > t1 {
				return 0, 0, 0, 0, false
			}
			if t > t0 {
				t0 = t
			}
		} else {
			if t < t0 {
				return 0, 0, 0, 0, false
			}
			if t < t1 {
				t1 = t
			}
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

// drawLine is Bresenham's line algorithm.
func drawLine(g grid, x0, y0, x1, y1 int, r rune) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		g.set(x0, y0, r, cellRoute)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
