package mcpserver

import (
	"math"

	"whiteboard/internal/domain"
)

const (
	GridSize = 20.0
	Padding  = 40.0 // 2 grid cells between objects
	MaxRowW  = 1600.0
)

// LayoutEngine places agent-created objects on the board so that they
// don't overlap what is already drawn.
type LayoutEngine struct {
	gridSize float64
	padding  float64
	maxRowW  float64
}

func NewLayoutEngine() *LayoutEngine {
	return &LayoutEngine{
		gridSize: GridSize,
		padding:  Padding,
		maxRowW:  MaxRowW,
	}
}

// snap rounds v to the nearest grid point.
func (le *LayoutEngine) snap(v float64) float64 {
	return math.Round(v/le.gridSize) * le.gridSize
}

func intersects(a, b domain.Rect) bool {
	return a.Left < b.Right() && a.Right() > b.Left &&
		a.Top < b.Bottom() && a.Bottom() > b.Top
}

// NextPosition finds the first free grid position, scanning rows top to
// bottom, for an object of size (w, h) given the occupied bounds.
func (le *LayoutEngine) NextPosition(existing []domain.Rect, w, h float64) domain.Point {
	if len(existing) == 0 {
		return domain.Pt(0, 0)
	}

	padded := make([]domain.Rect, len(existing))
	for i, r := range existing {
		padded[i] = domain.Rect{
			Left:   r.Left - le.padding,
			Top:    r.Top - le.padding,
			Width:  r.Width + le.padding*2,
			Height: r.Height + le.padding*2,
		}
	}

	candidate := domain.Rect{Width: w, Height: h}
	for y := 0.0; y < 100000; y += le.gridSize {
		for x := 0.0; x+w <= le.maxRowW || x == 0; x += le.gridSize {
			candidate.Left = le.snap(x)
			candidate.Top = le.snap(y)

			free := true
			for _, occ := range padded {
				if intersects(candidate, occ) {
					free = false
					break
				}
			}
			if free {
				return domain.Pt(candidate.Left, candidate.Top)
			}
		}
	}

	// Fallback: place below everything
	maxY := 0.0
	for _, r := range existing {
		maxY = math.Max(maxY, r.Bottom())
	}
	return domain.Pt(0, le.snap(maxY+le.padding))
}

// Occupied returns the bounds of objs.
func Occupied(objs []domain.Object) []domain.Rect {
	out := make([]domain.Rect, len(objs))
	for i, o := range objs {
		out[i] = o.Bounds()
	}
	return out
}
