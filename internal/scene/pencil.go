package scene

import (
	"math"
	"sync"

	"github.com/google/uuid"

	"whiteboard/internal/domain"
)

// Pencil is a freehand brush that turns a pointer gesture into a path object.
type Pencil struct {
	scene domain.Scene

	mu     sync.Mutex
	style  domain.Style
	points []domain.Point
	active bool
}

var _ domain.FreehandDrawer = (*Pencil)(nil)

// NewPencil creates a brush that commits strokes to s.
func NewPencil(s domain.Scene, style domain.Style) *Pencil {
	return &Pencil{scene: s, style: style}
}

// SetStyle changes the stroke used for subsequent strokes.
func (p *Pencil) SetStyle(style domain.Style) {
	p.mu.Lock()
	p.style = style
	p.mu.Unlock()
}

func (p *Pencil) Begin(pt domain.Point) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = true
	p.points = []domain.Point{pt}
}

func (p *Pencil) Extend(pt domain.Point) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return
	}
	if last := p.points[len(p.points)-1]; last == pt {
		return
	}
	p.points = append(p.points, pt)
}

// End adds the stroke to the scene. A single click yields a dot.
func (p *Pencil) End() (domain.Object, bool) {
	p.mu.Lock()
	if !p.active || len(p.points) == 0 {
		p.mu.Unlock()
		return domain.Object{}, false
	}
	obj := pathObject(p.points, p.style)
	p.active = false
	p.points = nil
	p.mu.Unlock()

	if err := p.scene.AddObject(obj); err != nil {
		return domain.Object{}, false
	}
	return obj, true
}

func (p *Pencil) Cancel() {
	p.mu.Lock()
	p.active = false
	p.points = nil
	p.mu.Unlock()
}

func pathObject(pts []domain.Point, style domain.Style) domain.Object {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, pt := range pts {
		minX = math.Min(minX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxX = math.Max(maxX, pt.X)
		maxY = math.Max(maxY, pt.Y)
	}
	return domain.Object{
		ID:          uuid.New().String(),
		Kind:        domain.KindPath,
		Left:        minX,
		Top:         minY,
		Width:       math.Max(maxX-minX, 1),
		Height:      math.Max(maxY-minY, 1),
		ScaleX:      1,
		ScaleY:      1,
		Points:      append([]domain.Point(nil), pts...),
		Stroke:      style.Stroke,
		StrokeWidth: style.StrokeWidth,
		Opacity:     1,
		Selectable:  true,
		Evented:     true,
	}
}
