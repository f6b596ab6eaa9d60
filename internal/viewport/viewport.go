package viewport

import (
	"math"
	"sync"

	"github.com/gogpu/gg"

	"whiteboard/internal/domain"
)

const (
	DefaultMinZoom    = 0.01
	DefaultMaxZoom    = 20.0
	DefaultFitPadding = 50.0
	DefaultFitMaxZoom = 2.0

	// StepFactor is the multiplicative zoom per discrete zoom action.
	StepFactor = 1.2
)

// Direction is the sense of a discrete zoom step.
type Direction int

const (
	ZoomOut Direction = -1
	ZoomIn  Direction = 1
)

// Options bounds the zoom range and tunes fit-to-content framing.
type Options struct {
	MinZoom    float64
	MaxZoom    float64
	FitPadding float64
	FitMaxZoom float64
}

// DefaultOptions returns the standard zoom limits.
func DefaultOptions() Options {
	return Options{
		MinZoom:    DefaultMinZoom,
		MaxZoom:    DefaultMaxZoom,
		FitPadding: DefaultFitPadding,
		FitMaxZoom: DefaultFitMaxZoom,
	}
}

// Controller owns the pan/zoom transform mapping document space to
// screen space: screen = zoom*doc + translate.
type Controller struct {
	mu       sync.RWMutex
	m        gg.Matrix
	width    float64
	height   float64
	opts     Options
	onChange func(domain.Transform)
}

// New creates a controller for a canvas of the given screen size.
func New(width, height float64, opts Options) *Controller {
	if opts.MinZoom <= 0 {
		opts.MinZoom = DefaultMinZoom
	}
	if opts.MaxZoom < opts.MinZoom {
		opts.MaxZoom = DefaultMaxZoom
	}
	if opts.FitMaxZoom <= 0 {
		opts.FitMaxZoom = DefaultFitMaxZoom
	}
	return &Controller{m: gg.Identity(), width: width, height: height, opts: opts}
}

// OnChange registers a callback invoked after every transform change.
func (c *Controller) OnChange(fn func(domain.Transform)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// SetSize updates the canvas size in screen pixels.
func (c *Controller) SetSize(width, height float64) {
	c.mu.Lock()
	c.width, c.height = width, height
	c.mu.Unlock()
}

// Size returns the canvas size in screen pixels.
func (c *Controller) Size() (width, height float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.width, c.height
}

// Transform returns the current transform in canvas order.
func (c *Controller) Transform() domain.Transform {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.TransformFromMatrix(c.m)
}

// SetTransform replaces the transform wholesale, as history restore does.
func (c *Controller) SetTransform(t domain.Transform) {
	c.apply(t.Matrix())
}

// Zoom returns the current zoom factor.
func (c *Controller) Zoom() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m.A
}

// ZoomAt multiplies the zoom by factor, clamped to the configured range,
// keeping the screen point p visually fixed. Returns the resulting zoom.
func (c *Controller) ZoomAt(p domain.Point, factor float64) float64 {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return c.Zoom()
	}
	m := c.update(func(m gg.Matrix) gg.Matrix {
		zoom := clamp(m.A*factor, c.opts.MinZoom, c.opts.MaxZoom)
		k := zoom / m.A
		next := gg.Translate(p.X, p.Y).
			Multiply(gg.Scale(k, k)).
			Multiply(gg.Translate(-p.X, -p.Y)).
			Multiply(m)
		// Pin the diagonal to the clamped value to avoid drift from repeated products.
		next.A, next.E = zoom, zoom
		return next
	})
	return m.A
}

// Step zooms in or out by StepFactor around the canvas center.
func (c *Controller) Step(dir Direction) float64 {
	w, h := c.Size()
	factor := StepFactor
	if dir == ZoomOut {
		factor = 1 / StepFactor
	}
	return c.ZoomAt(domain.Pt(w/2, h/2), factor)
}

// Pan translates the transform by a screen-space delta.
func (c *Controller) Pan(dx, dy float64) {
	c.update(func(m gg.Matrix) gg.Matrix {
		return gg.Translate(dx, dy).Multiply(m)
	})
}

// Reset restores the identity transform.
func (c *Controller) Reset() {
	c.apply(gg.Identity())
}

// FitToContent frames the union of bounds inside the canvas with a fixed
// padding, never zooming past FitMaxZoom. With no bounds it resets to identity.
func (c *Controller) FitToContent(bounds []domain.Rect) {
	if len(bounds) == 0 {
		c.Reset()
		return
	}
	content := bounds[0]
	for _, r := range bounds[1:] {
		content = content.Union(r)
	}

	center := content.Center()
	c.update(func(gg.Matrix) gg.Matrix {
		w, h, opts := c.width, c.height, c.opts
		pad := opts.FitPadding
		zoom := math.Min(fit(w-2*pad, content.Width), fit(h-2*pad, content.Height))
		zoom = math.Min(zoom, opts.FitMaxZoom)
		zoom = clamp(zoom, opts.MinZoom, opts.MaxZoom)
		return gg.Matrix{
			A: zoom, B: 0, C: w/2 - center.X*zoom,
			D: 0, E: zoom, F: h/2 - center.Y*zoom,
		}
	})
}

// ToDocument maps a screen point into document coordinates.
func (c *Controller) ToDocument(p domain.Point) domain.Point {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m.Invert().TransformPoint(p)
}

// ToScreen maps a document point into screen coordinates.
func (c *Controller) ToScreen(p domain.Point) domain.Point {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m.TransformPoint(p)
}

// Center returns the document point at the middle of the canvas.
func (c *Controller) Center() domain.Point {
	w, h := c.Size()
	return c.ToDocument(domain.Pt(w/2, h/2))
}

func (c *Controller) apply(m gg.Matrix) {
	c.update(func(gg.Matrix) gg.Matrix { return m })
}

// update replaces the transform with next(current) under the write lock, so
// concurrent gestures compose instead of overwriting each other. The observer
// runs after the lock is released.
func (c *Controller) update(next func(gg.Matrix) gg.Matrix) gg.Matrix {
	c.mu.Lock()
	m := next(c.m)
	c.m = m
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(domain.TransformFromMatrix(m))
	}
	return m
}

func fit(avail, size float64) float64 {
	if size <= 0 {
		return math.Inf(1)
	}
	return avail / size
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
