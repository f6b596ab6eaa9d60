package viewport

import "whiteboard/internal/domain"

const (
	lineHeightPx = 16.0
	pageHeightPx = 100.0

	wheelZoomIn  = 1.1
	wheelZoomOut = 0.9

	// PanStep and PanStepLarge are the keyboard pan distances in screen pixels.
	PanStep      = 50.0
	PanStepLarge = 200.0
)

// NormalizeWheel converts line- and page-mode deltas into pixels.
func NormalizeWheel(dx, dy float64, mode domain.DeltaMode) (float64, float64) {
	switch mode {
	case domain.DeltaLine:
		return dx * lineHeightPx, dy * lineHeightPx
	case domain.DeltaPage:
		return dx * pageHeightPx, dy * pageHeightPx
	}
	return dx, dy
}

// Wheel applies a wheel gesture: with the command modifier it zooms at the
// pointer, otherwise it pans by the negated delta.
func (c *Controller) Wheel(ev domain.WheelEvent) {
	dx, dy := NormalizeWheel(ev.DeltaX, ev.DeltaY, ev.Mode)
	if ev.Mods.Command() {
		if dy == 0 {
			return
		}
		factor := wheelZoomIn
		if dy > 0 {
			factor = wheelZoomOut
		}
		c.ZoomAt(domain.Pt(ev.X, ev.Y), factor)
		return
	}
	if ev.Mods.Shift && dx == 0 {
		dx, dy = dy, 0
	}
	c.Pan(-dx, -dy)
}

// PanKey pans the viewport one keyboard step for an arrow key. It reports
// false for keys that are not arrows.
func (c *Controller) PanKey(key string, large bool) bool {
	dx, dy, ok := ArrowDelta(key)
	if !ok {
		return false
	}
	step := PanStep
	if large {
		step = PanStepLarge
	}
	// Arrow keys move the view, so the content shifts the other way.
	c.Pan(-dx*step, -dy*step)
	return true
}

// ArrowDelta maps an arrow key to a unit direction.
func ArrowDelta(key string) (dx, dy float64, ok bool) {
	switch key {
	case "ArrowLeft":
		return -1, 0, true
	case "ArrowRight":
		return 1, 0, true
	case "ArrowUp":
		return 0, -1, true
	case "ArrowDown":
		return 0, 1, true
	}
	return 0, 0, false
}
