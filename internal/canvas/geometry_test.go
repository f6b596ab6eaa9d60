package canvas_test

import (
	"testing"

	"whiteboard/internal/domain"
)

func TestShapeGeometry(t *testing.T) {
	tests := []struct {
		name       string
		kind       domain.ShapeKind
		from, to   domain.Point
		wantKind   domain.ObjectKind
		wantBounds domain.Rect
	}{
		{
			name: "rectangle from any corner",
			kind: domain.ShapeRectangle, from: domain.Pt(110, 60), to: domain.Pt(10, 10),
			wantKind: domain.KindRect, wantBounds: domain.Rect{Left: 10, Top: 10, Width: 100, Height: 50},
		},
		{
			name: "circle uses the shorter side",
			kind: domain.ShapeCircle, from: domain.Pt(0, 0), to: domain.Pt(100, 40),
			wantKind: domain.KindCircle, wantBounds: domain.Rect{Left: 30, Top: 0, Width: 40, Height: 40},
		},
		{
			name: "triangle fills the drag box",
			kind: domain.ShapeTriangle, from: domain.Pt(20, 20), to: domain.Pt(80, 120),
			wantKind: domain.KindTriangle, wantBounds: domain.Rect{Left: 20, Top: 20, Width: 60, Height: 100},
		},
		{
			name: "thin rectangle has a minimum size",
			kind: domain.ShapeRectangle, from: domain.Pt(0, 0), to: domain.Pt(50, 0),
			wantKind: domain.KindRect, wantBounds: domain.Rect{Left: 0, Top: 0, Width: 50, Height: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.engine.SelectShape(h.ctx, tt.kind)
			h.drag(domain.ButtonLeft, tt.from, tt.to)

			objs := h.engine.Objects()
			if len(objs) != 1 {
				t.Fatalf("expected 1 object, got %d", len(objs))
			}
			if objs[0].Kind != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, objs[0].Kind)
			}
			if got := objs[0].Bounds(); got != tt.wantBounds {
				t.Errorf("expected bounds %+v, got %+v", tt.wantBounds, got)
			}
		})
	}
}

func TestShapeGeometry_CircleRadius(t *testing.T) {
	h := newHarness(t)
	h.engine.SelectShape(h.ctx, domain.ShapeCircle)
	h.drag(domain.ButtonLeft, domain.Pt(0, 0), domain.Pt(1, 60))

	c := h.engine.Objects()[0]
	if c.Radius != 1 {
		t.Errorf("expected radius floor of 1, got %v", c.Radius)
	}
}
