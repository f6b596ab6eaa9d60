package mcpserver

import (
	"testing"

	"whiteboard/internal/domain"
)

func TestNextPosition_EmptyBoard(t *testing.T) {
	le := NewLayoutEngine()
	p := le.NextPosition(nil, 160, 100)
	if p.X != 0 || p.Y != 0 {
		t.Errorf("expected (0, 0) for empty board, got (%.0f, %.0f)", p.X, p.Y)
	}
}

func TestNextPosition_AvoidsExisting(t *testing.T) {
	le := NewLayoutEngine()
	existing := []domain.Rect{
		{Left: 0, Top: 0, Width: 160, Height: 100},
		{Left: 240, Top: 0, Width: 160, Height: 100},
	}
	p := le.NextPosition(existing, 160, 100)

	candidate := domain.Rect{Left: p.X, Top: p.Y, Width: 160, Height: 100}
	for _, r := range existing {
		padded := domain.Rect{Left: r.Left - Padding, Top: r.Top - Padding, Width: r.Width + Padding*2, Height: r.Height + Padding*2}
		if intersects(candidate, padded) {
			t.Errorf("position (%.0f, %.0f) overlaps object at (%.0f, %.0f)", p.X, p.Y, r.Left, r.Top)
		}
	}
	if p.Y != 0 {
		t.Errorf("expected placement on the first row, got y=%.0f", p.Y)
	}
}

func TestNextPosition_WrapsRow(t *testing.T) {
	le := NewLayoutEngine()
	existing := []domain.Rect{{Left: 0, Top: 0, Width: MaxRowW, Height: 100}}
	p := le.NextPosition(existing, 160, 100)
	if p.Y < 100+Padding {
		t.Errorf("expected placement below the full row, got y=%.0f", p.Y)
	}
	if p.X != 0 {
		t.Errorf("expected row start, got x=%.0f", p.X)
	}
}

func TestSnap(t *testing.T) {
	le := NewLayoutEngine()
	tests := []struct {
		input, want float64
	}{
		{0, 0},
		{9, 0},
		{11, 20},
		{20, 20},
		{35, 40},
	}
	for _, tt := range tests {
		got := le.snap(tt.input)
		if got != tt.want {
			t.Errorf("snap(%.0f) = %.0f, want %.0f", tt.input, got, tt.want)
		}
	}
}
