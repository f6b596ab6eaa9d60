package canvas

import (
	"math"

	"whiteboard/internal/domain"
)

const (
	PreviewOpacity = 0.7
	// TextBoxThreshold is the drag size, on both axes, above which the text
	// tool places a fixed-width box instead of point text.
	TextBoxThreshold = 10.0
	DuplicateOffset  = 20.0

	boxTextPlaceholder   = "Add text"
	pointTextPlaceholder = "Type here"
	lineHeight           = 1.16
	// averageGlyphWidth approximates auto-sized text extents as a fraction
	// of the font size.
	averageGlyphWidth = 0.6
)

// shapeObject builds the committed form of a shape dragged from a to b.
func shapeObject(kind domain.ShapeKind, a, b domain.Point, style domain.Style) domain.Object {
	r := domain.RectFromPoints(a, b)
	obj := domain.Object{
		Left:        r.Left,
		Top:         r.Top,
		Width:       math.Max(r.Width, 1),
		Height:      math.Max(r.Height, 1),
		ScaleX:      1,
		ScaleY:      1,
		Stroke:      style.Stroke,
		StrokeWidth: style.StrokeWidth,
		Fill:        style.Fill,
		Opacity:     1,
		Selectable:  true,
		Evented:     true,
	}
	switch kind {
	case domain.ShapeCircle:
		// Centered on the drag midpoint, radius from the shorter side.
		c := r.Center()
		radius := math.Max(math.Min(r.Width, r.Height)/2, 1)
		obj.Kind = domain.KindCircle
		obj.Radius = radius
		obj.Left, obj.Top = c.X-radius, c.Y-radius
		obj.Width, obj.Height = radius*2, radius*2
	case domain.ShapeTriangle:
		obj.Kind = domain.KindTriangle
	case domain.ShapeLine:
		obj.Kind = domain.KindLine
		obj.Fill = ""
		obj.X1, obj.Y1 = a.X, a.Y
		obj.X2, obj.Y2 = b.X, b.Y
		obj.Width, obj.Height = r.Width, r.Height
	default:
		obj.Kind = domain.KindRect
	}
	return obj
}

func exceedsTextThreshold(r domain.Rect) bool {
	return r.Width > TextBoxThreshold && r.Height > TextBoxThreshold
}

// textFrame is the dashed outline shown while dragging out a text box.
func textFrame(r domain.Rect) domain.Object {
	return domain.Object{
		Kind:        domain.KindRect,
		Left:        r.Left,
		Top:         r.Top,
		Width:       r.Width,
		Height:      r.Height,
		ScaleX:      1,
		ScaleY:      1,
		Stroke:      "rgba(0,0,0,0.3)",
		StrokeWidth: 1,
		Fill:        "transparent",
		DashArray:   []float64{5, 5},
		Opacity:     1,
		Preview:     true,
	}
}

// boxText is a fixed-width text object filling the dragged rectangle.
func boxText(r domain.Rect, style domain.Style) domain.Object {
	obj := textObject(boxTextPlaceholder, domain.Pt(r.Left, r.Top), style)
	obj.Width = r.Width
	obj.FixedWidth = true
	return obj
}

// pointText is an auto-sizing text object anchored at p.
func pointText(p domain.Point, style domain.Style) domain.Object {
	return textObject(pointTextPlaceholder, p, style)
}

func textObject(text string, at domain.Point, style domain.Style) domain.Object {
	size := style.FontSize
	if size <= 0 {
		size = domain.DefaultStyle().FontSize
	}
	w, h := textExtent(text, size)
	return domain.Object{
		Kind:       domain.KindText,
		Left:       at.X,
		Top:        at.Y,
		Width:      w,
		Height:     h,
		ScaleX:     1,
		ScaleY:     1,
		Text:       text,
		FontSize:   size,
		FontFamily: style.FontFamily,
		Fill:       textColor(style),
		Opacity:    1,
		Selectable: true,
		Evented:    true,
	}
}

// textExtent estimates the box of single-line text.
func textExtent(text string, size float64) (float64, float64) {
	n := len([]rune(text))
	return math.Max(float64(n)*size*averageGlyphWidth, 1), size * lineHeight
}

// textColor is the stroke color, since a transparent fill would make the
// text invisible.
func textColor(style domain.Style) string {
	if style.Stroke == "" || style.Stroke == "transparent" {
		return domain.DefaultStyle().Stroke
	}
	return style.Stroke
}
