package domain

import (
	"math"

	"github.com/gogpu/gg"
)

// Point is a 2D position in either screen or document space.
type Point = gg.Point

// Pt is a shorthand constructor for Point.
func Pt(x, y float64) Point { return gg.Pt(x, y) }

// ObjectKind identifies the drawable type of a scene object.
type ObjectKind string

const (
	KindPath     ObjectKind = "path"
	KindRect     ObjectKind = "rect"
	KindCircle   ObjectKind = "circle"
	KindTriangle ObjectKind = "triangle"
	KindLine     ObjectKind = "line"
	KindText     ObjectKind = "text"
	KindImage    ObjectKind = "image"
)

// Rect is an axis-aligned rectangle in document space.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Pt(r.Left+r.Width/2, r.Top+r.Height/2)
}

// Contains reports whether p lies inside r (edges included).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right() && p.Y >= r.Top && p.Y <= r.Bottom()
}

// Union returns the smallest rectangle covering both r and o.
func (r Rect) Union(o Rect) Rect {
	left := math.Min(r.Left, o.Left)
	top := math.Min(r.Top, o.Top)
	right := math.Max(r.Right(), o.Right())
	bottom := math.Max(r.Bottom(), o.Bottom())
	return Rect{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// RectFromPoints builds the normalized rectangle spanned by two corners.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		Left:   math.Min(a.X, b.X),
		Top:    math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// Object is a single drawable entity in the document.
// Geometry is stored in document coordinates; Width/Height are the
// unscaled extent and ScaleX/ScaleY the object's own scale factors.
type Object struct {
	ID     string     `json:"id"`
	Kind   ObjectKind `json:"type"`
	Left   float64    `json:"left"`
	Top    float64    `json:"top"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	ScaleX float64    `json:"scaleX"`
	ScaleY float64    `json:"scaleY"`

	Radius float64 `json:"radius,omitempty"`
	X1     float64 `json:"x1,omitempty"`
	Y1     float64 `json:"y1,omitempty"`
	X2     float64 `json:"x2,omitempty"`
	Y2     float64 `json:"y2,omitempty"`
	Points []Point `json:"points,omitempty"`

	Text       string  `json:"text,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	FixedWidth bool    `json:"fixedWidth,omitempty"`

	Src string `json:"src,omitempty"`

	Stroke      string    `json:"stroke,omitempty"`
	StrokeWidth float64   `json:"strokeWidth,omitempty"`
	Fill        string    `json:"fill,omitempty"`
	Opacity     float64   `json:"opacity"`
	DashArray   []float64 `json:"strokeDashArray,omitempty"`

	Selectable bool `json:"selectable"`
	Evented    bool `json:"evented"`

	// Preview marks a transient gesture object. It is never serialized, so
	// loaded documents contain no previews whatever their flags say.
	Preview bool `json:"-"`
}

// Bounds returns the object's bounding rectangle including its scale.
func (o Object) Bounds() Rect {
	return Rect{
		Left:   o.Left,
		Top:    o.Top,
		Width:  o.Width * scaleOrOne(o.ScaleX),
		Height: o.Height * scaleOrOne(o.ScaleY),
	}
}

// IsPreview reports whether the object is a transient gesture preview.
// Previews are never recorded in history.
func (o Object) IsPreview() bool {
	return o.Preview
}

// Translate moves the object and every absolute coordinate it carries.
func (o *Object) Translate(dx, dy float64) {
	o.Left += dx
	o.Top += dy
	if o.Kind == KindLine {
		o.X1 += dx
		o.Y1 += dy
		o.X2 += dx
		o.Y2 += dy
	}
	if len(o.Points) > 0 {
		pts := make([]Point, len(o.Points))
		for i, p := range o.Points {
			pts[i] = Pt(p.X+dx, p.Y+dy)
		}
		o.Points = pts
	}
}

// MoveTo places the object's top-left corner at p.
func (o *Object) MoveTo(p Point) {
	o.Translate(p.X-o.Left, p.Y-o.Top)
}

// Copy returns a deep copy that keeps the same ID.
func (o Object) Copy() Object {
	c := o
	if o.Points != nil {
		c.Points = append([]Point(nil), o.Points...)
	}
	if o.DashArray != nil {
		c.DashArray = append([]float64(nil), o.DashArray...)
	}
	return c
}

func scaleOrOne(s float64) float64 {
	if s == 0 {
		return 1
	}
	return s
}
