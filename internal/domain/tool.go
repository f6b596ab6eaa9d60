package domain

// Tool is the active interaction mode of the canvas.
type Tool string

const (
	ToolSelect Tool = "select"
	ToolPen    Tool = "pen"
	ToolPan    Tool = "pan"
	ToolShape  Tool = "shape"
	ToolText   Tool = "text"
)

// Valid reports whether t is a known tool.
func (t Tool) Valid() bool {
	switch t {
	case ToolSelect, ToolPen, ToolPan, ToolShape, ToolText:
		return true
	}
	return false
}

// ShapeKind is the sub-mode of the shape tool.
type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
	ShapeTriangle  ShapeKind = "triangle"
	ShapeLine      ShapeKind = "line"
)

// Valid reports whether k is a known shape kind.
func (k ShapeKind) Valid() bool {
	switch k {
	case ShapeRectangle, ShapeCircle, ShapeTriangle, ShapeLine:
		return true
	}
	return false
}

// ToolState is the active tool plus the shape sub-mode, which is only
// meaningful while Tool is ToolShape.
type ToolState struct {
	Tool  Tool      `json:"tool"`
	Shape ShapeKind `json:"shape"`
}

// Style carries the stroke/fill settings applied to newly created objects.
type Style struct {
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	Fill        string  `json:"fill"`
	FontSize    float64 `json:"fontSize"`
	FontFamily  string  `json:"fontFamily"`
}

// DefaultStyle mirrors the toolbar defaults of a fresh board.
func DefaultStyle() Style {
	return Style{
		Stroke:      "#000000",
		StrokeWidth: 2,
		Fill:        "transparent",
		FontSize:    20,
		FontFamily:  "Arial",
	}
}
