package domain

// Button identifies the pointer button of a pointer event.
type Button int

const (
	ButtonLeft   Button = 0
	ButtonMiddle Button = 1
	ButtonRight  Button = 2
)

// Modifiers is the modifier-key state at the time of an event.
type Modifiers struct {
	Shift bool `json:"shift"`
	Ctrl  bool `json:"ctrl"`
	Meta  bool `json:"meta"`
	Alt   bool `json:"alt"`
}

// Command reports whether the platform command modifier (Ctrl or Cmd) is held.
func (m Modifiers) Command() bool { return m.Ctrl || m.Meta }

// PointerEvent is a pointer down/move/up in screen coordinates.
type PointerEvent struct {
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Button Button    `json:"button"`
	Mods   Modifiers `json:"mods"`
}

// Screen returns the event position as a Point.
func (e PointerEvent) Screen() Point { return Pt(e.X, e.Y) }

// KeyEvent is a keyboard down/up.
type KeyEvent struct {
	Key    string    `json:"key"`
	Code   string    `json:"code"`
	Mods   Modifiers `json:"mods"`
	Repeat bool      `json:"repeat"`
}

// DeltaMode is the granularity of wheel deltas.
type DeltaMode int

const (
	DeltaPixel DeltaMode = 0
	DeltaLine  DeltaMode = 1
	DeltaPage  DeltaMode = 2
)

// WheelEvent is a wheel or trackpad scroll at a screen position.
type WheelEvent struct {
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	DeltaX float64   `json:"deltaX"`
	DeltaY float64   `json:"deltaY"`
	Mode   DeltaMode `json:"deltaMode"`
	Mods   Modifiers `json:"mods"`
}

// ClipboardItem is one typed payload carried by a clipboard event or
// read from the platform clipboard.
type ClipboardItem struct {
	MIME string `json:"mime"`
	Data []byte `json:"data"`
}

// PasteEvent is the payload of a native paste event. HasText distinguishes
// an event that carried empty text from one that carried none.
type PasteEvent struct {
	Text    string          `json:"text"`
	HasText bool            `json:"hasText"`
	Items   []ClipboardItem `json:"items"`
}

// DroppedFile is a file payload from drag-and-drop or the import inbox.
type DroppedFile struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Data []byte `json:"data"`
}
