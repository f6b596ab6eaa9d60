package canvas

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"whiteboard/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Gestures
// ─────────────────────────────────────────────────────────────

type gestureKind int

const (
	gesturePan gestureKind = iota
	gestureMove
	gestureStroke
	gestureShape
	gestureText
)

// gesture is the single live pointer interaction.
type gesture struct {
	kind gestureKind
	// start is the document point of pointer-down.
	start domain.Point
	// last is the previous screen point for pans and the previous
	// document point for moves.
	last    domain.Point
	preview string
	moved   bool
}

type pointer struct {
	screen domain.Point
	doc    domain.Point
	ev     domain.PointerEvent
}

// toolHandler is one row of the tool table. Handlers run with mu held.
type toolHandler interface {
	down(ctx context.Context, e *Engine, p pointer)
	move(ctx context.Context, e *Engine, p pointer)
	up(ctx context.Context, e *Engine, p pointer)
}

// ─────────────────────────────────────────────────────────────
// Pointer routing
// ─────────────────────────────────────────────────────────────

// PointerDown routes a pointer press. Right-click opens the context menu,
// the middle button and a held Space pan under any tool, and a press on an
// existing object under a creating tool selects it instead.
func (e *Engine) PointerDown(ctx context.Context, ev domain.PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	p := e.pointer(ev)

	switch {
	case ev.Button == domain.ButtonRight:
		e.openContextMenu(p)
		return
	case ev.Button == domain.ButtonMiddle || (ev.Button == domain.ButtonLeft && e.spaceHeld):
		e.abortGesture()
		e.beginPan(p)
		return
	case ev.Button != domain.ButtonLeft:
		return
	}

	e.abortGesture()
	tool := e.state.Tool
	if tool != domain.ToolSelect && tool != domain.ToolPan {
		if target, ok := e.scene.FindTargetAt(p.doc); ok {
			e.setToolLocked(ctx, domain.ToolState{Tool: domain.ToolSelect})
			e.scene.SetActiveObjects(target.ID)
			return
		}
	}
	e.handlers[tool].down(ctx, e, p)
}

// PointerMove updates the live gesture.
func (e *Engine) PointerMove(ctx context.Context, ev domain.PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.gesture == nil {
		return
	}
	p := e.pointer(ev)
	if e.gesture.kind == gesturePan {
		e.panTo(p)
		return
	}
	e.handlers[e.state.Tool].move(ctx, e, p)
}

// PointerUp finishes the live gesture.
func (e *Engine) PointerUp(ctx context.Context, ev domain.PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.gesture == nil {
		return
	}
	p := e.pointer(ev)
	if e.gesture.kind == gesturePan {
		e.panTo(p)
		e.gesture = nil
		return
	}
	e.handlers[e.state.Tool].up(ctx, e, p)
}

func (e *Engine) beginPan(p pointer) {
	e.gesture = &gesture{kind: gesturePan, start: p.doc, last: p.screen}
}

func (e *Engine) panTo(p pointer) {
	g := e.gesture
	dx, dy := p.screen.X-g.last.X, p.screen.Y-g.last.Y
	g.last = p.screen
	if dx != 0 || dy != 0 {
		e.vp.Pan(dx, dy)
	}
}

// ── select ──────────────────────────────────────────────

type selectTool struct{}

func (selectTool) down(_ context.Context, e *Engine, p pointer) {
	target, ok := e.scene.FindTargetAt(p.doc)
	if id, editing := e.scene.EditingID(); editing && (!ok || target.ID != id) {
		e.scene.ExitEditing()
	}
	if !ok {
		e.scene.ClearSelection()
		return
	}
	ids := activeIDs(e.scene)
	switch {
	case p.ev.Mods.Shift:
		if !slices.Contains(ids, target.ID) {
			ids = append(ids, target.ID)
		}
		e.scene.SetActiveObjects(ids...)
	case !slices.Contains(ids, target.ID):
		e.scene.SetActiveObjects(target.ID)
	}
	if target.Selectable {
		e.gesture = &gesture{kind: gestureMove, start: p.doc, last: p.doc}
	}
}

func (selectTool) move(_ context.Context, e *Engine, p pointer) {
	g := e.gesture
	if g.kind != gestureMove {
		return
	}
	dx, dy := p.doc.X-g.last.X, p.doc.Y-g.last.Y
	g.last = p.doc
	if dx == 0 && dy == 0 {
		return
	}
	g.moved = true
	translateActive(e, dx, dy)
}

func (selectTool) up(_ context.Context, e *Engine, _ pointer) {
	e.gesture = nil
}

// ── pen ─────────────────────────────────────────────────

// penTool forwards the gesture to the freehand drawer. Drawing mode and
// target suppression are toggled on tool change.
type penTool struct{}

func (penTool) down(_ context.Context, e *Engine, p pointer) {
	if e.drawer == nil {
		return
	}
	e.drawer.Begin(p.doc)
	e.gesture = &gesture{kind: gestureStroke, start: p.doc}
}

func (penTool) move(_ context.Context, e *Engine, p pointer) {
	if e.gesture.kind != gestureStroke {
		return
	}
	e.drawer.Extend(p.doc)
}

func (penTool) up(_ context.Context, e *Engine, p pointer) {
	if e.gesture.kind != gestureStroke {
		return
	}
	e.gesture = nil
	e.drawer.Extend(p.doc)
	if _, ok := e.drawer.End(); !ok {
		e.log.Warn("canvas: stroke not committed")
	}
}

// ── pan ─────────────────────────────────────────────────

type panTool struct{}

func (panTool) down(_ context.Context, e *Engine, p pointer) { e.beginPan(p) }
func (panTool) move(context.Context, *Engine, pointer)       {}
func (panTool) up(context.Context, *Engine, pointer)         {}

// ── shape ───────────────────────────────────────────────

type shapeTool struct{}

func (shapeTool) down(_ context.Context, e *Engine, p pointer) {
	preview := shapeObject(e.state.Shape, p.doc, p.doc, e.style)
	preview.ID = uuid.New().String()
	markPreview(&preview)
	if err := e.scene.AddObject(preview); err != nil {
		e.log.Warn("canvas: shape preview failed", "shape", e.state.Shape, "err", err)
		return
	}
	e.gesture = &gesture{kind: gestureShape, start: p.doc, preview: preview.ID}
}

func (shapeTool) move(_ context.Context, e *Engine, p pointer) {
	g := e.gesture
	if g.kind != gestureShape {
		return
	}
	preview := shapeObject(e.state.Shape, g.start, p.doc, e.style)
	preview.ID = g.preview
	markPreview(&preview)
	if err := e.scene.UpdateObject(preview); err != nil {
		e.log.Warn("canvas: shape preview failed", "shape", e.state.Shape, "err", err)
		e.abortGesture()
		return
	}
	if p.doc != g.start {
		g.moved = true
	}
}

// up promotes the preview to a permanent object, selects it and reverts to
// the select tool. A click without a drag leaves nothing behind.
func (shapeTool) up(ctx context.Context, e *Engine, p pointer) {
	g := e.gesture
	if g.kind != gestureShape {
		return
	}
	if !g.moved && p.doc == g.start {
		e.abortGesture()
		return
	}
	e.gesture = nil

	obj := shapeObject(e.state.Shape, g.start, p.doc, e.style)
	obj.ID = g.preview
	if err := e.scene.UpdateObject(obj); err != nil {
		e.log.Warn("canvas: shape commit failed", "shape", e.state.Shape, "err", err)
		e.scene.RemoveObject(g.preview)
		return
	}
	e.setToolLocked(ctx, domain.ToolState{Tool: domain.ToolSelect})
	e.scene.SetActiveObjects(obj.ID)
}

// ── text ────────────────────────────────────────────────

type textTool struct{}

func (textTool) down(_ context.Context, e *Engine, p pointer) {
	e.gesture = &gesture{kind: gestureText, start: p.doc}
}

// move shows a dashed frame once the drag exceeds the text-box threshold.
func (textTool) move(_ context.Context, e *Engine, p pointer) {
	g := e.gesture
	if g.kind != gestureText {
		return
	}
	r := domain.RectFromPoints(g.start, p.doc)
	if !exceedsTextThreshold(r) {
		if g.preview != "" {
			e.scene.RemoveObject(g.preview)
			g.preview = ""
		}
		return
	}
	frame := textFrame(r)
	if g.preview == "" {
		frame.ID = uuid.New().String()
		if err := e.scene.AddObject(frame); err != nil {
			e.log.Warn("canvas: text frame failed", "err", err)
			return
		}
		g.preview = frame.ID
		return
	}
	frame.ID = g.preview
	if err := e.scene.UpdateObject(frame); err != nil {
		e.log.Warn("canvas: text frame failed", "err", err)
	}
}

// up places a fixed-width text box for a large drag and point text
// otherwise, then opens it for editing.
func (textTool) up(ctx context.Context, e *Engine, p pointer) {
	g := e.gesture
	if g.kind != gestureText {
		return
	}
	e.abortGesture()

	var obj domain.Object
	if r := domain.RectFromPoints(g.start, p.doc); exceedsTextThreshold(r) {
		obj = boxText(r, e.style)
	} else {
		obj = pointText(g.start, e.style)
	}
	obj.ID = uuid.New().String()
	if err := e.scene.AddObject(obj); err != nil {
		e.log.Warn("canvas: text placement failed", "err", err)
		return
	}
	e.setToolLocked(ctx, domain.ToolState{Tool: domain.ToolSelect})
	e.scene.SetActiveObjects(obj.ID)
	e.beginEditing(ctx, obj.ID)
}

// beginEditing enters text edit mode with the whole content selected.
// Must be called with mu held.
func (e *Engine) beginEditing(ctx context.Context, id string) bool {
	if !e.scene.EnterEditing(id) {
		return false
	}
	e.emitter.Emit(ctx, EventTextEditing, map[string]any{"id": id, "selectAll": true})
	return true
}

// ── helpers ─────────────────────────────────────────────

func markPreview(o *domain.Object) {
	o.Opacity = PreviewOpacity
	o.Selectable = false
	o.Evented = false
	o.Preview = true
}

func activeIDs(s domain.Scene) []string {
	active := s.ActiveObjects()
	ids := make([]string, len(active))
	for i, o := range active {
		ids[i] = o.ID
	}
	return ids
}

func translateActive(e *Engine, dx, dy float64) bool {
	active := e.scene.ActiveObjects()
	for _, o := range active {
		o.Translate(dx, dy)
		if err := e.scene.UpdateObject(o); err != nil {
			e.log.Warn("canvas: move failed", "id", o.ID, "err", err)
		}
	}
	return len(active) > 0
}
