package canvas

import (
	"context"
	"strings"

	"whiteboard/internal/domain"
	"whiteboard/internal/viewport"
)

const (
	NudgeStep      = 1.0
	NudgeStepLarge = 10.0
)

var toolKeys = map[string]domain.Tool{
	"v": domain.ToolSelect,
	"p": domain.ToolPen,
	"h": domain.ToolPan,
	"s": domain.ToolShape,
	"t": domain.ToolText,
}

// ─────────────────────────────────────────────────────────────
// Keyboard
// ─────────────────────────────────────────────────────────────

// KeyDown applies the keyboard map and reports whether the key was
// consumed. While a text object is being edited only Escape is handled.
func (e *Engine) KeyDown(ctx context.Context, ev domain.KeyEvent) bool {
	if e.editing() {
		if ev.Key == "Escape" {
			e.FinishEditing(ctx)
			return true
		}
		return false
	}

	key := strings.ToLower(ev.Key)
	if ev.Mods.Command() {
		return e.commandKey(ctx, key, ev.Mods)
	}

	switch key {
	case " ":
		e.mu.Lock()
		e.spaceHeld = true
		e.mu.Unlock()
		return true
	case "escape":
		e.Escape(ctx)
		return true
	case "delete", "backspace":
		return e.Delete(ctx)
	case "arrowleft", "arrowright", "arrowup", "arrowdown":
		return e.arrow(ev.Key, ev.Mods.Shift)
	}
	if tool, ok := toolKeys[key]; ok && !ev.Mods.Alt {
		return e.SelectTool(ctx, tool)
	}
	return false
}

// KeyUp ends temporary Space panning.
func (e *Engine) KeyUp(_ context.Context, ev domain.KeyEvent) bool {
	if ev.Key != " " {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spaceHeld = false
	if e.gesture != nil && e.gesture.kind == gesturePan && e.state.Tool != domain.ToolPan {
		e.gesture = nil
	}
	return true
}

func (e *Engine) commandKey(ctx context.Context, key string, mods domain.Modifiers) bool {
	switch key {
	case "c":
		return e.Copy(ctx)
	case "x":
		return e.Cut(ctx)
	case "v":
		// Left unconsumed so the native paste event fires and HandlePaste
		// inserts with the event payload.
		return false
	case "d":
		e.Duplicate(ctx)
		return true
	case "a":
		e.SelectAll(ctx)
		return true
	case "z":
		if mods.Shift {
			e.Redo(ctx)
		} else {
			e.Undo(ctx)
		}
		return true
	case "y":
		e.Redo(ctx)
		return true
	case "0":
		e.ResetZoom()
		return true
	case "=", "+":
		e.Zoom(viewport.ZoomIn)
		return true
	case "-":
		e.Zoom(viewport.ZoomOut)
		return true
	}
	return false
}

// arrow nudges the selection or, with nothing selected, pans the view.
func (e *Engine) arrow(key string, large bool) bool {
	dx, dy, ok := viewport.ArrowDelta(key)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	step := NudgeStep
	if large {
		step = NudgeStepLarge
	}
	if translateActive(e, dx*step, dy*step) {
		return true
	}
	return e.vp.PanKey(key, large)
}

func (e *Engine) editing() bool {
	_, ok := e.scene.EditingID()
	return ok
}

// ─────────────────────────────────────────────────────────────
// Wheel, context menu, double-click
// ─────────────────────────────────────────────────────────────

// Wheel zooms or pans the viewport.
func (e *Engine) Wheel(_ context.Context, ev domain.WheelEvent) {
	e.vp.Wheel(ev)
}

// Resize updates the canvas size in screen pixels.
func (e *Engine) Resize(width, height float64) {
	e.vp.SetSize(width, height)
}

// openContextMenu selects the object under the pointer, or clears the
// selection, and remembers the point for a positioned paste. Must be
// called with mu held.
func (e *Engine) openContextMenu(p pointer) {
	e.abortGesture()
	if target, ok := e.scene.FindTargetAt(p.doc); ok && target.Selectable {
		e.scene.SetActiveObjects(target.ID)
	} else {
		e.scene.ClearSelection()
	}
	at := p.screen
	e.contextPoint = &at
}

// ContextPoint returns the remembered right-click position.
func (e *Engine) ContextPoint() (domain.Point, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.contextPoint == nil {
		return domain.Point{}, false
	}
	return *e.contextPoint, true
}

// DoubleClick opens the text object under the pointer for editing.
func (e *Engine) DoubleClick(ctx context.Context, ev domain.PointerEvent) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	p := e.pointer(ev)
	target, ok := e.scene.FindTargetAt(p.doc)
	if !ok || target.Kind != domain.KindText {
		return false
	}
	e.abortGesture()
	if e.state.Tool != domain.ToolSelect {
		e.setToolLocked(ctx, domain.ToolState{Tool: domain.ToolSelect})
	}
	e.scene.SetActiveObjects(target.ID)
	return e.beginEditing(ctx, target.ID)
}
