package canvas

import (
	"context"

	"github.com/google/uuid"

	"whiteboard/internal/clipboard"
	"whiteboard/internal/domain"
	"whiteboard/internal/imaging"
	"whiteboard/internal/viewport"
)

// ─────────────────────────────────────────────────────────────
// Command surface
// ─────────────────────────────────────────────────────────────

// SelectTool activates a tool and records a checkpoint.
func (e *Engine) SelectTool(ctx context.Context, tool domain.Tool) bool {
	if !tool.Valid() {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setToolLocked(ctx, domain.ToolState{Tool: tool})
	e.checkpoint()
	return true
}

// SelectShape activates the shape tool with the given kind.
func (e *Engine) SelectShape(ctx context.Context, kind domain.ShapeKind) bool {
	if !kind.Valid() {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setToolLocked(ctx, domain.ToolState{Tool: domain.ToolShape, Shape: kind})
	e.checkpoint()
	return true
}

// Copy puts the selection on the internal clipboard.
func (e *Engine) Copy(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clip.Copy(ctx, e.scene.ActiveObjects())
}

// Cut copies the selection and removes it.
func (e *Engine) Cut(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	active := e.scene.ActiveObjects()
	if !e.clip.Copy(ctx, active) {
		return false
	}
	e.removeLocked(active)
	return true
}

// Paste runs the clipboard cascade. With useContextPosition the objects are
// placed at the last right-click point, which is consumed.
func (e *Engine) Paste(ctx context.Context, useContextPosition bool) clipboard.Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	req := clipboard.Request{}
	if useContextPosition && e.contextPoint != nil {
		at := *e.contextPoint
		req.At = &at
	}
	e.contextPoint = nil
	return e.pasteLocked(ctx, req)
}

// HandlePaste handles a native paste event and its payload.
func (e *Engine) HandlePaste(ctx context.Context, ev domain.PasteEvent) clipboard.Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, editing := e.scene.EditingID(); editing {
		return clipboard.Outcome{}
	}
	return e.pasteLocked(ctx, clipboard.Request{Event: &ev})
}

func (e *Engine) pasteLocked(ctx context.Context, req clipboard.Request) clipboard.Outcome {
	e.abortGesture()
	out := e.clip.Paste(ctx, req)
	if out.Pasted {
		e.log.Debug("canvas: pasted", "source", out.Source, "objects", len(out.ObjectIDs))
	}
	return out
}

// Duplicate clones the selection with a fixed offset and selects the clones.
func (e *Engine) Duplicate(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	active := e.scene.ActiveObjects()
	if len(active) == 0 {
		return false
	}
	clones := make([]domain.Object, 0, len(active))
	for _, o := range active {
		c := clipboard.Clone(o)
		c.Translate(DuplicateOffset, DuplicateOffset)
		clones = append(clones, c)
	}
	if !e.insertLocked(ctx, clones) {
		return false
	}
	e.checkpoint()
	return true
}

// Delete removes the selection.
func (e *Engine) Delete(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, editing := e.scene.EditingID(); editing {
		return false
	}
	return e.removeLocked(e.scene.ActiveObjects())
}

// DeleteObjects removes objects by id.
func (e *Engine) DeleteObjects(ctx context.Context, ids ...string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	var objs []domain.Object
	for _, id := range ids {
		if o, ok := e.scene.Object(id); ok {
			objs = append(objs, o)
		}
	}
	if !e.removeLocked(objs) {
		return 0
	}
	return len(objs)
}

func (e *Engine) removeLocked(objs []domain.Object) bool {
	if len(objs) == 0 {
		return false
	}
	e.scene.ExitEditing()
	for _, o := range objs {
		e.scene.RemoveObject(o.ID)
	}
	e.scene.ClearSelection()
	e.checkpoint()
	return true
}

// Undo steps back one checkpoint.
func (e *Engine) Undo(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.restoreLocked(e.history.Undo)
}

// Redo steps forward one checkpoint.
func (e *Engine) Redo(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.restoreLocked(e.history.Redo)
}

func (e *Engine) restoreLocked(step func() bool) bool {
	e.abortGesture()
	// Fold in pending edits so they can be undone.
	e.flushLocked()
	e.scene.ExitEditing()
	ok := step()
	// The restore's own notifications are not new edits.
	e.coalescer.Cancel()
	return ok
}

// Zoom steps the zoom in or out around the canvas center.
func (e *Engine) Zoom(dir viewport.Direction) float64 {
	return e.vp.Step(dir)
}

// ResetZoom restores the identity transform.
func (e *Engine) ResetZoom() {
	e.vp.Reset()
}

// FitToContent frames every committed object.
func (e *Engine) FitToContent() {
	objs := e.Objects()
	bounds := make([]domain.Rect, len(objs))
	for i, o := range objs {
		bounds[i] = o.Bounds()
	}
	e.vp.FitToContent(bounds)
}

// Clear removes every object. The state before clearing is checkpointed so
// the clear can be undone.
func (e *Engine) Clear(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.abortGesture()
	e.checkpoint()
	e.scene.ExitEditing()
	e.scene.Clear()
	e.contextPoint = nil
	e.checkpoint()
}

// SelectAll selects every selectable object.
func (e *Engine) SelectAll(ctx context.Context) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	var ids []string
	for _, o := range e.scene.Objects() {
		if o.Selectable {
			ids = append(ids, o.ID)
		}
	}
	e.scene.SetActiveObjects(ids...)
	return len(ids)
}

// BringToFront raises the selection to the top of the paint order.
func (e *Engine) BringToFront(ctx context.Context) bool {
	return e.reorder(e.scene.BringToFront)
}

// SendToBack lowers the selection to the bottom of the paint order.
func (e *Engine) SendToBack(ctx context.Context) bool {
	return e.reorder(e.scene.SendToBack)
}

func (e *Engine) reorder(place func(id string) bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	moved := false
	for _, o := range e.scene.ActiveObjects() {
		if place(o.ID) {
			moved = true
		}
	}
	if moved {
		e.checkpoint()
	}
	return moved
}

// Escape cancels the live gesture, leaves text editing, clears the
// selection and returns to the select tool.
func (e *Engine) Escape(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.abortGesture()
	e.scene.ExitEditing()
	e.scene.ClearSelection()
	e.contextPoint = nil
	e.setToolLocked(ctx, domain.ToolState{Tool: domain.ToolSelect})
}

// EditText replaces the content of a text object and resizes auto-sized
// text to fit.
func (e *Engine) EditText(ctx context.Context, id, text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	obj, ok := e.scene.Object(id)
	if !ok || obj.Kind != domain.KindText {
		return false
	}
	obj.Text = text
	w, h := textExtent(text, obj.FontSize)
	if !obj.FixedWidth {
		obj.Width = w
	}
	obj.Height = h
	if err := e.scene.UpdateObject(obj); err != nil {
		e.log.Warn("canvas: text update failed", "id", id, "err", err)
		return false
	}
	return true
}

// FinishEditing leaves text edit mode.
func (e *Engine) FinishEditing(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scene.ExitEditing()
}

// AddObject inserts a fully specified object, selects it and checkpoints.
func (e *Engine) AddObject(ctx context.Context, obj domain.Object) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if obj.ID == "" {
		obj.ID = uuid.New().String()
	}
	// Previews only come from gestures.
	obj.Preview = false
	if !e.insertLocked(ctx, []domain.Object{obj}) {
		return "", false
	}
	e.checkpoint()
	return obj.ID, true
}

// AddShape inserts a shape spanning a to b with the current style.
func (e *Engine) AddShape(ctx context.Context, kind domain.ShapeKind, a, b domain.Point) (string, bool) {
	if !kind.Valid() {
		return "", false
	}
	return e.AddObject(ctx, shapeObject(kind, a, b, e.Style()))
}

// AddText inserts auto-sized text at p with the current style.
func (e *Engine) AddText(ctx context.Context, text string, p domain.Point) (string, bool) {
	obj := pointText(p, e.Style())
	obj.Text = text
	obj.Width, obj.Height = textExtent(text, obj.FontSize)
	return e.AddObject(ctx, obj)
}

// insertLocked adds objs atomically and selects them.
func (e *Engine) insertLocked(ctx context.Context, objs []domain.Object) bool {
	ids := make([]string, 0, len(objs))
	for _, o := range objs {
		if err := e.scene.AddObject(o); err != nil {
			for _, id := range ids {
				e.scene.RemoveObject(id)
			}
			e.log.Warn("canvas: insert failed", "err", err)
			e.notifier.Notify(ctx, domain.LevelError, "Could not add object")
			return false
		}
		ids = append(ids, o.ID)
	}
	e.scene.SetActiveObjects(ids...)
	return true
}

// ── images ──────────────────────────────────────────────

// Drop places dropped image files centered on the screen point, fit to the
// viewport. Files that are not images are skipped with a notification.
func (e *Engine) Drop(ctx context.Context, files []domain.DroppedFile, at domain.Point) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.placeImagesLocked(ctx, files, e.vp.ToDocument(at))
}

// InsertImages places image files at the viewport center.
func (e *Engine) InsertImages(ctx context.Context, files ...domain.DroppedFile) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.placeImagesLocked(ctx, files, e.vp.Center())
}

func (e *Engine) placeImagesLocked(ctx context.Context, files []domain.DroppedFile, center domain.Point) int {
	if e.decoder == nil {
		return 0
	}
	w, h := e.vp.Size()
	var objs []domain.Object
	for _, f := range files {
		if !imaging.IsImageMIME(f.MIME) {
			e.notifier.Notify(ctx, domain.LevelInfo, "Skipped "+f.Name+": not an image")
			continue
		}
		obj, err := e.decoder.Decode(domain.ClipboardItem{MIME: f.MIME, Data: f.Data})
		if err != nil {
			e.log.Warn("canvas: image decode failed", "file", f.Name, "err", err)
			e.notifier.Notify(ctx, domain.LevelWarning, "Could not read image "+f.Name)
			continue
		}
		imaging.Place(&obj, center, w, h)
		objs = append(objs, obj)
	}
	if len(objs) == 0 || !e.insertLocked(ctx, objs) {
		return 0
	}
	e.checkpoint()
	return len(objs)
}
