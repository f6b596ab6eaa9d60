package canvas

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"whiteboard/internal/clipboard"
	"whiteboard/internal/domain"
	"whiteboard/internal/history"
	"whiteboard/internal/viewport"
)

// Frontend events.
const (
	EventHistoryChanged  = "history:changed"
	EventToolChanged     = "tool:changed"
	EventViewportChanged = "viewport:changed"
	EventTextEditing     = "text:editing"
)

// ─────────────────────────────────────────────────────────────
// Wiring
// ─────────────────────────────────────────────────────────────

// Emitter publishes engine events to the frontend.
type Emitter interface {
	Emit(ctx context.Context, event string, data any)
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, string, any) {}

// Deps are the collaborators the engine drives.
type Deps struct {
	Scene    domain.Scene
	Drawer   domain.FreehandDrawer
	Viewport *viewport.Controller
	Decoder  clipboard.Decoder
	// Platform is the system clipboard; nil degrades to the internal
	// clipboard only.
	Platform clipboard.Platform
	Emitter  Emitter
	Notifier domain.Notifier
}

// Options tune the engine. Zero values select the defaults.
type Options struct {
	Style           domain.Style
	HistoryCapacity int
	Cooldown        time.Duration
	Debounce        time.Duration
	PasteOffset     float64
	Logger          *slog.Logger
	Clock           func() time.Time
	AfterFunc       history.AfterFunc
	// Context is used for events emitted off the caller's goroutine, such
	// as debounced history checkpoints.
	Context context.Context
}

// Snapshot is the persisted form of the live document.
type Snapshot struct {
	Document []byte
	Viewport domain.Transform
	Revision uint64
}

// ─────────────────────────────────────────────────────────────
// Engine
// ─────────────────────────────────────────────────────────────

// Engine turns raw input into document mutations. It owns the tool state
// machine and coordinates history, viewport and clipboard.
//
// Input and commands are serialized by mu. Scene notifications never take
// mu: they only bump the revision and signal the checkpoint coalescer. The
// debounced checkpoint itself takes mu.
type Engine struct {
	scene     domain.Scene
	drawer    domain.FreehandDrawer
	vp        *viewport.Controller
	history   *history.Manager
	coalescer *history.Coalescer
	clip      *clipboard.Arbiter
	decoder   clipboard.Decoder
	emitter   Emitter
	notifier  domain.Notifier
	log       *slog.Logger
	bg        context.Context

	handlers map[domain.Tool]toolHandler
	sub      domain.Subscription

	rev   atomic.Uint64
	saved atomic.Uint64

	mu           sync.Mutex
	state        domain.ToolState
	style        domain.Style
	gesture      *gesture
	spaceHeld    bool
	contextPoint *domain.Point
	closed       bool
}

// New wires an engine and records the initial checkpoint.
func New(d Deps, opts Options) *Engine {
	e := &Engine{
		scene:    d.Scene,
		drawer:   d.Drawer,
		vp:       d.Viewport,
		decoder:  d.Decoder,
		emitter:  d.Emitter,
		notifier: d.Notifier,
		log:      opts.Logger,
		bg:       opts.Context,
		style:    opts.Style,
		state:    domain.ToolState{Tool: domain.ToolSelect, Shape: domain.ShapeRectangle},
	}
	if e.emitter == nil {
		e.emitter = nopEmitter{}
	}
	if e.notifier == nil {
		e.notifier = domain.NopNotifier{}
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.bg == nil {
		e.bg = context.Background()
	}
	if e.style == (domain.Style{}) {
		e.style = domain.DefaultStyle()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	hopts := []history.Option{
		history.WithClock(clock),
		history.WithLogger(e.log),
		history.WithObserver(e.historyChanged),
	}
	if opts.HistoryCapacity > 0 {
		hopts = append(hopts, history.WithCapacity(opts.HistoryCapacity))
	}
	if opts.Cooldown > 0 {
		hopts = append(hopts, history.WithCooldown(opts.Cooldown))
	}
	e.history = history.New(d.Scene, d.Viewport, hopts...)

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = history.DefaultDebounce
	}
	e.coalescer = history.NewCoalescer(debounce, e.debouncedCheckpoint, opts.AfterFunc)

	copts := []clipboard.Option{
		clipboard.WithClock(clock),
		clipboard.WithLogger(e.log),
		clipboard.WithNotifier(e.notifier),
	}
	if opts.PasteOffset > 0 {
		copts = append(copts, clipboard.WithPasteOffset(opts.PasteOffset))
	}
	e.clip = clipboard.New(d.Scene, checkpointer{e}, d.Viewport, d.Decoder, d.Platform, copts...)

	e.handlers = map[domain.Tool]toolHandler{
		domain.ToolSelect: selectTool{},
		domain.ToolPen:    penTool{},
		domain.ToolPan:    panTool{},
		domain.ToolShape:  shapeTool{},
		domain.ToolText:   textTool{},
	}

	e.vp.OnChange(e.viewportChanged)
	e.sub = e.scene.Subscribe(e.onSceneEvent)
	e.history.SaveState()
	return e
}

// Close deregisters the scene handlers and cancels any pending checkpoint.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.abortGesture()
	e.mu.Unlock()

	e.sub.Unsubscribe()
	e.vp.OnChange(nil)
	e.coalescer.Close()
}

// checkpointer adapts the engine's explicit checkpoint for the arbiter.
type checkpointer struct{ e *Engine }

func (c checkpointer) SaveState() bool { return c.e.checkpoint() }

// checkpoint records an explicit history entry. A pending debounced
// checkpoint is folded into it, and an unchanged document adds nothing.
func (e *Engine) checkpoint() bool {
	e.coalescer.Cancel()
	return e.history.SaveChanged()
}

// debouncedCheckpoint runs on the coalescer's timer. It waits for any
// command in flight so a multi-object edit is never captured half done.
func (e *Engine) debouncedCheckpoint() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.history.SaveChanged()
}

// FlushHistory runs any pending debounced checkpoint now.
func (e *Engine) FlushHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushLocked()
}

// flushLocked must be called with mu held.
func (e *Engine) flushLocked() {
	if e.coalescer.Take() {
		e.history.SaveChanged()
	}
}

func (e *Engine) onSceneEvent(ev domain.SceneEvent) {
	switch ev.Kind {
	case domain.ObjectAdded, domain.ObjectModified, domain.ObjectRemoved:
		if ev.Object.IsPreview() {
			return
		}
		e.rev.Add(1)
		e.coalescer.Signal()
	}
}

func (e *Engine) viewportChanged(t domain.Transform) {
	e.rev.Add(1)
	e.emitter.Emit(e.bg, EventViewportChanged, map[string]any{"transform": t})
}

func (e *Engine) historyChanged(s history.Stats) {
	e.emitter.Emit(e.bg, EventHistoryChanged, s)
}

// ── Persistence gateway ─────────────────────────────────

// Dirty reports whether the document or viewport changed since the last
// MarkSaved.
func (e *Engine) Dirty() bool {
	return e.rev.Load() != e.saved.Load()
}

// Snapshot serializes the live document and viewport.
func (e *Engine) Snapshot() (Snapshot, error) {
	rev := e.rev.Load()
	blob, err := e.scene.Serialize()
	if err != nil {
		return Snapshot{}, fmt.Errorf("serialize document: %w", err)
	}
	return Snapshot{Document: blob, Viewport: e.vp.Transform(), Revision: rev}, nil
}

// MarkSaved records that the snapshot at rev reached storage. Changes made
// after that snapshot keep the engine dirty.
func (e *Engine) MarkSaved(rev uint64) {
	for {
		cur := e.saved.Load()
		if rev <= cur || e.saved.CompareAndSwap(cur, rev) {
			return
		}
	}
}

// Load replaces the document and viewport with persisted state and resets
// history to a single entry. A document that fails to deserialize is
// replaced by an empty one; Load then reports false.
func (e *Engine) Load(ctx context.Context, document []byte, vp domain.Transform) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.abortGesture()

	ok := true
	if len(document) > 0 {
		if err := e.scene.Deserialize(document); err != nil {
			e.log.Warn("canvas: stored document unreadable, starting empty", "err", err)
			e.notifier.Notify(ctx, domain.LevelWarning, "Saved board could not be read; starting with an empty board")
			e.scene.Clear()
			vp = domain.IdentityTransform
			ok = false
		}
	} else {
		e.scene.Clear()
	}
	e.vp.SetTransform(vp)

	e.coalescer.Cancel()
	e.history.Reset()
	e.history.SaveState()
	e.saved.Store(e.rev.Load())
	return ok
}

// LoadHistory installs a persisted history log. If the live document is
// not the entry at the cursor it is appended as the newest entry.
func (e *Engine) LoadHistory(entries []history.Entry, index int) {
	if len(entries) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.coalescer.Cancel()
	e.history.Load(entries, index)
	e.history.SaveChanged()
}

// ApplyExternal replaces the document with one written by another process
// as a single undoable step. The viewport is left alone. The result matches
// storage, so the engine is clean afterwards.
func (e *Engine) ApplyExternal(ctx context.Context, document []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.abortGesture()
	e.checkpoint()
	e.scene.ExitEditing()
	if err := e.scene.Deserialize(document); err != nil {
		return fmt.Errorf("apply external document: %w", err)
	}
	e.contextPoint = nil
	e.checkpoint()
	e.saved.Store(e.rev.Load())
	return nil
}

// Transform returns the current viewport transform.
func (e *Engine) Transform() domain.Transform { return e.vp.Transform() }

// History exposes the undo log for persistence.
func (e *Engine) History() *history.Manager { return e.history }

// State returns the active tool and shape sub-mode.
func (e *Engine) State() domain.ToolState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Style returns the style applied to new objects.
func (e *Engine) Style() domain.Style {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.style
}

// SetStyle changes the style applied to new objects.
func (e *Engine) SetStyle(style domain.Style) {
	e.mu.Lock()
	e.style = style
	e.mu.Unlock()
	if s, ok := e.drawer.(interface{ SetStyle(domain.Style) }); ok {
		s.SetStyle(style)
	}
}

// Objects returns the committed document objects in paint order.
func (e *Engine) Objects() []domain.Object {
	all := e.scene.Objects()
	out := all[:0]
	for _, o := range all {
		if !o.IsPreview() {
			out = append(out, o)
		}
	}
	return out
}

// ── tool state ──────────────────────────────────────────

// setToolLocked switches tools. It aborts a live gesture and toggles the
// scene's drawing flags for the pen. Must be called with mu held.
func (e *Engine) setToolLocked(ctx context.Context, next domain.ToolState) {
	e.abortGesture()
	prev := e.state
	if next.Shape == "" {
		next.Shape = prev.Shape
	}

	if prev.Tool == domain.ToolPen && next.Tool != domain.ToolPen {
		e.scene.SetDrawingMode(false)
		e.scene.SetSkipTargetFind(false)
	}
	if next.Tool == domain.ToolPen && prev.Tool != domain.ToolPen {
		e.scene.ClearSelection()
		e.scene.SetDrawingMode(true)
		e.scene.SetSkipTargetFind(true)
	}
	if next.Tool != domain.ToolSelect {
		e.scene.ExitEditing()
	}

	e.state = next
	if prev != next {
		e.log.Debug("canvas: tool changed", "tool", next.Tool, "shape", next.Shape)
		e.emitter.Emit(ctx, EventToolChanged, next)
	}
}

// abortGesture drops the live gesture and anything it placed on the scene.
// Must be called with mu held.
func (e *Engine) abortGesture() {
	g := e.gesture
	if g == nil {
		return
	}
	e.gesture = nil
	switch g.kind {
	case gestureShape, gestureText:
		if g.preview != "" {
			e.scene.RemoveObject(g.preview)
		}
	case gestureStroke:
		if e.drawer != nil {
			e.drawer.Cancel()
		}
	}
}

func (e *Engine) pointer(ev domain.PointerEvent) pointer {
	screen := ev.Screen()
	return pointer{screen: screen, doc: e.vp.ToDocument(screen), ev: ev}
}
