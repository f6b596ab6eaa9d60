package clipboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"whiteboard/internal/domain"
)

const DefaultPasteOffset = 20.0

// ─────────────────────────────────────────────────────────────
// Collaborator contracts
// ─────────────────────────────────────────────────────────────

// Scene is the part of the scene the arbiter mutates.
type Scene interface {
	AddObject(obj domain.Object) error
	RemoveObject(id string) bool
	SetActiveObjects(ids ...string)
}

// Checkpointer records a history entry.
type Checkpointer interface {
	SaveState() bool
}

// Viewport supplies placement geometry.
type Viewport interface {
	Center() domain.Point
	ToDocument(p domain.Point) domain.Point
	Size() (width, height float64)
}

// Decoder turns a typed payload into an unplaced image object.
type Decoder interface {
	Decode(item domain.ClipboardItem) (domain.Object, error)
}

// Record is the in-process clipboard: what was copied and when.
type Record struct {
	Objects       []domain.Object
	Timestamp     int64
	MarkerWritten bool
}

// Request describes one paste gesture.
type Request struct {
	// Event is the native paste payload, nil for programmatic pastes.
	Event *domain.PasteEvent
	// At is the screen point of a context-menu paste.
	At *domain.Point
}

// Outcome reports what a paste did.
type Outcome struct {
	Pasted    bool
	Source    Source
	Signature string
	ObjectIDs []string
}

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithPasteOffset sets the offset applied to internal pastes.
func WithPasteOffset(d float64) Option {
	return func(a *Arbiter) { a.offset = d }
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Arbiter) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Arbiter) { a.log = l }
}

// WithNotifier sets where user-facing failures are reported.
func WithNotifier(n domain.Notifier) Option {
	return func(a *Arbiter) { a.notifier = n }
}

// WithResolvers replaces the resolver chain.
func WithResolvers(rs ...Resolver) Option {
	return func(a *Arbiter) { a.resolvers = rs }
}

// ─────────────────────────────────────────────────────────────
// Arbiter
// ─────────────────────────────────────────────────────────────

// Arbiter resolves a paste gesture to at most one insertion. Resolvers run
// in priority order and the first Found wins, unless its signature equals
// the last pasted one, in which case the gesture inserts nothing.
type Arbiter struct {
	scene    Scene
	history  Checkpointer
	vp       Viewport
	platform Platform

	offset   float64
	now      func() time.Time
	log      *slog.Logger
	notifier domain.Notifier

	// mu serializes pastes so one gesture inserts at most once.
	mu            sync.Mutex
	resolvers     []Resolver
	record        *Record
	lastSignature string
}

// New creates an arbiter. platform may be nil when no system clipboard is
// available.
func New(scene Scene, history Checkpointer, vp Viewport, decoder Decoder, platform Platform, opts ...Option) *Arbiter {
	a := &Arbiter{
		scene:    scene,
		history:  history,
		vp:       vp,
		platform: platform,
		offset:   DefaultPasteOffset,
		now:      time.Now,
		log:      slog.Default(),
		notifier: domain.NopNotifier{},
	}
	a.resolvers = []Resolver{
		MarkerResolver{Platform: platform},
		EventImageResolver{Decoder: decoder},
		SystemImageResolver{Platform: platform, Decoder: decoder},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Copy stores objs as the internal record, resets the paste signature and
// writes the marker to the system clipboard on a best-effort basis.
func (a *Arbiter) Copy(ctx context.Context, objs []domain.Object) bool {
	if len(objs) == 0 {
		return false
	}
	rec := &Record{Timestamp: a.now().UnixMilli()}
	for _, o := range objs {
		rec.Objects = append(rec.Objects, o.Copy())
	}

	if a.platform != nil {
		if err := a.platform.WriteText(ctx, Marker(rec.Timestamp)); err != nil {
			a.log.Warn("clipboard: marker write failed", "err", err)
		} else {
			rec.MarkerWritten = true
		}
	}

	a.mu.Lock()
	a.record = rec
	a.lastSignature = ""
	a.mu.Unlock()
	return true
}

// Record returns the live internal record, if any.
func (a *Arbiter) Record() (Record, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.record == nil {
		return Record{}, false
	}
	return *a.record, true
}

// LastSignature returns the signature of the most recent paste.
func (a *Arbiter) LastSignature() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSignature
}

// Paste runs the resolver chain and inserts the winning candidate. It never
// returns an error: failures are logged, surfaced through the notifier, and
// reported as an unpasted outcome with the document untouched.
func (a *Arbiter) Paste(ctx context.Context, req Request) Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	in := a.input(req)
	for _, r := range a.resolvers {
		res, err := r.Resolve(ctx, in)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{}
			}
			a.log.Warn("clipboard: resolver failed", "resolver", r.Name(), "err", err)
			a.notifier.Notify(ctx, domain.LevelWarning, "Could not paste from clipboard: "+err.Error())
			continue
		}
		if !res.Found {
			continue
		}
		if res.Candidate.Signature == a.lastSignature {
			// A lower-priority source would only hold the same or an older
			// payload; the gesture is already satisfied.
			a.log.Debug("clipboard: duplicate paste ignored", "resolver", r.Name())
			return Outcome{}
		}
		return a.insert(ctx, res.Candidate)
	}

	a.notifier.Notify(ctx, domain.LevelInfo, "Nothing to paste")
	return Outcome{}
}

// input must be called with mu held.
func (a *Arbiter) input(req Request) Input {
	w, h := a.vp.Size()
	in := Input{
		Event:          req.Event,
		Record:         a.record,
		Center:         a.vp.Center(),
		ViewportWidth:  w,
		ViewportHeight: h,
		Offset:         a.offset,
	}
	if req.At != nil {
		p := a.vp.ToDocument(*req.At)
		in.At = &p
	}
	return in
}

// insert must be called with mu held. Insertion is all-or-nothing.
func (a *Arbiter) insert(ctx context.Context, c Candidate) Outcome {
	ids := make([]string, 0, len(c.Objects))
	for _, o := range c.Objects {
		if err := a.scene.AddObject(o); err != nil {
			for _, id := range ids {
				a.scene.RemoveObject(id)
			}
			a.log.Warn("clipboard: insert failed", "source", c.Source, "err", err)
			a.notifier.Notify(ctx, domain.LevelError, "Paste failed")
			return Outcome{}
		}
		ids = append(ids, o.ID)
	}
	a.scene.SetActiveObjects(ids...)
	a.history.SaveState()

	a.lastSignature = c.Signature
	if c.Source == SourceInternal {
		a.record = nil
	}
	return Outcome{Pasted: true, Source: c.Source, Signature: c.Signature, ObjectIDs: ids}
}

// Clone copies obj under a fresh id, keeping its vector structure.
func Clone(obj domain.Object) domain.Object {
	c := obj.Copy()
	c.ID = uuid.New().String()
	return c
}
