package history

import (
	"bytes"
	"log/slog"
	"sync"
	"time"

	"whiteboard/internal/domain"
)

const (
	DefaultCapacity = 50
	DefaultCooldown = 300 * time.Millisecond
)

// Document is the serialize/deserialize capability of the scene.
type Document interface {
	Serialize() ([]byte, error)
	Deserialize(blob []byte) error
}

// Viewport is the transform owner snapshotted alongside the document.
type Viewport interface {
	Transform() domain.Transform
	SetTransform(t domain.Transform)
}

// Entry is one immutable checkpoint.
type Entry struct {
	Document []byte           `json:"document"`
	Viewport domain.Transform `json:"viewport"`
}

// Phase is the reentrancy phase of the manager.
type Phase int

const (
	Idle Phase = iota
	Restoring
	Cooldown
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Restoring:
		return "restoring"
	case Cooldown:
		return "cooldown"
	}
	return "unknown"
}

// State is the guard: Idle, Restoring, or Cooldown until a deadline.
type State struct {
	Phase Phase
	Until time.Time
}

// Stats summarizes the log for UI consumers.
type Stats struct {
	Length   int  `json:"length"`
	Index    int  `json:"index"`
	CanUndo  bool `json:"canUndo"`
	CanRedo  bool `json:"canRedo"`
	Restored bool `json:"restored"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithCapacity bounds the log length.
func WithCapacity(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.capacity = n
		}
	}
}

// WithCooldown sets how long saves stay suppressed after a restore.
func WithCooldown(d time.Duration) Option {
	return func(m *Manager) { m.cooldown = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithObserver registers a callback run after every log change.
func WithObserver(fn func(Stats)) Option {
	return func(m *Manager) { m.observer = fn }
}

// Manager is a bounded, linear snapshot undo/redo log.
//
// Every public operation checks the guard first. Restores run with the
// lock released so scene notifications fired by the restore can call back
// into SaveState, which then sees Restoring and drops the request.
type Manager struct {
	doc Document
	vp  Viewport

	capacity int
	cooldown time.Duration
	now      func() time.Time
	log      *slog.Logger
	observer func(Stats)

	mu      sync.Mutex
	entries []Entry
	index   int
	state   State
}

// New creates an empty manager.
func New(doc Document, vp Viewport, opts ...Option) *Manager {
	m := &Manager{
		doc:      doc,
		vp:       vp,
		capacity: DefaultCapacity,
		cooldown: DefaultCooldown,
		now:      time.Now,
		log:      slog.Default(),
		index:    -1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SaveState records the current document and viewport as a new entry,
// discarding any redo tail and evicting the oldest entries past capacity.
// It is a no-op returning false while restoring or cooling down.
func (m *Manager) SaveState() bool {
	return m.save(false)
}

// SaveChanged is SaveState that also skips the append when the snapshot
// equals the entry at the cursor. Debounced notification checkpoints use it.
func (m *Manager) SaveChanged() bool {
	return m.save(true)
}

func (m *Manager) save(skipUnchanged bool) bool {
	m.mu.Lock()
	if m.suppressedLocked() {
		phase := m.state.Phase
		m.mu.Unlock()
		m.log.Debug("history: checkpoint suppressed", "phase", phase.String())
		return false
	}
	m.mu.Unlock()

	blob, err := m.doc.Serialize()
	if err != nil {
		m.log.Warn("history: serialize failed", "err", err)
		return false
	}
	entry := Entry{Document: blob, Viewport: m.vp.Transform()}

	m.mu.Lock()
	// A restore may have started while serializing.
	if m.suppressedLocked() {
		m.mu.Unlock()
		return false
	}
	if skipUnchanged && m.index >= 0 {
		cur := m.entries[m.index]
		if cur.Viewport == entry.Viewport && bytes.Equal(cur.Document, entry.Document) {
			m.mu.Unlock()
			return false
		}
	}
	m.entries = append(m.entries[:m.index+1], entry)
	if over := len(m.entries) - m.capacity; over > 0 {
		m.entries = append([]Entry(nil), m.entries[over:]...)
	}
	m.index = len(m.entries) - 1
	stats := m.statsLocked(false)
	m.mu.Unlock()

	m.notify(stats)
	return true
}

// Undo restores the previous entry. It fails when there is nothing to
// undo or a restore is already running.
func (m *Manager) Undo() bool {
	return m.step(-1)
}

// Redo restores the next entry. It fails at the end of the log or while
// a restore is running.
func (m *Manager) Redo() bool {
	return m.step(1)
}

func (m *Manager) step(delta int) bool {
	m.mu.Lock()
	if m.state.Phase == Restoring {
		m.mu.Unlock()
		return false
	}
	target := m.index + delta
	if target < 0 || target >= len(m.entries) || m.index < 0 {
		m.mu.Unlock()
		return false
	}
	entry := m.entries[target]
	m.state = State{Phase: Restoring}
	m.mu.Unlock()

	err := m.doc.Deserialize(entry.Document)
	if err == nil {
		m.vp.SetTransform(entry.Viewport)
	}

	m.mu.Lock()
	m.state = State{Phase: Cooldown, Until: m.now().Add(m.cooldown)}
	if err != nil {
		m.mu.Unlock()
		m.log.Warn("history: restore failed", "index", target, "err", err)
		return false
	}
	m.index = target
	stats := m.statsLocked(true)
	m.mu.Unlock()

	m.notify(stats)
	return true
}

// Load replaces the log, as when reloading persisted history. The cursor
// is clamped into range and the log trimmed to capacity, oldest first.
func (m *Manager) Load(entries []Entry, index int) {
	m.mu.Lock()
	if over := len(entries) - m.capacity; over > 0 {
		entries = entries[over:]
		index -= over
	}
	m.entries = append([]Entry(nil), entries...)
	switch {
	case len(m.entries) == 0:
		m.index = -1
	case index < 0:
		m.index = 0
	case index >= len(m.entries):
		m.index = len(m.entries) - 1
	default:
		m.index = index
	}
	stats := m.statsLocked(false)
	m.mu.Unlock()

	m.notify(stats)
}

// Reset empties the log.
func (m *Manager) Reset() {
	m.Load(nil, -1)
}

// Entries returns a copy of the log and the cursor.
func (m *Manager) Entries() ([]Entry, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out, m.index
}

// Current returns the entry at the cursor.
func (m *Manager) Current() (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index < 0 {
		return Entry{}, false
	}
	return m.entries[m.index], true
}

// MatchesCurrent reports whether blob equals the document at the cursor.
func (m *Manager) MatchesCurrent(blob []byte) bool {
	e, ok := m.Current()
	return ok && bytes.Equal(e.Document, blob)
}

// Stats returns a summary of the log.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statsLocked(false)
}

// State returns the guard state, resolving an expired cooldown to Idle.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Phase == Cooldown && !m.now().Before(m.state.Until) {
		m.state = State{Phase: Idle}
	}
	return m.state
}

func (m *Manager) CanUndo() bool { return m.Stats().CanUndo }
func (m *Manager) CanRedo() bool { return m.Stats().CanRedo }
func (m *Manager) Len() int      { return m.Stats().Length }
func (m *Manager) Index() int    { return m.Stats().Index }

// suppressedLocked must be called with mu held.
func (m *Manager) suppressedLocked() bool {
	switch m.state.Phase {
	case Restoring:
		return true
	case Cooldown:
		if m.now().Before(m.state.Until) {
			return true
		}
		m.state = State{Phase: Idle}
	}
	return false
}

// statsLocked must be called with mu held.
func (m *Manager) statsLocked(restored bool) Stats {
	return Stats{
		Length:   len(m.entries),
		Index:    m.index,
		CanUndo:  m.index > 0,
		CanRedo:  m.index >= 0 && m.index < len(m.entries)-1,
		Restored: restored,
	}
}

func (m *Manager) notify(s Stats) {
	if m.observer != nil {
		m.observer(s)
	}
}
