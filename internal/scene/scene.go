package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"whiteboard/internal/domain"
)

var (
	ErrNotFound        = errors.New("scene: object not found")
	ErrDuplicateID     = errors.New("scene: duplicate object id")
	ErrInvalidDocument = errors.New("scene: invalid document")
)

const documentVersion = "1"

// document is the serialized form of a scene.
type document struct {
	Version string          `json:"version"`
	Objects []domain.Object `json:"objects"`
}

// Scene is an in-memory, ordered object model implementing domain.Scene.
// Insertion order is paint order; the last object is on top.
type Scene struct {
	mu             sync.RWMutex
	objects        []domain.Object
	active         []string
	editing        string
	drawingMode    bool
	skipTargetFind bool

	subMu     sync.Mutex
	listeners map[int]domain.SceneListener
	nextSub   int
}

var _ domain.Scene = (*Scene)(nil)

// New creates an empty scene.
func New() *Scene {
	return &Scene{listeners: make(map[int]domain.SceneListener)}
}

// ── Objects ─────────────────────────────────────────────

func (s *Scene) AddObject(obj domain.Object) error {
	if obj.ID == "" {
		obj.ID = uuid.New().String()
	}
	obj = normalize(obj)

	s.mu.Lock()
	if s.indexOf(obj.ID) >= 0 {
		s.mu.Unlock()
		return fmt.Errorf("add object %s: %w", obj.ID, ErrDuplicateID)
	}
	s.objects = append(s.objects, obj)
	s.mu.Unlock()

	s.emit(domain.SceneEvent{Kind: domain.ObjectAdded, Object: obj.Copy()})
	return nil
}

func (s *Scene) RemoveObject(id string) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	removed := s.objects[i]
	s.objects = append(s.objects[:i], s.objects[i+1:]...)
	selChanged := s.dropActive(id)
	if s.editing == id {
		s.editing = ""
	}
	s.mu.Unlock()

	s.emit(domain.SceneEvent{Kind: domain.ObjectRemoved, Object: removed})
	if selChanged {
		s.emit(domain.SceneEvent{Kind: domain.SelectionChanged})
	}
	return true
}

func (s *Scene) UpdateObject(obj domain.Object) error {
	obj = normalize(obj)

	s.mu.Lock()
	i := s.indexOf(obj.ID)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("update object %s: %w", obj.ID, ErrNotFound)
	}
	s.objects[i] = obj
	s.mu.Unlock()

	s.emit(domain.SceneEvent{Kind: domain.ObjectModified, Object: obj.Copy()})
	return nil
}

func (s *Scene) Object(id string) (domain.Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.Object{}, false
	}
	return s.objects[i].Copy(), true
}

func (s *Scene) Objects() []domain.Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Object, len(s.objects))
	for i, o := range s.objects {
		out[i] = o.Copy()
	}
	return out
}

// Len returns the number of objects, previews included.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *Scene) Clear() {
	s.mu.Lock()
	removed := s.objects
	hadSelection := len(s.active) > 0
	s.objects = nil
	s.active = nil
	s.editing = ""
	s.mu.Unlock()

	for _, o := range removed {
		s.emit(domain.SceneEvent{Kind: domain.ObjectRemoved, Object: o})
	}
	if hadSelection {
		s.emit(domain.SceneEvent{Kind: domain.SelectionChanged})
	}
}

// ── Z-order ─────────────────────────────────────────────

func (s *Scene) BringToFront(id string) bool {
	return s.reorder(id, func(objs []domain.Object, o domain.Object) []domain.Object {
		return append(objs, o)
	})
}

func (s *Scene) SendToBack(id string) bool {
	return s.reorder(id, func(objs []domain.Object, o domain.Object) []domain.Object {
		return append([]domain.Object{o}, objs...)
	})
}

func (s *Scene) reorder(id string, place func([]domain.Object, domain.Object) []domain.Object) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	o := s.objects[i]
	rest := make([]domain.Object, 0, len(s.objects))
	rest = append(rest, s.objects[:i]...)
	rest = append(rest, s.objects[i+1:]...)
	s.objects = place(rest, o)
	s.mu.Unlock()

	s.emit(domain.SceneEvent{Kind: domain.ObjectModified, Object: o.Copy()})
	return true
}

// ── Hit-testing ─────────────────────────────────────────

func (s *Scene) FindTargetAt(p domain.Point) (domain.Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.skipTargetFind {
		return domain.Object{}, false
	}
	for i := len(s.objects) - 1; i >= 0; i-- {
		o := s.objects[i]
		if !o.Evented {
			continue
		}
		if hitRect(o).Contains(p) {
			return o.Copy(), true
		}
	}
	return domain.Object{}, false
}

// hitRect pads the bounds by half the stroke so thin lines stay hittable.
func hitRect(o domain.Object) domain.Rect {
	r := o.Bounds()
	pad := o.StrokeWidth / 2
	return domain.Rect{Left: r.Left - pad, Top: r.Top - pad, Width: r.Width + 2*pad, Height: r.Height + 2*pad}
}

// ── Selection & editing ─────────────────────────────────

func (s *Scene) SetActiveObjects(ids ...string) {
	s.mu.Lock()
	active := make([]string, 0, len(ids))
	for _, id := range ids {
		if i := s.indexOf(id); i >= 0 && s.objects[i].Selectable {
			active = append(active, id)
		}
	}
	s.active = active
	if s.editing != "" && !slices.Contains(active, s.editing) {
		s.editing = ""
	}
	s.mu.Unlock()

	s.emit(domain.SceneEvent{Kind: domain.SelectionChanged})
}

func (s *Scene) ClearSelection() {
	s.mu.Lock()
	had := len(s.active) > 0
	s.active = nil
	s.editing = ""
	s.mu.Unlock()

	if had {
		s.emit(domain.SceneEvent{Kind: domain.SelectionChanged})
	}
}

func (s *Scene) ActiveObjects() []domain.Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Object, 0, len(s.active))
	for _, id := range s.active {
		if i := s.indexOf(id); i >= 0 {
			out = append(out, s.objects[i].Copy())
		}
	}
	return out
}

// EnterEditing puts a text object into edit mode with its full content
// selected. Only text objects can be edited.
func (s *Scene) EnterEditing(id string) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 || s.objects[i].Kind != domain.KindText {
		s.mu.Unlock()
		return false
	}
	s.editing = id
	s.active = []string{id}
	s.mu.Unlock()

	s.emit(domain.SceneEvent{Kind: domain.SelectionChanged})
	return true
}

func (s *Scene) ExitEditing() {
	s.mu.Lock()
	s.editing = ""
	s.mu.Unlock()
}

func (s *Scene) EditingID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editing, s.editing != ""
}

// ── Mode flags ──────────────────────────────────────────

func (s *Scene) SetDrawingMode(on bool) {
	s.mu.Lock()
	s.drawingMode = on
	s.mu.Unlock()
}

// DrawingMode reports whether freehand drawing is enabled.
func (s *Scene) DrawingMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drawingMode
}

func (s *Scene) SetSkipTargetFind(on bool) {
	s.mu.Lock()
	s.skipTargetFind = on
	s.mu.Unlock()
}

// ── Serialization ───────────────────────────────────────

// Serialize encodes every non-preview object in paint order.
func (s *Scene) Serialize() ([]byte, error) {
	s.mu.RLock()
	doc := document{Version: documentVersion, Objects: make([]domain.Object, 0, len(s.objects))}
	for _, o := range s.objects {
		if o.IsPreview() {
			continue
		}
		doc.Objects = append(doc.Objects, o)
	}
	s.mu.RUnlock()

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal scene: %w", err)
	}
	return data, nil
}

// Deserialize replaces the whole document. The blob is fully decoded and
// validated before the scene is touched, so a bad blob leaves the scene
// unchanged.
func (s *Scene) Deserialize(blob []byte) error {
	var doc document
	if err := json.Unmarshal(blob, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	seen := make(map[string]struct{}, len(doc.Objects))
	for i := range doc.Objects {
		if doc.Objects[i].ID == "" {
			doc.Objects[i].ID = uuid.New().String()
		}
		if _, dup := seen[doc.Objects[i].ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidDocument, doc.Objects[i].ID)
		}
		seen[doc.Objects[i].ID] = struct{}{}
		doc.Objects[i] = normalize(doc.Objects[i])
	}

	s.mu.Lock()
	removed := s.objects
	hadSelection := len(s.active) > 0
	s.objects = doc.Objects
	s.active = nil
	s.editing = ""
	s.mu.Unlock()

	for _, o := range removed {
		s.emit(domain.SceneEvent{Kind: domain.ObjectRemoved, Object: o})
	}
	for _, o := range doc.Objects {
		s.emit(domain.SceneEvent{Kind: domain.ObjectAdded, Object: o.Copy()})
	}
	if hadSelection {
		s.emit(domain.SceneEvent{Kind: domain.SelectionChanged})
	}
	return nil
}

// ── Subscriptions ───────────────────────────────────────

type subscription struct {
	scene *Scene
	id    int
	once  sync.Once
}

func (sub *subscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.scene.subMu.Lock()
		delete(sub.scene.listeners, sub.id)
		sub.scene.subMu.Unlock()
	})
}

func (s *Scene) Subscribe(l domain.SceneListener) domain.Subscription {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	return &subscription{scene: s, id: id}
}

func (s *Scene) emit(ev domain.SceneEvent) {
	s.subMu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	ls := make([]domain.SceneListener, 0, len(ids))
	for _, id := range ids {
		ls = append(ls, s.listeners[id])
	}
	s.subMu.Unlock()

	for _, l := range ls {
		l(ev)
	}
}

// ── helpers ─────────────────────────────────────────────

// indexOf must be called with mu held.
func (s *Scene) indexOf(id string) int {
	for i, o := range s.objects {
		if o.ID == id {
			return i
		}
	}
	return -1
}

// dropActive must be called with mu held.
func (s *Scene) dropActive(id string) bool {
	for i, a := range s.active {
		if a == id {
			s.active = append(s.active[:i], s.active[i+1:]...)
			return true
		}
	}
	return false
}

func normalize(o domain.Object) domain.Object {
	if o.ScaleX == 0 {
		o.ScaleX = 1
	}
	if o.ScaleY == 0 {
		o.ScaleY = 1
	}
	return o.Copy()
}
