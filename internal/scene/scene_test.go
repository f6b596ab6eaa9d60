package scene_test

import (
	"errors"
	"testing"

	"whiteboard/internal/domain"
	"whiteboard/internal/scene"
)

func rect(id string, left, top, w, h float64) domain.Object {
	return domain.Object{
		ID: id, Kind: domain.KindRect,
		Left: left, Top: top, Width: w, Height: h,
		Opacity: 1, Selectable: true, Evented: true,
	}
}

// ─────────────────────────────────────────────────────────────
// Objects & notifications
// ─────────────────────────────────────────────────────────────

func TestScene_AddRemoveNotifies(t *testing.T) {
	s := scene.New()
	var kinds []domain.SceneEventKind
	sub := s.Subscribe(func(ev domain.SceneEvent) { kinds = append(kinds, ev.Kind) })

	if err := s.AddObject(rect("a", 0, 0, 10, 10)); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	if !s.RemoveObject("a") {
		t.Fatal("expected RemoveObject to succeed")
	}
	if s.RemoveObject("a") {
		t.Fatal("expected second RemoveObject to fail")
	}

	if len(kinds) != 2 || kinds[0] != domain.ObjectAdded || kinds[1] != domain.ObjectRemoved {
		t.Fatalf("expected [added removed], got %v", kinds)
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
	_ = s.AddObject(rect("b", 0, 0, 1, 1))
	if len(kinds) != 2 {
		t.Errorf("expected no events after unsubscribe, got %d", len(kinds))
	}
}

func TestScene_AddAssignsIDAndRejectsDuplicates(t *testing.T) {
	s := scene.New()
	obj := rect("", 0, 0, 1, 1)
	if err := s.AddObject(obj); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	objs := s.Objects()
	if len(objs) != 1 || objs[0].ID == "" {
		t.Fatalf("expected one object with an id, got %+v", objs)
	}
	err := s.AddObject(objs[0])
	if !errors.Is(err, scene.ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
}

func TestScene_ObjectsAreCopies(t *testing.T) {
	s := scene.New()
	_ = s.AddObject(domain.Object{ID: "p", Kind: domain.KindPath, Points: []domain.Point{domain.Pt(1, 1)}, Selectable: true, Evented: true})

	objs := s.Objects()
	objs[0].Points[0] = domain.Pt(99, 99)

	got, _ := s.Object("p")
	if got.Points[0].X != 1 {
		t.Errorf("expected scene state to be isolated from callers, got %v", got.Points[0])
	}
}

// ─────────────────────────────────────────────────────────────
// Hit-testing
// ─────────────────────────────────────────────────────────────

func TestScene_FindTargetAt(t *testing.T) {
	s := scene.New()
	_ = s.AddObject(rect("bottom", 0, 0, 100, 100))
	_ = s.AddObject(rect("top", 50, 50, 100, 100))
	preview := rect("preview", 0, 0, 500, 500)
	preview.Selectable, preview.Evented, preview.Preview = false, false, true
	_ = s.AddObject(preview)

	if o, ok := s.FindTargetAt(domain.Pt(75, 75)); !ok || o.ID != "top" {
		t.Errorf("expected topmost object 'top', got %q (found=%v)", o.ID, ok)
	}
	if o, ok := s.FindTargetAt(domain.Pt(10, 10)); !ok || o.ID != "bottom" {
		t.Errorf("expected 'bottom', got %q (found=%v)", o.ID, ok)
	}
	if _, ok := s.FindTargetAt(domain.Pt(400, 400)); ok {
		t.Error("expected non-evented preview to be ignored by hit-testing")
	}

	s.SetSkipTargetFind(true)
	if _, ok := s.FindTargetAt(domain.Pt(10, 10)); ok {
		t.Error("expected no target while target finding is suppressed")
	}
}

// ─────────────────────────────────────────────────────────────
// Serialization
// ─────────────────────────────────────────────────────────────

func TestScene_SerializeRoundTrip(t *testing.T) {
	s := scene.New()
	_ = s.AddObject(rect("a", 1, 2, 3, 4))
	_ = s.AddObject(domain.Object{ID: "t", Kind: domain.KindText, Text: "hi", Selectable: true, Evented: true})
	preview := rect("preview", 0, 0, 5, 5)
	preview.Selectable, preview.Evented, preview.Preview = false, false, true
	_ = s.AddObject(preview)

	blob, err := s.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	other := scene.New()
	if err := other.Deserialize(blob); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	objs := other.Objects()
	if len(objs) != 2 {
		t.Fatalf("expected 2 objects (preview excluded), got %d", len(objs))
	}
	if objs[0].ID != "a" || objs[1].ID != "t" {
		t.Errorf("expected order [a t], got [%s %s]", objs[0].ID, objs[1].ID)
	}
	if objs[0].ScaleX != 1 {
		t.Errorf("expected default scale 1, got %v", objs[0].ScaleX)
	}
}

func TestScene_LockedObjectIsNotPreview(t *testing.T) {
	s := scene.New()
	blob := []byte(`{"version":"1","objects":[{"id":"bg","type":"rect","width":10,"height":10,"opacity":1,"selectable":false,"evented":false}]}`)
	if err := s.Deserialize(blob); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	locked := rect("stamp", 0, 0, 5, 5)
	locked.Selectable, locked.Evented = false, false
	_ = s.AddObject(locked)

	out, err := s.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	other := scene.New()
	if err := other.Deserialize(out); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if other.Len() != 2 {
		t.Fatalf("expected both non-interactive objects kept, got %d", other.Len())
	}
	for _, o := range other.Objects() {
		if o.IsPreview() {
			t.Errorf("expected %s not to load as a preview", o.ID)
		}
	}
}

func TestScene_DeserializeInvalidLeavesSceneUntouched(t *testing.T) {
	s := scene.New()
	_ = s.AddObject(rect("a", 0, 0, 1, 1))

	err := s.Deserialize([]byte("{not json"))
	if !errors.Is(err, scene.ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
	dup := []byte(`{"version":"1","objects":[{"id":"x","type":"rect"},{"id":"x","type":"rect"}]}`)
	if err := s.Deserialize(dup); !errors.Is(err, scene.ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument for duplicate ids, got %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("expected scene unchanged, got %d objects", s.Len())
	}
}

func TestScene_DeserializeEmitsRemoveThenAdd(t *testing.T) {
	s := scene.New()
	_ = s.AddObject(rect("old", 0, 0, 1, 1))
	blob := []byte(`{"version":"1","objects":[{"id":"new","type":"rect","selectable":true,"evented":true}]}`)

	var events []domain.SceneEvent
	s.Subscribe(func(ev domain.SceneEvent) { events = append(events, ev) })
	if err := s.Deserialize(blob); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != domain.ObjectRemoved || events[0].Object.ID != "old" {
		t.Errorf("expected removal of 'old' first, got %v %s", events[0].Kind, events[0].Object.ID)
	}
	if events[1].Kind != domain.ObjectAdded || events[1].Object.ID != "new" {
		t.Errorf("expected addition of 'new', got %v %s", events[1].Kind, events[1].Object.ID)
	}
}

// ─────────────────────────────────────────────────────────────
// Selection, z-order, editing
// ─────────────────────────────────────────────────────────────

func TestScene_SelectionSkipsUnselectable(t *testing.T) {
	s := scene.New()
	_ = s.AddObject(rect("a", 0, 0, 1, 1))
	locked := rect("locked", 0, 0, 1, 1)
	locked.Selectable = false
	_ = s.AddObject(locked)

	s.SetActiveObjects("a", "locked", "missing")
	active := s.ActiveObjects()
	if len(active) != 1 || active[0].ID != "a" {
		t.Fatalf("expected only 'a' active, got %+v", active)
	}
	s.ClearSelection()
	if len(s.ActiveObjects()) != 0 {
		t.Error("expected selection cleared")
	}
}

func TestScene_ZOrder(t *testing.T) {
	s := scene.New()
	_ = s.AddObject(rect("a", 0, 0, 1, 1))
	_ = s.AddObject(rect("b", 0, 0, 1, 1))
	_ = s.AddObject(rect("c", 0, 0, 1, 1))

	s.BringToFront("a")
	if ids := idsOf(s.Objects()); ids != "bca" {
		t.Errorf("expected bca, got %s", ids)
	}
	s.SendToBack("c")
	if ids := idsOf(s.Objects()); ids != "cba" {
		t.Errorf("expected cba, got %s", ids)
	}
	if s.BringToFront("zzz") {
		t.Error("expected unknown id to fail")
	}
}

func TestScene_EditingOnlyText(t *testing.T) {
	s := scene.New()
	_ = s.AddObject(rect("r", 0, 0, 1, 1))
	_ = s.AddObject(domain.Object{ID: "t", Kind: domain.KindText, Selectable: true, Evented: true})

	if s.EnterEditing("r") {
		t.Error("expected rectangles to be non-editable")
	}
	if !s.EnterEditing("t") {
		t.Fatal("expected text to enter editing")
	}
	if id, ok := s.EditingID(); !ok || id != "t" {
		t.Errorf("expected editing 't', got %q", id)
	}
	s.RemoveObject("t")
	if _, ok := s.EditingID(); ok {
		t.Error("expected editing to end when the object is removed")
	}
}

func TestPencil_StrokeBecomesPath(t *testing.T) {
	s := scene.New()
	p := scene.NewPencil(s, domain.DefaultStyle())

	p.Begin(domain.Pt(10, 10))
	p.Extend(domain.Pt(20, 40))
	p.Extend(domain.Pt(20, 40))
	p.Extend(domain.Pt(30, 15))
	obj, ok := p.End()
	if !ok {
		t.Fatal("expected stroke to commit")
	}
	if obj.Kind != domain.KindPath || len(obj.Points) != 3 {
		t.Fatalf("expected path with 3 points, got %s with %d", obj.Kind, len(obj.Points))
	}
	b := obj.Bounds()
	if b.Left != 10 || b.Top != 10 || b.Width != 20 || b.Height != 30 {
		t.Errorf("unexpected bounds %+v", b)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 object in scene, got %d", s.Len())
	}
	if _, ok := p.End(); ok {
		t.Error("expected End without Begin to be a no-op")
	}
}

func idsOf(objs []domain.Object) string {
	out := ""
	for _, o := range objs {
		out += o.ID
	}
	return out
}
