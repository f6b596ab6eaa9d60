package domain

// ─────────────────────────────────────────────────────────────
// Scene contract: the object model the canvas engine drives
// ─────────────────────────────────────────────────────────────

// SceneEventKind classifies a scene notification.
type SceneEventKind int

const (
	ObjectAdded SceneEventKind = iota
	ObjectModified
	ObjectRemoved
	SelectionChanged
)

func (k SceneEventKind) String() string {
	switch k {
	case ObjectAdded:
		return "object:added"
	case ObjectModified:
		return "object:modified"
	case ObjectRemoved:
		return "object:removed"
	case SelectionChanged:
		return "selection:changed"
	}
	return "unknown"
}

// SceneEvent is delivered to subscribers after a scene mutation completes.
// Object is a copy of the affected object; it is zero for SelectionChanged.
type SceneEvent struct {
	Kind   SceneEventKind
	Object Object
}

// SceneListener receives scene notifications. Listeners are invoked
// synchronously on the mutating goroutine, after the scene has released
// its own locks, so they may read the scene but must not block.
type SceneListener func(SceneEvent)

// Subscription is the handle returned by Subscribe. Unsubscribe is
// idempotent.
type Subscription interface {
	Unsubscribe()
}

// Scene is the document object model. Objects are returned by value;
// mutations go through the scene so subscribers are notified.
type Scene interface {
	AddObject(obj Object) error
	RemoveObject(id string) bool
	UpdateObject(obj Object) error
	Object(id string) (Object, bool)
	Objects() []Object
	Clear()

	BringToFront(id string) bool
	SendToBack(id string) bool

	// FindTargetAt returns the topmost evented object containing p
	// (document coordinates). It returns false while target finding is
	// suppressed.
	FindTargetAt(p Point) (Object, bool)

	SetActiveObjects(ids ...string)
	ClearSelection()
	ActiveObjects() []Object

	EnterEditing(id string) bool
	ExitEditing()
	EditingID() (string, bool)

	SetDrawingMode(on bool)
	SetSkipTargetFind(on bool)

	Serialize() ([]byte, error)
	Deserialize(blob []byte) error

	Subscribe(l SceneListener) Subscription
}

// FreehandDrawer is the external brush collaborator used by the pen tool.
// Points are in document coordinates. End commits the stroke to the scene
// and reports whether an object was created.
type FreehandDrawer interface {
	Begin(p Point)
	Extend(p Point)
	End() (Object, bool)
	Cancel()
}
