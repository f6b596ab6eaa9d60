package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"whiteboard/internal/canvas"
	"whiteboard/internal/domain"
	"whiteboard/internal/scene"
	"whiteboard/internal/storage"
	"whiteboard/internal/viewport"

	"github.com/mark3labs/mcp-go/mcp"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (e *recordingEmitter) Emit(_ context.Context, event string, _ any) {
	e.mu.Lock()
	e.events = append(e.events, event)
	e.mu.Unlock()
}

func (e *recordingEmitter) count(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.events {
		if ev == event {
			n++
		}
	}
	return n
}

func newTestServer(t *testing.T, autoApprove bool) (*Server, *canvas.Engine, *recordingEmitter) {
	t.Helper()
	sc := scene.New()
	engine := canvas.New(canvas.Deps{
		Scene:    sc,
		Drawer:   scene.NewPencil(sc, domain.DefaultStyle()),
		Viewport: viewport.New(800, 600, viewport.DefaultOptions()),
	}, canvas.Options{})
	t.Cleanup(engine.Close)

	emitter := &recordingEmitter{}
	s := New(context.Background(), Deps{
		Emitter:     emitter,
		Canvas:      engine,
		BoardID:     "default",
		AutoApprove: autoApprove,
	})
	return s, engine, emitter
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("expected tool result content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

// ─────────────────────────────────────────────────────────────
// Object tools
// ─────────────────────────────────────────────────────────────

func TestAddShape_ExplicitPosition(t *testing.T) {
	s, engine, emitter := newTestServer(t, true)
	ctx := context.Background()

	res, err := s.handleAddShape(ctx, call(map[string]any{
		"kind": "rectangle", "x": 10.0, "y": 20.0, "width": 100.0, "height": 50.0,
	}))
	if err != nil {
		t.Fatalf("add_shape: %v", err)
	}
	var out struct {
		ID string `json:"id"`
	}
	json.Unmarshal([]byte(resultText(t, res)), &out)

	objs := engine.Objects()
	if len(objs) != 1 || objs[0].ID != out.ID {
		t.Fatalf("expected the new object on the board, got %d", len(objs))
	}
	want := domain.Rect{Left: 10, Top: 20, Width: 100, Height: 50}
	if objs[0].Bounds() != want {
		t.Errorf("expected bounds %+v, got %+v", want, objs[0].Bounds())
	}
	if emitter.count("mcp:canvas-changed") != 1 {
		t.Errorf("expected canvas-changed event")
	}
}

func TestAddShape_AutoPlacement(t *testing.T) {
	s, engine, _ := newTestServer(t, true)
	ctx := context.Background()

	s.handleAddShape(ctx, call(map[string]any{"kind": "rectangle"}))
	s.handleAddShape(ctx, call(map[string]any{"kind": "rectangle"}))

	objs := engine.Objects()
	if len(objs) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(objs))
	}
	if intersects(objs[0].Bounds(), objs[1].Bounds()) {
		t.Errorf("expected auto-placed shapes not to overlap: %+v %+v", objs[0].Bounds(), objs[1].Bounds())
	}
}

func TestAddShape_UnknownKind(t *testing.T) {
	s, _, _ := newTestServer(t, true)
	if _, err := s.handleAddShape(context.Background(), call(map[string]any{"kind": "hexagon"})); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestAddText(t *testing.T) {
	s, engine, _ := newTestServer(t, true)
	ctx := context.Background()

	if _, err := s.handleAddText(ctx, call(map[string]any{"text": "hello", "x": 5.0, "y": 5.0})); err != nil {
		t.Fatalf("add_text: %v", err)
	}
	objs := engine.Objects()
	if len(objs) != 1 || objs[0].Text != "hello" || objs[0].Kind != domain.KindText {
		t.Fatalf("expected one text object, got %+v", objs)
	}
	if _, err := s.handleAddText(ctx, call(map[string]any{"text": "  "})); err == nil {
		t.Error("expected error for blank text")
	}
}

func TestListObjects(t *testing.T) {
	s, engine, _ := newTestServer(t, true)
	ctx := context.Background()
	engine.AddShape(ctx, domain.ShapeRectangle, domain.Pt(0, 0), domain.Pt(10, 10))

	res, err := s.handleListObjects(ctx, call(nil))
	if err != nil {
		t.Fatalf("list_objects: %v", err)
	}
	var list []objectSummary
	if err := json.Unmarshal([]byte(resultText(t, res)), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].Type != domain.KindRect {
		t.Errorf("unexpected listing %+v", list)
	}
}

func TestDeleteObjects(t *testing.T) {
	s, engine, _ := newTestServer(t, true)
	ctx := context.Background()
	a, _ := engine.AddShape(ctx, domain.ShapeRectangle, domain.Pt(0, 0), domain.Pt(10, 10))
	b, _ := engine.AddShape(ctx, domain.ShapeRectangle, domain.Pt(50, 0), domain.Pt(60, 10))

	res, err := s.handleDeleteObjects(ctx, call(map[string]any{"objectIds": a + ", " + b + ",missing"}))
	if err != nil {
		t.Fatalf("delete_objects: %v", err)
	}
	if !strings.Contains(resultText(t, res), "Deleted 2 of 3") {
		t.Errorf("unexpected result %q", resultText(t, res))
	}
	if len(engine.Objects()) != 0 {
		t.Errorf("expected empty board, got %d", len(engine.Objects()))
	}
}

func TestDeleteObjects_Rejected(t *testing.T) {
	s, engine, emitter := newTestServer(t, false)
	ctx := context.Background()
	id, _ := engine.AddShape(ctx, domain.ShapeRectangle, domain.Pt(0, 0), domain.Pt(10, 10))

	done := make(chan error, 1)
	go func() {
		_, err := s.handleDeleteObjects(ctx, call(map[string]any{"objectIds": id}))
		done <- err
	}()

	// Wait for the approval request, then reject it.
	deadline := time.Now().Add(time.Second)
	for emitter.count("mcp:approval-required") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.approval.mu.Lock()
	var pending string
	for pid := range s.approval.pending {
		pending = pid
	}
	s.approval.mu.Unlock()
	s.Reject(pending)

	if err := <-done; err == nil {
		t.Fatal("expected rejection error")
	}
	if len(engine.Objects()) != 1 {
		t.Errorf("expected object kept after rejection, got %d", len(engine.Objects()))
	}
}

func TestDeleteObjects_ApprovedThroughDatabase(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "whiteboard.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, engine, _ := newTestServer(t, false)
	s.approval.SetDB(db.Conn())
	ctx := context.Background()
	id, _ := engine.AddShape(ctx, domain.ShapeRectangle, domain.Pt(0, 0), domain.Pt(10, 10))

	done := make(chan error, 1)
	go func() {
		_, err := s.handleDeleteObjects(ctx, call(map[string]any{"objectIds": id}))
		done <- err
	}()

	// The desktop side sees the pending row and approves it.
	approvals := storage.NewApprovalStore(db)
	deadline := time.Now().Add(2 * time.Second)
	var pending []storage.PendingApproval
	for len(pending) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		pending, _ = approvals.ListPending()
	}
	if len(pending) != 1 || pending[0].Tool != "delete_objects" {
		t.Fatalf("expected one pending delete_objects, got %+v", pending)
	}
	if err := approvals.Resolve(pending[0].ID, true); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("delete_objects: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for approval")
	}
	if len(engine.Objects()) != 0 {
		t.Errorf("expected object deleted after approval, got %d", len(engine.Objects()))
	}
}

func TestClear_Undoable(t *testing.T) {
	s, engine, _ := newTestServer(t, true)
	ctx := context.Background()
	engine.AddShape(ctx, domain.ShapeRectangle, domain.Pt(0, 0), domain.Pt(10, 10))

	if _, err := s.handleClear(ctx, call(nil)); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(engine.Objects()) != 0 {
		t.Fatalf("expected empty board, got %d", len(engine.Objects()))
	}
	if _, err := s.handleUndo(ctx, call(nil)); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if len(engine.Objects()) != 1 {
		t.Errorf("expected undo to restore 1 object, got %d", len(engine.Objects()))
	}
}

// ─────────────────────────────────────────────────────────────
// View and history tools
// ─────────────────────────────────────────────────────────────

func TestSelectTool(t *testing.T) {
	s, engine, _ := newTestServer(t, true)
	ctx := context.Background()

	if _, err := s.handleSelectTool(ctx, call(map[string]any{"tool": "shape", "shape": "circle"})); err != nil {
		t.Fatalf("select_tool: %v", err)
	}
	if st := engine.State(); st.Tool != domain.ToolShape || st.Shape != domain.ShapeCircle {
		t.Errorf("expected shape/circle, got %+v", st)
	}
	if _, err := s.handleSelectTool(ctx, call(map[string]any{"tool": "eraser"})); err == nil {
		t.Error("expected error for unknown tool")
	}
}

func TestZoom(t *testing.T) {
	s, engine, _ := newTestServer(t, true)
	ctx := context.Background()

	s.handleZoom(ctx, call(map[string]any{"direction": "in"}))
	if z := engine.Transform()[0]; z < 1.19 || z > 1.21 {
		t.Errorf("expected zoom 1.2, got %v", z)
	}
	s.handleZoom(ctx, call(map[string]any{"direction": "reset"}))
	if engine.Transform() != domain.IdentityTransform {
		t.Errorf("expected identity after reset, got %v", engine.Transform())
	}
	if _, err := s.handleZoom(ctx, call(map[string]any{"direction": "sideways"})); err == nil {
		t.Error("expected error for bad direction")
	}
}

func TestUndoNothing(t *testing.T) {
	s, _, _ := newTestServer(t, true)
	res, err := s.handleUndo(context.Background(), call(nil))
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if resultText(t, res) != "Nothing to undo" {
		t.Errorf("unexpected result %q", resultText(t, res))
	}
}

func TestExportDocument(t *testing.T) {
	s, engine, _ := newTestServer(t, true)
	ctx := context.Background()
	engine.AddText(ctx, "label", domain.Pt(0, 0))

	res, err := s.handleExportDocument(ctx, call(nil))
	if err != nil {
		t.Fatalf("export_document: %v", err)
	}
	var doc exportedDocument
	if err := json.Unmarshal([]byte(resultText(t, res)), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.BoardID != "default" || !strings.Contains(string(doc.Document), "label") {
		t.Errorf("unexpected export %+v", doc)
	}
}
