package storage_test

import (
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	"whiteboard/internal/domain"
	"whiteboard/internal/history"
	"whiteboard/internal/storage"
)

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "data", "whiteboard.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ─────────────────────────────────────────────────────────────
// BoardStore
// ─────────────────────────────────────────────────────────────

func TestBoardStore_CreateAndGet(t *testing.T) {
	boards := storage.NewBoardStore(openDB(t))

	b := &domain.Board{Name: "Sketch"}
	if err := boards.CreateBoard(b); err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := boards.GetBoard(b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Sketch" {
		t.Errorf("expected name Sketch, got %q", got.Name)
	}
	if got.Viewport != domain.IdentityTransform {
		t.Errorf("expected identity viewport, got %v", got.Viewport)
	}
}

func TestBoardStore_GetMissing(t *testing.T) {
	boards := storage.NewBoardStore(openDB(t))

	_, err := boards.GetBoard("nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBoardStore_SaveDocument(t *testing.T) {
	boards := storage.NewBoardStore(openDB(t))
	b := &domain.Board{Name: "Board"}
	if err := boards.CreateBoard(b); err != nil {
		t.Fatalf("create: %v", err)
	}

	vp := domain.Transform{2, 0, 0, 2, 15, -30}
	savedAt, err := boards.SaveDocument(b.ID, `{"objects":[]}`, vp)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if savedAt.IsZero() {
		t.Error("expected non-zero save time")
	}

	got, _ := boards.GetBoard(b.ID)
	if got.Document != `{"objects":[]}` {
		t.Errorf("expected saved document, got %q", got.Document)
	}
	if got.Viewport != vp {
		t.Errorf("expected viewport %v, got %v", vp, got.Viewport)
	}
}

func TestBoardStore_SaveDocumentMissing(t *testing.T) {
	boards := storage.NewBoardStore(openDB(t))

	_, err := boards.SaveDocument("missing", "{}", domain.IdentityTransform)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBoardStore_RenameListDelete(t *testing.T) {
	db := openDB(t)
	boards := storage.NewBoardStore(db)
	hist := storage.NewHistoryStore(db)

	a := &domain.Board{Name: "A"}
	b := &domain.Board{Name: "B"}
	boards.CreateBoard(a)
	boards.CreateBoard(b)

	if err := boards.RenameBoard(a.ID, "Renamed"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	list, err := boards.ListBoards()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 boards, got %d", len(list))
	}

	hist.SaveLog(a.ID, []history.Entry{{Document: []byte("a"), Viewport: domain.IdentityTransform}}, 0)
	if err := boards.DeleteBoard(a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := boards.GetBoard(a.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected deleted board to be gone, got %v", err)
	}
	entries, _, _ := hist.LoadLog(a.ID, 0)
	if len(entries) != 0 {
		t.Errorf("expected history removed with board, got %d entries", len(entries))
	}
}

func TestBoardStore_EnsureBoard(t *testing.T) {
	boards := storage.NewBoardStore(openDB(t))

	first, err := boards.EnsureBoard("default", "Untitled")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	boards.SaveDocument(first.ID, "doc", domain.IdentityTransform)

	second, err := boards.EnsureBoard("default", "Other")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if second.Name != "Untitled" || second.Document != "doc" {
		t.Errorf("expected existing board, got %+v", second)
	}
}

// ─────────────────────────────────────────────────────────────
// HistoryStore
// ─────────────────────────────────────────────────────────────

func entries(n int) []history.Entry {
	out := make([]history.Entry, n)
	for i := range out {
		out[i] = history.Entry{
			Document: []byte("doc-" + strconv.Itoa(i)),
			Viewport: domain.Transform{1, 0, 0, 1, float64(i), 0},
		}
	}
	return out
}

func TestHistoryStore_RoundTrip(t *testing.T) {
	db := openDB(t)
	boards := storage.NewBoardStore(db)
	hist := storage.NewHistoryStore(db)
	b := &domain.Board{Name: "B"}
	boards.CreateBoard(b)

	if err := hist.SaveLog(b.ID, entries(3), 1); err != nil {
		t.Fatalf("save log: %v", err)
	}
	got, index, err := hist.LoadLog(b.ID, 50)
	if err != nil {
		t.Fatalf("load log: %v", err)
	}
	if len(got) != 3 || index != 1 {
		t.Fatalf("expected 3 entries at index 1, got %d at %d", len(got), index)
	}
	if string(got[2].Document) != "doc-2" || got[2].Viewport[4] != 2 {
		t.Errorf("expected last entry preserved, got %+v", got[2])
	}
}

func TestHistoryStore_SaveReplaces(t *testing.T) {
	db := openDB(t)
	hist := storage.NewHistoryStore(db)
	b := &domain.Board{Name: "B"}
	storage.NewBoardStore(db).CreateBoard(b)

	hist.SaveLog(b.ID, entries(5), 4)
	hist.SaveLog(b.ID, entries(2), 0)

	got, index, _ := hist.LoadLog(b.ID, 50)
	if len(got) != 2 || index != 0 {
		t.Errorf("expected 2 entries at index 0, got %d at %d", len(got), index)
	}
}

func TestHistoryStore_LoadTrimsOldest(t *testing.T) {
	db := openDB(t)
	hist := storage.NewHistoryStore(db)
	b := &domain.Board{Name: "B"}
	storage.NewBoardStore(db).CreateBoard(b)

	hist.SaveLog(b.ID, entries(10), 9)
	got, index, _ := hist.LoadLog(b.ID, 4)
	if len(got) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(got))
	}
	if string(got[0].Document) != "doc-6" {
		t.Errorf("expected oldest kept doc-6, got %s", got[0].Document)
	}
	if index != 3 {
		t.Errorf("expected cursor 3, got %d", index)
	}
}

func TestHistoryStore_Empty(t *testing.T) {
	hist := storage.NewHistoryStore(openDB(t))

	got, index, err := hist.LoadLog("none", 50)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != nil || index != -1 {
		t.Errorf("expected empty log at -1, got %d at %d", len(got), index)
	}
}

func TestHistoryStore_ClearBoard(t *testing.T) {
	db := openDB(t)
	hist := storage.NewHistoryStore(db)
	b := &domain.Board{Name: "B"}
	storage.NewBoardStore(db).CreateBoard(b)

	hist.SaveLog(b.ID, entries(3), 2)
	if err := hist.ClearBoard(b.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, _, _ := hist.LoadLog(b.ID, 50)
	if len(got) != 0 {
		t.Errorf("expected no entries, got %d", len(got))
	}
}

// ─────────────────────────────────────────────────────────────
// ApprovalStore
// ─────────────────────────────────────────────────────────────

func TestApprovalStore_ListAndResolve(t *testing.T) {
	db := openDB(t)
	approvals := storage.NewApprovalStore(db)

	_, err := db.Conn().Exec(
		`INSERT INTO mcp_approvals (id, tool, description, status, metadata) VALUES ('a1', 'clear', 'Clear the board', 'pending', '{}')`,
	)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	pending, err := approvals.ListPending()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].Tool != "clear" {
		t.Fatalf("expected one pending clear, got %+v", pending)
	}

	if err := approvals.Resolve("a1", true); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var status string
	db.Conn().QueryRow(`SELECT status FROM mcp_approvals WHERE id = 'a1'`).Scan(&status)
	if status != storage.ApprovalApproved {
		t.Errorf("expected approved, got %q", status)
	}
	pending, _ = approvals.ListPending()
	if len(pending) != 0 {
		t.Errorf("expected nothing pending, got %d", len(pending))
	}
}

func TestApprovalStore_ResolveMissing(t *testing.T) {
	approvals := storage.NewApprovalStore(openDB(t))
	if err := approvals.Resolve("gone", false); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
