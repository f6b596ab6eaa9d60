package app

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"whiteboard/internal/service"
	"whiteboard/internal/storage"
)

// Watcher events.
const (
	EventBoardReloaded   = "board:reloaded"
	EventBoardsChanged   = "boards:changed"
	EventMCPActivity     = "mcp:activity"
	EventMCPApprovalNeed = "mcp:approval-required"
)

const defaultWatchInterval = 2 * time.Second

// boardWatcher polls the database for changes to the open board made by
// another process (e.g. the standalone MCP server drawing on the same board)
// and merges them into the live engine. With approvals enabled it also
// relays pending MCP approval requests to the frontend.
type boardWatcher struct {
	ctx       context.Context
	db        *sql.DB
	approvals *storage.ApprovalStore
	boards    *storage.BoardStore
	emitter   service.EventEmitter
	interval  time.Duration

	mu   sync.Mutex
	sess *session
	// Fingerprints of the last poll; empty until the first one.
	lastBoard     string
	lastBoardList string
	relay         bool
	stopCh        chan struct{}
	// Track emitted approval IDs to avoid infinite re-emission
	emittedApprovals map[string]bool
}

func newBoardWatcher(ctx context.Context, ws *workspace, emitter service.EventEmitter, relayApprovals bool) *boardWatcher {
	return &boardWatcher{
		ctx:              ctx,
		db:               ws.db.Conn(),
		approvals:        storage.NewApprovalStore(ws.db),
		boards:           ws.boards,
		emitter:          emitter,
		interval:         defaultWatchInterval,
		relay:            relayApprovals,
		emittedApprovals: map[string]bool{},
	}
}

// SetSession updates the watched board. Called whenever a board is opened.
func (w *boardWatcher) SetSession(s *session) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sess = s
	w.lastBoard = ""
}

// Start begins the polling loop. Should be called once on startup.
func (w *boardWatcher) Start() {
	w.stopCh = make(chan struct{})
	go w.pollLoop(w.stopCh)
}

// Stop terminates the polling loop.
func (w *boardWatcher) Stop() {
	if w.stopCh != nil {
		close(w.stopCh)
		w.stopCh = nil
	}
}

func (w *boardWatcher) pollLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-stop:
			return
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *boardWatcher) check() {
	w.mu.Lock()
	sess := w.sess
	w.mu.Unlock()

	if sess != nil {
		w.checkBoard(sess)
	}
	w.checkBoardList()
	if w.relay {
		w.checkApprovals()
	}
}

// ── Open board ──────────────────────────────────────────

func (w *boardWatcher) checkBoard(sess *session) {
	var updated string
	var size int
	err := w.db.QueryRow(
		`SELECT COALESCE(updated_at, ''), LENGTH(document) FROM boards WHERE id = ?`, sess.BoardID(),
	).Scan(&updated, &size)
	if err != nil {
		return
	}
	fingerprint := fmt.Sprintf("%s:%d", updated, size)

	w.mu.Lock()
	changed := w.sess == sess && w.lastBoard != "" && w.lastBoard != fingerprint
	if w.sess == sess {
		w.lastBoard = fingerprint
	}
	w.mu.Unlock()

	if changed {
		w.merge(sess)
	}
}

// merge applies the stored document when it differs from the live one.
// Unsaved local edits win; the next autosave overwrites the stored copy.
func (w *boardWatcher) merge(sess *session) bool {
	if sess.engine.Dirty() {
		log.Printf("watcher: board %s changed externally, keeping local edits", sess.BoardID())
		return false
	}
	board, err := w.boards.GetBoard(sess.BoardID())
	if err != nil {
		return false
	}
	snap, err := sess.engine.Snapshot()
	if err != nil || bytes.Equal(snap.Document, []byte(board.Document)) {
		// Our own save.
		return false
	}
	if err := sess.engine.ApplyExternal(w.ctx, []byte(board.Document)); err != nil {
		log.Printf("watcher: board %s: %v", sess.BoardID(), err)
		return false
	}
	w.emit(EventBoardReloaded, map[string]string{"boardId": sess.BoardID()})
	return true
}

// ── Board list (sidebar refresh) ────────────────────────

func (w *boardWatcher) checkBoardList() {
	var count int
	var names string
	err := w.db.QueryRow(
		`SELECT COUNT(*), COALESCE(GROUP_CONCAT(id || ':' || name, ','), '') FROM boards`,
	).Scan(&count, &names)
	if err != nil {
		return
	}
	fingerprint := fmt.Sprintf("%d:%s", count, names)

	w.mu.Lock()
	changed := w.lastBoardList != "" && w.lastBoardList != fingerprint
	w.lastBoardList = fingerprint
	w.mu.Unlock()

	if changed {
		w.emit(EventBoardsChanged, map[string]int{"count": count})
	}
}

// ── Pending MCP approvals (cross-process IPC) ───────────

func (w *boardWatcher) checkApprovals() {
	pending, err := w.approvals.ListPending()
	if err != nil {
		return
	}

	live := make(map[string]bool, len(pending))
	for _, p := range pending {
		live[p.ID] = true
		w.mu.Lock()
		alreadySent := w.emittedApprovals[p.ID]
		w.emittedApprovals[p.ID] = true
		w.mu.Unlock()
		if alreadySent {
			continue
		}
		w.emit(EventMCPActivity, map[string]any{"changes": 1, "tool": p.Tool})
		w.emit(EventMCPApprovalNeed, p)
	}

	// Clean up tracking for resolved/deleted approvals (standalone MCP deletes after reading)
	w.mu.Lock()
	for id := range w.emittedApprovals {
		if !live[id] {
			delete(w.emittedApprovals, id)
		}
	}
	w.mu.Unlock()
}

func (w *boardWatcher) emit(event string, data any) {
	if w.emitter != nil {
		w.emitter.Emit(w.ctx, event, data)
	}
}
