package mcpserver

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventEmitter allows the approval queue to notify the frontend.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// PendingAction represents a destructive operation awaiting user approval.
type PendingAction struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	Metadata    string `json:"metadata"` // JSON with extra context (e.g. object IDs)
}

// actionResult is sent through the channel when user approves/rejects.
type actionResult struct {
	approved bool
}

// ApprovalQueue manages human-in-the-loop approval for destructive MCP tool calls.
// It supports two modes:
//   - In-process: the frontend gets an "mcp:approval-required" event and
//     answers through Approve or Reject
//   - DB-based (standalone MCP): writes to the mcp_approvals table and polls
//     until the desktop app resolves the row
type ApprovalQueue struct {
	mu          sync.Mutex
	pending     map[string]chan actionResult
	ctx         context.Context
	emitter     EventEmitter
	timeout     time.Duration
	autoApprove bool
	// DB-based mode for standalone MCP (cross-process IPC)
	db *sql.DB
}

func NewApprovalQueue(ctx context.Context, emitter EventEmitter) *ApprovalQueue {
	return &ApprovalQueue{
		pending: make(map[string]chan actionResult),
		ctx:     ctx,
		emitter: emitter,
		timeout: 120 * time.Second,
	}
}

// SetDB enables DB-based approval mode for standalone MCP.
func (q *ApprovalQueue) SetDB(db *sql.DB) {
	q.mu.Lock()
	q.db = db
	q.mu.Unlock()
}

// SetAutoApprove approves every request without asking.
func (q *ApprovalQueue) SetAutoApprove(on bool) {
	q.mu.Lock()
	q.autoApprove = on
	q.mu.Unlock()
}

// SetTimeout changes how long a request waits for an answer.
func (q *ApprovalQueue) SetTimeout(d time.Duration) {
	q.mu.Lock()
	q.timeout = d
	q.mu.Unlock()
}

// Request sends an approval request and blocks until approved/rejected.
// metadata is optional JSON with extra context (e.g. object IDs for highlighting).
func (q *ApprovalQueue) Request(tool, description string, metadata ...string) (bool, error) {
	q.mu.Lock()
	auto, timeout, db := q.autoApprove, q.timeout, q.db
	q.mu.Unlock()
	if auto || (db == nil && q.emitter == nil) {
		log.Printf("[MCP] auto-approved %s: %s", tool, description)
		return true, nil
	}

	id := uuid.New().String()
	meta := "{}"
	if len(metadata) > 0 && metadata[0] != "" {
		meta = metadata[0]
	}

	if db != nil {
		return q.requestViaDB(db, timeout, id, tool, description, meta)
	}
	return q.requestViaChannel(timeout, id, tool, description, meta)
}

// requestViaDB writes a pending approval to SQLite and polls until resolved.
func (q *ApprovalQueue) requestViaDB(db *sql.DB, timeout time.Duration, id, tool, description, metadata string) (bool, error) {
	_, err := db.Exec(
		`INSERT INTO mcp_approvals (id, tool, description, status, metadata) VALUES (?, ?, ?, 'pending', ?)`,
		id, tool, description, metadata,
	)
	if err != nil {
		return false, fmt.Errorf("insert approval: %w", err)
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if time.Now().After(deadline) {
				db.Exec(`DELETE FROM mcp_approvals WHERE id = ?`, id)
				return false, fmt.Errorf("action timed out after %s: %s", timeout, tool)
			}
			var status string
			if err := db.QueryRow(`SELECT status FROM mcp_approvals WHERE id = ?`, id).Scan(&status); err != nil {
				continue
			}
			switch status {
			case "approved":
				db.Exec(`DELETE FROM mcp_approvals WHERE id = ?`, id)
				return true, nil
			case "rejected":
				db.Exec(`DELETE FROM mcp_approvals WHERE id = ?`, id)
				return false, fmt.Errorf("action rejected by user: %s", tool)
			}
			// Still pending, continue polling
		case <-q.ctx.Done():
			db.Exec(`DELETE FROM mcp_approvals WHERE id = ?`, id)
			return false, fmt.Errorf("context cancelled")
		}
	}
}

// requestViaChannel is the in-process mode using frontend events.
func (q *ApprovalQueue) requestViaChannel(timeout time.Duration, id, tool, description, meta string) (bool, error) {
	ch := make(chan actionResult, 1)
	q.mu.Lock()
	q.pending[id] = ch
	q.mu.Unlock()

	// Notify frontend
	q.emitter.Emit(q.ctx, "mcp:approval-required", PendingAction{
		ID:          id,
		Tool:        tool,
		Description: description,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Metadata:    meta,
	})

	// Block until approved, rejected, or timeout
	select {
	case result := <-ch:
		q.cleanup(id)
		if !result.approved {
			return false, fmt.Errorf("action rejected by user: %s", tool)
		}
		return true, nil
	case <-time.After(timeout):
		q.cleanup(id)
		// Notify frontend to dismiss
		q.emitter.Emit(q.ctx, "mcp:approval-dismissed", map[string]string{"id": id})
		return false, fmt.Errorf("action timed out after %s: %s", timeout, tool)
	case <-q.ctx.Done():
		q.cleanup(id)
		return false, fmt.Errorf("context cancelled")
	}
}

// Approve marks a pending action as approved.
func (q *ApprovalQueue) Approve(actionID string) {
	q.resolve(actionID, true)
}

// Reject marks a pending action as rejected.
func (q *ApprovalQueue) Reject(actionID string) {
	q.resolve(actionID, false)
}

func (q *ApprovalQueue) resolve(actionID string, approved bool) {
	q.mu.Lock()
	ch, ok := q.pending[actionID]
	q.mu.Unlock()
	if ok {
		select {
		case ch <- actionResult{approved: approved}:
		default:
		}
	}
}

func (q *ApprovalQueue) cleanup(id string) {
	q.mu.Lock()
	delete(q.pending, id)
	q.mu.Unlock()
}
