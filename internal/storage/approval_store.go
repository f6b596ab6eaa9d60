package storage

import "fmt"

// Approval statuses written to mcp_approvals.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// PendingApproval is a destructive agent action waiting for the user.
type PendingApproval struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	Metadata    string `json:"metadata"`
}

// ApprovalStore is the desktop side of the approval queue shared with a
// standalone MCP process. The MCP side inserts rows and polls them.
type ApprovalStore struct {
	db *DB
}

func NewApprovalStore(db *DB) *ApprovalStore {
	return &ApprovalStore{db: db}
}

// ListPending returns the unresolved requests, oldest first.
func (s *ApprovalStore) ListPending() ([]PendingApproval, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, tool, description, created_at, metadata FROM mcp_approvals
		 WHERE status = ? ORDER BY created_at`, ApprovalPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var out []PendingApproval
	for rows.Next() {
		var p PendingApproval
		if err := rows.Scan(&p.ID, &p.Tool, &p.Description, &p.CreatedAt, &p.Metadata); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Resolve answers a pending request. Requests that already timed out are
// gone and report ErrNotFound.
func (s *ApprovalStore) Resolve(id string, approved bool) error {
	status := ApprovalRejected
	if approved {
		status = ApprovalApproved
	}
	res, err := s.db.conn.Exec(
		`UPDATE mcp_approvals SET status = ? WHERE id = ? AND status = ?`,
		status, id, ApprovalPending,
	)
	if err != nil {
		return fmt.Errorf("resolve approval: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("resolve approval %s: %w", id, ErrNotFound)
	}
	return nil
}
