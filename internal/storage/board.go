package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"whiteboard/internal/domain"
)

// BoardStore handles CRUD operations for boards.
type BoardStore struct {
	db *DB
}

// NewBoardStore creates a new BoardStore.
func NewBoardStore(db *DB) *BoardStore {
	return &BoardStore{db: db}
}

var _ domain.BoardStore = (*BoardStore)(nil)

// ─────────────────────────────────────────────────────────────
// Boards
// ─────────────────────────────────────────────────────────────

func (s *BoardStore) CreateBoard(b *domain.Board) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Viewport == (domain.Transform{}) {
		b.Viewport = domain.IdentityTransform
	}
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now

	vp, err := json.Marshal(b.Viewport)
	if err != nil {
		return fmt.Errorf("marshal viewport: %w", err)
	}
	_, err = s.db.conn.Exec(
		`INSERT INTO boards (id, name, document, viewport_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Document, string(vp), b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create board: %w", err)
	}
	return nil
}

func (s *BoardStore) GetBoard(id string) (*domain.Board, error) {
	var b domain.Board
	var vp string
	err := s.db.conn.QueryRow(
		`SELECT id, name, document, viewport_json, created_at, updated_at
		 FROM boards WHERE id = ?`, id,
	).Scan(&b.ID, &b.Name, &b.Document, &vp, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get board %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	b.Viewport = decodeViewport(vp)
	return &b, nil
}

func (s *BoardStore) ListBoards() ([]domain.Board, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, name, document, viewport_json, created_at, updated_at
		 FROM boards ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	var boards []domain.Board
	for rows.Next() {
		var b domain.Board
		var vp string
		if err := rows.Scan(&b.ID, &b.Name, &b.Document, &vp, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		b.Viewport = decodeViewport(vp)
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

// SaveDocument stores the serialized scene and viewport and returns the
// save time.
func (s *BoardStore) SaveDocument(id, document string, viewport domain.Transform) (time.Time, error) {
	vp, err := json.Marshal(viewport)
	if err != nil {
		return time.Time{}, fmt.Errorf("marshal viewport: %w", err)
	}
	now := time.Now()
	res, err := s.db.conn.Exec(
		`UPDATE boards SET document = ?, viewport_json = ?, updated_at = ? WHERE id = ?`,
		document, string(vp), now, id,
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("save document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return time.Time{}, fmt.Errorf("save document %s: %w", id, ErrNotFound)
	}
	return now, nil
}

func (s *BoardStore) RenameBoard(id, name string) error {
	res, err := s.db.conn.Exec(
		`UPDATE boards SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("rename board: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rename board %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteBoard removes a board and its persisted history.
func (s *BoardStore) DeleteBoard(id string) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM history_entries WHERE board_id = ?`,
		`DELETE FROM history_state WHERE board_id = ?`,
		`DELETE FROM boards WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("delete board: %w", err)
		}
	}
	return tx.Commit()
}

// EnsureBoard returns the board with id, creating an empty one named name
// if it does not exist yet.
func (s *BoardStore) EnsureBoard(id, name string) (*domain.Board, error) {
	b, err := s.GetBoard(id)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	b = &domain.Board{ID: id, Name: name}
	if err := s.CreateBoard(b); err != nil {
		return nil, err
	}
	return b, nil
}

// A malformed stored viewport falls back to identity.
func decodeViewport(raw string) domain.Transform {
	var t domain.Transform
	if err := json.Unmarshal([]byte(raw), &t); err != nil || t[0] == 0 || t[3] == 0 {
		return domain.IdentityTransform
	}
	return t
}
