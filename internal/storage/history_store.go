package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"whiteboard/internal/history"
)

// HistoryStore persists a board's undo log so it survives restarts.
type HistoryStore struct {
	db *DB
}

func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// SaveLog replaces the stored log for a board with entries and the cursor
// position. The write is all-or-nothing.
func (s *HistoryStore) SaveLog(boardID string, entries []history.Entry, index int) error {
	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM history_entries WHERE board_id = ?`, boardID); err != nil {
		return fmt.Errorf("clear history entries: %w", err)
	}

	now := time.Now()
	for seq, e := range entries {
		vp, err := json.Marshal(e.Viewport)
		if err != nil {
			return fmt.Errorf("marshal viewport: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO history_entries (id, board_id, seq, document, viewport_json, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), boardID, seq, string(e.Document), string(vp), now,
		)
		if err != nil {
			return fmt.Errorf("insert history entry: %w", err)
		}
	}

	_, err = tx.Exec(
		`INSERT INTO history_state (board_id, current_index) VALUES (?, ?)
		 ON CONFLICT(board_id) DO UPDATE SET current_index = excluded.current_index`,
		boardID, index,
	)
	if err != nil {
		return fmt.Errorf("update history state: %w", err)
	}
	return tx.Commit()
}

// LoadLog returns the stored log for a board and its cursor. At most
// capacity entries are returned; older entries are dropped first and the
// cursor shifted to match. A board with no history yields a nil slice and
// index -1.
func (s *HistoryStore) LoadLog(boardID string, capacity int) ([]history.Entry, int, error) {
	rows, err := s.db.Conn().Query(
		`SELECT document, viewport_json FROM history_entries
		 WHERE board_id = ? ORDER BY seq ASC`, boardID,
	)
	if err != nil {
		return nil, -1, fmt.Errorf("load history entries: %w", err)
	}

	var entries []history.Entry
	for rows.Next() {
		var doc, vp string
		if err := rows.Scan(&doc, &vp); err != nil {
			rows.Close()
			return nil, -1, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, history.Entry{
			Document: []byte(doc),
			Viewport: decodeViewport(vp),
		})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, -1, err
	}
	// Close rows before the next query (single connection)
	rows.Close()

	if len(entries) == 0 {
		return nil, -1, nil
	}

	index := len(entries) - 1
	var stored int
	if err := s.db.Conn().QueryRow(
		`SELECT current_index FROM history_state WHERE board_id = ?`, boardID,
	).Scan(&stored); err == nil {
		index = stored
	}

	if capacity > 0 && len(entries) > capacity {
		over := len(entries) - capacity
		entries = entries[over:]
		index -= over
	}
	if index < 0 {
		index = 0
	}
	if index >= len(entries) {
		index = len(entries) - 1
	}
	return entries, index, nil
}

// ClearBoard removes all history for a board.
func (s *HistoryStore) ClearBoard(boardID string) error {
	_, _ = s.db.Conn().Exec(`DELETE FROM history_state WHERE board_id = ?`, boardID)
	_, err := s.db.Conn().Exec(`DELETE FROM history_entries WHERE board_id = ?`, boardID)
	return err
}
