package app

import (
	"time"

	"whiteboard/internal/clipboard"
	"whiteboard/internal/domain"
	"whiteboard/internal/history"
)

// BoardView is the frontend view of a board, without its document.
type BoardView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Current   bool      `json:"current"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func boardView(b domain.Board, currentID string) BoardView {
	return BoardView{
		ID:        b.ID,
		Name:      b.Name,
		Current:   b.ID == currentID,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// CanvasState is everything the frontend needs to render the open board.
type CanvasState struct {
	BoardID  string           `json:"boardId"`
	Objects  []domain.Object  `json:"objects"`
	Viewport domain.Transform `json:"viewport"`
	Tool     domain.ToolState `json:"tool"`
	Style    domain.Style     `json:"style"`
	History  history.Stats    `json:"history"`
	Unsaved  bool             `json:"unsaved"`
}

// PasteResult is the frontend view of a paste attempt.
type PasteResult struct {
	Pasted    bool             `json:"pasted"`
	Source    clipboard.Source `json:"source,omitempty"`
	ObjectIDs []string         `json:"objectIds,omitempty"`
}

func pasteResult(o clipboard.Outcome) PasteResult {
	return PasteResult{Pasted: o.Pasted, Source: o.Source, ObjectIDs: o.ObjectIDs}
}
