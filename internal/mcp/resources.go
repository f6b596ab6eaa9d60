package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	documentURI = "whiteboard://document"
	boardsURI   = "whiteboard://boards"
)

func (s *Server) registerResources() {
	// ── whiteboard://document ──────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		documentURI,
		"Current Board",
		mcp.WithMIMEType("application/json"),
	), s.handleDocumentResource)

	// ── whiteboard://boards ────────────────────────────
	if s.boards != nil {
		s.mcp.AddResource(mcp.NewResource(
			boardsURI,
			"All Boards",
			mcp.WithMIMEType("application/json"),
		), s.handleBoardsResource)
	}
}

func (s *Server) handleDocumentResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	doc, err := s.exportDocument()
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      documentURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleBoardsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	boards, err := s.boards.ListBoards()
	if err != nil {
		return nil, err
	}

	type boardSummary struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Active bool   `json:"active"`
	}

	summaries := make([]boardSummary, 0, len(boards))
	for _, b := range boards {
		summaries = append(summaries, boardSummary{ID: b.ID, Name: b.Name, Active: b.ID == s.boardID})
	}

	data, _ := json.MarshalIndent(summaries, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      boardsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
