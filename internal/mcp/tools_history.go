package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerHistoryTools() {
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last change on the board"),
	), s.handleUndo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change"),
	), s.handleRedo)

	s.mcp.AddTool(mcp.NewTool("history_status",
		mcp.WithDescription("Show undo/redo availability and history length"),
	), s.handleHistoryStatus)

	s.mcp.AddTool(mcp.NewTool("export_document",
		mcp.WithDescription("Export the board as JSON: serialized objects plus the viewport transform"),
	), s.handleExportDocument)
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.canvas.Undo(ctx) {
		return textResult("Nothing to undo"), nil
	}
	s.emitCanvasChanged(ctx, "undo")
	return jsonResult(s.canvas.History().Stats())
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.canvas.Redo(ctx) {
		return textResult("Nothing to redo"), nil
	}
	s.emitCanvasChanged(ctx, "redo")
	return jsonResult(s.canvas.History().Stats())
}

func (s *Server) handleHistoryStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.canvas.FlushHistory()
	return jsonResult(s.canvas.History().Stats())
}

// exportedDocument is the export_document payload.
type exportedDocument struct {
	BoardID  string          `json:"boardId"`
	Document json.RawMessage `json:"document"`
	Viewport [6]float64      `json:"viewport"`
}

func (s *Server) exportDocument() (exportedDocument, error) {
	snap, err := s.canvas.Snapshot()
	if err != nil {
		return exportedDocument{}, fmt.Errorf("export document: %w", err)
	}
	return exportedDocument{
		BoardID:  s.boardID,
		Document: json.RawMessage(snap.Document),
		Viewport: snap.Viewport,
	}, nil
}

func (s *Server) handleExportDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.exportDocument()
	if err != nil {
		return nil, err
	}
	return jsonResult(doc)
}
