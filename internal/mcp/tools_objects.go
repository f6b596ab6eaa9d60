package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"whiteboard/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	defaultShapeW = 160.0
	defaultShapeH = 100.0
)

func (s *Server) registerObjectTools() {
	// ── list_objects ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_objects",
		mcp.WithDescription("List all objects on the board with their IDs, types, and bounds"),
	), s.handleListObjects)

	// ── add_shape ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_shape",
		mcp.WithDescription("Add a shape to the board. Position is optional; without x/y the shape is placed in free space."),
		mcp.WithString("kind", mcp.Description("Shape kind: rectangle, circle, triangle, line"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("Left position (optional)")),
		mcp.WithNumber("y", mcp.Description("Top position (optional)")),
		mcp.WithNumber("width", mcp.Description("Width (optional, default 160)")),
		mcp.WithNumber("height", mcp.Description("Height (optional, default 100)")),
	), s.handleAddShape)

	// ── add_text ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_text",
		mcp.WithDescription("Add a text label to the board"),
		mcp.WithString("text", mcp.Description("Text content"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("Left position (optional)")),
		mcp.WithNumber("y", mcp.Description("Top position (optional)")),
	), s.handleAddText)

	// ── delete_objects ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_objects",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete objects by ID. Requires user approval."),
		mcp.WithString("objectIds", mcp.Description("Comma-separated object IDs to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteObjects)

	// ── clear ──────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("clear",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove every object from the board. Undoable. Requires user approval."),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleClear)
}

// objectSummary is the agent-facing view of a scene object.
type objectSummary struct {
	ID     string            `json:"id"`
	Type   domain.ObjectKind `json:"type"`
	Bounds domain.Rect       `json:"bounds"`
	Text   string            `json:"text,omitempty"`
}

func summarize(objs []domain.Object) []objectSummary {
	out := make([]objectSummary, 0, len(objs))
	for _, o := range objs {
		out = append(out, objectSummary{ID: o.ID, Type: o.Kind, Bounds: o.Bounds(), Text: o.Text})
	}
	return out
}

func (s *Server) handleListObjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(summarize(s.canvas.Objects()))
}

func (s *Server) handleAddShape(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := domain.ShapeKind(req.GetString("kind", ""))
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown shape kind %q (use rectangle, circle, triangle, line)", kind)
	}
	args := req.GetArguments()
	w, ok := number(args, "width")
	if !ok || w <= 0 {
		w = defaultShapeW
	}
	h, ok := number(args, "height")
	if !ok || h <= 0 {
		h = defaultShapeH
	}
	at := s.position(args, w, h)

	id, ok := s.canvas.AddShape(ctx, kind, at, domain.Pt(at.X+w, at.Y+h))
	if !ok {
		return nil, fmt.Errorf("add shape failed")
	}
	s.emitCanvasChanged(ctx, "add_shape")
	return jsonResult(map[string]any{"id": id, "left": at.X, "top": at.Y})
}

func (s *Server) handleAddText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required")
	}
	at := s.position(req.GetArguments(), defaultShapeW, defaultShapeH/2)

	id, ok := s.canvas.AddText(ctx, text, at)
	if !ok {
		return nil, fmt.Errorf("add text failed")
	}
	s.emitCanvasChanged(ctx, "add_text")
	return jsonResult(map[string]any{"id": id, "left": at.X, "top": at.Y})
}

// position returns the explicit x/y, or the next free slot.
func (s *Server) position(args map[string]any, w, h float64) domain.Point {
	x, okX := number(args, "x")
	y, okY := number(args, "y")
	if okX && okY {
		return domain.Pt(x, y)
	}
	return s.layout.NextPosition(Occupied(s.canvas.Objects()), w, h)
}

func (s *Server) handleDeleteObjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := req.GetString("objectIds", "")
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("objectIds is required")
	}

	meta, _ := json.Marshal(map[string]any{"objectIds": ids})
	if _, err := s.approval.Request("delete_objects", fmt.Sprintf("Delete %d object(s)", len(ids)), string(meta)); err != nil {
		return nil, err
	}

	n := s.canvas.DeleteObjects(ctx, ids...)
	s.emitCanvasChanged(ctx, "delete_objects")
	return textResult(fmt.Sprintf("Deleted %d of %d object(s)", n, len(ids))), nil
}

func (s *Server) handleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count := len(s.canvas.Objects())
	if _, err := s.approval.Request("clear", fmt.Sprintf("Clear the board (%d objects)", count)); err != nil {
		return nil, err
	}
	s.canvas.Clear(ctx)
	s.emitCanvasChanged(ctx, "clear")
	return textResult(fmt.Sprintf("Cleared %d object(s). Use undo to restore.", count)), nil
}
