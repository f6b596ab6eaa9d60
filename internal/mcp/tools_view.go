package mcpserver

import (
	"context"
	"fmt"

	"whiteboard/internal/domain"
	"whiteboard/internal/viewport"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerViewTools() {
	s.mcp.AddTool(mcp.NewTool("select_tool",
		mcp.WithDescription("Activate a drawing tool for the user: select, pen, pan, shape, text"),
		mcp.WithString("tool", mcp.Description("Tool name"), mcp.Required()),
		mcp.WithString("shape", mcp.Description("Shape kind when tool is shape: rectangle, circle, triangle, line")),
	), s.handleSelectTool)

	s.mcp.AddTool(mcp.NewTool("zoom",
		mcp.WithDescription("Zoom the view in or out one step around the center, or reset to 100%"),
		mcp.WithString("direction", mcp.Description("in, out, or reset"), mcp.Required()),
	), s.handleZoom)

	s.mcp.AddTool(mcp.NewTool("fit_to_content",
		mcp.WithDescription("Frame every object on the board in the view"),
	), s.handleFitToContent)
}

func (s *Server) handleSelectTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tool := domain.Tool(req.GetString("tool", ""))
	if !tool.Valid() {
		return nil, fmt.Errorf("unknown tool %q", tool)
	}
	if tool == domain.ToolShape {
		if shape := domain.ShapeKind(req.GetString("shape", "")); shape != "" {
			if !s.canvas.SelectShape(ctx, shape) {
				return nil, fmt.Errorf("unknown shape kind %q", shape)
			}
			return jsonResult(s.canvas.State())
		}
	}
	s.canvas.SelectTool(ctx, tool)
	return jsonResult(s.canvas.State())
}

func (s *Server) handleZoom(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch dir := req.GetString("direction", ""); dir {
	case "in":
		s.canvas.Zoom(viewport.ZoomIn)
	case "out":
		s.canvas.Zoom(viewport.ZoomOut)
	case "reset":
		s.canvas.ResetZoom()
	default:
		return nil, fmt.Errorf("direction must be in, out, or reset, got %q", dir)
	}
	return s.viewResult()
}

func (s *Server) handleFitToContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.canvas.FitToContent()
	return s.viewResult()
}

func (s *Server) viewResult() (*mcp.CallToolResult, error) {
	t := s.canvas.Transform()
	return jsonResult(map[string]any{"zoom": t[0], "transform": t})
}
