package mcpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"whiteboard/internal/canvas"
	"whiteboard/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for the whiteboard.
// It exposes tools, resources, and prompts so AI agents can draw on the board.
type Server struct {
	mcp      *server.MCPServer
	emitter  EventEmitter
	approval *ApprovalQueue
	layout   *LayoutEngine

	canvas  *canvas.Engine
	boards  domain.BoardStore
	boardID string
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Emitter EventEmitter
	Canvas  *canvas.Engine
	Boards  domain.BoardStore
	BoardID string
	// AutoApprove skips the approval prompt for destructive tools.
	AutoApprove bool
	ApprovalDB  *sql.DB // When set, use SQLite-based approval (standalone mode)
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	approval := NewApprovalQueue(ctx, deps.Emitter)
	approval.SetAutoApprove(deps.AutoApprove)
	if deps.ApprovalDB != nil {
		approval.SetDB(deps.ApprovalDB)
	}
	s := &Server{
		emitter:  deps.Emitter,
		approval: approval,
		layout:   NewLayoutEngine(),
		canvas:   deps.Canvas,
		boards:   deps.Boards,
		boardID:  deps.BoardID,
	}

	s.mcp = server.NewMCPServer(
		"whiteboard-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerObjectTools()
	s.registerViewTools()
	s.registerHistoryTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// SetApprovalTimeout changes how long destructive tools wait for the user.
// Non-positive durations are ignored.
func (s *Server) SetApprovalTimeout(d time.Duration) {
	if d > 0 {
		s.approval.SetTimeout(d)
	}
}

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) {
	s.approval.Approve(actionID)
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) {
	s.approval.Reject(actionID)
}

// ── Helpers ────────────────────────────────────────────────

// emitCanvasChanged tells the frontend that an agent edited the board.
func (s *Server) emitCanvasChanged(ctx context.Context, tool string) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(ctx, "mcp:canvas-changed", map[string]string{"boardId": s.boardID, "tool": tool})
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// number reads a numeric argument. JSON numbers arrive as float64.
func number(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func boolPtr(v bool) *bool { return &v }
