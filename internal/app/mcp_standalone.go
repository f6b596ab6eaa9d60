package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"whiteboard/internal/config"
	mcpserver "whiteboard/internal/mcp"
)

// noopEmitter is a no-op EventEmitter used in MCP-only mode (no Wails frontend).
type noopEmitter struct{}

func (noopEmitter) Emit(_ context.Context, _ string, _ any) {}

// ServeMCP runs the app as a standalone MCP server on stdin/stdout with no GUI.
// It opens the configured board, keeps it autosaved, and runs the MCP server
// until interrupted. Destructive tools are approved from the desktop app
// through the shared database unless mcp.auto_approve is set.
func ServeMCP() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ws, err := openWorkspace(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer ws.Close()

	emitter := noopEmitter{}
	sess, err := openSession(ctx, ws, cfg.Storage.Board, "Untitled", emitter)
	if err != nil {
		log.Fatalf("Failed to open board: %v", err)
	}
	defer func() {
		if err := sess.Close(context.Background()); err != nil {
			log.Printf("[MCP] %v", err)
		}
	}()

	// Merge edits the desktop app saves to the same board.
	watcher := newBoardWatcher(ctx, ws, emitter, false)
	watcher.SetSession(sess)
	watcher.Start()
	defer watcher.Stop()

	deps := mcpserver.Deps{
		Emitter:     emitter,
		Canvas:      sess.engine,
		Boards:      ws.boards,
		BoardID:     sess.BoardID(),
		AutoApprove: cfg.MCP.AutoApprove,
	}
	if !cfg.MCP.AutoApprove {
		deps.ApprovalDB = ws.db.Conn() // Enable SQLite-based approval IPC
	}
	mcpSrv := mcpserver.New(ctx, deps)
	mcpSrv.SetApprovalTimeout(cfg.MCP.ApprovalTimeout)

	log.Println("[MCP] Starting standalone stdio server...")
	if err := mcpSrv.ServeStdio(); err != nil {
		log.Printf("MCP server error: %v", err)
	}
}
