package app

import (
	"context"
	"fmt"
	"log"

	"whiteboard/internal/canvas"
	"whiteboard/internal/clipboard"
	"whiteboard/internal/config"
	"whiteboard/internal/domain"
	"whiteboard/internal/imaging"
	"whiteboard/internal/scene"
	"whiteboard/internal/service"
	"whiteboard/internal/storage"
	"whiteboard/internal/viewport"
)

// Initial viewport size until the frontend reports the real one.
const (
	initialWidth  = 1440
	initialHeight = 900
)

// workspace is the opened database and its stores, shared by every board
// session of the process.
type workspace struct {
	cfg       config.Config
	db        *storage.DB
	boards    *storage.BoardStore
	histories *storage.HistoryStore
}

func openWorkspace(cfg config.Config) (*workspace, error) {
	db, err := storage.New(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &workspace{
		cfg:       cfg,
		db:        db,
		boards:    storage.NewBoardStore(db),
		histories: storage.NewHistoryStore(db),
	}, nil
}

func (w *workspace) Close() error {
	return w.db.Close()
}

// session is one open board: the engine plus the services that keep it
// persisted.
type session struct {
	ws       *workspace
	board    *domain.Board
	engine   *canvas.Engine
	autosave *service.AutosaveService
	inbox    *service.InboxWatcher
	emitter  service.EventEmitter
}

// openSession loads boardID, creating it when missing, and starts autosave
// plus the optional image inbox.
func openSession(ctx context.Context, ws *workspace, boardID, name string, emitter service.EventEmitter) (*session, error) {
	board, err := ws.boards.EnsureBoard(boardID, name)
	if err != nil {
		return nil, fmt.Errorf("open board %s: %w", boardID, err)
	}

	cfg := ws.cfg
	notifier := service.NewToastNotifier(emitter)

	var platform clipboard.Platform
	if cfg.Clipboard.System {
		platform = clipboard.NewSystem()
	}

	sc := scene.New()
	engine := canvas.New(canvas.Deps{
		Scene:    sc,
		Drawer:   scene.NewPencil(sc, domain.DefaultStyle()),
		Viewport: viewport.New(initialWidth, initialHeight, cfg.Viewport.ViewportOptions()),
		Decoder:  imaging.NewDecoder(cfg.Clipboard.MaxImageKB),
		Platform: platform,
		Emitter:  emitter,
		Notifier: notifier,
	}, canvas.Options{
		HistoryCapacity: cfg.History.Capacity,
		Cooldown:        cfg.History.Cooldown,
		Debounce:        cfg.History.Debounce,
		PasteOffset:     cfg.Clipboard.PasteOffset,
		Context:         ctx,
	})

	engine.Load(ctx, []byte(board.Document), board.Viewport)

	if cfg.History.Persist {
		entries, index, err := ws.histories.LoadLog(board.ID, cfg.History.Capacity)
		if err != nil {
			log.Printf("session: load history for %s: %v", board.ID, err)
		} else {
			engine.LoadHistory(entries, index)
		}
	}

	s := &session{ws: ws, board: board, engine: engine, emitter: emitter}

	s.autosave = service.NewAutosaveService(engine, ws.boards, board.ID, emitter, notifier)
	if err := s.autosave.Start(ctx, cfg.Autosave.Schedule); err != nil {
		engine.Close()
		return nil, fmt.Errorf("start autosave: %w", err)
	}

	if cfg.Import.WatchDir != "" {
		s.inbox = service.NewInboxWatcher(cfg.Import.WatchDir, engine, 0)
		if err := s.inbox.Start(ctx); err != nil {
			// The board is still usable without the inbox.
			log.Printf("session: image inbox %s: %v", cfg.Import.WatchDir, err)
			s.inbox = nil
		}
	}
	return s, nil
}

// BoardID returns the ID of the open board.
func (s *session) BoardID() string { return s.board.ID }

// Close flushes pending edits, writes the document and history log, and
// stops the background services.
func (s *session) Close(ctx context.Context) error {
	if s.inbox != nil {
		s.inbox.Stop()
	}
	s.autosave.Stop()
	s.autosave.WaitRunning(ctx)

	s.engine.FlushHistory()
	_, saveErr := s.autosave.SaveNow(ctx)

	var histErr error
	if s.ws.cfg.History.Persist {
		entries, index := s.engine.History().Entries()
		histErr = s.ws.histories.SaveLog(s.board.ID, entries, index)
	}
	s.engine.Close()

	if saveErr != nil {
		return fmt.Errorf("save board %s: %w", s.board.ID, saveErr)
	}
	if histErr != nil {
		return fmt.Errorf("save history %s: %w", s.board.ID, histErr)
	}
	return nil
}
