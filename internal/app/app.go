package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"sync"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"whiteboard/internal/canvas"
	"whiteboard/internal/config"
	"whiteboard/internal/domain"
	"whiteboard/internal/history"
	"whiteboard/internal/service"
	"whiteboard/internal/storage"
	"whiteboard/internal/viewport"
)

// EventBoardOpened is emitted after the open board changes.
const EventBoardOpened = "board:opened"

// wailsEmitter adapts wailsRuntime.EventsEmit to service.EventEmitter.
type wailsEmitter struct{}

func (wailsEmitter) Emit(ctx context.Context, event string, data any) {
	wailsRuntime.EventsEmit(ctx, event, data)
}

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx context.Context
	cfg config.Config

	ws        *workspace
	approvals *storage.ApprovalStore
	watcher   *boardWatcher
	emitter   service.EventEmitter

	mu   sync.Mutex
	sess *session
}

// New creates a new App.
func New() *App {
	return &App{emitter: wailsEmitter{}}
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	// macOS: disable "Press and Hold" accent popup so arrow-key nudging repeats in the WebView.
	exec.Command("defaults", "write", "com.wails.whiteboard", "ApplePressAndHoldEnabled", "-bool", "false").Run()

	cfg, err := config.Load()
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to load config: %v", err)
		return
	}
	a.cfg = cfg

	ws, err := openWorkspace(cfg)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to open database: %v", err)
		return
	}
	a.ws = ws
	a.approvals = storage.NewApprovalStore(ws.db)

	sess, err := openSession(ctx, ws, cfg.Storage.Board, "Untitled", a.emitter)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to open board: %v", err)
		return
	}
	a.sess = sess

	a.watcher = newBoardWatcher(ctx, ws, a.emitter, true)
	a.watcher.SetSession(sess)
	a.watcher.Start()

	// Native file drops land on the canvas at the drop position.
	wailsRuntime.OnFileDrop(ctx, a.HandleFileDrop)
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.mu.Lock()
	sess := a.sess
	a.sess = nil
	a.mu.Unlock()
	if sess != nil {
		if err := sess.Close(ctx); err != nil {
			wailsRuntime.LogErrorf(ctx, "Failed to save board: %v", err)
		}
	}
	if a.ws != nil {
		a.ws.Close()
	}
}

// engine returns the engine of the open board.
func (a *App) engine() *canvas.Engine {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sess.engine
}

// ============================================================
// Canvas input
// ============================================================

func (a *App) PointerDown(ev domain.PointerEvent) {
	a.engine().PointerDown(a.ctx, ev)
}

func (a *App) PointerMove(ev domain.PointerEvent) {
	a.engine().PointerMove(a.ctx, ev)
}

func (a *App) PointerUp(ev domain.PointerEvent) {
	a.engine().PointerUp(a.ctx, ev)
}

// DoubleClick reports whether the event started text editing.
func (a *App) DoubleClick(ev domain.PointerEvent) bool {
	return a.engine().DoubleClick(a.ctx, ev)
}

// KeyDown reports whether the key was consumed; the frontend should then
// prevent the browser default.
func (a *App) KeyDown(ev domain.KeyEvent) bool {
	return a.engine().KeyDown(a.ctx, ev)
}

func (a *App) KeyUp(ev domain.KeyEvent) bool {
	return a.engine().KeyUp(a.ctx, ev)
}

func (a *App) Wheel(ev domain.WheelEvent) {
	a.engine().Wheel(a.ctx, ev)
}

// Resize reports the canvas size in screen pixels.
func (a *App) Resize(width, height float64) {
	a.engine().Resize(width, height)
}

// ============================================================
// Tools and style
// ============================================================

func (a *App) SelectTool(tool string) bool {
	return a.engine().SelectTool(a.ctx, domain.Tool(tool))
}

func (a *App) SelectShape(kind string) bool {
	return a.engine().SelectShape(a.ctx, domain.ShapeKind(kind))
}

func (a *App) GetToolState() domain.ToolState {
	return a.engine().State()
}

func (a *App) GetStyle() domain.Style {
	return a.engine().Style()
}

func (a *App) SetStyle(style domain.Style) {
	a.engine().SetStyle(style)
}

// ============================================================
// Editing commands
// ============================================================

func (a *App) Copy() bool {
	return a.engine().Copy(a.ctx)
}

func (a *App) Cut() bool {
	return a.engine().Cut(a.ctx)
}

// Paste runs a keyboard or menu paste. useContextPosition places the
// result at the last context-menu point.
func (a *App) Paste(useContextPosition bool) PasteResult {
	return pasteResult(a.engine().Paste(a.ctx, useContextPosition))
}

// HandlePaste runs a paste carrying the native clipboard event payload.
func (a *App) HandlePaste(ev domain.PasteEvent) PasteResult {
	return pasteResult(a.engine().HandlePaste(a.ctx, ev))
}

func (a *App) Duplicate() bool {
	return a.engine().Duplicate(a.ctx)
}

func (a *App) Delete() bool {
	return a.engine().Delete(a.ctx)
}

func (a *App) SelectAll() int {
	return a.engine().SelectAll(a.ctx)
}

func (a *App) BringToFront() bool {
	return a.engine().BringToFront(a.ctx)
}

func (a *App) SendToBack() bool {
	return a.engine().SendToBack(a.ctx)
}

func (a *App) Escape() {
	a.engine().Escape(a.ctx)
}

func (a *App) EditText(id, text string) bool {
	return a.engine().EditText(a.ctx, id, text)
}

func (a *App) FinishEditing() {
	a.engine().FinishEditing(a.ctx)
}

func (a *App) Clear() {
	a.engine().Clear(a.ctx)
}

// ============================================================
// History
// ============================================================

func (a *App) Undo() bool {
	return a.engine().Undo(a.ctx)
}

func (a *App) Redo() bool {
	return a.engine().Redo(a.ctx)
}

func (a *App) GetHistory() history.Stats {
	return a.engine().History().Stats()
}

// ============================================================
// Viewport
// ============================================================

func (a *App) ZoomIn() float64 {
	return a.engine().Zoom(viewport.ZoomIn)
}

func (a *App) ZoomOut() float64 {
	return a.engine().Zoom(viewport.ZoomOut)
}

func (a *App) ResetZoom() {
	a.engine().ResetZoom()
}

func (a *App) FitToContent() {
	a.engine().FitToContent()
}

// ============================================================
// Document
// ============================================================

// GetCanvas returns the full render state of the open board.
func (a *App) GetCanvas() CanvasState {
	a.mu.Lock()
	sess := a.sess
	a.mu.Unlock()
	e := sess.engine
	return CanvasState{
		BoardID:  sess.BoardID(),
		Objects:  e.Objects(),
		Viewport: e.Transform(),
		Tool:     e.State(),
		Style:    e.Style(),
		History:  e.History().Stats(),
		Unsaved:  e.Dirty(),
	}
}

// SaveNow writes the open board immediately.
func (a *App) SaveNow() error {
	a.mu.Lock()
	sess := a.sess
	a.mu.Unlock()
	sess.engine.FlushHistory()
	_, err := sess.autosave.SaveNow(a.ctx)
	return err
}

// Drop places files dropped by the frontend at a screen position.
func (a *App) Drop(files []domain.DroppedFile, x, y float64) int {
	return a.engine().Drop(a.ctx, files, domain.Pt(x, y))
}

// HandleFileDrop places native file drops at the drop position.
func (a *App) HandleFileDrop(x, y int, paths []string) {
	files := readImageFiles(paths)
	if len(files) == 0 {
		return
	}
	a.engine().Drop(a.ctx, files, domain.Pt(float64(x), float64(y)))
}

// ImportImages opens a file dialog and inserts the chosen images at the
// viewport center.
func (a *App) ImportImages() (int, error) {
	paths, err := wailsRuntime.OpenMultipleFilesDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title: "Insert images",
		Filters: []wailsRuntime.FileFilter{
			{DisplayName: "Images", Pattern: "*.png;*.jpg;*.jpeg;*.gif;*.webp;*.bmp;*.tiff"},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("open dialog: %w", err)
	}
	files := readImageFiles(paths)
	if len(files) == 0 {
		return 0, nil
	}
	return a.engine().InsertImages(a.ctx, files...), nil
}

func readImageFiles(paths []string) []domain.DroppedFile {
	var files []domain.DroppedFile
	for _, p := range paths {
		f, ok, err := service.ReadImageFile(p)
		if err != nil {
			log.Printf("app: read %s: %v", p, err)
			continue
		}
		if ok {
			files = append(files, f)
		}
	}
	return files
}

// ============================================================
// Boards
// ============================================================

func (a *App) ListBoards() ([]BoardView, error) {
	boards, err := a.ws.boards.ListBoards()
	if err != nil {
		return nil, err
	}
	current := a.currentBoardID()
	out := make([]BoardView, len(boards))
	for i, b := range boards {
		out[i] = boardView(b, current)
	}
	return out, nil
}

func (a *App) CreateBoard(name string) (BoardView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Untitled"
	}
	b := &domain.Board{Name: name}
	if err := a.ws.boards.CreateBoard(b); err != nil {
		return BoardView{}, err
	}
	return boardView(*b, a.currentBoardID()), nil
}

// OpenBoard saves the open board and switches to id.
func (a *App) OpenBoard(id string) error {
	if _, err := a.ws.boards.GetBoard(id); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sess != nil && a.sess.BoardID() == id {
		return nil
	}

	if a.sess != nil {
		if err := a.sess.Close(a.ctx); err != nil {
			wailsRuntime.LogErrorf(a.ctx, "Failed to save board: %v", err)
		}
	}
	sess, err := openSession(a.ctx, a.ws, id, "Untitled", a.emitter)
	if err != nil {
		return err
	}
	a.sess = sess
	a.watcher.SetSession(sess)
	a.emitter.Emit(a.ctx, EventBoardOpened, map[string]string{"boardId": id})
	return nil
}

func (a *App) RenameBoard(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("board name must not be empty")
	}
	return a.ws.boards.RenameBoard(id, name)
}

// DeleteBoard removes a board and its history. The open board cannot be
// deleted.
func (a *App) DeleteBoard(id string) error {
	if id == a.currentBoardID() {
		return errors.New("cannot delete the open board")
	}
	return a.ws.boards.DeleteBoard(id)
}

func (a *App) currentBoardID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sess == nil {
		return ""
	}
	return a.sess.BoardID()
}

// ============================================================
// MCP approvals
// ============================================================

// ListMCPApprovals returns agent actions waiting for the user.
func (a *App) ListMCPApprovals() ([]storage.PendingApproval, error) {
	return a.approvals.ListPending()
}

func (a *App) ApproveMCPAction(id string) error {
	return a.approvals.Resolve(id, true)
}

func (a *App) RejectMCPAction(id string) error {
	return a.approvals.Resolve(id, false)
}
