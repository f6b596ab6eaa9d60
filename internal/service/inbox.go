package service

import (
	"context"
	"fmt"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"whiteboard/internal/domain"
	"whiteboard/internal/imaging"
)

// DefaultInboxDebounce is how long a file must stay quiet before import.
const DefaultInboxDebounce = 500 * time.Millisecond

// ImageSink places image files on the canvas.
type ImageSink interface {
	InsertImages(ctx context.Context, files ...domain.DroppedFile) int
}

// ─────────────────────────────────────────────────────────────
// InboxWatcher: image files dropped into a directory
// ─────────────────────────────────────────────────────────────

// InboxWatcher watches a directory and inserts new image files into the
// document, as if they were dropped at the viewport center.
type InboxWatcher struct {
	dir      string
	sink     ImageSink
	debounce time.Duration

	mu          sync.Mutex
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
}

// NewInboxWatcher creates a watcher for dir. A debounce of zero selects
// DefaultInboxDebounce.
func NewInboxWatcher(dir string, sink ImageSink, debounce time.Duration) *InboxWatcher {
	if debounce <= 0 {
		debounce = DefaultInboxDebounce
	}
	return &InboxWatcher{dir: dir, sink: sink, debounce: debounce}
}

// Start begins watching. The directory is created if missing.
func (w *InboxWatcher) Start(ctx context.Context) error {
	w.Stop()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create inbox dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch inbox %q: %w", w.dir, err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	w.mu.Lock()
	w.watcher = watcher
	w.watchCancel = cancel
	w.mu.Unlock()

	go w.loop(ctx, watchCtx, watcher)
	log.Printf("inbox: watching %s", w.dir)
	return nil
}

func (w *InboxWatcher) loop(ctx, watchCtx context.Context, watcher *fsnotify.Watcher) {
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()
	for {
		select {
		case <-watchCtx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			path := event.Name
			if strings.HasPrefix(filepath.Base(path), ".") {
				continue
			}
			if t, exists := timers[path]; exists {
				t.Stop()
			}
			timers[path] = time.AfterFunc(w.debounce, func() {
				if watchCtx.Err() != nil {
					return
				}
				if _, err := w.Import(ctx, path); err != nil {
					log.Printf("inbox: import %q: %v", path, err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("inbox: watcher error: %v", err)
		}
	}
}

// Import reads one file and hands it to the sink if it is an image. It
// reports whether anything was inserted.
func (w *InboxWatcher) Import(ctx context.Context, path string) (bool, error) {
	file, ok, err := ReadImageFile(path)
	if err != nil || !ok {
		return false, err
	}
	n := w.sink.InsertImages(ctx, file)
	return n > 0, nil
}

// ReadImageFile loads path as a dropped file. ok is false for directories
// and files that are not images.
func ReadImageFile(path string) (domain.DroppedFile, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.DroppedFile{}, false, fmt.Errorf("stat: %w", err)
	}
	if info.IsDir() {
		return domain.DroppedFile{}, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.DroppedFile{}, false, fmt.Errorf("read: %w", err)
	}
	mimeType := detectMIME(path, data)
	if !strings.HasPrefix(mimeType, "image/") {
		log.Printf("inbox: skipping %s (%s)", filepath.Base(path), mimeType)
		return domain.DroppedFile{}, false, nil
	}
	return domain.DroppedFile{
		Name: filepath.Base(path),
		MIME: mimeType,
		Data: data,
	}, true, nil
}

// Stop stops watching.
func (w *InboxWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watchCancel != nil {
		w.watchCancel()
		w.watchCancel = nil
	}
	if w.watcher != nil {
		w.watcher.Close()
		w.watcher = nil
	}
}

// detectMIME sniffs the content first, then falls back to the extension
// for formats the sniffer does not know, such as TIFF.
func detectMIME(path string, data []byte) string {
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" && imaging.IsImageMIME(byExt) {
		return byExt
	}
	return sniffed
}
