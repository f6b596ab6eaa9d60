package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"whiteboard/internal/canvas"
	"whiteboard/internal/domain"
)

const (
	EventDocumentSaved      = "document:saved"
	DefaultAutosaveSchedule = "@every 2s"
)

// Document is the live document the autosave service flushes.
type Document interface {
	Dirty() bool
	Snapshot() (canvas.Snapshot, error)
	MarkSaved(rev uint64)
}

// DocumentSaver is the persistence gateway.
type DocumentSaver interface {
	SaveDocument(id, document string, viewport domain.Transform) (time.Time, error)
}

// SavedEvent is the payload of EventDocumentSaved.
type SavedEvent struct {
	BoardID string    `json:"boardId"`
	SavedAt time.Time `json:"savedAt"`
}

// ─────────────────────────────────────────────────────────────
// AutosaveService: periodic dirty-flag flush
// ─────────────────────────────────────────────────────────────

// AutosaveService writes the document whenever it is dirty, on a cron
// schedule. A failed write leaves the document dirty so the next tick
// retries it.
type AutosaveService struct {
	doc      Document
	store    DocumentSaver
	boardID  string
	emitter  EventEmitter
	notifier domain.Notifier
	inflight inflightGuard

	mu        sync.Mutex
	cronSched *cron.Cron
	failures  int
}

// NewAutosaveService creates an AutosaveService for one board.
func NewAutosaveService(
	doc Document,
	store DocumentSaver,
	boardID string,
	emitter EventEmitter,
	notifier domain.Notifier,
) *AutosaveService {
	if notifier == nil {
		notifier = domain.NopNotifier{}
	}
	return &AutosaveService{
		doc:      doc,
		store:    store,
		boardID:  boardID,
		emitter:  emitter,
		notifier: notifier,
	}
}

// Start schedules the flush. An empty schedule selects the default.
// Calling Start again replaces the previous schedule.
func (s *AutosaveService) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultAutosaveSchedule
	}
	s.Stop()

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := s.SaveNow(ctx); err != nil {
			log.Printf("autosave: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule autosave %q: %w", schedule, err)
	}
	c.Start()

	s.mu.Lock()
	s.cronSched = c
	s.mu.Unlock()
	log.Printf("autosave: board %s scheduled %s", s.boardID, schedule)
	return nil
}

// SaveNow writes the document if it is dirty and reports whether a write
// happened. A tick that overlaps an in-flight write is skipped.
func (s *AutosaveService) SaveNow(ctx context.Context) (bool, error) {
	if !s.doc.Dirty() {
		return false, nil
	}
	if !s.inflight.TryLock(s.boardID) {
		return false, nil
	}
	defer s.inflight.Unlock(s.boardID)

	snap, err := s.doc.Snapshot()
	if err != nil {
		return false, fmt.Errorf("snapshot document: %w", err)
	}
	savedAt, err := s.store.SaveDocument(s.boardID, string(snap.Document), snap.Viewport)
	if err != nil {
		s.recordFailure(ctx)
		return false, fmt.Errorf("save board %s: %w", s.boardID, err)
	}

	s.doc.MarkSaved(snap.Revision)
	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()

	if s.emitter != nil {
		s.emitter.Emit(ctx, EventDocumentSaved, SavedEvent{BoardID: s.boardID, SavedAt: savedAt})
	}
	return true, nil
}

// Only the first failure of a streak is surfaced.
func (s *AutosaveService) recordFailure(ctx context.Context) {
	s.mu.Lock()
	s.failures++
	first := s.failures == 1
	s.mu.Unlock()
	if first {
		s.notifier.Notify(ctx, domain.LevelWarning, "Auto-save failed, retrying")
	}
}

// Failures returns the number of consecutive failed writes.
func (s *AutosaveService) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

// WaitRunning blocks until an in-flight write finishes or ctx is cancelled.
func (s *AutosaveService) WaitRunning(ctx context.Context) {
	s.inflight.WaitAll(ctx)
}

// Stop removes the schedule. It does not wait for a running write; use
// WaitRunning for that.
func (s *AutosaveService) Stop() {
	s.mu.Lock()
	c := s.cronSched
	s.cronSched = nil
	s.mu.Unlock()
	if c != nil {
		c.Stop()
	}
}
