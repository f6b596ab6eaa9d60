package service

import (
	"context"
	"log"

	"whiteboard/internal/domain"
)

// EventToast carries transient user-facing messages to the frontend.
const EventToast = "toast"

// Toast is the payload of EventToast.
type Toast struct {
	Level   domain.Level `json:"level"`
	Message string       `json:"message"`
}

// ToastNotifier turns notifications into toast events. A nil emitter only
// logs.
type ToastNotifier struct {
	emitter EventEmitter
}

func NewToastNotifier(emitter EventEmitter) *ToastNotifier {
	return &ToastNotifier{emitter: emitter}
}

var _ domain.Notifier = (*ToastNotifier)(nil)

func (n *ToastNotifier) Notify(ctx context.Context, level domain.Level, message string) {
	if level != domain.LevelInfo {
		log.Printf("notify %s: %s", level, message)
	}
	if n.emitter == nil {
		return
	}
	n.emitter.Emit(ctx, EventToast, Toast{Level: level, Message: message})
}
