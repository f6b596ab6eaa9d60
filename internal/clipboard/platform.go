package clipboard

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"whiteboard/internal/domain"
)

var (
	// ErrUnavailable means the platform clipboard cannot serve the request
	// at all; callers fall back to internal-clipboard-only behavior.
	ErrUnavailable = errors.New("clipboard: platform clipboard unavailable")
	// ErrPermission means the platform denied access.
	ErrPermission = errors.New("clipboard: permission denied")
	// ErrEmpty means the clipboard holds nothing of the requested type.
	ErrEmpty = errors.New("clipboard: no content of requested type")
)

// Platform is the host clipboard.
type Platform interface {
	ReadText(ctx context.Context) (string, error)
	WriteText(ctx context.Context, text string) error
	ReadImage(ctx context.Context) (domain.ClipboardItem, error)
}

// markerPrefix tags system clipboard text written on copy so a later
// paste can recover the in-process object.
const markerPrefix = "WBCLIP:"

// Marker formats the clipboard marker for a copy timestamp.
func Marker(ts int64) string {
	return markerPrefix + strconv.FormatInt(ts, 10)
}

// ParseMarker extracts the timestamp from a marker string.
func ParseMarker(text string) (int64, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(text), markerPrefix)
	if !ok {
		return 0, false
	}
	ts, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}
