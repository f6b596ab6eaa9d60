package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"

	"whiteboard/internal/domain"
)

// System is the desktop clipboard. Text goes through atotto/clipboard;
// images are read with the platform's clipboard helper binary when one
// is installed.
type System struct {
	imageCommands [][]string
}

var _ Platform = (*System)(nil)

// NewSystem creates a System clipboard for the running OS.
func NewSystem() *System {
	return &System{imageCommands: imageCommands(runtime.GOOS)}
}

func imageCommands(goos string) [][]string {
	switch goos {
	case "linux", "freebsd", "openbsd":
		return [][]string{
			{"wl-paste", "--no-newline", "--type", "image/png"},
			{"xclip", "-selection", "clipboard", "-t", "image/png", "-o"},
		}
	case "darwin":
		return [][]string{{"pngpaste", "-"}}
	}
	return nil
}

func (s *System) ReadText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if clipboard.Unsupported {
		return "", ErrUnavailable
	}
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read clipboard text: %w", err)
	}
	return text, nil
}

func (s *System) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return ErrUnavailable
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard text: %w", err)
	}
	return nil
}

// ReadImage tries each helper in turn. A missing helper moves on to the
// next one; a helper that runs but yields nothing means the clipboard
// holds no image.
func (s *System) ReadImage(ctx context.Context) (domain.ClipboardItem, error) {
	ran := false
	for _, argv := range s.imageCommands {
		path, err := exec.LookPath(argv[0])
		if err != nil {
			continue
		}
		ran = true
		var out bytes.Buffer
		cmd := exec.CommandContext(ctx, path, argv[1:]...)
		cmd.Stdout = &out
		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return domain.ClipboardItem{}, ctx.Err()
			}
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				continue
			}
			return domain.ClipboardItem{}, fmt.Errorf("read clipboard image: %w", err)
		}
		if out.Len() > 0 {
			return domain.ClipboardItem{MIME: "image/png", Data: out.Bytes()}, nil
		}
	}
	if !ran {
		return domain.ClipboardItem{}, ErrUnavailable
	}
	return domain.ClipboardItem{}, ErrEmpty
}
