package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"whiteboard/internal/domain"
)

var (
	ErrNotImage          = errors.New("imaging: payload is not an image")
	ErrUnsupportedFormat = errors.New("imaging: unsupported image format")
)

const (
	// DefaultMaxKB is the encoded size above which payloads are recompressed.
	DefaultMaxKB = 500
	// MaxDimension is the largest side kept before resampling.
	MaxDimension = 4096
	// FitRatio is the share of the viewport a placed image may cover.
	FitRatio = 0.8
)

// Decoder turns typed clipboard or file payloads into image scene objects.
type Decoder struct {
	maxBytes int
}

// NewDecoder creates a decoder that recompresses payloads above maxKB.
func NewDecoder(maxKB int) *Decoder {
	if maxKB <= 0 {
		maxKB = DefaultMaxKB
	}
	return &Decoder{maxBytes: maxKB * 1024}
}

// IsImageMIME reports whether mime names an image type. An empty type is
// treated as unknown and left to content sniffing.
func IsImageMIME(mime string) bool {
	return mime == "" || strings.HasPrefix(strings.ToLower(mime), "image/")
}

// Decode builds an unplaced image object at the origin with its natural size.
func (d *Decoder) Decode(item domain.ClipboardItem) (domain.Object, error) {
	if !IsImageMIME(item.MIME) {
		return domain.Object{}, fmt.Errorf("decode %q: %w", item.MIME, ErrNotImage)
	}
	if len(item.Data) == 0 {
		return domain.Object{}, fmt.Errorf("decode empty payload: %w", ErrNotImage)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(item.Data))
	if err != nil {
		return domain.Object{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	data, mime := item.Data, "image/"+format
	width, height := cfg.Width, cfg.Height
	if len(data) > d.maxBytes || width > MaxDimension || height > MaxDimension {
		out, w, h, err := Compress(data, d.maxBytes)
		if err != nil {
			return domain.Object{}, fmt.Errorf("compress image: %w", err)
		}
		data, mime, width, height = out, "image/jpeg", w, h
	}

	return domain.Object{
		ID:         uuid.New().String(),
		Kind:       domain.KindImage,
		Width:      float64(width),
		Height:     float64(height),
		ScaleX:     1,
		ScaleY:     1,
		Src:        DataURL(mime, data),
		Opacity:    1,
		Selectable: true,
		Evented:    true,
	}, nil
}

// DataURL encodes data as a base64 data URL.
func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL decodes a base64 data URL back into a typed payload.
func ParseDataURL(s string) (domain.ClipboardItem, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return domain.ClipboardItem{}, fmt.Errorf("parse data url: %w", ErrNotImage)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return domain.ClipboardItem{}, fmt.Errorf("parse data url: missing payload")
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return domain.ClipboardItem{}, fmt.Errorf("parse data url: only base64 payloads are supported")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return domain.ClipboardItem{}, fmt.Errorf("parse data url: %w", err)
	}
	return domain.ClipboardItem{MIME: mime, Data: data}, nil
}

// FitScale returns the uniform scale that fits w×h inside FitRatio of the
// viewport, never enlarging.
func FitScale(w, h, viewportW, viewportH float64) float64 {
	maxW, maxH := viewportW*FitRatio, viewportH*FitRatio
	if w <= 0 || h <= 0 || (w <= maxW && h <= maxH) {
		return 1
	}
	return math.Min(maxW/w, maxH/h)
}

// Place scales obj to fit the viewport and centers it on center.
func Place(obj *domain.Object, center domain.Point, viewportW, viewportH float64) {
	s := FitScale(obj.Width, obj.Height, viewportW, viewportH)
	obj.ScaleX, obj.ScaleY = s, s
	b := obj.Bounds()
	obj.MoveTo(domain.Pt(center.X-b.Width/2, center.Y-b.Height/2))
}

// Compress re-encodes an image as JPEG, resampling oversized images first,
// stepping quality down from 80 by 10 until the result is at most maxBytes.
// The last attempt is returned even if it is still over the limit.
func Compress(data []byte, maxBytes int) ([]byte, int, int, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > MaxDimension || h > MaxDimension {
		s := math.Min(float64(MaxDimension)/float64(w), float64(MaxDimension)/float64(h))
		w = max(1, int(float64(w)*s))
		h = max(1, int(float64(h)*s))
	}

	// JPEG has no alpha, so flatten onto white.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var out []byte
	for quality := 80; quality >= 10; quality -= 10 {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
			return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
		}
		out = buf.Bytes()
		if len(out) <= maxBytes {
			break
		}
	}
	return out, w, h, nil
}
