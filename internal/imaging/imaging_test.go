package imaging_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"strings"
	"testing"

	"whiteboard/internal/domain"
	"whiteboard/internal/imaging"
)

func pngBytes(t *testing.T, w, h int, noisy bool) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	r := rand.New(rand.NewSource(1))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 200, G: 100, B: 50, A: 255}
			if noisy {
				c = color.NRGBA{R: uint8(r.Intn(256)), G: uint8(r.Intn(256)), B: uint8(r.Intn(256)), A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDecode_NaturalSize(t *testing.T) {
	d := imaging.NewDecoder(imaging.DefaultMaxKB)
	obj, err := d.Decode(domain.ClipboardItem{MIME: "image/png", Data: pngBytes(t, 40, 30, false)})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if obj.Kind != domain.KindImage || obj.Width != 40 || obj.Height != 30 {
		t.Errorf("expected 40x30 image, got %s %vx%v", obj.Kind, obj.Width, obj.Height)
	}
	if !strings.HasPrefix(obj.Src, "data:image/png;base64,") {
		t.Errorf("expected png data url, got %.30s", obj.Src)
	}
	if obj.ID == "" || !obj.Selectable || !obj.Evented {
		t.Errorf("expected interactive object with id, got %+v", obj)
	}
}

func TestDecode_Rejects(t *testing.T) {
	d := imaging.NewDecoder(0)

	_, err := d.Decode(domain.ClipboardItem{MIME: "text/plain", Data: []byte("hello")})
	if !errors.Is(err, imaging.ErrNotImage) {
		t.Errorf("expected ErrNotImage, got %v", err)
	}
	_, err = d.Decode(domain.ClipboardItem{MIME: "image/png", Data: []byte("not a png")})
	if !errors.Is(err, imaging.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	_, err = d.Decode(domain.ClipboardItem{MIME: "image/png"})
	if !errors.Is(err, imaging.ErrNotImage) {
		t.Errorf("expected ErrNotImage for empty payload, got %v", err)
	}
}

func TestDecode_CompressesLargePayload(t *testing.T) {
	d := imaging.NewDecoder(1)
	data := pngBytes(t, 64, 64, true)
	if len(data) <= 1024 {
		t.Fatalf("test payload too small: %d bytes", len(data))
	}
	obj, err := d.Decode(domain.ClipboardItem{MIME: "image/png", Data: data})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !strings.HasPrefix(obj.Src, "data:image/jpeg;base64,") {
		t.Errorf("expected recompressed jpeg, got %.30s", obj.Src)
	}
	if obj.Width != 64 || obj.Height != 64 {
		t.Errorf("expected size preserved, got %vx%v", obj.Width, obj.Height)
	}
}

func TestDataURL_RoundTrip(t *testing.T) {
	data := pngBytes(t, 2, 2, false)
	item, err := imaging.ParseDataURL(imaging.DataURL("image/png", data))
	if err != nil {
		t.Fatalf("ParseDataURL: %v", err)
	}
	if item.MIME != "image/png" || !bytes.Equal(item.Data, data) {
		t.Errorf("round trip mismatch: %s %d bytes", item.MIME, len(item.Data))
	}
	if _, err := imaging.ParseDataURL("https://example.com/a.png"); err == nil {
		t.Error("expected error for non-data url")
	}
}

func TestFitScale(t *testing.T) {
	if s := imaging.FitScale(100, 100, 800, 600); s != 1 {
		t.Errorf("expected small image unscaled, got %v", s)
	}
	// 80% of 800x600 is 640x480; 1280x480 must halve.
	if s := imaging.FitScale(1280, 480, 800, 600); s != 0.5 {
		t.Errorf("expected 0.5, got %v", s)
	}
	if s := imaging.FitScale(100, 960, 800, 600); s != 0.5 {
		t.Errorf("expected height-bound 0.5, got %v", s)
	}
}

func TestPlace_CentersScaledImage(t *testing.T) {
	obj := domain.Object{Kind: domain.KindImage, Width: 1280, Height: 480, ScaleX: 1, ScaleY: 1}
	imaging.Place(&obj, domain.Pt(500, 500), 800, 600)

	b := obj.Bounds()
	if b.Width != 640 || b.Height != 240 {
		t.Fatalf("expected 640x240, got %vx%v", b.Width, b.Height)
	}
	if c := b.Center(); c.X != 500 || c.Y != 500 {
		t.Errorf("expected centered at (500,500), got %v", c)
	}
}
