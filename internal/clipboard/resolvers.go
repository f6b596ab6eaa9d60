package clipboard

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"

	"whiteboard/internal/domain"
	"whiteboard/internal/imaging"
)

// Source names where a paste candidate came from.
type Source string

const (
	SourceInternal    Source = "internal"
	SourceEventImage  Source = "clipboard-image"
	SourceSystemImage Source = "system-image"
)

const signaturePrefixLen = 100

// Candidate is a placed, ready-to-insert paste result.
type Candidate struct {
	Source    Source
	Signature string
	Objects   []domain.Object
}

// Result is the tagged outcome of one resolver: Found carries a candidate,
// the zero value is NotFound.
type Result struct {
	Found     bool
	Candidate Candidate
}

// NotFound is the empty resolver result.
var NotFound = Result{}

// Found wraps a candidate.
func Found(c Candidate) Result { return Result{Found: true, Candidate: c} }

// Input is the per-gesture context shared by all resolvers.
type Input struct {
	Event  *domain.PasteEvent
	Record *Record
	// At is the document-space placement point of a context-menu paste.
	At *domain.Point
	// Center is the document-space viewport center.
	Center         domain.Point
	ViewportWidth  float64
	ViewportHeight float64
	Offset         float64
}

// Resolver produces at most one paste candidate.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, in Input) (Result, error)
}

// ── Internal marker ─────────────────────────────────────

// MarkerResolver recovers the in-process record when the clipboard text
// carries its marker. Without a readable platform clipboard it trusts the
// record alone.
type MarkerResolver struct {
	Platform Platform
}

func (r MarkerResolver) Name() string { return "marker" }

func (r MarkerResolver) Resolve(ctx context.Context, in Input) (Result, error) {
	rec := in.Record
	if rec == nil || len(rec.Objects) == 0 {
		return NotFound, nil
	}

	text, readable, err := r.text(ctx, in.Event)
	if err != nil {
		return NotFound, err
	}
	// A record whose marker never reached the system clipboard cannot be
	// matched, so it is trusted as-is.
	if readable && rec.MarkerWritten {
		ts, ok := ParseMarker(text)
		if !ok || ts != rec.Timestamp {
			// Something else was copied since; it wins over the record.
			return NotFound, nil
		}
	}

	clones := make([]domain.Object, len(rec.Objects))
	for i, o := range rec.Objects {
		clones[i] = Clone(o)
	}
	if in.At != nil {
		moveGroupTo(clones, *in.At)
	} else {
		for i := range clones {
			clones[i].Translate(in.Offset, in.Offset)
		}
	}
	return Found(Candidate{
		Source:    SourceInternal,
		Signature: "internal:" + strconv.FormatInt(rec.Timestamp, 10),
		Objects:   clones,
	}), nil
}

func (r MarkerResolver) text(ctx context.Context, ev *domain.PasteEvent) (string, bool, error) {
	if ev != nil && ev.HasText {
		return ev.Text, true, nil
	}
	if r.Platform == nil {
		return "", false, nil
	}
	text, err := r.Platform.ReadText(ctx)
	switch {
	case err == nil:
		return text, true, nil
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrPermission), errors.Is(err, ErrEmpty):
		return "", false, nil
	case ctx.Err() != nil:
		return "", false, ctx.Err()
	}
	// Unreadable text degrades to internal-only behavior.
	return "", false, nil
}

// ── Event-carried image ─────────────────────────────────

// EventImageResolver decodes the first image item of the paste event.
type EventImageResolver struct {
	Decoder Decoder
}

func (r EventImageResolver) Name() string { return "event-image" }

func (r EventImageResolver) Resolve(_ context.Context, in Input) (Result, error) {
	if in.Event == nil {
		return NotFound, nil
	}
	for _, item := range in.Event.Items {
		if item.MIME == "" || !imaging.IsImageMIME(item.MIME) {
			continue
		}
		obj, err := r.Decoder.Decode(item)
		if err != nil {
			return NotFound, err
		}
		return Found(placeImage(obj, SourceEventImage, in)), nil
	}
	return NotFound, nil
}

// ── System clipboard image ──────────────────────────────

// SystemImageResolver reads image content from the platform clipboard.
type SystemImageResolver struct {
	Platform Platform
	Decoder  Decoder
}

func (r SystemImageResolver) Name() string { return "system-image" }

func (r SystemImageResolver) Resolve(ctx context.Context, in Input) (Result, error) {
	if r.Platform == nil {
		return NotFound, nil
	}
	item, err := r.Platform.ReadImage(ctx)
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrEmpty) {
		return NotFound, nil
	}
	if err != nil {
		return NotFound, err
	}
	obj, err := r.Decoder.Decode(item)
	if err != nil {
		return NotFound, err
	}
	return Found(placeImage(obj, SourceSystemImage, in)), nil
}

// ── helpers ─────────────────────────────────────────────

func placeImage(obj domain.Object, src Source, in Input) Candidate {
	center := in.Center
	if in.At != nil {
		center = *in.At
	}
	imaging.Place(&obj, center, in.ViewportWidth, in.ViewportHeight)
	return Candidate{
		Source:    src,
		Signature: imageSignature(obj.Src),
		Objects:   []domain.Object{obj},
	}
}

// moveGroupTo translates objs so their union's top-left lands on p.
func moveGroupTo(objs []domain.Object, p domain.Point) {
	if len(objs) == 0 {
		return
	}
	union := objs[0].Bounds()
	for _, o := range objs[1:] {
		union = union.Union(o.Bounds())
	}
	dx, dy := p.X-union.Left, p.Y-union.Top
	for i := range objs {
		objs[i].Translate(dx, dy)
	}
}

// imageSignature is the first characters of the data URL plus a hash of the
// whole payload. It depends on the pixels only, so the same image read from
// the paste event and from the system clipboard compares equal.
func imageSignature(dataURL string) string {
	h := fnv.New64a()
	h.Write([]byte(dataURL))
	return "image:" + prefix(dataURL, signaturePrefixLen) + "#" + strconv.FormatUint(h.Sum64(), 16)
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
