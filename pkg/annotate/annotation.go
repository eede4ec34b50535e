package annotate

import (
	"fmt"
	"math"
	"strings"

	"github.com/novvoo/go-pdfdesk/pkg/pdf"
)

// Kind tags an annotation. The string values are used by the annotation
// file format and the command line.
type Kind string

const (
	KindHighlight     Kind = "highlight"
	KindUnderline     Kind = "underline"
	KindStrikethrough Kind = "strikethrough"
	KindFreeform      Kind = "freeform"
	KindArrow         Kind = "arrow"
	KindRectangle     Kind = "rectangle"
	KindCircle        Kind = "circle"
	KindText          Kind = "text"
	KindNote          Kind = "note"
	KindVideo         Kind = "video"
	KindAudio         Kind = "audio"
	KindLink          Kind = "link"
)

// Kinds lists every annotation kind.
var Kinds = []Kind{
	KindHighlight, KindUnderline, KindStrikethrough, KindFreeform, KindArrow,
	KindRectangle, KindCircle, KindText, KindNote, KindVideo, KindAudio, KindLink,
}

// ParseKind converts a kind name, ignoring case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown annotation kind %q", ErrInvalidInput, s)
}

// IsExtent reports whether annotations of this kind are boxes dragged out
// with the pointer.
func (k Kind) IsExtent() bool {
	switch k {
	case KindHighlight, KindUnderline, KindStrikethrough, KindRectangle, KindCircle:
		return true
	}
	return false
}

// IsLabel reports whether the kind carries prompted text.
func (k Kind) IsLabel() bool {
	return k == KindText || k == KindNote
}

// IsMedia reports whether the kind is a clickable media link.
func (k Kind) IsMedia() bool {
	return k == KindVideo || k == KindAudio || k == KindLink
}

// Base holds the fields every annotation carries.
type Base struct {
	Kind     Kind
	Page     int
	Color    Color
	Viewport Viewport
}

// Common returns the shared fields.
func (b Base) Common() Base {
	return b
}

// finite reports whether none of vs is NaN or infinite.
func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (b Base) validate() error {
	if b.Page < 1 {
		return fmt.Errorf("%w: page %d", ErrInvalidInput, b.Page)
	}
	if !b.Viewport.Valid() {
		return fmt.Errorf("%w: viewport %vx%v", ErrInvalidInput, b.Viewport.Width, b.Viewport.Height)
	}
	return nil
}

// Annotation is one of Extent, Arrow, Stroke, Label or MediaLink. The set is
// closed: the unexported methods keep other packages from adding variants.
type Annotation interface {
	Common() Base

	// Hit reports whether the viewport point p selects the annotation for
	// erasing.
	Hit(p Point) bool

	validate() error
	drawOverlay(c *pdf.Canvas)
	commit(w PageWriter, env *commitEnv) error
}

// Extent is a box dragged out with the pointer: highlight, underline,
// strikethrough, rectangle or circle.
type Extent struct {
	Base
	X, Y          float64
	Width, Height float64
	LineWidth     float64
}

func (e Extent) validate() error {
	if !e.Kind.IsExtent() {
		return fmt.Errorf("%w: kind %q is not a box", ErrInvalidInput, e.Kind)
	}
	if !finite(e.X, e.Y, e.Width, e.Height, e.LineWidth) {
		return fmt.Errorf("%w: non-finite %s coordinates", ErrInvalidInput, e.Kind)
	}
	if e.Width < 0 || e.Height < 0 || e.LineWidth < 0 {
		return fmt.Errorf("%w: negative %s size", ErrInvalidInput, e.Kind)
	}
	return e.Base.validate()
}

// Arrow is a straight arrow from (X1, Y1) to the head at (X2, Y2).
type Arrow struct {
	Base
	X1, Y1    float64
	X2, Y2    float64
	LineWidth float64
}

func (a Arrow) validate() error {
	if a.Kind != KindArrow {
		return fmt.Errorf("%w: kind %q is not an arrow", ErrInvalidInput, a.Kind)
	}
	if !finite(a.X1, a.Y1, a.X2, a.Y2, a.LineWidth) {
		return fmt.Errorf("%w: non-finite arrow coordinates", ErrInvalidInput)
	}
	if a.LineWidth < 0 {
		return fmt.Errorf("%w: negative line width", ErrInvalidInput)
	}
	return a.Base.validate()
}

// Stroke is a freeform polyline.
type Stroke struct {
	Base
	Points    []Point
	LineWidth float64
}

func (s Stroke) validate() error {
	if s.Kind != KindFreeform {
		return fmt.Errorf("%w: kind %q is not a stroke", ErrInvalidInput, s.Kind)
	}
	if len(s.Points) == 0 {
		return fmt.Errorf("%w: stroke without points", ErrInvalidInput)
	}
	for _, p := range s.Points {
		if !finite(p.X, p.Y) {
			return fmt.Errorf("%w: non-finite stroke point", ErrInvalidInput)
		}
	}
	if !finite(s.LineWidth) || s.LineWidth < 0 {
		return fmt.Errorf("%w: bad line width", ErrInvalidInput)
	}
	return s.Base.validate()
}

// Label is a text or note anchored at its baseline origin (X, Y).
type Label struct {
	Base
	X, Y     float64
	Text     string
	Font     string
	FontSize float64
}

func (l Label) validate() error {
	if !l.Kind.IsLabel() {
		return fmt.Errorf("%w: kind %q is not a label", ErrInvalidInput, l.Kind)
	}
	if l.Text == "" {
		return fmt.Errorf("%w: empty %s", ErrInvalidInput, l.Kind)
	}
	if !finite(l.X, l.Y, l.FontSize) {
		return fmt.Errorf("%w: non-finite %s anchor", ErrInvalidInput, l.Kind)
	}
	if l.FontSize < 0 {
		return fmt.Errorf("%w: negative font size", ErrInvalidInput)
	}
	return l.Base.validate()
}

// MediaLink is a clickable box pointing at a video, audio file or web page.
type MediaLink struct {
	Base
	X, Y          float64
	Width, Height float64
	URL           string
}

func (m MediaLink) validate() error {
	if !m.Kind.IsMedia() {
		return fmt.Errorf("%w: kind %q is not a media link", ErrInvalidInput, m.Kind)
	}
	if m.URL == "" {
		return fmt.Errorf("%w: %s without URL", ErrInvalidInput, m.Kind)
	}
	if !finite(m.X, m.Y, m.Width, m.Height) {
		return fmt.Errorf("%w: non-finite %s box", ErrInvalidInput, m.Kind)
	}
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: empty %s box", ErrInvalidInput, m.Kind)
	}
	return m.Base.validate()
}

// mediaSize returns the box placed around a click for a media kind.
func mediaSize(k Kind) (w, h float64) {
	if k == KindVideo {
		return 120, 90
	}
	return 60, 60
}

// mediaColor is the colour stored on new media annotations.
func mediaColor(k Kind) Color {
	if k == KindLink {
		return ColorBlue
	}
	return ColorRed
}

// Validate checks an annotation's fields. It does not check the page
// against a document.
func Validate(a Annotation) error {
	return a.validate()
}

// OnPage returns the annotations on page n in collection order.
func OnPage(anns []Annotation, n int) []Annotation {
	var out []Annotation
	for _, a := range anns {
		if a.Common().Page == n {
			out = append(out, a)
		}
	}
	return out
}
