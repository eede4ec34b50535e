package annotate

import (
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"slices"
	"strings"

	"github.com/novvoo/go-pdfdesk/pkg/pdf"
)

// PageSource renders the pages of the loaded document.
type PageSource interface {
	NumPages() int
	PageSize(n int) (width, height float64, err error)
	PageRotation(n int) (int, error)
	RenderImage(n int, scale float64) (*image.RGBA, error)
}

// Options configures a Session.
type Options struct {
	// Config supplies the render scale and the initial style. Nil means
	// NewDefaultConfig.
	Config *Config
	Input  InputProvider
	Logger *slog.Logger

	// OnRedraw is called whenever the overlay needs repainting.
	OnRedraw func()
}

// Session is the editing state of one open document: the annotation
// collection, the current page and tool, the drawing style and the
// in-progress gesture. It is not safe for concurrent use.
type Session struct {
	source   PageSource
	data     []byte
	password string

	page  int
	scale float64
	tool  Tool
	style Style
	state State

	annotations []Annotation

	input    InputProvider
	logger   *slog.Logger
	onRedraw func()
}

// NewSession creates a session with no document loaded.
func NewSession(opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	style, err := cfg.Style()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		scale:    cfg.Scale,
		tool:     ToolCursor,
		style:    style,
		state:    Idle{},
		input:    opts.Input,
		logger:   logger,
		onRedraw: opts.OnRedraw,
	}, nil
}

// Open loads a PDF from memory. The bytes are kept for Export.
func (s *Session) Open(data []byte, password string) error {
	doc, err := pdf.Load(data, password)
	if err != nil {
		return err
	}
	s.Load(pdf.NewPageRenderer(doc))
	s.data = data
	s.password = password
	return nil
}

// Load replaces the document. The collection is cleared and the current
// page resets to 1.
func (s *Session) Load(src PageSource) {
	s.source = src
	s.data = nil
	s.password = ""
	s.annotations = nil
	s.page = 1
	s.state = Idle{}
	s.logger.Debug("document loaded", "pages", src.NumPages())
	s.redraw()
}

func (s *Session) loaded() error {
	if s.source == nil {
		return fmt.Errorf("%w: no document loaded", ErrInvalidInput)
	}
	return nil
}

// NumPages returns the page count of the loaded document, or 0.
func (s *Session) NumPages() int {
	if s.source == nil {
		return 0
	}
	return s.source.NumPages()
}

// Page returns the current page number.
func (s *Session) Page() int {
	return s.page
}

// SetPage moves to page n, clamped to [1, NumPages]. Any gesture in
// progress is abandoned.
func (s *Session) SetPage(n int) int {
	total := s.NumPages()
	if total == 0 {
		return s.page
	}
	n = max(1, min(n, total))
	if n != s.page {
		s.page = n
		s.state = Idle{}
		s.redraw()
	}
	return s.page
}

// NextPage moves forward one page if there is one.
func (s *Session) NextPage() int {
	return s.SetPage(s.page + 1)
}

// PrevPage moves back one page if there is one.
func (s *Session) PrevPage() int {
	return s.SetPage(s.page - 1)
}

// Scale returns the render scale in pixels per point.
func (s *Session) Scale() float64 {
	return s.scale
}

// SetScale changes the render scale. Existing annotations keep the
// viewport they were drawn on.
func (s *Session) SetScale(scale float64) error {
	if scale <= 0 {
		return fmt.Errorf("%w: scale %v", ErrInvalidInput, scale)
	}
	s.scale = scale
	s.redraw()
	return nil
}

// Tool returns the active tool.
func (s *Session) Tool() Tool {
	return s.tool
}

// SetTool changes the active tool and abandons any gesture in progress.
func (s *Session) SetTool(t Tool) {
	s.tool = t
	s.state = Idle{}
}

// Style returns the style applied to new annotations.
func (s *Session) Style() Style {
	return s.style
}

func (s *Session) SetColor(c Color) {
	s.style.Color = c
}

func (s *Session) SetFont(name string) {
	s.style.Font = name
}

func (s *Session) SetFontSize(size float64) error {
	if size <= 0 {
		return fmt.Errorf("%w: font size %v", ErrInvalidInput, size)
	}
	s.style.FontSize = size
	return nil
}

func (s *Session) SetLineWidth(w float64) error {
	if w <= 0 {
		return fmt.Errorf("%w: line width %v", ErrInvalidInput, w)
	}
	s.style.LineWidth = w
	return nil
}

// State returns the capture state.
func (s *Session) State() State {
	return s.state
}

// Viewport returns the pixel size of the current page at the current scale.
func (s *Session) Viewport() (Viewport, error) {
	if err := s.loaded(); err != nil {
		return Viewport{}, err
	}
	w, h, err := s.source.PageSize(s.page)
	if err != nil {
		return Viewport{}, err
	}
	rot, err := s.source.PageRotation(s.page)
	if err != nil {
		return Viewport{}, err
	}
	vw, vh := ViewportSize(w, h, rot, s.scale)
	return Viewport{Width: float64(vw), Height: float64(vh)}, nil
}

// PointerDown feeds a pointer-down at viewport position (x, y).
func (s *Session) PointerDown(x, y float64) error {
	return s.dispatch(Event{Type: PointerDown, Point: Point{X: x, Y: y}})
}

// PointerMove feeds a pointer move.
func (s *Session) PointerMove(x, y float64) error {
	return s.dispatch(Event{Type: PointerMove, Point: Point{X: x, Y: y}})
}

// PointerUp feeds a pointer-up.
func (s *Session) PointerUp(x, y float64) error {
	return s.dispatch(Event{Type: PointerUp, Point: Point{X: x, Y: y}})
}

func (s *Session) env() (Env, error) {
	v, err := s.Viewport()
	if err != nil {
		return Env{}, err
	}
	return Env{
		Tool:        s.tool,
		Page:        s.page,
		Viewport:    v,
		Style:       s.style,
		Annotations: s.annotations,
		Input:       loggingInput{in: s.input, logger: s.logger},
	}, nil
}

func (s *Session) dispatch(ev Event) error {
	env, err := s.env()
	if err != nil {
		return err
	}

	prev := s.state
	next, effects := HandleEvent(prev, ev, env)
	s.state = next

	added := false
	for _, e := range effects {
		switch e := e.(type) {
		case Add:
			s.annotations = append(s.annotations, e.Annotation)
			added = true
			s.logger.Debug("annotation added", "kind", e.Annotation.Common().Kind, "page", s.page, "count", len(s.annotations))
		case Remove:
			removed := s.annotations[e.Index]
			s.annotations = slices.Delete(s.annotations, e.Index, e.Index+1)
			s.logger.Debug("annotation erased", "kind", removed.Common().Kind, "index", e.Index)
		case SwitchTool:
			s.tool = e.Tool
		case Redraw:
			s.redraw()
		}
	}

	if _, dragging := prev.(DraggingExtent); dragging && ev.Type == PointerUp && !added {
		s.logger.Debug("gesture discarded", "tool", s.tool, "page", s.page)
	}
	return nil
}

func (s *Session) redraw() {
	if s.onRedraw != nil {
		s.onRedraw()
	}
}

// loggingInput reports cancelled or empty prompts at debug level.
type loggingInput struct {
	in     InputProvider
	logger *slog.Logger
}

func (l loggingInput) RequestText(p Prompt) (string, bool) {
	if l.in == nil {
		l.logger.Debug("no input provider", "kind", p.Kind)
		return "", false
	}
	text, ok := l.in.RequestText(p)
	if !ok || strings.TrimSpace(text) == "" {
		l.logger.Debug("prompt cancelled", "kind", p.Kind, "error", ErrInvalidInput)
	}
	return text, ok
}

// Annotations returns a copy of the collection.
func (s *Session) Annotations() []Annotation {
	return slices.Clone(s.annotations)
}

// SetAnnotations replaces the collection, for instance with the contents of
// an annotation file. Every annotation must be valid and on an existing page.
func (s *Session) SetAnnotations(anns []Annotation) error {
	if err := s.loaded(); err != nil {
		return err
	}
	total := s.NumPages()
	for i, a := range anns {
		if err := a.validate(); err != nil {
			return fmt.Errorf("annotation %d: %w", i, err)
		}
		if p := a.Common().Page; p > total {
			return fmt.Errorf("annotation %d: %w: page %d of %d", i, ErrPageOutOfRange, p, total)
		}
	}
	s.annotations = slices.Clone(anns)
	s.redraw()
	return nil
}

// Undo removes the most recent annotation on the current page. It reports
// whether anything was removed.
func (s *Session) Undo() bool {
	for i := len(s.annotations) - 1; i >= 0; i-- {
		if s.annotations[i].Common().Page == s.page {
			s.annotations = slices.Delete(s.annotations, i, i+1)
			s.redraw()
			return true
		}
	}
	return false
}

// ClearPage removes every annotation on the current page and returns how
// many were removed.
func (s *Session) ClearPage() int {
	before := len(s.annotations)
	s.annotations = slices.DeleteFunc(slices.Clone(s.annotations), func(a Annotation) bool {
		return a.Common().Page == s.page
	})
	n := before - len(s.annotations)
	if n > 0 {
		s.redraw()
	}
	return n
}

// RenderOverlay draws the current page's annotations and the gesture in
// progress into dst.
func (s *Session) RenderOverlay(dst *image.RGBA) error {
	RenderOverlay(dst, s.annotations, s.page)
	env, err := s.env()
	if err != nil {
		return err
	}
	if ann, ok := Preview(s.state, env); ok {
		drawAnnotation(pdf.NewCanvasFor(dst), ann)
	}
	return nil
}

// Render returns the current page raster with the overlay composited on
// top.
func (s *Session) Render() (*image.RGBA, error) {
	if err := s.loaded(); err != nil {
		return nil, err
	}
	img, err := s.source.RenderImage(s.page, s.scale)
	if err != nil {
		return nil, err
	}
	overlay := image.NewRGBA(img.Bounds())
	if err := s.RenderOverlay(overlay); err != nil {
		return nil, err
	}
	draw.Draw(img, img.Bounds(), overlay, img.Bounds().Min, draw.Over)
	return img, nil
}

// Export commits the collection onto a copy of the loaded document.
func (s *Session) Export() ([]byte, error) {
	if s.data == nil {
		return nil, fmt.Errorf("%w: no source document to export", ErrInvalidInput)
	}
	return Export(s.data, s.annotations, ExportOptions{Password: s.password, Logger: s.logger})
}
