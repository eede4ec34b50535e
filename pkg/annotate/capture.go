package annotate

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Tool is the active pointer tool. Every annotation kind is also a tool.
type Tool string

const (
	ToolCursor Tool = "cursor"
	ToolEraser Tool = "eraser"
)

// ParseTool converts a tool name, ignoring case.
func ParseTool(s string) (Tool, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch Tool(name) {
	case ToolCursor, ToolEraser:
		return Tool(name), nil
	}
	k, err := ParseKind(name)
	if err != nil {
		return "", fmt.Errorf("%w: unknown tool %q", ErrInvalidInput, s)
	}
	return Tool(k), nil
}

// Kind returns the annotation kind the tool creates, if any.
func (t Tool) Kind() (Kind, bool) {
	k := Kind(t)
	for _, known := range Kinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// Style is the drawing style applied to new annotations.
type Style struct {
	Color     Color
	Font      string
	FontSize  float64
	LineWidth float64
}

// Prompt asks the user for the text of a label or the URL of a media link.
type Prompt struct {
	Kind    Kind
	Message string
}

// InputProvider answers prompts. ok is false when the user cancelled.
type InputProvider interface {
	RequestText(p Prompt) (text string, ok bool)
}

// InputFunc adapts a function to InputProvider.
type InputFunc func(p Prompt) (string, bool)

func (f InputFunc) RequestText(p Prompt) (string, bool) {
	return f(p)
}

var promptMessages = map[Kind]string{
	KindText:  "Enter text:",
	KindNote:  "Enter note:",
	KindVideo: "Enter video URL:",
	KindAudio: "Enter audio file URL:",
	KindLink:  "Enter web link:",
}

// EventType distinguishes pointer events.
type EventType int

const (
	PointerDown EventType = iota
	PointerMove
	PointerUp
)

func (t EventType) String() string {
	switch t {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Event is a pointer event in viewport pixels.
type Event struct {
	Type EventType
	Point
}

// State is the capture state: Idle, DraggingExtent or DraggingStroke.
type State interface {
	captureState()
}

// Idle waits for a pointer-down.
type Idle struct{}

// DraggingExtent tracks a box or arrow drag from Start to Current.
type DraggingExtent struct {
	Tool    Tool
	Start   Point
	Current Point
}

// DraggingStroke collects the points of a freeform stroke.
type DraggingStroke struct {
	Points []Point
}

func (Idle) captureState()           {}
func (DraggingExtent) captureState() {}
func (DraggingStroke) captureState() {}

// Effect is an instruction for the owner of the annotation collection.
type Effect interface {
	effect()
}

// Add appends an annotation to the collection.
type Add struct {
	Annotation Annotation
}

// Remove deletes the annotation at Index in the collection.
type Remove struct {
	Index int
}

// SwitchTool changes the active tool.
type SwitchTool struct {
	Tool Tool
}

// Redraw asks for the overlay to be repainted.
type Redraw struct{}

func (Add) effect()        {}
func (Remove) effect()     {}
func (SwitchTool) effect() {}
func (Redraw) effect()     {}

// Env is everything HandleEvent reads besides the state and the event.
type Env struct {
	Tool     Tool
	Page     int
	Viewport Viewport
	Style    Style

	// Annotations is the whole collection; Remove indexes into it.
	Annotations []Annotation

	Input InputProvider
}

func (env Env) base(k Kind, c Color) Base {
	return Base{Kind: k, Page: env.Page, Color: c, Viewport: env.Viewport}
}

// minExtent is the size at or below which a dragged box counts as a click.
const minExtent = 2

// HandleEvent advances the capture state machine. It has no side effects
// other than calling env.Input; changes to the collection come back as
// effects. Events that do not apply to the state are ignored.
func HandleEvent(state State, ev Event, env Env) (State, []Effect) {
	switch s := state.(type) {
	case DraggingExtent:
		switch ev.Type {
		case PointerMove:
			s.Current = ev.Point
			return s, []Effect{Redraw{}}
		case PointerUp:
			s.Current = ev.Point
			ann := extentAnnotation(s, env)
			if ann == nil || discarded(ann) {
				return Idle{}, []Effect{Redraw{}}
			}
			return Idle{}, []Effect{Add{Annotation: ann}, Redraw{}}
		}
		return s, nil

	case DraggingStroke:
		switch ev.Type {
		case PointerMove:
			s.Points = append(slices.Clip(s.Points), ev.Point)
			return s, []Effect{Redraw{}}
		case PointerUp:
			return Idle{}, []Effect{Add{Annotation: strokeAnnotation(s, env)}, Redraw{}}
		}
		return s, nil
	}

	if ev.Type != PointerDown {
		return Idle{}, nil
	}
	return pointerDown(ev.Point, env)
}

func pointerDown(p Point, env Env) (State, []Effect) {
	if env.Tool == ToolEraser {
		i := HitIndex(env.Annotations, env.Page, p)
		if i < 0 {
			return Idle{}, nil
		}
		return Idle{}, []Effect{Remove{Index: i}, Redraw{}}
	}

	kind, ok := env.Tool.Kind()
	if !ok {
		return Idle{}, nil
	}

	switch {
	case kind.IsExtent(), kind == KindArrow:
		return DraggingExtent{Tool: env.Tool, Start: p, Current: p}, nil

	case kind == KindFreeform:
		return DraggingStroke{Points: []Point{p}}, nil

	case kind.IsLabel():
		text, ok := request(env.Input, kind)
		if !ok {
			return Idle{}, nil
		}
		font := env.Style.Font
		if kind == KindNote {
			font = defaultFont
		}
		ann := Label{
			Base:     env.base(kind, env.Style.Color),
			X:        p.X,
			Y:        p.Y,
			Text:     text,
			Font:     font,
			FontSize: env.Style.FontSize,
		}
		return Idle{}, []Effect{Add{Annotation: ann}, Redraw{}}

	case kind.IsMedia():
		url, ok := request(env.Input, kind)
		if !ok {
			return Idle{}, nil
		}
		w, h := mediaSize(kind)
		ann := MediaLink{
			Base:   env.base(kind, mediaColor(kind)),
			X:      p.X - w/2,
			Y:      p.Y - h/2,
			Width:  w,
			Height: h,
			URL:    url,
		}
		return Idle{}, []Effect{Add{Annotation: ann}, SwitchTool{Tool: ToolCursor}, Redraw{}}
	}
	return Idle{}, nil
}

// request asks for text; an empty or cancelled answer is not ok.
func request(in InputProvider, k Kind) (string, bool) {
	if in == nil {
		return "", false
	}
	text, ok := in.RequestText(Prompt{Kind: k, Message: promptMessages[k]})
	if !ok || strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// extentAnnotation builds the annotation a box or arrow drag describes.
func extentAnnotation(s DraggingExtent, env Env) Annotation {
	kind, ok := s.Tool.Kind()
	if !ok {
		return nil
	}
	base := env.base(kind, env.Style.Color)
	if kind == KindArrow {
		return Arrow{
			Base:      base,
			X1:        s.Start.X,
			Y1:        s.Start.Y,
			X2:        s.Current.X,
			Y2:        s.Current.Y,
			LineWidth: env.Style.LineWidth,
		}
	}
	return Extent{
		Base:      base,
		X:         math.Min(s.Start.X, s.Current.X),
		Y:         math.Min(s.Start.Y, s.Current.Y),
		Width:     math.Abs(s.Current.X - s.Start.X),
		Height:    math.Abs(s.Current.Y - s.Start.Y),
		LineWidth: env.Style.LineWidth,
	}
}

func strokeAnnotation(s DraggingStroke, env Env) Annotation {
	return Stroke{
		Base:      env.base(KindFreeform, env.Style.Color),
		Points:    slices.Clone(s.Points),
		LineWidth: env.Style.LineWidth,
	}
}

// discarded reports whether a finished box is too small to keep. Arrows
// are always kept.
func discarded(a Annotation) bool {
	e, ok := a.(Extent)
	return ok && e.Width <= minExtent && e.Height <= minExtent
}

// Preview returns the annotation an in-progress gesture would produce, for
// drawing while the pointer is still down.
func Preview(state State, env Env) (Annotation, bool) {
	switch s := state.(type) {
	case DraggingExtent:
		ann := extentAnnotation(s, env)
		return ann, ann != nil
	case DraggingStroke:
		return strokeAnnotation(s, env), true
	}
	return nil, false
}
