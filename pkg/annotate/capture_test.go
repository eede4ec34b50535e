package annotate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStyle = Style{Color: ColorYellow, Font: "Times-Roman", FontSize: 14, LineWidth: 3}

func testEnv(tool Tool, anns ...Annotation) Env {
	return Env{Tool: tool, Page: 1, Viewport: testViewport, Style: testStyle, Annotations: anns}
}

func answer(text string, ok bool) InputProvider {
	return InputFunc(func(Prompt) (string, bool) { return text, ok })
}

// drag runs down, moves and up through the state machine and returns the
// effects of the final event.
func drag(t *testing.T, env Env, points ...Point) (State, []Effect) {
	t.Helper()
	require.NotEmpty(t, points)
	state, effects := HandleEvent(Idle{}, Event{Type: PointerDown, Point: points[0]}, env)
	for _, p := range points[1 : len(points)-1] {
		state, effects = HandleEvent(state, Event{Type: PointerMove, Point: p}, env)
	}
	if len(points) > 1 {
		state, effects = HandleEvent(state, Event{Type: PointerUp, Point: points[len(points)-1]}, env)
	}
	return state, effects
}

func added(effects []Effect) []Annotation {
	var out []Annotation
	for _, e := range effects {
		if a, ok := e.(Add); ok {
			out = append(out, a.Annotation)
		}
	}
	return out
}

func TestDragDiscardsTinyBoxes(t *testing.T) {
	tests := []struct {
		name string
		end  Point
		want int
	}{
		{"click", Point{10, 10}, 0},
		{"2x2", Point{12, 12}, 0},
		{"2x3", Point{12, 13}, 1},
		{"3x3", Point{13, 13}, 1},
		{"reverse 3x3", Point{7, 7}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, effects := drag(t, testEnv(Tool(KindRectangle)), Point{10, 10}, tt.end)
			assert.Equal(t, Idle{}, state)
			assert.Len(t, added(effects), tt.want)
		})
	}
}

func TestDragBuildsNormalisedExtent(t *testing.T) {
	_, effects := drag(t, testEnv(Tool(KindHighlight)), Point{40, 50}, Point{30, 35}, Point{10, 20})
	want := []Effect{
		Add{Annotation: Extent{
			Base:      Base{Kind: KindHighlight, Page: 1, Color: ColorYellow, Viewport: testViewport},
			X:         10,
			Y:         20,
			Width:     30,
			Height:    30,
			LineWidth: 3,
		}},
		Redraw{},
	}
	if diff := cmp.Diff(want, effects); diff != "" {
		t.Errorf("effects mismatch (-want +got):\n%s", diff)
	}
}

func TestArrowClickIsKept(t *testing.T) {
	_, effects := drag(t, testEnv(Tool(KindArrow)), Point{5, 5}, Point{5, 5})
	anns := added(effects)
	require.Len(t, anns, 1)
	assert.Equal(t, Arrow{Base: Base{Kind: KindArrow, Page: 1, Color: ColorYellow, Viewport: testViewport}, X1: 5, Y1: 5, X2: 5, Y2: 5, LineWidth: 3}, anns[0])
}

func TestFreeformCollectsMovePoints(t *testing.T) {
	env := testEnv(Tool(KindFreeform))
	state, _ := HandleEvent(Idle{}, Event{Type: PointerDown, Point: Point{1, 1}}, env)
	state, _ = HandleEvent(state, Event{Type: PointerMove, Point: Point{2, 2}}, env)
	before := state.(DraggingStroke)
	state, _ = HandleEvent(state, Event{Type: PointerMove, Point: Point{3, 3}}, env)
	assert.Len(t, before.Points, 2, "earlier state must not change")

	state, effects := HandleEvent(state, Event{Type: PointerUp, Point: Point{9, 9}}, env)
	assert.Equal(t, Idle{}, state)
	anns := added(effects)
	require.Len(t, anns, 1)
	assert.Equal(t, []Point{{1, 1}, {2, 2}, {3, 3}}, anns[0].(Stroke).Points)
}

func TestLabelPrompt(t *testing.T) {
	tests := []struct {
		name    string
		tool    Tool
		text    string
		ok      bool
		want    Annotation
		noInput bool
	}{
		{
			name: "text uses style font",
			tool: Tool(KindText),
			text: "hello",
			ok:   true,
			want: Label{Base: Base{Kind: KindText, Page: 1, Color: ColorYellow, Viewport: testViewport}, X: 20, Y: 30, Text: "hello", Font: "Times-Roman", FontSize: 14},
		},
		{
			name: "note uses Helvetica",
			tool: Tool(KindNote),
			text: "remember",
			ok:   true,
			want: Label{Base: Base{Kind: KindNote, Page: 1, Color: ColorYellow, Viewport: testViewport}, X: 20, Y: 30, Text: "remember", Font: "Helvetica", FontSize: 14},
		},
		{name: "cancelled", tool: Tool(KindText), text: "ignored", ok: false},
		{name: "empty", tool: Tool(KindNote), text: "", ok: true},
		{name: "blank", tool: Tool(KindText), text: "   ", ok: true},
		{name: "no provider", tool: Tool(KindText), noInput: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testEnv(tt.tool)
			if !tt.noInput {
				env.Input = answer(tt.text, tt.ok)
			}
			state, effects := HandleEvent(Idle{}, Event{Type: PointerDown, Point: Point{20, 30}}, env)
			assert.Equal(t, Idle{}, state)
			if tt.want == nil {
				assert.Empty(t, effects)
				return
			}
			if diff := cmp.Diff([]Effect{Add{Annotation: tt.want}, Redraw{}}, effects); diff != "" {
				t.Errorf("effects mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMediaInsert(t *testing.T) {
	var prompts []Prompt
	env := testEnv(Tool(KindVideo))
	env.Input = InputFunc(func(p Prompt) (string, bool) {
		prompts = append(prompts, p)
		return "https://example.com/v.mp4", true
	})

	_, effects := HandleEvent(Idle{}, Event{Type: PointerDown, Point: Point{200, 100}}, env)
	want := []Effect{
		Add{Annotation: MediaLink{
			Base:   Base{Kind: KindVideo, Page: 1, Color: ColorRed, Viewport: testViewport},
			X:      140,
			Y:      55,
			Width:  120,
			Height: 90,
			URL:    "https://example.com/v.mp4",
		}},
		SwitchTool{Tool: ToolCursor},
		Redraw{},
	}
	if diff := cmp.Diff(want, effects); diff != "" {
		t.Errorf("effects mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []Prompt{{Kind: KindVideo, Message: "Enter video URL:"}}, prompts)

	env = testEnv(Tool(KindLink))
	env.Input = answer("https://example.com", true)
	_, effects = HandleEvent(Idle{}, Event{Type: PointerDown, Point: Point{30, 30}}, env)
	anns := added(effects)
	require.Len(t, anns, 1)
	link := anns[0].(MediaLink)
	assert.Equal(t, ColorBlue, link.Color)
	assert.Equal(t, Point{0, 0}, Point{link.X, link.Y})
	assert.Equal(t, 60.0, link.Width)
}

func TestEraserRemovesNewestHit(t *testing.T) {
	stroke := Stroke{Base: testBase(KindFreeform, 1), Points: []Point{{100, 100}, {120, 100}}}
	other := Extent{Base: testBase(KindHighlight, 2), X: 0, Y: 0, Width: 500, Height: 500}

	tests := []struct {
		name string
		anns []Annotation
		p    Point
		want []Effect
	}{
		{"distance zero", []Annotation{stroke}, Point{100, 100}, []Effect{Remove{Index: 0}, Redraw{}}},
		{"eleven away", []Annotation{stroke}, Point{100, 111}, nil},
		{"newest first", []Annotation{stroke, stroke}, Point{120, 100}, []Effect{Remove{Index: 1}, Redraw{}}},
		{"other page ignored", []Annotation{stroke, other}, Point{100, 100}, []Effect{Remove{Index: 0}, Redraw{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, effects := HandleEvent(Idle{}, Event{Type: PointerDown, Point: tt.p}, testEnv(ToolEraser, tt.anns...))
			assert.Equal(t, Idle{}, state)
			assert.Equal(t, tt.want, effects)
		})
	}
}

func TestIgnoredEvents(t *testing.T) {
	env := testEnv(Tool(KindRectangle))

	state, effects := HandleEvent(Idle{}, Event{Type: PointerMove, Point: Point{1, 1}}, env)
	assert.Equal(t, Idle{}, state)
	assert.Empty(t, effects)

	state, effects = HandleEvent(Idle{}, Event{Type: PointerDown, Point: Point{1, 1}}, testEnv(ToolCursor))
	assert.Equal(t, Idle{}, state)
	assert.Empty(t, effects)

	dragging := DraggingExtent{Tool: Tool(KindRectangle), Start: Point{1, 1}, Current: Point{4, 4}}
	state, effects = HandleEvent(dragging, Event{Type: PointerDown, Point: Point{9, 9}}, env)
	assert.Equal(t, dragging, state)
	assert.Empty(t, effects)
}

func TestPreview(t *testing.T) {
	env := testEnv(Tool(KindCircle))
	_, ok := Preview(Idle{}, env)
	assert.False(t, ok)

	ann, ok := Preview(DraggingExtent{Tool: Tool(KindCircle), Start: Point{10, 10}, Current: Point{11, 11}}, env)
	require.True(t, ok)
	assert.Equal(t, 1.0, ann.(Extent).Width)

	ann, ok = Preview(DraggingStroke{Points: []Point{{1, 2}}}, env)
	require.True(t, ok)
	assert.Equal(t, KindFreeform, ann.Common().Kind)
}

func TestParseTool(t *testing.T) {
	for in, want := range map[string]Tool{
		"cursor":    ToolCursor,
		"Eraser":    ToolEraser,
		"highlight": Tool(KindHighlight),
		" link ":    Tool(KindLink),
	} {
		got, err := ParseTool(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseTool("lasso")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
