package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testViewport = Viewport{Width: 612, Height: 792}

func testBase(k Kind, page int) Base {
	return Base{Kind: k, Page: page, Color: ColorRed, Viewport: testViewport}
}

func TestHit(t *testing.T) {
	tests := []struct {
		name string
		ann  Annotation
		p    Point
		want bool
	}{
		{"extent inside", Extent{Base: testBase(KindRectangle, 1), X: 10, Y: 10, Width: 20, Height: 20}, Point{15, 15}, true},
		{"extent margin", Extent{Base: testBase(KindRectangle, 1), X: 10, Y: 10, Width: 20, Height: 20}, Point{5, 35}, true},
		{"extent outside margin", Extent{Base: testBase(KindRectangle, 1), X: 10, Y: 10, Width: 20, Height: 20}, Point{4.9, 20}, false},
		{"arrow reversed box", Arrow{Base: testBase(KindArrow, 1), X1: 100, Y1: 100, X2: 50, Y2: 60}, Point{48, 99}, true},
		{"arrow outside", Arrow{Base: testBase(KindArrow, 1), X1: 100, Y1: 100, X2: 50, Y2: 60}, Point{106, 80}, false},
		{"stroke on point", Stroke{Base: testBase(KindFreeform, 1), Points: []Point{{50, 50}, {60, 60}}}, Point{50, 50}, true},
		{"stroke within radius", Stroke{Base: testBase(KindFreeform, 1), Points: []Point{{50, 50}}}, Point{59.9, 50}, true},
		{"stroke at radius", Stroke{Base: testBase(KindFreeform, 1), Points: []Point{{50, 50}}}, Point{60, 50}, false},
		{"label box", Label{Base: testBase(KindText, 1), X: 10, Y: 100, Text: "x"}, Point{110, 80}, true},
		{"label left of anchor", Label{Base: testBase(KindText, 1), X: 10, Y: 100, Text: "x"}, Point{9, 100}, false},
		{"label below", Label{Base: testBase(KindNote, 1), X: 10, Y: 100, Text: "x"}, Point{20, 106}, false},
		{"media exact edge", MediaLink{Base: testBase(KindLink, 1), X: 0, Y: 0, Width: 60, Height: 60, URL: "u"}, Point{60, 60}, true},
		{"media no margin", MediaLink{Base: testBase(KindLink, 1), X: 0, Y: 0, Width: 60, Height: 60, URL: "u"}, Point{61, 30}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ann.Hit(tt.p))
		})
	}
}

func TestHitIndexPrefersNewestOnPage(t *testing.T) {
	anns := []Annotation{
		Extent{Base: testBase(KindHighlight, 1), X: 0, Y: 0, Width: 100, Height: 100},
		Extent{Base: testBase(KindHighlight, 1), X: 0, Y: 0, Width: 100, Height: 100},
		Extent{Base: testBase(KindHighlight, 2), X: 0, Y: 0, Width: 100, Height: 100},
	}
	assert.Equal(t, 1, HitIndex(anns, 1, Point{50, 50}))
	assert.Equal(t, 2, HitIndex(anns, 2, Point{50, 50}))
	assert.Equal(t, -1, HitIndex(anns, 3, Point{50, 50}))
	assert.Equal(t, -1, HitIndex(anns, 1, Point{500, 500}))
}
