package pdf

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
)

func TestCanvasFill(t *testing.T) {
	c := NewCanvas(40, 40)
	assert.Equal(t, color.RGBA{}, c.Image().RGBAAt(5, 5), "new canvases are transparent")

	c.SetSourceRGBA(0, 0, 1, 1)
	c.Rectangle(10, 10, 20, 20)
	c.Fill()

	assert.Equal(t, color.RGBA{B: 255, A: 255}, c.Image().RGBAAt(20, 20))
	assert.Equal(t, color.RGBA{}, c.Image().RGBAAt(5, 5))
	assert.Equal(t, color.RGBA{}, c.Image().RGBAAt(35, 35))
}

func TestCanvasStroke(t *testing.T) {
	c := NewCanvas(40, 40)
	c.Clear(color.White)
	c.SetSourceColor(color.Black)
	c.SetLineWidth(4)
	c.MoveTo(0, 20)
	c.LineTo(40, 20)
	c.Stroke()

	assert.Equal(t, color.RGBA{A: 255}, c.Image().RGBAAt(20, 20))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, c.Image().RGBAAt(20, 5))
}

func TestCanvasTranslucentFill(t *testing.T) {
	c := NewCanvasFor(image.NewRGBA(image.Rect(0, 0, 10, 10)))
	c.SetSourceRGBA(1, 0, 0, 0.5)
	c.Rectangle(0, 0, 10, 10)
	c.Fill()

	got := c.Image().RGBAAt(5, 5)
	assert.InDelta(t, 128, int(got.A), 1)
	assert.Equal(t, got.A, got.R, "premultiplied red")
	assert.Zero(t, got.G)
}

func TestCanvasMatrix(t *testing.T) {
	c := NewCanvas(100, 100)
	c.Save()
	c.Transform(ScaleMatrix(2, 2))
	c.Transform(TranslateMatrix(5, 5))
	x, y := c.Matrix().Transform(1, 1)
	assert.Equal(t, [2]float64{12, 12}, [2]float64{x, y}, "translate applies before scale")

	c.SetSourceColor(color.Black)
	c.Rectangle(0, 0, 10, 10)
	c.Fill()
	assert.Equal(t, uint8(255), c.Image().RGBAAt(20, 20).A)
	assert.Zero(t, c.Image().RGBAAt(35, 35).A)

	c.Restore()
	assert.Equal(t, IdentityMatrix(), c.Matrix())
	c.Restore()
	assert.Equal(t, IdentityMatrix(), c.Matrix(), "unbalanced restore is ignored")
}

func TestCanvasText(t *testing.T) {
	c := NewCanvas(200, 60)
	c.Clear(color.White)
	c.SetSourceColor(color.Black)
	c.SetFont(HelveticaBold, 24)
	c.ShowText(10, 40, "Hello")

	dark := 0
	for y := 0; y < 60; y++ {
		for x := 0; x < 200; x++ {
			if c.Image().RGBAAt(x, y).R < 128 {
				dark++
			}
		}
	}
	assert.Greater(t, dark, 50)

	m := c.FontMetrics()
	assert.Greater(t, m.Ascent, 0.0)
	assert.Greater(t, c.TextWidth("Hello"), c.TextWidth("Hi"))
}

func TestTextWidth(t *testing.T) {
	one := TextWidth(Courier, 10, "a")
	assert.Greater(t, one, 0.0)
	assert.InDelta(t, 4*one, TextWidth(Courier, 10, "abcd"), 0.1, "monospaced")
	assert.InDelta(t, 2*one, TextWidth(Courier, 20, "a"), 0.1, "scales with size")
	assert.Zero(t, TextWidth(Helvetica, 12, ""))
}

func TestMatrix(t *testing.T) {
	approx := cmpopts.EquateApprox(0, 1e-9)

	m := TranslateMatrix(10, 20).Multiply(ScaleMatrix(2, 3))
	x, y := m.Transform(1, 1)
	assert.Equal(t, [2]float64{22, 63}, [2]float64{x, y})
	assert.InDelta(t, math.Sqrt(6), m.Scale(), 1e-9)

	inv, ok := m.Invert()
	assert.True(t, ok)
	if diff := cmp.Diff(IdentityMatrix(), m.Multiply(inv), approx); diff != "" {
		t.Errorf("m * inverse mismatch (-want +got):\n%s", diff)
	}

	_, ok = ScaleMatrix(0, 1).Invert()
	assert.False(t, ok)

	p := RotateMatrix(90).TransformPoint(Point{X: 1})
	if diff := cmp.Diff(Point{Y: 1}, p, approx); diff != "" {
		t.Errorf("rotation mismatch (-want +got):\n%s", diff)
	}
}
