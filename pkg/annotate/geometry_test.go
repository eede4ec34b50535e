package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToPDFSpace(t *testing.T) {
	tests := []struct {
		name     string
		vx, vy   float64
		rotation int
		wantX    float64
		wantY    float64
	}{
		{"0 top-left", 0, 0, 0, 0, 792},
		{"0 bottom-right", 612, 792, 0, 612, 0},
		{"0 centre", 306, 396, 0, 306, 396},
		{"90 top-left", 0, 0, 90, 0, 792},
		{"90 top-right", 612, 0, 90, 0, 0},
		{"90 bottom-left", 0, 792, 90, 612, 792},
		{"180 top-left", 0, 0, 180, 612, 0},
		{"180 bottom-right", 612, 792, 180, 0, 792},
		{"270 top-left", 0, 0, 270, 612, 0},
		{"270 bottom-right", 612, 792, 270, 0, 792},
		{"-90 matches 270", 0, 0, -90, 612, 0},
		{"45 falls back to 0", 0, 0, 45, 0, 792},
		{"outside viewport not clamped", -612, 0, 0, -612, 792},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := ToPDFSpace(tt.vx, tt.vy, 612, 792, 612, 792, tt.rotation)
			assert.InDelta(t, tt.wantX, x, 1e-9)
			assert.InDelta(t, tt.wantY, y, 1e-9)
		})
	}
}

func TestToPDFSpaceStaysOnPage(t *testing.T) {
	const vw, vh, pw, ph = 918.0, 1188.0, 612.0, 792.0
	for _, rot := range []int{0, 90, 180, 270} {
		for vx := 0.0; vx <= vw; vx += vw / 17 {
			for vy := 0.0; vy <= vh; vy += vh / 13 {
				x, y := ToPDFSpace(vx, vy, vw, vh, pw, ph, rot)
				assert.True(t, x >= -1e-9 && x <= pw+1e-9, "rotation %d: x=%v out of range", rot, x)
				assert.True(t, y >= -1e-9 && y <= ph+1e-9, "rotation %d: y=%v out of range", rot, y)
			}
		}
	}
}

func TestToPDFSpaceRotation180IsInvolution(t *testing.T) {
	const w, h = 500.0, 700.0
	for _, p := range []Point{{0, 0}, {123, 456}, {500, 700}, {250.5, 0.25}} {
		x1, y1 := ToPDFSpace(p.X, p.Y, w, h, w, h, 180)
		x2, y2 := ToPDFSpace(x1, y1, w, h, w, h, 180)
		assert.InDelta(t, p.X, x2, 1e-9)
		assert.InDelta(t, p.Y, y2, 1e-9)
	}
}

func TestToPDFSpaceFlipsY(t *testing.T) {
	const w, h = 612.0, 792.0
	for _, x := range []float64{0, 1, 300, 612} {
		gx, gy := ToPDFSpace(x, 0, w, h, w, h, 0)
		assert.InDelta(t, x, gx, 1e-9)
		assert.Equal(t, h, gy)

		gx, gy = ToPDFSpace(x, h, w, h, w, h, 0)
		assert.InDelta(t, x, gx, 1e-9)
		assert.Equal(t, 0.0, gy)
	}
}

func TestViewportSize(t *testing.T) {
	tests := []struct {
		rotation int
		scale    float64
		w, h     int
	}{
		{0, 1, 612, 792},
		{0, 1.5, 918, 1188},
		{90, 1, 792, 612},
		{180, 1, 612, 792},
		{270, 1.5, 1188, 918},
		{-90, 1, 792, 612},
		{0, 0.333, 204, 264},
	}
	for _, tt := range tests {
		w, h := ViewportSize(612, 792, tt.rotation, tt.scale)
		assert.Equal(t, tt.w, w, "rotation %d scale %v", tt.rotation, tt.scale)
		assert.Equal(t, tt.h, h, "rotation %d scale %v", tt.rotation, tt.scale)
	}
}

func TestFontScale(t *testing.T) {
	v := Viewport{Width: 1188, Height: 918}
	assert.InDelta(t, 612.0/918, PageGeometry{Width: 612, Height: 792, Rotation: 90}.fontScale(v), 1e-12)
	v = Viewport{Width: 918, Height: 1188}
	assert.InDelta(t, 792.0/1188, PageGeometry{Width: 612, Height: 792}.fontScale(v), 1e-12)
}
