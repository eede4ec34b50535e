package annotate

import (
	"math"

	"github.com/novvoo/go-pdfdesk/pkg/pdf"
)

// Point is a position in viewport pixels, origin top-left, y down.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Viewport is the pixel size of the rendered page an annotation was drawn on.
type Viewport struct {
	Width  float64
	Height float64
}

// Valid reports whether both dimensions are strictly positive.
func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0 && !math.IsInf(v.Width, 0) && !math.IsInf(v.Height, 0)
}

// PageGeometry describes a target page in PDF user units.
type PageGeometry struct {
	Width    float64
	Height   float64
	Rotation int
}

// ToPDFSpace maps a viewport point onto PDF user space for a page of size
// pw x ph displayed with the given rotation. The viewport coordinates are
// normalised against vw x vh first; rotations other than 0, 90, 180, 270 and
// -90 are treated as 0. Results are not clamped.
func ToPDFSpace(vx, vy, vw, vh, pw, ph float64, rotation int) (x, y float64) {
	nx := vx / vw
	ny := vy / vh

	switch rotation {
	case 90:
		return ny * pw, (1 - nx) * ph
	case 180:
		return (1 - nx) * pw, ny * ph
	case 270, -90:
		return (1 - ny) * pw, nx * ph
	default:
		return nx * pw, (1 - ny) * ph
	}
}

// toPDF is ToPDFSpace for a viewport point on a known page.
func (g PageGeometry) toPDF(p Point, v Viewport) pdf.Point {
	x, y := ToPDFSpace(p.X, p.Y, v.Width, v.Height, g.Width, g.Height, g.Rotation)
	return pdf.Point{X: x, Y: y}
}

// physBox maps the viewport box (x, y, w, h) onto a normalised PDF
// rectangle. The two corners are transformed independently.
func (g PageGeometry) physBox(x, y, w, h float64, v Viewport) pdf.Rectangle {
	p1 := g.toPDF(Point{X: x, Y: y}, v)
	p2 := g.toPDF(Point{X: x + w, Y: y + h}, v)
	return pdf.Rectangle{LLX: p1.X, LLY: p1.Y, URX: p2.X, URY: p2.Y}.Normalize()
}

// fontScale converts viewport pixels to user units along the axis that ends
// up vertical on the page.
func (g PageGeometry) fontScale(v Viewport) float64 {
	if g.Rotation == 90 || g.Rotation == 270 {
		return g.Width / v.Height
	}
	return g.Height / v.Height
}

// ViewportSize returns the pixel dimensions of a page of pw x ph user units
// rendered at scale with the given rotation. Width and height swap at 90
// and 270 degrees.
func ViewportSize(pw, ph float64, rotation int, scale float64) (width, height int) {
	w := int(math.Ceil(pw * scale))
	h := int(math.Ceil(ph * scale))
	switch pdf.NormalizeRotation(rotation) {
	case 90, 270:
		return h, w
	}
	return w, h
}
