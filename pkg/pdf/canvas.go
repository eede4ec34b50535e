package pdf

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Canvas is a Cairo-style 2D context over an RGBA image. Paths are given in
// user space and mapped to pixels through the current matrix.
type Canvas struct {
	surface *image.RGBA
	raster  *vector.Rasterizer
	path    []pathOp
	current Point
	start   Point
	state   canvasState
	states  []canvasState
}

type canvasState struct {
	matrix    Matrix
	source    color.Color
	lineWidth float64
	fontName  string
	fontSize  float64
}

type pathOp struct {
	op     pathOpType
	points []Point
}

type pathOpType int

const (
	opMoveTo pathOpType = iota
	opLineTo
	opCurveTo
	opClosePath
)

// NewCanvas creates a transparent canvas of the given pixel size.
func NewCanvas(width, height int) *Canvas {
	return NewCanvasFor(image.NewRGBA(image.Rect(0, 0, width, height)))
}

// NewCanvasFor draws onto an existing image.
func NewCanvasFor(img *image.RGBA) *Canvas {
	b := img.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())
	r.DrawOp = draw.Over
	return &Canvas{
		surface: img,
		raster:  r,
		state: canvasState{
			matrix:    IdentityMatrix(),
			source:    color.Black,
			lineWidth: 1,
			fontName:  Helvetica,
			fontSize:  12,
		},
	}
}

// Image returns the drawing surface.
func (c *Canvas) Image() *image.RGBA {
	return c.surface
}

// Save pushes the graphics state.
func (c *Canvas) Save() {
	c.states = append(c.states, c.state)
}

// Restore pops the graphics state. An unbalanced Restore is ignored.
func (c *Canvas) Restore() {
	if len(c.states) == 0 {
		return
	}
	c.state = c.states[len(c.states)-1]
	c.states = c.states[:len(c.states)-1]
}

// Transform concatenates m onto the current matrix.
func (c *Canvas) Transform(m Matrix) {
	c.state.matrix = m.Multiply(c.state.matrix)
}

// SetMatrix replaces the current matrix.
func (c *Canvas) SetMatrix(m Matrix) {
	c.state.matrix = m
}

// Matrix returns the current matrix.
func (c *Canvas) Matrix() Matrix {
	return c.state.matrix
}

// SetSourceRGBA sets the paint colour; components are in [0, 1].
func (c *Canvas) SetSourceRGBA(r, g, b, a float64) {
	c.state.source = color.NRGBA{
		R: channel(r),
		G: channel(g),
		B: channel(b),
		A: channel(a),
	}
}

// SetSourceColor sets the paint colour.
func (c *Canvas) SetSourceColor(col color.Color) {
	c.state.source = col
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// SetLineWidth sets the stroke width in user units.
func (c *Canvas) SetLineWidth(width float64) {
	c.state.lineWidth = width
}

// SetFont selects a font by PDF base font name and a size in user units.
func (c *Canvas) SetFont(name string, size float64) {
	c.state.fontName = name
	c.state.fontSize = size
}

// NewPath discards the current path.
func (c *Canvas) NewPath() {
	c.path = nil
}

// MoveTo starts a new subpath.
func (c *Canvas) MoveTo(x, y float64) {
	c.current = Point{x, y}
	c.start = c.current
	c.path = append(c.path, pathOp{opMoveTo, []Point{c.current}})
}

// LineTo adds a straight segment.
func (c *Canvas) LineTo(x, y float64) {
	if len(c.path) == 0 {
		c.MoveTo(x, y)
		return
	}
	c.current = Point{x, y}
	c.path = append(c.path, pathOp{opLineTo, []Point{c.current}})
}

// CurveTo adds a cubic Bezier segment.
func (c *Canvas) CurveTo(x1, y1, x2, y2, x3, y3 float64) {
	if len(c.path) == 0 {
		c.MoveTo(x1, y1)
	}
	c.current = Point{x3, y3}
	c.path = append(c.path, pathOp{opCurveTo, []Point{{x1, y1}, {x2, y2}, c.current}})
}

// ClosePath closes the current subpath.
func (c *Canvas) ClosePath() {
	if len(c.path) == 0 {
		return
	}
	c.path = append(c.path, pathOp{op: opClosePath})
	c.current = c.start
}

// Rectangle adds a closed rectangle subpath.
func (c *Canvas) Rectangle(x, y, width, height float64) {
	c.MoveTo(x, y)
	c.LineTo(x+width, y)
	c.LineTo(x+width, y+height)
	c.LineTo(x, y+height)
	c.ClosePath()
}

// Ellipse adds a closed ellipse centred at (cx, cy).
func (c *Canvas) Ellipse(cx, cy, rx, ry float64) {
	ox, oy := rx*kappa, ry*kappa
	c.MoveTo(cx-rx, cy)
	c.CurveTo(cx-rx, cy-oy, cx-ox, cy-ry, cx, cy-ry)
	c.CurveTo(cx+ox, cy-ry, cx+rx, cy-oy, cx+rx, cy)
	c.CurveTo(cx+rx, cy+oy, cx+ox, cy+ry, cx, cy+ry)
	c.CurveTo(cx-ox, cy+ry, cx-rx, cy+oy, cx-rx, cy)
	c.ClosePath()
}

// Fill fills the current path and clears it.
func (c *Canvas) Fill() {
	c.FillPreserve()
	c.path = nil
}

// FillPreserve fills the current path without clearing it.
func (c *Canvas) FillPreserve() {
	if len(c.path) == 0 {
		return
	}
	b := c.surface.Bounds()
	c.raster.Reset(b.Dx(), b.Dy())
	m := c.state.matrix
	open := false
	for _, op := range c.path {
		switch op.op {
		case opMoveTo:
			if open {
				c.raster.ClosePath()
			}
			x, y := m.Transform(op.points[0].X, op.points[0].Y)
			c.raster.MoveTo(float32(x), float32(y))
			open = true
		case opLineTo:
			x, y := m.Transform(op.points[0].X, op.points[0].Y)
			c.raster.LineTo(float32(x), float32(y))
		case opCurveTo:
			x1, y1 := m.Transform(op.points[0].X, op.points[0].Y)
			x2, y2 := m.Transform(op.points[1].X, op.points[1].Y)
			x3, y3 := m.Transform(op.points[2].X, op.points[2].Y)
			c.raster.CubeTo(float32(x1), float32(y1), float32(x2), float32(y2), float32(x3), float32(y3))
		case opClosePath:
			c.raster.ClosePath()
			open = false
		}
	}
	if open {
		c.raster.ClosePath()
	}
	c.paint()
}

// Stroke strokes the current path and clears it.
func (c *Canvas) Stroke() {
	c.StrokePreserve()
	c.path = nil
}

// StrokePreserve strokes the current path with round joins and caps.
func (c *Canvas) StrokePreserve() {
	subpaths := c.flattenPath()
	if len(subpaths) == 0 {
		return
	}
	b := c.surface.Bounds()
	c.raster.Reset(b.Dx(), b.Dy())

	halfWidth := c.state.lineWidth * c.state.matrix.Scale() / 2
	if halfWidth < 0.5 {
		halfWidth = 0.5
	}
	for _, points := range subpaths {
		for i := 0; i+1 < len(points); i++ {
			c.addSegment(points[i], points[i+1], halfWidth)
		}
		for _, p := range points {
			c.addDisc(p, halfWidth)
		}
	}
	c.paint()
}

// flattenPath converts the path to device-space polylines.
func (c *Canvas) flattenPath() [][]Point {
	m := c.state.matrix
	var subpaths [][]Point
	var points []Point
	var current, start Point

	flush := func() {
		if len(points) > 0 {
			subpaths = append(subpaths, points)
		}
		points = nil
	}
	for _, op := range c.path {
		switch op.op {
		case opMoveTo:
			flush()
			current = m.TransformPoint(op.points[0])
			start = current
			points = append(points, current)
		case opLineTo:
			current = m.TransformPoint(op.points[0])
			points = append(points, current)
		case opCurveTo:
			p1 := m.TransformPoint(op.points[0])
			p2 := m.TransformPoint(op.points[1])
			p3 := m.TransformPoint(op.points[2])
			points = append(points, flattenBezier(current, p1, p2, p3, 16)...)
			current = p3
		case opClosePath:
			points = append(points, start)
			current = start
			flush()
		}
	}
	flush()
	return subpaths
}

// flattenBezier converts a cubic Bezier curve to line segments
func flattenBezier(p0, p1, p2, p3 Point, steps int) []Point {
	points := make([]Point, steps)
	for i := 0; i < steps; i++ {
		t := float64(i+1) / float64(steps)
		mt := 1 - t
		a, b, cc, d := mt*mt*mt, 3*mt*mt*t, 3*mt*t*t, t*t*t
		points[i] = Point{
			X: a*p0.X + b*p1.X + cc*p2.X + d*p3.X,
			Y: a*p0.Y + b*p1.Y + cc*p2.Y + d*p3.Y,
		}
	}
	return points
}

// addSegment adds the quad covering one stroked segment. Every quad and disc
// is wound the same way so overlaps saturate instead of cancelling.
func (c *Canvas) addSegment(p1, p2 Point, halfWidth float64) {
	dx, dy := p2.X-p1.X, p2.Y-p1.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	nx, ny := -dy/length*halfWidth, dx/length*halfWidth

	c.raster.MoveTo(float32(p1.X+nx), float32(p1.Y+ny))
	c.raster.LineTo(float32(p2.X+nx), float32(p2.Y+ny))
	c.raster.LineTo(float32(p2.X-nx), float32(p2.Y-ny))
	c.raster.LineTo(float32(p1.X-nx), float32(p1.Y-ny))
	c.raster.ClosePath()
}

func (c *Canvas) addDisc(center Point, radius float64) {
	const steps = 16
	for i := 0; i <= steps; i++ {
		s, co := math.Sincos(-2 * math.Pi * float64(i) / steps)
		x, y := float32(center.X+radius*co), float32(center.Y+radius*s)
		if i == 0 {
			c.raster.MoveTo(x, y)
		} else {
			c.raster.LineTo(x, y)
		}
	}
	c.raster.ClosePath()
}

func (c *Canvas) paint() {
	c.raster.Draw(c.surface, c.surface.Bounds(), image.NewUniform(c.state.source), image.Point{})
}

// Clear fills the whole surface with col.
func (c *Canvas) Clear(col color.Color) {
	draw.Draw(c.surface, c.surface.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

// ShowText draws text with its baseline origin at (x, y) in user space. The
// matrix positions the text and scales its size; glyphs stay upright.
func (c *Canvas) ShowText(x, y float64, text string) {
	if text == "" {
		return
	}
	px, py := c.state.matrix.Transform(x, y)
	size := c.state.fontSize * c.state.matrix.Scale()
	if size <= 0 {
		return
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(fontFor(c.state.fontName))
	ctx.SetFontSize(size)
	ctx.SetClip(c.surface.Bounds())
	ctx.SetDst(c.surface)
	ctx.SetSrc(image.NewUniform(c.state.source))
	ctx.SetHinting(font.HintingNone)

	pt := fixed.Point26_6{X: fixed.Int26_6(px * 64), Y: fixed.Int26_6(py * 64)}
	ctx.DrawString(text, pt)
}

// ShowTextCentered draws text centred horizontally and vertically on (x, y).
func (c *Canvas) ShowTextCentered(x, y float64, text string) {
	metrics := c.FontMetrics()
	w := c.TextWidth(text)
	c.ShowText(x-w/2, y+(metrics.Ascent-metrics.Descent)/2, text)
}

// TextWidth returns the advance width of text in user units.
func (c *Canvas) TextWidth(text string) float64 {
	return TextWidth(c.state.fontName, c.state.fontSize, text)
}

// FontMetrics describes the vertical extent of the current font in user units.
type FontMetrics struct {
	Ascent, Descent float64
}

// FontMetrics returns the metrics of the current font.
func (c *Canvas) FontMetrics() FontMetrics {
	face := truetype.NewFace(fontFor(c.state.fontName), &truetype.Options{Size: c.state.fontSize, DPI: 72})
	defer face.Close()
	m := face.Metrics()
	return FontMetrics{
		Ascent:  float64(m.Ascent) / 64,
		Descent: float64(m.Descent) / 64,
	}
}

// TextWidth measures text set in the named font at size.
func TextWidth(fontName string, size float64, text string) float64 {
	face := truetype.NewFace(fontFor(fontName), &truetype.Options{Size: size, DPI: 72})
	defer face.Close()
	return float64(font.MeasureString(face, text)) / 64
}

var (
	fontsOnce sync.Once
	goFonts   map[string]*truetype.Font
)

// fontFor maps a PDF base font name onto the closest Go font. Courier maps
// to Go Mono; everything else to the proportional Go family.
func fontFor(name string) *truetype.Font {
	fontsOnce.Do(func() {
		goFonts = make(map[string]*truetype.Font)
		for key, ttf := range map[string][]byte{
			"regular":        goregular.TTF,
			"bold":           gobold.TTF,
			"italic":         goitalic.TTF,
			"bolditalic":     gobolditalic.TTF,
			"mono":           gomono.TTF,
			"monobold":       gomonobold.TTF,
			"monoitalic":     gomonoitalic.TTF,
			"monobolditalic": gomonobolditalic.TTF,
		} {
			f, err := truetype.Parse(ttf)
			if err != nil {
				panic("pdf: bundled Go font: " + err.Error())
			}
			goFonts[key] = f
		}
	})

	lower := strings.ToLower(name)
	key := ""
	if strings.Contains(lower, "courier") || strings.Contains(lower, "mono") {
		key = "mono"
	}
	if strings.Contains(lower, "bold") {
		key += "bold"
	}
	if strings.Contains(lower, "italic") || strings.Contains(lower, "oblique") {
		key += "italic"
	}
	if key == "" {
		key = "regular"
	}
	return goFonts[key]
}
