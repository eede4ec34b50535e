package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/text/encoding/charmap"
)

// maxFormDepth bounds nested form XObjects.
const maxFormDepth = 8

// PageRenderer rasterises pages. It covers paths, colours, constant alpha,
// images, form XObjects and simple-font text drawn with the Go fonts.
type PageRenderer struct {
	doc *Document
}

// NewPageRenderer creates a renderer for doc.
func NewPageRenderer(doc *Document) *PageRenderer {
	return &PageRenderer{doc: doc}
}

// NumPages returns the number of pages of the document.
func (r *PageRenderer) NumPages() int {
	return r.doc.NumPages()
}

// PageRotation returns the normalised /Rotate of page n (1-indexed).
func (r *PageRenderer) PageRotation(n int) (int, error) {
	page, err := r.doc.GetPage(n)
	if err != nil {
		return 0, err
	}
	return page.Rotation(), nil
}

// PageSize returns the media box width and height of page n in points.
func (r *PageRenderer) PageSize(n int) (width, height float64, err error) {
	page, err := r.doc.GetPage(n)
	if err != nil {
		return 0, 0, err
	}
	return page.Width(), page.Height(), nil
}

// RenderImage renders page n at scale pixels per point. The result is the
// viewport as displayed: for a page rotated by 90 or 270 degrees its width
// and height are swapped relative to the media box.
func (r *PageRenderer) RenderImage(n int, scale float64) (*image.RGBA, error) {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("render page %d: invalid scale %v", n, scale)
	}
	page, err := r.doc.GetPage(n)
	if err != nil {
		return nil, err
	}

	w := int(math.Ceil(page.Width() * scale))
	h := int(math.Ceil(page.Height() * scale))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render page %d: empty media box", n)
	}

	canvas := NewCanvas(w, h)
	canvas.Clear(color.White)
	box := page.MediaBox
	canvas.SetMatrix(Matrix{A: scale, D: -scale, E: -box.LLX * scale, F: float64(h) + box.LLY*scale})

	contents, err := page.GetContents()
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", n, err)
	}
	in := &interpreter{doc: r.doc, canvas: canvas}
	in.state = newRenderState()
	in.run(contents, page.Resources, 0)

	return rotateViewport(canvas.Image(), page.Rotation()), nil
}

// RenderPNG renders page n and encodes it as PNG.
func (r *PageRenderer) RenderPNG(n int, scale float64) ([]byte, error) {
	img, err := r.RenderImage(n, scale)
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}

// EncodePNG encodes image to PNG format
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	err := png.Encode(&buf, img)
	return buf.Bytes(), err
}

// rotateViewport maps the unrotated raster onto the displayed viewport. A
// viewport pixel (vx, vy) shows the page point that the annotation
// coordinate transform assigns to it, so overlays and committed marks line
// up with what is on screen.
func rotateViewport(src *image.RGBA, rotation int) *image.RGBA {
	w, h := float64(src.Bounds().Dx()), float64(src.Bounds().Dy())
	dw, dh := src.Bounds().Dy(), src.Bounds().Dx()
	var s2d f64.Aff3
	switch rotation {
	case 90:
		s2d = f64.Aff3{0, 1, 0, 1, 0, 0}
	case 180:
		dw, dh = src.Bounds().Dx(), src.Bounds().Dy()
		s2d = f64.Aff3{-1, 0, w, 0, -1, h}
	case 270:
		s2d = f64.Aff3{0, -1, h, -1, 0, w}
	default:
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.NearestNeighbor.Transform(dst, s2d, src, src.Bounds(), draw.Src, nil)
	return dst
}

type renderState struct {
	fill, stroke           color.NRGBA
	fillAlpha, strokeAlpha float64
	lineWidth              float64
	font                   Dictionary
	baseFont               string
	fontSize               float64
	charSpace, wordSpace   float64
	hscale, leading        float64
	textMatrix, lineMatrix Matrix
}

func newRenderState() renderState {
	return renderState{
		fill:        color.NRGBA{A: 255},
		stroke:      color.NRGBA{A: 255},
		fillAlpha:   1,
		strokeAlpha: 1,
		lineWidth:   1,
		fontSize:    12,
		hscale:      1,
		textMatrix:  IdentityMatrix(),
		lineMatrix:  IdentityMatrix(),
	}
}

// interpreter executes content stream operations against a Canvas.
type interpreter struct {
	doc     *Document
	canvas  *Canvas
	state   renderState
	stack   []renderState
	current Point
}

var winAnsiDecoder = charmap.Windows1252.NewDecoder()

func (in *interpreter) run(content []byte, resources Dictionary, depth int) {
	ops, _ := NewContentStreamParser(content).ParseOperations()
	for _, op := range ops {
		in.execute(op, resources, depth)
	}
}

func numbers(operands []Object) []float64 {
	out := make([]float64, 0, len(operands))
	for _, o := range operands {
		switch v := o.(type) {
		case Integer, Real:
			out = append(out, objectToFloat(v))
		}
	}
	return out
}

func (in *interpreter) execute(op Operation, resources Dictionary, depth int) {
	c := in.canvas
	n := numbers(op.Operands)
	st := &in.state

	switch op.Operator {
	case "q":
		in.stack = append(in.stack, in.state)
		c.Save()
	case "Q":
		if len(in.stack) > 0 {
			in.state = in.stack[len(in.stack)-1]
			in.stack = in.stack[:len(in.stack)-1]
			c.Restore()
		}
	case "cm":
		if len(n) == 6 {
			c.Transform(Matrix{n[0], n[1], n[2], n[3], n[4], n[5]})
		}
	case "w":
		if len(n) == 1 {
			st.lineWidth = n[0]
		}
	case "gs":
		in.setExtGState(op.Operands, resources)

	case "g", "rg", "k", "sc", "scn":
		if col, ok := deviceColor(n); ok {
			st.fill = col
		}
	case "G", "RG", "K", "SC", "SCN":
		if col, ok := deviceColor(n); ok {
			st.stroke = col
		}
	case "cs":
		st.fill = color.NRGBA{A: 255}
	case "CS":
		st.stroke = color.NRGBA{A: 255}

	case "m":
		if len(n) == 2 {
			c.MoveTo(n[0], n[1])
			in.current = Point{n[0], n[1]}
		}
	case "l":
		if len(n) == 2 {
			c.LineTo(n[0], n[1])
			in.current = Point{n[0], n[1]}
		}
	case "c":
		if len(n) == 6 {
			c.CurveTo(n[0], n[1], n[2], n[3], n[4], n[5])
			in.current = Point{n[4], n[5]}
		}
	case "v":
		if len(n) == 4 {
			c.CurveTo(in.current.X, in.current.Y, n[0], n[1], n[2], n[3])
			in.current = Point{n[2], n[3]}
		}
	case "y":
		if len(n) == 4 {
			c.CurveTo(n[0], n[1], n[2], n[3], n[2], n[3])
			in.current = Point{n[2], n[3]}
		}
	case "h":
		c.ClosePath()
	case "re":
		if len(n) == 4 {
			c.Rectangle(n[0], n[1], n[2], n[3])
			in.current = Point{n[0], n[1]}
		}

	case "f", "F", "f*":
		in.fill()
		c.NewPath()
	case "S":
		in.strokePath()
		c.NewPath()
	case "s":
		c.ClosePath()
		in.strokePath()
		c.NewPath()
	case "B", "B*":
		in.fill()
		in.strokePath()
		c.NewPath()
	case "b", "b*":
		c.ClosePath()
		in.fill()
		in.strokePath()
		c.NewPath()
	case "n":
		c.NewPath()

	case "BT":
		st.textMatrix = IdentityMatrix()
		st.lineMatrix = IdentityMatrix()
	case "Tf":
		in.setFont(op.Operands, resources)
	case "Tc":
		if len(n) == 1 {
			st.charSpace = n[0]
		}
	case "Tw":
		if len(n) == 1 {
			st.wordSpace = n[0]
		}
	case "Tz":
		if len(n) == 1 {
			st.hscale = n[0] / 100
		}
	case "TL":
		if len(n) == 1 {
			st.leading = n[0]
		}
	case "Td", "TD":
		if len(n) == 2 {
			if op.Operator == "TD" {
				st.leading = -n[1]
			}
			in.moveText(n[0], n[1])
		}
	case "Tm":
		if len(n) == 6 {
			st.lineMatrix = Matrix{n[0], n[1], n[2], n[3], n[4], n[5]}
			st.textMatrix = st.lineMatrix
		}
	case "T*":
		in.moveText(0, -st.leading)
	case "Tj":
		if len(op.Operands) == 1 {
			in.showString(op.Operands[0])
		}
	case "'":
		in.moveText(0, -st.leading)
		if len(op.Operands) == 1 {
			in.showString(op.Operands[0])
		}
	case "\"":
		if len(op.Operands) == 3 {
			st.wordSpace = objectToFloat(op.Operands[0])
			st.charSpace = objectToFloat(op.Operands[1])
			in.moveText(0, -st.leading)
			in.showString(op.Operands[2])
		}
	case "TJ":
		if len(op.Operands) == 1 {
			arr, _ := op.Operands[0].(Array)
			for _, item := range arr {
				switch v := item.(type) {
				case String:
					in.showString(v)
				case Integer, Real:
					in.advance(-objectToFloat(v) / 1000 * st.fontSize * st.hscale)
				}
			}
		}

	case "Do":
		if len(op.Operands) == 1 {
			if name, ok := op.Operands[0].(Name); ok {
				in.doXObject(name, resources, depth)
			}
		}
	}
}

// deviceColor interprets 1, 3 or 4 operands as gray, RGB or CMYK.
func deviceColor(n []float64) (color.NRGBA, bool) {
	switch len(n) {
	case 1:
		v := channel(n[0])
		return color.NRGBA{v, v, v, 255}, true
	case 3:
		return color.NRGBA{channel(n[0]), channel(n[1]), channel(n[2]), 255}, true
	case 4:
		return cmykToRGB(n[0], n[1], n[2], n[3]), true
	}
	return color.NRGBA{}, false
}

func withAlpha(c color.NRGBA, a float64) color.NRGBA {
	c.A = channel(a)
	return c
}

func (in *interpreter) fill() {
	in.canvas.SetSourceColor(withAlpha(in.state.fill, in.state.fillAlpha))
	in.canvas.FillPreserve()
}

func (in *interpreter) strokePath() {
	in.canvas.SetSourceColor(withAlpha(in.state.stroke, in.state.strokeAlpha))
	in.canvas.SetLineWidth(in.state.lineWidth)
	in.canvas.StrokePreserve()
}

func (in *interpreter) resource(resources Dictionary, category string, name Name) Object {
	sub, err := in.doc.resolveDict(resources.Get(category))
	if err != nil || sub == nil {
		return nil
	}
	obj, err := in.doc.ResolveObject(sub[name])
	if err != nil {
		return nil
	}
	return obj
}

func (in *interpreter) setExtGState(operands []Object, resources Dictionary) {
	if len(operands) != 1 {
		return
	}
	name, _ := operands[0].(Name)
	gs, ok := in.resource(resources, "ExtGState", name).(Dictionary)
	if !ok {
		return
	}
	if ca, ok := gs.GetFloat("ca"); ok {
		in.state.fillAlpha = ca
	}
	if ca, ok := gs.GetFloat("CA"); ok {
		in.state.strokeAlpha = ca
	}
	if lw, ok := gs.GetFloat("LW"); ok {
		in.state.lineWidth = lw
	}
}

func (in *interpreter) setFont(operands []Object, resources Dictionary) {
	if len(operands) != 2 {
		return
	}
	in.state.fontSize = objectToFloat(operands[1])
	name, _ := operands[0].(Name)
	font, _ := in.resource(resources, "Font", name).(Dictionary)
	in.state.font = font
	in.state.baseFont = ""
	if base, ok := font.GetName("BaseFont"); ok {
		in.state.baseFont = string(base)
	}
}

func (in *interpreter) moveText(tx, ty float64) {
	in.state.lineMatrix = TranslateMatrix(tx, ty).Multiply(in.state.lineMatrix)
	in.state.textMatrix = in.state.lineMatrix
}

func (in *interpreter) advance(tx float64) {
	in.state.textMatrix = TranslateMatrix(tx, 0).Multiply(in.state.textMatrix)
}

// showString draws a string in a simple font. Composite fonts are skipped
// since their codes are not single bytes.
func (in *interpreter) showString(obj Object) {
	s, ok := obj.(String)
	if !ok {
		return
	}
	st := &in.state
	if subtype, _ := st.font.GetName("Subtype"); subtype == "Type0" {
		return
	}
	text, err := winAnsiDecoder.Bytes(s.Value)
	if err != nil {
		return
	}

	c := in.canvas
	c.Save()
	c.Transform(ScaleMatrix(st.hscale, 1).Multiply(st.textMatrix))
	c.SetFont(st.baseFont, st.fontSize)
	c.SetSourceColor(withAlpha(st.fill, st.fillAlpha))
	c.ShowText(0, 0, string(text))
	c.Restore()

	width := TextWidth(st.baseFont, st.fontSize, string(text))
	width += st.charSpace * float64(len(s.Value))
	width += st.wordSpace * float64(bytes.Count(s.Value, []byte{' '}))
	in.advance(width * st.hscale)
}

func (in *interpreter) doXObject(name Name, resources Dictionary, depth int) {
	stream, ok := in.resource(resources, "XObject", name).(Stream)
	if !ok {
		return
	}
	switch subtype, _ := stream.Dictionary.GetName("Subtype"); subtype {
	case "Image":
		img, err := in.doc.decodeImage(stream)
		if err != nil {
			return
		}
		in.drawImage(img)
	case "Form":
		if depth >= maxFormDepth {
			return
		}
		data, err := stream.Decode()
		if err != nil {
			return
		}
		formResources := resources
		if res, err := in.doc.resolveDict(stream.Dictionary.Get("Resources")); err == nil && res != nil {
			formResources = res
		}
		in.stack = append(in.stack, in.state)
		in.canvas.Save()
		if m := in.doc.resolveArray(stream.Dictionary.Get("Matrix")); len(m) == 6 {
			v := numbers(m)
			if len(v) == 6 {
				in.canvas.Transform(Matrix{v[0], v[1], v[2], v[3], v[4], v[5]})
			}
		}
		in.run(data, formResources, depth+1)
		in.canvas.Restore()
		in.state = in.stack[len(in.stack)-1]
		in.stack = in.stack[:len(in.stack)-1]
	}
}

// drawImage paints img into the unit square of the current matrix, with the
// first image row at the top.
func (in *interpreter) drawImage(img image.Image) {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	m := Matrix{A: 1 / w, D: -1 / h, F: 1}.Multiply(in.canvas.Matrix())
	if _, ok := m.Invert(); !ok {
		return
	}
	s2d := f64.Aff3{m.A, m.C, m.E - m.A*float64(b.Min.X) - m.C*float64(b.Min.Y), m.B, m.D, m.F - m.B*float64(b.Min.X) - m.D*float64(b.Min.Y)}
	dst := in.canvas.Image()
	var opts *xdraw.Options
	if in.state.fillAlpha < 1 {
		opts = &xdraw.Options{SrcMask: image.NewUniform(color.Alpha{channel(in.state.fillAlpha)})}
	}
	xdraw.ApproxBiLinear.Transform(dst, s2d, img, b, draw.Over, opts)
}
