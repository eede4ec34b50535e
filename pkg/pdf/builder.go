package pdf

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"math"
	"slices"
)

// Producer is written to the Info dictionary of every saved document.
const Producer = "pdfdesk"

// Builder assembles a new document from copied and freshly created pages.
// Object numbers are the index in objects plus one.
type Builder struct {
	objects  []Object
	pagesRef Reference
	pages    []*BuilderPage
	fonts    map[string]*Font
	gstates  map[[2]float64]*extGState
	info     Dictionary
}

type extGState struct {
	name Name
	ref  Reference
}

// NewBuilder returns an empty document builder.
func NewBuilder() *Builder {
	b := &Builder{
		fonts:   make(map[string]*Font),
		gstates: make(map[[2]float64]*extGState),
		info:    Dictionary{},
	}
	b.pagesRef = b.add(Null{})
	return b
}

func (b *Builder) add(obj Object) Reference {
	b.objects = append(b.objects, obj)
	return Reference{ObjectNumber: len(b.objects)}
}

func (b *Builder) set(ref Reference, obj Object) {
	b.objects[ref.ObjectNumber-1] = obj
}

func (b *Builder) lookup(obj Object) Object {
	if ref, ok := obj.(Reference); ok && ref.ObjectNumber > 0 && ref.ObjectNumber <= len(b.objects) {
		return b.objects[ref.ObjectNumber-1]
	}
	return obj
}

// SetInfo sets a text entry of the Info dictionary, e.g. "Title".
func (b *Builder) SetInfo(key, value string) {
	b.info[Name(key)] = String{Value: []byte(value)}
}

// Pages returns the pages added so far, in order.
func (b *Builder) Pages() []*BuilderPage {
	return b.pages
}

// NumPages returns the number of pages added so far.
func (b *Builder) NumPages() int {
	return len(b.pages)
}

// AddPage appends a page to the page tree.
func (b *Builder) AddPage(p *BuilderPage) {
	b.pages = append(b.pages, p)
}

// NewPage creates and appends an empty page of the given size.
func (b *Builder) NewPage(width, height float64) *BuilderPage {
	p := &BuilderPage{
		b:         b,
		dict:      Dictionary{"Type": Name("Page")},
		mediaBox:  Rectangle{URX: width, URY: height},
		resources: Dictionary{},
	}
	p.cropBox = p.mediaBox
	p.ref = b.add(Null{})
	b.AddPage(p)
	return p
}

// CopyPages deep-copies the pages at the given 0-based indices of src into
// the builder. The pages are not added to the page tree; call AddPage.
// References to pages of src that are not copied become null.
func (b *Builder) CopyPages(src *Document, indices []int) ([]*BuilderPage, error) {
	c := &copier{b: b, src: src, refs: make(map[int]Reference)}

	out := make([]*BuilderPage, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= src.NumPages() {
			return nil, fmt.Errorf("copy page index %d: %w", idx, ErrPageOutOfRange)
		}
		page := src.Pages[idx]
		ref := b.add(Null{})
		if page.Ref.ObjectNumber > 0 {
			c.refs[page.Ref.ObjectNumber] = ref
		}
		out[i] = &BuilderPage{b: b, ref: ref, mediaBox: page.MediaBox, cropBox: page.CropBox, rotate: page.Rotate}
	}

	for i, idx := range indices {
		page := src.Pages[idx]
		bp := out[i]

		dict := Dictionary{}
		for k, v := range page.Dictionary {
			switch k {
			case "Parent", "MediaBox", "CropBox", "Rotate", "Resources", "Contents":
				continue
			}
			copied, err := c.copy(v)
			if err != nil {
				return nil, fmt.Errorf("copy page %d: %w", idx+1, err)
			}
			dict[k] = copied
		}
		dict["Type"] = Name("Page")
		bp.dict = dict

		res, err := c.copy(page.Resources)
		if err != nil {
			return nil, fmt.Errorf("copy page %d resources: %w", idx+1, err)
		}
		bp.resources, _ = res.(Dictionary)
		if bp.resources == nil {
			bp.resources = Dictionary{}
		}

		contents, err := src.ResolveObject(page.Dictionary.Get("Contents"))
		if err != nil {
			return nil, fmt.Errorf("copy page %d contents: %w", idx+1, err)
		}
		switch v := contents.(type) {
		case Stream:
			ref, err := c.copy(page.Dictionary.Get("Contents"))
			if err != nil {
				return nil, err
			}
			bp.contents = Array{ref}
		case Array:
			for _, item := range v {
				ref, err := c.copy(item)
				if err != nil {
					return nil, err
				}
				bp.contents = append(bp.contents, ref)
			}
		}
	}
	return out, nil
}

// copier maps objects of one source document into a Builder.
type copier struct {
	b    *Builder
	src  *Document
	refs map[int]Reference
}

func (c *copier) copy(obj Object) (Object, error) {
	switch v := obj.(type) {
	case Reference:
		if ref, ok := c.refs[v.ObjectNumber]; ok {
			return ref, nil
		}
		target, err := c.src.GetObject(v.ObjectNumber)
		if err != nil {
			return nil, err
		}
		if d, ok := target.(Dictionary); ok {
			if t, _ := d.GetName("Type"); t == "Page" || t == "Pages" {
				return Null{}, nil
			}
		}
		ref := c.b.add(Null{})
		c.refs[v.ObjectNumber] = ref
		copied, err := c.copy(target)
		if err != nil {
			return nil, err
		}
		c.b.set(ref, copied)
		return ref, nil
	case Array:
		out := make(Array, len(v))
		for i, item := range v {
			copied, err := c.copy(item)
			if err != nil {
				return nil, err
			}
			out[i] = copied
		}
		return out, nil
	case Dictionary:
		out := make(Dictionary, len(v))
		for k, item := range v {
			copied, err := c.copy(item)
			if err != nil {
				return nil, err
			}
			out[k] = copied
		}
		return out, nil
	case Stream:
		dict := v.Dictionary.Clone()
		delete(dict, "Length")
		copied, err := c.copy(dict)
		if err != nil {
			return nil, err
		}
		return Stream{Dictionary: copied.(Dictionary), Data: v.Data}, nil
	case nil:
		return nil, nil
	}
	return obj, nil
}

// Save serialises the document. The builder can keep being used afterwards.
func (b *Builder) Save() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := b.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes the serialised document to w.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	objects := slices.Clone(b.objects)
	add := func(obj Object) Reference {
		objects = append(objects, obj)
		return Reference{ObjectNumber: len(objects)}
	}

	kids := make(Array, 0, len(b.pages))
	for _, p := range b.pages {
		dict, err := p.finish(add)
		if err != nil {
			return 0, err
		}
		objects[p.ref.ObjectNumber-1] = dict
		kids = append(kids, p.ref)
	}
	objects[b.pagesRef.ObjectNumber-1] = Dictionary{
		"Type":  Name("Pages"),
		"Kids":  kids,
		"Count": Integer(len(kids)),
	}
	catalog := add(Dictionary{"Type": Name("Catalog"), "Pages": b.pagesRef})
	info := b.info.Clone()
	info["Producer"] = String{Value: []byte(Producer)}
	infoRef := add(info)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		writeObject(&buf, obj)
		buf.WriteString("\nendobj\n")
	}

	id := md5.Sum(buf.Bytes())
	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	buf.WriteString("trailer\n")
	writeObject(&buf, Dictionary{
		"Size": Integer(len(objects) + 1),
		"Root": catalog,
		"Info": infoRef,
		"ID":   Array{String{Value: id[:], IsHex: true}, String{Value: id[:], IsHex: true}},
	})
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// BuilderPage is a page under construction. Drawing operations are collected
// in an overlay content stream painted above the original contents.
type BuilderPage struct {
	b         *Builder
	ref       Reference
	dict      Dictionary
	mediaBox  Rectangle
	cropBox   Rectangle
	rotate    int
	resources Dictionary
	contents  Array
	overlay   bytes.Buffer
	links     Array
}

// Size returns the width and height of the media box.
func (p *BuilderPage) Size() (width, height float64) {
	return p.mediaBox.Width(), p.mediaBox.Height()
}

// Rotation returns the page rotation in degrees.
func (p *BuilderPage) Rotation() int {
	return p.rotate
}

// SetRotation changes the page rotation. It is normalised to 0, 90, 180 or 270.
func (p *BuilderPage) SetRotation(degrees int) {
	p.rotate = NormalizeRotation(degrees)
}

func (p *BuilderPage) finish(add func(Object) Reference) (Dictionary, error) {
	dict := p.dict.Clone()
	dict["Parent"] = p.b.pagesRef
	dict["MediaBox"] = rectangleToArray(p.mediaBox)
	if p.cropBox != p.mediaBox {
		dict["CropBox"] = rectangleToArray(p.cropBox)
	}
	if p.rotate != 0 {
		dict["Rotate"] = Integer(p.rotate)
	}
	dict["Resources"] = p.resources

	contents := slices.Clone(p.contents)
	if p.overlay.Len() > 0 {
		var ops bytes.Buffer
		if p.mediaBox.LLX != 0 || p.mediaBox.LLY != 0 {
			fmt.Fprintf(&ops, "1 0 0 1 %s %s cm\n", formatReal(p.mediaBox.LLX), formatReal(p.mediaBox.LLY))
		}
		ops.Write(p.overlay.Bytes())
		data, err := flateEncode(ops.Bytes())
		if err != nil {
			return nil, fmt.Errorf("compress overlay: %w", err)
		}
		overlay := add(Stream{Dictionary: Dictionary{"Filter": Name("FlateDecode")}, Data: data})
		if len(contents) > 0 {
			open := add(Stream{Dictionary: Dictionary{}, Data: []byte("q\n")})
			closing := add(Stream{Dictionary: Dictionary{}, Data: []byte("\nQ\n")})
			contents = append(append(Array{open}, contents...), closing)
		}
		contents = append(contents, overlay)
	}
	switch len(contents) {
	case 0:
		delete(dict, "Contents")
	case 1:
		dict["Contents"] = contents[0]
	default:
		dict["Contents"] = contents
	}

	if len(p.links) > 0 {
		var annots Array
		switch v := p.b.lookup(dict.Get("Annots")).(type) {
		case Array:
			annots = slices.Clone(v)
		}
		dict["Annots"] = append(annots, p.links...)
	}
	return dict, nil
}

// addResource registers ref under name in a resource category such as
// /Font or /ExtGState.
func (p *BuilderPage) addResource(category, name Name, ref Reference) {
	sub := Dictionary{}
	if existing, ok := p.b.lookup(p.resources[category]).(Dictionary); ok {
		sub = existing.Clone()
	}
	sub[name] = ref
	p.resources[category] = sub
}

// graphicsState returns the resource name of an ExtGState with the given
// fill and stroke alpha, or "" when both are opaque.
func (p *BuilderPage) graphicsState(fill, stroke float64) Name {
	fill, stroke = alpha(fill), alpha(stroke)
	if fill == 1 && stroke == 1 {
		return ""
	}
	key := [2]float64{fill, stroke}
	gs, ok := p.b.gstates[key]
	if !ok {
		gs = &extGState{
			name: Name(fmt.Sprintf("DkGS%d", len(p.b.gstates)+1)),
			ref: p.b.add(Dictionary{
				"Type": Name("ExtGState"),
				"ca":   Real(fill),
				"CA":   Real(stroke),
			}),
		}
		p.b.gstates[key] = gs
	}
	p.addResource("ExtGState", gs.name, gs.ref)
	return gs.name
}

// alpha maps an unset (zero) opacity to opaque and clamps to [0, 1].
func alpha(v float64) float64 {
	if v <= 0 || v > 1 {
		return 1
	}
	return v
}

func (p *BuilderPage) op(format string, args ...float64) {
	for i, a := range args {
		if i > 0 {
			p.overlay.WriteByte(' ')
		}
		p.overlay.WriteString(formatReal(a))
	}
	if len(args) > 0 {
		p.overlay.WriteByte(' ')
	}
	p.overlay.WriteString(format)
	p.overlay.WriteByte('\n')
}

func (p *BuilderPage) begin(fillOpacity, strokeOpacity float64) {
	p.overlay.WriteString("q\n")
	if gs := p.graphicsState(fillOpacity, strokeOpacity); gs != "" {
		writeName(&p.overlay, gs)
		p.overlay.WriteString(" gs\n")
	}
}

// paint sets colours and width then emits the painting operator for the
// current path.
func (p *BuilderPage) paint(fill, border *RGB, borderWidth float64) {
	if fill != nil {
		p.op("rg", fill.R, fill.G, fill.B)
	}
	stroke := border != nil && borderWidth > 0
	if stroke {
		p.op("RG", border.R, border.G, border.B)
		p.op("w", borderWidth)
	}
	switch {
	case fill != nil && stroke:
		p.op("B")
	case fill != nil:
		p.op("f")
	case stroke:
		p.op("S")
	default:
		p.op("n")
	}
}

// RectangleOptions describes a rectangle with its lower-left corner at (X, Y).
// A nil Color leaves the interior unpainted. Zero opacities mean opaque.
type RectangleOptions struct {
	X, Y, Width, Height float64
	Color               *RGB
	BorderColor         *RGB
	BorderWidth         float64
	Opacity             float64
	BorderOpacity       float64
}

// DrawRectangle paints a rectangle.
func (p *BuilderPage) DrawRectangle(o RectangleOptions) {
	p.begin(o.Opacity, o.BorderOpacity)
	p.op("re", o.X, o.Y, o.Width, o.Height)
	p.paint(o.Color, o.BorderColor, o.BorderWidth)
	p.op("Q")
}

// LineOptions describes a straight stroked line.
type LineOptions struct {
	Start, End Point
	Thickness  float64
	Color      RGB
	Opacity    float64
}

// DrawLine strokes a line with round caps.
func (p *BuilderPage) DrawLine(o LineOptions) {
	if o.Thickness <= 0 {
		o.Thickness = 1
	}
	p.begin(1, o.Opacity)
	p.op("RG", o.Color.R, o.Color.G, o.Color.B)
	p.op("w", o.Thickness)
	p.op("1 J")
	p.op("m", o.Start.X, o.Start.Y)
	p.op("l", o.End.X, o.End.Y)
	p.op("S")
	p.op("Q")
}

// EllipseOptions describes an ellipse centred at (X, Y) with radii XScale
// and YScale.
type EllipseOptions struct {
	X, Y           float64
	XScale, YScale float64
	Color          *RGB
	BorderColor    *RGB
	BorderWidth    float64
	Opacity        float64
}

// kappa places Bezier control points so four curves approximate a circle.
const kappa = 0.5522847498

// DrawEllipse paints an ellipse built from four Bezier curves.
func (p *BuilderPage) DrawEllipse(o EllipseOptions) {
	rx, ry := math.Abs(o.XScale), math.Abs(o.YScale)
	ox, oy := rx*kappa, ry*kappa
	cx, cy := o.X, o.Y

	p.begin(o.Opacity, o.Opacity)
	p.op("m", cx-rx, cy)
	p.op("c", cx-rx, cy+oy, cx-ox, cy+ry, cx, cy+ry)
	p.op("c", cx+ox, cy+ry, cx+rx, cy+oy, cx+rx, cy)
	p.op("c", cx+rx, cy-oy, cx+ox, cy-ry, cx, cy-ry)
	p.op("c", cx-ox, cy-ry, cx-rx, cy-oy, cx-rx, cy)
	p.op("h")
	p.paint(o.Color, o.BorderColor, o.BorderWidth)
	p.op("Q")
}

// PolygonOptions describes a closed polygon.
type PolygonOptions struct {
	Points      []Point
	Color       *RGB
	BorderColor *RGB
	BorderWidth float64
	Opacity     float64
}

// DrawPolygon paints a closed polygon. Fewer than two points draw nothing.
func (p *BuilderPage) DrawPolygon(o PolygonOptions) {
	if len(o.Points) < 2 {
		return
	}
	p.begin(o.Opacity, o.Opacity)
	p.op("m", o.Points[0].X, o.Points[0].Y)
	for _, pt := range o.Points[1:] {
		p.op("l", pt.X, pt.Y)
	}
	p.op("h")
	p.paint(o.Color, o.BorderColor, o.BorderWidth)
	p.op("Q")
}

// TextOptions places a single line of text with its baseline origin at
// (X, Y). Rotate is in degrees counter-clockwise.
type TextOptions struct {
	X, Y    float64
	Size    float64
	Font    *Font
	Color   RGB
	Rotate  float64
	Opacity float64
}

// DrawText shows text in one of the builder's fonts.
func (p *BuilderPage) DrawText(text string, o TextOptions) error {
	if o.Font == nil {
		return fmt.Errorf("draw text %q: no font", text)
	}
	encoded := o.Font.encode(text)
	p.addResource("Font", o.Font.resName, o.Font.ref)

	sin, cos := math.Sincos(o.Rotate * math.Pi / 180)
	p.begin(o.Opacity, 1)
	p.op("BT")
	writeName(&p.overlay, o.Font.resName)
	p.overlay.WriteByte(' ')
	p.op("Tf", o.Size)
	p.op("rg", o.Color.R, o.Color.G, o.Color.B)
	p.op("Tm", cos, sin, -sin, cos, o.X, o.Y)
	writeString(&p.overlay, String{Value: encoded})
	p.overlay.WriteString(" Tj\n")
	p.op("ET")
	p.op("Q")
	return nil
}

// AddLink attaches a borderless URI link annotation covering rect, given in
// the same page-relative coordinates as the drawing operations.
func (p *BuilderPage) AddLink(rect Rectangle, uri string) {
	rect = rect.Normalize()
	rect.LLX += p.mediaBox.LLX
	rect.URX += p.mediaBox.LLX
	rect.LLY += p.mediaBox.LLY
	rect.URY += p.mediaBox.LLY
	ref := p.b.add(Dictionary{
		"Type":    Name("Annot"),
		"Subtype": Name("Link"),
		"Rect":    rectangleToArray(rect),
		"Border":  Array{Integer(0), Integer(0), Integer(0)},
		"P":       p.ref,
		"A": Dictionary{
			"Type": Name("Action"),
			"S":    Name("URI"),
			"URI":  String{Value: []byte(uri)},
		},
	})
	p.links = append(p.links, ref)
}
