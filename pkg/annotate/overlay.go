package annotate

import (
	"image"
	"image/color"
	"math"

	"github.com/novvoo/go-pdfdesk/pkg/pdf"
)

const (
	highlightAlpha = 0.3
	arrowHeadSize  = 15
	arrowWingAngle = math.Pi / 6
	mediaBorder    = 3
	noteGlyph      = "¶ "
)

var overlayMediaFill = map[Kind]color.NRGBA{
	KindVideo: {R: 0xff, A: 0xff},
	KindAudio: {R: 0x4c, G: 0xaf, B: 0x50, A: 0xff},
	KindLink:  {R: 0x21, G: 0x96, B: 0xf3, A: 0xff},
}

var mediaGlyphs = map[Kind]string{
	KindVideo: "►",
	KindAudio: "♪",
	KindLink:  "→",
}

// RenderOverlay clears dst to transparent and draws the annotations on page
// in collection order, so later annotations paint over earlier ones.
func RenderOverlay(dst *image.RGBA, anns []Annotation, page int) {
	c := pdf.NewCanvasFor(dst)
	c.Clear(color.Transparent)
	for _, a := range anns {
		if a.Common().Page == page {
			drawAnnotation(c, a)
		}
	}
}

func drawAnnotation(c *pdf.Canvas, a Annotation) {
	c.Save()
	defer c.Restore()
	a.drawOverlay(c)
}

func lineWidthOr(w float64) float64 {
	if w <= 0 {
		return defaultLineWidth
	}
	return w
}

func (e Extent) drawOverlay(c *pdf.Canvas) {
	c.SetLineWidth(lineWidthOr(e.LineWidth))
	switch e.Kind {
	case KindHighlight:
		c.SetSourceColor(e.Color.NRGBA(highlightAlpha))
		c.Rectangle(e.X, e.Y, e.Width, e.Height)
		c.Fill()
		return
	case KindUnderline:
		c.MoveTo(e.X, e.Y+e.Height)
		c.LineTo(e.X+e.Width, e.Y+e.Height)
	case KindStrikethrough:
		c.MoveTo(e.X, e.Y+e.Height/2)
		c.LineTo(e.X+e.Width, e.Y+e.Height/2)
	case KindRectangle:
		c.Rectangle(e.X, e.Y, e.Width, e.Height)
	case KindCircle:
		c.Ellipse(e.X+e.Width/2, e.Y+e.Height/2, e.Width/2, e.Height/2)
	}
	c.SetSourceColor(e.Color.NRGBA(1))
	c.Stroke()
}

func (a Arrow) drawOverlay(c *pdf.Canvas) {
	c.SetSourceColor(a.Color.NRGBA(1))
	c.SetLineWidth(lineWidthOr(a.LineWidth))
	c.MoveTo(a.X1, a.Y1)
	c.LineTo(a.X2, a.Y2)
	c.Stroke()

	head := arrowHead(pdf.Point{X: a.X1, Y: a.Y1}, pdf.Point{X: a.X2, Y: a.Y2}, arrowHeadSize)
	c.MoveTo(head[0].X, head[0].Y)
	c.LineTo(head[1].X, head[1].Y)
	c.LineTo(head[2].X, head[2].Y)
	c.ClosePath()
	c.Fill()
}

// arrowHead returns the tip and the two wing points of an arrow pointing
// from start to end.
func arrowHead(start, end pdf.Point, size float64) [3]pdf.Point {
	angle := math.Atan2(end.Y-start.Y, end.X-start.X)
	return [3]pdf.Point{
		end,
		{X: end.X - size*math.Cos(angle-arrowWingAngle), Y: end.Y - size*math.Sin(angle-arrowWingAngle)},
		{X: end.X - size*math.Cos(angle+arrowWingAngle), Y: end.Y - size*math.Sin(angle+arrowWingAngle)},
	}
}

func (s Stroke) drawOverlay(c *pdf.Canvas) {
	if len(s.Points) < 2 {
		return
	}
	c.SetSourceColor(s.Color.NRGBA(1))
	c.SetLineWidth(lineWidthOr(s.LineWidth))
	c.MoveTo(s.Points[0].X, s.Points[0].Y)
	for _, p := range s.Points[1:] {
		c.LineTo(p.X, p.Y)
	}
	c.Stroke()
}

func (l Label) drawOverlay(c *pdf.Canvas) {
	c.SetSourceColor(l.Color.NRGBA(1))
	size := l.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	if l.Kind == KindNote {
		c.SetFont(pdf.HelveticaBold, size)
		c.ShowText(l.X, l.Y, noteGlyph+l.Text)
		return
	}
	c.SetFont(l.Font, size)
	c.ShowText(l.X, l.Y, l.Text)
}

func (m MediaLink) drawOverlay(c *pdf.Canvas) {
	c.SetSourceColor(overlayMediaFill[m.Kind])
	c.Rectangle(m.X, m.Y, m.Width, m.Height)
	c.Fill()

	c.SetSourceColor(color.White)
	c.SetLineWidth(mediaBorder)
	c.Rectangle(m.X, m.Y, m.Width, m.Height)
	c.Stroke()

	c.SetFont(pdf.Helvetica, math.Min(m.Width, m.Height)/2)
	c.ShowTextCentered(m.X+m.Width/2, m.Y+m.Height/2, mediaGlyphs[m.Kind])
}
