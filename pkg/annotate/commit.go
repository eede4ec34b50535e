package annotate

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/novvoo/go-pdfdesk/pkg/pdf"
)

// PageWriter is the drawing surface of one output page. Coordinates are
// PDF user units relative to the page's lower-left corner.
type PageWriter interface {
	Size() (width, height float64)
	Rotation() int
	DrawRectangle(o pdf.RectangleOptions)
	DrawLine(o pdf.LineOptions)
	DrawEllipse(o pdf.EllipseOptions)
	DrawPolygon(o pdf.PolygonOptions)
	DrawText(text string, o pdf.TextOptions) error
	AddLink(rect pdf.Rectangle, uri string)
}

// FontEmbedder registers standard fonts with the output document.
type FontEmbedder interface {
	EmbedFont(name string) (*pdf.Font, error)
}

const (
	mediaLabelSize   = 10
	mediaBorderWidth = 2
	notePrefix       = "Note: "
)

// commitFonts are the names text annotations may use as-is; anything else
// is drawn in Helvetica.
var commitFonts = map[string]bool{
	pdf.Helvetica: true, pdf.HelveticaBold: true, pdf.HelveticaOblique: true, pdf.HelveticaBoldOblique: true,
	pdf.TimesRoman: true, pdf.TimesBold: true, pdf.TimesItalic: true, pdf.TimesBoldItalic: true,
	pdf.Courier: true, pdf.CourierBold: true, pdf.CourierOblique: true, pdf.CourierBoldOblique: true,
}

func commitFont(name string) string {
	if commitFonts[name] {
		return name
	}
	return pdf.Helvetica
}

var commitMediaFill = map[Kind]pdf.RGB{
	KindVideo: {R: 1, G: 0, B: 0},
	KindAudio: {R: 0.3, G: 0.7, B: 0.3},
	KindLink:  {R: 0.1, G: 0.6, B: 1},
}

var mediaLabels = map[Kind]string{
	KindVideo: "VIDEO",
	KindAudio: "AUDIO",
	KindLink:  "LINK",
}

// commitEnv is the per-annotation context of a commit.
type commitEnv struct {
	geom  PageGeometry
	fonts map[string]*pdf.Font
}

// Commit draws every annotation onto its page of pages, in collection
// order. Page numbers are 1-based indexes into pages; annotations on pages
// that do not exist are skipped. The first failing annotation aborts the
// commit with a *CommitError.
func Commit[P PageWriter](pages []P, fonts FontEmbedder, anns []Annotation, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	embedded, err := embedFonts(fonts, anns, logger)
	if err != nil {
		return err
	}

	for i, a := range anns {
		base := a.Common()
		if base.Page < 1 || base.Page > len(pages) {
			logger.Debug("skipping annotation on missing page",
				"index", i, "kind", base.Kind, "page", base.Page, "pages", len(pages))
			continue
		}
		if err := a.validate(); err != nil {
			return &CommitError{Index: i, Kind: base.Kind, Err: err}
		}

		page := pages[base.Page-1]
		w, h := page.Size()
		env := &commitEnv{
			geom:  PageGeometry{Width: w, Height: h, Rotation: pdf.NormalizeRotation(page.Rotation())},
			fonts: embedded,
		}
		if err := a.commit(page, env); err != nil {
			return &CommitError{Index: i, Kind: base.Kind, Err: err}
		}
	}
	return nil
}

// embedFonts registers each font the annotations need exactly once.
func embedFonts(fonts FontEmbedder, anns []Annotation, logger *slog.Logger) (map[string]*pdf.Font, error) {
	var names []string
	seen := make(map[string]bool)
	need := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, a := range anns {
		switch v := a.(type) {
		case Label:
			if v.Kind == KindNote {
				need(pdf.Helvetica)
			} else {
				need(commitFont(v.Font))
			}
		case MediaLink:
			need(pdf.HelveticaBold)
		}
	}

	embedded := make(map[string]*pdf.Font, len(names))
	for _, name := range names {
		f, err := fonts.EmbedFont(name)
		if err != nil {
			return nil, fmt.Errorf("embed font %s: %w", name, err)
		}
		logger.Debug("embedded font", "font", name)
		embedded[name] = f
	}
	return embedded, nil
}

func (e Extent) commit(w PageWriter, env *commitEnv) error {
	box := env.geom.physBox(e.X, e.Y, e.Width, e.Height, e.Viewport)
	rgb := e.Color.RGB()
	lw := lineWidthOr(e.LineWidth)

	switch e.Kind {
	case KindHighlight:
		w.DrawRectangle(pdf.RectangleOptions{
			X: box.LLX, Y: box.LLY, Width: box.Width(), Height: box.Height(),
			Color:   &rgb,
			Opacity: highlightAlpha,
		})
	case KindRectangle:
		w.DrawRectangle(pdf.RectangleOptions{
			X: box.LLX, Y: box.LLY, Width: box.Width(), Height: box.Height(),
			BorderColor: &rgb,
			BorderWidth: lw,
		})
	case KindCircle:
		w.DrawEllipse(pdf.EllipseOptions{
			X:           box.LLX + box.Width()/2,
			Y:           box.LLY + box.Height()/2,
			XScale:      box.Width() / 2,
			YScale:      box.Height() / 2,
			BorderColor: &rgb,
			BorderWidth: lw,
		})
	case KindUnderline:
		w.DrawLine(pdf.LineOptions{
			Start:     pdf.Point{X: box.LLX, Y: box.LLY},
			End:       pdf.Point{X: box.URX, Y: box.LLY},
			Thickness: lw,
			Color:     rgb,
		})
	case KindStrikethrough:
		y := box.LLY + box.Height()/2
		w.DrawLine(pdf.LineOptions{
			Start:     pdf.Point{X: box.LLX, Y: y},
			End:       pdf.Point{X: box.URX, Y: y},
			Thickness: lw,
			Color:     rgb,
		})
	}
	return nil
}

// commit draws the shaft and a filled head. The head keeps its on-screen
// size by scaling with the page-to-viewport area ratio.
func (a Arrow) commit(w PageWriter, env *commitEnv) error {
	start := env.geom.toPDF(Point{X: a.X1, Y: a.Y1}, a.Viewport)
	end := env.geom.toPDF(Point{X: a.X2, Y: a.Y2}, a.Viewport)
	rgb := a.Color.RGB()

	w.DrawLine(pdf.LineOptions{Start: start, End: end, Thickness: lineWidthOr(a.LineWidth), Color: rgb})

	size := arrowHeadSize * math.Sqrt(env.geom.Width*env.geom.Height/(a.Viewport.Width*a.Viewport.Height))
	head := arrowHead(start, end, size)
	w.DrawPolygon(pdf.PolygonOptions{Points: head[:], Color: &rgb})
	return nil
}

func (s Stroke) commit(w PageWriter, env *commitEnv) error {
	rgb := s.Color.RGB()
	lw := lineWidthOr(s.LineWidth)
	for i := 0; i+1 < len(s.Points); i++ {
		w.DrawLine(pdf.LineOptions{
			Start:     env.geom.toPDF(s.Points[i], s.Viewport),
			End:       env.geom.toPDF(s.Points[i+1], s.Viewport),
			Thickness: lw,
			Color:     rgb,
		})
	}
	return nil
}

func (l Label) commit(w PageWriter, env *commitEnv) error {
	text, name := l.Text, commitFont(l.Font)
	if l.Kind == KindNote {
		text, name = notePrefix+l.Text, pdf.Helvetica
	}
	size := l.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	anchor := env.geom.toPDF(Point{X: l.X, Y: l.Y}, l.Viewport)

	return w.DrawText(text, pdf.TextOptions{
		X:      anchor.X,
		Y:      anchor.Y,
		Size:   size * env.geom.fontScale(l.Viewport),
		Font:   env.fonts[name],
		Color:  l.Color.RGB(),
		Rotate: -float64(env.geom.Rotation),
	})
}

func (m MediaLink) commit(w PageWriter, env *commitEnv) error {
	box := env.geom.physBox(m.X, m.Y, m.Width, m.Height, m.Viewport)
	fill := commitMediaFill[m.Kind]
	white := pdf.White

	w.DrawRectangle(pdf.RectangleOptions{
		X: box.LLX, Y: box.LLY, Width: box.Width(), Height: box.Height(),
		Color:       &fill,
		BorderColor: &white,
		BorderWidth: mediaBorderWidth,
	})
	err := w.DrawText(mediaLabels[m.Kind], pdf.TextOptions{
		X:     box.LLX + 5,
		Y:     box.LLY + box.Height()/2 - 5,
		Size:  mediaLabelSize,
		Font:  env.fonts[pdf.HelveticaBold],
		Color: pdf.White,
	})
	if err != nil {
		return err
	}
	w.AddLink(box, m.URL)
	return nil
}
