package annotate

import "math"

const (
	// hitMargin widens box annotations for the eraser.
	hitMargin = 5
	// strokeHitRadius is the distance within which a stroke point is hit.
	strokeHitRadius = 10
	// labelHitWidth approximates the width of a text or note.
	labelHitWidth = 100
)

func inBox(p Point, x0, y0, x1, y1 float64) bool {
	return p.X >= x0 && p.X <= x1 && p.Y >= y0 && p.Y <= y1
}

func (e Extent) Hit(p Point) bool {
	return inBox(p, e.X-hitMargin, e.Y-hitMargin, e.X+e.Width+hitMargin, e.Y+e.Height+hitMargin)
}

// Hit tests against the bounding box of the two endpoints.
func (a Arrow) Hit(p Point) bool {
	x0, x1 := math.Min(a.X1, a.X2), math.Max(a.X1, a.X2)
	y0, y1 := math.Min(a.Y1, a.Y2), math.Max(a.Y1, a.Y2)
	return inBox(p, x0-hitMargin, y0-hitMargin, x1+hitMargin, y1+hitMargin)
}

func (s Stroke) Hit(p Point) bool {
	for _, q := range s.Points {
		if math.Hypot(q.X-p.X, q.Y-p.Y) < strokeHitRadius {
			return true
		}
	}
	return false
}

// Hit uses a fixed box to the right of and around the baseline anchor.
func (l Label) Hit(p Point) bool {
	return inBox(p, l.X, l.Y-20, l.X+labelHitWidth, l.Y+5)
}

func (m MediaLink) Hit(p Point) bool {
	return inBox(p, m.X, m.Y, m.X+m.Width, m.Y+m.Height)
}

// HitIndex returns the index in anns of the newest annotation on page that
// p hits, or -1.
func HitIndex(anns []Annotation, page int, p Point) int {
	for i := len(anns) - 1; i >= 0; i-- {
		if anns[i].Common().Page == page && anns[i].Hit(p) {
			return i
		}
	}
	return -1
}
