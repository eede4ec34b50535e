package pdf

import "math"

// Point represents a 2D point
type Point struct {
	X, Y float64
}

// Matrix is a PDF transformation matrix [a b c d e f].
type Matrix struct {
	A, B, C, D, E, F float64
}

// IdentityMatrix returns the identity transform
func IdentityMatrix() Matrix {
	return Matrix{1, 0, 0, 1, 0, 0}
}

// TranslateMatrix returns a translation by (tx, ty).
func TranslateMatrix(tx, ty float64) Matrix {
	return Matrix{1, 0, 0, 1, tx, ty}
}

// ScaleMatrix returns a scaling by (sx, sy).
func ScaleMatrix(sx, sy float64) Matrix {
	return Matrix{sx, 0, 0, sy, 0, 0}
}

// RotateMatrix returns a counter-clockwise rotation by degrees.
func RotateMatrix(degrees float64) Matrix {
	s, c := math.Sincos(degrees * math.Pi / 180)
	return Matrix{c, s, -s, c, 0, 0}
}

// Multiply returns m followed by n, which is how PDF composes "cm" operators
// (the new CTM is m × CTM).
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.B*n.C,
		B: m.A*n.B + m.B*n.D,
		C: m.C*n.A + m.D*n.C,
		D: m.C*n.B + m.D*n.D,
		E: m.E*n.A + m.F*n.C + n.E,
		F: m.E*n.B + m.F*n.D + n.F,
	}
}

// Transform applies the matrix to (x, y)
func (m Matrix) Transform(x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.E, m.B*x + m.D*y + m.F
}

// TransformPoint applies the matrix to a Point
func (m Matrix) TransformPoint(p Point) Point {
	x, y := m.Transform(p.X, p.Y)
	return Point{X: x, Y: y}
}

// Invert returns the inverse matrix, or false when m is singular.
func (m Matrix) Invert() (Matrix, bool) {
	det := m.A*m.D - m.B*m.C
	if det == 0 {
		return Matrix{}, false
	}
	return Matrix{
		A: m.D / det,
		B: -m.B / det,
		C: -m.C / det,
		D: m.A / det,
		E: (m.C*m.F - m.D*m.E) / det,
		F: (m.B*m.E - m.A*m.F) / det,
	}, true
}

// Scale returns the geometric mean scale factor of the matrix, used to map
// line widths through a transform.
func (m Matrix) Scale() float64 {
	return math.Sqrt(math.Abs(m.A*m.D - m.B*m.C))
}

// RGB is a device RGB colour with components in [0, 1].
type RGB struct {
	R, G, B float64
}

// Common colours.
var (
	Black = RGB{0, 0, 0}
	White = RGB{1, 1, 1}
)
