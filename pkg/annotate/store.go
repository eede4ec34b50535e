package annotate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// FileVersion is the annotation file format version written by Save.
const FileVersion = 1

// File is the on-disk form of an annotation collection.
type File struct {
	Version     int      `yaml:"version" validate:"eq=1"`
	Annotations []Record `yaml:"annotations" validate:"dive"`
}

// Record is one annotation flattened into the fields of all variants.
// Fields a kind does not use are left empty.
type Record struct {
	Kind           string  `yaml:"kind" validate:"required"`
	Page           int     `yaml:"page" validate:"min=1"`
	Color          string  `yaml:"color" validate:"required,hexcolor"`
	ViewportWidth  float64 `yaml:"viewport_width" validate:"gt=0"`
	ViewportHeight float64 `yaml:"viewport_height" validate:"gt=0"`

	X      float64 `yaml:"x,omitempty"`
	Y      float64 `yaml:"y,omitempty"`
	Width  float64 `yaml:"width,omitempty" validate:"gte=0"`
	Height float64 `yaml:"height,omitempty" validate:"gte=0"`

	X1 float64 `yaml:"x1,omitempty"`
	Y1 float64 `yaml:"y1,omitempty"`
	X2 float64 `yaml:"x2,omitempty"`
	Y2 float64 `yaml:"y2,omitempty"`

	Points    []Point `yaml:"points,omitempty"`
	LineWidth float64 `yaml:"line_width,omitempty" validate:"gte=0"`

	Text     string  `yaml:"text,omitempty"`
	Font     string  `yaml:"font,omitempty"`
	FontSize float64 `yaml:"font_size,omitempty" validate:"gte=0"`
	URL      string  `yaml:"url,omitempty"`
}

// NewRecord flattens an annotation.
func NewRecord(a Annotation) Record {
	base := a.Common()
	r := Record{
		Kind:           string(base.Kind),
		Page:           base.Page,
		Color:          base.Color.Hex(),
		ViewportWidth:  base.Viewport.Width,
		ViewportHeight: base.Viewport.Height,
	}
	switch v := a.(type) {
	case Extent:
		r.X, r.Y, r.Width, r.Height = v.X, v.Y, v.Width, v.Height
		r.LineWidth = v.LineWidth
	case Arrow:
		r.X1, r.Y1, r.X2, r.Y2 = v.X1, v.Y1, v.X2, v.Y2
		r.LineWidth = v.LineWidth
	case Stroke:
		r.Points = slices.Clone(v.Points)
		r.LineWidth = v.LineWidth
	case Label:
		r.X, r.Y = v.X, v.Y
		r.Text, r.Font, r.FontSize = v.Text, v.Font, v.FontSize
	case MediaLink:
		r.X, r.Y, r.Width, r.Height = v.X, v.Y, v.Width, v.Height
		r.URL = v.URL
	}
	return r
}

// Annotation rebuilds and validates the annotation a record describes.
func (r Record) Annotation() (Annotation, error) {
	kind, err := ParseKind(r.Kind)
	if err != nil {
		return nil, err
	}
	c, err := ParseColor(r.Color)
	if err != nil {
		return nil, err
	}
	base := Base{
		Kind:     kind,
		Page:     r.Page,
		Color:    c,
		Viewport: Viewport{Width: r.ViewportWidth, Height: r.ViewportHeight},
	}

	var a Annotation
	switch {
	case kind.IsExtent():
		a = Extent{Base: base, X: r.X, Y: r.Y, Width: r.Width, Height: r.Height, LineWidth: r.LineWidth}
	case kind == KindArrow:
		a = Arrow{Base: base, X1: r.X1, Y1: r.Y1, X2: r.X2, Y2: r.Y2, LineWidth: r.LineWidth}
	case kind == KindFreeform:
		a = Stroke{Base: base, Points: slices.Clone(r.Points), LineWidth: r.LineWidth}
	case kind.IsLabel():
		a = Label{Base: base, X: r.X, Y: r.Y, Text: r.Text, Font: r.Font, FontSize: r.FontSize}
	default:
		a = MediaLink{Base: base, X: r.X, Y: r.Y, Width: r.Width, Height: r.Height, URL: r.URL}
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Save writes the annotations as a YAML annotation file.
func Save(w io.Writer, anns []Annotation) error {
	f := File{Version: FileVersion, Annotations: make([]Record, 0, len(anns))}
	for _, a := range anns {
		f.Annotations = append(f.Annotations, NewRecord(a))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode annotations: %w", err)
	}
	return enc.Close()
}

// Load reads a YAML annotation file. Every record is validated; the first
// bad record fails the whole load.
func Load(r io.Reader) ([]Annotation, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: annotation file: %v", ErrInvalidInput, err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("%w: annotation file: %v", ErrInvalidInput, err)
	}

	anns := make([]Annotation, 0, len(f.Annotations))
	for i, rec := range f.Annotations {
		a, err := rec.Annotation()
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
		anns = append(anns, a)
	}
	return anns, nil
}

// SaveFile writes the annotations to path.
func SaveFile(path string, anns []Annotation) error {
	var buf bytes.Buffer
	if err := Save(&buf, anns); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// LoadFile reads annotations from path.
func LoadFile(path string) ([]Annotation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SanitizeFilename replaces every character outside [A-Za-z0-9_-] with an
// underscore and truncates the result to 100 bytes.
func SanitizeFilename(name string) string {
	s := unsafeFilenameChars.ReplaceAllString(name, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
