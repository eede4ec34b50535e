package pdf

import (
	"fmt"
	"strings"
)

// PageAnnotation is an annotation read back from a page's /Annots array.
type PageAnnotation struct {
	Subtype  string
	Rect     Rectangle
	Contents string
	// URI is set for links whose action is a URI action.
	URI string
}

// IsLink reports whether the annotation is a link.
func (a PageAnnotation) IsLink() bool {
	return a.Subtype == "Link"
}

func (a PageAnnotation) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%.2f %.2f %.2f %.2f]", a.Subtype, a.Rect.LLX, a.Rect.LLY, a.Rect.URX, a.Rect.URY)
	if a.URI != "" {
		fmt.Fprintf(&sb, " -> %s", a.URI)
	}
	if a.Contents != "" {
		fmt.Fprintf(&sb, " %q", a.Contents)
	}
	return sb.String()
}

// Annotations returns the annotations of the page. Entries that do not
// resolve to a dictionary are skipped.
func (p *Page) Annotations() ([]PageAnnotation, error) {
	annots := p.doc.resolveArray(p.Dictionary.Get("Annots"))
	var out []PageAnnotation
	for _, ref := range annots {
		dict, err := p.doc.resolveDict(ref)
		if err != nil {
			return nil, fmt.Errorf("page %d annotation: %w", p.Number, err)
		}
		if dict == nil {
			continue
		}
		out = append(out, p.doc.parseAnnotation(dict))
	}
	return out, nil
}

// Links returns the link annotations of the page.
func (p *Page) Links() ([]PageAnnotation, error) {
	annots, err := p.Annotations()
	if err != nil {
		return nil, err
	}
	var links []PageAnnotation
	for _, a := range annots {
		if a.IsLink() {
			links = append(links, a)
		}
	}
	return links, nil
}

func (d *Document) parseAnnotation(dict Dictionary) PageAnnotation {
	var a PageAnnotation
	if subtype, ok := dict.GetName("Subtype"); ok {
		a.Subtype = string(subtype)
	}
	if rect := d.resolveArray(dict.Get("Rect")); len(rect) == 4 {
		a.Rect = arrayToRectangle(rect)
	}
	if obj, err := d.ResolveObject(dict.Get("Contents")); err == nil {
		if s, ok := obj.(String); ok {
			a.Contents = s.Text()
		}
	}

	action, _ := d.resolveDict(dict.Get("A"))
	if s, _ := action.GetName("S"); s == "URI" {
		if obj, err := d.ResolveObject(action.Get("URI")); err == nil {
			if uri, ok := obj.(String); ok {
				a.URI = string(uri.Value)
			}
		}
	}
	return a
}
