package pdf

import (
	"errors"
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// ErrUnknownFont is returned by EmbedFont for names outside the standard 14.
var ErrUnknownFont = errors.New("pdf: not a standard font")

// Standard font names.
const (
	Helvetica            = "Helvetica"
	HelveticaBold        = "Helvetica-Bold"
	HelveticaOblique     = "Helvetica-Oblique"
	HelveticaBoldOblique = "Helvetica-BoldOblique"
	TimesRoman           = "Times-Roman"
	TimesBold            = "Times-Bold"
	TimesItalic          = "Times-Italic"
	TimesBoldItalic      = "Times-BoldItalic"
	Courier              = "Courier"
	CourierBold          = "Courier-Bold"
	CourierOblique       = "Courier-Oblique"
	CourierBoldOblique   = "Courier-BoldOblique"
	Symbol               = "Symbol"
	ZapfDingbats         = "ZapfDingbats"
)

// StandardFonts lists the 14 fonts every reader provides.
var StandardFonts = []string{
	Helvetica, HelveticaBold, HelveticaOblique, HelveticaBoldOblique,
	TimesRoman, TimesBold, TimesItalic, TimesBoldItalic,
	Courier, CourierBold, CourierOblique, CourierBoldOblique,
	Symbol, ZapfDingbats,
}

// IsStandardFont reports whether name is one of the standard 14 fonts.
func IsStandardFont(name string) bool {
	for _, f := range StandardFonts {
		if f == name {
			return true
		}
	}
	return false
}

// Font is a font resource registered with a Builder.
type Font struct {
	name    string
	ref     Reference
	resName Name
}

// Name returns the base font name.
func (f *Font) Name() string {
	return f.name
}

// symbolic fonts use their built-in encoding.
func (f *Font) symbolic() bool {
	return f.name == Symbol || f.name == ZapfDingbats
}

// encode converts UTF-8 text to the byte codes the font dictionary declares.
// Characters the encoding cannot represent become '?'.
func (f *Font) encode(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		if f.symbolic() {
			if r > 0xFF {
				r = '?'
			}
			out = append(out, byte(r))
			continue
		}
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

// EmbedFont registers one of the standard 14 fonts with the document and
// returns its handle. Embedding the same name twice returns the same handle.
func (b *Builder) EmbedFont(name string) (*Font, error) {
	if f, ok := b.fonts[name]; ok {
		return f, nil
	}
	if !IsStandardFont(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFont, name)
	}

	dict := Dictionary{
		"Type":     Name("Font"),
		"Subtype":  Name("Type1"),
		"BaseFont": Name(name),
	}
	f := &Font{name: name, resName: Name(fmt.Sprintf("DkF%d", len(b.fonts)+1))}
	if !f.symbolic() {
		dict["Encoding"] = Name("WinAnsiEncoding")
	}
	f.ref = b.add(dict)
	b.fonts[name] = f
	return f, nil
}
