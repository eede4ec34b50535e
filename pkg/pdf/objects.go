// Package pdf reads, renders and builds PDF documents.
//
// The reader side (Document, Page, PageRenderer) loads existing files,
// including ones protected by the standard security handler. The writer side
// (Builder, BuilderPage) copies pages out of loaded documents, draws vector
// and text overlays onto them, registers link annotations and serialises the
// result.
package pdf

import (
	"bytes"
	"compress/lzw"
	"encoding/ascii85"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// ObjectType represents the type of a PDF object
type ObjectType int

const (
	ObjNull ObjectType = iota
	ObjBoolean
	ObjInteger
	ObjReal
	ObjString
	ObjName
	ObjArray
	ObjDictionary
	ObjStream
	ObjReference
)

// Object represents a PDF object
type Object interface {
	Type() ObjectType
	String() string
}

// Null represents a PDF null object
type Null struct{}

func (n Null) Type() ObjectType { return ObjNull }
func (n Null) String() string   { return "null" }

// Boolean represents a PDF boolean object
type Boolean bool

func (b Boolean) Type() ObjectType { return ObjBoolean }
func (b Boolean) String() string   { return strconv.FormatBool(bool(b)) }

// Integer represents a PDF integer object
type Integer int64

func (i Integer) Type() ObjectType { return ObjInteger }
func (i Integer) String() string   { return strconv.FormatInt(int64(i), 10) }

// Real represents a PDF real number object
type Real float64

func (r Real) Type() ObjectType { return ObjReal }
func (r Real) String() string   { return formatReal(float64(r)) }

// String represents a PDF string object
type String struct {
	Value []byte
	IsHex bool
}

func (s String) Type() ObjectType { return ObjString }
func (s String) String() string {
	if s.IsHex {
		return fmt.Sprintf("<%X>", s.Value)
	}
	return "(" + string(s.Value) + ")"
}

var utf16Decoder = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)

// Text returns the string value decoded as a PDF text string.
func (s String) Text() string {
	if len(s.Value) >= 2 && s.Value[0] == 0xFE && s.Value[1] == 0xFF {
		out, err := utf16Decoder.NewDecoder().Bytes(s.Value)
		if err == nil {
			return string(out)
		}
	}
	if bytes.HasPrefix(s.Value, []byte{0xEF, 0xBB, 0xBF}) {
		return string(s.Value[3:])
	}
	// PDFDocEncoding agrees with Windows-1252 on every printable code that
	// shows up in practice.
	out, err := charmap.Windows1252.NewDecoder().Bytes(s.Value)
	if err != nil {
		return string(s.Value)
	}
	return string(out)
}

// Name represents a PDF name object
type Name string

func (n Name) Type() ObjectType { return ObjName }
func (n Name) String() string   { return "/" + string(n) }

// Array represents a PDF array object
type Array []Object

func (a Array) Type() ObjectType { return ObjArray }
func (a Array) String() string {
	parts := make([]string, 0, len(a))
	for _, obj := range a {
		parts = append(parts, obj.String())
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Dictionary represents a PDF dictionary object
type Dictionary map[Name]Object

func (d Dictionary) Type() ObjectType { return ObjDictionary }
func (d Dictionary) String() string {
	parts := make([]string, 0, len(d))
	for _, k := range d.Keys() {
		parts = append(parts, k.String()+" "+d[k].String())
	}
	return "<<" + strings.Join(parts, " ") + ">>"
}

// Keys returns the dictionary keys in sorted order.
func (d Dictionary) Keys() []Name {
	keys := make([]Name, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Clone returns a shallow copy of the dictionary.
func (d Dictionary) Clone() Dictionary {
	out := make(Dictionary, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Get returns the value for a key
func (d Dictionary) Get(key string) Object {
	return d[Name(key)]
}

// GetName returns the name value for a key
func (d Dictionary) GetName(key string) (Name, bool) {
	n, ok := d.Get(key).(Name)
	return n, ok
}

// GetInt returns the integer value for a key
func (d Dictionary) GetInt(key string) (int64, bool) {
	switch v := d.Get(key).(type) {
	case Integer:
		return int64(v), true
	case Real:
		return int64(v), true
	}
	return 0, false
}

// GetFloat returns the numeric value for a key
func (d Dictionary) GetFloat(key string) (float64, bool) {
	switch v := d.Get(key).(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

// GetArray returns the array value for a key
func (d Dictionary) GetArray(key string) (Array, bool) {
	a, ok := d.Get(key).(Array)
	return a, ok
}

// GetDict returns the dictionary value for a key
func (d Dictionary) GetDict(key string) (Dictionary, bool) {
	dict, ok := d.Get(key).(Dictionary)
	return dict, ok
}

// Stream represents a PDF stream object
type Stream struct {
	Dictionary Dictionary
	Data       []byte
}

func (s Stream) Type() ObjectType { return ObjStream }
func (s Stream) String() string {
	return s.Dictionary.String() + " stream...endstream"
}

// Filters returns the filter chain of the stream in application order.
func (s Stream) Filters() []Name {
	switch f := s.Dictionary.Get("Filter").(type) {
	case Name:
		return []Name{f}
	case Array:
		var filters []Name
		for _, item := range f {
			if n, ok := item.(Name); ok {
				filters = append(filters, n)
			}
		}
		return filters
	}
	return nil
}

// Decode decodes the stream data based on filters. Image codecs (DCT, JPX)
// are left encoded for the caller.
func (s Stream) Decode() ([]byte, error) {
	data := s.Data
	filters := s.Filters()
	parms := decodeParms(s.Dictionary, len(filters))

	for i, filter := range filters {
		var err error
		data, err = applyFilter(data, filter, parms[i])
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", filter, err)
		}
	}
	return data, nil
}

// decodeParms lines DecodeParms up with the filter chain.
func decodeParms(dict Dictionary, n int) []Dictionary {
	out := make([]Dictionary, n)
	switch p := dict.Get("DecodeParms").(type) {
	case Dictionary:
		if n > 0 {
			out[0] = p
		}
	case Array:
		for i := 0; i < n && i < len(p); i++ {
			if d, ok := p[i].(Dictionary); ok {
				out[i] = d
			}
		}
	}
	for i := range out {
		if out[i] == nil {
			out[i] = Dictionary{}
		}
	}
	return out
}

// applyFilter applies a single filter to decode data
func applyFilter(data []byte, filter Name, params Dictionary) ([]byte, error) {
	switch filter {
	case "FlateDecode", "Fl":
		return flateDecode(data, params)
	case "ASCIIHexDecode", "AHx":
		return asciiHexDecode(data)
	case "ASCII85Decode", "A85":
		return ascii85Decode(data)
	case "LZWDecode", "LZW":
		return lzwDecode(data, params)
	case "RunLengthDecode", "RL":
		return runLengthDecode(data)
	case "DCTDecode", "DCT", "JPXDecode":
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported filter: %s", filter)
	}
}

// flateDecode decompresses zlib data and undoes any PNG predictor
func flateDecode(data []byte, params Dictionary) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	decoded, err := io.ReadAll(r)
	if err != nil && !(err == io.ErrUnexpectedEOF && len(decoded) > 0) {
		return nil, err
	}
	return applyPredictor(decoded, params), nil
}

// flateEncode compresses data for a FlateDecode stream.
func flateEncode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// applyPredictor reverses PNG row predictors (Predictor >= 10).
func applyPredictor(data []byte, params Dictionary) []byte {
	predictor, _ := params.GetInt("Predictor")
	if predictor < 10 {
		return data
	}

	columns := intOr(params, "Columns", 1)
	colors := intOr(params, "Colors", 1)
	bpc := intOr(params, "BitsPerComponent", 8)

	bpp := (colors*bpc + 7) / 8
	rowBytes := (columns*colors*bpc + 7) / 8
	stride := rowBytes + 1
	if len(data)%stride != 0 {
		return data
	}

	rows := len(data) / stride
	out := make([]byte, rows*rowBytes)
	prev := make([]byte, rowBytes)

	for row := 0; row < rows; row++ {
		src := data[row*stride+1 : (row+1)*stride]
		dst := out[row*rowBytes : (row+1)*rowBytes]
		for i := 0; i < rowBytes; i++ {
			var left, upLeft byte
			if i >= bpp {
				left = dst[i-bpp]
				upLeft = prev[i-bpp]
			}
			switch data[row*stride] {
			case 1:
				dst[i] = src[i] + left
			case 2:
				dst[i] = src[i] + prev[i]
			case 3:
				dst[i] = src[i] + byte((int(left)+int(prev[i]))/2)
			case 4:
				dst[i] = src[i] + paeth(left, prev[i], upLeft)
			default:
				dst[i] = src[i]
			}
		}
		copy(prev, dst)
	}
	return out
}

func intOr(d Dictionary, key string, def int) int {
	if v, ok := d.GetInt(key); ok {
		return int(v)
	}
	return def
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := absInt(p-int(a)), absInt(p-int(b)), absInt(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// asciiHexDecode decodes ASCII hex encoded data
func asciiHexDecode(data []byte) ([]byte, error) {
	var result []byte
	var nibble byte
	var hasNibble bool

	for _, b := range data {
		if b == '>' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		val, ok := hexValue(b)
		if !ok {
			return nil, fmt.Errorf("invalid hex character: %c", b)
		}
		if hasNibble {
			result = append(result, nibble<<4|val)
		} else {
			nibble = val
		}
		hasNibble = !hasNibble
	}
	if hasNibble {
		result = append(result, nibble<<4)
	}
	return result, nil
}

func hexValue(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	}
	return 0, false
}

// ascii85Decode decodes ASCII85 data terminated by "~>"
func ascii85Decode(data []byte) ([]byte, error) {
	if i := bytes.Index(data, []byte("~>")); i >= 0 {
		data = data[:i]
	}
	data = bytes.TrimPrefix(bytes.TrimSpace(data), []byte("<~"))
	dst := make([]byte, 4*len(data)+4)
	n, _, err := ascii85.Decode(dst, data, true)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}

// lzwDecode decodes LZW data. PDF uses the MSB-first TIFF variant with early
// code-width change, which is what compress/lzw implements.
func lzwDecode(data []byte, params Dictionary) ([]byte, error) {
	if ec, ok := params.GetInt("EarlyChange"); ok && ec == 0 {
		return nil, fmt.Errorf("LZW with EarlyChange 0 is not supported")
	}
	r := lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil && len(out) == 0 {
		return nil, err
	}
	return applyPredictor(out, params), nil
}

// runLengthDecode decodes run-length encoded data
func runLengthDecode(data []byte) ([]byte, error) {
	var result []byte

	for i := 0; i < len(data); {
		length := int(data[i])
		i++
		switch {
		case length == 128:
			return result, nil
		case length < 128:
			n := length + 1
			if i+n > len(data) {
				return nil, fmt.Errorf("unexpected end of data")
			}
			result = append(result, data[i:i+n]...)
			i += n
		default:
			if i >= len(data) {
				return nil, fmt.Errorf("unexpected end of data")
			}
			result = append(result, bytes.Repeat(data[i:i+1], 257-length)...)
			i++
		}
	}
	return result, nil
}

// Reference represents a PDF indirect object reference
type Reference struct {
	ObjectNumber     int
	GenerationNumber int
}

func (r Reference) Type() ObjectType { return ObjReference }
func (r Reference) String() string {
	return fmt.Sprintf("%d %d R", r.ObjectNumber, r.GenerationNumber)
}

// Rectangle represents a PDF rectangle
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// Width returns the rectangle width
func (r Rectangle) Width() float64 { return r.URX - r.LLX }

// Height returns the rectangle height
func (r Rectangle) Height() float64 { return r.URY - r.LLY }

// Normalize orders the corners so LL is lower-left.
func (r Rectangle) Normalize() Rectangle {
	if r.LLX > r.URX {
		r.LLX, r.URX = r.URX, r.LLX
	}
	if r.LLY > r.URY {
		r.LLY, r.URY = r.URY, r.LLY
	}
	return r
}

// arrayToRectangle converts a PDF array to a Rectangle
func arrayToRectangle(arr Array) Rectangle {
	var r Rectangle
	if len(arr) >= 4 {
		r = Rectangle{
			LLX: objectToFloat(arr[0]),
			LLY: objectToFloat(arr[1]),
			URX: objectToFloat(arr[2]),
			URY: objectToFloat(arr[3]),
		}
	}
	return r.Normalize()
}

// rectangleToArray converts a Rectangle to a PDF array
func rectangleToArray(r Rectangle) Array {
	return Array{Real(r.LLX), Real(r.LLY), Real(r.URX), Real(r.URY)}
}

// objectToFloat converts a numeric PDF object to float64
func objectToFloat(obj Object) float64 {
	switch v := obj.(type) {
	case Integer:
		return float64(v)
	case Real:
		return float64(v)
	}
	return 0
}
