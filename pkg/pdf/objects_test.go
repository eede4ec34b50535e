package pdf

import (
	"bytes"
	"compress/lzw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectStrings(t *testing.T) {
	tests := []struct {
		name string
		obj  Object
		typ  ObjectType
		want string
	}{
		{"null", Null{}, ObjNull, "null"},
		{"true", Boolean(true), ObjBoolean, "true"},
		{"false", Boolean(false), ObjBoolean, "false"},
		{"integer", Integer(42), ObjInteger, "42"},
		{"real", Real(3.14), ObjReal, "3.14"},
		{"whole real", Real(2), ObjReal, "2"},
		{"name", Name("Test"), ObjName, "/Test"},
		{"literal", String{Value: []byte("Hello")}, ObjString, "(Hello)"},
		{"hex", String{Value: []byte{0xAB, 0xCD}, IsHex: true}, ObjString, "<ABCD>"},
		{"array", Array{Integer(1), Name("X")}, ObjArray, "[1 /X]"},
		{"reference", Reference{ObjectNumber: 1}, ObjReference, "1 0 R"},
		{"dictionary", Dictionary{"B": Integer(2), "A": Integer(1)}, ObjDictionary, "<</A 1 /B 2>>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.obj.Type())
			assert.Equal(t, tt.want, tt.obj.String())
		})
	}
}

func TestStringText(t *testing.T) {
	tests := []struct {
		name  string
		value []byte
		want  string
	}{
		{"plain", []byte("Hello"), "Hello"},
		{"utf16 with bom", []byte{0xFE, 0xFF, 0x00, 'H', 0x00, 'i'}, "Hi"},
		{"utf8 with bom", []byte("\xEF\xBB\xBFcafé"), "café"},
		{"doc encoding", []byte("caf\xe9"), "café"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, String{Value: tt.value}.Text())
		})
	}
}

func TestDictionaryAccessors(t *testing.T) {
	dict := Dictionary{
		"Type":  Name("Test"),
		"Value": Integer(42),
		"Ratio": Real(0.5),
		"Array": Array{Integer(1), Integer(2), Integer(3)},
		"Dict":  Dictionary{"Inner": Integer(1)},
	}

	name, ok := dict.GetName("Type")
	assert.True(t, ok)
	assert.Equal(t, Name("Test"), name)

	n, ok := dict.GetInt("Value")
	assert.True(t, ok)
	assert.EqualValues(t, 42, n)

	f, ok := dict.GetFloat("Ratio")
	assert.True(t, ok)
	assert.Equal(t, 0.5, f)

	f, ok = dict.GetFloat("Value")
	assert.True(t, ok, "integers read as floats")
	assert.Equal(t, 42.0, f)

	arr, ok := dict.GetArray("Array")
	assert.True(t, ok)
	assert.Len(t, arr, 3)

	inner, ok := dict.GetDict("Dict")
	require.True(t, ok)
	v, ok := inner.GetInt("Inner")
	assert.True(t, ok)
	assert.EqualValues(t, 1, v)

	assert.Nil(t, dict.Get("Missing"))
	_, ok = dict.GetName("Value")
	assert.False(t, ok)

	assert.Equal(t, []Name{"Array", "Dict", "Ratio", "Type", "Value"}, dict.Keys())

	clone := dict.Clone()
	clone["Type"] = Name("Other")
	name, _ = dict.GetName("Type")
	assert.Equal(t, Name("Test"), name, "clone is independent")
}

func TestStreamDecode(t *testing.T) {
	compressed, err := flateEncode([]byte("BT /F1 12 Tf ET"))
	require.NoError(t, err)

	var lzwData bytes.Buffer
	w := lzw.NewWriter(&lzwData, lzw.MSB, 8)
	_, err = w.Write([]byte("lzw payload"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	tests := []struct {
		name   string
		stream Stream
		want   string
	}{
		{
			name:   "unfiltered",
			stream: Stream{Dictionary: Dictionary{}, Data: []byte("Hello")},
			want:   "Hello",
		},
		{
			name:   "flate",
			stream: Stream{Dictionary: Dictionary{"Filter": Name("FlateDecode")}, Data: compressed},
			want:   "BT /F1 12 Tf ET",
		},
		{
			name:   "hex",
			stream: Stream{Dictionary: Dictionary{"Filter": Name("ASCIIHexDecode")}, Data: []byte("48656C6C6F>")},
			want:   "Hello",
		},
		{
			name:   "ascii85",
			stream: Stream{Dictionary: Dictionary{"Filter": Name("ASCII85Decode")}, Data: []byte("87cURDZ~>")},
			want:   "Hello",
		},
		{
			name:   "lzw",
			stream: Stream{Dictionary: Dictionary{"Filter": Name("LZWDecode")}, Data: lzwData.Bytes()},
			want:   "lzw payload",
		},
		{
			name: "filter chain",
			stream: Stream{
				Dictionary: Dictionary{"Filter": Array{Name("ASCIIHexDecode"), Name("RunLengthDecode")}},
				Data:       []byte("02 41 42 43 FE 58 80>"),
			},
			want: "ABCXXX",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.stream.Decode()
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestASCIIHexDecode(t *testing.T) {
	tests := []struct {
		input string
		want  []byte
	}{
		{"48656C6C6F>", []byte("Hello")},
		{"48 65 6C 6C 6F>", []byte("Hello")},
		{"abcd>", []byte{0xAB, 0xCD}},
		{"ABC>", []byte{0xAB, 0xC0}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := asciiHexDecode([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := asciiHexDecode([]byte("4G>"))
	assert.Error(t, err)
}

func TestRunLengthDecode(t *testing.T) {
	got, err := runLengthDecode([]byte{2, 'A', 'B', 'C', 254, 'Z', 128, 'x'})
	require.NoError(t, err)
	assert.Equal(t, "ABCZZZ", string(got))

	_, err = runLengthDecode([]byte{5, 'A'})
	assert.Error(t, err)
}

func TestRectangles(t *testing.T) {
	r := arrayToRectangle(Array{Real(612), Integer(792), Integer(0), Real(0)})
	assert.Equal(t, Rectangle{URX: 612, URY: 792}, r, "corners are normalised")
	assert.Equal(t, 612.0, r.Width())
	assert.Equal(t, 792.0, r.Height())

	assert.Equal(t, Rectangle{}, arrayToRectangle(Array{Integer(1)}))
	assert.Equal(t, Array{Real(1), Real(2), Real(3), Real(4)}, rectangleToArray(Rectangle{1, 2, 3, 4}))
}

func TestObjectToFloat(t *testing.T) {
	tests := []struct {
		obj  Object
		want float64
	}{
		{Integer(42), 42},
		{Real(3.14), 3.14},
		{Name("test"), 0},
		{Null{}, 0},
		{nil, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, objectToFloat(tt.obj))
	}
}

func TestFormatReal(t *testing.T) {
	tests := map[float64]string{
		0:         "0",
		1:         "1",
		-2.5:      "-2.5",
		0.123456:  "0.1235",
		-0.00001:  "0",
		612.00001: "612",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatReal(in), "formatReal(%v)", in)
	}
}

func TestEncodeObject(t *testing.T) {
	tests := []struct {
		name string
		obj  Object
		want string
	}{
		{"escaped string", String{Value: []byte("a(b)\\c\n")}, `(a\(b\)\\c\n)`},
		{"hex string", String{Value: []byte{0x01, 0xFF}, IsHex: true}, "<01FF>"},
		{"name escapes", Name("A B#"), "/A#20B#23"},
		{"sorted dictionary", Dictionary{"Z": Integer(1), "A": Boolean(true)}, "<</A true/Z 1>>"},
		{"nested", Array{Real(0.5), Null{}, Reference{ObjectNumber: 3}}, "[0.5 null 3 0 R]"},
		{"stream length", Stream{Dictionary: Dictionary{}, Data: []byte("abc")}, "<</Length 3>>\nstream\nabc\nendstream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(encodeObject(tt.obj)))
		})
	}
}

func TestApplyPredictor(t *testing.T) {
	params := Dictionary{"Predictor": Integer(12), "Columns": Integer(2)}
	data := []byte{
		2, 1, 2,
		2, 1, 1,
		1, 5, 1,
	}
	assert.Equal(t, []byte{1, 2, 2, 3, 5, 6}, applyPredictor(data, params))

	assert.Equal(t, data, applyPredictor(data, Dictionary{}), "no predictor")
}
