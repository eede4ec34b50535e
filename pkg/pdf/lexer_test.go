package pdf

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexerReadLine(t *testing.T) {
	lexer := NewLexerFromBytes([]byte("line1\nline2\rline3\r\nline4"))
	for _, want := range []string{"line1", "line2", "line3", "line4"} {
		line, err := lexer.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, want, string(line))
	}
}

func TestCharacterClasses(t *testing.T) {
	for _, b := range []byte{' ', '\t', '\n', '\r', '\f', 0} {
		assert.True(t, isWhitespace(b), "%q is whitespace", b)
	}
	for _, b := range []byte{'a', '1', '/', '('} {
		assert.False(t, isWhitespace(b), "%q is not whitespace", b)
	}
	for _, b := range []byte("()<>[]{}/%") {
		assert.True(t, isDelimiter(b), "%q is a delimiter", b)
	}
	for _, b := range []byte("a1.-") {
		assert.False(t, isDelimiter(b), "%q is not a delimiter", b)
	}
}

func TestParseObject(t *testing.T) {
	tests := []struct {
		input string
		want  Object
	}{
		{"42", Integer(42)},
		{"-17", Integer(-17)},
		{"+123", Integer(123)},
		{"3.14", Real(3.14)},
		{"-2.5", Real(-2.5)},
		{".5", Real(0.5)},
		{"10.", Real(10)},
		{"true", Boolean(true)},
		{"false", Boolean(false)},
		{"null", Null{}},
		{"/Name", Name("Name")},
		{"/A#20B", Name("A B")},
		{"(Hello World)", String{Value: []byte("Hello World")}},
		{"(a (nested) b)", String{Value: []byte("a (nested) b")}},
		{`(esc\)\n\101)`, String{Value: []byte("esc)\nA")}},
		{"<48656C6C6F>", String{Value: []byte("Hello"), IsHex: true}},
		{"1 0 R", Reference{ObjectNumber: 1}},
		{"[1 2 0 R /X]", Array{Integer(1), Reference{ObjectNumber: 2}, Name("X")}},
		{"<< /Type /Test /Value 42 >>", Dictionary{"Type": Name("Test"), "Value": Integer(42)}},
		{"<< /Kids [3 0 R] /Inner << /A 1 >> >>", Dictionary{
			"Kids":  Array{Reference{ObjectNumber: 3}},
			"Inner": Dictionary{"A": Integer(1)},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NewParserFromBytes([]byte(tt.input)).ParseObject()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseObjectEmptyStrings(t *testing.T) {
	for _, input := range []string{"()", "<>"} {
		got, err := NewParserFromBytes([]byte(input)).ParseObject()
		require.NoError(t, err)
		s, ok := got.(String)
		require.True(t, ok, "%s parses as a string", input)
		assert.Empty(t, s.Value)
	}

	_, err := NewParserFromBytes(nil).ParseObject()
	assert.ErrorIs(t, err, io.EOF)
}

func TestParseIndirectObject(t *testing.T) {
	p := NewParserFromBytes([]byte("7 0 obj\n<< /Length 5 >>\nstream\nHello\nendstream\nendobj\n"))
	num, gen, obj, err := p.ParseIndirectObject()
	require.NoError(t, err)
	assert.Equal(t, 7, num)
	assert.Equal(t, 0, gen)
	stream, ok := obj.(Stream)
	require.True(t, ok)
	assert.Equal(t, "Hello", string(stream.Data))

	p = NewParserFromBytes([]byte("3 1 obj (text) endobj"))
	num, gen, obj, err = p.ParseIndirectObject()
	require.NoError(t, err)
	assert.Equal(t, 3, num)
	assert.Equal(t, 1, gen)
	assert.Equal(t, String{Value: []byte("text")}, obj)

	_, _, _, err = NewParserFromBytes([]byte("3 1 (text) endobj")).ParseIndirectObject()
	assert.Error(t, err)
}

func TestParseOperations(t *testing.T) {
	content := []byte("q 1 0 0 1 50 50 cm\nBT /F1 12 Tf (Hi) Tj ET\n0.5 g 0 0 10 10 re f Q")
	ops, err := NewContentStreamParser(content).ParseOperations()
	require.NoError(t, err)

	var operators []string
	for _, op := range ops {
		operators = append(operators, op.Operator)
	}
	assert.Equal(t, []string{"q", "cm", "BT", "Tf", "Tj", "ET", "g", "re", "f", "Q"}, operators)
	assert.Equal(t, []Object{Integer(1), Integer(0), Integer(0), Integer(1), Integer(50), Integer(50)}, ops[1].Operands)
	assert.Equal(t, []Object{Name("F1"), Integer(12)}, ops[3].Operands)
	assert.Equal(t, []Object{String{Value: []byte("Hi")}}, ops[4].Operands)
}

func TestParseOperationsSkipsInlineImages(t *testing.T) {
	content := []byte("q BI /W 2 /H 1 /BPC 8 /CS /G ID \x00\xff EI Q")
	ops, err := NewContentStreamParser(content).ParseOperations()
	require.NoError(t, err)

	var operators []string
	for _, op := range ops {
		operators = append(operators, op.Operator)
	}
	assert.Equal(t, []string{"q", "BI", "Q"}, operators)
}
