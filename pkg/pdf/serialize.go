package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// formatReal writes a number with at most four decimals and no trailing
// zeros, which is the precision content streams need.
func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}

// writeObject serialises obj in PDF syntax. Streams get their /Length set
// from the data actually written.
func writeObject(buf *bytes.Buffer, obj Object) {
	switch v := obj.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Boolean, Integer, Reference:
		buf.WriteString(v.String())
	case Real:
		buf.WriteString(formatReal(float64(v)))
	case Name:
		writeName(buf, v)
	case String:
		writeString(buf, v)
	case Array:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeObject(buf, item)
		}
		buf.WriteByte(']')
	case Dictionary:
		buf.WriteString("<<")
		for _, k := range v.Keys() {
			writeName(buf, k)
			buf.WriteByte(' ')
			writeObject(buf, v[k])
		}
		buf.WriteString(">>")
	case Stream:
		dict := v.Dictionary.Clone()
		dict["Length"] = Integer(len(v.Data))
		writeObject(buf, dict)
		buf.WriteString("\nstream\n")
		buf.Write(v.Data)
		buf.WriteString("\nendstream")
	default:
		buf.WriteString(fmt.Sprint(v))
	}
}

// writeName writes /Name, escaping delimiters and non-regular bytes as #xx.
func writeName(buf *bytes.Buffer, n Name) {
	buf.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c < '!' || c > '~' || c == '#' || isDelimiter(c) {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}

// writeString writes a literal or hex string.
func writeString(buf *bytes.Buffer, s String) {
	if s.IsHex {
		fmt.Fprintf(buf, "<%X>", s.Value)
		return
	}
	buf.WriteByte('(')
	for _, c := range s.Value {
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\r':
			buf.WriteString(`\r`)
		case '\n':
			buf.WriteString(`\n`)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte(')')
}

// encodeObject returns the serialised form of obj.
func encodeObject(obj Object) []byte {
	var buf bytes.Buffer
	writeObject(&buf, obj)
	return buf.Bytes()
}
