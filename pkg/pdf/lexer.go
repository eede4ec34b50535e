package pdf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// TokenType represents the type of a lexical token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNull
	TokenBoolean
	TokenInteger
	TokenReal
	TokenString
	TokenHexString
	TokenName
	TokenArrayStart
	TokenArrayEnd
	TokenDictStart
	TokenDictEnd
	TokenStreamStart
	TokenStreamEnd
	TokenObjStart
	TokenObjEnd
	TokenRef
	TokenXRef
	TokenTrailer
	TokenStartXRef
	// TokenKeyword is any other bare word. In content streams these are the
	// operators; Value holds the keyword text.
	TokenKeyword
)

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value interface{}
	Pos   int64
}

// Lexer performs lexical analysis on PDF data
type Lexer struct {
	reader *bufio.Reader
	pos    int64
}

// NewLexer creates a new lexer for the given reader
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{reader: bufio.NewReader(r)}
}

// NewLexerFromBytes creates a new lexer from byte slice
func NewLexerFromBytes(data []byte) *Lexer {
	return NewLexer(bytes.NewReader(data))
}

// Position returns the number of bytes consumed so far
func (l *Lexer) Position() int64 {
	return l.pos
}

func (l *Lexer) readByte() (byte, error) {
	b, err := l.reader.ReadByte()
	if err != nil {
		return 0, err
	}
	l.pos++
	return b, nil
}

func (l *Lexer) unreadByte() error {
	if err := l.reader.UnreadByte(); err != nil {
		return err
	}
	l.pos--
	return nil
}

func (l *Lexer) peekByte() (byte, error) {
	b, err := l.reader.Peek(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// skipWhitespace skips whitespace and comments
func (l *Lexer) skipWhitespace() error {
	for {
		b, err := l.readByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch {
		case isWhitespace(b):
		case b == '%':
			for b != '\r' && b != '\n' {
				if b, err = l.readByte(); err == io.EOF {
					return nil
				} else if err != nil {
					return err
				}
			}
		default:
			return l.unreadByte()
		}
	}
}

// isWhitespace checks if a byte is PDF whitespace
func isWhitespace(b byte) bool {
	return b == 0 || b == '\t' || b == '\n' || b == '\f' || b == '\r' || b == ' '
}

// isDelimiter checks if a byte is a PDF delimiter
func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// NextToken returns the next token
func (l *Lexer) NextToken() (Token, error) {
	if err := l.skipWhitespace(); err != nil {
		return Token{}, err
	}

	pos := l.pos
	b, err := l.readByte()
	if err == io.EOF {
		return Token{Type: TokenEOF, Pos: pos}, nil
	}
	if err != nil {
		return Token{}, err
	}

	switch b {
	case '[':
		return Token{Type: TokenArrayStart, Pos: pos}, nil
	case ']':
		return Token{Type: TokenArrayEnd, Pos: pos}, nil
	case '(':
		return l.readLiteralString(pos)
	case '<':
		if next, _ := l.peekByte(); next == '<' {
			l.readByte()
			return Token{Type: TokenDictStart, Pos: pos}, nil
		}
		return l.readHexString(pos)
	case '>':
		if next, _ := l.peekByte(); next == '>' {
			l.readByte()
			return Token{Type: TokenDictEnd, Pos: pos}, nil
		}
		return Token{}, fmt.Errorf("unexpected '>' at position %d", pos)
	case '/':
		return l.readName(pos)
	case '{', '}', ')':
		return Token{}, fmt.Errorf("unexpected character '%c' at position %d", b, pos)
	case '+', '-', '.':
		l.unreadByte()
		return l.readNumber(pos)
	}

	if b >= '0' && b <= '9' {
		l.unreadByte()
		return l.readNumber(pos)
	}
	l.unreadByte()
	return l.readKeyword(pos)
}

// readLiteralString reads a literal string (...)
func (l *Lexer) readLiteralString(pos int64) (Token, error) {
	var buf bytes.Buffer
	depth := 1

	for {
		b, err := l.readByte()
		if err != nil {
			return Token{}, fmt.Errorf("unterminated string at position %d", pos)
		}

		switch b {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return Token{Type: TokenString, Value: buf.Bytes(), Pos: pos}, nil
			}
		case '\\':
			escaped, err := l.readEscapeSequence()
			if err != nil {
				return Token{}, err
			}
			buf.Write(escaped)
			continue
		case '\r':
			// An unescaped end-of-line is a single newline.
			if next, _ := l.peekByte(); next == '\n' {
				l.readByte()
			}
			b = '\n'
		}
		buf.WriteByte(b)
	}
}

var escapes = map[byte]byte{
	'n': '\n', 'r': '\r', 't': '\t', 'b': '\b', 'f': '\f',
	'(': '(', ')': ')', '\\': '\\',
}

// readEscapeSequence reads an escape sequence in a literal string
func (l *Lexer) readEscapeSequence() ([]byte, error) {
	b, err := l.readByte()
	if err != nil {
		return nil, err
	}

	if e, ok := escapes[b]; ok {
		return []byte{e}, nil
	}

	switch {
	case b == '\r':
		if next, err := l.peekByte(); err == nil && next == '\n' {
			l.readByte()
		}
		return nil, nil
	case b == '\n':
		return nil, nil
	case b >= '0' && b <= '7':
		val := int(b - '0')
		for i := 0; i < 2; i++ {
			next, err := l.peekByte()
			if err != nil || next < '0' || next > '7' {
				break
			}
			l.readByte()
			val = val*8 + int(next-'0')
		}
		return []byte{byte(val)}, nil
	}
	// Unknown escape: the backslash is dropped.
	return []byte{b}, nil
}

// readHexString reads a hexadecimal string <...>
func (l *Lexer) readHexString(pos int64) (Token, error) {
	var decoded []byte
	var hi byte
	odd := false

	for {
		b, err := l.readByte()
		if err != nil {
			return Token{}, fmt.Errorf("unterminated hex string at position %d", pos)
		}
		if b == '>' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		v, ok := hexValue(b)
		if !ok {
			return Token{}, fmt.Errorf("invalid hex string at position %d", pos)
		}
		if odd {
			decoded = append(decoded, hi<<4|v)
		} else {
			hi = v
		}
		odd = !odd
	}
	if odd {
		decoded = append(decoded, hi<<4)
	}

	return Token{Type: TokenHexString, Value: decoded, Pos: pos}, nil
}

// readName reads a name object /...
func (l *Lexer) readName(pos int64) (Token, error) {
	var buf bytes.Buffer

	for {
		b, err := l.peekByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Token{}, err
		}
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.readByte()

		if b != '#' {
			buf.WriteByte(b)
			continue
		}
		hex, err := l.ReadBytes(2)
		if err != nil {
			return Token{}, fmt.Errorf("invalid name escape at position %d", pos)
		}
		val, err := strconv.ParseUint(string(hex), 16, 8)
		if err != nil {
			return Token{}, fmt.Errorf("invalid name escape at position %d", pos)
		}
		buf.WriteByte(byte(val))
	}

	return Token{Type: TokenName, Value: buf.String(), Pos: pos}, nil
}

// readNumber reads a number (integer or real)
func (l *Lexer) readNumber(pos int64) (Token, error) {
	var buf bytes.Buffer
	hasDecimal := false
	hasDigit := false

loop:
	for {
		b, err := l.peekByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Token{}, err
		}

		switch {
		case b == '+' || b == '-':
			if buf.Len() > 0 {
				break loop
			}
		case b == '.':
			if hasDecimal {
				break loop
			}
			hasDecimal = true
		case b >= '0' && b <= '9':
			hasDigit = true
		default:
			break loop
		}
		l.readByte()
		buf.WriteByte(b)
	}

	if !hasDigit {
		// A lone sign or dot behaves like zero in every reader we care about.
		return Token{Type: TokenInteger, Value: int64(0), Pos: pos}, nil
	}

	str := buf.String()
	if hasDecimal {
		val, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return Token{}, fmt.Errorf("invalid real number at position %d", pos)
		}
		return Token{Type: TokenReal, Value: val, Pos: pos}, nil
	}

	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return Token{}, fmt.Errorf("invalid integer at position %d", pos)
	}
	return Token{Type: TokenInteger, Value: val, Pos: pos}, nil
}

var keywords = map[string]TokenType{
	"true":      TokenBoolean,
	"false":     TokenBoolean,
	"null":      TokenNull,
	"obj":       TokenObjStart,
	"endobj":    TokenObjEnd,
	"stream":    TokenStreamStart,
	"endstream": TokenStreamEnd,
	"R":         TokenRef,
	"xref":      TokenXRef,
	"trailer":   TokenTrailer,
	"startxref": TokenStartXRef,
}

// readKeyword reads a bare word. File-structure keywords get their own token
// types; anything else comes back as TokenKeyword.
func (l *Lexer) readKeyword(pos int64) (Token, error) {
	var buf bytes.Buffer

	for {
		b, err := l.peekByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Token{}, err
		}
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.readByte()
		buf.WriteByte(b)
	}

	keyword := buf.String()
	typ, ok := keywords[keyword]
	if !ok {
		return Token{Type: TokenKeyword, Value: keyword, Pos: pos}, nil
	}
	tok := Token{Type: typ, Pos: pos}
	if typ == TokenBoolean {
		tok.Value = keyword == "true"
	}
	return tok, nil
}

// ReadLine reads until end of line
func (l *Lexer) ReadLine() ([]byte, error) {
	var buf bytes.Buffer
	for {
		b, err := l.readByte()
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
		switch b {
		case '\r':
			if next, err := l.peekByte(); err == nil && next == '\n' {
				l.readByte()
			}
			return buf.Bytes(), nil
		case '\n':
			return buf.Bytes(), nil
		}
		buf.WriteByte(b)
	}
}

// ReadBytes reads exactly n bytes
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(l.reader, buf)
	l.pos += int64(read)
	return buf[:read], err
}
