package pdf

import (
	"bytes"
	"fmt"
	"io"
)

// Parser parses PDF objects from tokens
type Parser struct {
	lexer  *Lexer
	tokens []Token
	pos    int

	// resolveLength looks up indirect /Length values. When nil or when the
	// lookup fails the stream is scanned for its endstream keyword.
	resolveLength func(Reference) (int64, bool)
}

// NewParser creates a new parser for the given lexer
func NewParser(lexer *Lexer) *Parser {
	return &Parser{lexer: lexer}
}

// NewParserFromBytes creates a new parser from byte slice
func NewParserFromBytes(data []byte) *Parser {
	return NewParser(NewLexerFromBytes(data))
}

// nextToken gets the next token, buffering for lookahead
func (p *Parser) nextToken() (Token, error) {
	if p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		p.pos++
		return tok, nil
	}

	tok, err := p.lexer.NextToken()
	if err != nil {
		return Token{}, err
	}
	p.tokens = append(p.tokens, tok)
	p.pos++
	return tok, nil
}

// peekTokenN peeks at the nth token ahead (0-indexed)
func (p *Parser) peekTokenN(n int) (Token, error) {
	for len(p.tokens) <= p.pos+n {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return Token{}, err
		}
		p.tokens = append(p.tokens, tok)
	}
	return p.tokens[p.pos+n], nil
}

func (p *Parser) peekToken() (Token, error) {
	return p.peekTokenN(0)
}

// ParseObject parses a single PDF object
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.nextToken()
	if err != nil {
		return nil, err
	}

	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF

	case TokenInteger:
		// num gen R
		next1, err := p.peekTokenN(0)
		if err == nil && next1.Type == TokenInteger {
			next2, err := p.peekTokenN(1)
			if err == nil && next2.Type == TokenRef {
				p.nextToken()
				p.nextToken()
				return Reference{
					ObjectNumber:     int(tok.Value.(int64)),
					GenerationNumber: int(next1.Value.(int64)),
				}, nil
			}
		}
		return Integer(tok.Value.(int64)), nil

	case TokenArrayStart:
		return p.parseArray()

	case TokenDictStart:
		return p.parseDictionary()
	}

	if obj, ok := scalarFromToken(tok); ok {
		return obj, nil
	}
	return nil, fmt.Errorf("unexpected token type %d at position %d", tok.Type, tok.Pos)
}

// scalarFromToken converts single-token objects.
func scalarFromToken(tok Token) (Object, bool) {
	switch tok.Type {
	case TokenNull:
		return Null{}, true
	case TokenBoolean:
		return Boolean(tok.Value.(bool)), true
	case TokenInteger:
		return Integer(tok.Value.(int64)), true
	case TokenReal:
		return Real(tok.Value.(float64)), true
	case TokenString:
		return String{Value: tok.Value.([]byte)}, true
	case TokenHexString:
		return String{Value: tok.Value.([]byte), IsHex: true}, true
	case TokenName:
		return Name(tok.Value.(string)), true
	}
	return nil, false
}

// parseArray parses a PDF array [...]
func (p *Parser) parseArray() (Array, error) {
	arr := Array{}

	for {
		tok, err := p.peekToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			p.nextToken()
			return arr, nil
		case TokenEOF:
			return nil, fmt.Errorf("unterminated array at position %d", tok.Pos)
		}

		obj, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

// parseDictionary parses a PDF dictionary <<...>>
func (p *Parser) parseDictionary() (Dictionary, error) {
	dict := make(Dictionary)

	for {
		keyTok, err := p.nextToken()
		if err != nil {
			return nil, err
		}
		switch keyTok.Type {
		case TokenDictEnd:
			return dict, nil
		case TokenName:
		default:
			return nil, fmt.Errorf("expected name as dictionary key at position %d", keyTok.Pos)
		}

		value, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		// A null value is the same as an absent key.
		if _, isNull := value.(Null); !isNull {
			dict[Name(keyTok.Value.(string))] = value
		}
	}
}

// ParseIndirectObject parses an indirect object definition (num gen obj ... endobj)
func (p *Parser) ParseIndirectObject() (int, int, Object, error) {
	var header [3]Token
	for i := range header {
		tok, err := p.nextToken()
		if err != nil {
			return 0, 0, nil, err
		}
		header[i] = tok
	}
	if header[0].Type != TokenInteger || header[1].Type != TokenInteger {
		return 0, 0, nil, fmt.Errorf("expected object header at position %d", header[0].Pos)
	}
	if header[2].Type != TokenObjStart {
		return 0, 0, nil, fmt.Errorf("expected 'obj' keyword at position %d", header[2].Pos)
	}
	objNum := int(header[0].Value.(int64))
	genNum := int(header[1].Value.(int64))

	obj, err := p.ParseObject()
	if err != nil {
		return 0, 0, nil, err
	}

	nextTok, err := p.peekToken()
	if err == nil && nextTok.Type == TokenStreamStart {
		p.nextToken()

		dict, ok := obj.(Dictionary)
		if !ok {
			return 0, 0, nil, fmt.Errorf("stream must have dictionary at position %d", nextTok.Pos)
		}
		data, err := p.readStreamData(dict)
		if err != nil {
			return 0, 0, nil, err
		}
		obj = Stream{Dictionary: dict, Data: data}

		// endstream / endobj are not checked strictly; plenty of writers get
		// the Length slightly wrong and the data is already in hand.
		return objNum, genNum, obj, nil
	}

	endTok, err := p.nextToken()
	if err != nil {
		return 0, 0, nil, err
	}
	if endTok.Type != TokenObjEnd {
		return 0, 0, nil, fmt.Errorf("expected 'endobj' keyword at position %d", endTok.Pos)
	}
	return objNum, genNum, obj, nil
}

// readStreamData reads the raw stream data following the 'stream' keyword.
// The lexer must not have buffered tokens past the keyword.
func (p *Parser) readStreamData(dict Dictionary) ([]byte, error) {
	// Exactly one EOL follows the keyword.
	if b, err := p.lexer.peekByte(); err == nil && b == '\r' {
		p.lexer.readByte()
	}
	if b, err := p.lexer.peekByte(); err == nil && b == '\n' {
		p.lexer.readByte()
	}

	length := int64(-1)
	switch l := dict.Get("Length").(type) {
	case Integer:
		length = int64(l)
	case Reference:
		if p.resolveLength != nil {
			if n, ok := p.resolveLength(l); ok {
				length = n
			}
		}
	}

	if length < 0 {
		return p.readStreamUntilEnd()
	}
	data, err := p.lexer.ReadBytes(int(length))
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return data, nil
}

// readStreamUntilEnd reads stream data until 'endstream' is found
func (p *Parser) readStreamUntilEnd() ([]byte, error) {
	var buf bytes.Buffer
	marker := []byte("endstream")

	for {
		b, err := p.lexer.readByte()
		if err == io.EOF {
			return nil, fmt.Errorf("stream without endstream")
		}
		if err != nil {
			return nil, err
		}
		buf.WriteByte(b)
		if bytes.HasSuffix(buf.Bytes(), marker) {
			data := buf.Bytes()[:buf.Len()-len(marker)]
			return bytes.TrimRight(data, "\r\n"), nil
		}
	}
}

// Operation represents a content stream operation
type Operation struct {
	Operator string
	Operands []Object
}

// ContentStreamParser parses content streams
type ContentStreamParser struct {
	parser *Parser
}

// NewContentStreamParser creates a new content stream parser
func NewContentStreamParser(data []byte) *ContentStreamParser {
	return &ContentStreamParser{parser: NewParserFromBytes(data)}
}

// ParseOperations parses all operations from a content stream. Inline image
// data (BI ... ID ... EI) is skipped and reported as a single "BI" operation.
func (c *ContentStreamParser) ParseOperations() ([]Operation, error) {
	var operations []Operation
	var operands []Object
	p := c.parser

	for {
		tok, err := p.peekToken()
		if err != nil {
			return operations, err
		}

		switch tok.Type {
		case TokenEOF:
			return operations, nil

		case TokenKeyword, TokenRef:
			p.nextToken()
			op, _ := tok.Value.(string)
			if tok.Type == TokenRef {
				op = "R"
			}
			if op == "BI" {
				if err := c.skipInlineImage(); err != nil {
					return operations, err
				}
			}
			operations = append(operations, Operation{Operator: op, Operands: operands})
			operands = nil

		default:
			obj, err := p.ParseObject()
			if err != nil {
				return operations, err
			}
			operands = append(operands, obj)
		}
	}
}

// skipInlineImage consumes an inline image dictionary and its data up to EI.
func (c *ContentStreamParser) skipInlineImage() error {
	p := c.parser
	for {
		tok, err := p.nextToken()
		if err != nil {
			return err
		}
		if tok.Type == TokenEOF {
			return fmt.Errorf("inline image without ID")
		}
		if tok.Type == TokenKeyword && tok.Value == "ID" {
			break
		}
	}
	// Binary data: scan raw bytes for whitespace-delimited EI.
	var prev [3]byte
	for {
		b, err := p.lexer.readByte()
		if err != nil {
			return fmt.Errorf("inline image without EI")
		}
		if isWhitespace(prev[0]) && prev[1] == 'E' && prev[2] == 'I' && (isWhitespace(b) || isDelimiter(b)) {
			return nil
		}
		prev[0], prev[1], prev[2] = prev[1], prev[2], b
	}
}
