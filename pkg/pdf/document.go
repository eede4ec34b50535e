package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrPageOutOfRange is returned when a page number is outside [1, NumPages].
var ErrPageOutOfRange = errors.New("pdf: page out of range")

// Document represents a PDF document
type Document struct {
	data     []byte
	Version  string
	Trailer  Dictionary
	Root     Dictionary
	Info     Dictionary
	Pages    []*Page
	objects  map[int]Object
	xref     map[int]xrefEntry
	security *SecurityHandler
	encRef   Reference
}

// xrefEntry represents an entry in the cross-reference table
type xrefEntry struct {
	Offset     int64
	Generation int
	InUse      bool
	// For compressed objects
	StreamObjNum int
	Index        int
}

// Page represents a PDF page. Inheritable attributes are resolved from the
// page tree when the document is loaded.
type Page struct {
	doc        *Document
	Ref        Reference
	Dictionary Dictionary
	Number     int
	MediaBox   Rectangle
	CropBox    Rectangle
	Resources  Dictionary
	Rotate     int
}

// Open opens a PDF file
func Open(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return NewDocument(data)
}

// NewDocument parses an unprotected document, or one whose user password is
// empty.
func NewDocument(data []byte) (*Document, error) {
	return Load(data, "")
}

// Load parses a document, unlocking it with password when it is encrypted.
func Load(data []byte, password string) (*Document, error) {
	doc := &Document{
		data:    data,
		objects: make(map[int]Object),
		xref:    make(map[int]xrefEntry),
	}
	if err := doc.parse(password); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Document) parse(password string) error {
	i := bytes.Index(d.data[:min(len(d.data), 1024)], []byte("%PDF-"))
	if i < 0 {
		return fmt.Errorf("not a PDF file")
	}
	line := d.data[i+5:]
	if end := bytes.IndexAny(line, "\r\n"); end > 0 {
		d.Version = strings.TrimSpace(string(line[:end]))
	}

	startxref, err := d.findStartXRef()
	if err != nil {
		return err
	}
	if err := d.parseXRef(startxref, map[int64]bool{}); err != nil {
		return fmt.Errorf("xref: %w", err)
	}

	if err := d.setupSecurity(password); err != nil {
		return err
	}

	root, err := d.resolveDict(d.Trailer.Get("Root"))
	if err != nil || root == nil {
		return fmt.Errorf("missing or invalid Root in trailer")
	}
	d.Root = root

	if info, err := d.resolveDict(d.Trailer.Get("Info")); err == nil {
		d.Info = info
	}

	return d.parsePages()
}

// setupSecurity authenticates against the Encrypt dictionary, if present.
func (d *Document) setupSecurity(password string) error {
	encObj := d.Trailer.Get("Encrypt")
	if encObj == nil {
		return nil
	}
	if ref, ok := encObj.(Reference); ok {
		d.encRef = ref
	}
	encrypt, err := d.resolveDict(encObj)
	if err != nil || encrypt == nil {
		return fmt.Errorf("invalid Encrypt dictionary")
	}
	sh, err := newSecurityHandler(d, encrypt)
	if err != nil {
		return err
	}
	if !sh.Authenticate(password) {
		if password == "" {
			return ErrPasswordRequired
		}
		return ErrInvalidPassword
	}
	d.security = sh
	// Anything fetched while authenticating was cached in encrypted form.
	d.objects = make(map[int]Object)
	return nil
}

// IsEncrypted returns true if the document is encrypted
func (d *Document) IsEncrypted() bool {
	return d.Trailer.Get("Encrypt") != nil
}

// Security returns the security handler of an encrypted document, or nil.
func (d *Document) Security() *SecurityHandler {
	return d.security
}

// findStartXRef finds the startxref position
func (d *Document) findStartXRef() (int64, error) {
	tail := d.data[max(0, len(d.data)-2048):]
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}

	fields := bytes.Fields(tail[idx+len("startxref"):])
	if len(fields) == 0 {
		return 0, fmt.Errorf("invalid startxref offset")
	}
	offset, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil || offset < 0 || offset >= int64(len(d.data)) {
		return 0, fmt.Errorf("invalid startxref offset")
	}
	return offset, nil
}

// parseXRef parses the cross-reference section at offset and any /Prev chain.
func (d *Document) parseXRef(offset int64, seen map[int64]bool) error {
	if seen[offset] {
		return nil
	}
	seen[offset] = true

	pos := offset
	for pos < int64(len(d.data)) && isWhitespace(d.data[pos]) {
		pos++
	}

	var trailer Dictionary
	var err error
	if bytes.HasPrefix(d.data[pos:], []byte("xref")) {
		trailer, err = d.parseXRefTable(pos)
	} else {
		trailer, err = d.parseXRefStream(pos)
	}
	if err != nil {
		return err
	}

	// Newer sections win; only fill keys the later trailer did not set.
	if d.Trailer == nil {
		d.Trailer = trailer.Clone()
	} else {
		for k, v := range trailer {
			if _, exists := d.Trailer[k]; !exists {
				d.Trailer[k] = v
			}
		}
	}

	if stm, ok := trailer.GetInt("XRefStm"); ok {
		if err := d.parseXRef(stm, seen); err != nil {
			return err
		}
	}
	if prev, ok := trailer.GetInt("Prev"); ok {
		return d.parseXRef(prev, seen)
	}
	return nil
}

// parseXRefTable parses a traditional xref table and returns its trailer
func (d *Document) parseXRefTable(offset int64) (Dictionary, error) {
	lexer := NewLexerFromBytes(d.data[offset:])
	lexer.ReadLine() // "xref"

	for {
		line, err := lexer.ReadLine()
		if err != nil {
			return nil, err
		}
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			if lexer.Position() >= int64(len(d.data))-offset {
				return nil, fmt.Errorf("trailer not found")
			}
			continue
		}
		if bytes.HasPrefix(trimmed, []byte("trailer")) {
			// The dictionary may start on the same line as the keyword.
			at := bytes.Index(d.data[offset:], []byte("trailer"))
			trailer, err := NewParserFromBytes(d.data[offset+int64(at)+7:]).ParseObject()
			if err != nil {
				return nil, err
			}
			dict, ok := trailer.(Dictionary)
			if !ok {
				return nil, fmt.Errorf("trailer is not a dictionary")
			}
			return dict, nil
		}

		parts := bytes.Fields(trimmed)
		if len(parts) != 2 {
			continue
		}
		start, err1 := strconv.Atoi(string(parts[0]))
		count, err2 := strconv.Atoi(string(parts[1]))
		if err1 != nil || err2 != nil {
			continue
		}

		for i := 0; i < count; i++ {
			entry, err := lexer.ReadLine()
			if err != nil {
				return nil, err
			}
			f := bytes.Fields(entry)
			if len(f) == 0 && lexer.Position() < int64(len(d.data))-offset {
				// Stray blank line from a doubled EOL.
				i--
				continue
			}
			if len(f) < 3 || len(f[2]) == 0 {
				return nil, fmt.Errorf("malformed xref entry for object %d", start+i)
			}
			entryOffset, _ := strconv.ParseInt(string(f[0]), 10, 64)
			gen, _ := strconv.Atoi(string(f[1]))

			objNum := start + i
			if _, exists := d.xref[objNum]; !exists {
				d.xref[objNum] = xrefEntry{
					Offset:     entryOffset,
					Generation: gen,
					InUse:      f[2][0] == 'n',
				}
			}
		}
	}
}

// parseXRefStream parses an xref stream and returns its dictionary
func (d *Document) parseXRefStream(offset int64) (Dictionary, error) {
	_, _, obj, err := NewParserFromBytes(d.data[offset:]).ParseIndirectObject()
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(Stream)
	if !ok {
		return nil, fmt.Errorf("xref stream expected at offset %d", offset)
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, err
	}

	wArray, ok := stream.Dictionary.GetArray("W")
	if !ok || len(wArray) != 3 {
		return nil, fmt.Errorf("invalid xref stream W array")
	}
	var w [3]int
	for i, obj := range wArray {
		w[i] = int(objectToFloat(obj))
	}

	var indices []int
	if indexArray, ok := stream.Dictionary.GetArray("Index"); ok {
		for _, obj := range indexArray {
			indices = append(indices, int(objectToFloat(obj)))
		}
	} else if size, ok := stream.Dictionary.GetInt("Size"); ok {
		indices = []int{0, int(size)}
	}

	entrySize := w[0] + w[1] + w[2]
	pos := 0
	for i := 0; i+1 < len(indices); i += 2 {
		start, count := indices[i], indices[i+1]
		for j := 0; j < count && pos+entrySize <= len(data); j++ {
			entry := data[pos : pos+entrySize]
			pos += entrySize

			typ := readXRefField(entry, 0, w[0])
			if w[0] == 0 {
				typ = 1
			}
			f2 := readXRefField(entry, w[0], w[1])
			f3 := readXRefField(entry, w[0]+w[1], w[2])

			objNum := start + j
			if _, exists := d.xref[objNum]; exists {
				continue
			}
			switch typ {
			case 0:
				d.xref[objNum] = xrefEntry{}
			case 1:
				d.xref[objNum] = xrefEntry{Offset: int64(f2), Generation: f3, InUse: true}
			case 2:
				d.xref[objNum] = xrefEntry{StreamObjNum: f2, Index: f3, InUse: true}
			}
		}
	}
	return stream.Dictionary, nil
}

// readXRefField reads a big-endian field from an xref stream entry
func readXRefField(data []byte, offset, width int) int {
	result := 0
	for i := 0; i < width; i++ {
		result = result<<8 | int(data[offset+i])
	}
	return result
}

// ResolveObject resolves an object, following references
func (d *Document) ResolveObject(obj Object) (Object, error) {
	for depth := 0; depth < 32; depth++ {
		ref, ok := obj.(Reference)
		if !ok {
			return obj, nil
		}
		var err error
		if obj, err = d.GetObject(ref.ObjectNumber); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("reference chain too deep")
}

func (d *Document) resolveDict(obj Object) (Dictionary, error) {
	if obj == nil {
		return nil, nil
	}
	resolved, err := d.ResolveObject(obj)
	if err != nil {
		return nil, err
	}
	dict, _ := resolved.(Dictionary)
	return dict, nil
}

func (d *Document) resolveArray(obj Object) Array {
	if obj == nil {
		return nil
	}
	resolved, err := d.ResolveObject(obj)
	if err != nil {
		return nil
	}
	arr, _ := resolved.(Array)
	return arr
}

// GetObject gets an object by number. Missing and free objects are null.
func (d *Document) GetObject(objNum int) (Object, error) {
	if obj, ok := d.objects[objNum]; ok {
		return obj, nil
	}

	entry, ok := d.xref[objNum]
	if !ok || !entry.InUse {
		return Null{}, nil
	}

	// Guard against cycles through object streams and /Length references.
	d.objects[objNum] = Null{}

	var obj Object
	var err error
	if entry.StreamObjNum > 0 {
		obj, err = d.getCompressedObject(entry.StreamObjNum, entry.Index)
	} else {
		obj, err = d.getUncompressedObject(objNum, entry)
	}
	if err != nil {
		delete(d.objects, objNum)
		return nil, fmt.Errorf("object %d: %w", objNum, err)
	}

	d.objects[objNum] = obj
	return obj, nil
}

func (d *Document) getUncompressedObject(objNum int, entry xrefEntry) (Object, error) {
	if entry.Offset < 0 || entry.Offset >= int64(len(d.data)) {
		return nil, fmt.Errorf("offset %d outside file", entry.Offset)
	}
	parser := NewParserFromBytes(d.data[entry.Offset:])
	parser.resolveLength = d.lookupLength
	_, gen, obj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, err
	}
	if d.security != nil && objNum != d.encRef.ObjectNumber {
		return d.security.decryptObject(obj, objNum, gen)
	}
	return obj, nil
}

func (d *Document) lookupLength(ref Reference) (int64, bool) {
	obj, err := d.GetObject(ref.ObjectNumber)
	if err != nil {
		return 0, false
	}
	n, ok := obj.(Integer)
	return int64(n), ok
}

// getCompressedObject reads an object from an object stream. Objects inside
// object streams are not encrypted individually.
func (d *Document) getCompressedObject(streamObjNum, index int) (Object, error) {
	streamObj, err := d.GetObject(streamObjNum)
	if err != nil {
		return nil, err
	}
	stream, ok := streamObj.(Stream)
	if !ok {
		return nil, fmt.Errorf("object stream %d is not a stream", streamObjNum)
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, err
	}

	first, ok := stream.Dictionary.GetInt("First")
	if !ok || first > int64(len(data)) {
		return nil, fmt.Errorf("object stream missing First")
	}
	n, _ := stream.Dictionary.GetInt("N")
	if int64(index) >= n {
		return nil, fmt.Errorf("object index %d out of range", index)
	}

	header := NewParserFromBytes(data[:first])
	var offset int64
	for i := 0; i <= index; i++ {
		if _, err := header.ParseObject(); err != nil {
			return nil, err
		}
		off, err := header.ParseObject()
		if err != nil {
			return nil, err
		}
		offset = int64(objectToFloat(off))
	}
	if first+offset > int64(len(data)) {
		return nil, fmt.Errorf("object offset outside object stream")
	}
	return NewParserFromBytes(data[first+offset:]).ParseObject()
}

// pageAttrs carries the inheritable page attributes down the tree.
type pageAttrs struct {
	resources Dictionary
	mediaBox  *Rectangle
	cropBox   *Rectangle
	rotate    int
}

// parsePages walks the page tree
func (d *Document) parsePages() error {
	pagesRef := d.Root.Get("Pages")
	pages, err := d.resolveDict(pagesRef)
	if err != nil || pages == nil {
		return fmt.Errorf("missing Pages in catalog")
	}
	return d.parsePagesNode(pagesRef, pages, pageAttrs{}, map[int]bool{})
}

func (d *Document) parsePagesNode(ref Object, node Dictionary, inherited pageAttrs, visiting map[int]bool) error {
	if r, ok := ref.(Reference); ok {
		if visiting[r.ObjectNumber] {
			return fmt.Errorf("page tree cycle at object %d", r.ObjectNumber)
		}
		visiting[r.ObjectNumber] = true
		defer delete(visiting, r.ObjectNumber)
	}

	attrs := inherited
	if res, err := d.resolveDict(node.Get("Resources")); err == nil && res != nil {
		attrs.resources = res
	}
	if box := d.resolveArray(node.Get("MediaBox")); len(box) == 4 {
		r := arrayToRectangle(box)
		attrs.mediaBox = &r
	}
	if box := d.resolveArray(node.Get("CropBox")); len(box) == 4 {
		r := arrayToRectangle(box)
		attrs.cropBox = &r
	}
	if rot, err := d.ResolveObject(node.Get("Rotate")); err == nil && rot != nil {
		if _, isNull := rot.(Null); !isNull {
			attrs.rotate = int(objectToFloat(rot))
		}
	}

	nodeType, _ := node.GetName("Type")
	if nodeType == "Pages" || (nodeType != "Page" && node.Get("Kids") != nil) {
		for _, kidRef := range d.resolveArray(node.Get("Kids")) {
			kid, err := d.resolveDict(kidRef)
			if err != nil || kid == nil {
				continue
			}
			if err := d.parsePagesNode(kidRef, kid, attrs, visiting); err != nil {
				return err
			}
		}
		return nil
	}

	page := &Page{
		doc:        d,
		Dictionary: node,
		Number:     len(d.Pages) + 1,
		MediaBox:   Rectangle{URX: 612, URY: 792},
		Resources:  attrs.resources,
		Rotate:     NormalizeRotation(attrs.rotate),
	}
	if r, ok := ref.(Reference); ok {
		page.Ref = r
	}
	if attrs.mediaBox != nil {
		page.MediaBox = *attrs.mediaBox
	}
	page.CropBox = page.MediaBox
	if attrs.cropBox != nil {
		page.CropBox = *attrs.cropBox
	}
	d.Pages = append(d.Pages, page)
	return nil
}

// NormalizeRotation reduces a /Rotate value to 0, 90, 180 or 270. Values that
// are not multiples of 90 are treated as 0.
func NormalizeRotation(degrees int) int {
	if degrees%90 != 0 {
		return 0
	}
	r := degrees % 360
	if r < 0 {
		r += 360
	}
	return r
}

// NumPages returns the number of pages
func (d *Document) NumPages() int {
	return len(d.Pages)
}

// GetPage returns a page by number (1-indexed)
func (d *Document) GetPage(num int) (*Page, error) {
	if num < 1 || num > len(d.Pages) {
		return nil, fmt.Errorf("page %d: %w", num, ErrPageOutOfRange)
	}
	return d.Pages[num-1], nil
}

// GetContents returns the page contents as decoded bytes
func (p *Page) GetContents() ([]byte, error) {
	contentsObj, err := p.doc.ResolveObject(p.Dictionary.Get("Contents"))
	if err != nil || contentsObj == nil {
		return nil, err
	}

	switch contents := contentsObj.(type) {
	case Stream:
		return contents.Decode()
	case Array:
		var buf bytes.Buffer
		for _, ref := range contents {
			streamObj, err := p.doc.ResolveObject(ref)
			if err != nil {
				continue
			}
			if stream, ok := streamObj.(Stream); ok {
				data, err := stream.Decode()
				if err != nil {
					continue
				}
				buf.Write(data)
				buf.WriteByte('\n')
			}
		}
		return buf.Bytes(), nil
	case Null:
		return nil, nil
	}
	return nil, fmt.Errorf("invalid Contents type")
}

// Width returns the page width in user units
func (p *Page) Width() float64 {
	return p.MediaBox.Width()
}

// Height returns the page height in user units
func (p *Page) Height() float64 {
	return p.MediaBox.Height()
}

// Rotation returns the normalised page rotation in degrees.
func (p *Page) Rotation() int {
	return p.Rotate
}

// Document returns the document the page belongs to.
func (p *Page) Document() *Document {
	return p.doc
}

// DocumentInfo contains PDF document metadata
type DocumentInfo struct {
	Title        string
	Author       string
	Subject      string
	Keywords     string
	Creator      string
	Producer     string
	CreationDate time.Time
	ModDate      time.Time
	Encrypted    bool
	PDFVersion   string
	Pages        int
}

// GetInfo returns document metadata
func (d *Document) GetInfo() DocumentInfo {
	info := DocumentInfo{
		PDFVersion: d.Version,
		Encrypted:  d.IsEncrypted(),
		Pages:      d.NumPages(),
	}
	text := func(key string) string {
		obj, err := d.ResolveObject(d.Info.Get(key))
		if err != nil {
			return ""
		}
		if s, ok := obj.(String); ok {
			return s.Text()
		}
		return ""
	}
	if d.Info != nil {
		info.Title = text("Title")
		info.Author = text("Author")
		info.Subject = text("Subject")
		info.Keywords = text("Keywords")
		info.Creator = text("Creator")
		info.Producer = text("Producer")
		info.CreationDate = parsePDFDate(text("CreationDate"))
		info.ModDate = parsePDFDate(text("ModDate"))
	}
	return info
}

// parsePDFDate parses a PDF date string (D:YYYYMMDDHHmmSSOHH'mm')
func parsePDFDate(s string) time.Time {
	s = strings.TrimPrefix(s, "D:")
	if len(s) < 4 {
		return time.Time{}
	}

	field := func(from, to, def int) int {
		if len(s) < to {
			return def
		}
		v, err := strconv.Atoi(s[from:to])
		if err != nil {
			return def
		}
		return v
	}
	year := field(0, 4, 0)
	month := field(4, 6, 1)
	day := field(6, 8, 1)
	hour := field(8, 10, 0)
	minute := field(10, 12, 0)
	sec := field(12, 14, 0)

	offset := 0
	if len(s) >= 15 && (s[14] == '+' || s[14] == '-') {
		offset = field(15, 17, 0)*3600 + field(18, 20, 0)*60
		if s[14] == '-' {
			offset = -offset
		}
	}
	return time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.FixedZone("", offset))
}

// Close releases the document's buffers
func (d *Document) Close() error {
	d.data = nil
	d.objects = nil
	d.xref = nil
	return nil
}
