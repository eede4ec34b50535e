package annotate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novvoo/go-pdfdesk/pkg/pdf"
)

// blankPDF returns a document of n empty letter-size pages.
func blankPDF(t *testing.T, n int) []byte {
	t.Helper()
	b := pdf.NewBuilder()
	for i := 0; i < n; i++ {
		b.NewPage(612, 792)
	}
	data, err := b.Save()
	require.NoError(t, err)
	return data
}

func pageContents(t *testing.T, doc *pdf.Document, n int) string {
	t.Helper()
	page, err := doc.GetPage(n)
	require.NoError(t, err)
	data, err := page.GetContents()
	require.NoError(t, err)
	return string(data)
}

func TestExport(t *testing.T) {
	src := blankPDF(t, 2)
	a := Extent{Base: testBase(KindRectangle, 1), X: 10, Y: 10, Width: 100, Height: 100}
	b := Extent{Base: testBase(KindRectangle, 1), X: 50, Y: 50, Width: 100, Height: 100}
	anns := []Annotation{
		a,
		b,
		Extent{Base: testBase(KindHighlight, 1), X: 100, Y: 100, Width: 50, Height: 20},
		Label{Base: testBase(KindNote, 1), X: 10, Y: 300, Text: "hi"},
		MediaLink{Base: testBase(KindLink, 2), X: 100, Y: 100, Width: 60, Height: 60, URL: "https://example.com"},
		Extent{Base: testBase(KindHighlight, 7), Width: 10, Height: 10},
	}

	out, err := Export(src, anns, ExportOptions{})
	require.NoError(t, err)

	doc, err := pdf.Load(out, "")
	require.NoError(t, err)
	require.Equal(t, 2, doc.NumPages())

	first := pageContents(t, doc, 1)
	ia := bytes.Index([]byte(first), []byte("10 682 100 100 re"))
	ib := bytes.Index([]byte(first), []byte("50 642 100 100 re"))
	require.True(t, ia >= 0 && ib >= 0, "rectangles missing from:\n%s", first)
	assert.Less(t, ia, ib, "later annotation must be drawn later")
	assert.Contains(t, first, "100 672 50 20 re")
	assert.Contains(t, first, "(Note: hi) Tj")

	page2, err := doc.GetPage(2)
	require.NoError(t, err)
	links, err := page2.Links()
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://example.com", links[0].URI)
	assert.InDelta(t, 632.0, links[0].Rect.LLY, 1e-3)
	assert.Contains(t, pageContents(t, doc, 2), "(LINK) Tj")
}

func TestExportLeavesSourceUntouched(t *testing.T) {
	src := blankPDF(t, 1)
	orig := bytes.Clone(src)
	_, err := Export(src, []Annotation{Extent{Base: testBase(KindCircle, 1), Width: 20, Height: 20}}, ExportOptions{})
	require.NoError(t, err)
	assert.Equal(t, orig, src)
}

func TestExportErrors(t *testing.T) {
	_, err := Export([]byte("not a pdf"), nil, ExportOptions{})
	assert.Error(t, err)

	bad := Label{Base: testBase(KindText, 1)}
	_, err = Export(blankPDF(t, 1), []Annotation{bad}, ExportOptions{})
	var ce *CommitError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 0, ce.Index)
}

func TestSessionExport(t *testing.T) {
	s := newTestSession(t, Options{})
	require.NoError(t, s.Open(blankPDF(t, 3), ""))
	assert.Equal(t, 3, s.NumPages())

	s.SetTool(Tool(KindUnderline))
	s.SetPage(3)
	rect(t, s, 10, 10, 100, 30)

	out, err := s.Export()
	require.NoError(t, err)
	doc, err := pdf.Load(out, "")
	require.NoError(t, err)
	assert.Contains(t, pageContents(t, doc, 3), " l\nS\n")
	assert.NotContains(t, pageContents(t, doc, 1), " l\nS\n")
}
