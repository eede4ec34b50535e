package cli

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novvoo/go-pdfdesk/pkg/annotate"
	"github.com/novvoo/go-pdfdesk/pkg/pdf"
)

// run executes the root command and returns what it printed to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

// writeBlankPDF writes a document of n empty letter pages.
func writeBlankPDF(t *testing.T, dir, name string, n int) string {
	t.Helper()
	b := pdf.NewBuilder()
	for i := 0; i < n; i++ {
		b.NewPage(612, 792)
	}
	data, err := b.Save()
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func loadPDF(t *testing.T, path string) *pdf.Document {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := pdf.Load(data, "")
	require.NoError(t, err)
	return doc
}

const testScript = `steps:
  - tool: highlight
    drag: [[100, 100], [150, 120], [200, 130]]
  - tool: link
    answer: https://example.com
    down: [300, 300]
  - tool: text
    color: "#0000ff"
    answer: hello
    down: [50, 500]
  - tool: rectangle
    drag: [[10, 10], [11, 11]]
`

func TestMergeCommand(t *testing.T) {
	dir := t.TempDir()
	a := writeBlankPDF(t, dir, "a.pdf", 1)
	b := writeBlankPDF(t, dir, "b.pdf", 2)
	out := filepath.Join(dir, "merged.pdf")

	stdout, err := run(t, "merge", a, b, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Merged 2 files (3 pages)")
	assert.Equal(t, 3, loadPDF(t, out).NumPages())

	_, err = run(t, "merge", a, "-o", out)
	assert.Error(t, err)

	_, err = run(t, "merge", a, filepath.Join(dir, "missing.pdf"), "-o", out)
	assert.Error(t, err)
}

func TestCloseDocumentsSkipsFailedInputs(t *testing.T) {
	dir := t.TempDir()
	doc := loadPDF(t, writeBlankPDF(t, dir, "a.pdf", 2))

	assert.NotPanics(t, func() { closeDocuments([]*pdf.Document{doc, nil}) })
	assert.Equal(t, 2, doc.NumPages(), "page count survives close")
}

func TestExtractCommand(t *testing.T) {
	dir := t.TempDir()
	src := writeBlankPDF(t, dir, "My Doc.pdf", 3)

	_, err := run(t, "extract", src, "-f", "2", "-l", "3")
	require.NoError(t, err)
	assert.Equal(t, 2, loadPDF(t, filepath.Join(dir, "My_Doc_pages_2-3.pdf")).NumPages())

	_, err = run(t, "extract", src, "-f", "3", "-l", "2")
	assert.ErrorIs(t, err, pdf.ErrInvalidRange)
	_, err = run(t, "extract", src, "-f", "1", "-l", "4")
	assert.ErrorIs(t, err, pdf.ErrInvalidRange)
}

func TestScriptAnnotateAndInfo(t *testing.T) {
	dir := t.TempDir()
	src := writeBlankPDF(t, dir, "doc.pdf", 2)
	scriptPath := filepath.Join(dir, "script.yaml")
	require.NoError(t, os.WriteFile(scriptPath, []byte(testScript), 0o644))
	annsPath := filepath.Join(dir, "notes.yaml")
	committed := filepath.Join(dir, "committed.pdf")
	previews := filepath.Join(dir, "previews")

	stdout, err := run(t, "script", src, scriptPath, "--annotations-out", annsPath, "-o", committed, "--preview-dir", previews)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Recorded 3 annotations")

	anns, err := annotate.LoadFile(annsPath)
	require.NoError(t, err)
	require.Len(t, anns, 3)
	assert.Equal(t, annotate.KindHighlight, anns[0].Common().Kind)
	assert.Equal(t, annotate.KindLink, anns[1].Common().Kind)
	assert.Equal(t, annotate.ColorBlue, anns[2].Common().Color)
	assert.FileExists(t, filepath.Join(previews, "page-1.png"))
	assert.NoFileExists(t, filepath.Join(previews, "page-2.png"))

	page, err := loadPDF(t, committed).GetPage(1)
	require.NoError(t, err)
	contents, err := page.GetContents()
	require.NoError(t, err)
	assert.Contains(t, string(contents), "(hello) Tj")

	_, err = run(t, "annotate", src, "-a", annsPath)
	require.NoError(t, err)
	annotated := filepath.Join(dir, "doc_annotated.pdf")
	page, err = loadPDF(t, annotated).GetPage(1)
	require.NoError(t, err)
	links, err := page.Links()
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://example.com", links[0].URI)

	stdout, err = run(t, "info", annotated)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Pages:")
	assert.Contains(t, stdout, "Page 1: 612.00 x 792.00 pts, rotated 0")
	assert.Contains(t, stdout, "Link [")
	assert.Contains(t, stdout, "-> https://example.com")
}

func TestAnnotateRejectsMissingPages(t *testing.T) {
	dir := t.TempDir()
	src := writeBlankPDF(t, dir, "doc.pdf", 1)
	annsPath := filepath.Join(dir, "notes.yaml")
	base := annotate.Base{Kind: annotate.KindHighlight, Page: 4, Color: annotate.ColorRed, Viewport: annotate.Viewport{Width: 612, Height: 792}}
	require.NoError(t, annotate.SaveFile(annsPath, []annotate.Annotation{annotate.Extent{Base: base, Width: 10, Height: 10}}))

	_, err := run(t, "annotate", src, "-a", annsPath)
	assert.ErrorIs(t, err, annotate.ErrPageOutOfRange)
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	src := writeBlankPDF(t, dir, "doc.pdf", 2)
	prefix := filepath.Join(dir, "out")

	stdout, err := run(t, "render", src, "--scale", "1", "-o", prefix)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Rendered pages 1-2")

	for _, name := range []string{"out-1.png", "out-2.png"} {
		f, err := os.Open(filepath.Join(dir, name))
		require.NoError(t, err)
		cfg, err := png.DecodeConfig(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, 612, cfg.Width)
		assert.Equal(t, 792, cfg.Height)
	}

	_, err = run(t, "render", src, "-f", "3")
	assert.ErrorIs(t, err, pdf.ErrInvalidRange)
}

func TestGlobalFlags(t *testing.T) {
	dir := t.TempDir()
	src := writeBlankPDF(t, dir, "doc.pdf", 1)

	_, err := run(t, "--log-level", "verbose", "info", src)
	assert.Error(t, err)
	_, err = run(t, "--log-format", "xml", "info", src)
	assert.Error(t, err)
	_, err = run(t, "--log-level", "debug", "--log-format", "json", "info", src)
	assert.NoError(t, err)

	cfgPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("scale: -1\n"), 0o644))
	_, err = run(t, "--config", cfgPath, "render", src)
	assert.ErrorIs(t, err, annotate.ErrInvalidInput)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, filepath.Join("dir", "My_Doc_v2_annotated.pdf"), outputName(filepath.Join("dir", "My Doc v2.pdf"), "_annotated.pdf"))
	assert.Equal(t, "report_pages_1-2.pdf", outputName("report.pdf", "_pages_1-2.pdf"))
}
