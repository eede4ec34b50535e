package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sizedDocument returns a document with one page per width, all 100pt tall.
func sizedDocument(t *testing.T, widths ...float64) *Document {
	t.Helper()
	b := NewBuilder()
	for _, w := range widths {
		b.NewPage(w, 100)
	}
	return reload(t, b)
}

func widths(doc *Document) []float64 {
	var out []float64
	for _, p := range doc.Pages {
		out = append(out, p.Width())
	}
	return out
}

func TestExtractPages(t *testing.T) {
	src := sizedDocument(t, 100, 200, 300, 400)

	tests := []struct {
		name        string
		first, last int
		want        []float64
	}{
		{"single", 2, 2, []float64{200}},
		{"middle", 2, 3, []float64{200, 300}},
		{"all", 1, 4, []float64{100, 200, 300, 400}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ExtractPages(src, tt.first, tt.last)
			require.NoError(t, err)
			doc, err := NewDocument(data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, widths(doc))
		})
	}
}

func TestExtractPagesInvalidRange(t *testing.T) {
	src := sizedDocument(t, 100, 200)

	for _, r := range [][2]int{{0, 1}, {2, 1}, {1, 3}, {-1, -1}} {
		_, err := ExtractPages(src, r[0], r[1])
		assert.ErrorIs(t, err, ErrInvalidRange, "range %d-%d", r[0], r[1])
	}
}

func TestMergeDocuments(t *testing.T) {
	a := sizedDocument(t, 100, 200)
	b := sizedDocument(t, 300)

	data, err := MergeDocuments([]*Document{a, b, a})
	require.NoError(t, err)
	doc, err := NewDocument(data)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 200, 300, 100, 200}, widths(doc))

	_, err = MergeDocuments(nil)
	assert.Error(t, err)
}

func TestAllPages(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, AllPages(sizedDocument(t, 1, 2, 3)))
}
