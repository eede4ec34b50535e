package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novvoo/go-pdfdesk/pkg/pdf"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want Color
	}{
		{"#ffeb3b", Color{0xff, 0xeb, 0x3b}},
		{"#FF0000", Color{0xff, 0, 0}},
		{"0000ff", Color{0, 0, 0xff}},
		{"#abc", Color{0xaa, 0xbb, 0xcc}},
		{" #000000 ", Color{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseColorRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "#", "#12345", "#1234567", "#gggggg", "red", "#-12345"} {
		_, err := ParseColor(in)
		assert.ErrorIs(t, err, ErrInvalidInput, "input %q", in)
	}
}

func TestColorConversions(t *testing.T) {
	c := MustParseColor("#ff8000")
	assert.Equal(t, "#ff8000", c.Hex())
	assert.Equal(t, pdf.RGB{R: 1, G: 128.0 / 255, B: 0}, c.RGB())

	n := c.NRGBA(0.5)
	assert.Equal(t, uint8(128), n.A)
	assert.Equal(t, uint8(0xff), n.R)
}
