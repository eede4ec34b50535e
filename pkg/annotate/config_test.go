package annotate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	style, err := cfg.Style()
	require.NoError(t, err)
	assert.Equal(t, Style{Color: ColorYellow, Font: "Helvetica", FontSize: 12, LineWidth: 2}, style)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero scale", func(c *Config) { c.Scale = 0 }},
		{"huge scale", func(c *Config) { c.Scale = 50 }},
		{"missing colour", func(c *Config) { c.Color = "" }},
		{"named colour", func(c *Config) { c.Color = "yellow" }},
		{"four digit colour", func(c *Config) { c.Color = "#ffff" }},
		{"missing font", func(c *Config) { c.Font = "" }},
		{"negative font size", func(c *Config) { c.FontSize = -1 }},
		{"zero line width", func(c *Config) { c.LineWidth = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pdfdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scale: 2\ncolor: '#00ff00'\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.Scale)
	assert.Equal(t, "#00ff00", cfg.Color)
	assert.Equal(t, "Helvetica", cfg.Font)
	assert.Equal(t, 12.0, cfg.FontSize)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("line_width: -2\n"), 0o644))
	_, err = LoadConfig(bad)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
