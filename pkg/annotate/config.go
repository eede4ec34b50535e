package annotate

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/novvoo/go-pdfdesk/pkg/pdf"
)

const (
	defaultScale     = 1.5
	defaultColor     = "#ffeb3b"
	defaultFont      = pdf.Helvetica
	defaultFontSize  = 12
	defaultLineWidth = 2
)

// Config holds the render scale and the initial drawing style of a session.
type Config struct {
	Scale     float64 `yaml:"scale" validate:"gt=0,lte=10"`
	Color     string  `yaml:"color" validate:"required,hexcolor"`
	Font      string  `yaml:"font" validate:"required"`
	FontSize  float64 `yaml:"font_size" validate:"gt=0,lte=500"`
	LineWidth float64 `yaml:"line_width" validate:"gt=0,lte=100"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Scale:     defaultScale,
		Color:     defaultColor,
		Font:      defaultFont,
		FontSize:  defaultFontSize,
		LineWidth: defaultLineWidth,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (cfg *Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: config: %v", ErrInvalidInput, err)
	}
	if _, err := ParseColor(cfg.Color); err != nil {
		return err
	}
	return nil
}

// Style returns the drawing style the config describes.
func (cfg *Config) Style() (Style, error) {
	c, err := ParseColor(cfg.Color)
	if err != nil {
		return Style{}, err
	}
	return Style{Color: c, Font: cfg.Font, FontSize: cfg.FontSize, LineWidth: cfg.LineWidth}, nil
}

// LoadConfig reads a YAML config file. Fields missing from the file keep
// their defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: config %s: %v", ErrInvalidInput, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
