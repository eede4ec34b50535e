package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/novvoo/go-pdfdesk/pkg/annotate"
	"github.com/novvoo/go-pdfdesk/pkg/pdf"
)

// Script is a recorded editing session: pointer gestures, tool and style
// changes, and the answers to give when a tool prompts for text.
type Script struct {
	Steps []Step `yaml:"steps" validate:"dive"`
}

// Step is one scripted action. Set fields are applied in declaration
// order, so a single step may select a tool and then drag with it.
type Step struct {
	Answer    *string     `yaml:"answer,omitempty"`
	Tool      string      `yaml:"tool,omitempty"`
	Color     string      `yaml:"color,omitempty" validate:"omitempty,hexcolor"`
	Font      string      `yaml:"font,omitempty"`
	FontSize  float64     `yaml:"font_size,omitempty" validate:"gte=0"`
	LineWidth float64     `yaml:"line_width,omitempty" validate:"gte=0"`
	Page      int         `yaml:"page,omitempty" validate:"gte=0"`
	Down      []float64   `yaml:"down,omitempty" validate:"omitempty,len=2"`
	Move      []float64   `yaml:"move,omitempty" validate:"omitempty,len=2"`
	Up        []float64   `yaml:"up,omitempty" validate:"omitempty,len=2"`
	Drag      [][]float64 `yaml:"drag,omitempty" validate:"omitempty,min=2,dive,len=2"`
	Undo      bool        `yaml:"undo,omitempty"`
	Clear     bool        `yaml:"clear,omitempty"`
}

var scriptValidator = validator.New()

// LoadScript reads and validates a YAML gesture script.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Script
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	if err := scriptValidator.Struct(&sc); err != nil {
		return nil, fmt.Errorf("invalid script %s: %w", path, err)
	}
	return &sc, nil
}

// answerQueue is an InputProvider fed by the script. An empty queue
// cancels the prompt.
type answerQueue struct {
	answers []string
}

func (q *answerQueue) push(s string) {
	q.answers = append(q.answers, s)
}

func (q *answerQueue) RequestText(annotate.Prompt) (string, bool) {
	if len(q.answers) == 0 {
		return "", false
	}
	a := q.answers[0]
	q.answers = q.answers[1:]
	return a, true
}

// Run plays the script against s. Answers must be queued before the step
// whose pointer-down prompts for them.
func (sc *Script) Run(s *annotate.Session, answers *answerQueue, logger *slog.Logger) error {
	for i, st := range sc.Steps {
		if err := st.apply(s, answers); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		logger.Debug("script step applied", "step", i+1, "page", s.Page(), "annotations", len(s.Annotations()))
	}
	return nil
}

func (st Step) apply(s *annotate.Session, answers *answerQueue) error {
	if st.Answer != nil {
		answers.push(*st.Answer)
	}
	if st.Tool != "" {
		tool, err := annotate.ParseTool(st.Tool)
		if err != nil {
			return err
		}
		s.SetTool(tool)
	}
	if st.Color != "" {
		c, err := annotate.ParseColor(st.Color)
		if err != nil {
			return err
		}
		s.SetColor(c)
	}
	if st.Font != "" {
		s.SetFont(st.Font)
	}
	if st.FontSize > 0 {
		if err := s.SetFontSize(st.FontSize); err != nil {
			return err
		}
	}
	if st.LineWidth > 0 {
		if err := s.SetLineWidth(st.LineWidth); err != nil {
			return err
		}
	}
	if st.Page > 0 {
		s.SetPage(st.Page)
	}
	if st.Undo {
		s.Undo()
	}
	if st.Clear {
		s.ClearPage()
	}

	pointer := []struct {
		at []float64
		fn func(x, y float64) error
	}{
		{st.Down, s.PointerDown},
		{st.Move, s.PointerMove},
		{st.Up, s.PointerUp},
	}
	for _, p := range pointer {
		if len(p.at) == 2 {
			if err := p.fn(p.at[0], p.at[1]); err != nil {
				return err
			}
		}
	}

	if len(st.Drag) >= 2 {
		last := len(st.Drag) - 1
		if err := s.PointerDown(st.Drag[0][0], st.Drag[0][1]); err != nil {
			return err
		}
		for _, p := range st.Drag[1:last] {
			if err := s.PointerMove(p[0], p[1]); err != nil {
				return err
			}
		}
		if err := s.PointerUp(st.Drag[last][0], st.Drag[last][1]); err != nil {
			return err
		}
	}
	return nil
}

func defineScriptCommand(opts *globalOptions) *cobra.Command {
	var annotationsOut, pdfOut, previewDir string

	cmd := &cobra.Command{
		Use:   "script <input.pdf> <script.yaml>",
		Short: "Drive an editing session with scripted pointer gestures",
		Long: `The 'script' command replays a YAML list of tool changes, pointer events
and prompt answers against the input document, exactly as an interactive
front end would feed them, and saves the resulting annotations.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, scriptPath := args[0], args[1]
			sc, err := LoadScript(scriptPath)
			if err != nil {
				return err
			}

			answers := &answerQueue{}
			s, err := opts.openSession(input, answers)
			if err != nil {
				return err
			}
			if err := sc.Run(s, answers, opts.logger); err != nil {
				return err
			}

			anns := s.Annotations()
			if annotationsOut == "" {
				annotationsOut = outputName(input, "_annotations.yaml")
			}
			if err := annotate.SaveFile(annotationsOut, anns); err != nil {
				return err
			}
			opts.logger.Info("wrote file", "path", annotationsOut, "annotations", len(anns))

			if pdfOut != "" {
				data, err := s.Export()
				if err != nil {
					return err
				}
				if err := writeFile(opts.logger, pdfOut, data); err != nil {
					return err
				}
			}
			if previewDir != "" {
				if err := writePreviews(opts, s, previewDir); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d annotations in %s\n", len(anns), annotationsOut)
			return nil
		},
	}

	cmd.Flags().StringVar(&annotationsOut, "annotations-out", "", "annotation file to write (default <input>_annotations.yaml)")
	cmd.Flags().StringVarP(&pdfOut, "output", "o", "", "also commit the annotations into this PDF")
	cmd.Flags().StringVar(&previewDir, "preview-dir", "", "also render every annotated page to PNG in this directory")

	return cmd
}

// writePreviews renders each page that carries annotations.
func writePreviews(opts *globalOptions, s *annotate.Session, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	pages := make(map[int]bool)
	for _, a := range s.Annotations() {
		pages[a.Common().Page] = true
	}
	current := s.Page()
	defer s.SetPage(current)

	for n := 1; n <= s.NumPages(); n++ {
		if !pages[n] {
			continue
		}
		s.SetPage(n)
		img, err := s.Render()
		if err != nil {
			return fmt.Errorf("render page %d: %w", n, err)
		}
		data, err := pdf.EncodePNG(img)
		if err != nil {
			return err
		}
		if err := writeFile(opts.logger, filepath.Join(dir, fmt.Sprintf("page-%d.png", n)), data); err != nil {
			return err
		}
	}
	return nil
}
