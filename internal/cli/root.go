package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/novvoo/go-pdfdesk/pkg/annotate"
	"github.com/novvoo/go-pdfdesk/pkg/pdf"
)

const AppName = "pdfdesk"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	logLevel   string
	logFormat  string
	configPath string
	password   string

	logger *slog.Logger
}

func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:          AppName,
		Short:        AppName + " - annotate, render, merge and split PDF documents",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat)
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&opts.configPath, "config", "", "YAML file with the default drawing style and render scale")
	flags.StringVarP(&opts.password, "password", "p", "", "password of encrypted input documents")

	rootCmd.AddCommand(
		defineAnnotateCommand(opts),
		defineRenderCommand(opts),
		defineMergeCommand(opts),
		defineExtractCommand(opts),
		defineInfoCommand(opts),
		defineScriptCommand(opts),
	)
	return rootCmd
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", level)
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return nil, fmt.Errorf("invalid --log-format %q", format)
}

// config returns the --config file or the defaults.
func (o *globalOptions) config() (*annotate.Config, error) {
	if o.configPath == "" {
		return annotate.NewDefaultConfig(), nil
	}
	return annotate.LoadConfig(o.configPath)
}

// loadPDF reads and parses a PDF file, using --password if set.
func (o *globalOptions) loadPDF(path string) (*pdf.Document, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	doc, err := pdf.Load(data, o.password)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, data, nil
}

// openSession loads path into a new editing session configured from
// --config.
func (o *globalOptions) openSession(path string, input annotate.InputProvider) (*annotate.Session, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	s, err := annotate.NewSession(annotate.Options{Config: cfg, Input: input, Logger: o.logger})
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := s.Open(data, o.password); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// outputName derives an output path next to input: dir/<base><suffix>.
func outputName(input, suffix string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(input), annotate.SanitizeFilename(base)+suffix)
}

func writeFile(logger *slog.Logger, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	logger.Info("wrote file", "path", path, "bytes", len(data))
	return nil
}
