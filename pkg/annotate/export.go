package annotate

import (
	"fmt"
	"log/slog"

	"github.com/novvoo/go-pdfdesk/pkg/pdf"
)

// ExportOptions configures Export.
type ExportOptions struct {
	// Password opens an encrypted source document.
	Password string
	Logger   *slog.Logger
}

// Export copies every page of the source PDF into a new document, commits
// the annotations onto the copies and returns the serialised result. The
// source bytes are not modified.
func Export(src []byte, anns []Annotation, opts ExportOptions) ([]byte, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	doc, err := pdf.Load(src, opts.Password)
	if err != nil {
		return nil, fmt.Errorf("export: load source: %w", err)
	}
	defer doc.Close()

	b := pdf.NewBuilder()
	pages, err := b.CopyPages(doc, pdf.AllPages(doc))
	if err != nil {
		return nil, fmt.Errorf("export: copy pages: %w", err)
	}
	for _, p := range pages {
		b.AddPage(p)
	}

	if err := Commit(pages, b, anns, logger); err != nil {
		return nil, err
	}

	out, err := b.Save()
	if err != nil {
		return nil, fmt.Errorf("export: save: %w", err)
	}
	logger.Info("exported annotated document", "pages", len(pages), "annotations", len(anns), "bytes", len(out))
	return out, nil
}
