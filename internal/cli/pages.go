package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/novvoo/go-pdfdesk/pkg/pdf"
)

func defineMergeCommand(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "merge <file1.pdf> <file2.pdf> ...",
		Short: "Concatenate the pages of several PDFs into one",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([]*pdf.Document, len(args))
			defer closeDocuments(docs)
			g := new(errgroup.Group)
			g.SetLimit(runtime.GOMAXPROCS(0))
			for i, path := range args {
				i, path := i, path
				g.Go(func() error {
					doc, _, err := opts.loadPDF(path)
					docs[i] = doc
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			data, err := pdf.MergeDocuments(docs)
			if err != nil {
				return err
			}
			if err := writeFile(opts.logger, output, data); err != nil {
				return err
			}

			pages := 0
			for _, doc := range docs {
				pages += doc.NumPages()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %d files (%d pages) into %s\n", len(docs), pages, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output PDF (required)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// closeDocuments closes every loaded document; inputs that failed to load
// are nil.
func closeDocuments(docs []*pdf.Document) {
	for _, doc := range docs {
		if doc != nil {
			doc.Close()
		}
	}
}

func defineExtractCommand(opts *globalOptions) *cobra.Command {
	var (
		first, last int
		output      string
	)

	cmd := &cobra.Command{
		Use:   "extract <input.pdf>",
		Short: "Copy a range of pages into a new PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			doc, _, err := opts.loadPDF(input)
			if err != nil {
				return err
			}
			defer doc.Close()
			if last == 0 {
				last = doc.NumPages()
			}

			data, err := pdf.ExtractPages(doc, first, last)
			if err != nil {
				return err
			}
			if output == "" {
				output = outputName(input, fmt.Sprintf("_pages_%d-%d.pdf", first, last))
			}
			if err := writeFile(opts.logger, output, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Extracted pages %d-%d into %s\n", first, last, output)
			return nil
		},
	}

	cmd.Flags().IntVarP(&first, "first", "f", 1, "first page to extract")
	cmd.Flags().IntVarP(&last, "last", "l", 0, "last page to extract (default last page)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PDF (default <input>_pages_<first>-<last>.pdf)")

	return cmd
}
