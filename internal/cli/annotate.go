package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/novvoo/go-pdfdesk/pkg/annotate"
)

func defineAnnotateCommand(opts *globalOptions) *cobra.Command {
	var annotationsPath, output string

	cmd := &cobra.Command{
		Use:   "annotate <input.pdf>",
		Short: "Commit an annotation file onto a copy of a PDF",
		Long: `The 'annotate' command reads a YAML annotation file, as written by the
'script' command, and draws every annotation into a copy of the input document.
Link, video and audio annotations become clickable link annotations.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			if output == "" {
				output = outputName(input, "_annotated.pdf")
			}

			anns, err := annotate.LoadFile(annotationsPath)
			if err != nil {
				return fmt.Errorf("load annotations: %w", err)
			}
			s, err := opts.openSession(input, nil)
			if err != nil {
				return err
			}
			if err := s.SetAnnotations(anns); err != nil {
				return err
			}

			data, err := s.Export()
			if err != nil {
				return err
			}
			if err := writeFile(opts.logger, output, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Committed %d annotations to %s\n", len(anns), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&annotationsPath, "annotations", "a", "", "YAML annotation file (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PDF (default <input>_annotated.pdf)")
	_ = cmd.MarkFlagRequired("annotations")

	return cmd
}
