package cli

import (
	"fmt"
	"image"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/novvoo/go-pdfdesk/pkg/annotate"
	"github.com/novvoo/go-pdfdesk/pkg/pdf"
)

func defineRenderCommand(opts *globalOptions) *cobra.Command {
	var (
		first, last     int
		scale           float64
		annotationsPath string
		prefix          string
	)

	cmd := &cobra.Command{
		Use:   "render <input.pdf>",
		Short: "Render pages to PNG with their annotations drawn on top",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			s, err := opts.openSession(input, nil)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("scale") {
				if err := s.SetScale(scale); err != nil {
					return err
				}
			}
			if annotationsPath != "" {
				anns, err := annotate.LoadFile(annotationsPath)
				if err != nil {
					return fmt.Errorf("load annotations: %w", err)
				}
				if err := s.SetAnnotations(anns); err != nil {
					return err
				}
			}

			total := s.NumPages()
			if last == 0 {
				last = total
			}
			if first < 1 || last < first || last > total {
				return fmt.Errorf("%w: pages %d-%d of %d", pdf.ErrInvalidRange, first, last, total)
			}
			if prefix == "" {
				prefix = outputName(input, "")
			}

			// Rendering shares the session; encoding and writing do not.
			g := new(errgroup.Group)
			g.SetLimit(runtime.GOMAXPROCS(0))
			for n := first; n <= last; n++ {
				s.SetPage(n)
				img, err := s.Render()
				if err != nil {
					_ = g.Wait()
					return fmt.Errorf("render page %d: %w", n, err)
				}
				path := fmt.Sprintf("%s-%d.png", prefix, n)
				g.Go(func() error {
					return writePNG(opts, path, img)
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rendered pages %d-%d\n", first, last)
			return nil
		},
	}

	cmd.Flags().IntVarP(&first, "first", "f", 1, "first page to render")
	cmd.Flags().IntVarP(&last, "last", "l", 0, "last page to render (default last page)")
	cmd.Flags().Float64VarP(&scale, "scale", "s", 1.5, "pixels per point (default from --config)")
	cmd.Flags().StringVarP(&annotationsPath, "annotations", "a", "", "YAML annotation file to draw")
	cmd.Flags().StringVarP(&prefix, "output", "o", "", "output file prefix; pages are written as <prefix>-<n>.png")

	return cmd
}

func writePNG(opts *globalOptions, path string, img image.Image) error {
	data, err := pdf.EncodePNG(img)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return writeFile(opts.logger, path, data)
}
