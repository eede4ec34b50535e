package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func defineInfoCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <input.pdf>",
		Short: "Print document metadata, page geometry and links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, _, err := opts.loadPDF(args[0])
			if err != nil {
				return err
			}
			defer doc.Close()

			info := doc.GetInfo()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fields := []struct{ name, value string }{
				{"Title", info.Title},
				{"Subject", info.Subject},
				{"Author", info.Author},
				{"Creator", info.Creator},
				{"Producer", info.Producer},
			}
			for _, f := range fields {
				if f.value != "" {
					fmt.Fprintf(w, "%s:\t%s\n", f.name, f.value)
				}
			}
			fmt.Fprintf(w, "Encrypted:\t%t\n", doc.IsEncrypted())
			fmt.Fprintf(w, "PDF version:\t%s\n", info.PDFVersion)
			fmt.Fprintf(w, "Pages:\t%d\n", doc.NumPages())
			if err := w.Flush(); err != nil {
				return err
			}

			for n := 1; n <= doc.NumPages(); n++ {
				page, err := doc.GetPage(n)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Page %d: %.2f x %.2f pts, rotated %d\n", n, page.Width(), page.Height(), page.Rotation())
				links, err := page.Links()
				if err != nil {
					return err
				}
				for _, link := range links {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", link)
				}
			}
			return nil
		},
	}
}
