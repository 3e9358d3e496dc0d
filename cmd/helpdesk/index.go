package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newIndexCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "index [files...]",
		Short: "Build the index and print what was indexed",
		Long:  `Load, chunk and embed the documents, then print chunk counts per source, skipped files and the corpus summary. No API key is needed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, false)
			if err != nil {
				return err
			}
			defer a.log.Sync()

			idx, err := a.buildIndex(cmd.Context(), args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headingStyle.Render(fmt.Sprintf("Indexed %d chunk(s) from %d document(s)", idx.Len(), idx.Documents())))
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, s := range idx.Sources() {
				fmt.Fprintf(tw, "  %s\t%d\n", s.Source, s.Chunks)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if warnings := idx.Warnings(); len(warnings) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, headingStyle.Render(fmt.Sprintf("Skipped %d source(s)", len(warnings))))
				for _, w := range warnings {
					fmt.Fprintln(out, "  "+errorStyle.Render(w.Error()))
				}
			}
			if s := idx.Summary(); s != "" {
				fmt.Fprintln(out)
				fmt.Fprintln(out, headingStyle.Render("Summary"))
				fmt.Fprintln(out, dimStyle.Render(s))
			}
			return nil
		},
	}
}
