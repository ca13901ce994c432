package main

import (
	"bytes"
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/census-cli/internal/pipeline"
	"github.com/sells-group/census-cli/internal/view"
)

var (
	viewName          string
	viewFilter        string
	viewNormalization string
	viewSort          string
	viewFormat        string
	viewSource        string
	viewAll           bool
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Build one view (or every view) and print it",
	Long: "Loads the census source and prints a view. --filter defaults to the view's first option; " +
		"other parameters must be one of the values listed by `census-cli options`.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !validFormat(viewFormat) {
			return eris.Errorf("view: unknown format %q (allowed: %v)", viewFormat, outputFormats)
		}

		h, err := initHandle(cmd.Context(), cfg, "view", viewSource)
		if err != nil {
			return err
		}

		if viewAll {
			return runAllViews(cmd.Context(), cmd.OutOrStdout(), h, viewFormat, viewNormalization, viewSort)
		}

		req := view.Request{
			View:          viewName,
			Filter:        viewFilter,
			Normalization: viewNormalization,
			Sort:          viewSort,
		}
		if !cmd.Flags().Changed("filter") {
			req.Filter = defaultFilter(h, viewName)
		}
		return runView(cmd.Context(), cmd.OutOrStdout(), h, req, viewFormat)
	},
}

func runView(ctx context.Context, w io.Writer, h *pipeline.Handle, req view.Request, format string) error {
	res, err := h.Query(ctx, req)
	if err != nil {
		return eris.Wrap(err, "view")
	}
	return writeResult(w, format, res)
}

// runAllViews builds every view concurrently with its default filter and
// writes them in catalog order. Normalized output is requested only where
// the view supports it.
func runAllViews(ctx context.Context, w io.Writer, h *pipeline.Handle, format, norm, sortKey string) error {
	names := view.Names()
	outs := make([]bytes.Buffer, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, n := range names {
		g.Go(func() error {
			filter := defaultFilter(h, string(n))
			if filter == "" {
				return nil
			}
			req := view.Request{View: string(n), Filter: filter, Normalization: norm, Sort: sortKey}
			if !n.Apportioned() {
				req.Normalization = string(view.Absolute)
			}
			return runView(gctx, &outs[i], h, req, format)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range outs {
		if outs[i].Len() == 0 {
			continue
		}
		if _, err := outs[i].WriteTo(w); err != nil {
			return eris.Wrap(err, "view: write output")
		}
		if format == "table" {
			_, _ = io.WriteString(w, "\n")
		}
	}
	return nil
}

// defaultFilter returns the first filter the view offers for the loaded
// data. When the data offers none (an empty table has no NOC codes) it falls
// back to the view's first static filter, which yields an empty view rather
// than a rejected request. Unknown views get "".
func defaultFilter(h *pipeline.Handle, name string) string {
	if opts, ok := h.Options().Find(view.Name(name)); ok && len(opts.Filters) > 0 {
		return opts.Filters[0]
	}
	if filters := view.Name(name).Filters(); len(filters) > 0 {
		return filters[0]
	}
	return ""
}

func init() {
	viewCmd.Flags().StringVar(&viewName, "view", string(view.EssentialServices), "view name")
	viewCmd.Flags().StringVar(&viewFilter, "filter", "", "filter value (default: the view's first option)")
	viewCmd.Flags().StringVar(&viewNormalization, "normalization", string(view.Absolute), "absolute or normalized")
	viewCmd.Flags().StringVar(&viewSort, "sort", string(view.ByValueDescending), "byLabelAscending, byValueDescending, or byValueAscending")
	viewCmd.Flags().StringVar(&viewFormat, "format", "table", "output format: table, json, yaml, csv")
	viewCmd.Flags().StringVar(&viewSource, "source", "", "census source URI (default from config)")
	viewCmd.Flags().BoolVar(&viewAll, "all", false, "print every view with its default filter")
	rootCmd.AddCommand(viewCmd)
}
