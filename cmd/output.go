package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/census-cli/internal/view"
)

var outputFormats = []string{"table", "json", "yaml", "csv"}

func validFormat(f string) bool {
	for _, o := range outputFormats {
		if o == f {
			return true
		}
	}
	return false
}

// writeValue encodes v as json or yaml.
func writeValue(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "output: encode yaml")
		}
		return eris.Wrap(enc.Close(), "output: close yaml")
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "output: encode json")
	}
}

// writeResult renders a view result in the requested format.
func writeResult(w io.Writer, format string, res *view.Result) error {
	switch format {
	case "json", "yaml":
		return writeValue(w, format, res)
	case "csv":
		return writeResultCSV(w, res)
	case "table":
		return writeResultTable(w, res)
	}
	return eris.Errorf("output: unknown format %q", format)
}

func writeResultTable(w io.Writer, res *view.Result) error {
	fmt.Fprintf(w, "%s\n", res.Title)
	if res.Apportioned {
		fmt.Fprintln(w, "(modeled provincial spread of national totals)")
	}
	if res.Empty {
		fmt.Fprintln(w, "No matching occupations.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if res.Apportioned {
		fmt.Fprintf(tw, "PROVINCE\tOCCUPATION\tCOUNT\tPER 10K\n")
		for _, r := range res.Rows {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\n", r.Province, r.Occupation, r.Count, r.Per10K)
		}
	} else {
		fmt.Fprintf(tw, "OCCUPATION\t%s\n", res.YLabel)
		for _, r := range res.Rows {
			fmt.Fprintf(tw, "%s\t%d\n", r.Label, r.Count)
		}
	}
	return eris.Wrap(tw.Flush(), "output: flush table")
}

func writeResultCSV(w io.Writer, res *view.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"label", "province", "occupation", "count", "per_10k", "value"}); err != nil {
		return eris.Wrap(err, "output: write csv header")
	}
	for _, r := range res.Rows {
		if err := cw.Write([]string{
			r.Label,
			r.Province,
			r.Occupation,
			strconv.FormatInt(r.Count, 10),
			strconv.FormatFloat(r.Per10K, 'f', 4, 64),
			strconv.FormatFloat(r.Value, 'f', 4, 64),
		}); err != nil {
			return eris.Wrap(err, "output: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "output: flush csv")
}
