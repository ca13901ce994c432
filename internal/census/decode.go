package census

import (
	"context"
	"io"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/census-cli/internal/fetcher"
)

// Header aliases accepted for each required column. The 2021 Census tables
// label the gender columns "Men+" and "Women+".
var (
	occupationCols = []string{"occupation", "noc", "occupation (noc 2021)"}
	totalCols      = []string{"total", "total - gender"}
	menCols        = []string{"men", "men+", "males"}
	womenCols      = []string{"women", "women+", "females"}
)

// columns holds the resolved positions of the required columns.
type columns struct {
	occupation, total, men, women int
}

func resolveColumns(header []string) (columns, error) {
	colIdx := mapColumns(header)

	var c columns
	var missing []string
	for _, want := range []struct {
		name  string
		names []string
		dst   *int
	}{
		{"Occupation", occupationCols, &c.occupation},
		{"Total", totalCols, &c.total},
		{"Men", menCols, &c.men},
		{"Women", womenCols, &c.women},
	} {
		idx, ok := firstIndex(colIdx, want.names...)
		if !ok {
			missing = append(missing, want.name)
			continue
		}
		*want.dst = idx
	}
	if len(missing) > 0 {
		return columns{}, eris.Wrapf(ErrMissingColumns, "census: header lacks %v", missing)
	}
	return c, nil
}

// record converts one raw row. ok is false when any count fails coercion.
func (c columns) record(row []string) (Record, bool) {
	total, ok := parseCount(cell(row, c.total))
	if !ok {
		return Record{}, false
	}
	men, ok := parseCount(cell(row, c.men))
	if !ok {
		return Record{}, false
	}
	women, ok := parseCount(cell(row, c.women))
	if !ok {
		return Record{}, false
	}
	return Record{
		Occupation: trimQuotes(cell(row, c.occupation)),
		Total:      total,
		Men:        men,
		Women:      women,
	}, true
}

// Decode converts a header and its data rows into a table. Rows whose
// Total, Men, or Women cell cannot be coerced to a non-negative integer are
// dropped without error. A header lacking a required column yields
// ErrMissingColumns.
func Decode(header []string, rows [][]string) (Table, error) {
	cols, err := resolveColumns(header)
	if err != nil {
		return Table{}, err
	}

	table := make(Table, 0, len(rows))
	for _, row := range rows {
		if r, ok := cols.record(row); ok {
			table = append(table, r)
		}
	}
	logSkipped(len(rows), len(table))
	return table, nil
}

// ReadCSV decodes a CSV census extract. enc names the text encoding
// ("utf-8", "latin1", "windows-1252"). Quoting is strict: an unterminated
// quote fails the load instead of swallowing the rows after it.
func ReadCSV(ctx context.Context, r io.Reader, enc string) (Table, error) {
	decoded, err := fetcher.DecodeReader(r, enc)
	if err != nil {
		return Table{}, err
	}

	rowCh, errCh := fetcher.StreamCSV(ctx, decoded, fetcher.CSVOptions{
		TrimSpace: true,
	})

	header, ok := <-rowCh
	if !ok {
		if err := <-errCh; err != nil {
			return Table{}, err
		}
		return Table{}, eris.Wrap(ErrMissingColumns, "census: empty csv")
	}

	cols, err := resolveColumns(header)
	if err != nil {
		// Drain so the producer goroutine can exit.
		for range rowCh {
		}
		return Table{}, err
	}

	table := Table{}
	seen := 0
	for row := range rowCh {
		seen++
		if rec, ok := cols.record(row); ok {
			table = append(table, rec)
		}
	}
	if err := <-errCh; err != nil {
		return Table{}, err
	}

	logSkipped(seen, len(table))
	return table, nil
}

// ReadXLSX decodes the first sheet of an XLSX census extract.
func ReadXLSX(path string) (Table, error) {
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	if err != nil {
		return Table{}, err
	}
	if len(rows) == 0 {
		return Table{}, eris.Wrapf(ErrMissingColumns, "census: empty sheet in %s", filepath.Base(path))
	}
	return Decode(rows[0], rows[1:])
}

func logSkipped(seen, kept int) {
	if skipped := seen - kept; skipped > 0 {
		zap.L().Debug("census: dropped rows with non-numeric counts",
			zap.Int("rows", seen),
			zap.Int("kept", kept),
			zap.Int("skipped", skipped),
		)
	}
}
