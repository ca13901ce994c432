package census

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const sampleCSV = `Occupation,Total,Men,Women
"Police officers (except commissioned)","12,345","9,000","3,345"
Firefighters,500,480,20
Registered nurses,n/a,1,2
"1 Business, finance and administration occupations","2,500,000","1,000,000","1,500,000"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func writeXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, r := range rows {
		row := sheet.AddRow()
		for _, c := range r {
			row.AddCell().SetString(c)
		}
	}
	p := filepath.Join(t.TempDir(), "census.xlsx")
	require.NoError(t, f.Save(p))
	return p
}

func writeZIP(t *testing.T, files map[string][]byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "census.zip")
	out, err := os.Create(p)
	require.NoError(t, err)
	defer out.Close() //nolint:errcheck

	w := zip.NewWriter(out)
	for name, data := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return p
}
