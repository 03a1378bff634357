package fetcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeWorkbook(t *testing.T, sheets map[string][][]string, order []string) string {
	t.Helper()

	f := xlsx.NewFile()
	for _, name := range order {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, cells := range sheets[name] {
			row := sheet.AddRow()
			for _, v := range cells {
				row.AddCell().SetString(v)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadWorkbook(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"First":  {{"a", "b"}, {"1", "2"}},
		"Second": {{"x"}},
	}, []string{"First", "Second"})

	sheets, err := ReadWorkbook(path)
	require.NoError(t, err)
	require.Len(t, sheets, 2)

	assert.Equal(t, "First", sheets[0].Name)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, sheets[0].Rows)
	assert.Equal(t, "Second", sheets[1].Name)
}

func TestReadXLSX_FirstSheetOnly(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"First":  {{"a", "b"}},
		"Second": {{"x"}},
	}, []string{"First", "Second"})

	rows, err := ReadXLSX(path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}}, rows)
}

func TestReadXLSX_MissingFile(t *testing.T) {
	_, err := ReadXLSX(filepath.Join(t.TempDir(), "absent.xlsx"))
	assert.Error(t, err)
}
