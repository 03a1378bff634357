package fetcher

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Sheet holds one worksheet's cells as string rows.
type Sheet struct {
	Name string
	Rows [][]string
}

// ReadWorkbook reads every sheet of an XLSX file, preserving sheet order.
func ReadWorkbook(path string) ([]Sheet, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheets := make([]Sheet, 0, len(f.Sheets))
	for _, sheet := range f.Sheets {
		s := Sheet{Name: sheet.Name}
		for _, row := range sheet.Rows {
			s.Rows = append(s.Rows, rowToStrings(row))
		}
		sheets = append(sheets, s)
	}

	return sheets, nil
}

// ReadXLSX reads the first sheet of an XLSX file.
func ReadXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("xlsx: %s has no sheets", path)
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		rows = append(rows, rowToStrings(row))
	}
	return rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
