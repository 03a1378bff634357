package insights

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/maude-cli/internal/fetcher"
)

// Dataset is a prepared cleaned dataset: exploded, dated event rows plus
// the selection metadata the presentation layer asks for.
type Dataset struct {
	Events        []Event
	Prefixes      []string // sorted unique
	Manufacturers []string // sorted unique, blanks dropped

	CodeColumn         string
	ManufacturerColumn string
	DateColumn         string

	TotalRows    int // source records
	ExplodedRows int // records fanned out per prefix
	DatedRows    int // exploded rows with a parsable date
}

// DatasetOptions tunes dataset reading.
type DatasetOptions struct {
	Encoding string // CSV source charset; empty = UTF-8
}

// PrepareDataset reads a cleaned CSV or XLSX dataset, discovers the
// required columns, explodes IMDRF prefixes, and drops undated rows.
// Every failure here is a user-facing validation error.
func PrepareDataset(path string, opts DatasetOptions) (*Dataset, error) {
	rows, err := readTable(path, opts)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("insights: %s is empty", path)
	}

	header := rows[0]
	codeCol := findColumn(header, "IMDRF Code")
	if codeCol < 0 {
		return nil, eris.New("insights: missing required column: IMDRF Code")
	}
	mfrCol := findColumn(header, "Manufacturer")
	if mfrCol < 0 {
		mfrCol = findColumn(header, "Manufacturer Name")
	}
	if mfrCol < 0 {
		return nil, eris.New("insights: missing required column: Manufacturer or Manufacturer Name")
	}
	dateCol := findColumn(header, "Event Date")
	if dateCol < 0 {
		dateCol = findColumn(header, "Date Received")
	}
	if dateCol < 0 {
		return nil, eris.New("insights: missing required date column: Event Date or Date Received")
	}

	ds := &Dataset{
		CodeColumn:         strings.TrimSpace(header[codeCol]),
		ManufacturerColumn: strings.TrimSpace(header[mfrCol]),
		DateColumn:         strings.TrimSpace(header[dateCol]),
	}

	prefixSet := make(map[string]bool)
	mfrSet := make(map[string]bool)

	for _, row := range rows[1:] {
		ds.TotalRows++

		prefixes := ExtractPrefixes(cleanCell(cellAt(row, codeCol)))
		if len(prefixes) == 0 {
			continue
		}
		ds.ExplodedRows += len(prefixes)

		date, ok := ParseStrictDate(cleanCell(cellAt(row, dateCol)))
		if !ok {
			continue
		}
		mfr := cleanCell(cellAt(row, mfrCol))

		// One event per extracted prefix; duplicates within a record are
		// kept and weight the aggregation accordingly.
		for _, p := range prefixes {
			ds.Events = append(ds.Events, Event{
				Prefix:       p,
				Code:         cleanCell(cellAt(row, codeCol)),
				Manufacturer: mfr,
				Date:         date,
			})
			ds.DatedRows++
			prefixSet[p] = true
			if mfr != "" {
				mfrSet[mfr] = true
			}
		}
	}

	if ds.ExplodedRows == 0 {
		return nil, eris.New("insights: no valid IMDRF codes found in the dataset")
	}
	if ds.DatedRows == 0 {
		return nil, eris.Errorf("insights: no parsable dates found in %q column (expected DD-MM-YYYY)", ds.DateColumn)
	}

	ds.Prefixes = sortedKeys(prefixSet)
	ds.Manufacturers = sortedKeys(mfrSet)

	zap.L().Info("insights: prepared dataset",
		zap.String("path", path),
		zap.Int("total_rows", ds.TotalRows),
		zap.Int("exploded_rows", ds.ExplodedRows),
		zap.Int("dated_rows", ds.DatedRows),
		zap.Int("prefixes", len(ds.Prefixes)),
		zap.Int("manufacturers", len(ds.Manufacturers)),
	)

	return ds, nil
}

// readTable loads a CSV or XLSX file into string rows.
func readTable(path string, opts DatasetOptions) ([][]string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "insights: open %s", path)
		}
		defer f.Close()
		return fetcher.ReadCSV(f, fetcher.CSVOptions{TrimSpace: true, LazyQuotes: true, Encoding: opts.Encoding})
	case ".xlsx", ".xls":
		return fetcher.ReadXLSX(path)
	default:
		return nil, eris.Errorf("insights: unsupported file format %q (want CSV, XLS, or XLSX)", ext)
	}
}

// findColumn locates a header column by normalized name.
func findColumn(header []string, name string) int {
	target := strings.ToLower(strings.TrimSpace(name))
	for i, col := range header {
		if strings.ToLower(strings.TrimSpace(col)) == target {
			return i
		}
	}
	return -1
}

// cleanCell trims a cell and blanks out spreadsheet null artifacts.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	switch s {
	case "nan", "NaN", "None":
		return ""
	}
	return s
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
