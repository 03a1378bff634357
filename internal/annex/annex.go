// Package annex loads the IMDRF Annex controlled vocabulary from a
// multi-sheet workbook into lookup maps and hierarchy lists.
package annex

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/maude-cli/internal/fetcher"
)

// Code lengths encode hierarchy depth: "A05" is level 1, "A0501" level 2,
// "A050101" level 3.
const (
	level1CodeLen = 3
	level2CodeLen = 5
	level3CodeLen = 7
)

const headerScanRows = 50

var requiredColumns = []string{"Level 1 Term", "Level 2 Term", "Level 3 Term", "Code"}

// Annex holds the loaded controlled vocabulary. Term keys are normalized.
type Annex struct {
	Level1Map map[string]string // normalized level-1 term → 3-char code
	Level2Map map[string]string // normalized level-2 term → 5-char code
	Level3Map map[string]string // normalized level-3 term → 7-char code

	// Level1Terms preserves workbook order for candidate lists.
	Level1Terms []string

	Level2Children map[string][]string // level-1 term → ordered level-2 terms
	Level3Children map[string][]string // level-2 term → ordered level-3 terms

	codes map[string]struct{}
}

// Load parses every sheet of the Annex workbook. Sheets without the
// required header row are skipped.
func Load(path string) (*Annex, error) {
	sheets, err := fetcher.ReadWorkbook(path)
	if err != nil {
		return nil, eris.Wrapf(err, "annex: load %s", path)
	}

	a := &Annex{
		Level1Map:      make(map[string]string),
		Level2Map:      make(map[string]string),
		Level3Map:      make(map[string]string),
		Level2Children: make(map[string][]string),
		Level3Children: make(map[string][]string),
		codes:          make(map[string]struct{}),
	}

	for _, sheet := range sheets {
		a.loadSheet(sheet)
	}

	zap.L().Info("annex: loaded vocabulary",
		zap.String("path", path),
		zap.Int("level1_terms", len(a.Level1Map)),
		zap.Int("level2_terms", len(a.Level2Map)),
		zap.Int("level3_terms", len(a.Level3Map)),
		zap.Int("total_codes", len(a.codes)),
	)

	return a, nil
}

// loadSheet walks one sheet top to bottom, forward-filling the level-1 and
// level-2 term columns and carrying the current parent context.
func (a *Annex) loadSheet(sheet fetcher.Sheet) {
	cols, headerIdx, ok := findHeader(sheet.Rows)
	if !ok {
		zap.L().Debug("annex: sheet skipped, no header row", zap.String("sheet", sheet.Name))
		return
	}

	var fillL1, fillL2 string // forward-filled raw term cells
	var currentL1, currentL2 string

	for _, row := range sheet.Rows[headerIdx+1:] {
		if v := cell(row, cols["Level 1 Term"]); !IsBlank(v) {
			fillL1 = v
		}
		if v := cell(row, cols["Level 2 Term"]); !IsBlank(v) {
			fillL2 = v
		}

		code := strings.TrimSpace(cell(row, cols["Code"]))
		if code == "" || strings.EqualFold(code, "nan") {
			continue
		}
		a.codes[code] = struct{}{}

		l1 := Normalize(fillL1)
		l2 := Normalize(fillL2)
		l3 := Normalize(cell(row, cols["Level 3 Term"]))

		switch {
		case len(code) == level1CodeLen && l1 != "":
			if _, seen := a.Level1Map[l1]; !seen {
				a.Level1Map[l1] = code
			}
			if !contains(a.Level1Terms, l1) {
				a.Level1Terms = append(a.Level1Terms, l1)
			}
			currentL1 = l1
		case len(code) == level2CodeLen && l2 != "":
			if _, seen := a.Level2Map[l2]; !seen {
				a.Level2Map[l2] = code
			}
			if currentL1 != "" && !contains(a.Level2Children[currentL1], l2) {
				a.Level2Children[currentL1] = append(a.Level2Children[currentL1], l2)
			}
			currentL2 = l2
		case len(code) == level3CodeLen && l3 != "":
			if _, seen := a.Level3Map[l3]; !seen {
				a.Level3Map[l3] = code
			}
			if currentL2 != "" && !contains(a.Level3Children[currentL2], l3) {
				a.Level3Children[currentL2] = append(a.Level3Children[currentL2], l3)
			}
		}
	}
}

// findHeader scans the first rows of a sheet for the required column labels.
// Returns the column index per label and the header row index.
func findHeader(rows [][]string) (map[string]int, int, bool) {
	limit := headerScanRows
	if len(rows) < limit {
		limit = len(rows)
	}

	for i := 0; i < limit; i++ {
		cols := make(map[string]int, len(requiredColumns))
		for j, v := range rows[i] {
			v = strings.TrimSpace(v)
			for _, want := range requiredColumns {
				if v == want {
					cols[want] = j
				}
			}
		}
		if len(cols) == len(requiredColumns) {
			return cols, i, true
		}
	}
	return nil, 0, false
}

// ExactMatch resolves a normalized term against the three level maps, most
// specific level first. Returns "" when no level matches.
func (a *Annex) ExactMatch(norm string) string {
	if code, ok := a.Level3Map[norm]; ok {
		return code
	}
	if code, ok := a.Level2Map[norm]; ok {
		return code
	}
	if code, ok := a.Level1Map[norm]; ok {
		return code
	}
	return ""
}

// ValidateCode reports whether code appears anywhere in the Annex.
func (a *Annex) ValidateCode(code string) bool {
	_, ok := a.codes[code]
	return ok
}

// CodeCount returns the number of distinct codes seen while loading.
func (a *Annex) CodeCount() int {
	return len(a.codes)
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
