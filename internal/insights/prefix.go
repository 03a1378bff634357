// Package insights analyzes resolved IMDRF codes at the prefix level,
// comparing manufacturers against universal and prefix-specific baselines.
package insights

import (
	"regexp"
	"strings"
	"time"
)

// PrefixLen is the number of leading alphanumeric characters that form a
// coarse grouping prefix (e.g. "A05").
const PrefixLen = 3

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)

// Event is one exploded device-problem event row: one source record
// duplicated per extracted prefix. Date is the zero time when the source
// date did not parse.
type Event struct {
	Prefix       string
	Code         string
	Manufacturer string
	Date         time.Time
}

// Dated reports whether the event carries a parsable date.
func (e Event) Dated() bool {
	return !e.Date.IsZero()
}

// ExtractPrefixes derives grouping prefixes from an IMDRF code field.
// The field is split on "|"; each token is stripped to its alphanumeric
// characters and uppercased, and kept only if at least PrefixLen characters
// remain. Duplicates within one field are preserved.
func ExtractPrefixes(codeField string) []string {
	s := strings.TrimSpace(codeField)
	if s == "" || isNullToken(s) {
		return nil
	}

	var prefixes []string
	for _, token := range strings.Split(s, "|") {
		alnum := nonAlphanumeric.ReplaceAllString(strings.TrimSpace(token), "")
		if len(alnum) >= PrefixLen {
			prefixes = append(prefixes, strings.ToUpper(alnum[:PrefixLen]))
		}
	}
	return prefixes
}

// isNullToken matches spreadsheet null artifacts that survive as literal text.
func isNullToken(s string) bool {
	switch strings.ToLower(s) {
	case "nan", "nat", "none":
		return true
	}
	return false
}
