package annex

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	slashSpacing  = regexp.MustCompile(`\s*/\s*`)
	trailingPunct = regexp.MustCompile(`[.,;:]+$`)
)

// Normalize canonicalizes a term for matching: lowercase, collapse
// whitespace runs, tighten spacing around "/", strip trailing punctuation.
// The literal token "nan" (a spreadsheet null artifact) normalizes to "".
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "nan" {
		return ""
	}
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = slashSpacing.ReplaceAllString(s, "/")
	s = strings.TrimSpace(trailingPunct.ReplaceAllString(s, ""))
	return s
}

// IsBlank reports whether a raw cell value carries no content.
func IsBlank(s string) bool {
	t := strings.TrimSpace(s)
	return t == "" || strings.EqualFold(t, "nan")
}
