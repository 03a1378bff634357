package insights

import (
	"strings"
	"time"
)

// dateLayout is the day-month-year format of the cleaned dataset. The
// unpadded tokens accept both "15-03-2024" and "5-3-2024".
const dateLayout = "2-1-2006"

// ParseStrictDate parses a day-month-year date string. Blank values, null
// tokens, and anything that fails strict parsing (including invalid
// calendar dates) return ok=false, never an error.
func ParseStrictDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || isNullToken(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
