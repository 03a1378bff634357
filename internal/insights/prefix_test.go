package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPrefixes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single code", "A050101", []string{"A05"}},
		{"punctuation stripped", "A05.12|a 07|XY", []string{"A05", "A07"}},
		{"short token dropped", "A0|B0701", []string{"B07"}},
		{"lowercase uppercased", "b0701", []string{"B07"}},
		{"duplicates kept", "A0501|A050102", []string{"A05", "A05"}},
		{"empty", "", nil},
		{"whitespace", "   ", nil},
		{"nan artifact", "nan", nil},
		{"nat artifact", "NaT", nil},
		{"none artifact", "None", nil},
		{"pipe padding", " A0501 | B07 ", []string{"A05", "B07"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPrefixes(tt.in))
		})
	}
}
