package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTL(t *testing.T) {
	cases := map[string]string{
		"0":         "0 TL",
		"999":       "999 TL",
		"1000":      "1,000 TL",
		"1500.5":    "1,501 TL",
		"1234567.8": "1,234,568 TL",
		"100000":    "100,000 TL",
		"-2500":     "-2,500 TL",
		"0.4":       "0 TL",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatTL(dec(in)), in)
	}
}
