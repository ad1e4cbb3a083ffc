package extract

import (
	"strconv"
	"strings"
	"unicode"
)

// ParsePrice extracts an integer price from a localized price string like
// "450,000원" or "₩1,200,000". Every non-digit character is stripped and the
// remainder parsed; nil means no price, never an error.
func ParsePrice(s string) *int64 {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return nil
	}

	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
