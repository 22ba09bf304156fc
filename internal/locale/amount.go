// Package locale normalizes the number and date encodings found in
// institution exports.
package locale

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a locale-formatted amount to a signed decimal.
// "1 234,56" -> 1234.56, "-123,45" -> -123.45, "1.234,56" -> 1234.56.
// Input without digits yields zero. Callers decide how to apply the sign.
func ParseAmount(s string) decimal.Decimal {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\u00a0' || r == '\u202f' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero
	}

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')
	switch {
	case lastDot >= 0 && lastComma >= 0 && lastComma > lastDot:
		// 1.234,56
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastDot >= 0 && lastComma >= 0:
		// 1,234.56
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	var (
		b        strings.Builder
		negative bool
		seenDot  bool
	)
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !seenDot:
			seenDot = true
			b.WriteRune(r)
		case r == '-':
			// Leading or trailing minus ("-12.00", "12.00-").
			if b.Len() == 0 || i == len(s)-1 {
				negative = true
			}
		}
	}

	digits := strings.Trim(b.String(), ".")
	if digits == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		return d.Neg()
	}
	return d
}

// CleanDescription trims and collapses runs of whitespace to one space.
func CleanDescription(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
