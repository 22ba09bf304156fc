package locale

import (
	"math"
	"strings"
	"time"
)

// Date layouts understood by ParseDate.
const (
	LayoutDMY = "DD/MM/YYYY"
	LayoutISO = "YYYY-MM-DD"
	LayoutMDY = "MM/DD/YYYY"
)

var goLayouts = map[string]string{
	LayoutDMY: "2/1/2006",
	LayoutISO: "2006-1-2",
	LayoutMDY: "1/2/2006",
}

// fallbackLayouts are tried in order when the requested layout fails.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-1-2",
	"2006/1/2",
	"2/1/2006",
	"2/1/06",
	"2 Jan 2006",
	"Jan 2, 2006",
	"20060102",
}

// excelEpoch is day zero of the 1900 date system as exporting spreadsheets
// compute it, including the phantom 1900-02-29.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseDate parses s with the given layout (LayoutDMY, LayoutISO, LayoutMDY),
// falling back to generic layouts. The boolean is false when nothing matched;
// callers skip the row.
func ParseDate(s, layout string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if goLayout, ok := goLayouts[layout]; ok {
		candidate := s
		// Drop a trailing time component ("15/01/2025 00:00:00").
		if i := strings.IndexByte(candidate, ' '); i > 0 {
			candidate = candidate[:i]
		}
		if layout != LayoutISO {
			candidate = strings.NewReplacer(".", "/", "-", "/").Replace(candidate)
		}
		if t, err := time.Parse(goLayout, candidate); err == nil {
			return dateOnly(t), true
		}
	}

	for _, l := range fallbackLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return dateOnly(t), true
		}
	}
	return time.Time{}, false
}

// ExcelSerialToDate converts a spreadsheet date serial to a calendar date.
// Fractions (time of day) are dropped.
func ExcelSerialToDate(n float64) time.Time {
	return excelEpoch.AddDate(0, 0, int(math.Floor(n)))
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
