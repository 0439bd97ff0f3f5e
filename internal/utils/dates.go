package utils

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// NeverDate is the sentinel used for "never sell" / "never extract" dates.
var NeverDate = time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC)

// MonthStart normalizes a date to the first day of its month (UTC, midnight).
// All simulation arithmetic happens on month-start dates.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths returns the month-start date n months after t.
// Negative n walks backwards.
func AddMonths(t time.Time, n int) time.Time {
	t = MonthStart(t)
	return time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}

// MonthsBetween returns the number of whole months from a to b,
// counted on month boundaries. Negative when b is before a.
func MonthsBetween(a, b time.Time) int {
	a = MonthStart(a)
	b = MonthStart(b)
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// SameMonth reports whether two dates fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// ParseDate parses a date in ISO (2024-01-31) or European (31/01/2024) form.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}

	for _, layout := range []string{"2006-01-02", "02/01/2006", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

// FormatMonth renders a month-start date as YYYY-MM-DD for series keys.
func FormatMonth(t time.Time) string {
	return MonthStart(t).Format("2006-01-02")
}

// Round2 rounds a monetary value to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
