package journal

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ToDecimal parses a textual amount into a decimal, following the
// European convention used by Tebi exports: '.' is a thousands
// separator, ',' the decimal separator. A plain machine-formatted
// number is accepted as a fallback. The boolean is false for anything
// unparsable; callers must treat that as "missing", never as zero.
func ToDecimal(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Decimal{}, false
	}

	european := strings.ReplaceAll(s, ".", "")
	european = strings.ReplaceAll(european, ",", ".")
	if d, err := decimal.NewFromString(european); err == nil {
		return d, true
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d, true
	}
	return decimal.Decimal{}, false
}

// dateLayouts are tried in order; exports are day-first.
var dateLayouts = []string{
	"2-1-2006",
	"2/1/2006",
	"2006-01-02",
	"2-1-06",
	"2/1/06",
}

// ParseDate parses a day-first calendar date, dropping any time
// component. The boolean is false when no layout matches.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	// Strip a trailing time component such as "31-12-2024 23:59".
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOnly(t), true
		}
	}
	return time.Time{}, false
}

// DateOnly truncates a timestamp to its calendar date in UTC, the
// grouping key used by the builder.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SanitizeGL normalizes a GL account code. Spreadsheet round-trips
// turn codes into floats like "4040.0"; Twinfield rejects those.
func SanitizeGL(code string) string {
	s := strings.TrimSpace(code)
	if s == "" {
		return ""
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d.Truncate(0).String()
	}
	return s
}

// round2 rounds to 2 decimal places, half away from zero. All values
// it sees are absolute, so this is round-half-up.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// truncate shortens a description to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
