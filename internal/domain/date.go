package domain

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate parses a calendar day (YYYY-MM-DD) as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &ValidationError{Field: "route_date", Msg: fmt.Sprintf("invalid date %q, want YYYY-MM-DD", s)}
	}
	return d, nil
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func FormatDate(t time.Time) string { return t.Format(DateLayout) }
