package clientdata

import (
	"fmt"
	"time"
)

// PurgeHorizon computes when content written at now stops being served.
type PurgeHorizon func(now time.Time) time.Time

// NextMonth purges at midnight UTC on the first day of the following month.
func NextMonth(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

// NextDay purges at the next midnight UTC.
func NextDay(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}

// After purges a fixed duration after writing.
func After(d time.Duration) PurgeHorizon {
	return func(now time.Time) time.Time {
		return now.Add(d)
	}
}

// ParseHorizon accepts "next-month", "next-day" or a Go duration such as "72h".
func ParseHorizon(s string) (PurgeHorizon, error) {
	switch s {
	case "", "next-month":
		return NextMonth, nil
	case "next-day":
		return NextDay, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, fmt.Errorf("invalid purge horizon %q: %w", s, err)
	}
	if d <= 0 {
		return nil, fmt.Errorf("invalid purge horizon %q: must be positive", s)
	}
	return After(d), nil
}
