package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownInterval is returned when an interval name is not recognised
var ErrUnknownInterval = errors.New("unknown interval")

// Interval is the granularity of a date bucket
type Interval string

const (
	Day     Interval = "day"
	Week    Interval = "week"
	Month   Interval = "month"
	Quarter Interval = "quarter"
	Year    Interval = "year"
)

// Intervals lists every supported interval, finest first
func Intervals() []Interval {
	return []Interval{Day, Week, Month, Quarter, Year}
}

// ParseInterval parses an interval name (case-insensitive)
func ParseInterval(s string) (Interval, error) {
	switch Interval(strings.ToLower(strings.TrimSpace(s))) {
	case Day:
		return Day, nil
	case Week:
		return Week, nil
	case Month:
		return Month, nil
	case Quarter:
		return Quarter, nil
	case Year:
		return Year, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownInterval, s)
}

// Valid reports whether i is one of the supported intervals
func (i Interval) Valid() bool {
	_, err := ParseInterval(string(i))
	return err == nil
}
