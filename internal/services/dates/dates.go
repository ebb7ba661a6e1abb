// Package dates generates the period labels charts are bucketed by.
package dates

import (
	"fmt"
	"time"

	"ledgerviz/internal/models"
)

// maxBuckets caps the number of generated labels so a wide range with a
// daily interval cannot produce an unbounded response
const maxBuckets = 5000

// AddInterval moves t by n interval units. Month based steps clamp to the
// last day of the target month (Jan 31 + 1 month = Feb 28/29).
func AddInterval(t time.Time, interval models.Interval, n int) (time.Time, error) {
	switch interval {
	case models.Day:
		return t.AddDate(0, 0, n), nil
	case models.Week:
		return t.AddDate(0, 0, 7*n), nil
	case models.Month:
		return addMonths(t, n), nil
	case models.Quarter:
		return addMonths(t, 3*n), nil
	case models.Year:
		return addMonths(t, 12*n), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", models.ErrUnknownInterval, interval)
}

func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, n, 0)
	if last := daysIn(target.Year(), target.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// MakeBucketNames returns the labels from start to end inclusive, stepping
// by interval. Each step is computed from start, not from the previous
// label, so month-end clamping does not drift.
func MakeBucketNames(interval models.Interval, start, end time.Time) ([]string, error) {
	if !interval.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownInterval, interval)
	}

	startDay := truncateDay(start)
	endDay := truncateDay(end)

	names := []string{}
	for i := 0; i < maxBuckets; i++ {
		current, err := AddInterval(startDay, interval, i)
		if err != nil {
			return nil, err
		}
		if current.After(endDay) {
			break
		}
		names = append(names, current.Format(models.DateFormat))
	}

	return names, nil
}

// PreviousBucket returns the label of the bucket one interval before start
func PreviousBucket(interval models.Interval, start time.Time) (string, error) {
	prev, err := AddInterval(truncateDay(start), interval, -1)
	if err != nil {
		return "", err
	}
	return prev.Format(models.DateFormat), nil
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(models.DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
