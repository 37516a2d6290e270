package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Slot step bounds accepted from callers, in minutes
const (
	MinStepMinutes = 5
	MaxStepMinutes = 60
)

// ParseDay parses a YYYY-MM-DD day string
func ParseDay(day string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: use YYYY-MM-DD", day)
	}
	return d, nil
}

// WorkWindow combines a calendar day with "HH:MM" wall-clock bounds into the
// staff member's working interval for that day
func WorkWindow(day time.Time, startClock, endClock string) (Interval, error) {
	start, err := atClock(day, startClock)
	if err != nil {
		return Interval{}, err
	}
	end, err := atClock(day, endClock)
	if err != nil {
		return Interval{}, err
	}
	w := Interval{Start: start, End: end}
	if !w.Valid() {
		return Interval{}, fmt.Errorf("work window %s-%s is empty", startClock, endClock)
	}
	return w, nil
}

func atClock(day time.Time, clock string) (time.Time, error) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid clock time %q: use HH:MM", clock)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid clock time %q: use HH:MM", clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid clock time %q: use HH:MM", clock)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()), nil
}
