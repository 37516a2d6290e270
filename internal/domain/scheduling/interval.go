package scheduling

import (
	"iter"
	"time"
)

// Interval is a half-open time interval [Start, End)
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the interval is well-formed (Start < End)
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

// Overlaps reports whether two half-open intervals intersect
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// Contains reports whether other lies entirely within i
func (i Interval) Contains(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

// Candidates walks the work window in step-sized increments and yields every
// start time whose [start, start+duration) window fits inside work and
// intersects no busy interval. The sequence is lazy, finite and restartable;
// it holds no state across iterations.
func Candidates(work Interval, busy []Interval, duration, step time.Duration) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if duration <= 0 || step <= 0 {
			return
		}
		for cursor := work.Start; !cursor.Add(duration).After(work.End); cursor = cursor.Add(step) {
			candidate := Interval{Start: cursor, End: cursor.Add(duration)}
			if !conflicts(candidate, busy) {
				if !yield(cursor) {
					return
				}
			}
		}
	}
}

// CollectCandidates materializes Candidates into an ordered slice
func CollectCandidates(work Interval, busy []Interval, duration, step time.Duration) []time.Time {
	var out []time.Time
	for start := range Candidates(work, busy, duration, step) {
		out = append(out, start)
	}
	return out
}

func conflicts(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if b.Overlaps(candidate) {
			return true
		}
	}
	return false
}
