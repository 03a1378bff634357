package insights

import (
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
)

// Grain is the time-bucket resolution for aggregation.
type Grain string

const (
	GrainDay   Grain = "day"
	GrainWeek  Grain = "week"
	GrainMonth Grain = "month"
)

// ParseGrain validates a grain name.
func ParseGrain(s string) (Grain, error) {
	switch Grain(s) {
	case GrainDay, GrainWeek, GrainMonth:
		return Grain(s), nil
	}
	return "", eris.Errorf("insights: invalid grain %q (want day, week, or month)", s)
}

// Bucket rounds t down to the grain: the calendar date for day, the
// Monday of the ISO week for week, the first of the month for month.
func (g Grain) Bucket(t time.Time) time.Time {
	y, m, d := t.Date()
	switch g {
	case GrainWeek:
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	case GrainMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}

// Next advances a bucket key by one grain step.
func (g Grain) Next(t time.Time) time.Time {
	switch g {
	case GrainWeek:
		return t.AddDate(0, 0, 7)
	case GrainMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// Series is an ordered bucket→count mapping built fresh per aggregation.
type Series struct {
	Buckets []time.Time
	Counts  []int
}

// Len returns the number of buckets.
func (s Series) Len() int {
	return len(s.Buckets)
}

// Mean returns the arithmetic mean bucket count, or 0 for an empty series.
func (s Series) Mean() float64 {
	if len(s.Counts) == 0 {
		return 0
	}
	sum := 0
	for _, c := range s.Counts {
		sum += c
	}
	return float64(sum) / float64(len(s.Counts))
}

// Std returns the population standard deviation (divisor = bucket count)
// of the bucket counts, or 0 for an empty series.
func (s Series) Std() float64 {
	if len(s.Counts) == 0 {
		return 0
	}
	mean := s.Mean()
	var sq float64
	for _, c := range s.Counts {
		d := float64(c) - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(s.Counts)))
}

// Sum returns the total event count across buckets.
func (s Series) Sum() int {
	sum := 0
	for _, c := range s.Counts {
		sum += c
	}
	return sum
}

// Max returns the largest single-bucket count, or 0 for an empty series.
func (s Series) Max() int {
	max := 0
	for _, c := range s.Counts {
		if c > max {
			max = c
		}
	}
	return max
}

// NonZero returns the number of buckets with at least one event.
func (s Series) NonZero() int {
	n := 0
	for _, c := range s.Counts {
		if c > 0 {
			n++
		}
	}
	return n
}

// AggregateByGrain buckets dated events into an ordered series spanning
// the full range from first to last observed bucket, with zero counts for
// gaps. Quiet periods therefore pull the baseline mean down instead of
// being skipped. Events without a valid date are excluded before bucketing.
func AggregateByGrain(events []Event, g Grain) Series {
	counts := make(map[time.Time]int)
	for _, e := range events {
		if !e.Dated() {
			continue
		}
		counts[g.Bucket(e.Date)]++
	}

	buckets := make([]time.Time, 0, len(counts))
	for b := range counts {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Before(buckets[j]) })

	s := Series{Buckets: buckets, Counts: make([]int, len(buckets))}
	for i, b := range buckets {
		s.Counts[i] = counts[b]
	}
	if s.Len() == 0 {
		return s
	}
	return s.Reindex(BucketRange(s.Buckets[0], s.Buckets[s.Len()-1], g))
}

// BucketRange builds the contiguous bucket range from start to end
// inclusive, stepped at the grain.
func BucketRange(start, end time.Time, g Grain) []time.Time {
	if end.Before(start) {
		return nil
	}
	var out []time.Time
	for b := g.Bucket(start); !b.After(g.Bucket(end)); b = g.Next(b) {
		out = append(out, b)
	}
	return out
}

// Reindex projects a series onto a shared bucket range, filling buckets
// absent from the series with zero. The result has one count per range
// bucket, enabling aligned multi-series comparison.
func (s Series) Reindex(dateRange []time.Time) Series {
	counts := make(map[time.Time]int, len(s.Buckets))
	for i, b := range s.Buckets {
		counts[b] = s.Counts[i]
	}

	out := Series{Buckets: dateRange, Counts: make([]int, len(dateRange))}
	for i, b := range dateRange {
		out.Counts[i] = counts[b]
	}
	return out
}
