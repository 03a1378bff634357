package insights

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"
)

// ManufacturerStats summarizes one manufacturer's reindexed series.
type ManufacturerStats struct {
	Manufacturer      string  `json:"manufacturer"`
	TotalEvents       int     `json:"total_events"`
	MeanPerBucket     float64 `json:"mean_per_bucket"`
	MaxPerBucket      int     `json:"max_per_bucket"`
	BucketsWithEvents int     `json:"buckets_with_events"`
}

// Result holds a prefix insights analysis: baselines, thresholds, and
// per-manufacturer series aligned on a shared bucket range.
type Result struct {
	Prefix         string              `json:"prefix"`
	Grain          Grain               `json:"grain"`
	ThresholdK     float64             `json:"threshold_k"`
	UniversalMean  float64             `json:"universal_mean"`
	PrefixMean     float64             `json:"prefix_mean"`
	PrefixStd      float64             `json:"prefix_std"`
	UpperThreshold float64             `json:"upper_threshold"`
	LowerThreshold float64             `json:"lower_threshold"`
	DateRange      []time.Time         `json:"date_range"`
	Series         map[string][]int    `json:"series"` // manufacturer → counts aligned with DateRange
	Stats          []ManufacturerStats `json:"stats"`
}

// Analyze computes baselines, thresholds, and per-manufacturer series for
// one prefix. Events must already be exploded; undated events are ignored.
// Empty selections are user-facing validation failures, not crashes.
func Analyze(events []Event, prefix string, manufacturers []string, g Grain, k float64) (*Result, error) {
	var dated []Event
	for _, e := range events {
		if e.Dated() {
			dated = append(dated, e)
		}
	}
	if len(dated) == 0 {
		return nil, eris.New("insights: no valid dates found in dataset")
	}

	// Universal baseline: every coded, dated event regardless of prefix.
	universalMean := AggregateByGrain(dated, g).Mean()

	var prefixEvents []Event
	for _, e := range dated {
		if e.Prefix == prefix {
			prefixEvents = append(prefixEvents, e)
		}
	}
	if len(prefixEvents) == 0 {
		return nil, eris.Errorf("insights: no data found for prefix %q", prefix)
	}

	prefixSeries := AggregateByGrain(prefixEvents, g)
	prefixMean := prefixSeries.Mean()
	prefixStd := prefixSeries.Std()

	upper := prefixMean + k*prefixStd
	lower := prefixMean - k*prefixStd
	if lower < 0 {
		lower = 0 // event counts cannot go negative
	}

	selected := make(map[string]bool, len(manufacturers))
	for _, m := range manufacturers {
		selected[m] = true
	}
	var selectedEvents []Event
	for _, e := range prefixEvents {
		if selected[e.Manufacturer] {
			selectedEvents = append(selectedEvents, e)
		}
	}
	if len(selectedEvents) == 0 {
		return nil, eris.Errorf("insights: no data found for selected manufacturers with prefix %q", prefix)
	}

	// Per-manufacturer series, then a shared contiguous range spanning the
	// union of observed buckets so every series aligns.
	perMfr := make(map[string]Series, len(manufacturers))
	var minBucket, maxBucket time.Time
	for _, m := range manufacturers {
		var mfrEvents []Event
		for _, e := range selectedEvents {
			if e.Manufacturer == m {
				mfrEvents = append(mfrEvents, e)
			}
		}
		s := AggregateByGrain(mfrEvents, g)
		perMfr[m] = s
		if s.Len() == 0 {
			continue
		}
		first, last := s.Buckets[0], s.Buckets[s.Len()-1]
		if minBucket.IsZero() || first.Before(minBucket) {
			minBucket = first
		}
		if maxBucket.IsZero() || last.After(maxBucket) {
			maxBucket = last
		}
	}

	var dateRange []time.Time
	if !minBucket.IsZero() {
		dateRange = BucketRange(minBucket, maxBucket, g)
	}

	result := &Result{
		Prefix:         prefix,
		Grain:          g,
		ThresholdK:     k,
		UniversalMean:  universalMean,
		PrefixMean:     prefixMean,
		PrefixStd:      prefixStd,
		UpperThreshold: upper,
		LowerThreshold: lower,
		DateRange:      dateRange,
		Series:         make(map[string][]int, len(manufacturers)),
	}

	for _, m := range manufacturers {
		s := perMfr[m].Reindex(dateRange)
		result.Series[m] = s.Counts
		result.Stats = append(result.Stats, ManufacturerStats{
			Manufacturer:      m,
			TotalEvents:       s.Sum(),
			MeanPerBucket:     s.Mean(),
			MaxPerBucket:      s.Max(),
			BucketsWithEvents: s.NonZero(),
		})
	}

	return result, nil
}

// TopManufacturers returns the top n manufacturers by event volume for a
// prefix, largest first. Ties are broken alphabetically for stable output.
func TopManufacturers(events []Event, prefix string, n int) []string {
	counts := make(map[string]int)
	for _, e := range events {
		if e.Prefix == prefix && e.Manufacturer != "" {
			counts[e.Manufacturer]++
		}
	}

	names := make([]string, 0, len(counts))
	for m := range counts {
		names = append(names, m)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	if len(names) > n {
		names = names[:n]
	}
	return names
}
