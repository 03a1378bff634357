package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mfrEvent(prefix, mfr string, d time.Time) Event {
	return Event{Prefix: prefix, Manufacturer: mfr, Date: d}
}

func TestAnalyze_Thresholds(t *testing.T) {
	events := []Event{
		mfrEvent("A05", "ACME", day(2024, 1, 1)),
		mfrEvent("A05", "ACME", day(2024, 1, 2)),
		mfrEvent("A05", "ACME", day(2024, 1, 3)),
		mfrEvent("A05", "ACME", day(2024, 1, 3)),
	}

	r, err := Analyze(events, "A05", []string{"ACME"}, GrainDay, 2.0)
	require.NoError(t, err)

	// Counts per bucket: 1, 1, 2 → mean 4/3, population std sqrt(2)/3.
	assert.InDelta(t, 4.0/3.0, r.PrefixMean, 1e-9)
	assert.InDelta(t, 0.4714045207910317, r.PrefixStd, 1e-9)
	assert.InDelta(t, r.PrefixMean+2*r.PrefixStd, r.UpperThreshold, 1e-9)
	assert.InDelta(t, r.PrefixMean-2*r.PrefixStd, r.LowerThreshold, 1e-9)
}

func TestAnalyze_LowerThresholdFlooredAtZero(t *testing.T) {
	// Contiguous buckets 4,0,0,0,1: mean 1.0, std ~1.55, lower at k=2 < 0.
	events := []Event{
		mfrEvent("A05", "ACME", day(2024, 1, 1)),
		mfrEvent("A05", "ACME", day(2024, 1, 1)),
		mfrEvent("A05", "ACME", day(2024, 1, 1)),
		mfrEvent("A05", "ACME", day(2024, 1, 1)),
		mfrEvent("A05", "ACME", day(2024, 1, 5)),
	}

	r, err := Analyze(events, "A05", []string{"ACME"}, GrainDay, 2.0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.LowerThreshold)
	assert.Greater(t, r.UpperThreshold, r.PrefixMean)
}

func TestAnalyze_BaselineCountsQuietBuckets(t *testing.T) {
	events := []Event{
		mfrEvent("A05", "ACME", day(2024, 1, 1)),
		mfrEvent("A05", "ACME", day(2024, 1, 10)),
	}

	r, err := Analyze(events, "A05", []string{"ACME"}, GrainDay, 2.0)
	require.NoError(t, err)

	// Ten daily buckets, eight of them zero.
	assert.InDelta(t, 0.2, r.PrefixMean, 1e-9)
	assert.InDelta(t, 0.2, r.UniversalMean, 1e-9)
	assert.InDelta(t, 0.4, r.PrefixStd, 1e-9)
}

func TestAnalyze_UniversalBaselineSpansAllPrefixes(t *testing.T) {
	events := []Event{
		mfrEvent("A05", "ACME", day(2024, 1, 1)),
		mfrEvent("B07", "Other", day(2024, 1, 1)),
		mfrEvent("B07", "Other", day(2024, 1, 2)),
	}

	r, err := Analyze(events, "A05", []string{"ACME"}, GrainDay, 2.0)
	require.NoError(t, err)

	// Universal: buckets {2, 1} → mean 1.5. Prefix A05: single bucket of 1.
	assert.InDelta(t, 1.5, r.UniversalMean, 1e-9)
	assert.InDelta(t, 1.0, r.PrefixMean, 1e-9)
}

func TestAnalyze_SeriesAlignedOnSharedRange(t *testing.T) {
	events := []Event{
		mfrEvent("A05", "ACME", day(2024, 1, 1)),
		mfrEvent("A05", "ACME", day(2024, 1, 5)),
		mfrEvent("A05", "Globex", day(2024, 1, 3)),
	}

	r, err := Analyze(events, "A05", []string{"ACME", "Globex"}, GrainDay, 2.0)
	require.NoError(t, err)

	require.Len(t, r.DateRange, 5)
	assert.Equal(t, []int{1, 0, 0, 0, 1}, r.Series["ACME"])
	assert.Equal(t, []int{0, 0, 1, 0, 0}, r.Series["Globex"])

	require.Len(t, r.Stats, 2)
	assert.Equal(t, "ACME", r.Stats[0].Manufacturer)
	assert.Equal(t, 2, r.Stats[0].TotalEvents)
	assert.Equal(t, 2, r.Stats[0].BucketsWithEvents)
	assert.Equal(t, 1, r.Stats[1].TotalEvents)
}

func TestAnalyze_NoValidDates(t *testing.T) {
	events := []Event{{Prefix: "A05", Manufacturer: "ACME"}}

	_, err := Analyze(events, "A05", []string{"ACME"}, GrainDay, 2.0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid dates")
}

func TestAnalyze_UnknownPrefix(t *testing.T) {
	events := []Event{mfrEvent("A05", "ACME", day(2024, 1, 1))}

	_, err := Analyze(events, "Z99", []string{"ACME"}, GrainDay, 2.0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no data found for prefix "Z99"`)
}

func TestAnalyze_NoDataForSelectedManufacturers(t *testing.T) {
	events := []Event{mfrEvent("A05", "ACME", day(2024, 1, 1))}

	_, err := Analyze(events, "A05", []string{"Globex"}, GrainDay, 2.0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data found for selected manufacturers")
}

func TestTopManufacturers(t *testing.T) {
	events := []Event{
		mfrEvent("A05", "ACME", day(2024, 1, 1)),
		mfrEvent("A05", "ACME", day(2024, 1, 2)),
		mfrEvent("A05", "Globex", day(2024, 1, 1)),
		mfrEvent("A05", "Initech", day(2024, 1, 1)),
		mfrEvent("B07", "Umbrella", day(2024, 1, 1)),
		{Prefix: "A05", Date: day(2024, 1, 1)}, // blank manufacturer dropped
	}

	got := TopManufacturers(events, "A05", 2)
	assert.Equal(t, []string{"ACME", "Globex"}, got)

	// Ties break alphabetically: Globex and Initech both have one event.
	got = TopManufacturers(events, "A05", 3)
	assert.Equal(t, []string{"ACME", "Globex", "Initech"}, got)

	assert.Empty(t, TopManufacturers(events, "Z99", 5))
}
