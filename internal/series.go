// v2
// series.go
package internal

import "time"

// TimeRange selects the presentation window for a series query.
type TimeRange string

const (
	RangeAll TimeRange = "all"
	Range24h TimeRange = "24h"
	Range7d  TimeRange = "7d"
	Range30d TimeRange = "30d"
)

// ParseTimeRange maps a query value to a TimeRange; empty means unbounded.
func ParseTimeRange(s string) (TimeRange, bool) {
	switch TimeRange(s) {
	case "", RangeAll:
		return RangeAll, true
	case Range24h, Range7d, Range30d:
		return TimeRange(s), true
	}
	return RangeAll, false
}

// cutoff returns the inclusive lower bound for the range relative to now.
// The second result is false for the unbounded range.
func (tr TimeRange) cutoff(now time.Time) (time.Time, bool) {
	switch tr {
	case Range24h:
		return now.Add(-24 * time.Hour), true
	case Range7d:
		return now.AddDate(0, 0, -7), true
	case Range30d:
		return now.AddDate(0, 0, -30), true
	default:
		return time.Time{}, false
	}
}

// buildSeries windows the canonicalized batches to the requested range and
// reshapes them into one ascending series per requested hive. Windowing uses
// each reading's resolved timestamp (own field, else batch/source time).
// A batch contributing zero measured metrics across all requested hives is
// dropped entirely; defaults alone (battery 100) do not keep a tick alive.
func buildSeries(batches []batch, readings map[int64][]CanonicalReading, hives []int, tr TimeRange, now time.Time) []HiveSeries {
	cut, bounded := tr.cutoff(now)

	wanted := make(map[int]bool, len(hives))
	for _, h := range hives {
		wanted[h] = true
	}

	series := make([]HiveSeries, len(hives))
	for i, h := range hives {
		series[i] = HiveSeries{HiveNumber: h}
	}
	index := make(map[int]int, len(hives))
	for i, h := range hives {
		index[h] = i
	}

	for _, b := range batches {
		if bounded && b.time.Before(cut) {
			continue
		}
		tick := readings[b.time.UnixMilli()]
		measured := 0
		for _, r := range tick {
			if wanted[r.HiveNumber] {
				measured += r.Measured
			}
		}
		if measured == 0 {
			continue
		}
		for _, r := range tick {
			i, ok := index[r.HiveNumber]
			if !ok {
				continue
			}
			if bounded && r.Timestamp.Before(cut) {
				continue
			}
			series[i].Readings = append(series[i].Readings, r)
		}
	}
	return series
}
