// v1
// fallback.go
package internal

// LastKnown resolves the last usable value for one metric over the
// concatenation of a hive's historical and current series (both ascending).
// If the most recent reading's value is nil or exactly zero, the walk
// continues backward until a non-nil, non-zero value is found; individual
// export ticks frequently drop a sensor transiently, and consumers should
// show the last known state rather than flickering to "no data". Returns nil
// when no such value exists anywhere in the window.
func LastKnown(history, current []CanonicalReading, m Metric) *float64 {
	for i := len(current) - 1; i >= 0; i-- {
		if v := usable(current[i].Metrics[m]); v != nil {
			return v
		}
	}
	for i := len(history) - 1; i >= 0; i-- {
		if v := usable(history[i].Metrics[m]); v != nil {
			return v
		}
	}
	return nil
}

func usable(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	return clone(v)
}
