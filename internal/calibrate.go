// v1
// calibrate.go
package internal

import "time"

// OffsetApplies reports whether a calibration saved at appliedAt corrects a
// value observed at ts. The offset applies iff ts is strictly after
// appliedAt; a profile with no applied-at instant never corrects anything.
//
// Policy: a zero ts (a value with no timestamp of its own, e.g. fallback-
// resolved historical data) is treated as later than any calibration, so the
// correction is applied. This is a deliberate choice, not a physical fact:
// dropping corrections silently on timestamp-less data would be worse than
// over-applying them.
func OffsetApplies(ts time.Time, appliedAt *time.Time) bool {
	if appliedAt == nil {
		return false
	}
	if ts.IsZero() {
		return true
	}
	return ts.After(*appliedAt)
}

// applyCalibration returns a copy of r with the profile's non-zero offsets
// added to every metric whose reading qualifies. The input is never mutated.
func applyCalibration(r CanonicalReading, prof CalibrationProfile) CanonicalReading {
	if prof.AppliedAt == nil || len(prof.Offsets) == 0 {
		return r
	}
	ts := r.Timestamp
	corrected := make(map[Metric]*float64, len(r.Metrics))
	for m, v := range r.Metrics {
		off := prof.Offsets[m]
		if v == nil || off == 0 || !OffsetApplies(ts, prof.AppliedAt) {
			corrected[m] = clone(v)
			continue
		}
		nv := *v + off
		corrected[m] = &nv
	}
	out := r
	out.Metrics = corrected
	return out
}
