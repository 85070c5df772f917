// v3
// normalize.go
package internal

import "time"

// metricAliases maps each canonical metric to the raw field names observed
// across firmware and export versions, in lookup order. This table is part of
// the output contract: resolving the same rows against the same aliases must
// yield bit-identical values. Supporting a new export schema means extending
// a list here (or via alias.* properties), never adding control flow.
var metricAliases = map[Metric][]string{
	MetricTempInternal: {"int_temp", "temp_internal", "Internal_temp", "temperature_internal", "inte_temp"},
	MetricTempExternal: {"ext_temp", "temp_external", "External_temp", "temperature_external", "exte_temp", "outside_temp"},
	MetricHumInternal:  {"int_hum", "hum_internal", "Internal_hum", "humidity_internal", "inte_hum"},
	MetricHumExternal:  {"ext_hum", "hum_external", "External_hum", "humidity_external", "exte_hum", "outside_hum"},
	MetricWeight:       {"weight", "Weight", "hive_weight", "weight_kg"},
	MetricBattery:      {"battery", "Battery", "battery_level", "batt", "bat"},
}

// hiveIDAliases are the raw names an explicit device identifier may arrive
// under. The id is zero-based on the wire; hiveNumber = id + 1.
var hiveIDAliases = []string{"hive_id", "hiveId", "hive_number", "hiveNumber", "device_id", "deviceId", "id"}

// timestampAliases are the raw names a row's own timestamp may arrive under.
var timestampAliases = []string{"timestamp", "time", "ts", "date", "created_at", "published_at"}

// Normalizer resolves heterogeneous raw field names to canonical metrics.
// It holds the base alias table plus any configured extensions and is
// immutable after construction, so it is safe to share across goroutines.
type Normalizer struct {
	aliases map[Metric][]string
}

// NewNormalizer builds a Normalizer from the base alias table extended with
// extra names per metric. Extensions append after the base aliases; they can
// never shadow or remove a base name.
func NewNormalizer(extra map[Metric][]string) *Normalizer {
	aliases := make(map[Metric][]string, len(metricAliases))
	for m, names := range metricAliases {
		merged := append([]string(nil), names...)
		merged = append(merged, extra[m]...)
		aliases[m] = merged
	}
	return &Normalizer{aliases: aliases}
}

// Metric returns the raw value for metric m coerced to a float, scanning the
// metric's aliases in order and taking the first non-empty field. A value
// that cannot be coerced yields absent, never an error.
func (n *Normalizer) Metric(r RawReading, m Metric) (float64, bool) {
	for _, name := range n.aliases[m] {
		v, present := r.Fields[name]
		if !present || isEmpty(v) {
			continue
		}
		f, err := toFloat(v)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// HiveID returns the explicit zero-based device id carried by the row, if any.
func (n *Normalizer) HiveID(r RawReading) (int, bool) {
	for _, name := range hiveIDAliases {
		v, present := r.Fields[name]
		if !present || isEmpty(v) {
			continue
		}
		id, err := toInt(v)
		if err != nil || id < 0 {
			return 0, false
		}
		return id, true
	}
	return 0, false
}

// Timestamp returns the row's own timestamp field, if any.
func (n *Normalizer) Timestamp(r RawReading) (time.Time, bool) {
	for _, name := range timestampAliases {
		v, present := r.Fields[name]
		if !present || isEmpty(v) {
			continue
		}
		ts, err := toTime(v)
		if err != nil || ts.IsZero() {
			return time.Time{}, false
		}
		return ts, true
	}
	return time.Time{}, false
}
