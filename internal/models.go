// v1
// models.go
package internal

import (
	"time"

	"github.com/google/uuid"
)

// Metric names one canonical telemetry channel. The string values are the
// stable keys of the output contract; consumers key series by them.
type Metric string

const (
	MetricTempInternal Metric = "temp_internal"
	MetricTempExternal Metric = "temp_external"
	MetricHumInternal  Metric = "hum_internal"
	MetricHumExternal  Metric = "hum_external"
	MetricWeight       Metric = "weight"
	MetricBattery      Metric = "battery"
)

// AllMetrics lists every canonical metric in output order.
var AllMetrics = []Metric{
	MetricTempInternal,
	MetricTempExternal,
	MetricHumInternal,
	MetricHumExternal,
	MetricWeight,
	MetricBattery,
}

// sharedMetrics are measured by one physical sensor per apiary, not one per
// hive; their value is propagated across every row of a batch.
var sharedMetrics = []Metric{MetricTempExternal, MetricHumExternal}

// RawReading is one untyped export row. Field names depend on the firmware
// and export version; SourceTime is the nominal fetch timestamp used when the
// row carries no timestamp field of its own. Row order within the input slice
// is meaningful (ordinal hive attribution).
type RawReading struct {
	Fields     map[string]any `json:"fields"`
	SourceTime time.Time      `json:"sourceTime"`
}

// CanonicalReading is the normalized, sanitized, calibration-corrected state
// of one hive at one timestamp. Each metric is either a finite value or nil
// ("no reading"); never NaN or Inf. Measured counts the metrics resolved from
// actual row fields, before defaults and shared propagation.
type CanonicalReading struct {
	HiveNumber      int                 `json:"hiveNumber"`
	Timestamp       time.Time           `json:"timestamp"`
	Metrics         map[Metric]*float64 `json:"metrics"`
	HasOwnTimestamp bool                `json:"hasOwnTimestamp"`
	Measured        int                 `json:"-"`
}

// HiveSeries is the time-ascending series of one hive's canonical readings.
type HiveSeries struct {
	HiveNumber int                `json:"hiveNumber"`
	Readings   []CanonicalReading `json:"readings"`
}

// CalibrationProfile is a user-supplied additive correction set for one hive.
// Offsets apply only to readings timestamped strictly after AppliedAt; a
// profile without AppliedAt is inert. The pipeline treats profiles as
// immutable snapshots; persistence lives outside the core.
type CalibrationProfile struct {
	ID         uuid.UUID          `json:"id"`
	HiveNumber int                `json:"hiveNumber"`
	Offsets    map[Metric]float64 `json:"offsets"`
	AppliedAt  *time.Time         `json:"appliedAt,omitempty"`
}

// WarningKind classifies a non-fatal data fault recorded during a run.
type WarningKind string

const (
	WarnMissingTimestamp     WarningKind = "missing_timestamp"
	WarnAttributionAmbiguous WarningKind = "attribution_ambiguous"
	WarnNoSharedValueFound   WarningKind = "no_shared_value"
)

// Warning is a recorded data fault. Warnings are result data, never errors;
// the pipeline stays total over malformed rows.
type Warning struct {
	Kind   WarningKind `json:"kind"`
	Detail string      `json:"detail"`
}

// Result is the output of one full pipeline run.
type Result struct {
	Series    []HiveSeries `json:"series"`
	HiveCount int          `json:"hiveCount"`
	Warnings  []Warning    `json:"warnings,omitempty"`
}

// Stats tracks engine-level counters surfaced on /status.
type Stats struct {
	Loops         int64 `json:"loops"`
	RowsIn        int64 `json:"rowsIn"`
	BatchesIn     int64 `json:"batchesIn"`
	SnapshotsOut  int64 `json:"snapshotsOut"`
	PublishErrors int64 `json:"publishErrors"`
}
