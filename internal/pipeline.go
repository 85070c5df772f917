// v3
// pipeline.go
package internal

import (
	"errors"
	"log/slog"
	"time"
)

// ErrNilInput is returned when the caller violates the call contract by
// passing a nil row slice. Malformed row *data* never produces an error;
// it degrades to warnings and nil metrics instead.
var ErrNilInput = errors.New("nil raw reading list")

// Pipeline is the telemetry normalization and attribution core. It is pure:
// no stage touches I/O, clocks, or shared mutable state, so a Pipeline is
// safe to share across goroutines and re-running it on identical input
// yields identical output. Callers own fetching the raw export rows and the
// calibration snapshot; the pipeline only transforms them.
type Pipeline struct {
	norm     *Normalizer
	expected int
	lg       *slog.Logger
}

// Options configures a Pipeline.
type Options struct {
	// ExpectedHives caps attribution when > 0; 0 derives the device count
	// from the data (maximum hive number observed across the dataset).
	ExpectedHives int
	// ExtraAliases extends the base alias table per metric.
	ExtraAliases map[Metric][]string
	Logger       *slog.Logger
}

// RunOptions selects what one invocation produces.
type RunOptions struct {
	// Hives narrows the output series; nil means every attributed hive.
	Hives []int
	// Range windows the output relative to Now.
	Range TimeRange
	// Now is the reference instant for windowing. The pipeline never reads
	// the wall clock itself; determinism requires the caller to pin it.
	Now time.Time
}

// New builds a Pipeline.
func New(opts Options) *Pipeline {
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}
	return &Pipeline{
		norm:     NewNormalizer(opts.ExtraAliases),
		expected: opts.ExpectedHives,
		lg:       lg,
	}
}

// Run executes stages 1-7 over one raw dataset and one calibration snapshot.
func (p *Pipeline) Run(rows []RawReading, calibrations map[int]CalibrationProfile, opts RunOptions) (Result, error) {
	if rows == nil {
		return Result{}, ErrNilInput
	}

	batches, count, warnings := p.attribute(rows)
	warnings = append(warnings, p.propagateShared(batches)...)

	readings := make(map[int64][]CanonicalReading, len(batches))
	for i := range batches {
		b := &batches[i]
		for _, row := range b.rows {
			r := p.canonicalize(b, row)
			if prof, ok := calibrations[r.HiveNumber]; ok {
				r = applyCalibration(r, prof)
			}
			readings[b.time.UnixMilli()] = append(readings[b.time.UnixMilli()], r)
		}
	}

	hives := opts.Hives
	if hives == nil {
		hives = make([]int, 0, count)
		for h := 1; h <= count; h++ {
			hives = append(hives, h)
		}
	}

	series := buildSeries(batches, readings, hives, opts.Range, opts.Now)
	p.lg.Debug("pipeline run", "rows", len(rows), "batches", len(batches), "hives", count, "warnings", len(warnings))
	return Result{Series: series, HiveCount: count, Warnings: warnings}, nil
}

// canonicalize builds one hive's sanitized reading from an attributed row.
// Shared metrics take the batch-propagated value regardless of the row's own
// field; Measured counts only metrics the row itself carried validly, which
// the series builder uses to drop ticks made of nothing but defaults.
func (p *Pipeline) canonicalize(b *batch, row attributedRow) CanonicalReading {
	r := CanonicalReading{
		HiveNumber:      row.hiveNumber,
		Timestamp:       row.rowTime,
		HasOwnTimestamp: row.hasOwnTime,
		Metrics:         make(map[Metric]*float64, len(AllMetrics)),
	}
	shared := make(map[Metric]bool, len(sharedMetrics))
	for _, m := range sharedMetrics {
		shared[m] = true
	}
	for _, m := range AllMetrics {
		own, hasOwn := p.norm.Metric(row.raw, m)
		if hasOwn && sanitizeValue(m, own) != nil {
			r.Measured++
		}
		switch {
		case shared[m]:
			r.Metrics[m] = clone(b.shared[m])
		case hasOwn:
			r.Metrics[m] = sanitizeValue(m, own)
		default:
			r.Metrics[m] = sanitizeAbsent(m)
		}
	}
	return r
}
