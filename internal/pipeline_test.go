// v1
// pipeline_test.go
package internal

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func TestRunNilInputIsContractError(t *testing.T) {
	p := testPipeline(t, Options{})
	if _, err := p.Run(nil, nil, RunOptions{}); err != ErrNilInput {
		t.Fatalf("got %v want ErrNilInput", err)
	}
	// empty (non-nil) input is valid and yields an empty result
	res, err := p.Run([]RawReading{}, nil, RunOptions{})
	if err != nil {
		t.Fatalf("empty input: %v", err)
	}
	if res.HiveCount != 0 || len(res.Series) != 0 {
		t.Fatalf("empty input should yield empty result, got %+v", res)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	p := testPipeline(t, Options{})
	rows := []RawReading{
		rowAt(tick(0), map[string]any{"int_temp": 30.0, "ext_temp": 21.4, "weight": 41.0}),
		rowAt(tick(0), map[string]any{"int_temp": -127.0, "battery": "88"}),
		rowAt(tick(1), map[string]any{"int_temp": 30.5}),
	}
	applied := tick(0)
	calib := map[int]CalibrationProfile{
		1: {HiveNumber: 1, Offsets: map[Metric]float64{MetricTempInternal: 1.2}, AppliedAt: &applied},
	}
	opts := RunOptions{Now: tick(2)}
	first, err := p.Run(rows, calib, opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	second, err := p.Run(rows, calib, opts)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical input must yield identical output")
	}
}

func TestRunOutputsAreFiniteOrNil(t *testing.T) {
	p := testPipeline(t, Options{})
	rows := []RawReading{
		rowAt(tick(0), map[string]any{"int_temp": "not a number", "weight": -3.0, "ext_hum": 200.0}),
		rowAt(tick(0), map[string]any{"battery": 9999.0}),
	}
	res, err := p.Run(rows, nil, RunOptions{Now: tick(0)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, hs := range res.Series {
		for _, r := range hs.Readings {
			for m, v := range r.Metrics {
				if v == nil {
					continue
				}
				if math.IsNaN(*v) || math.IsInf(*v, 0) {
					t.Fatalf("hive %d metric %s: non-finite %v", hs.HiveNumber, m, *v)
				}
				rule := domainRules[m]
				if *v < rule.min || *v > rule.max {
					t.Fatalf("hive %d metric %s: %v outside [%v, %v]", hs.HiveNumber, m, *v, rule.min, rule.max)
				}
			}
		}
	}
}

func TestRunEndToEnd(t *testing.T) {
	p := testPipeline(t, Options{})
	applied := tick(0).Add(-time.Hour)
	calib := map[int]CalibrationProfile{
		2: {HiveNumber: 2, Offsets: map[Metric]float64{MetricWeight: 0.5}, AppliedAt: &applied},
	}
	rows := []RawReading{
		rowAt(tick(0), map[string]any{"int_temp": 34.0, "weight": 40.0}),
		rowAt(tick(0), map[string]any{"int_temp": 35.0, "weight": 41.0, "ext_temp": 19.5}),
	}
	res, err := p.Run(rows, calib, RunOptions{Now: tick(0)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.HiveCount != 2 {
		t.Fatalf("hive count: got %d want 2", res.HiveCount)
	}
	h1 := res.Series[0].Readings[0]
	h2 := res.Series[1].Readings[0]
	if got := h1.Metrics[MetricWeight]; *got != 40.0 {
		t.Fatalf("hive 1 weight uncalibrated: got %v", *got)
	}
	if got := h2.Metrics[MetricWeight]; *got != 41.5 {
		t.Fatalf("hive 2 weight calibrated: got %v want 41.5", *got)
	}
	for _, r := range []CanonicalReading{h1, h2} {
		if got := r.Metrics[MetricTempExternal]; got == nil || *got != 19.5 {
			t.Fatalf("shared external temp: got %v want 19.5", deref(got))
		}
		if got := r.Metrics[MetricBattery]; got == nil || *got != 100 {
			t.Fatalf("battery default: got %v want 100", deref(got))
		}
	}
}

func TestRunSelectedHivesOnly(t *testing.T) {
	p := testPipeline(t, Options{})
	rows := []RawReading{
		rowAt(tick(0), map[string]any{"int_temp": 30.0}),
		rowAt(tick(0), map[string]any{"int_temp": 31.0}),
		rowAt(tick(0), map[string]any{"int_temp": 32.0}),
	}
	res, err := p.Run(rows, nil, RunOptions{Hives: []int{2}, Now: tick(0)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Series) != 1 || res.Series[0].HiveNumber != 2 {
		t.Fatalf("expected only hive 2, got %+v", res.Series)
	}
	if got := res.Series[0].Readings[0].Metrics[MetricTempInternal]; *got != 31.0 {
		t.Fatalf("hive 2 temp: got %v want 31.0", *got)
	}
	if res.HiveCount != 3 {
		t.Fatalf("hive count still reflects dataset: got %d want 3", res.HiveCount)
	}
}
