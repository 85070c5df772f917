// v0
// shared_test.go
package internal

import "testing"

func TestSharedValuePropagatesToEveryHive(t *testing.T) {
	p := testPipeline(t, Options{})
	rows := []RawReading{
		rowAt(tick(0), map[string]any{"int_temp": 30.0}),
		rowAt(tick(0), map[string]any{"int_temp": 31.0, "ext_temp": 21.4}),
		rowAt(tick(0), map[string]any{"int_temp": 32.0}),
	}
	res, err := p.Run(rows, nil, RunOptions{Now: tick(0)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Series) != 3 {
		t.Fatalf("series: got %d want 3", len(res.Series))
	}
	for _, hs := range res.Series {
		if len(hs.Readings) != 1 {
			t.Fatalf("hive %d: got %d readings", hs.HiveNumber, len(hs.Readings))
		}
		got := hs.Readings[0].Metrics[MetricTempExternal]
		if got == nil || *got != 21.4 {
			t.Fatalf("hive %d: tempExternal %v, want 21.4 propagated", hs.HiveNumber, deref(got))
		}
	}
}

func TestSharedSentinelDoesNotMaskLaterValue(t *testing.T) {
	p := testPipeline(t, Options{})
	rows := []RawReading{
		rowAt(tick(0), map[string]any{"int_temp": 30.0, "ext_temp": -127.0}),
		rowAt(tick(0), map[string]any{"int_temp": 31.0, "ext_temp": 18.0}),
	}
	res, err := p.Run(rows, nil, RunOptions{Now: tick(0)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, hs := range res.Series {
		got := hs.Readings[0].Metrics[MetricTempExternal]
		if got == nil || *got != 18.0 {
			t.Fatalf("hive %d: tempExternal %v, want 18.0 (sentinel skipped)", hs.HiveNumber, deref(got))
		}
	}
}

func TestSharedNoneFoundIsNilForWholeBatch(t *testing.T) {
	p := testPipeline(t, Options{})
	rows := []RawReading{
		rowAt(tick(0), map[string]any{"int_temp": 30.0}),
		rowAt(tick(0), map[string]any{"int_temp": 31.0}),
	}
	res, err := p.Run(rows, nil, RunOptions{Now: tick(0)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, hs := range res.Series {
		if hs.Readings[0].Metrics[MetricTempExternal] != nil {
			t.Fatalf("hive %d: expected nil tempExternal", hs.HiveNumber)
		}
	}
	found := false
	for _, w := range res.Warnings {
		if w.Kind == WarnNoSharedValueFound {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected no_shared_value warning, got %v", res.Warnings)
	}
}
