// v2
// engine.go
package internal

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Engine drains the Kafka export stream into the raw buffer on a fixed
// interval and publishes a per-hive latest snapshot after each drain. All
// pipeline computation stays pure; the engine only moves data across the
// I/O boundary.
type Engine struct {
	cfg   *AppConfig
	lg    *slog.Logger
	io    *KafkaIO
	buf   *rawBuffer
	pipe  *Pipeline
	store *CalibrationStore
	m     *Metrics

	mu    sync.Mutex
	stats Stats
}

func NewEngine(cfg *AppConfig, lg *slog.Logger, io *KafkaIO, buf *rawBuffer, pipe *Pipeline, store *CalibrationStore, m *Metrics) *Engine {
	return &Engine{cfg: cfg, lg: lg, io: io, buf: buf, pipe: pipe, store: store, m: m}
}

// Snapshot returns a copy of the engine counters for /status.
func (e *Engine) Snapshot() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Engine) Run(ctx context.Context) {
	interval := time.Duration(e.cfg.PollIntervalMs) * time.Millisecond
	e.lg.Info("engine start", "interval_ms", e.cfg.PollIntervalMs, "topic", e.cfg.ExportTopic)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.lg.Info("engine stop")
			return
		case <-ticker.C:
			e.loop(ctx, interval/2)
		}
	}
}

func (e *Engine) loop(ctx context.Context, budget time.Duration) {
	rows, err := e.io.Poll(ctx, budget)
	if err != nil {
		e.lg.Error("poll error", "error", err)
	}
	if len(rows) > 0 {
		added := e.buf.addBatch(rows)
		e.m.rowsIngested.WithLabelValues("kafka").Add(float64(added))
		e.mu.Lock()
		e.stats.RowsIn += int64(added)
		e.stats.BatchesIn++
		e.mu.Unlock()
		e.publishSnapshot(ctx)
	}
	e.mu.Lock()
	e.stats.Loops++
	e.mu.Unlock()
}

// publishSnapshot runs the pipeline over the full buffer and publishes each
// hive's last known values to the snapshot topic.
func (e *Engine) publishSnapshot(ctx context.Context) {
	started := time.Now()
	res, err := e.pipe.Run(e.buf.snapshot(), e.store.Snapshot(), RunOptions{Now: time.Now().UTC()})
	if err != nil {
		e.lg.Error("snapshot pipeline", "error", err)
		return
	}
	e.m.observeRun(time.Since(started).Seconds(), res)

	type hiveSnapshot struct {
		HiveNumber int                 `json:"hiveNumber"`
		LastKnown  map[Metric]*float64 `json:"lastKnown"`
		AsOf       *time.Time          `json:"asOf,omitempty"`
	}
	snap := struct {
		ProducedAt time.Time      `json:"producedAt"`
		HiveCount  int            `json:"hiveCount"`
		Hives      []hiveSnapshot `json:"hives"`
	}{ProducedAt: time.Now().UTC(), HiveCount: res.HiveCount}

	for _, hs := range res.Series {
		out := hiveSnapshot{HiveNumber: hs.HiveNumber, LastKnown: map[Metric]*float64{}}
		for _, m := range AllMetrics {
			out.LastKnown[m] = LastKnown(nil, hs.Readings, m)
		}
		if n := len(hs.Readings); n > 0 {
			ts := hs.Readings[n-1].Timestamp
			out.AsOf = &ts
		}
		snap.Hives = append(snap.Hives, out)
	}

	if err := e.io.PublishSnapshot(ctx, snap); err != nil {
		e.lg.Error("snapshot publish", "error", err)
		e.m.snapshotErrors.Inc()
		e.mu.Lock()
		e.stats.PublishErrors++
		e.mu.Unlock()
		return
	}
	e.m.snapshotsOut.Inc()
	e.mu.Lock()
	e.stats.SnapshotsOut++
	e.mu.Unlock()
}
