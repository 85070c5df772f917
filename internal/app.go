// v1
// app.go
package internal

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StartCmd wires the full service and blocks until SIGINT/SIGTERM.
func StartCmd() error {
	cfg, err := LoadEnvAndFiles()
	if err != nil {
		return err
	}
	lg, logFile := InitLogger()
	defer logFile.Close()
	lg.Info("starting telemetryd", "bind", cfg.HTTPBind, "kafka", cfg.KafkaEnabled(), "hives", cfg.Hives)

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	store := NewCalibrationStore()
	var repo CalibrationRepository
	if cfg.DatabaseURL != "" {
		pg, err := NewPGCalibrations(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		repo = pg
		profiles, err := pg.LoadAll(context.Background())
		if err != nil {
			return err
		}
		for _, p := range profiles {
			if err := store.Set(p); err != nil {
				lg.Warn("calibration skipped", "hive", p.HiveNumber, "error", err)
			}
		}
		lg.Info("calibrations loaded", "count", len(profiles))
	} else {
		lg.Info("no DATABASE_URL; calibrations are memory-only")
	}

	buf := newRawBuffer(cfg.Window())
	pipe := New(Options{ExpectedHives: cfg.Hives, ExtraAliases: cfg.ExtraAliases, Logger: lg})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var eng *Engine
	if cfg.KafkaEnabled() {
		kio, err := NewKafkaIO(cfg, lg)
		if err != nil {
			return err
		}
		defer kio.Close()
		eng = NewEngine(cfg, lg, kio, buf, pipe, store, metrics)
		go eng.Run(ctx)
	} else {
		lg.Warn("KAFKA_BROKERS empty; export stream disabled, HTTP ingest only")
	}

	srv := NewHTTPServer(Deps{
		Cfg: cfg, Log: lg, Buf: buf, Store: store, Repo: repo,
		Pipe: pipe, Metrics: metrics, Engine: eng, Registry: reg,
	})
	httpErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-httpErr:
		return err
	case <-sig:
	}
	lg.Info("shutdown requested")

	cancel()
	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Stop(shutdownCtx)
	lg.Info("bye")
	return nil
}
