// v3
// server.go
package internal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

type server struct {
	cfg     *AppConfig
	lg      *slog.Logger
	buf     *rawBuffer
	store   *CalibrationStore
	repo    CalibrationRepository // nil when running memory-only
	metrics *Metrics
	engine  *Engine // nil when kafka is disabled
	http    *http.Server
	start   time.Time

	// pipe is swapped on /config/reload while queries read it.
	mu   sync.RWMutex
	pipe *Pipeline
}

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Cfg      *AppConfig
	Log      *slog.Logger
	Buf      *rawBuffer
	Store    *CalibrationStore
	Repo     CalibrationRepository // nil when running memory-only
	Pipe     *Pipeline
	Metrics  *Metrics
	Engine   *Engine // nil when kafka is disabled
	Registry *prometheus.Registry
}

// NewHTTPServer wires the service's HTTP surface. The pipeline is rebuilt
// per properties reload (alias extensions live in the Normalizer), so the
// server owns the pipeline pointer rather than sharing the engine's.
func NewHTTPServer(d Deps) *server {
	s := &server{
		cfg: d.Cfg, lg: d.Log, buf: d.Buf, store: d.Store, repo: d.Repo,
		pipe: d.Pipe, metrics: d.Metrics, engine: d.Engine, start: time.Now(),
	}
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/ingest", s.handleIngest).Methods(http.MethodPost)
	r.HandleFunc("/hives", s.handleHives).Methods(http.MethodGet)
	r.HandleFunc("/hives/{n:[0-9]+}/series", s.handleSeries).Methods(http.MethodGet)
	r.HandleFunc("/hives/{n:[0-9]+}/latest", s.handleLatest).Methods(http.MethodGet)
	r.HandleFunc("/calibration", s.handleCalibrationList).Methods(http.MethodGet)
	r.HandleFunc("/calibration/{n:[0-9]+}", s.handleCalibrationGet).Methods(http.MethodGet)
	r.HandleFunc("/calibration/{n:[0-9]+}", s.handleCalibrationPut).Methods(http.MethodPut)
	r.HandleFunc("/config/reload", s.handleReload).Methods(http.MethodPost)
	r.Handle("/metrics", MetricsHandler(d.Registry)).Methods(http.MethodGet)

	s.http = &http.Server{Addr: d.Cfg.HTTPBind, Handler: handlers.LoggingHandler(logWriter{d.Log}, r)}
	return s
}

// logWriter adapts slog for gorilla's access log.
type logWriter struct{ lg *slog.Logger }

func (w logWriter) Write(b []byte) (int, error) {
	w.lg.Info("http", "access", string(b))
	return len(b), nil
}

func (s *server) Start() error {
	s.lg.Info("http start", "bind", s.cfg.HTTPBind)
	return s.http.ListenAndServe()
}

func (s *server) Stop(ctx context.Context) error {
	s.lg.Info("http stop")
	return s.http.Shutdown(ctx)
}

// run executes one pipeline pass over the current buffer and calibration
// snapshot, recording metrics.
func (s *server) run(opts RunOptions) (Result, error) {
	s.mu.RLock()
	pipe := s.pipe
	s.mu.RUnlock()
	started := time.Now()
	res, err := pipe.Run(s.buf.snapshot(), s.store.Snapshot(), opts)
	if err != nil {
		return res, err
	}
	s.metrics.observeRun(time.Since(started).Seconds(), res)
	return res, nil
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"uptimeSec":    int64(time.Since(s.start).Seconds()),
		"bufferedRows": s.buf.len(),
		"kafka":        s.engine != nil,
	}
	if s.engine != nil {
		body["engine"] = s.engine.Snapshot()
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *server) handleHives(w http.ResponseWriter, r *http.Request) {
	res, err := s.run(RunOptions{Now: time.Now().UTC()})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	numbers := make([]int, 0, res.HiveCount)
	for h := 1; h <= res.HiveCount; h++ {
		numbers = append(numbers, h)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"count": res.HiveCount, "hives": numbers})
}

func (s *server) handleSeries(w http.ResponseWriter, r *http.Request) {
	hive, _ := strconv.Atoi(mux.Vars(r)["n"])
	tr, ok := ParseTimeRange(r.URL.Query().Get("range"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "bad 'range' (24h|7d|30d|all)")
		return
	}
	res, err := s.run(RunOptions{Hives: []int{hive}, Range: tr, Now: time.Now().UTC()})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if hive < 1 || hive > res.HiveCount {
		s.writeError(w, http.StatusNotFound, "unknown hive")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"series":   res.Series[0],
		"warnings": res.Warnings,
	})
}

// handleLatest returns the hive's last known value per metric, falling back
// through the buffered window when the newest tick dropped a sensor.
func (s *server) handleLatest(w http.ResponseWriter, r *http.Request) {
	hive, _ := strconv.Atoi(mux.Vars(r)["n"])
	res, err := s.run(RunOptions{Hives: []int{hive}, Now: time.Now().UTC()})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if hive < 1 || hive > res.HiveCount {
		s.writeError(w, http.StatusNotFound, "unknown hive")
		return
	}
	readings := res.Series[0].Readings
	latest := map[Metric]*float64{}
	for _, m := range AllMetrics {
		latest[m] = LastKnown(nil, readings, m)
	}
	body := map[string]any{"hiveNumber": hive, "lastKnown": latest}
	if len(readings) > 0 {
		body["asOf"] = readings[len(readings)-1].Timestamp
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *server) handleCalibrationList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"profiles": s.store.All()})
}

func (s *server) handleCalibrationGet(w http.ResponseWriter, r *http.Request) {
	hive, _ := strconv.Atoi(mux.Vars(r)["n"])
	p, ok := s.store.Get(hive)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no calibration for hive")
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

// handleCalibrationPut stores a calibration profile for one hive. AppliedAt
// is stamped server-side at save time; from then on only readings strictly
// later than this instant receive the offsets.
func (s *server) handleCalibrationPut(w http.ResponseWriter, r *http.Request) {
	hive, _ := strconv.Atoi(mux.Vars(r)["n"])
	var body struct {
		Offsets map[Metric]float64 `json:"offsets"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	now := time.Now().UTC()
	p := CalibrationProfile{
		ID:         uuid.New(),
		HiveNumber: hive,
		Offsets:    body.Offsets,
		AppliedAt:  &now,
	}
	if err := s.store.Set(p); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.repo != nil {
		if err := s.repo.Save(r.Context(), p); err != nil {
			s.lg.Error("calibration persist failed", "hive", hive, "error", err)
			s.writeError(w, http.StatusInternalServerError, "calibration stored in memory but not persisted")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.ReloadProperties(); err != nil {
		s.lg.Error("reload", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.mu.Lock()
	s.pipe = New(Options{ExpectedHives: s.cfg.Hives, ExtraAliases: s.cfg.ExtraAliases, Logger: s.lg})
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("reloaded"))
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.lg.Error("write json", "error", err)
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
