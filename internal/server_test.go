// v0
// server_test.go
package internal

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestServer(t *testing.T) *server {
	t.Helper()
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &AppConfig{HTTPBind: ":0", PropertiesPath: t.TempDir() + "/absent.properties"}
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	buf := newRawBuffer(0)
	store := NewCalibrationStore()
	pipe := New(Options{Logger: lg})
	return NewHTTPServer(Deps{Cfg: cfg, Log: lg, Buf: buf, Store: store, Pipe: pipe, Metrics: m, Registry: reg})
}

func do(t *testing.T, srv *server, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)
	return rec
}

func TestIngestAndSeriesRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	now := time.Now().UTC().Truncate(time.Second)
	rows := []map[string]any{
		{"timestamp": now.Format(time.RFC3339), "int_temp": 34.0, "weight": 40.0},
		{"timestamp": now.Format(time.RFC3339), "int_temp": 35.0, "ext_temp": 21.4},
	}
	b, _ := json.Marshal(rows)
	rec := do(t, srv, http.MethodPost, "/ingest", b, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest status=%d body=%s", rec.Code, rec.Body.String())
	}
	var ingestResp struct {
		Ingested int `json:"ingested"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&ingestResp); err != nil {
		t.Fatalf("decode ingest response: %v", err)
	}
	if ingestResp.Ingested != 2 {
		t.Fatalf("ingested: got %d want 2", ingestResp.Ingested)
	}

	rec = do(t, srv, http.MethodGet, "/hives/1/series?range=24h", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("series status=%d body=%s", rec.Code, rec.Body.String())
	}
	var seriesResp struct {
		Series HiveSeries `json:"series"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&seriesResp); err != nil {
		t.Fatalf("decode series: %v", err)
	}
	if len(seriesResp.Series.Readings) != 1 {
		t.Fatalf("readings: got %d want 1", len(seriesResp.Series.Readings))
	}
	r := seriesResp.Series.Readings[0]
	if got := r.Metrics[MetricTempExternal]; got == nil || *got != 21.4 {
		t.Fatalf("shared external temp: got %v want 21.4", deref(got))
	}
}

func TestIngestNDJSON(t *testing.T) {
	srv := newTestServer(t)
	body := []byte("{\"int_temp\": 30.0}\n\n{\"int_temp\": 31.0}\n")
	rec := do(t, srv, http.MethodPost, "/ingest?fetchedAt="+time.Now().UTC().Format(time.RFC3339), body, "application/x-ndjson")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if srv.buf.len() != 2 {
		t.Fatalf("buffered rows: got %d want 2", srv.buf.len())
	}
}

func TestIngestRejectsGarbage(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/ingest", []byte("not json"), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", rec.Code)
	}
}

func TestSeriesUnknownHive(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/hives/7/series", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rec.Code)
	}
}

func TestSeriesBadRange(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/hives/1/series?range=90d", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", rec.Code)
	}
}

func TestLatestUsesFallback(t *testing.T) {
	srv := newTestServer(t)
	now := time.Now().UTC().Truncate(time.Second)
	rows := []map[string]any{
		{"timestamp": now.Add(-2 * time.Minute).Format(time.RFC3339), "weight": 42.3, "int_temp": 33.0},
		{"timestamp": now.Format(time.RFC3339), "weight": 0.0, "int_temp": 34.0},
	}
	b, _ := json.Marshal(rows)
	if rec := do(t, srv, http.MethodPost, "/ingest", b, "application/json"); rec.Code != http.StatusOK {
		t.Fatalf("ingest status=%d", rec.Code)
	}
	rec := do(t, srv, http.MethodGet, "/hives/1/latest", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("latest status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		LastKnown map[Metric]*float64 `json:"lastKnown"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := resp.LastKnown[MetricWeight]; got == nil || *got != 42.3 {
		t.Fatalf("lastKnown weight: got %v want 42.3 via fallback", deref(got))
	}
	if got := resp.LastKnown[MetricTempInternal]; got == nil || *got != 34.0 {
		t.Fatalf("lastKnown temp: got %v want latest 34.0", deref(got))
	}
}

func TestCalibrationPutAndGet(t *testing.T) {
	srv := newTestServer(t)
	body := []byte(`{"offsets":{"temp_internal":1.2}}`)
	rec := do(t, srv, http.MethodPut, "/calibration/2", body, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("put status=%d body=%s", rec.Code, rec.Body.String())
	}
	p, ok := srv.store.Get(2)
	if !ok {
		t.Fatal("profile not stored")
	}
	if p.Offsets[MetricTempInternal] != 1.2 {
		t.Fatalf("offset: got %v want 1.2", p.Offsets[MetricTempInternal])
	}
	if p.AppliedAt == nil {
		t.Fatal("appliedAt must be stamped on save")
	}

	rec = do(t, srv, http.MethodGet, "/calibration/2", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status=%d", rec.Code)
	}
	rec = do(t, srv, http.MethodGet, "/calibration/9", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get missing status=%d want 404", rec.Code)
	}
}

func TestCalibrationPutRejectsUnknownMetric(t *testing.T) {
	srv := newTestServer(t)
	body := []byte(`{"offsets":{"wind_speed":3}}`)
	rec := do(t, srv, http.MethodPut, "/calibration/1", body, "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", rec.Code)
	}
}

func TestHealthAndStatus(t *testing.T) {
	srv := newTestServer(t)
	if rec := do(t, srv, http.MethodGet, "/health", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("health status=%d", rec.Code)
	}
	rec := do(t, srv, http.MethodGet, "/status", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status status=%d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if _, ok := body["bufferedRows"]; !ok {
		t.Fatalf("status body missing bufferedRows: %v", body)
	}
}
