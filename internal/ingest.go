// v1
// ingest.go
package internal

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// handleIngest accepts raw export rows over HTTP for deployments without a
// Kafka stream (and for backfills):
// - application/json: a single row object or an array of rows
// - text/plain or application/x-ndjson: newline-delimited JSON rows
// The optional ?fetchedAt=RFC3339 query sets the nominal source time for
// rows that carry no timestamp field of their own; it defaults to now.
func (s *server) handleIngest(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			s.lg.Error("error closing request body", "err", err)
		}
	}(r.Body)

	fetched := time.Now().UTC()
	if fa := r.URL.Query().Get("fetchedAt"); fa != "" {
		ts, err := time.Parse(time.RFC3339, fa)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "bad 'fetchedAt' (RFC3339)")
			return
		}
		fetched = ts.UTC()
	}

	added := 0
	var errs []string
	push := func(fields map[string]any) {
		s.buf.add(RawReading{Fields: fields, SourceTime: fetched})
		s.metrics.rowsIngested.WithLabelValues("http").Inc()
		added++
	}

	if strings.Contains(ct, "application/json") {
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		tok, err := dec.Token()
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		switch v := tok.(type) {
		case json.Delim:
			if v == '{' {
				fields := map[string]any{}
				if err := decodeObjectRest(dec, fields); err != nil {
					s.writeError(w, http.StatusBadRequest, "invalid JSON object")
					return
				}
				push(fields)
			} else if v == '[' {
				for dec.More() {
					var fields map[string]any
					if err := dec.Decode(&fields); err != nil {
						errs = append(errs, "invalid array element")
						break
					}
					push(fields)
				}
			} else {
				s.writeError(w, http.StatusBadRequest, "unexpected JSON start")
				return
			}
		default:
			s.writeError(w, http.StatusBadRequest, "unexpected JSON")
			return
		}
	} else {
		// NDJSON fallback
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			var fields map[string]any
			if err := unmarshalUseNumber([]byte(line), &fields); err != nil {
				errs = append(errs, "bad ndjson line")
				continue
			}
			push(fields)
		}
		if err := sc.Err(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	status := http.StatusOK
	if added == 0 {
		status = http.StatusBadRequest
	}
	resp := map[string]any{
		"batchId":  uuid.NewString(),
		"ingested": added,
	}
	if len(errs) > 0 {
		resp["errors"] = errs
	}
	s.writeJSON(w, status, resp)
}

// decodeObjectRest finishes decoding an object whose opening brace was
// already consumed by Token().
func decodeObjectRest(dec *json.Decoder, into map[string]any) error {
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return io.ErrUnexpectedEOF
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return err
		}
		into[key] = val
	}
	_, err := dec.Token() // closing brace
	return err
}
