package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dessmon/dessmon-core/internal/infrastructure/influxdb"
)

// History query defaults and bounds.
const (
	defaultHistoryWindow = 24 * time.Hour
	defaultHistoryStep   = 5 * time.Minute
	minHistoryStep       = time.Minute
	historyQueryTimeout  = 15 * time.Second
)

// HistoryResponse carries one sensor's stored readings.
type HistoryResponse struct {
	SN     string                  `json:"sn"`
	Key    string                  `json:"key"`
	Start  time.Time               `json:"start"`
	End    time.Time               `json:"end"`
	Step   int                     `json:"step_seconds"`
	Points []influxdb.HistoryPoint `json:"points"`
}

// handleDeviceHistory serves stored readings from InfluxDB.
//
// Query parameters: key (required), start and end (RFC3339, default last 24
// hours), step (seconds, default 300).
func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "history is not enabled")
		return
	}

	sn := chi.URLParam(r, "sn")
	if _, ok := s.fleet.Device(sn); !ok {
		writeNotFound(w, "unknown device serial number")
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		writeBadRequest(w, "key query parameter is required")
		return
	}

	end := time.Now()
	start := end.Add(-defaultHistoryWindow)
	step := defaultHistoryStep

	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, "start must be RFC3339")
			return
		}
		start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, "end must be RFC3339")
			return
		}
		end = t
	}
	if !end.After(start) {
		writeBadRequest(w, "end must be after start")
		return
	}
	if v := r.URL.Query().Get("step"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			writeBadRequest(w, "step must be a positive number of seconds")
			return
		}
		step = time.Duration(seconds) * time.Second
		if step < minHistoryStep {
			step = minHistoryStep
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), historyQueryTimeout)
	defer cancel()

	points, err := s.history.QueryDeviceHistory(ctx, sn, key, start, end, step)
	if err != nil {
		s.logger.Error("history query failed", "sn", sn, "key", key, "error", err)
		writeInternalError(w, "history query failed")
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		SN:     sn,
		Key:    key,
		Start:  start,
		End:    end,
		Step:   int(step.Seconds()),
		Points: points,
	})
}
