package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/opscart/subscriptions-utilized/pkg/dashboard"
	"github.com/opscart/subscriptions-utilized/pkg/daterange"
	"github.com/opscart/subscriptions-utilized/pkg/models"
	"github.com/opscart/subscriptions-utilized/pkg/storage"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 500
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok", "ts": s.now().UTC()}

	records := s.loader.Store().Snapshot()
	products := make(map[string]string, len(records))
	for name, rec := range records {
		products[name] = rec.Status.String()
	}
	status["products"] = products

	if s.snapshots != nil {
		if err := s.snapshots.Ping(r.Context()); err != nil {
			s.Log.WarnContext(r.Context(), "storage ping failed", "error", err)
			status["status"] = "degraded"
			status["storage"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["storage"] = "ok"
	}
	writeJSON(w, http.StatusOK, status)
}

type cardResponse struct {
	dashboard.Card
	Range     *daterange.Range `json:"range,omitempty"`
	LoadError string           `json:"loadError,omitempty"`
}

func (s *Server) card(w http.ResponseWriter, r *http.Request) {
	resp := cardResponse{Card: s.buildCard()}
	res, err := s.last()
	if res != nil {
		resp.Range = &res.Range
	}
	if err != nil {
		resp.LoadError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) product(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("product")
	card := s.buildCard()

	ind, ok := card.Indicator(name)
	if !ok {
		// accept the API product ID as well as the card key
		for _, candidate := range card.Indicators {
			if strings.EqualFold(candidate.Product.ID, name) {
				ind, ok = candidate, true
				break
			}
		}
	}
	if !ok {
		writeError(w, http.StatusNotFound, "unknown product: "+name)
		return
	}

	resp := map[string]any{"indicator": ind}
	if s.snapshots != nil {
		limit, err := parseLimit(r.URL.Query().Get("limit"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		history, err := s.snapshots.ListSnapshots(r.Context(), ind.Product.Name, limit)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.Log.ErrorContext(r.Context(), "history lookup failed", "product", ind.Product.Name, "error", err)
			writeError(w, http.StatusBadGateway, "history unavailable")
			return
		}
		points := make([]historyPoint, 0, len(history))
		for _, snap := range history {
			points = append(points, historyPoint{
				ID:          snap.ID,
				Point:       snap.Point,
				Label:       dashboard.PercentLabel(snap.Point.Percentage),
				CollectedAt: snap.CollectedAt.UTC().Format(time.RFC3339),
			})
		}
		resp["history"] = points
	}
	writeJSON(w, http.StatusOK, resp)
}

type historyPoint struct {
	ID          string           `json:"id"`
	Point       models.DataPoint `json:"point"`
	Label       string           `json:"label"`
	CollectedAt string           `json:"collectedAt"`
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if n > maxHistoryLimit {
		n = maxHistoryLimit
	}
	return n, nil
}

// dateRange computes a query window. Malformed offset or unit values fall
// back to the configured defaults rather than failing.
func (s *Server) dateRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	offset := s.window.Offset
	if raw := q.Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			offset = n
		}
	}
	unit := s.window.Unit
	if raw := q.Get("unit"); raw != "" {
		unit = daterange.ParseUnit(raw)
	}
	granularity := s.window.Granularity
	if raw := q.Get("granularity"); raw != "" {
		granularity = models.Granularity(strings.ToUpper(raw))
	}

	ref := daterange.Now()
	if raw := q.Get("ref"); raw != "" {
		t, err := models.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid ref date")
			return
		}
		ref = t
	}

	window := daterange.ComputeRange(ref, offset, unit)
	writeJSON(w, http.StatusOK, map[string]any{
		"range":   window,
		"options": window.QueryOptions(granularity),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
