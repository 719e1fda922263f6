package output

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/opscart/subscriptions-utilized/pkg/dashboard"
	"github.com/opscart/subscriptions-utilized/pkg/daterange"
	"github.com/opscart/subscriptions-utilized/pkg/models"
)

// JSONHandler prints indented JSON documents
type JSONHandler struct {
	w   io.Writer
	now func() time.Time
}

func (h *JSONHandler) Format() string { return "json" }

func (h *JSONHandler) timestamp() string {
	if h.now == nil {
		return time.Now().Format(time.RFC3339)
	}
	return h.now().Format(time.RFC3339)
}

func (h *JSONHandler) encode(v any) error {
	encoder := json.NewEncoder(h.w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (h *JSONHandler) DisplayCard(ctx context.Context, card dashboard.Card, window daterange.Range) error {
	return h.encode(map[string]any{
		"indicators": card.Indicators,
		"reversed":   card.Reversed,
		"range":      window,
		"timestamp":  h.timestamp(),
	})
}

type snapshotJSON struct {
	ID          string           `json:"id"`
	Product     string           `json:"product"`
	ProductID   string           `json:"productId"`
	Field       string           `json:"field"`
	Point       models.DataPoint `json:"point"`
	RangeStart  time.Time        `json:"rangeStart"`
	RangeEnd    time.Time        `json:"rangeEnd"`
	CollectedAt time.Time        `json:"collectedAt"`
}

func (h *JSONHandler) DisplayHistory(ctx context.Context, product string, snapshots []*models.Snapshot) error {
	out := make([]snapshotJSON, 0, len(snapshots))
	for _, s := range snapshots {
		out = append(out, snapshotJSON{
			ID:          s.ID,
			Product:     s.Product,
			ProductID:   s.ProductID,
			Field:       s.Field,
			Point:       s.Point,
			RangeStart:  s.RangeStart,
			RangeEnd:    s.RangeEnd,
			CollectedAt: s.CollectedAt,
		})
	}
	return h.encode(map[string]any{
		"product":   product,
		"snapshots": out,
		"count":     len(out),
	})
}

func (h *JSONHandler) DisplayRange(ctx context.Context, window daterange.Range, opts models.QueryOptions) error {
	return h.encode(opts)
}
