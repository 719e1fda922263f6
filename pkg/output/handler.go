package output

import (
	"context"
	"fmt"
	"io"

	"github.com/opscart/subscriptions-utilized/pkg/dashboard"
	"github.com/opscart/subscriptions-utilized/pkg/daterange"
	"github.com/opscart/subscriptions-utilized/pkg/models"
)

// Handler defines the interface for output formatting
type Handler interface {
	DisplayCard(ctx context.Context, card dashboard.Card, window daterange.Range) error
	DisplayHistory(ctx context.Context, product string, snapshots []*models.Snapshot) error
	DisplayRange(ctx context.Context, window daterange.Range, opts models.QueryOptions) error
	Format() string
}

// NewHandler returns the handler for format, writing to w
func NewHandler(format string, w io.Writer) (Handler, error) {
	switch format {
	case "", "text":
		return &TextHandler{w: w}, nil
	case "json":
		return &JSONHandler{w: w}, nil
	default:
		return nil, fmt.Errorf("output must be text or json, got %q", format)
	}
}
