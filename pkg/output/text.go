package output

import (
	"context"
	"fmt"
	"io"

	"github.com/opscart/subscriptions-utilized/pkg/dashboard"
	"github.com/opscart/subscriptions-utilized/pkg/daterange"
	"github.com/opscart/subscriptions-utilized/pkg/models"
)

// TextHandler prints human readable output
type TextHandler struct {
	w io.Writer
}

func (h *TextHandler) Format() string { return "text" }

func (h *TextHandler) DisplayCard(ctx context.Context, card dashboard.Card, window daterange.Range) error {
	fmt.Fprintln(h.w, "=== Subscriptions Utilized ===")
	fmt.Fprintf(h.w, "Range: %s to %s\n\n", daterange.FormatISO(window.StartDate), daterange.FormatISO(window.EndDate))

	for i, ind := range card.Indicators {
		fmt.Fprintf(h.w, "%d. %s (%s)", i+1, ind.Product.Title, ind.Product.ID)
		if !ind.Displayable {
			fmt.Fprintf(h.w, " [%s]", ind.Status)
		} else if ind.Variant == dashboard.VariantDanger {
			fmt.Fprint(h.w, " [OVER]")
		}
		fmt.Fprintln(h.w)

		fmt.Fprintf(h.w, "   Utilization: %s\n", ind.Label)
		for _, line := range ind.Tooltip {
			fmt.Fprintf(h.w, "   %s\n", line)
		}
		fmt.Fprintln(h.w)
	}

	_, err := fmt.Fprintf(h.w, "Order reversed: %v\n", card.Reversed)
	return err
}

func (h *TextHandler) DisplayHistory(ctx context.Context, product string, snapshots []*models.Snapshot) error {
	if len(snapshots) == 0 {
		_, err := fmt.Fprintf(h.w, "No snapshots found for product: %s\n", product)
		return err
	}

	fmt.Fprintf(h.w, "Recent snapshots for product '%s':\n\n", product)
	for i, snap := range snapshots {
		fmt.Fprintf(h.w, "%d. %s (ID: %s)\n", i+1, dashboard.PercentLabel(snap.Point.Percentage), snap.ID)
		fmt.Fprintf(h.w, "   %s: %s of %s\n", snap.Field,
			dashboard.FormatValue(snap.Point.Report), dashboard.FormatValue(snap.Point.Capacity))
		if date := dashboard.FormatDate(snap.Point); date != "" {
			fmt.Fprintf(h.w, "   Data from: %s\n", date)
		}
		fmt.Fprintf(h.w, "   Collected: %s\n\n", snap.CollectedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func (h *TextHandler) DisplayRange(ctx context.Context, window daterange.Range, opts models.QueryOptions) error {
	_, err := fmt.Fprintf(h.w, "beginning=%s\nending=%s\ngranularity=%s\n", opts.Beginning, opts.Ending, opts.Granularity)
	return err
}
