package dashboard

import (
	"strconv"
	"time"

	"github.com/opscart/subscriptions-utilized/pkg/chartdata"
	"github.com/opscart/subscriptions-utilized/pkg/daterange"
	"github.com/opscart/subscriptions-utilized/pkg/models"
	"github.com/opscart/subscriptions-utilized/pkg/store"
	"github.com/opscart/subscriptions-utilized/pkg/telemetry"
)

// Progress bar variants
const (
	VariantInfo   = "info"
	VariantDanger = "danger"
)

// Indicator is one progress bar on the card
type Indicator struct {
	Product     models.Product     `json:"product"`
	Status      models.FetchStatus `json:"status"`
	Displayable bool               `json:"displayable"`
	Point       models.DataPoint   `json:"point"`
	// ProgressValue is the bar fill: the percentage when at most 100,
	// otherwise 0
	ProgressValue float64  `json:"progressValue"`
	Label         string   `json:"label"`
	Variant       string   `json:"variant,omitempty"`
	Tooltip       []string `json:"tooltip"`
}

// Card is the subscriptions utilized card in display order
type Card struct {
	Indicators []Indicator `json:"indicators"`
	Reversed   bool        `json:"reversed"`
}

// BuildCard derives both products' data points from the store and orders
// them for display. Indicators of products whose fetch is not fulfilled are
// present but not displayable.
func BuildCard(st *store.Store, one, two models.Product) Card {
	first := buildIndicator(one, st.Get(one.Name))
	second := buildIndicator(two, st.Get(two.Name))

	return Card{
		Indicators: chartdata.Order(first, second, first.Point.Percentage, second.Point.Percentage),
		Reversed:   chartdata.ShouldReverse(first.Point.Percentage, second.Point.Percentage),
	}
}

// Publish exports the card's percentages as gauges
func (c Card) Publish(m *telemetry.Metrics) {
	for _, ind := range c.Indicators {
		pct, ok := ind.Point.Percentage.Float()
		m.SetUtilization(ind.Product.Name, pct, ok && ind.Displayable)
	}
}

// Snapshots returns one snapshot per displayable indicator
func (c Card) Snapshots(window daterange.Range, collectedAt time.Time) []*models.Snapshot {
	var out []*models.Snapshot
	for _, ind := range c.Indicators {
		if !ind.Displayable {
			continue
		}
		out = append(out, &models.Snapshot{
			Product:     ind.Product.Name,
			ProductID:   ind.Product.ID,
			Field:       ind.Product.Field,
			Point:       ind.Point,
			RangeStart:  window.StartDate,
			RangeEnd:    window.EndDate,
			CollectedAt: collectedAt,
		})
	}
	return out
}

// Indicator returns the indicator for a product name
func (c Card) Indicator(name string) (Indicator, bool) {
	for _, ind := range c.Indicators {
		if ind.Product.Name == name {
			return ind, true
		}
	}
	return Indicator{}, false
}

func buildIndicator(product models.Product, rec store.Record) Indicator {
	ind := Indicator{
		Product:     product,
		Status:      rec.Status,
		Displayable: rec.Fulfilled(),
	}
	if rec.Data != nil {
		ind.Point = chartdata.DeriveDataPoint(rec.Data.Report, rec.Data.Capacity, product.Field)
	}

	pct := ind.Point.Percentage
	if v, ok := pct.Float(); ok && v <= chartdata.OverUtilizedThreshold {
		ind.ProgressValue = v
	}
	ind.Label = PercentLabel(pct)
	ind.Variant = variant(pct)
	ind.Tooltip = []string{
		product.Title + " " + product.Field + ": " + FormatValue(ind.Point.Report),
		"Subscription threshold: " + FormatValue(ind.Point.Capacity),
		"Data from: " + FormatDate(ind.Point),
	}
	return ind
}

// variant is info up to the threshold and danger above it. A null
// percentage compares as 0; an undefined one has no variant.
func variant(pct models.Value) string {
	if pct.IsUndefined() {
		return ""
	}
	if pct.OrZero() <= chartdata.OverUtilizedThreshold {
		return VariantInfo
	}
	return VariantDanger
}

// PercentLabel renders a percentage for display
func PercentLabel(v models.Value) string {
	switch {
	case v.IsNumber():
		return strconv.FormatFloat(v.OrZero(), 'f', -1, 64) + "%"
	case v.IsNull():
		return "Unlimited"
	default:
		return "N/A"
	}
}

// FormatValue renders report or capacity values for tooltips
func FormatValue(v models.Value) string {
	switch {
	case v.IsNumber():
		return strconv.FormatFloat(v.OrZero(), 'f', -1, 64)
	case v.IsNull():
		return "Unlimited"
	default:
		return ""
	}
}

// FormatDate renders the sample date as "Jan 2, 2006"
func FormatDate(p models.DataPoint) string {
	if p.Date.IsZero() {
		return ""
	}
	return p.Date.UTC().Format("Jan 2, 2006")
}
