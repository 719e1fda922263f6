package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/opscart/subscriptions-utilized/pkg/daterange"
	"github.com/opscart/subscriptions-utilized/pkg/models"
	"github.com/opscart/subscriptions-utilized/pkg/store"
	"github.com/opscart/subscriptions-utilized/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func loadedStore(t *testing.T, oneReport, oneCap, twoReport, twoCap float64) *store.Store {
	t.Helper()
	src := newFakeSource()
	seed(src, rhel, oneReport, oneCap)
	seed(src, openshift, twoReport, twoCap)
	loader := newTestLoader(src)
	if _, err := loader.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return loader.Store()
}

func names(c Card) []string {
	out := make([]string, len(c.Indicators))
	for i, ind := range c.Indicators {
		out[i] = ind.Product.Name
	}
	return out
}

func TestBuildCardOrder(t *testing.T) {
	tests := []struct {
		name     string
		one      float64
		two      float64
		reversed bool
		order    []string
	}{
		{"one over-utilized and higher", 150, 80, true, []string{"productOne", "productTwo"}},
		{"two higher", 90, 150, false, []string{"productTwo", "productOne"}},
		{"one higher but within threshold", 90, 40, false, []string{"productTwo", "productOne"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := loadedStore(t, tt.one, 100, tt.two, 100)
			card := BuildCard(st, rhel, openshift)

			if card.Reversed != tt.reversed {
				t.Errorf("Expected reversed=%v, got %v", tt.reversed, card.Reversed)
			}
			got := names(card)
			if len(got) != 2 || got[0] != tt.order[0] || got[1] != tt.order[1] {
				t.Errorf("Expected order %v, got %v", tt.order, got)
			}
		})
	}
}

func TestBuildCardIndicator(t *testing.T) {
	st := loadedStore(t, 150, 100, 25, 100)
	card := BuildCard(st, rhel, openshift)

	over, ok := card.Indicator(rhel.Name)
	if !ok {
		t.Fatal("Expected productOne indicator")
	}
	if over.Label != "150%" {
		t.Errorf("Expected label 150%%, got %s", over.Label)
	}
	if over.Variant != VariantDanger {
		t.Errorf("Expected danger variant, got %s", over.Variant)
	}
	if over.ProgressValue != 0 {
		t.Errorf("Expected empty progress bar above threshold, got %v", over.ProgressValue)
	}
	if !over.Displayable {
		t.Error("Expected fulfilled indicator to be displayable")
	}

	under, _ := card.Indicator(openshift.Name)
	if under.Variant != VariantInfo || under.ProgressValue != 25 {
		t.Errorf("Expected info variant at 25, got %s at %v", under.Variant, under.ProgressValue)
	}

	wantTooltip := []string{
		"Red Hat Enterprise Linux sockets: 150",
		"Subscription threshold: 100",
		"Data from: Mar 14, 2024",
	}
	for i, line := range wantTooltip {
		if over.Tooltip[i] != line {
			t.Errorf("Expected tooltip line %q, got %q", line, over.Tooltip[i])
		}
	}
}

func TestBuildCardNotDisplayable(t *testing.T) {
	st := store.New()
	st.Pending(rhel.Name)
	st.Reject(openshift.Name, errUnavailable)

	card := BuildCard(st, rhel, openshift)
	for _, ind := range card.Indicators {
		if ind.Displayable {
			t.Errorf("Expected %s not displayable in status %s", ind.Product.Name, ind.Status)
		}
		if !ind.Point.IsEmpty() {
			t.Errorf("Expected empty data point for %s", ind.Product.Name)
		}
		if ind.Label != "N/A" {
			t.Errorf("Expected N/A label, got %s", ind.Label)
		}
	}
}

func TestBuildCardRejectedKeepsStalePoint(t *testing.T) {
	st := loadedStore(t, 50, 100, 10, 40)
	st.Reject(rhel.Name, errUnavailable)

	card := BuildCard(st, rhel, openshift)
	ind, _ := card.Indicator(rhel.Name)
	if ind.Displayable {
		t.Error("Expected rejected indicator not displayable")
	}
	if !ind.Point.Percentage.Equal(models.Number(50)) {
		t.Errorf("Expected stale percentage 50, got %s", ind.Point.Percentage)
	}
}

func TestUnlimitedCapacity(t *testing.T) {
	st := store.New()
	date := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	st.Fulfill(rhel.Name, models.SeriesPair{
		Report:   models.Series{entry(date, rhel.Field, 12)},
		Capacity: models.Series{{Date: date, HasInfinite: true}},
	})

	card := BuildCard(st, rhel, openshift)
	ind, _ := card.Indicator(rhel.Name)
	if ind.Label != "Unlimited" {
		t.Errorf("Expected Unlimited label, got %s", ind.Label)
	}
	if ind.Variant != VariantInfo {
		t.Errorf("Expected info variant for unlimited capacity, got %s", ind.Variant)
	}
	if ind.Tooltip[1] != "Subscription threshold: Unlimited" {
		t.Errorf("Expected unlimited threshold tooltip, got %q", ind.Tooltip[1])
	}
}

func TestPercentLabel(t *testing.T) {
	tests := []struct {
		in   models.Value
		want string
	}{
		{models.Number(42), "42%"},
		{models.Number(0), "0%"},
		{models.Null(), "Unlimited"},
		{models.Undefined(), "N/A"},
	}
	for _, tt := range tests {
		if got := PercentLabel(tt.in); got != tt.want {
			t.Errorf("PercentLabel(%s): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestCardPublish(t *testing.T) {
	m := telemetry.NewMetrics()
	st := loadedStore(t, 150, 100, 25, 100)
	st.Reject(openshift.Name, errUnavailable)

	BuildCard(st, rhel, openshift).Publish(m)

	n, err := testutil.GatherAndCount(m.Registry(), "subscriptions_utilization_percent")
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected only the displayable product published, got %d series", n)
	}
}

func TestCardSnapshots(t *testing.T) {
	st := loadedStore(t, 50, 100, 10, 40)
	st.Pending(openshift.Name)

	window := daterange.ComputeRange(fixedClock(), 1, daterange.Day)
	collected := fixedClock()
	snaps := BuildCard(st, rhel, openshift).Snapshots(window, collected)

	if len(snaps) != 1 {
		t.Fatalf("Expected 1 snapshot for the displayable product, got %d", len(snaps))
	}
	snap := snaps[0]
	if snap.Product != rhel.Name || snap.ProductID != rhel.ID || snap.Field != rhel.Field {
		t.Errorf("Unexpected snapshot product: %+v", snap)
	}
	if !snap.Point.Percentage.Equal(models.Number(50)) {
		t.Errorf("Expected 50%%, got %s", snap.Point.Percentage)
	}
	if !snap.RangeStart.Equal(window.StartDate) || !snap.CollectedAt.Equal(collected) {
		t.Errorf("Unexpected snapshot window: %v..%v collected %v", snap.RangeStart, snap.RangeEnd, snap.CollectedAt)
	}
}
