package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opscart/subscriptions-utilized/pkg/cache"
	"github.com/opscart/subscriptions-utilized/pkg/daterange"
	"github.com/opscart/subscriptions-utilized/pkg/models"
	"github.com/opscart/subscriptions-utilized/pkg/store"
)

var (
	rhel      = models.Product{Name: "productOne", ID: "RHEL", Title: "Red Hat Enterprise Linux", Field: models.FieldSockets}
	openshift = models.Product{Name: "productTwo", ID: "OpenShift-metrics", Title: "Red Hat OpenShift", Field: models.FieldCores}
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
}

func entry(date time.Time, field string, v float64) models.TimeSeriesEntry {
	return models.TimeSeriesEntry{
		Date:   date,
		Values: map[string]models.Value{field: models.Number(v)},
	}
}

func seed(src *fakeSource, p models.Product, report, capacity float64) {
	date := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	src.report[p.ID] = models.Series{entry(date, p.Field, report)}
	src.capacity[p.ID] = models.Series{entry(date, p.Field, capacity)}
}

func newTestLoader(src *fakeSource, opts ...LoaderOption) *Loader {
	window := Window{Offset: 1, Unit: daterange.Day, Granularity: models.GranularityDaily}
	opts = append([]LoaderOption{WithClock(fixedClock)}, opts...)
	return NewLoader(src, store.New(), []models.Product{rhel, openshift}, window, opts...)
}

func TestLoadFulfillsBothProducts(t *testing.T) {
	src := newFakeSource()
	seed(src, rhel, 50, 100)
	seed(src, openshift, 10, 40)
	loader := newTestLoader(src)

	res, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for _, p := range loader.Products() {
		rec := loader.Store().Get(p.Name)
		if !rec.Fulfilled() {
			t.Errorf("Expected %s fulfilled, got %s", p.Name, rec.Status)
		}
		if rec.Data == nil || len(rec.Data.Report) != 1 {
			t.Errorf("Expected %s report to be stored", p.Name)
		}
	}

	if src.calls != 4 {
		t.Errorf("Expected 4 upstream calls, got %d", src.calls)
	}
	if res.Options.Beginning != "2024-03-14T00:00:00.000Z" {
		t.Errorf("Expected beginning 2024-03-14T00:00:00.000Z, got %s", res.Options.Beginning)
	}
	if res.Options.Ending != "2024-03-15T23:59:59.999Z" {
		t.Errorf("Expected ending 2024-03-15T23:59:59.999Z, got %s", res.Options.Ending)
	}
	if src.lastOpts.Granularity != models.GranularityDaily {
		t.Errorf("Expected DAILY granularity, got %s", src.lastOpts.Granularity)
	}
}

func TestLoadRejectionKeepsStaleData(t *testing.T) {
	src := newFakeSource()
	seed(src, rhel, 50, 100)
	seed(src, openshift, 10, 40)
	loader := newTestLoader(src)

	if _, err := loader.Load(context.Background()); err != nil {
		t.Fatalf("First load failed: %v", err)
	}

	src.fail[rhel.ID+"/capacity"] = errUnavailable
	_, err := loader.Load(context.Background())
	if !errors.Is(err, errUnavailable) {
		t.Fatalf("Expected error wrapping errUnavailable, got %v", err)
	}

	rec := loader.Store().Get(rhel.Name)
	if rec.Status != models.StatusRejected {
		t.Errorf("Expected rejected status, got %s", rec.Status)
	}
	if rec.Data == nil {
		t.Fatal("Expected stale data to be kept after rejection")
	}
	if got := rec.Data.Report[0].Field(models.FieldSockets); !got.Equal(models.Number(50)) {
		t.Errorf("Expected stale report 50, got %s", got)
	}

	if other := loader.Store().Get(openshift.Name); !other.Fulfilled() {
		t.Errorf("Expected %s unaffected, got %s", openshift.Name, other.Status)
	}
}

func TestLoadJoinsErrors(t *testing.T) {
	src := newFakeSource()
	src.fail[rhel.ID] = errUnavailable
	src.fail[openshift.ID+"/capacity"] = errUnavailable
	loader := newTestLoader(src)

	_, err := loader.Load(context.Background())
	if err == nil {
		t.Fatal("Expected an error")
	}

	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		t.Fatalf("Expected a joined error, got %T", err)
	}
	if n := len(joined.Unwrap()); n != 2 {
		t.Errorf("Expected 2 product errors, got %d", n)
	}
}

func TestLoadUsesCache(t *testing.T) {
	src := newFakeSource()
	seed(src, rhel, 50, 100)
	seed(src, openshift, 10, 40)
	loader := newTestLoader(src, WithCache(cache.New[models.SeriesPair]("series", time.Minute, nil)))

	for i := 0; i < 2; i++ {
		if _, err := loader.Load(context.Background()); err != nil {
			t.Fatalf("Load %d failed: %v", i, err)
		}
	}

	if src.calls != 4 {
		t.Errorf("Expected second load served from cache (4 calls), got %d", src.calls)
	}
}

func TestLoaderRangeFollowsWindow(t *testing.T) {
	src := newFakeSource()
	window := Window{Offset: 2, Unit: daterange.Month, Granularity: models.GranularityMonthly}
	loader := NewLoader(src, store.New(), nil, window, WithClock(fixedClock))

	r := loader.Range()
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !r.StartDate.Equal(want) {
		t.Errorf("Expected start %v, got %v", want, r.StartDate)
	}
}
