package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opscart/subscriptions-utilized/pkg/cache"
	"github.com/opscart/subscriptions-utilized/pkg/datasource"
	"github.com/opscart/subscriptions-utilized/pkg/daterange"
	"github.com/opscart/subscriptions-utilized/pkg/logging"
	"github.com/opscart/subscriptions-utilized/pkg/models"
	"github.com/opscart/subscriptions-utilized/pkg/store"
	"github.com/opscart/subscriptions-utilized/pkg/telemetry"
	"golang.org/x/sync/errgroup"
)

// Window configures the query range of each load
type Window struct {
	Offset      int
	Unit        daterange.Unit
	Granularity models.Granularity
}

// LoadResult describes one load cycle
type LoadResult struct {
	Range   daterange.Range
	Options models.QueryOptions
}

// Loader fetches both products' series and records the outcome in a Store
type Loader struct {
	source   datasource.Source
	store    *store.Store
	cache    *cache.Cache[models.SeriesPair]
	metrics  *telemetry.Metrics
	products []models.Product
	window   Window
	now      func() time.Time
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

func WithCache(c *cache.Cache[models.SeriesPair]) LoaderOption {
	return func(l *Loader) { l.cache = c }
}

func WithMetrics(m *telemetry.Metrics) LoaderOption {
	return func(l *Loader) { l.metrics = m }
}

func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) { l.now = now }
}

func NewLoader(source datasource.Source, st *store.Store, products []models.Product, window Window, opts ...LoaderOption) *Loader {
	l := &Loader{
		source:   source,
		store:    st,
		products: products,
		window:   window,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Products returns the tracked products in card order
func (l *Loader) Products() []models.Product {
	return l.products
}

// Store returns the state container the loader writes to
func (l *Loader) Store() *store.Store {
	return l.store
}

// Range computes the query window for the current time
func (l *Loader) Range() daterange.Range {
	return daterange.ComputeRange(l.now(), l.window.Offset, l.window.Unit)
}

// Load fetches every product concurrently. A failed product is marked
// rejected and does not stop the others; the returned error joins all
// product failures.
func (l *Loader) Load(ctx context.Context) (*LoadResult, error) {
	r := l.Range()
	result := &LoadResult{Range: r, Options: r.QueryOptions(l.window.Granularity)}

	logging.Debug(ctx, "Loading subscription utilization",
		"beginning", result.Options.Beginning, "ending", result.Options.Ending, "source", l.source.Name())

	errs := make([]error, len(l.products))
	var g errgroup.Group
	for i, product := range l.products {
		g.Go(func() error {
			errs[i] = l.loadProduct(ctx, product, result.Options)
			return nil
		})
	}
	_ = g.Wait()

	return result, errors.Join(errs...)
}

func (l *Loader) loadProduct(ctx context.Context, product models.Product, opts models.QueryOptions) error {
	l.store.Pending(product.Name)

	key := product.ID + "|" + product.Field + "|" + opts.Key()
	if l.cache != nil {
		if pair, ok := l.cache.Get(key); ok {
			l.store.Fulfill(product.Name, pair)
			return nil
		}
	}

	pair, err := l.fetchPair(ctx, product, opts)
	if err != nil {
		err = fmt.Errorf("%s: %w", product.Name, err)
		l.store.Reject(product.Name, err)
		logging.Warn(ctx, "Fetch rejected", "product", product.Name, "error", err)
		return err
	}

	if l.cache != nil {
		l.cache.Set(key, pair)
	}
	l.store.Fulfill(product.Name, pair)
	logging.Debug(ctx, "Fetch fulfilled", "product", product.Name,
		"report_samples", len(pair.Report), "capacity_samples", len(pair.Capacity))
	return nil
}

// fetchPair requests report and capacity together; either failing fails both
func (l *Loader) fetchPair(ctx context.Context, product models.Product, opts models.QueryOptions) (models.SeriesPair, error) {
	var pair models.SeriesPair
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		start := time.Now()
		series, err := l.source.Report(gctx, product, opts)
		l.metrics.FetchDone(product.Name, "report", time.Since(start), err)
		if err != nil {
			return fmt.Errorf("report fetch failed: %w", err)
		}
		pair.Report = series
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		series, err := l.source.Capacity(gctx, product, opts)
		l.metrics.FetchDone(product.Name, "capacity", time.Since(start), err)
		if err != nil {
			return fmt.Errorf("capacity fetch failed: %w", err)
		}
		pair.Capacity = series
		return nil
	})

	if err := g.Wait(); err != nil {
		return models.SeriesPair{}, err
	}
	return pair, nil
}
