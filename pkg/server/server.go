package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/opscart/subscriptions-utilized/pkg/dashboard"
	"github.com/opscart/subscriptions-utilized/pkg/daterange"
	"github.com/opscart/subscriptions-utilized/pkg/logging"
	"github.com/opscart/subscriptions-utilized/pkg/storage"
	"github.com/opscart/subscriptions-utilized/pkg/telemetry"
)

// Server serves the card built from the loader's store
type Server struct {
	HTTP *http.Server
	Log  *slog.Logger

	loader    *dashboard.Loader
	metrics   *telemetry.Metrics
	snapshots storage.Store
	window    dashboard.Window
	now       func() time.Time

	mu       sync.RWMutex
	lastLoad *dashboard.LoadResult
	lastErr  error
}

// Option configures a Server
type Option func(*Server)

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithSnapshots persists every successful load and serves product history
func WithSnapshots(st storage.Store) Option {
	return func(s *Server) { s.snapshots = st }
}

// WithWindow sets the defaults of /api/v1/range
func WithWindow(w dashboard.Window) Option {
	return func(s *Server) { s.window = w }
}

func New(addr string, loader *dashboard.Loader, opts ...Option) *Server {
	s := &Server{
		Log:    logging.With("component", "server"),
		loader: loader,
		window: dashboard.Window{Offset: daterange.DefaultOffset, Unit: daterange.DefaultUnit},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.HTTP = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /health", s.metrics.WrapHandler("/health", http.HandlerFunc(s.health)))
	mux.Handle("GET /api/v1/card", s.metrics.WrapHandler("/api/v1/card", http.HandlerFunc(s.card)))
	mux.Handle("GET /api/v1/products/{product}", s.metrics.WrapHandler("/api/v1/products", http.HandlerFunc(s.product)))
	mux.Handle("GET /api/v1/range", s.metrics.WrapHandler("/api/v1/range", http.HandlerFunc(s.dateRange)))
	mux.Handle("GET /metrics", s.metrics.Handler())
	return mux
}

// OnLoad records a load cycle. It publishes the card's gauges and, when
// snapshots are enabled, persists the displayable data points.
func (s *Server) OnLoad(ctx context.Context, res *dashboard.LoadResult, err error) {
	s.mu.Lock()
	s.lastLoad = res
	s.lastErr = err
	s.mu.Unlock()

	card := s.buildCard()
	card.Publish(s.metrics)

	if s.snapshots == nil || res == nil {
		return
	}
	for _, snap := range card.Snapshots(res.Range, s.now().UTC()) {
		if err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
			s.Log.WarnContext(ctx, "Failed to save snapshot", "product", snap.Product, "error", err)
		}
	}
}

func (s *Server) buildCard() dashboard.Card {
	products := s.loader.Products()
	return dashboard.BuildCard(s.loader.Store(), products[0], products[1])
}

func (s *Server) last() (*dashboard.LoadResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastLoad, s.lastErr
}

func (s *Server) Start() error {
	s.Log.Info("http server starting", "addr", s.HTTP.Addr)
	return s.HTTP.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.Log.Info("http server stopping")
	if err := s.HTTP.Shutdown(ctx); err != nil {
		return err
	}
	if s.snapshots != nil {
		return s.snapshots.Close()
	}
	return nil
}
