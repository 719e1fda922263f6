package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/opscart/subscriptions-utilized/pkg/models"
	"github.com/opscart/subscriptions-utilized/pkg/rhsm"
)

// Source defines the interface for collecting report and capacity series
type Source interface {
	Report(ctx context.Context, product models.Product, opts models.QueryOptions) (models.Series, error)
	Capacity(ctx context.Context, product models.Product, opts models.QueryOptions) (models.Series, error)
	IsAvailable(ctx context.Context) bool
	Name() string
}

type Config struct {
	Type          string // rhsm or prometheus
	APIURL        string
	PrometheusURL string
	Timeout       time.Duration
}

// New builds the source named by cfg.Type. Options apply to the RHSM client.
func New(cfg Config, opts ...rhsm.Option) (Source, error) {
	switch cfg.Type {
	case "", "rhsm":
		if cfg.Timeout > 0 {
			opts = append(opts, rhsm.WithTimeout(cfg.Timeout))
		}
		return NewRHSMSource(cfg.APIURL, opts...), nil
	case "prometheus":
		src, err := NewPrometheusSource(cfg.PrometheusURL)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown data source: %s", cfg.Type)
	}
}

// RHSMSource reads series from the subscription watch API
type RHSMSource struct {
	client *rhsm.Client
	url    string
}

func NewRHSMSource(url string, opts ...rhsm.Option) *RHSMSource {
	return &RHSMSource{
		client: rhsm.New(url, opts...),
		url:    url,
	}
}

func (s *RHSMSource) Report(ctx context.Context, product models.Product, opts models.QueryOptions) (models.Series, error) {
	return s.client.Tally(ctx, product.ID, opts)
}

func (s *RHSMSource) Capacity(ctx context.Context, product models.Product, opts models.QueryOptions) (models.Series, error) {
	return s.client.Capacity(ctx, product.ID, opts)
}

// IsAvailable always reports true; the API has no unauthenticated probe and
// failures surface as rejected fetches instead
func (s *RHSMSource) IsAvailable(ctx context.Context) bool {
	return true
}

func (s *RHSMSource) Name() string {
	return "RHSM API (" + s.url + ")"
}
