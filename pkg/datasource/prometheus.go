package datasource

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/opscart/subscriptions-utilized/pkg/logging"
	"github.com/opscart/subscriptions-utilized/pkg/models"
	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// Metric names exported by the subscription usage exporter
const (
	UsageMetric    = "subscription_usage"
	CapacityMetric = "subscription_capacity"
)

// PrometheusSource builds report and capacity series from range queries.
// Steps without a sample become has_data=false placeholders, and a +Inf
// capacity marks the sample as unbounded.
type PrometheusSource struct {
	client v1.API
	url    string
}

func NewPrometheusSource(url string) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{
		Address: url,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &PrometheusSource{
		client: v1.NewAPI(client),
		url:    url,
	}, nil
}

func (p *PrometheusSource) Report(ctx context.Context, product models.Product, opts models.QueryOptions) (models.Series, error) {
	return p.querySeries(ctx, UsageMetric, product, opts)
}

func (p *PrometheusSource) Capacity(ctx context.Context, product models.Product, opts models.QueryOptions) (models.Series, error) {
	return p.querySeries(ctx, CapacityMetric, product, opts)
}

func (p *PrometheusSource) querySeries(ctx context.Context, metric string, product models.Product, opts models.QueryOptions) (models.Series, error) {
	start, err := models.ParseDate(opts.Beginning)
	if err != nil {
		return nil, fmt.Errorf("invalid beginning: %w", err)
	}
	end, err := models.ParseDate(opts.Ending)
	if err != nil {
		return nil, fmt.Errorf("invalid ending: %w", err)
	}
	step := opts.Granularity.Step()

	query := fmt.Sprintf(`sum(%s{product=%q,measure=%q})`, metric, product.ID, product.Field)
	result, warnings, err := p.client.QueryRange(ctx, query, v1.Range{Start: start, End: end, Step: step})
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	if len(warnings) > 0 {
		logging.Warn(ctx, "Prometheus returned warnings", "query", query, "warnings", fmt.Sprint(warnings))
	}

	matrix, ok := result.(model.Matrix)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %s for query: %s", result.Type(), query)
	}

	return buildSeries(matrix, metric == CapacityMetric, product.Field, start, end, step), nil
}

// buildSeries lays samples onto the step grid from start to end
func buildSeries(matrix model.Matrix, capacity bool, field string, start, end time.Time, step time.Duration) models.Series {
	values := make(map[int64]float64)
	for _, stream := range matrix {
		for _, pair := range stream.Values {
			values[pair.Timestamp.Time().Unix()] += float64(pair.Value)
		}
	}

	var series models.Series
	for ts := start; !ts.After(end); ts = ts.Add(step) {
		entry := models.TimeSeriesEntry{Date: ts.UTC(), Values: map[string]models.Value{}}

		v, found := values[ts.Unix()]
		switch {
		case !found:
			entry.HasData = models.Bool(false)
		case capacity && math.IsInf(v, 1):
			entry.HasData = models.Bool(true)
			entry.HasInfinite = true
		default:
			entry.HasData = models.Bool(true)
			entry.Values[field] = models.Number(v)
		}
		series = append(series, entry)
	}
	return series
}

func (p *PrometheusSource) IsAvailable(ctx context.Context) bool {
	_, _, err := p.client.Query(ctx, "up", time.Now())
	return err == nil
}

func (p *PrometheusSource) Name() string {
	return "Prometheus (" + p.url + ")"
}
