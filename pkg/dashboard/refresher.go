package dashboard

import (
	"context"
	"time"

	"github.com/opscart/subscriptions-utilized/pkg/logging"
)

// Refresher reloads on a fixed interval. Failed loads are not retried
// early; the next tick is the retry.
type Refresher struct {
	loader   *Loader
	interval time.Duration
	onLoad   func(context.Context, *LoadResult, error)
}

func NewRefresher(loader *Loader, interval time.Duration, onLoad func(context.Context, *LoadResult, error)) *Refresher {
	return &Refresher{loader: loader, interval: interval, onLoad: onLoad}
}

// Run loads immediately, then on every tick until ctx is done
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.loadOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.loadOnce(ctx)
		}
	}
}

func (r *Refresher) loadOnce(ctx context.Context) {
	res, err := r.loader.Load(ctx)
	if err != nil {
		logging.Warn(ctx, "Refresh completed with errors", "error", err)
	}
	if r.onLoad != nil {
		r.onLoad(ctx, res, err)
	}
}
