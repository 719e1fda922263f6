package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/opscart/subscriptions-utilized/pkg/models"
)

// fakeSource serves canned series per product ID and counts calls
type fakeSource struct {
	mu       sync.Mutex
	report   map[string]models.Series
	capacity map[string]models.Series
	fail     map[string]error
	calls    int
	lastOpts models.QueryOptions
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		report:   make(map[string]models.Series),
		capacity: make(map[string]models.Series),
		fail:     make(map[string]error),
	}
}

func (f *fakeSource) Report(ctx context.Context, p models.Product, opts models.QueryOptions) (models.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastOpts = opts
	if err := f.fail[p.ID]; err != nil {
		return nil, err
	}
	return f.report[p.ID], nil
}

func (f *fakeSource) Capacity(ctx context.Context, p models.Product, opts models.QueryOptions) (models.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[p.ID+"/capacity"]; err != nil {
		return nil, err
	}
	return f.capacity[p.ID], nil
}

func (f *fakeSource) IsAvailable(ctx context.Context) bool { return true }
func (f *fakeSource) Name() string                         { return "fake" }

var errUnavailable = errors.New("service unavailable")
