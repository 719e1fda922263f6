// Package store holds the latest fetch state of each tracked product.
//
// Each product owns one record with its fetched series and lifecycle
// status. A rejected fetch only changes the status: whatever series were
// fulfilled earlier stay in place, stale.
package store

import (
	"sync"
	"time"

	"github.com/opscart/subscriptions-utilized/pkg/models"
)

// Record is the state of one product
type Record struct {
	Data      *models.SeriesPair
	Status    models.FetchStatus
	Err       error
	UpdatedAt time.Time
}

// Fulfilled reports whether the last fetch succeeded
func (r Record) Fulfilled() bool {
	return r.Status == models.StatusFulfilled
}

// Store is safe for concurrent use
type Store struct {
	mu          sync.RWMutex
	records     map[string]Record
	subscribers []chan string
	now         func() time.Time
}

func New() *Store {
	return &Store{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

// Pending marks a fetch for product as in flight
func (s *Store) Pending(product string) {
	s.update(product, func(r *Record) {
		r.Status = models.StatusPending
		r.Err = nil
	})
}

// Fulfill replaces the product's series wholesale
func (s *Store) Fulfill(product string, pair models.SeriesPair) {
	s.update(product, func(r *Record) {
		r.Data = &pair
		r.Status = models.StatusFulfilled
		r.Err = nil
	})
}

// Reject records a failed fetch, keeping prior data
func (s *Store) Reject(product string, err error) {
	s.update(product, func(r *Record) {
		r.Status = models.StatusRejected
		r.Err = err
	})
}

// Get returns the product's record; unknown products are unset
func (s *Store) Get(product string) Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[product]
}

// Snapshot copies all records
func (s *Store) Snapshot() map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Record, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out
}

// Subscribe returns a channel receiving the product name after every
// change. Slow subscribers miss notifications rather than block writers.
func (s *Store) Subscribe() <-chan string {
	ch := make(chan string, 8)
	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) update(product string, fn func(*Record)) {
	s.mu.Lock()
	r := s.records[product]
	fn(&r)
	r.UpdatedAt = s.now()
	s.records[product] = r
	subs := append([]chan string(nil), s.subscribers...)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- product:
		default:
		}
	}
}
