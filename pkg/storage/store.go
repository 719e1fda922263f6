package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/opscart/subscriptions-utilized/pkg/models"
)

// ErrNotFound is returned when a snapshot does not exist
var ErrNotFound = errors.New("snapshot not found")

// NoLimit lists every snapshot; any limit <= 0 behaves the same
const NoLimit = 0

// Store defines the interface for persistent storage
type Store interface {
	SaveSnapshot(ctx context.Context, snap *models.Snapshot) error
	GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error)
	// ListSnapshots returns a product's snapshots, newest first.
	// A limit <= 0 returns all of them.
	ListSnapshots(ctx context.Context, product string, limit int) ([]*models.Snapshot, error)

	Ping(ctx context.Context) error
	Close() error
}

type Config struct {
	Type string // postgres, memory
	URL  string
}

// Open returns the store named by cfg.Type
func Open(cfg Config) (Store, error) {
	switch cfg.Type {
	case "", "postgres":
		pg, err := NewPostgresStore(cfg.URL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
