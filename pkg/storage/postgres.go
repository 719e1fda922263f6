package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/opscart/subscriptions-utilized/pkg/models"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

const snapshotColumns = `id, product, product_id, field, sample_date,
			report_state, report_value, capacity_state, capacity_value,
			percentage_state, percentage_value,
			range_start, range_end, collected_at`

// PostgresStore implements Store interface using PostgreSQL
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore opens, pings and migrates the database
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := newPostgresStoreFromDB(db)
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func newPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema, err := postgresFS.ReadFile("migrations/001_snapshots.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// SaveSnapshot inserts a snapshot, assigning an ID and collection time
// when missing
func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CollectedAt.IsZero() {
		snap.CollectedAt = s.now().UTC()
	}

	query := `
		INSERT INTO snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	reportState, reportValue := valueColumns(snap.Point.Report)
	capacityState, capacityValue := valueColumns(snap.Point.Capacity)
	pctState, pctValue := valueColumns(snap.Point.Percentage)

	var sampleDate sql.NullTime
	if !snap.Point.Date.IsZero() {
		sampleDate = sql.NullTime{Time: snap.Point.Date, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		snap.ID, snap.Product, snap.ProductID, snap.Field, sampleDate,
		reportState, reportValue, capacityState, capacityValue,
		pctState, pctValue,
		snap.RangeStart, snap.RangeEnd, snap.CollectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// GetSnapshot retrieves a snapshot by ID
func (s *PostgresStore) GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM snapshots
		WHERE id = $1
	`

	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// ListSnapshots retrieves a product's most recent snapshots
func (s *PostgresStore) ListSnapshots(ctx context.Context, product string, limit int) ([]*models.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM snapshots
		WHERE product = $1
		ORDER BY collected_at DESC
	`
	args := []any{product}
	if limit > NoLimit {
		query += "LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*models.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, rows.Err()
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*models.Snapshot, error) {
	var snap models.Snapshot
	var sampleDate sql.NullTime
	var reportState, capacityState, pctState int16
	var reportValue, capacityValue, pctValue sql.NullFloat64

	err := row.Scan(
		&snap.ID, &snap.Product, &snap.ProductID, &snap.Field, &sampleDate,
		&reportState, &reportValue, &capacityState, &capacityValue,
		&pctState, &pctValue,
		&snap.RangeStart, &snap.RangeEnd, &snap.CollectedAt,
	)
	if err != nil {
		return nil, err
	}

	if sampleDate.Valid {
		snap.Point.Date = sampleDate.Time.UTC()
	}
	snap.Point.Report = columnValue(reportState, reportValue)
	snap.Point.Capacity = columnValue(capacityState, capacityValue)
	snap.Point.Percentage = columnValue(pctState, pctValue)

	return &snap, nil
}

// valueColumns splits a Value into its state and nullable number columns
func valueColumns(v models.Value) (int16, sql.NullFloat64) {
	f, ok := v.Float()
	return int16(v.State()), sql.NullFloat64{Float64: f, Valid: ok}
}

func columnValue(state int16, v sql.NullFloat64) models.Value {
	switch models.ValueState(state) {
	case models.StateNumber:
		if v.Valid {
			return models.Number(v.Float64)
		}
		return models.Undefined()
	case models.StateNull:
		return models.Null()
	default:
		return models.Undefined()
	}
}
