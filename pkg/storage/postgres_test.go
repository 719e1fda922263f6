package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/opscart/subscriptions-utilized/pkg/models"
)

var snapshotColumnNames = []string{
	"id", "product", "product_id", "field", "sample_date",
	"report_state", "report_value", "capacity_state", "capacity_value",
	"percentage_state", "percentage_value",
	"range_start", "range_end", "collected_at",
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() {
		mock.ExpectClose()
		if err := db.Close(); err != nil {
			t.Errorf("failed to close db: %s", err)
		}
	})
	return newPostgresStoreFromDB(db), mock
}

func TestSaveSnapshot(t *testing.T) {
	store, mock := newMockStore(t)
	collected := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return collected }

	snap := &models.Snapshot{
		Product:   "productOne",
		ProductID: "OpenShift-metrics",
		Field:     models.FieldCores,
		Point: models.DataPoint{
			Date:       time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
			Report:     models.Number(12),
			Capacity:   models.Null(),
			Percentage: models.Null(),
		},
		RangeStart: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2024, 3, 14, 23, 59, 59, 999e6, time.UTC),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO snapshots")).
		WithArgs(sqlmock.AnyArg(), "productOne", "OpenShift-metrics", models.FieldCores, sqlmock.AnyArg(),
			int16(models.StateNumber), sqlmock.AnyArg(), int16(models.StateNull), sqlmock.AnyArg(),
			int16(models.StateNull), sqlmock.AnyArg(),
			snap.RangeStart, snap.RangeEnd, collected).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.SaveSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if snap.ID == "" {
		t.Error("Expected an ID to be assigned")
	}
	if !snap.CollectedAt.Equal(collected) {
		t.Errorf("Expected collected_at %v, got %v", collected, snap.CollectedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestGetSnapshot(t *testing.T) {
	store, mock := newMockStore(t)
	sample := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	collected := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(snapshotColumnNames).AddRow(
		"snap-1", "productTwo", "RHEL", models.FieldSockets, sample,
		int16(models.StateNumber), 150.0, int16(models.StateNumber), 100.0,
		int16(models.StateNumber), 150.0,
		sample, sample.Add(24*time.Hour-time.Millisecond), collected,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM snapshots")).
		WithArgs("snap-1").
		WillReturnRows(rows)

	got, err := store.GetSnapshot(context.Background(), "snap-1")
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}

	want := models.DataPoint{
		Date:       sample,
		Report:     models.Number(150),
		Capacity:   models.Number(100),
		Percentage: models.Number(150),
	}
	if diff := cmp.Diff(want, got.Point); diff != "" {
		t.Errorf("Point mismatch (-want +got):\n%s", diff)
	}
	if got.ProductID != "RHEL" {
		t.Errorf("Expected product ID RHEL, got %s", got.ProductID)
	}
}

func TestGetSnapshotNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM snapshots")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(snapshotColumnNames))

	_, err := store.GetSnapshot(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListSnapshotsKeepsUndefined(t *testing.T) {
	store, mock := newMockStore(t)
	collected := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(snapshotColumnNames).
		AddRow("snap-2", "productOne", "OpenShift-metrics", models.FieldCores, nil,
			int16(models.StateUndefined), nil, int16(models.StateUndefined), nil,
			int16(models.StateUndefined), nil,
			collected, collected, collected).
		AddRow("snap-1", "productOne", "OpenShift-metrics", models.FieldCores, collected,
			int16(models.StateNumber), 5.0, int16(models.StateNumber), 10.0,
			int16(models.StateNumber), 50.0,
			collected, collected, collected.Add(-time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY collected_at DESC")).
		WithArgs("productOne", 10).
		WillReturnRows(rows)

	got, err := store.ListSnapshots(context.Background(), "productOne", 10)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(got))
	}
	if !got[0].Point.IsEmpty() {
		t.Errorf("Expected empty point for snap-2, got %+v", got[0].Point)
	}
	if !got[1].Point.Percentage.Equal(models.Number(50)) {
		t.Errorf("Expected 50%% for snap-1, got %s", got[1].Point.Percentage)
	}
}

func TestListSnapshotsWithoutLimit(t *testing.T) {
	store, mock := newMockStore(t)
	collected := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(snapshotColumnNames).
		AddRow("snap-1", "productOne", "OpenShift-metrics", models.FieldCores, nil,
			int16(models.StateNull), nil, int16(models.StateNull), nil,
			int16(models.StateNull), nil,
			collected, collected, collected)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY collected_at DESC")).
		WithArgs("productOne").
		WillReturnRows(rows)

	got, err := store.ListSnapshots(context.Background(), "productOne", NoLimit)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Expected 1 snapshot, got %d", len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		snap := &models.Snapshot{
			Product:     "productOne",
			Point:       models.DataPoint{Percentage: models.Number(float64(i))},
			CollectedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := store.SaveSnapshot(ctx, snap); err != nil {
			t.Fatalf("SaveSnapshot failed: %v", err)
		}
	}
	_ = store.SaveSnapshot(ctx, &models.Snapshot{Product: "productTwo"})

	got, err := store.ListSnapshots(ctx, "productOne", 2)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(got))
	}
	if !got[0].Point.Percentage.Equal(models.Number(2)) {
		t.Errorf("Expected newest snapshot first, got %s", got[0].Point.Percentage)
	}

	all, err := store.ListSnapshots(ctx, "productOne", NoLimit)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected all 3 snapshots without a limit, got %d", len(all))
	}

	if _, err := store.GetSnapshot(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
