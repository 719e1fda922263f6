package rhsm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opscart/subscriptions-utilized/pkg/chartdata"
	"github.com/opscart/subscriptions-utilized/pkg/models"
)

var testOptions = models.QueryOptions{
	Granularity: models.GranularityDaily,
	Beginning:   "2024-01-01T00:00:00.000Z",
	Ending:      "2024-01-02T23:59:59.999Z",
}

func TestTally(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tally/products/RHEL" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("granularity") != "DAILY" {
			t.Errorf("Expected granularity DAILY, got %s", q.Get("granularity"))
		}
		if q.Get("beginning") != testOptions.Beginning || q.Get("ending") != testOptions.Ending {
			t.Errorf("Unexpected window %s - %s", q.Get("beginning"), q.Get("ending"))
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Expected bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"date":"2024-01-01T00:00:00Z","has_data":false},{"date":"2024-01-02T00:00:00Z","has_data":true,"sockets":12}],"meta":{"count":2}}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", WithTokenSource(StaticToken("secret")))

	series, err := c.Tally(context.Background(), "RHEL", testOptions)
	if err != nil {
		t.Fatalf("Tally failed: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(series))
	}
	if !series[0].Skipped() {
		t.Error("Expected first sample to be a placeholder")
	}
	if v, _ := series[1].Field(models.FieldSockets).Float(); v != 12 {
		t.Errorf("Expected 12 sockets, got %v", v)
	}
}

func TestCapacityEscapesProductID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/capacity/products/RHEL%20for%20x86" {
			t.Errorf("Unexpected path %s", r.URL.EscapedPath())
		}
		w.Write([]byte(`{"data":[{"date":"2024-01-02T00:00:00Z","has_infinite_quantity":true}]}`))
	}))
	defer srv.Close()

	series, err := New(srv.URL).Capacity(context.Background(), "RHEL for x86", testOptions)
	if err != nil {
		t.Fatalf("Capacity failed: %v", err)
	}
	if len(series) != 1 || !series[0].HasInfinite {
		t.Errorf("Expected one infinite capacity sample, got %+v", series)
	}
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
		{"server error", http.StatusBadGateway, ErrUnexpectedStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			_, err := New(srv.URL).Tally(context.Background(), "RHEL", testOptions)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			var se *StatusError
			if !errors.As(err, &se) || se.StatusCode != tt.status {
				t.Errorf("Expected StatusError with %d, got %v", tt.status, err)
			}
		})
	}
}

func TestMalformedFlagsStayPerSample(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantCapacity models.Value
	}{
		{
			name:         "numeric has_data",
			body:         `{"data":[{"date":"2024-01-02","has_data":1,"sockets":5}]}`,
			wantCapacity: models.Number(10),
		},
		{
			name:         "string has_infinite_quantity",
			body:         `{"data":[{"date":"2024-01-02","has_data":1,"has_infinite_quantity":"true","sockets":5}]}`,
			wantCapacity: models.Null(),
		},
		{
			name:         "string has_data on older sample",
			body:         `{"data":[{"date":"2024-01-01","has_data":"no","sockets":2},{"date":"2024-01-02","sockets":5}]}`,
			wantCapacity: models.Number(10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := New(srv.URL)
			report, err := client.Tally(context.Background(), "RHEL", testOptions)
			if err != nil {
				t.Fatalf("Tally failed: %v", err)
			}
			capacity, err := client.Capacity(context.Background(), "RHEL", testOptions)
			if err != nil {
				t.Fatalf("Capacity failed: %v", err)
			}
			// both endpoints serve the same body; give finite capacity its own value
			for i := range capacity {
				if !capacity[i].HasInfinite {
					capacity[i].Values[models.FieldSockets] = models.Number(10)
				}
			}

			point := chartdata.DeriveDataPoint(report, capacity, models.FieldSockets)
			want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
			if !point.Date.Equal(want) {
				t.Errorf("Expected date %v, got %v", want, point.Date)
			}
			if !point.Report.Equal(models.Number(5)) {
				t.Errorf("Expected report 5, got %s", point.Report)
			}
			if !point.Capacity.Equal(tt.wantCapacity) {
				t.Errorf("Expected capacity %s, got %s", tt.wantCapacity, point.Capacity)
			}
		})
	}
}

func TestEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta":{}}`))
	}))
	defer srv.Close()

	series, err := New(srv.URL).Tally(context.Background(), "RHEL", testOptions)
	if err != nil {
		t.Fatalf("Tally failed: %v", err)
	}
	if series == nil || len(series) != 0 {
		t.Errorf("Expected empty non-nil series, got %#v", series)
	}
}
