package models

import "time"

// FetchStatus is the lifecycle marker of a product fetch
type FetchStatus string

const (
	StatusUnset     FetchStatus = ""
	StatusPending   FetchStatus = "pending"
	StatusFulfilled FetchStatus = "fulfilled"
	StatusRejected  FetchStatus = "rejected"
)

func (s FetchStatus) String() string {
	if s == StatusUnset {
		return "unset"
	}
	return string(s)
}

// Granularity is the sampling interval requested from the API
type Granularity string

const (
	GranularityDaily     Granularity = "DAILY"
	GranularityWeekly    Granularity = "WEEKLY"
	GranularityMonthly   Granularity = "MONTHLY"
	GranularityQuarterly Granularity = "QUARTERLY"
	GranularityYearly    Granularity = "YEARLY"
)

// Valid reports whether g is a granularity the API accepts
func (g Granularity) Valid() bool {
	switch g {
	case GranularityDaily, GranularityWeekly, GranularityMonthly, GranularityQuarterly, GranularityYearly:
		return true
	}
	return false
}

// Step returns the nominal duration of one sample at this granularity
func (g Granularity) Step() time.Duration {
	switch g {
	case GranularityWeekly:
		return 7 * 24 * time.Hour
	case GranularityMonthly:
		return 30 * 24 * time.Hour
	case GranularityQuarterly:
		return 91 * 24 * time.Hour
	case GranularityYearly:
		return 365 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// QueryOptions are passed through to the remote API as query parameters
type QueryOptions struct {
	Granularity Granularity `json:"granularity"`
	Beginning   string      `json:"beginning"`
	Ending      string      `json:"ending"`
}

// Key returns a stable cache key for the options
func (o QueryOptions) Key() string {
	return string(o.Granularity) + "|" + o.Beginning + "|" + o.Ending
}

// Product describes one tracked product on the card
type Product struct {
	// Name is the internal key, e.g. "productOne"
	Name string `json:"name"`
	// ID is the product identifier sent to the API, e.g. "RHEL"
	ID    string `json:"id"`
	Title string `json:"title"`
	// Field selects the measured quantity, e.g. "sockets"
	Field string `json:"field"`
}

// Snapshot is a persisted derived data point
type Snapshot struct {
	ID          string
	Product     string
	ProductID   string
	Field       string
	Point       DataPoint
	RangeStart  time.Time
	RangeEnd    time.Time
	CollectedAt time.Time
}
