package daterange

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/opscart/subscriptions-utilized/pkg/logging"
	"github.com/opscart/subscriptions-utilized/pkg/models"
)

// Unit is a calendar unit used to align a query window
type Unit string

const (
	Second  Unit = "second"
	Minute  Unit = "minute"
	Hour    Unit = "hour"
	Day     Unit = "day"
	Week    Unit = "week"
	ISOWeek Unit = "isoWeek"
	Month   Unit = "month"
	Quarter Unit = "quarter"
	Year    Unit = "year"
)

// DefaultOffset and DefaultUnit are used when inputs are missing or malformed
const (
	DefaultOffset      = 1
	DefaultUnit        = Day
	isoTimestampLayout = "2006-01-02T15:04:05.000Z"
)

// Now is the clock used when no reference instant is given
var Now = time.Now

// ParseUnit maps singular, plural and short unit names to a Unit.
// Unknown names fall back to DefaultUnit.
func ParseUnit(s string) Unit {
	s = strings.TrimSpace(s)
	switch s {
	case "s":
		return Second
	case "m":
		return Minute
	case "h":
		return Hour
	case "d":
		return Day
	case "w":
		return Week
	case "M":
		return Month
	case "Q":
		return Quarter
	case "y":
		return Year
	}

	switch strings.ToLower(s) {
	case "second", "seconds":
		return Second
	case "minute", "minutes":
		return Minute
	case "hour", "hours":
		return Hour
	case "day", "days":
		return Day
	case "week", "weeks":
		return Week
	case "isoweek", "isoweeks":
		return ISOWeek
	case "month", "months":
		return Month
	case "quarter", "quarters":
		return Quarter
	case "year", "years":
		return Year
	}
	if s != "" {
		logging.Debug(context.Background(), "Unknown range unit, using default", "unit", s, "default", DefaultUnit)
	}
	return DefaultUnit
}

// Range is a query window
type Range struct {
	StartDate time.Time
	EndDate   time.Time
}

// Default returns the window for one day back from now
func Default() Range {
	return ComputeRange(time.Time{}, DefaultOffset, DefaultUnit)
}

// ComputeRange builds a window aligned to unit boundaries in UTC.
//
// StartDate is the start of the unit containing ref, minus offset units.
// EndDate is the end of the day containing that same start-of-unit
// boundary, so the window always ends at day granularity even when unit
// is larger than a day.
func ComputeRange(ref time.Time, offset int, unit Unit) Range {
	if ref.IsZero() {
		ref = Now()
	}
	if offset < 1 {
		offset = DefaultOffset
	}
	unit = ParseUnit(string(unit))

	start := StartOf(ref.UTC(), unit)

	return Range{
		StartDate: Subtract(start, offset, unit),
		EndDate:   EndOfDay(start),
	}
}

// StartOf truncates t (expected in UTC) to the beginning of unit
func StartOf(t time.Time, unit Unit) time.Time {
	y, m, d := t.Date()
	switch unit {
	case Second:
		return t.Truncate(time.Second)
	case Minute:
		return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, time.UTC)
	case Hour:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, time.UTC)
	case Week:
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return day.AddDate(0, 0, -int(day.Weekday()))
	case ISOWeek:
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		back := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -back)
	case Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case Quarter:
		first := time.Month((int(m)-1)/3*3 + 1)
		return time.Date(y, first, 1, 0, 0, 0, 0, time.UTC)
	case Year:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}

// Subtract moves t back n units
func Subtract(t time.Time, n int, unit Unit) time.Time {
	switch unit {
	case Second:
		return t.Add(-time.Duration(n) * time.Second)
	case Minute:
		return t.Add(-time.Duration(n) * time.Minute)
	case Hour:
		return t.Add(-time.Duration(n) * time.Hour)
	case Week, ISOWeek:
		return t.AddDate(0, 0, -7*n)
	case Month:
		return t.AddDate(0, -n, 0)
	case Quarter:
		return t.AddDate(0, -3*n, 0)
	case Year:
		return t.AddDate(-n, 0, 0)
	default:
		return t.AddDate(0, 0, -n)
	}
}

// EndOfDay returns the last millisecond of the UTC day containing t
func EndOfDay(t time.Time) time.Time {
	day := StartOf(t.UTC(), Day)
	return day.AddDate(0, 0, 1).Add(-time.Millisecond)
}

// QueryOptions renders the window as API query options
func (r Range) QueryOptions(granularity models.Granularity) models.QueryOptions {
	if !granularity.Valid() {
		granularity = models.GranularityDaily
	}
	return models.QueryOptions{
		Granularity: granularity,
		Beginning:   FormatISO(r.StartDate),
		Ending:      FormatISO(r.EndDate),
	}
}

// FormatISO formats t in UTC with millisecond precision
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoTimestampLayout)
}

// MarshalJSON renders both bounds as millisecond ISO timestamps
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}{FormatISO(r.StartDate), FormatISO(r.EndDate)})
}
