// Package chartdata reduces paired report and capacity series to the single
// most recent data point shown on a utilization indicator.
package chartdata

import (
	"math"

	"github.com/opscart/subscriptions-utilized/pkg/models"
)

// DeriveDataPoint walks report and capacity from the newest sample backward
// and returns the first sample that carries data, reduced to field.
//
// The series are aligned by position from their newest end; no join on
// date is attempted. Samples whose report entry has has_data=false are
// skipped. When every sample is skipped the returned DataPoint is empty.
// Inputs are not modified.
func DeriveDataPoint(report, capacity models.Series, field string) models.DataPoint {
	for offset := 0; offset < len(report); offset++ {
		entry := report[len(report)-1-offset]
		if entry.Skipped() {
			continue
		}

		var capEntry models.TimeSeriesEntry
		if idx := len(capacity) - 1 - offset; idx >= 0 {
			capEntry = capacity[idx]
		}

		point := models.DataPoint{
			Date:   entry.Date,
			Report: entry.Field(field),
		}
		if capEntry.HasInfinite {
			point.Capacity = models.Null()
		} else {
			point.Capacity = capEntry.Field(field)
		}
		point.Percentage = Percentage(point.Report, point.Capacity)

		return point
	}

	return models.DataPoint{}
}

// Percentage computes report/capacity as a whole-number percentage.
//
// A null capacity yields null. Otherwise undefined or null operands count
// as 0 and the raw ratio goes through NormalizePercentage.
func Percentage(report, capacity models.Value) models.Value {
	if capacity.IsNull() {
		return models.Null()
	}
	return NormalizePercentage(report.OrZero() / capacity.OrZero() * 100)
}

// NormalizePercentage applies the numeric policy for a raw ratio:
// NaN (0/0) becomes 0, an infinite result becomes undefined, and any finite
// result is rounded up to the next integer.
func NormalizePercentage(raw float64) models.Value {
	if math.IsNaN(raw) {
		return models.Number(0)
	}
	if math.IsInf(raw, 0) {
		return models.Undefined()
	}
	return models.Number(math.Ceil(raw))
}
