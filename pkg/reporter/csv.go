package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// GenerateCSV creates a CSV report
func GenerateCSV(report *Report, writer io.Writer) error {
	w := csv.NewWriter(writer)

	header := []string{
		"Product",
		"Product ID",
		"Field",
		"Status",
		"Report",
		"Capacity",
		"Utilization",
		"Variant",
		"Data From",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range report.Rows {
		record := []string{
			row.Title,
			row.ProductID,
			row.Field,
			row.Status,
			row.Report,
			row.Capacity,
			row.Percentage,
			row.Variant,
			row.DataFrom,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	summary := [][]string{
		{},
		{"SUMMARY"},
		{"Range Start", report.RangeStart},
		{"Range End", report.RangeEnd},
		{"Over-utilized Products", strconv.Itoa(report.OverUtilizedCount)},
		{"Unavailable Products", strconv.Itoa(report.UnavailableCount)},
	}
	if err := w.WriteAll(summary); err != nil {
		return fmt.Errorf("failed to write CSV summary: %w", err)
	}

	return w.Error()
}
