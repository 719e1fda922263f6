package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/opscart/subscriptions-utilized/pkg/dashboard"
)

// GenerateMarkdown creates a Markdown report
func GenerateMarkdown(report *Report, writer io.Writer) error {
	var b strings.Builder

	b.WriteString("# Subscriptions Utilized\n\n")
	fmt.Fprintf(&b, "- **Source:** %s\n", report.Source)
	fmt.Fprintf(&b, "- **Range:** %s to %s\n", report.RangeStart, report.RangeEnd)
	fmt.Fprintf(&b, "- **Generated:** %s\n\n", report.GeneratedAt.UTC().Format("January 2, 2006 15:04:05 MST"))

	b.WriteString("| Product | Field | Report | Capacity | Utilization | Data From |\n")
	b.WriteString("|---|---|---:|---:|---:|---|\n")
	for _, row := range report.Rows {
		pct := row.Percentage
		switch {
		case !row.Displayable:
			pct = fmt.Sprintf("%s (%s)", pct, row.Status)
		case row.Variant == dashboard.VariantDanger:
			pct = "**" + pct + "**"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			escapeCell(row.Title), row.Field, row.Report, row.Capacity, pct, row.DataFrom)
	}

	if report.OverUtilizedCount > 0 {
		fmt.Fprintf(&b, "\n%d product(s) over subscription threshold.\n", report.OverUtilizedCount)
	}

	if _, err := io.WriteString(writer, b.String()); err != nil {
		return fmt.Errorf("failed to write markdown: %w", err)
	}
	return nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
