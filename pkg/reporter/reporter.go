package reporter

import (
	"fmt"
	"io"
	"time"

	"github.com/opscart/subscriptions-utilized/pkg/dashboard"
	"github.com/opscart/subscriptions-utilized/pkg/daterange"
)

// ReportFormat represents the output format
type ReportFormat string

const (
	FormatHTML     ReportFormat = "html"
	FormatMarkdown ReportFormat = "markdown"
	FormatCSV      ReportFormat = "csv"
)

// ParseFormat validates a report format name
func ParseFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(s); f {
	case FormatHTML, FormatMarkdown, FormatCSV:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported report format: %s", s)
	}
}

// Report contains all data for generating reports
type Report struct {
	Source            string
	GeneratedAt       time.Time
	RangeStart        string
	RangeEnd          string
	Rows              []Row
	Reversed          bool
	OverUtilizedCount int
	UnavailableCount  int
}

// Row is one product in display order
type Row struct {
	Product     string
	ProductID   string
	Title       string
	Field       string
	Status      string
	Displayable bool
	Report      string
	Capacity    string
	Percentage  string
	Progress    float64
	Variant     string
	DataFrom    string
}

// Reporter generates utilization reports
type Reporter struct {
	format ReportFormat
	now    func() time.Time
}

// New creates a new reporter
func New(format ReportFormat) *Reporter {
	return &Reporter{
		format: format,
		now:    time.Now,
	}
}

func (r *Reporter) Format() ReportFormat {
	return r.format
}

// Generate builds a report from a card and its query window
func (r *Reporter) Generate(card dashboard.Card, window daterange.Range, source string) *Report {
	report := &Report{
		Source:      source,
		GeneratedAt: r.now(),
		RangeStart:  daterange.FormatISO(window.StartDate),
		RangeEnd:    daterange.FormatISO(window.EndDate),
		Reversed:    card.Reversed,
	}

	for _, ind := range card.Indicators {
		row := Row{
			Product:     ind.Product.Name,
			ProductID:   ind.Product.ID,
			Title:       ind.Product.Title,
			Field:       ind.Product.Field,
			Status:      ind.Status.String(),
			Displayable: ind.Displayable,
			Report:      dashboard.FormatValue(ind.Point.Report),
			Capacity:    dashboard.FormatValue(ind.Point.Capacity),
			Percentage:  ind.Label,
			Progress:    ind.ProgressValue,
			Variant:     ind.Variant,
			DataFrom:    dashboard.FormatDate(ind.Point),
		}
		if !ind.Displayable {
			report.UnavailableCount++
		}
		if ind.Variant == dashboard.VariantDanger {
			report.OverUtilizedCount++
		}
		report.Rows = append(report.Rows, row)
	}

	return report
}

// Write renders the report in the reporter's format
func (r *Reporter) Write(report *Report, writer io.Writer) error {
	switch r.format {
	case FormatHTML:
		return GenerateHTML(report, writer)
	case FormatMarkdown:
		return GenerateMarkdown(report, writer)
	case FormatCSV:
		return GenerateCSV(report, writer)
	default:
		return fmt.Errorf("unsupported report format: %s", r.format)
	}
}
