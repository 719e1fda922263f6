package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opscart/subscriptions-utilized/pkg/cache"
	"github.com/opscart/subscriptions-utilized/pkg/config"
	"github.com/opscart/subscriptions-utilized/pkg/credentials"
	"github.com/opscart/subscriptions-utilized/pkg/dashboard"
	"github.com/opscart/subscriptions-utilized/pkg/datasource"
	"github.com/opscart/subscriptions-utilized/pkg/daterange"
	"github.com/opscart/subscriptions-utilized/pkg/logging"
	"github.com/opscart/subscriptions-utilized/pkg/models"
	"github.com/opscart/subscriptions-utilized/pkg/output"
	"github.com/opscart/subscriptions-utilized/pkg/reporter"
	"github.com/opscart/subscriptions-utilized/pkg/rhsm"
	"github.com/opscart/subscriptions-utilized/pkg/storage"
	"github.com/opscart/subscriptions-utilized/pkg/store"
	"github.com/opscart/subscriptions-utilized/pkg/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

var (
	// Scan flags
	outputFormat   string
	saveResults    bool
	verbose        bool
	dataSource     string
	rangeOffset    int
	rangeUnit      string
	granularity    string
	preset         string
	generateReport bool
	reportFormat   string
	reportOutput   string

	// Global config
	cfg *config.Config

	// History command vars
	historyLimit int
)

func main() {
	cfg = config.NewConfig()

	var rootCmd = &cobra.Command{
		Use:   "subscriptions-utilized",
		Short: "Subscription utilization card",
		Long:  `Fetch report and capacity series for two products and show how much of each subscription threshold is in use.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyFlags(cmd)
		},
		RunE: runScan,
	}

	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataSource, "datasource", "", "Data source: rhsm, prometheus (default from DATASOURCE)")
	rootCmd.PersistentFlags().IntVar(&rangeOffset, "offset", 0, "Number of units to look back (default from RANGE_OFFSET)")
	rootCmd.PersistentFlags().StringVar(&rangeUnit, "unit", "", "Range unit: hour, day, week, isoWeek, month, quarter, year")
	rootCmd.PersistentFlags().StringVar(&granularity, "granularity", "", "Granularity: DAILY, WEEKLY, MONTHLY, QUARTERLY, YEARLY")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "Configuration preset: dev, production")

	rootCmd.Flags().BoolVar(&saveResults, "save", false, "Save data points to database")
	rootCmd.Flags().BoolVar(&generateReport, "generate-report", false, "Generate utilization report")
	rootCmd.Flags().StringVar(&reportFormat, "report-format", "html", "Report format: html, markdown, csv")
	rootCmd.Flags().StringVar(&reportOutput, "report-output", "", "Output file for report")

	historyCmd := &cobra.Command{
		Use:   "history <product>",
		Short: "View saved data points for a product",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of snapshots to show (0 for all)")

	rangeCmd := &cobra.Command{
		Use:   "range [reference-date]",
		Short: "Print the query window for a reference date",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRange,
	}

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(rangeCmd)
	rootCmd.AddCommand(newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// applyFlags layers command line flags over the environment config
func applyFlags(cmd *cobra.Command) error {
	switch preset {
	case "":
	case "dev":
		cfg.UseDevPreset()
	case "production", "prod":
		cfg.UseProductionPreset()
	default:
		return fmt.Errorf("unknown preset: %s", preset)
	}

	if dataSource != "" {
		cfg.DataSource = dataSource
	}
	if cmd.Flags().Changed("offset") {
		cfg.RangeOffset = rangeOffset
	}
	if rangeUnit != "" {
		cfg.RangeUnit = daterange.ParseUnit(rangeUnit)
	}
	if granularity != "" {
		cfg.Granularity = models.Granularity(strings.ToUpper(granularity))
	}
	cfg.OutputFormat = outputFormat
	cfg.Verbose = verbose
	if verbose {
		cfg.LogLevel = "debug"
	}
	return logging.SetLevel(cfg.LogLevel)
}

func window() dashboard.Window {
	return dashboard.Window{
		Offset:      cfg.RangeOffset,
		Unit:        cfg.RangeUnit,
		Granularity: cfg.Granularity,
	}
}

// tokenSource picks static token, client credentials or a cluster secret
func tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	switch {
	case cfg.Token != "":
		return rhsm.StaticToken(cfg.Token), nil
	case cfg.TokenURL != "":
		return rhsm.ClientCredentials(ctx, cfg.TokenURL, cfg.ClientID, cfg.ClientSecret), nil
	case cfg.TokenSecret != "":
		ref, err := credentials.ParseSecretRef(cfg.TokenSecret)
		if err != nil {
			return nil, err
		}
		clientset, err := credentials.NewClientset()
		if err != nil {
			return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
		}
		logging.Debug(ctx, "Reading API token from secret", "secret", ref.String())
		return credentials.Cached(credentials.NewSecretTokenSource(clientset, ref)), nil
	default:
		return nil, nil
	}
}

func newSource(ctx context.Context) (datasource.Source, error) {
	var opts []rhsm.Option
	if cfg.DataSource == "" || cfg.DataSource == "rhsm" {
		ts, err := tokenSource(ctx)
		if err != nil {
			return nil, err
		}
		if ts == nil {
			logging.Warn(ctx, "No API credentials configured; requests are unauthenticated")
		} else {
			opts = append(opts, rhsm.WithTokenSource(ts))
		}
	}

	return datasource.New(datasource.Config{
		Type:          cfg.DataSource,
		APIURL:        cfg.APIURL,
		PrometheusURL: cfg.PrometheusURL,
		Timeout:       cfg.RequestTimeout,
	}, opts...)
}

func newLoader(ctx context.Context, metrics *telemetry.Metrics) (*dashboard.Loader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	src, err := newSource(ctx)
	if err != nil {
		return nil, err
	}
	logging.Info(ctx, "Using data source", "source", src.Name())

	opts := []dashboard.LoaderOption{dashboard.WithMetrics(metrics)}
	if cfg.CacheTTL > 0 {
		opts = append(opts, dashboard.WithCache(cache.New[models.SeriesPair]("series", cfg.CacheTTL, metrics)))
	}
	return dashboard.NewLoader(src, store.New(), cfg.Products(), window(), opts...), nil
}

func openStorage() (storage.Store, error) {
	st, err := storage.Open(storage.Config{Type: "postgres", URL: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return st, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	handler, err := output.NewHandler(outputFormat, os.Stdout)
	if err != nil {
		return err
	}

	var snapshots storage.Store
	if saveResults {
		if !cfg.StorageEnabled {
			logging.Warn(ctx, "--save ignored: STORAGE_ENABLED is not set")
		} else {
			snapshots, err = openStorage()
			if err != nil {
				return err
			}
			defer snapshots.Close()
			logging.Info(ctx, "Results will be saved to database")
		}
	}

	loader, err := newLoader(ctx, nil)
	if err != nil {
		return err
	}

	res, err := loader.Load(ctx)
	if err != nil {
		logging.Warn(ctx, "Some products could not be loaded", "error", err)
	}

	products := loader.Products()
	card := dashboard.BuildCard(loader.Store(), products[0], products[1])

	if snapshots != nil {
		for _, snap := range card.Snapshots(res.Range, time.Now().UTC()) {
			if err := snapshots.SaveSnapshot(ctx, snap); err != nil {
				logging.Warn(ctx, "Failed to save snapshot", "product", snap.Product, "error", err)
				continue
			}
			logging.Info(ctx, "Saved snapshot", "product", snap.Product, "id", snap.ID)
		}
	}

	if err := handler.DisplayCard(ctx, card, res.Range); err != nil {
		return fmt.Errorf("failed to display card: %w", err)
	}

	if generateReport {
		if err := writeReport(ctx, card, res.Range); err != nil {
			logging.Error(ctx, "Failed to generate report", "error", err)
		}
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	product := args[0]

	handler, err := output.NewHandler(outputFormat, os.Stdout)
	if err != nil {
		return err
	}

	snapshots, err := openStorage()
	if err != nil {
		return err
	}
	defer snapshots.Close()

	list, err := snapshots.ListSnapshots(ctx, product, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}
	return handler.DisplayHistory(ctx, product, list)
}

func runRange(cmd *cobra.Command, args []string) error {
	ref := daterange.Now()
	if len(args) == 1 {
		t, err := models.ParseDate(args[0])
		if err != nil {
			return fmt.Errorf("invalid reference date %q: %w", args[0], err)
		}
		ref = t
	}

	handler, err := output.NewHandler(outputFormat, os.Stdout)
	if err != nil {
		return err
	}

	r := daterange.ComputeRange(ref, cfg.RangeOffset, cfg.RangeUnit)
	return handler.DisplayRange(cmd.Context(), r, r.QueryOptions(cfg.Granularity))
}

func writeReport(ctx context.Context, card dashboard.Card, r daterange.Range) error {
	format, err := reporter.ParseFormat(reportFormat)
	if err != nil {
		return err
	}

	rep := reporter.New(format)
	report := rep.Generate(card, r, cfg.DataSource)

	reportsDir := "reports"
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	outputFile := reportOutput
	if outputFile == "" {
		ext := map[reporter.ReportFormat]string{
			reporter.FormatHTML:     ".html",
			reporter.FormatMarkdown: ".md",
			reporter.FormatCSV:      ".csv",
		}[format]
		outputFile = filepath.Join(reportsDir, fmt.Sprintf("utilization-%s%s", time.Now().Format("20060102-150405"), ext))
	} else if !strings.Contains(outputFile, "/") {
		outputFile = filepath.Join(reportsDir, outputFile)
	}

	file, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if err := rep.Write(report, file); err != nil {
		return fmt.Errorf("failed to write %s report: %w", format, err)
	}

	logging.Info(ctx, "Report generated", "format", string(format), "file", outputFile)
	if format == reporter.FormatHTML {
		if abs, err := filepath.Abs(outputFile); err == nil {
			logging.Info(ctx, "Open in browser", "url", "file://"+abs)
		}
	}
	return nil
}
