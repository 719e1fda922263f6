package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opscart/subscriptions-utilized/pkg/daterange"
	"github.com/opscart/subscriptions-utilized/pkg/models"
)

// Config holds application configuration
type Config struct {
	// Data source: rhsm or prometheus
	DataSource string

	// RHSM API
	APIURL         string
	Token          string
	TokenURL       string
	ClientID       string
	ClientSecret   string
	TokenSecret    string // namespace/name of a Kubernetes Secret
	RequestTimeout time.Duration

	// Prometheus
	PrometheusURL string

	// Query window
	RangeOffset int
	RangeUnit   daterange.Unit
	Granularity models.Granularity

	// Products shown on the card
	ProductOne models.Product
	ProductTwo models.Product

	// Storage
	StorageEnabled bool
	DatabaseURL    string

	// Serve mode
	ListenAddr      string
	CacheTTL        time.Duration
	RefreshInterval time.Duration

	// Output
	OutputFormat string // text, json
	LogLevel     string
	Verbose      bool
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	return &Config{
		DataSource:     getEnv("DATASOURCE", "rhsm"),
		APIURL:         getEnv("RHSM_API_URL", "https://console.redhat.com/api/rhsm-subscriptions/v1"),
		Token:          getEnv("RHSM_TOKEN", ""),
		TokenURL:       getEnv("RHSM_TOKEN_URL", ""),
		ClientID:       getEnv("RHSM_CLIENT_ID", ""),
		ClientSecret:   getEnv("RHSM_CLIENT_SECRET", ""),
		TokenSecret:    getEnv("RHSM_TOKEN_SECRET", ""),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		PrometheusURL:  getEnv("PROMETHEUS_URL", "http://localhost:9090"),
		RangeOffset:    getEnvInt("RANGE_OFFSET", daterange.DefaultOffset),
		RangeUnit:      daterange.ParseUnit(getEnv("RANGE_UNIT", "days")),
		Granularity:    models.Granularity(strings.ToUpper(getEnv("GRANULARITY", string(models.GranularityDaily)))),
		ProductOne: models.Product{
			Name:  "productOne",
			ID:    getEnv("PRODUCT_ONE_ID", "OpenShift-metrics"),
			Title: getEnv("PRODUCT_ONE_TITLE", "Red Hat OpenShift"),
			Field: getEnv("PRODUCT_ONE_FIELD", models.FieldSockets),
		},
		ProductTwo: models.Product{
			Name:  "productTwo",
			ID:    getEnv("PRODUCT_TWO_ID", "RHEL"),
			Title: getEnv("PRODUCT_TWO_TITLE", "Red Hat Enterprise Linux"),
			Field: getEnv("PRODUCT_TWO_FIELD", models.FieldCores),
		},
		StorageEnabled:  getEnvBool("STORAGE_ENABLED", false),
		DatabaseURL:     getEnv("DATABASE_URL", "host=localhost port=5432 user=subsuser password=devpassword dbname=subscriptions sslmode=disable"),
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		CacheTTL:        getEnvDuration("CACHE_TTL", 5*time.Minute),
		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 15*time.Minute),
		OutputFormat:    "text",
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Verbose:         false,
	}
}

// UseDevPreset shortens cache and refresh intervals for local work
func (c *Config) UseDevPreset() {
	c.CacheTTL = 30 * time.Second
	c.RefreshInterval = time.Minute
	c.LogLevel = "debug"
}

// UseProductionPreset favours fewer upstream calls
func (c *Config) UseProductionPreset() {
	c.CacheTTL = 15 * time.Minute
	c.RefreshInterval = time.Hour
	c.LogLevel = "info"
}

// Products returns both tracked products in card order
func (c *Config) Products() []models.Product {
	return []models.Product{c.ProductOne, c.ProductTwo}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	switch c.DataSource {
	case "rhsm":
		if c.APIURL == "" {
			return fmt.Errorf("RHSM_API_URL must be set for the rhsm data source")
		}
		if c.TokenURL != "" && (c.ClientID == "" || c.ClientSecret == "") {
			return fmt.Errorf("RHSM_CLIENT_ID and RHSM_CLIENT_SECRET must be set with RHSM_TOKEN_URL")
		}
		if c.TokenSecret != "" && !strings.Contains(c.TokenSecret, "/") {
			return fmt.Errorf("RHSM_TOKEN_SECRET must be namespace/name, got %q", c.TokenSecret)
		}
	case "prometheus":
		if c.PrometheusURL == "" {
			return fmt.Errorf("PROMETHEUS_URL must be set for the prometheus data source")
		}
	default:
		return fmt.Errorf("unknown data source: %s", c.DataSource)
	}

	if !c.Granularity.Valid() {
		return fmt.Errorf("unsupported granularity: %s", c.Granularity)
	}
	if c.RangeOffset < 1 {
		return fmt.Errorf("range offset must be at least 1")
	}
	for _, p := range c.Products() {
		if p.ID == "" || p.Field == "" {
			return fmt.Errorf("product %s needs both an ID and a field", p.Name)
		}
	}
	if c.StorageEnabled && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when storage is enabled")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache TTL must not be negative")
	}
	if c.RefreshInterval < time.Second {
		return fmt.Errorf("refresh interval must be at least 1s")
	}
	return nil
}
