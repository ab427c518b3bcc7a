package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Pipeline PipelineConfig
	Logger   LoggerConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DataConfig names the three read-only input tables loaded at startup.
type DataConfig struct {
	ProductsFile           string
	SubcategorySummaryFile string
	SupplierSummaryFile    string
}

// PipelineConfig carries everything the normalization and aggregation
// stages are parameterized by. Currency spelling, thresholds and the
// period list are configuration, not code.
type PipelineConfig struct {
	Periods          []string
	SupplierColumn   bool
	CurrencySuffixes []string
	SuffixFoldCase   bool
	CSVDelimiter     string
	ProfitColumn     string

	CandidateMaxMeanPct float64
	CandidateMinItems   int
	GrowthFactor        float64
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
}

// defaultPeriods matches the season covered by the reference export.
var defaultPeriods = []string{
	"2024-06", "2024-07", "2024-08", "2024-09", "2024-10", "2024-11",
	"2024-12", "2025-01", "2025-02", "2025-03", "2025-04",
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8085),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Data: DataConfig{
			ProductsFile:           getEnvString("PRODUCTS_FILE", "data/products.csv"),
			SubcategorySummaryFile: getEnvString("SUBCATEGORY_SUMMARY_FILE", "data/subcategory_summary.csv"),
			SupplierSummaryFile:    getEnvString("SUPPLIER_SUMMARY_FILE", "data/supplier_summary.csv"),
		},
		Pipeline: PipelineConfig{
			Periods:             getEnvStringSlice("PIPELINE_PERIODS", defaultPeriods),
			SupplierColumn:      getEnvBool("PIPELINE_SUPPLIER_COLUMN", true),
			CurrencySuffixes:    getEnvStringSlice("PIPELINE_CURRENCY_SUFFIXES", []string{"грн.", "грн"}),
			SuffixFoldCase:      getEnvBool("PIPELINE_SUFFIX_FOLD_CASE", true),
			CSVDelimiter:        getEnvString("PIPELINE_CSV_DELIMITER", ","),
			ProfitColumn:        getEnvString("PIPELINE_PROFIT_COLUMN", "Общая прибыль"),
			CandidateMaxMeanPct: getEnvFloat("PIPELINE_CANDIDATE_MAX_MEAN_PCT", 1.0),
			CandidateMinItems:   getEnvInt("PIPELINE_CANDIDATE_MIN_ITEMS", 5),
			GrowthFactor:        getEnvFloat("PIPELINE_GROWTH_FACTOR", 1.10),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8085"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}

	if c.Data.ProductsFile == "" {
		return fmt.Errorf("products file path cannot be empty")
	}

	if len(c.Pipeline.Periods) == 0 {
		return fmt.Errorf("period list cannot be empty")
	}

	if utf8.RuneCountInString(c.Pipeline.CSVDelimiter) != 1 {
		return fmt.Errorf("CSV delimiter must be a single character, got %q", c.Pipeline.CSVDelimiter)
	}

	if c.Pipeline.ProfitColumn == "" {
		return fmt.Errorf("profit column name cannot be empty")
	}

	if c.Pipeline.GrowthFactor <= 0 {
		return fmt.Errorf("growth factor must be positive, got %v", c.Pipeline.GrowthFactor)
	}

	if c.Pipeline.CandidateMinItems < 0 {
		return fmt.Errorf("candidate min items cannot be negative")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 || c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit RPS and burst must be positive")
	}

	return nil
}

// Delimiter returns the configured CSV delimiter as a rune.
func (c *PipelineConfig) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.CSVDelimiter)
	return r
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
