package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"StockCharts/internal/model"
)

// DefaultSymbols are the tickers offered by the chart form.
var DefaultSymbols = []string{"MSFT", "COST", "EBAY", "WMT", "GOOGL"}

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"server"`
	Polygon struct {
		BaseURL    string        `yaml:"base_url"`
		APIKey     string        `yaml:"api_key"`
		Unadjusted bool          `yaml:"unadjusted"`
		Sort       string        `yaml:"sort"`
		Timeout    time.Duration `yaml:"timeout"` // zero keeps transport defaults
	} `yaml:"polygon"`
	Charts struct {
		Symbols   []string `yaml:"symbols"`
		Timespans []string `yaml:"timespans"`
		Timezone  string   `yaml:"timezone"`
	} `yaml:"charts"`
	Database struct {
		Driver string `yaml:"driver"` // sqlite | postgres
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	Prefetch struct {
		Cron         string   `yaml:"cron"`
		Symbols      []string `yaml:"symbols"`
		Timespan     string   `yaml:"timespan"`
		Multiplier   int      `yaml:"multiplier"`
		LookbackDays int      `yaml:"lookback_days"`
		Limit        int      `yaml:"limit"`
	} `yaml:"prefetch"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	envFile := ".env"
	if v := os.Getenv("ENV_FILE"); v != "" {
		envFile = v
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	// Environment variable overrides
	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		cfg.Polygon.APIKey = v
	}
	if v := os.Getenv("POLYGON_BASE_URL"); v != "" {
		cfg.Polygon.BaseURL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("PREFETCH_CRON"); v != "" {
		cfg.Prefetch.Cron = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Polygon.BaseURL == "" {
		c.Polygon.BaseURL = "https://api.polygon.io/v2/aggs/ticker/"
	}
	if c.Polygon.Sort == "" {
		c.Polygon.Sort = "asc"
	}
	if len(c.Charts.Symbols) == 0 {
		c.Charts.Symbols = append([]string(nil), DefaultSymbols...)
	}
	if len(c.Charts.Timespans) == 0 {
		for _, ts := range model.Timespans {
			c.Charts.Timespans = append(c.Charts.Timespans, string(ts))
		}
	}
	if c.Charts.Timezone == "" {
		c.Charts.Timezone = "UTC"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "data/stock_charts.db"
	}
	if c.Prefetch.Timespan == "" {
		c.Prefetch.Timespan = string(model.TimespanDay)
	}
	if c.Prefetch.Multiplier == 0 {
		c.Prefetch.Multiplier = 1
	}
	if c.Prefetch.LookbackDays == 0 {
		c.Prefetch.LookbackDays = 30
	}
	if c.Prefetch.Limit == 0 {
		c.Prefetch.Limit = 5000
	}
	if len(c.Prefetch.Symbols) == 0 {
		c.Prefetch.Symbols = append([]string(nil), c.Charts.Symbols...)
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Polygon.APIKey == "" {
		return fmt.Errorf("polygon.api_key is required")
	}
	if c.Polygon.Sort != "asc" && c.Polygon.Sort != "desc" {
		return fmt.Errorf("polygon.sort must be asc or desc, got %q", c.Polygon.Sort)
	}
	if c.Polygon.Timeout < 0 {
		return fmt.Errorf("polygon.timeout must not be negative")
	}
	if len(c.Charts.Symbols) == 0 {
		return fmt.Errorf("charts.symbols must not be empty")
	}
	if len(c.Charts.Timespans) == 0 {
		return fmt.Errorf("charts.timespans must not be empty")
	}
	for _, ts := range c.Charts.Timespans {
		if _, err := model.ParseTimespan(ts); err != nil {
			return fmt.Errorf("charts.timespans: %w", err)
		}
	}
	if _, err := time.LoadLocation(c.Charts.Timezone); err != nil {
		return fmt.Errorf("charts.timezone: %w", err)
	}
	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Prefetch.Cron != "" {
		if _, err := cron.ParseStandard(c.Prefetch.Cron); err != nil {
			return fmt.Errorf("prefetch.cron: %w", err)
		}
		if _, err := model.ParseTimespan(c.Prefetch.Timespan); err != nil {
			return fmt.Errorf("prefetch.timespan: %w", err)
		}
		if c.Prefetch.Multiplier < 1 {
			return fmt.Errorf("prefetch.multiplier must be >= 1")
		}
	}
	return nil
}

// Location returns the timezone calendar dates are interpreted in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Charts.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HasSymbol reports whether symbol is one of the offered chart symbols.
func (c *Config) HasSymbol(symbol string) bool {
	for _, s := range c.Charts.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// HasTimespan reports whether ts is one of the offered chart timespans.
func (c *Config) HasTimespan(ts string) bool {
	for _, s := range c.Charts.Timespans {
		if s == ts {
			return true
		}
	}
	return false
}
