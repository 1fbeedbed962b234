package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"breakout-scanner/internal/detect"
	"breakout-scanner/internal/fetch"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every configuration validation failure. Fatal at
// startup; no partial scan is attempted.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Exchange string `yaml:"exchange"`
	CacheDir string `yaml:"cache_dir"`
	Universe struct {
		Mode   string   `yaml:"mode"` // DERIVATIVE or STATIC
		Static []string `yaml:"static"`
	} `yaml:"universe"`
	Detection struct {
		Lookback        int     `yaml:"lookback"`
		VolumeThreshold float64 `yaml:"volume_threshold"`
		ATRMultiple     float64 `yaml:"atr_multiple"`
		ATRPeriod       int     `yaml:"atr_period"`
	} `yaml:"detection"`
	Fetch struct {
		MinIntervalMs    int `yaml:"min_interval_ms"`
		MaxAttempts      int `yaml:"max_attempts"`
		InitialBackoffMs int `yaml:"initial_backoff_ms"`
		MaxBackoffMs     int `yaml:"max_backoff_ms"`
		TimeoutSeconds   int `yaml:"timeout_seconds"`
		HistoryDays      int `yaml:"history_days"`
	} `yaml:"fetch"`
	Scan struct {
		Workers int `yaml:"workers"`
	} `yaml:"scan"`
	Report struct {
		Dir    string `yaml:"dir"`
		Format string `yaml:"format"`
	} `yaml:"report"`
}

func (c *Config) Validate() error {
	if c.Universe.Mode != "DERIVATIVE" && c.Universe.Mode != "STATIC" {
		return fmt.Errorf("%w: universe.mode must be 'DERIVATIVE' or 'STATIC', got '%s'", ErrInvalidConfig, c.Universe.Mode)
	}
	if c.Universe.Mode == "STATIC" && len(c.Universe.Static) == 0 {
		return fmt.Errorf("%w: universe.static cannot be empty in STATIC mode", ErrInvalidConfig)
	}
	if err := c.DetectionConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Fetch.MinIntervalMs < 0 {
		return fmt.Errorf("%w: fetch.min_interval_ms must be >= 0, got %d", ErrInvalidConfig, c.Fetch.MinIntervalMs)
	}
	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("%w: fetch.max_attempts must be >= 1, got %d", ErrInvalidConfig, c.Fetch.MaxAttempts)
	}
	if c.Fetch.HistoryDays < 1 {
		return fmt.Errorf("%w: fetch.history_days must be >= 1, got %d", ErrInvalidConfig, c.Fetch.HistoryDays)
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("%w: scan.workers must be >= 1, got %d", ErrInvalidConfig, c.Scan.Workers)
	}
	switch c.Report.Format {
	case "csv", "json", "parquet":
	default:
		return fmt.Errorf("%w: report.format must be 'csv', 'json' or 'parquet', got '%s'", ErrInvalidConfig, c.Report.Format)
	}
	return nil
}

// DetectionConfig converts the yaml block to the classifier's config.
func (c *Config) DetectionConfig() detect.Config {
	return detect.Config{
		Lookback:        c.Detection.Lookback,
		VolumeThreshold: c.Detection.VolumeThreshold,
		ATRMultiple:     c.Detection.ATRMultiple,
		ATRPeriod:       c.Detection.ATRPeriod,
	}
}

// FetchConfig converts the yaml block to the fetcher's config.
func (c *Config) FetchConfig() fetch.Config {
	return fetch.Config{
		MinInterval:    time.Duration(c.Fetch.MinIntervalMs) * time.Millisecond,
		MaxAttempts:    c.Fetch.MaxAttempts,
		InitialBackoff: time.Duration(c.Fetch.InitialBackoffMs) * time.Millisecond,
		MaxBackoff:     time.Duration(c.Fetch.MaxBackoffMs) * time.Millisecond,
		CallTimeout:    time.Duration(c.Fetch.TimeoutSeconds) * time.Second,
	}
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Exchange == "" {
		c.Exchange = "NSE"
	}
	if c.CacheDir == "" {
		c.CacheDir = "cache"
	}
	if c.Universe.Mode == "" {
		c.Universe.Mode = "DERIVATIVE"
	}
	d := detect.DefaultConfig()
	if c.Detection.Lookback == 0 {
		c.Detection.Lookback = d.Lookback
	}
	if c.Detection.VolumeThreshold == 0 {
		c.Detection.VolumeThreshold = d.VolumeThreshold
	}
	if c.Detection.ATRMultiple == 0 {
		c.Detection.ATRMultiple = d.ATRMultiple
	}
	if c.Detection.ATRPeriod == 0 {
		c.Detection.ATRPeriod = d.ATRPeriod
	}
	f := fetch.DefaultConfig()
	if c.Fetch.MinIntervalMs == 0 {
		c.Fetch.MinIntervalMs = int(f.MinInterval / time.Millisecond)
	}
	if c.Fetch.MaxAttempts == 0 {
		c.Fetch.MaxAttempts = f.MaxAttempts
	}
	if c.Fetch.InitialBackoffMs == 0 {
		c.Fetch.InitialBackoffMs = int(f.InitialBackoff / time.Millisecond)
	}
	if c.Fetch.MaxBackoffMs == 0 {
		c.Fetch.MaxBackoffMs = int(f.MaxBackoff / time.Millisecond)
	}
	if c.Fetch.TimeoutSeconds == 0 {
		c.Fetch.TimeoutSeconds = int(f.CallTimeout / time.Second)
	}
	if c.Fetch.HistoryDays == 0 {
		c.Fetch.HistoryDays = 90
	}
	if c.Scan.Workers == 0 {
		c.Scan.Workers = 1
	}
	if c.Report.Dir == "" {
		c.Report.Dir = "reports"
	}
	if c.Report.Format == "" {
		c.Report.Format = "csv"
	}
}
