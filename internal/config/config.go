package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Source       string `yaml:"source"` // rest | yahoo
		BaseURL      string `yaml:"base_url"`
		APIKey       string `yaml:"api_key"`
		UniverseFile string `yaml:"universe_file"` // required for yahoo
	} `yaml:"data_source"`
	Scan struct {
		Session       string  `yaml:"session"`
		Benchmark     string  `yaml:"benchmark"`
		Workers       int     `yaml:"workers"`
		RateInterval  string  `yaml:"rate_interval"`
		MinPrice      float64 `yaml:"min_price"`
		MaxPrice      float64 `yaml:"max_price"`
		MinVolume     float64 `yaml:"min_volume"`
		Lookback      int     `yaml:"lookback"`
		SaveInterval  int     `yaml:"save_interval"`
		TestMode      bool    `yaml:"test_mode"`
		TestModeLimit int     `yaml:"test_mode_limit"`
	} `yaml:"scan"`
	Checkpoint struct {
		Dir string `yaml:"dir"`
	} `yaml:"checkpoint"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		ScanCron string `yaml:"scan_cron"`
	} `yaml:"schedule"`
	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
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

	// Environment variable overrides
	if v := os.Getenv("CYCLESCAN_SOURCE"); v != "" {
		cfg.DataSource.Source = v
	}
	if v := os.Getenv("CYCLESCAN_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("CYCLESCAN_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("CYCLESCAN_UNIVERSE_FILE"); v != "" {
		cfg.DataSource.UniverseFile = v
	}
	if v := os.Getenv("CYCLESCAN_SESSION"); v != "" {
		cfg.Scan.Session = v
	}
	if v := os.Getenv("CYCLESCAN_BENCHMARK"); v != "" {
		cfg.Scan.Benchmark = v
	}
	if v := os.Getenv("CYCLESCAN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scan.Workers = n
		}
	}
	if v := os.Getenv("CYCLESCAN_RATE_INTERVAL"); v != "" {
		cfg.Scan.RateInterval = v
	}
	if v := os.Getenv("CYCLESCAN_SCAN_CRON"); v != "" {
		cfg.Schedule.ScanCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.DataSource.Source == "" {
		cfg.DataSource.Source = "yahoo"
	}
	if cfg.Scan.Session == "" {
		cfg.Scan.Session = "default"
	}
	if cfg.Scan.Benchmark == "" {
		cfg.Scan.Benchmark = "SPY"
	}
	if cfg.Scan.Workers == 0 {
		cfg.Scan.Workers = 4
	}
	if cfg.Scan.RateInterval == "" {
		cfg.Scan.RateInterval = "1s"
	}
	if cfg.Scan.MinPrice == 0 {
		cfg.Scan.MinPrice = 5
	}
	if cfg.Scan.MaxPrice == 0 {
		cfg.Scan.MaxPrice = 10000
	}
	if cfg.Scan.MinVolume == 0 {
		cfg.Scan.MinVolume = 500_000
	}
	if cfg.Scan.Lookback == 0 {
		cfg.Scan.Lookback = 500
	}
	if cfg.Scan.SaveInterval == 0 {
		cfg.Scan.SaveInterval = 50
	}
	if cfg.Scan.TestModeLimit == 0 {
		cfg.Scan.TestModeLimit = 25
	}
	if cfg.Checkpoint.Dir == "" {
		cfg.Checkpoint.Dir = "data/checkpoints"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/cyclescan.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return cfg, nil
}

// RateInterval parses the configured per-request interval.
func (c *Config) RateInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Scan.RateInterval)
	if err != nil {
		return 0, fmt.Errorf("scan.rate_interval: %w", err)
	}
	return d, nil
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	switch c.DataSource.Source {
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest source")
		}
	case "yahoo":
		if c.DataSource.UniverseFile == "" {
			return fmt.Errorf("data_source.universe_file is required for the yahoo source")
		}
	default:
		return fmt.Errorf("data_source.source must be rest or yahoo, got %q", c.DataSource.Source)
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be positive")
	}
	if d, err := c.RateInterval(); err != nil {
		return err
	} else if d <= 0 {
		return fmt.Errorf("scan.rate_interval must be positive")
	}
	if c.Scan.MinPrice < 0 || c.Scan.MaxPrice < c.Scan.MinPrice {
		return fmt.Errorf("scan price range [%g, %g] is invalid", c.Scan.MinPrice, c.Scan.MaxPrice)
	}
	if c.Scan.Lookback < 200 {
		return fmt.Errorf("scan.lookback must be at least 200 bars")
	}
	return nil
}
