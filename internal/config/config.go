package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file used when FINVESTIGATOR_CONFIG is unset.
const DefaultPath = "config/finvestigator.yaml"

// DefaultNewsFeedURL is the Economic Times markets feed.
const DefaultNewsFeedURL = "https://economictimes.indiatimes.com/markets/stocks/rssfeeds/2146842.cms"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the finvestigator dashboard.
type Config struct {
	Server   Server         `yaml:"server"`
	Storage  Storage        `yaml:"storage"`
	Market   MarketConfig   `yaml:"market"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	News     NewsConfig     `yaml:"news"`
	Forecast ForecastConfig `yaml:"forecast"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  Logging        `yaml:"logging"`
}

// Server holds network listener configuration.
type Server struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// Storage holds paths for data persistence. An empty DataDir disables the
// parquet archive; an empty SQLitePath disables forecast run history.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// MarketConfig selects and tunes the market-data source.
type MarketConfig struct {
	Source          string        `yaml:"source"` // yahoo, alpaca or archive
	BaseURL         string        `yaml:"base_url"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	Timeout         time.Duration `yaml:"timeout"`
	StartDate       string        `yaml:"start_date"`
	Retries         int           `yaml:"retries"`
	Archive         bool          `yaml:"archive"`
}

// Alpaca holds credentials and endpoints for the Alpaca APIs.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// NewsConfig configures the RSS page. CheckCron schedules a fetch of the
// feed whose only effect is a log line reporting its health; nothing is
// cached.
type NewsConfig struct {
	FeedURL   string        `yaml:"feed_url"`
	Timeout   time.Duration `yaml:"timeout"`
	CheckCron string        `yaml:"check_cron"`
}

// ForecastConfig tunes the additive model.
type ForecastConfig struct {
	IntervalWidth         float64 `yaml:"interval_width"`
	UncertaintySamples    int     `yaml:"uncertainty_samples"`
	Changepoints          int     `yaml:"changepoints"`
	ChangepointPriorScale float64 `yaml:"changepoint_prior_scale"`
	SeasonalityPriorScale float64 `yaml:"seasonality_prior_scale"`
	Seed                  int64   `yaml:"seed"`
}

// CacheConfig controls periodic cache purges.
type CacheConfig struct {
	PurgeCron string `yaml:"purge_cron"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Path returns the config path from FINVESTIGATOR_CONFIG or DefaultPath.
func Path() string {
	if p := os.Getenv("FINVESTIGATOR_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the YAML configuration file at the given path, applies
// environment variable overrides and fills defaults. A missing file is not an
// error: the defaults and environment alone make a usable configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the services cannot start with.
func (c *Config) Validate() error {
	switch c.Market.Source {
	case "yahoo", "archive":
	case "alpaca":
		if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
			return errors.New("market source alpaca requires alpaca api_key and api_secret")
		}
	default:
		return fmt.Errorf("unknown market source %q", c.Market.Source)
	}
	if c.Market.Source == "archive" && c.Storage.DataDir == "" {
		return errors.New("market source archive requires storage.data_dir")
	}
	if w := c.Forecast.IntervalWidth; w <= 0 || w >= 1 {
		return fmt.Errorf("forecast.interval_width must be in (0,1), got %v", w)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GRPCAddr returns the gRPC listen address, or "" when gRPC is disabled.
func (s Server) GRPCAddr() string {
	if s.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", s.Host, s.GRPCPort)
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8501
	}
	if cfg.Market.Source == "" {
		cfg.Market.Source = "yahoo"
	}
	if cfg.Market.RateLimitPerSec == 0 {
		cfg.Market.RateLimitPerSec = 2
	}
	if cfg.Market.Timeout == 0 {
		cfg.Market.Timeout = 30 * time.Second
	}
	if cfg.Market.StartDate == "" {
		cfg.Market.StartDate = "2015-01-01"
	}
	if cfg.Market.Retries == 0 {
		cfg.Market.Retries = 1
	}
	if cfg.Alpaca.Feed == "" {
		cfg.Alpaca.Feed = "iex"
	}
	if cfg.News.FeedURL == "" {
		cfg.News.FeedURL = DefaultNewsFeedURL
	}
	if cfg.News.Timeout == 0 {
		cfg.News.Timeout = 15 * time.Second
	}
	if cfg.Forecast.IntervalWidth == 0 {
		cfg.Forecast.IntervalWidth = 0.8
	}
	if cfg.Forecast.UncertaintySamples == 0 {
		cfg.Forecast.UncertaintySamples = 1000
	}
	if cfg.Forecast.Changepoints == 0 {
		cfg.Forecast.Changepoints = 25
	}
	if cfg.Forecast.ChangepointPriorScale == 0 {
		cfg.Forecast.ChangepointPriorScale = 0.05
	}
	if cfg.Forecast.SeasonalityPriorScale == 0 {
		cfg.Forecast.SeasonalityPriorScale = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("MARKET_SOURCE"); v != "" {
		cfg.Market.Source = v
	}
	if v := os.Getenv("MARKET_BASE_URL"); v != "" {
		cfg.Market.BaseURL = v
	}

	if v := os.Getenv("NEWS_FEED_URL"); v != "" {
		cfg.News.FeedURL = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Standard Alpaca env vars (highest priority, canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
