package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Paging strategies a session can run with.
const (
	StrategyPage  = "page"
	StrategyRange = "range"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`
	HTTPAddr string `mapstructure:"http_addr"`

	HTTPTimeoutSeconds  int64         `mapstructure:"http_timeout_seconds"`
	RangeWaitSeconds    int64         `mapstructure:"range_wait_seconds"`
	PreviewTimeoutSecs  int64         `mapstructure:"preview_timeout_seconds"`
	ShutdownTimeoutSecs int64         `mapstructure:"shutdown_timeout_seconds"`
	HTTPTimeout         time.Duration `mapstructure:"-"`
	RangeWait           time.Duration `mapstructure:"-"`
	PreviewTimeout      time.Duration `mapstructure:"-"`
	ShutdownTimeout     time.Duration `mapstructure:"-"`

	NewsAPIBaseURL        string        `mapstructure:"newsapi_base_url"`
	NewsAPIKey            string        `mapstructure:"newsapi_key" json:"-"`
	NewsAPITimeoutSeconds int64         `mapstructure:"newsapi_timeout_seconds"`
	NewsAPITimeout        time.Duration `mapstructure:"-"`

	PageSize       int    `mapstructure:"page_size"`
	PagingStrategy string `mapstructure:"paging_strategy"`

	PublishersFile string `mapstructure:"publishers_file"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("app_name", "samvad-news-reader")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("http_timeout_seconds", 20)
	v.SetDefault("range_wait_seconds", 30)
	v.SetDefault("preview_timeout_seconds", 10)
	v.SetDefault("shutdown_timeout_seconds", 10)
	v.SetDefault("newsapi_base_url", "https://newsapi.org/v2")
	v.SetDefault("newsapi_key", "")
	v.SetDefault("newsapi_timeout_seconds", 15)
	v.SetDefault("page_size", 20)
	v.SetDefault("paging_strategy", StrategyPage)
	v.SetDefault("publishers_file", "")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/relay.db")
	v.SetDefault("storage_ttl_seconds", int64((5*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	cfg.NewsAPIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.NewsAPIBaseURL), "/")
	if cfg.NewsAPIBaseURL == "" {
		return fmt.Errorf("newsapi_base_url is required")
	}
	if cfg.NewsAPITimeoutSeconds <= 0 {
		return fmt.Errorf("invalid newsapi_timeout_seconds (must be positive seconds)")
	}
	cfg.NewsAPITimeout = time.Duration(cfg.NewsAPITimeoutSeconds) * time.Second

	for _, d := range []struct {
		name string
		secs int64
		dst  *time.Duration
	}{
		{"http_timeout_seconds", cfg.HTTPTimeoutSeconds, &cfg.HTTPTimeout},
		{"range_wait_seconds", cfg.RangeWaitSeconds, &cfg.RangeWait},
		{"preview_timeout_seconds", cfg.PreviewTimeoutSecs, &cfg.PreviewTimeout},
		{"shutdown_timeout_seconds", cfg.ShutdownTimeoutSecs, &cfg.ShutdownTimeout},
	} {
		if d.secs <= 0 {
			return fmt.Errorf("invalid %s (must be positive seconds)", d.name)
		}
		*d.dst = time.Duration(d.secs) * time.Second
	}

	if cfg.PageSize <= 0 {
		return fmt.Errorf("invalid page_size (must be positive)")
	}

	cfg.PagingStrategy = strings.ToLower(strings.TrimSpace(cfg.PagingStrategy))
	switch cfg.PagingStrategy {
	case StrategyPage, StrategyRange:
	default:
		return fmt.Errorf("unsupported paging_strategy %q", cfg.PagingStrategy)
	}

	if cfg.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	cfg.PublishersFile = strings.TrimSpace(cfg.PublishersFile)
	return nil
}
