package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName               string        `mapstructure:"app_name"`
	Env                   string        `mapstructure:"app_env"`
	LogLevel              string        `mapstructure:"log_level"`
	EndpointsFile         string        `mapstructure:"endpoints_file"`
	PublishersFile        string        `mapstructure:"publishers_file"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`
	UserAgent             string        `mapstructure:"user_agent"`

	ArchiveType            string        `mapstructure:"archive_type"`
	ArchivePath            string        `mapstructure:"archive_path"`
	ArchiveTTLSeconds      int64         `mapstructure:"archive_ttl_seconds"`
	ArchiveCleanupSeconds  int64         `mapstructure:"archive_cleanup_interval_seconds"`
	ArchiveTTL             time.Duration `mapstructure:"-"`
	ArchiveCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "go-wms")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("endpoints_file", "./configs/endpoints.yaml")
	v.SetDefault("publishers_file", "")
	v.SetDefault("request_timeout_seconds", 0) // 0 disables the timeout
	v.SetDefault("user_agent", "")
	v.SetDefault("archive_type", "bbolt")
	v.SetDefault("archive_path", "./data/wms.db")
	v.SetDefault("archive_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("archive_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.RequestTimeoutSeconds < 0 {
		return nil, fmt.Errorf("invalid request_timeout_seconds (must be zero or positive seconds)")
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	if cfg.ArchiveTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid archive_ttl_seconds (must be positive seconds)")
	}
	if cfg.ArchiveCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid archive_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.ArchiveTTL = time.Duration(cfg.ArchiveTTLSeconds) * time.Second
	cfg.ArchiveCleanupInterval = time.Duration(cfg.ArchiveCleanupSeconds) * time.Second

	return &cfg, nil
}
