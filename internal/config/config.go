// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Scrape ScrapeConfig `yaml:"scrape" mapstructure:"scrape"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Assets AssetsConfig `yaml:"assets" mapstructure:"assets"`
	ERP    ERPConfig    `yaml:"erp" mapstructure:"erp"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the queue database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// ScrapeConfig configures storefront discovery and extraction.
type ScrapeConfig struct {
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	ListingURL   string `yaml:"listing_url" mapstructure:"listing_url"`
	MappingsPath string `yaml:"mappings_path" mapstructure:"mappings_path"`
}

// FetchConfig configures the HTTP fetcher and its retry policy.
type FetchConfig struct {
	UserAgent      string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts    int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffSecs    float64 `yaml:"backoff_secs" mapstructure:"backoff_secs"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// AssetsConfig configures local image storage.
type AssetsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ERPConfig holds merchandise management API credentials and endpoints.
type ERPConfig struct {
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	TokenURL     string `yaml:"token_url" mapstructure:"token_url"`
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
	Scope        string `yaml:"scope" mapstructure:"scope"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ServerConfig configures the review API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CATALOGSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "catalog-sync.db")
	v.SetDefault("scrape.base_url", "https://flowzz.com")
	v.SetDefault("scrape.listing_url", "https://flowzz.com/product")
	v.SetDefault("scrape.mappings_path", "mappings.yaml")
	v.SetDefault("fetch.user_agent", "catalog-sync/1.0")
	v.SetDefault("fetch.timeout_secs", 45)
	v.SetDefault("fetch.max_attempts", 5)
	v.SetDefault("fetch.backoff_secs", 1.2)
	v.SetDefault("fetch.requests_per_sec", 2)
	v.SetDefault("assets.dir", "images")
	v.SetDefault("erp.timeout_secs", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the fields required for a command mode are present.
// Mode is the command name: "scrape", "serve" or "queue".
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required for the postgres driver")
	}
	if c.Store.Driver == "sqlite" && c.Store.SQLitePath == "" {
		problems = append(problems, "store.sqlite_path is required for the sqlite driver")
	}

	switch mode {
	case "scrape":
		if c.Scrape.ListingURL == "" {
			problems = append(problems, "scrape.listing_url is required")
		}
		if c.ERP.BaseURL == "" {
			problems = append(problems, "erp.base_url is required")
		}
		if c.ERP.TokenURL == "" {
			problems = append(problems, "erp.token_url is required")
		}
		if c.ERP.ClientID == "" || c.ERP.ClientSecret == "" {
			problems = append(problems, "erp.client_id and erp.client_secret are required")
		}
		if c.Fetch.MaxAttempts < 1 {
			problems = append(problems, "fetch.max_attempts must be >= 1")
		}
		if c.Fetch.RequestsPerSec <= 0 {
			problems = append(problems, "fetch.requests_per_sec must be > 0")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "queue":
		// Store checks above are sufficient.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
