package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:newspulse.db?cache=shared&mode=rwc&_txlock=immediate,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	News NewsConfig `yaml:"news" json:"news" jsonschema:"description=Headline source configuration"`

	Search struct {
		Debounce time.Duration `yaml:"debounce" json:"debounce" jsonschema:"default=500ms,description=Quiet period coalescing search input"`
	} `yaml:"search" json:"search" jsonschema:"description=Search configuration"`
}

// NewsConfig holds headline source settings
type NewsConfig struct {
	Source   string              `yaml:"source" json:"source" jsonschema:"default=api,enum=api,enum=rss,description=Headline source kind"`
	Endpoint string              `yaml:"endpoint" json:"endpoint" jsonschema:"default=https://newsdata.io/api/1,description=News API base URL"`
	APIKey   string              `yaml:"api_key" json:"api_key" jsonschema:"description=News API key (can use environment variable)"`
	Country  string              `yaml:"country" json:"country" jsonschema:"default=us,description=Default country code"`
	Category string              `yaml:"category" json:"category" jsonschema:"default=general,description=Default category"`
	Timeout  time.Duration       `yaml:"timeout" json:"timeout" jsonschema:"default=10s,description=Fetch timeout"`
	Feeds    map[string][]string `yaml:"feeds" json:"feeds,omitempty" jsonschema:"description=RSS feed URLs per category (rss source only)"`
	Workers  int                 `yaml:"workers" json:"workers" jsonschema:"default=5,description=Maximum concurrent feed fetches (rss source only)"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// set defaults for server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// set defaults for database
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:newspulse.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 3600
	}

	// set defaults for the news source
	if cfg.News.Source == "" {
		cfg.News.Source = "api"
	}
	if cfg.News.Endpoint == "" {
		cfg.News.Endpoint = "https://newsdata.io/api/1"
	}
	if cfg.News.Country == "" {
		cfg.News.Country = "us"
	}
	if cfg.News.Category == "" {
		cfg.News.Category = "general"
	}
	if cfg.News.Timeout == 0 {
		cfg.News.Timeout = 10 * time.Second
	}
	if cfg.News.Workers == 0 {
		cfg.News.Workers = 5
	}

	// set defaults for search
	if cfg.Search.Debounce == 0 {
		cfg.Search.Debounce = 500 * time.Millisecond
	}

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	switch cfg.News.Source {
	case "api":
		if cfg.News.APIKey == "" {
			return fmt.Errorf("news.api_key is required for the api source")
		}
	case "rss":
		if len(cfg.News.Feeds) == 0 {
			return fmt.Errorf("news.feeds is required for the rss source")
		}
	default:
		return fmt.Errorf("news.source must be api or rss, got %q", cfg.News.Source)
	}

	if cfg.News.Timeout < time.Second {
		return fmt.Errorf("news timeout must be at least 1 second")
	}

	// validate server config
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetNewsConfig returns headline source configuration
func (c *Config) GetNewsConfig() NewsConfig {
	return c.News
}

// GetFullConfig returns the full configuration
func (c *Config) GetFullConfig() *Config {
	return c
}
