// Package config provides the configuration for the sync engine.
// Configuration is constructed once at the process boundary and passed
// down; core packages never read ambient process state directly.
package config

import (
	"fmt"
	"time"
)

// Config is the top-level configuration for one sync deployment.
type Config struct {
	Notion   NotionConfig   `yaml:"notion" json:"notion"`
	Postgres PostgresConfig `yaml:"postgres" json:"postgres"`
	Sync     SyncConfig     `yaml:"sync" json:"sync"`
	Log      LogConfig      `yaml:"log" json:"log"`
	Server   ServerConfig   `yaml:"server" json:"server"`
}

// NotionConfig holds source API settings.
type NotionConfig struct {
	// APIKey is the Notion integration token (required)
	APIKey string `yaml:"api_key" json:"api_key"`
	// DatabaseID identifies the database to mirror (required)
	DatabaseID string `yaml:"database_id" json:"database_id"`
	// BaseURL overrides the API endpoint, mainly for tests
	BaseURL string `yaml:"base_url" json:"base_url"`
	// Version is the Notion-Version header value
	Version string `yaml:"version" json:"version"`
	// PageSize controls records fetched per page
	PageSize int `yaml:"page_size" json:"page_size"`
	// PageDelay is the pause between page requests to respect rate limits
	PageDelay time.Duration `yaml:"page_delay" json:"page_delay"`
	// RequestTimeout bounds a single API call
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// PostgresConfig holds destination settings.
type PostgresConfig struct {
	// ConnectionString is the destination DSN (required)
	ConnectionString string `yaml:"connection_string" json:"connection_string"`
	// Table is the mirror table name
	Table string `yaml:"table" json:"table"`
	// CheckpointTable stores per-database sync checkpoints
	CheckpointTable string `yaml:"checkpoint_table" json:"checkpoint_table"`
	// MaxConns caps the connection pool size
	MaxConns int `yaml:"max_conns" json:"max_conns"`
}

// SyncConfig holds engine behavior settings.
type SyncConfig struct {
	// RetryAttempts sets maximum attempts for retried operations
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts"`
	// RetryDelay is the initial backoff delay
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `yaml:"level" json:"level"`
	Encoding    string `yaml:"encoding" json:"encoding"`
	Development bool   `yaml:"development" json:"development"`
}

// ServerConfig holds the HTTP shell settings.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Default returns a Config with production-ready defaults. Credentials and
// identifiers have no defaults and must be supplied.
func Default() *Config {
	return &Config{
		Notion: NotionConfig{
			BaseURL:        "https://api.notion.com/v1",
			Version:        "2022-06-28",
			PageSize:       100,
			PageDelay:      350 * time.Millisecond,
			RequestTimeout: 30 * time.Second,
		},
		Postgres: PostgresConfig{
			Table:           "notion_pages",
			CheckpointTable: "sync_checkpoints",
			MaxConns:        5,
		},
		Sync: SyncConfig{
			RetryAttempts: 3,
			RetryDelay:    time.Second,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Validate checks required fields and value ranges. Missing credentials or
// identifiers fail fast, before any network call.
func (c *Config) Validate() error {
	if c.Notion.APIKey == "" {
		return fmt.Errorf("notion.api_key is required")
	}
	if c.Notion.DatabaseID == "" {
		return fmt.Errorf("notion.database_id is required")
	}
	if c.Postgres.ConnectionString == "" {
		return fmt.Errorf("postgres.connection_string is required")
	}
	if c.Postgres.Table == "" {
		return fmt.Errorf("postgres.table is required")
	}
	if c.Notion.PageSize <= 0 || c.Notion.PageSize > 100 {
		return fmt.Errorf("notion.page_size must be between 1 and 100")
	}
	if c.Sync.RetryAttempts <= 0 {
		return fmt.Errorf("sync.retry_attempts must be positive")
	}
	return nil
}
