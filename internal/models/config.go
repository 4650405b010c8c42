package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Ledger   LedgerConfig
	Listener ListenerConfig
	Dedupe   DedupeConfig
	Metrics  MetricsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// TrackedAsset is one reserve the ledger follows, plus its yield-bearing aToken
type TrackedAsset struct {
	Address  string `yaml:"address" validate:"required,eth_addr"`
	AToken   string `yaml:"a_token" validate:"required,eth_addr"`
	Symbol   string `yaml:"symbol" validate:"required"`
	Name     string `yaml:"name" validate:"required"`
	Decimals int    `yaml:"decimals" validate:"gte=0,lte=36"`
}

// LedgerConfig holds the accounting constants and the tracked reserve set
type LedgerConfig struct {
	Assets         []TrackedAsset
	Ray            decimal.Decimal
	SecondsInYear  int64
	SnapshotBucket int64 // seconds
	NullAddress    string
	DedupeEvents   bool
}

// ListenerConfig holds ingestion loop settings
type ListenerConfig struct {
	AssetsFile string
	FeedPath   string
}

// DedupeConfig selects the fast-path processed event tracker
type DedupeConfig struct {
	Backend         string // memory | redis
	RedisAddr       string
	RedisPassword   string
	RedisDb         int
	Ttl             time.Duration
	CleanupInterval time.Duration
}

// MetricsConfig holds where ingestion metrics are written
type MetricsConfig struct {
	TextfilePath string
}
