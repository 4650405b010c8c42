/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"aave-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

const (
	DefaultRayDecimals    = 27
	DefaultSecondsInYear  = 31536000
	DefaultSnapshotBucket = time.Hour
	DefaultNullAddress    = "0x0000000000000000000000000000000000000000"
)

// Load reads the configuration from the environment and the tracked assets file
func Load() (*models.Config, error) {
	cfg, err := LoadWithoutAssets()
	if err != nil {
		return nil, err
	}

	assets, err := LoadAssetConfig(cfg.Listener.AssetsFile)
	if err != nil {
		return nil, err
	}
	cfg.Ledger.Assets = assets

	return cfg, nil
}

// LoadWithoutAssets reads every environment setting but leaves Ledger.Assets empty
func LoadWithoutAssets() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	snapshotBucket, err := getEnvDuration("LEDGER_SNAPSHOT_BUCKET", DefaultSnapshotBucket)
	if err != nil {
		return nil, err
	}
	if snapshotBucket < time.Second {
		return nil, fmt.Errorf("LEDGER_SNAPSHOT_BUCKET must be at least 1s, got %v", snapshotBucket)
	}

	dedupeTtl, err := getEnvDuration("DEDUPE_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	cleanupInterval, err := getEnvDuration("DEDUPE_CLEANUP_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	rayDecimals := getEnvInt("LEDGER_RAY_DECIMALS", DefaultRayDecimals)
	if rayDecimals <= 0 {
		return nil, fmt.Errorf("LEDGER_RAY_DECIMALS must be positive, got %d", rayDecimals)
	}

	secondsInYear := int64(getEnvInt("LEDGER_SECONDS_IN_YEAR", DefaultSecondsInYear))
	if secondsInYear <= 0 {
		return nil, fmt.Errorf("LEDGER_SECONDS_IN_YEAR must be positive, got %d", secondsInYear)
	}

	backend := strings.ToLower(getEnvString("DEDUPE_BACKEND", "memory"))
	if backend != "memory" && backend != "redis" {
		return nil, fmt.Errorf("invalid DEDUPE_BACKEND %q (want memory or redis)", backend)
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "ledger.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 1),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 1),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Ledger: models.LedgerConfig{
			Ray:            decimal.New(1, int32(rayDecimals)),
			SecondsInYear:  secondsInYear,
			SnapshotBucket: int64(snapshotBucket / time.Second),
			NullAddress:    strings.ToLower(getEnvString("LEDGER_NULL_ADDRESS", DefaultNullAddress)),
			DedupeEvents:   getEnvBool("LEDGER_DEDUPE_EVENTS", true),
		},
		Listener: models.ListenerConfig{
			AssetsFile: getEnvString("ASSETS_FILE", "assets.yaml"),
			FeedPath:   getEnvString("FEED_PATH", ""),
		},
		Dedupe: models.DedupeConfig{
			Backend:         backend,
			RedisAddr:       getEnvString("REDIS_ADDR", "localhost:6379"),
			RedisPassword:   getEnvString("REDIS_PASSWORD", ""),
			RedisDb:         getEnvInt("REDIS_DB", 0),
			Ttl:             dedupeTtl,
			CleanupInterval: cleanupInterval,
		},
		Metrics: models.MetricsConfig{
			TextfilePath: getEnvString("METRICS_TEXTFILE", ""),
		},
	}, nil
}

// DefaultLedgerConfig returns the ledger constants with no tracked assets
func DefaultLedgerConfig() models.LedgerConfig {
	return models.LedgerConfig{
		Ray:            decimal.New(1, DefaultRayDecimals),
		SecondsInYear:  DefaultSecondsInYear,
		SnapshotBucket: int64(DefaultSnapshotBucket / time.Second),
		NullAddress:    DefaultNullAddress,
		DedupeEvents:   true,
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
