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

package database

import (
	"context"
	"database/sql"
	"fmt"

	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.Store.
var _ store.Store = (*Service)(nil)

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := NewServiceFromDB(db)
	if err := service.InitSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

// NewServiceFromDB wraps an already opened handle without touching the schema
func NewServiceFromDB(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

// InitSchema creates every ledger table and index if missing
func (s *Service) InitSchema(ctx context.Context) error {
	schema := `
	-- Tracked reserves; borrowers is a JSON array of user ids
	CREATE TABLE IF NOT EXISTS tokens (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		name TEXT NOT NULL,
		decimals INTEGER NOT NULL,
		borrowers TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Balances (Current State - Hot Data); amounts are integer strings
	CREATE TABLE IF NOT EXISTS balances (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		token_id TEXT NOT NULL REFERENCES tokens(id),
		total_supplied TEXT NOT NULL DEFAULT '0',
		total_borrowed TEXT NOT NULL DEFAULT '0',
		accrued_interest TEXT NOT NULL DEFAULT '0',
		pending_supplied TEXT NOT NULL DEFAULT '0',
		pending_withdrawn TEXT NOT NULL DEFAULT '0',
		pending_repaid TEXT NOT NULL DEFAULT '0',
		net_supplied TEXT NOT NULL DEFAULT '0',
		liquidity_index TEXT NOT NULL DEFAULT '0',
		timestamp INTEGER NOT NULL DEFAULT 0,
		block_number INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, token_id)
	);

	CREATE INDEX IF NOT EXISTS idx_balances_user_id ON balances(user_id);

	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		balance_id TEXT NOT NULL REFERENCES balances(id),
		amount TEXT NOT NULL,
		borrow_rate TEXT NOT NULL,
		borrow_type INTEGER NOT NULL,
		accrued_interest TEXT NOT NULL DEFAULT '0',
		is_liquidated BOOLEAN NOT NULL DEFAULT 0,
		timestamp INTEGER NOT NULL,
		block_number INTEGER NOT NULL,
		accrued_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_loans_balance_id ON loans(balance_id);

	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		balance_id TEXT NOT NULL REFERENCES balances(id),
		hour INTEGER NOT NULL,
		total_supplied TEXT NOT NULL,
		total_borrowed TEXT NOT NULL,
		accrued_interest TEXT NOT NULL,
		net_supplied TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		block_number INTEGER NOT NULL,
		UNIQUE(balance_id, hour)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_balance_hour ON snapshots(balance_id, hour);

	CREATE TABLE IF NOT EXISTS reserve_cursors (
		token_id TEXT PRIMARY KEY REFERENCES tokens(id),
		sequence INTEGER NOT NULL DEFAULT 0,
		last_block INTEGER NOT NULL DEFAULT 0,
		last_log_index INTEGER NOT NULL DEFAULT 0,
		last_reconciled_block INTEGER NOT NULL DEFAULT 0
	);

	-- Processed events (Audit Trail - Cold Data)
	CREATE TABLE IF NOT EXISTS processed_events (
		id TEXT PRIMARY KEY,
		event_key TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		block_number INTEGER NOT NULL,
		tx_hash TEXT NOT NULL,
		log_index INTEGER NOT NULL,
		processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_processed_events_block ON processed_events(block_number);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// WithTx runs fn inside a database transaction, committing only when fn succeeds
func (s *Service) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Tx is the SQLite unit of work handed to store callbacks
type Tx struct {
	tx *sql.Tx
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		zap.L().Warn("Failed to close rows", zap.Error(err))
	}
}
