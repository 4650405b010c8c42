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

// Package ledger holds the balance and interest accounting rules: the token
// registry, the user/balance ledger, the loan book, the snapshot recorder and
// the reconciliation engine run on reserve rate updates.
package ledger

import (
	"errors"
	"fmt"

	"aave-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors for ledger operations
var (
	ErrTokenNotBootstrapped = errors.New("token not bootstrapped")
	ErrOutOfOrder           = errors.New("event delivered out of order")
	ErrInvalidEvent         = errors.New("invalid event")
)

// Ledger applies accounting rules inside a caller-provided unit of work
type Ledger struct {
	ray            decimal.Decimal
	secondsInYear  decimal.Decimal
	snapshotBucket int64
}

func New(cfg models.LedgerConfig) (*Ledger, error) {
	if !cfg.Ray.IsPositive() {
		return nil, fmt.Errorf("ray must be positive, got %s", cfg.Ray.String())
	}
	if cfg.SecondsInYear <= 0 {
		return nil, fmt.Errorf("seconds in year must be positive, got %d", cfg.SecondsInYear)
	}
	if cfg.SnapshotBucket <= 0 {
		return nil, fmt.Errorf("snapshot bucket must be positive, got %d", cfg.SnapshotBucket)
	}

	return &Ledger{
		ray:            cfg.Ray,
		secondsInYear:  decimal.NewFromInt(cfg.SecondsInYear),
		snapshotBucket: cfg.SnapshotBucket,
	}, nil
}

// mulDiv returns a*b/c truncated toward zero. c must be non-zero.
func mulDiv(a, b, c decimal.Decimal) decimal.Decimal {
	q, _ := a.Mul(b).QuoRem(c, 0)
	return q
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
