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
	"errors"
	"fmt"

	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"

	"go.uber.org/zap"
)

// Amount columns are TEXT so integer amounts keep full precision;
// decimal.Decimal scans them directly.

func scanBalance(row rowScanner) (*models.Balance, error) {
	var b models.Balance
	err := row.Scan(&b.Id, &b.UserId, &b.TokenId,
		&b.TotalSupplied, &b.TotalBorrowed, &b.AccruedInterest,
		&b.PendingSupplied, &b.PendingWithdrawn, &b.PendingRepaid,
		&b.NetSupplied, &b.LiquidityIndex, &b.Timestamp, &b.BlockNumber)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (t *Tx) GetBalance(ctx context.Context, id string) (*models.Balance, error) {
	balance, err := scanBalance(t.tx.QueryRowContext(ctx, queryGetBalance, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: balance %s", store.ErrNotFound, id)
		}
		return nil, fmt.Errorf("unable to query balance: %w", err)
	}
	return balance, nil
}

func (t *Tx) SaveBalance(ctx context.Context, b *models.Balance) error {
	_, err := t.tx.ExecContext(ctx, queryUpsertBalance,
		b.Id, b.UserId, b.TokenId,
		b.TotalSupplied.String(), b.TotalBorrowed.String(), b.AccruedInterest.String(),
		b.PendingSupplied.String(), b.PendingWithdrawn.String(), b.PendingRepaid.String(),
		b.NetSupplied.String(), b.LiquidityIndex.String(), b.Timestamp, b.BlockNumber)
	if err != nil {
		zap.L().Error("Failed to upsert balance", zap.String("balance_id", b.Id), zap.Error(err))
		return fmt.Errorf("unable to upsert balance: %w", err)
	}
	return nil
}

func (t *Tx) ListBalancesByUser(ctx context.Context, userId string) ([]models.Balance, error) {
	rows, err := t.tx.QueryContext(ctx, queryListBalancesByUser, userId)
	if err != nil {
		zap.L().Error("Failed to query balances", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query balances: %w", err)
	}
	defer closeRows(rows)

	balances := []models.Balance{}
	for rows.Next() {
		balance, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan balance row: %w", err)
		}
		balances = append(balances, *balance)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}
	return balances, nil
}
