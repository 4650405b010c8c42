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

package api

import (
	"context"
	"fmt"

	"aave-ledger-go/internal/ledger"
	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"

	"go.uber.org/zap"
)

// GetUserBalances returns every reserve position held by a user
func (s *LedgerService) GetUserBalances(ctx context.Context, user string) ([]models.UserBalance, error) {
	userId, err := canonicalId("user", user)
	if err != nil {
		return nil, err
	}

	var result []models.UserBalance
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		balances, err := tx.ListBalancesByUser(ctx, userId)
		if err != nil {
			return err
		}

		result = make([]models.UserBalance, 0, len(balances))
		for i := range balances {
			view, err := balanceView(ctx, tx, &balances[i])
			if err != nil {
				return err
			}
			result = append(result, view)
		}
		return nil
	})
	if err != nil {
		zap.L().Error("Failed to get user balances", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve balances: %w", err)
	}

	return result, nil
}

// GetBalance returns a single (user, token) position
func (s *LedgerService) GetBalance(ctx context.Context, user, token string) (*models.UserBalance, error) {
	balanceId, err := balanceKey(user, token)
	if err != nil {
		return nil, err
	}

	var result models.UserBalance
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		balance, err := tx.GetBalance(ctx, balanceId)
		if err != nil {
			return err
		}
		result, err = balanceView(ctx, tx, balance)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve balance %s: %w", balanceId, err)
	}
	return &result, nil
}

// GetLoans returns the open loans of a (user, token) position in id order
func (s *LedgerService) GetLoans(ctx context.Context, user, token string) ([]models.Loan, error) {
	balanceId, err := balanceKey(user, token)
	if err != nil {
		return nil, err
	}

	var loans []models.Loan
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		loans, err = tx.ListLoansByBalance(ctx, balanceId)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve loans for %s: %w", balanceId, err)
	}
	return loans, nil
}

// GetSnapshotSeries returns the hourly snapshots within [fromHour, toHour], oldest first
func (s *LedgerService) GetSnapshotSeries(ctx context.Context, user, token string, fromHour, toHour int64) ([]models.Snapshot, error) {
	if fromHour > toHour {
		return nil, fmt.Errorf("invalid snapshot range: %d > %d", fromHour, toHour)
	}

	balanceId, err := balanceKey(user, token)
	if err != nil {
		return nil, err
	}

	var snapshots []models.Snapshot
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		snapshots, err = tx.ListSnapshotsByBalance(ctx, balanceId, fromHour, toHour)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve snapshots for %s: %w", balanceId, err)
	}
	return snapshots, nil
}

// CheckInvariant recomputes net supply from the stored totals
func (s *LedgerService) CheckInvariant(balance *models.Balance) models.InvariantReport {
	expected := balance.TotalSupplied.Sub(balance.TotalBorrowed.Add(balance.AccruedInterest))
	report := models.InvariantReport{
		BalanceId: balance.Id,
		Stored:    balance.NetSupplied,
		Expected:  expected,
		Ok:        balance.NetSupplied.Equal(expected),
	}
	if !report.Ok {
		zap.L().Warn("Net supply invariant violated",
			zap.String("balance_id", balance.Id),
			zap.String("stored", report.Stored.String()),
			zap.String("expected", report.Expected.String()))
	}
	return report
}

// CheckAllInvariants verifies every stored balance
func (s *LedgerService) CheckAllInvariants(ctx context.Context) ([]models.InvariantReport, error) {
	var reports []models.InvariantReport
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		users, err := tx.ListUsers(ctx)
		if err != nil {
			return err
		}
		for _, user := range users {
			balances, err := tx.ListBalancesByUser(ctx, user.Id)
			if err != nil {
				return err
			}
			for i := range balances {
				reports = append(reports, s.CheckInvariant(&balances[i]))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check invariants: %w", err)
	}
	return reports, nil
}

func balanceKey(user, token string) (string, error) {
	userId, err := canonicalId("user", user)
	if err != nil {
		return "", err
	}
	tokenId, err := canonicalId("token", token)
	if err != nil {
		return "", err
	}
	return ledger.BalanceId(userId, tokenId), nil
}

func balanceView(ctx context.Context, tx store.Tx, balance *models.Balance) (models.UserBalance, error) {
	view := models.UserBalance{
		BalanceId:       balance.Id,
		TokenId:         balance.TokenId,
		TotalSupplied:   balance.TotalSupplied,
		TotalBorrowed:   balance.TotalBorrowed,
		AccruedInterest: balance.AccruedInterest,
		NetSupplied:     balance.NetSupplied,
		LiquidityIndex:  balance.LiquidityIndex,
		BlockNumber:     balance.BlockNumber,
		Timestamp:       balance.Timestamp,
	}

	token, err := tx.GetToken(ctx, balance.TokenId)
	if err != nil {
		return view, fmt.Errorf("failed to load token %s: %w", balance.TokenId, err)
	}
	view.Symbol = token.Symbol

	loans, err := tx.ListLoansByBalance(ctx, balance.Id)
	if err != nil {
		return view, fmt.Errorf("failed to load loans for %s: %w", balance.Id, err)
	}
	view.Loans = len(loans)
	return view, nil
}
