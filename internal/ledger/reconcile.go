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

package ledger

import (
	"context"
	"fmt"

	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RateUpdate is the reserve state carried by a reserve data update
type RateUpdate struct {
	LiquidityIndex     decimal.Decimal
	StableBorrowRate   decimal.Decimal
	VariableBorrowRate decimal.Decimal
}

// ReconcileResult summarises one reconciliation of a balance
type ReconcileResult struct {
	Loans           int
	InterestAccrued decimal.Decimal
	Repayment       *RepaymentResult
	Snapshot        *models.Snapshot
}

// Reconcile folds pending deltas and elapsed interest into the balance's
// committed totals, then persists the balance, its loans and a snapshot.
func (l *Ledger) Reconcile(ctx context.Context, tx store.Tx, balance *models.Balance, update RateUpdate, meta models.EventMeta) (*ReconcileResult, error) {
	result := &ReconcileResult{InterestAccrued: decimal.Zero}

	// Rebase supplied principal onto the new liquidity index
	if balance.LiquidityIndex.IsPositive() && update.LiquidityIndex.IsPositive() {
		balance.TotalSupplied = mulDiv(balance.TotalSupplied, update.LiquidityIndex, balance.LiquidityIndex)
	}

	// Commit pending supply or withdraw
	if balance.PendingSupplied.IsPositive() || balance.PendingWithdrawn.IsPositive() {
		if balance.PendingSupplied.IsPositive() {
			if balance.PendingWithdrawn.IsPositive() {
				zap.L().Warn("Both supply and withdraw pending, applying supply only",
					zap.String("balance_id", balance.Id),
					zap.String("pending_supplied", balance.PendingSupplied.String()),
					zap.String("pending_withdrawn", balance.PendingWithdrawn.String()))
			}
			balance.TotalSupplied = balance.TotalSupplied.Add(balance.PendingSupplied)
		} else {
			balance.TotalSupplied = balance.TotalSupplied.Sub(balance.PendingWithdrawn)
		}
		balance.PendingSupplied = decimal.Zero
		balance.PendingWithdrawn = decimal.Zero
	}

	// Accrue every loan and move it onto the fresh rate
	loans, err := tx.ListLoansByBalance(ctx, balance.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans for %s: %w", balance.Id, err)
	}
	result.Loans = len(loans)

	totalInterest := decimal.Zero
	totalBorrowed := decimal.Zero
	for i := range loans {
		loan := &loans[i]
		result.InterestAccrued = result.InterestAccrued.Add(l.AccrueInterest(loan, meta.BlockTimestamp))
		Reprice(loan, update.StableBorrowRate, update.VariableBorrowRate)

		totalInterest = totalInterest.Add(loan.AccruedInterest)
		totalBorrowed = totalBorrowed.Add(loan.Amount)
	}

	balance.TotalBorrowed = totalBorrowed
	balance.AccruedInterest = totalInterest

	// Spread the pending repayment across the loans
	if balance.PendingRepaid.IsPositive() {
		repayment := AllocateRepayment(loans, balance.PendingRepaid, totalInterest, totalBorrowed)
		balance.AccruedInterest = totalInterest.Sub(repayment.InterestRetired)
		balance.TotalBorrowed = totalBorrowed.Sub(repayment.PrincipalRetired)
		balance.PendingRepaid = decimal.Zero
		result.Repayment = &repayment

		if repayment.Overpaid.IsPositive() {
			zap.L().Warn("Repayment exceeds outstanding debt",
				zap.String("balance_id", balance.Id),
				zap.String("overpaid", repayment.Overpaid.String()),
				zap.String("tx_hash", models.HashId(meta.TxHash)))
		}
	}

	balance.RecomputeNet()
	balance.LiquidityIndex = update.LiquidityIndex
	Touch(balance, meta)

	for i := range loans {
		if err := tx.SaveLoan(ctx, &loans[i]); err != nil {
			return nil, fmt.Errorf("failed to save loan %s: %w", loans[i].Id, err)
		}
	}
	if err := tx.SaveBalance(ctx, balance); err != nil {
		return nil, fmt.Errorf("failed to save balance %s: %w", balance.Id, err)
	}

	snapshot, err := l.UpdateSnapshot(ctx, tx, balance, meta)
	if err != nil {
		return nil, err
	}
	result.Snapshot = snapshot

	fields := []zap.Field{
		zap.String("balance_id", balance.Id),
		zap.Int("loans", result.Loans),
		zap.String("interest_accrued", result.InterestAccrued.String()),
		zap.String("total_supplied", balance.TotalSupplied.String()),
		zap.String("total_borrowed", balance.TotalBorrowed.String()),
		zap.String("accrued_interest", balance.AccruedInterest.String()),
		zap.String("net_supplied", balance.NetSupplied.String()),
		zap.Uint64("block_number", meta.BlockNumber),
	}
	if result.Repayment != nil {
		fields = append(fields, zap.String("repayment_branch", result.Repayment.Branch))
	}
	zap.L().Info("Balance reconciled", fields...)

	return result, nil
}
