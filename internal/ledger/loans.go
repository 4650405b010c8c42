package ledger

import (
	"context"
	"errors"
	"fmt"

	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LoanId builds the (balance, originating transaction) key
func LoanId(balanceId string, meta models.EventMeta) string {
	return balanceId + "-" + models.HashId(meta.TxHash)
}

// CreateLoan opens a loan for a borrow event. A second delivery of the same
// borrow returns the existing loan and false.
func (l *Ledger) CreateLoan(ctx context.Context, tx store.Tx, balance *models.Balance, event *models.BorrowEvent) (*models.Loan, bool, error) {
	if event.InterestRateMode != models.BorrowTypeStable && event.InterestRateMode != models.BorrowTypeVariable {
		return nil, false, fmt.Errorf("%w: unknown interest rate mode %d", ErrInvalidEvent, event.InterestRateMode)
	}

	id := LoanId(balance.Id, event.EventMeta)
	loan, err := tx.GetLoan(ctx, id)
	if err == nil {
		zap.L().Warn("Loan already exists for borrow, skipping",
			zap.String("loan_id", id),
			zap.String("tx_hash", models.HashId(event.TxHash)))
		return loan, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to load loan %s: %w", id, err)
	}

	loan = &models.Loan{
		Id:              id,
		BalanceId:       balance.Id,
		Amount:          event.Amount,
		BorrowRate:      event.BorrowRate,
		BorrowType:      event.InterestRateMode,
		AccruedInterest: decimal.Zero,
		IsLiquidated:    false,
		Timestamp:       event.BlockTimestamp,
		BlockNumber:     event.BlockNumber,
		AccruedAt:       event.BlockTimestamp,
	}
	if err := tx.SaveLoan(ctx, loan); err != nil {
		return nil, false, fmt.Errorf("failed to save loan %s: %w", id, err)
	}

	zap.L().Info("Loan created",
		zap.String("loan_id", id),
		zap.String("balance_id", balance.Id),
		zap.String("amount", loan.Amount.String()),
		zap.String("borrow_rate", loan.BorrowRate.String()),
		zap.Int("borrow_type", loan.BorrowType))
	return loan, true, nil
}

// AccrueInterest adds simple interest for the time since the loan's last
// accrual and moves the accrual anchor to now. It returns the interest added.
//
//	interest = amount * rate * elapsed / (RAY * SECONDS_IN_YEAR)
func (l *Ledger) AccrueInterest(loan *models.Loan, now int64) decimal.Decimal {
	elapsed := now - loan.AccruedAt
	if elapsed <= 0 {
		return decimal.Zero
	}

	interest := mulDiv(
		loan.Amount.Mul(loan.BorrowRate),
		decimal.NewFromInt(elapsed),
		l.ray.Mul(l.secondsInYear),
	)
	loan.AccruedInterest = loan.AccruedInterest.Add(interest)
	loan.AccruedAt = now
	return interest
}

// Reprice moves the loan onto the reserve's current rate for its borrow type
func Reprice(loan *models.Loan, stableRate, variableRate decimal.Decimal) {
	switch loan.BorrowType {
	case models.BorrowTypeStable:
		loan.BorrowRate = stableRate
	case models.BorrowTypeVariable:
		loan.BorrowRate = variableRate
	}
}

// DeleteLoans removes every loan of a balance and returns how many were removed
func (l *Ledger) DeleteLoans(ctx context.Context, tx store.Tx, balance *models.Balance) (int, error) {
	loans, err := tx.ListLoansByBalance(ctx, balance.Id)
	if err != nil {
		return 0, fmt.Errorf("failed to list loans for %s: %w", balance.Id, err)
	}
	for _, loan := range loans {
		if err := tx.DeleteLoan(ctx, loan.Id); err != nil {
			return 0, fmt.Errorf("failed to delete loan %s: %w", loan.Id, err)
		}
	}
	return len(loans), nil
}
