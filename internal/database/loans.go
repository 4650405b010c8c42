package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"
)

func scanLoan(row rowScanner) (*models.Loan, error) {
	var l models.Loan
	err := row.Scan(&l.Id, &l.BalanceId, &l.Amount, &l.BorrowRate, &l.BorrowType,
		&l.AccruedInterest, &l.IsLiquidated, &l.Timestamp, &l.BlockNumber, &l.AccruedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (t *Tx) GetLoan(ctx context.Context, id string) (*models.Loan, error) {
	loan, err := scanLoan(t.tx.QueryRowContext(ctx, queryGetLoan, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: loan %s", store.ErrNotFound, id)
		}
		return nil, fmt.Errorf("unable to query loan: %w", err)
	}
	return loan, nil
}

func (t *Tx) SaveLoan(ctx context.Context, l *models.Loan) error {
	_, err := t.tx.ExecContext(ctx, queryUpsertLoan,
		l.Id, l.BalanceId, l.Amount.String(), l.BorrowRate.String(), l.BorrowType,
		l.AccruedInterest.String(), l.IsLiquidated, l.Timestamp, l.BlockNumber, l.AccruedAt)
	if err != nil {
		return fmt.Errorf("unable to upsert loan: %w", err)
	}
	return nil
}

func (t *Tx) DeleteLoan(ctx context.Context, id string) error {
	if _, err := t.tx.ExecContext(ctx, queryDeleteLoan, id); err != nil {
		return fmt.Errorf("unable to delete loan: %w", err)
	}
	return nil
}

func (t *Tx) ListLoansByBalance(ctx context.Context, balanceId string) ([]models.Loan, error) {
	rows, err := t.tx.QueryContext(ctx, queryListLoansByBalance, balanceId)
	if err != nil {
		return nil, fmt.Errorf("unable to query loans: %w", err)
	}
	defer closeRows(rows)

	loans := []models.Loan{}
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan loan row: %w", err)
		}
		loans = append(loans, *loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating loan rows: %w", err)
	}
	return loans, nil
}
