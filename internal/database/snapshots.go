package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"
)

func scanSnapshot(row rowScanner) (*models.Snapshot, error) {
	var s models.Snapshot
	err := row.Scan(&s.Id, &s.BalanceId, &s.Hour, &s.TotalSupplied, &s.TotalBorrowed,
		&s.AccruedInterest, &s.NetSupplied, &s.Timestamp, &s.BlockNumber)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (t *Tx) GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	snapshot, err := scanSnapshot(t.tx.QueryRowContext(ctx, queryGetSnapshot, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: snapshot %s", store.ErrNotFound, id)
		}
		return nil, fmt.Errorf("unable to query snapshot: %w", err)
	}
	return snapshot, nil
}

func (t *Tx) SaveSnapshot(ctx context.Context, s *models.Snapshot) error {
	_, err := t.tx.ExecContext(ctx, queryUpsertSnapshot,
		s.Id, s.BalanceId, s.Hour, s.TotalSupplied.String(), s.TotalBorrowed.String(),
		s.AccruedInterest.String(), s.NetSupplied.String(), s.Timestamp, s.BlockNumber)
	if err != nil {
		return fmt.Errorf("unable to upsert snapshot: %w", err)
	}
	return nil
}

func (t *Tx) ListSnapshotsByBalance(ctx context.Context, balanceId string, fromHour, toHour int64) ([]models.Snapshot, error) {
	rows, err := t.tx.QueryContext(ctx, queryListSnapshotsByBalance, balanceId, fromHour, toHour)
	if err != nil {
		return nil, fmt.Errorf("unable to query snapshots: %w", err)
	}
	defer closeRows(rows)

	snapshots := []models.Snapshot{}
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan snapshot row: %w", err)
		}
		snapshots = append(snapshots, *snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}
	return snapshots, nil
}
