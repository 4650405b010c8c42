package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"

	"go.uber.org/zap"
)

// HourBucket floors a timestamp to the start of its snapshot window
func (l *Ledger) HourBucket(timestamp int64) int64 {
	return (timestamp / l.snapshotBucket) * l.snapshotBucket
}

// SnapshotId builds the (balance, bucket) key
func SnapshotId(balanceId string, hour int64) string {
	return balanceId + "-" + strconv.FormatInt(hour, 10)
}

// UpdateSnapshot upserts the snapshot for the event's bucket with the balance's
// committed state. Later events in the same bucket overwrite earlier ones.
func (l *Ledger) UpdateSnapshot(ctx context.Context, tx store.Tx, balance *models.Balance, meta models.EventMeta) (*models.Snapshot, error) {
	hour := l.HourBucket(meta.BlockTimestamp)
	id := SnapshotId(balance.Id, hour)

	snapshot, err := tx.GetSnapshot(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		snapshot = &models.Snapshot{Id: id, BalanceId: balance.Id, Hour: hour}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", id, err)
	}

	snapshot.TotalSupplied = balance.TotalSupplied
	snapshot.TotalBorrowed = balance.TotalBorrowed
	snapshot.AccruedInterest = balance.AccruedInterest
	snapshot.NetSupplied = balance.NetSupplied
	snapshot.Timestamp = balance.Timestamp
	snapshot.BlockNumber = meta.BlockNumber

	if err := tx.SaveSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to save snapshot %s: %w", id, err)
	}

	zap.L().Debug("Snapshot updated",
		zap.String("snapshot_id", id),
		zap.Int64("hour", hour),
		zap.Uint64("block_number", meta.BlockNumber))
	return snapshot, nil
}
