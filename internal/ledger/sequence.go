package ledger

import (
	"context"
	"errors"
	"fmt"

	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"

	"go.uber.org/zap"
)

// CheckOrder loads the reserve cursor and rejects an event positioned before
// the last accepted event of that reserve.
func (l *Ledger) CheckOrder(ctx context.Context, tx store.Tx, tokenId string, meta models.EventMeta) (*models.ReserveCursor, error) {
	cursor, err := tx.GetCursor(ctx, tokenId)
	if errors.Is(err, store.ErrNotFound) {
		return &models.ReserveCursor{TokenId: tokenId}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cursor for %s: %w", tokenId, err)
	}

	if cursor.Sequence > 0 && cursor.Before(meta.BlockNumber, meta.LogIndex) {
		zap.L().Warn("Rejecting out-of-order event",
			zap.String("token", tokenId),
			zap.Uint64("block_number", meta.BlockNumber),
			zap.Uint("log_index", meta.LogIndex),
			zap.Uint64("cursor_block", cursor.LastBlock),
			zap.Uint("cursor_log_index", cursor.LastLogIndex),
			zap.String("tx_hash", models.HashId(meta.TxHash)))
		return nil, fmt.Errorf("%w: %s at block %d log %d precedes block %d log %d",
			ErrOutOfOrder, tokenId, meta.BlockNumber, meta.LogIndex, cursor.LastBlock, cursor.LastLogIndex)
	}
	return cursor, nil
}

// AdvanceCursor records the event as the latest accepted position for the reserve
func (l *Ledger) AdvanceCursor(ctx context.Context, tx store.Tx, cursor *models.ReserveCursor, meta models.EventMeta, reconciled bool) error {
	cursor.Sequence++
	cursor.LastBlock = meta.BlockNumber
	cursor.LastLogIndex = meta.LogIndex
	if reconciled {
		cursor.LastReconciledBlock = meta.BlockNumber
	}
	if err := tx.SaveCursor(ctx, cursor); err != nil {
		return fmt.Errorf("failed to save cursor for %s: %w", cursor.TokenId, err)
	}
	return nil
}
