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

func (t *Tx) GetCursor(ctx context.Context, tokenId string) (*models.ReserveCursor, error) {
	var c models.ReserveCursor
	err := t.tx.QueryRowContext(ctx, queryGetCursor, tokenId).Scan(
		&c.TokenId, &c.Sequence, &c.LastBlock, &c.LastLogIndex, &c.LastReconciledBlock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: cursor %s", store.ErrNotFound, tokenId)
		}
		return nil, fmt.Errorf("unable to query cursor: %w", err)
	}
	return &c, nil
}

func (t *Tx) SaveCursor(ctx context.Context, c *models.ReserveCursor) error {
	_, err := t.tx.ExecContext(ctx, queryUpsertCursor,
		c.TokenId, c.Sequence, c.LastBlock, c.LastLogIndex, c.LastReconciledBlock)
	if err != nil {
		return fmt.Errorf("unable to upsert cursor: %w", err)
	}
	return nil
}

// RecordEvent inserts the event into the processed journal. A key seen before
// leaves the journal untouched and returns store.ErrDuplicateEvent.
func (t *Tx) RecordEvent(ctx context.Context, record *models.EventRecord) error {
	result, err := t.tx.ExecContext(ctx, queryInsertProcessedEvent,
		record.Id, record.EventKey, record.Kind, record.BlockNumber,
		record.TxHash, record.LogIndex, record.ProcessedAt)
	if err != nil {
		return fmt.Errorf("unable to record event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		zap.L().Warn("Duplicate event detected, skipping",
			zap.String("event_key", record.EventKey),
			zap.Uint64("block_number", record.BlockNumber))
		return fmt.Errorf("%w: %s", store.ErrDuplicateEvent, record.EventKey)
	}
	return nil
}
