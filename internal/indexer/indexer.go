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

// Package indexer dispatches decoded pool and aToken events to the ledger,
// one unit of work per event.
package indexer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"aave-ledger-go/internal/ledger"
	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Outcome reports what Handle did with an event
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeIgnored Outcome = "ignored"
)

type Indexer struct {
	store       store.Store
	ledger      *ledger.Ledger
	assets      map[string]models.TrackedAsset
	aTokens     map[string]models.TrackedAsset
	nullAddress string
	dedupe      bool
}

func New(s store.Store, l *ledger.Ledger, cfg models.LedgerConfig) *Indexer {
	idx := &Indexer{
		store:       s,
		ledger:      l,
		assets:      make(map[string]models.TrackedAsset, len(cfg.Assets)),
		aTokens:     make(map[string]models.TrackedAsset, len(cfg.Assets)),
		nullAddress: strings.ToLower(cfg.NullAddress),
		dedupe:      cfg.DedupeEvents,
	}
	for _, asset := range cfg.Assets {
		asset.Address = strings.ToLower(asset.Address)
		asset.AToken = strings.ToLower(asset.AToken)
		idx.assets[asset.Address] = asset
		if asset.AToken != "" {
			idx.aTokens[asset.AToken] = asset
		}
	}
	return idx
}

// Assets returns the tracked reserves
func (i *Indexer) Assets() []models.TrackedAsset {
	assets := make([]models.TrackedAsset, 0, len(i.assets))
	for _, asset := range i.assets {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(a, b int) bool { return assets[a].Address < assets[b].Address })
	return assets
}

// Bootstrap initializes a token record for every tracked reserve and
// returns how many were created.
func (i *Indexer) Bootstrap(ctx context.Context) (int, error) {
	created := 0
	err := i.store.WithTx(ctx, func(tx store.Tx) error {
		for _, asset := range i.assets {
			_, ok, err := i.ledger.InitializeToken(ctx, tx, asset)
			if err != nil {
				return err
			}
			if ok {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to bootstrap tokens: %w", err)
	}

	zap.L().Info("Tokens bootstrapped", zap.Int("tracked", len(i.assets)), zap.Int("created", created))
	return created, nil
}

// Handle applies a single event. Events that touch no tracked reserve are
// ignored without writing anything.
func (i *Indexer) Handle(ctx context.Context, event models.Event) (Outcome, error) {
	switch e := event.(type) {
	case *models.BorrowEvent:
		return i.HandleBorrow(ctx, e)
	case *models.RepayEvent:
		return i.HandleRepay(ctx, e)
	case *models.SupplyEvent:
		return i.HandleSupply(ctx, e)
	case *models.WithdrawEvent:
		return i.HandleWithdraw(ctx, e)
	case *models.LiquidationCallEvent:
		return i.HandleLiquidationCall(ctx, e)
	case *models.ReserveDataUpdatedEvent:
		return i.HandleReserveDataUpdated(ctx, e)
	case *models.TransferEvent:
		return i.HandleTransfer(ctx, e)
	default:
		return OutcomeIgnored, fmt.Errorf("%w: unsupported event type %T", ledger.ErrInvalidEvent, event)
	}
}

// tracked returns the canonical reserve ids among addrs that are tracked
func (i *Indexer) tracked(addrs ...string) []string {
	var ids []string
	for _, addr := range addrs {
		id := strings.ToLower(addr)
		if _, ok := i.assets[id]; !ok {
			continue
		}
		duplicate := false
		for _, existing := range ids {
			if existing == id {
				duplicate = true
				break
			}
		}
		if !duplicate {
			ids = append(ids, id)
		}
	}
	return ids
}

// apply runs fn in one unit of work guarded by the journal and the reserve
// cursors of tokenIds.
func (i *Indexer) apply(ctx context.Context, event models.Event, tokenIds []string, reconciled bool, fn func(tx store.Tx) error) (Outcome, error) {
	meta := event.Meta()
	err := i.store.WithTx(ctx, func(tx store.Tx) error {
		if i.dedupe {
			record := &models.EventRecord{
				Id:          uuid.New().String(),
				EventKey:    models.EventKey(event),
				Kind:        event.Kind(),
				BlockNumber: meta.BlockNumber,
				TxHash:      models.HashId(meta.TxHash),
				LogIndex:    meta.LogIndex,
				ProcessedAt: time.Now().UTC(),
			}
			if err := tx.RecordEvent(ctx, record); err != nil {
				return err
			}
		}

		cursors := make([]*models.ReserveCursor, 0, len(tokenIds))
		for _, tokenId := range tokenIds {
			cursor, err := i.ledger.CheckOrder(ctx, tx, tokenId, meta)
			if err != nil {
				return err
			}
			cursors = append(cursors, cursor)
		}

		if err := fn(tx); err != nil {
			return err
		}

		for _, cursor := range cursors {
			if err := i.ledger.AdvanceCursor(ctx, tx, cursor, meta, reconciled); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return OutcomeIgnored, fmt.Errorf("failed to apply %s event %s: %w", event.Kind(), models.EventKey(event), err)
	}

	zap.L().Debug("Event applied",
		zap.String("kind", event.Kind()),
		zap.Uint64("block_number", meta.BlockNumber),
		zap.Uint("log_index", meta.LogIndex),
		zap.String("tx_hash", models.HashId(meta.TxHash)))
	return OutcomeApplied, nil
}

// balanceFor resolves the (user, token) balance, failing if the token was never bootstrapped
func (i *Indexer) balanceFor(ctx context.Context, tx store.Tx, userId, tokenId string) (*models.Token, *models.Balance, error) {
	token, err := i.ledger.GetToken(ctx, tx, tokenId)
	if err != nil {
		return nil, nil, err
	}
	user, err := i.ledger.GetOrCreateUser(ctx, tx, userId)
	if err != nil {
		return nil, nil, err
	}
	balance, err := i.ledger.GetOrCreateBalance(ctx, tx, user, token)
	if err != nil {
		return nil, nil, err
	}
	return token, balance, nil
}

func requireNonNegative(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: negative %s %s", ledger.ErrInvalidEvent, field, amount.String())
	}
	return nil
}
