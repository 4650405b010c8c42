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

package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"aave-ledger-go/internal/dedupe"
	"aave-ledger-go/internal/feed"
	"aave-ledger-go/internal/indexer"
	"aave-ledger-go/internal/ledger"
	"aave-ledger-go/internal/metrics"
	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"

	"go.uber.org/zap"
)

// Config contains the collaborators of a Listener
type Config struct {
	Source  feed.Source
	Indexer *indexer.Indexer
	Tracker dedupe.Tracker
	Metrics *metrics.Ingest
	// Console receives one colored line per event when set
	Console io.Writer
}

// Listener feeds events one at a time through the indexer
type Listener struct {
	source  feed.Source
	indexer *indexer.Indexer
	tracker dedupe.Tracker
	metrics *metrics.Ingest
	console io.Writer
}

// Summary counts what happened to every event read from the source
type Summary struct {
	Read       int
	Applied    int
	Ignored    int
	Skipped    int
	Duplicates int
	OutOfOrder int
	Rejected   int
	LastBlock  uint64
	Elapsed    time.Duration
}

func New(cfg Config) *Listener {
	return &Listener{
		source:  cfg.Source,
		indexer: cfg.Indexer,
		tracker: cfg.Tracker,
		metrics: cfg.Metrics,
		console: cfg.Console,
	}
}

// Run consumes the source until io.EOF. Out of order, duplicate and invalid
// events are logged and counted; a missing token, a store failure or an
// unreadable feed stops the run.
func (l *Listener) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	start := time.Now()

	zap.L().Info("Starting event ingestion")

	for {
		event, err := l.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			summary.Elapsed = time.Since(start)
			return summary, fmt.Errorf("failed to read event: %w", err)
		}
		summary.Read++

		outcome, err := l.process(ctx, event)
		l.record(event, outcome, err)
		switch outcome {
		case metrics.OutcomeApplied:
			summary.Applied++
			if block := event.Meta().BlockNumber; block > summary.LastBlock {
				summary.LastBlock = block
			}
		case metrics.OutcomeIgnored:
			summary.Ignored++
		case metrics.OutcomeSkipped:
			summary.Skipped++
		case metrics.OutcomeDuplicate:
			summary.Duplicates++
		case metrics.OutcomeOutOfOrder:
			summary.OutOfOrder++
		case metrics.OutcomeFailed:
			if errors.Is(err, ledger.ErrInvalidEvent) {
				summary.Rejected++
				continue
			}
			summary.Elapsed = time.Since(start)
			return summary, err
		}
	}

	summary.Elapsed = time.Since(start)
	zap.L().Info("Event ingestion completed",
		zap.Int("read", summary.Read),
		zap.Int("applied", summary.Applied),
		zap.Int("ignored", summary.Ignored),
		zap.Int("skipped", summary.Skipped),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("out_of_order", summary.OutOfOrder),
		zap.Int("rejected", summary.Rejected),
		zap.Uint64("last_block", summary.LastBlock),
		zap.Duration("elapsed", summary.Elapsed))
	return summary, nil
}

// process dispatches one event and classifies the result
func (l *Listener) process(ctx context.Context, event models.Event) (string, error) {
	key := models.EventKey(event)

	if l.tracker != nil {
		seen, err := l.tracker.Seen(ctx, key)
		if err != nil {
			// the journal still guards against double counting
			zap.L().Warn("Processed event lookup failed", zap.String("event_key", key), zap.Error(err))
		} else if seen {
			zap.L().Debug("Event already processed, skipping", zap.String("event_key", key))
			return metrics.OutcomeSkipped, nil
		}
	}

	outcome, err := l.indexer.Handle(ctx, event)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrDuplicateEvent):
		l.mark(ctx, key)
		return metrics.OutcomeDuplicate, err
	case errors.Is(err, ledger.ErrOutOfOrder):
		return metrics.OutcomeOutOfOrder, err
	default:
		return metrics.OutcomeFailed, err
	}

	if outcome == indexer.OutcomeIgnored {
		return metrics.OutcomeIgnored, nil
	}
	l.mark(ctx, key)
	return metrics.OutcomeApplied, nil
}

func (l *Listener) mark(ctx context.Context, key string) {
	if l.tracker == nil {
		return
	}
	if err := l.tracker.Mark(ctx, key); err != nil {
		zap.L().Warn("Failed to mark event processed", zap.String("event_key", key), zap.Error(err))
	}
}

func (l *Listener) record(event models.Event, outcome string, err error) {
	meta := event.Meta()

	if l.metrics != nil {
		l.metrics.Observe(event.Kind(), outcome)
		if outcome == metrics.OutcomeApplied {
			l.metrics.Block(meta.BlockNumber)
			if event.Kind() == models.KindReserveDataUpdated {
				l.metrics.Reconciled()
			}
		}
	}

	fields := []zap.Field{
		zap.String("kind", event.Kind()),
		zap.String("tx_hash", models.HashId(meta.TxHash)),
		zap.Uint64("block_number", meta.BlockNumber),
		zap.Uint("log_index", meta.LogIndex),
	}
	switch outcome {
	case metrics.OutcomeDuplicate, metrics.OutcomeOutOfOrder:
		zap.L().Warn("Event rejected", append(fields, zap.String("outcome", outcome), zap.Error(err))...)
	case metrics.OutcomeFailed:
		zap.L().Error("Failed to process event", append(fields, zap.Error(err))...)
	}

	l.print(event, outcome, err)
}
