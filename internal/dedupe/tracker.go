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

// Package dedupe remembers recently processed event keys so the ingestion
// loop can skip redeliveries before opening a store transaction. The store's
// processed event journal stays the source of truth.
package dedupe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aave-ledger-go/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type Tracker interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// New builds the tracker selected by cfg.Backend
func New(ctx context.Context, cfg models.DedupeConfig) (Tracker, error) {
	switch cfg.Backend {
	case "", "memory":
		tracker := NewMemoryTracker(cfg.Ttl, cfg.CleanupInterval)
		tracker.Start(ctx)
		return tracker, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDb,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		zap.L().Info("Redis connection established", zap.String("addr", cfg.RedisAddr))
		return NewRedisTracker(client, cfg.Ttl), nil
	default:
		return nil, fmt.Errorf("unknown dedupe backend %q", cfg.Backend)
	}
}

// MemoryTracker keeps keys in process memory and drops them after ttl
type MemoryTracker struct {
	processed       map[string]time.Time
	mutex           sync.RWMutex
	ttl             time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	stopChan chan struct{}
	doneChan chan struct{}
	started  bool
}

func NewMemoryTracker(ttl, cleanupInterval time.Duration) *MemoryTracker {
	return &MemoryTracker{
		processed:       make(map[string]time.Time),
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Start launches the periodic cleanup loop. A non-positive interval disables it.
func (m *MemoryTracker) Start(ctx context.Context) {
	if m.cleanupInterval <= 0 || m.started {
		return
	}
	m.started = true
	go m.cleanupLoop(ctx)
}

// Stop ends the cleanup loop and waits for it to exit
func (m *MemoryTracker) Stop() {
	if !m.started {
		return
	}
	close(m.stopChan)
	<-m.doneChan
	m.started = false
}

func (m *MemoryTracker) Seen(_ context.Context, key string) (bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	markedAt, ok := m.processed[key]
	if !ok {
		return false, nil
	}
	if m.ttl > 0 && m.now().Sub(markedAt) > m.ttl {
		return false, nil
	}
	return true, nil
}

func (m *MemoryTracker) Mark(_ context.Context, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.processed[key] = m.now()
	return nil
}

func (m *MemoryTracker) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.processed)
}

func (m *MemoryTracker) cleanupLoop(ctx context.Context) {
	defer close(m.doneChan)

	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Cleanup()
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Cleanup removes keys older than ttl and returns how many were dropped
func (m *MemoryTracker) Cleanup() int {
	if m.ttl <= 0 {
		return 0
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	cutoff := m.now().Add(-m.ttl)
	removed := 0
	for key, markedAt := range m.processed {
		if markedAt.Before(cutoff) {
			delete(m.processed, key)
			removed++
		}
	}

	if removed > 0 {
		zap.L().Debug("Cleaned up processed event keys",
			zap.Int("removed", removed),
			zap.Int("remaining", len(m.processed)))
	}
	return removed
}
