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

package api

import (
	"context"
	"errors"
	"fmt"

	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
)

var ErrInvalidAddress = errors.New("invalid address")

// LedgerService answers read-only questions about the ledger
type LedgerService struct {
	store store.Store
}

func NewLedgerService(s store.Store) *LedgerService {
	return &LedgerService{
		store: s,
	}
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.ListTokens(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// ListUsers returns every user the ledger has seen
func (s *LedgerService) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		users, err = tx.ListUsers(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ListTokens returns every bootstrapped reserve
func (s *LedgerService) ListTokens(ctx context.Context) ([]models.Token, error) {
	var tokens []models.Token
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		tokens, err = tx.ListTokens(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	return tokens, nil
}

// canonicalId validates a hex address and returns its lowercase entity id
func canonicalId(field, address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %s %q", ErrInvalidAddress, field, address)
	}
	return models.AddressId(common.HexToAddress(address)), nil
}
