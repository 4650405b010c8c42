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

package common

import (
	"context"
	"fmt"

	"aave-ledger-go/internal/api"

	"go.uber.org/zap"
)

// InitializeUsers resolves the user ids a report should cover.
// With a filter only that address is returned, otherwise every known user.
func InitializeUsers(ctx context.Context, service *api.LedgerService, userFilter string, logger *zap.Logger) ([]string, error) {
	if userFilter != "" {
		logger.Info("Looking up user by address", zap.String("user", userFilter))
		balances, err := service.GetUserBalances(ctx, userFilter)
		if err != nil {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		if len(balances) == 0 {
			return nil, fmt.Errorf("user %s has no balances", userFilter)
		}
		return []string{userFilter}, nil
	}

	allUsers, err := service.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	users := make([]string, 0, len(allUsers))
	for _, u := range allUsers {
		users = append(users, u.Id)
	}

	logger.Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}
