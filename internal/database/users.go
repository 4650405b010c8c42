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
	"encoding/json"
	"errors"
	"fmt"

	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"

	"go.uber.org/zap"
)

func scanToken(row rowScanner) (*models.Token, error) {
	var token models.Token
	var borrowers string
	if err := row.Scan(&token.Id, &token.Symbol, &token.Name, &token.Decimals, &borrowers); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(borrowers), &token.Borrowers); err != nil {
		return nil, fmt.Errorf("failed to decode borrowers of %s: %w", token.Id, err)
	}
	if token.Borrowers == nil {
		token.Borrowers = []string{}
	}
	return &token, nil
}

func (t *Tx) GetToken(ctx context.Context, id string) (*models.Token, error) {
	token, err := scanToken(t.tx.QueryRowContext(ctx, queryGetToken, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: token %s", store.ErrNotFound, id)
		}
		return nil, fmt.Errorf("unable to query token: %w", err)
	}
	return token, nil
}

func (t *Tx) SaveToken(ctx context.Context, token *models.Token) error {
	borrowers := token.Borrowers
	if borrowers == nil {
		borrowers = []string{}
	}
	encoded, err := json.Marshal(borrowers)
	if err != nil {
		return fmt.Errorf("failed to encode borrowers of %s: %w", token.Id, err)
	}

	if _, err := t.tx.ExecContext(ctx, queryUpsertToken, token.Id, token.Symbol, token.Name, token.Decimals, string(encoded)); err != nil {
		zap.L().Error("Failed to upsert token", zap.String("token", token.Id), zap.Error(err))
		return fmt.Errorf("unable to upsert token: %w", err)
	}
	return nil
}

func (t *Tx) ListTokens(ctx context.Context) ([]models.Token, error) {
	rows, err := t.tx.QueryContext(ctx, queryListTokens)
	if err != nil {
		return nil, fmt.Errorf("unable to query tokens: %w", err)
	}
	defer closeRows(rows)

	tokens := []models.Token{}
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan token row: %w", err)
		}
		tokens = append(tokens, *token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating token rows: %w", err)
	}
	return tokens, nil
}

func (t *Tx) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := t.tx.QueryRowContext(ctx, queryGetUser, id).Scan(&user.Id, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, id)
		}
		return nil, fmt.Errorf("unable to query user: %w", err)
	}
	return &user, nil
}

func (t *Tx) SaveUser(ctx context.Context, user *models.User) error {
	if _, err := t.tx.ExecContext(ctx, queryInsertUser, user.Id, user.CreatedAt); err != nil {
		zap.L().Error("Failed to insert user", zap.String("user_id", user.Id), zap.Error(err))
		return fmt.Errorf("unable to insert user: %w", err)
	}
	return nil
}

func (t *Tx) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := t.tx.QueryContext(ctx, queryListUsers)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer closeRows(rows)

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.Id, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, user)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Debug("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}
