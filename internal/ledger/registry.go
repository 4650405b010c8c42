package ledger

import (
	"context"
	"errors"
	"fmt"

	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"

	"go.uber.org/zap"
)

// InitializeToken creates the token record unless it already exists.
// The returned bool reports whether a record was created.
func (l *Ledger) InitializeToken(ctx context.Context, tx store.Tx, asset models.TrackedAsset) (*models.Token, bool, error) {
	token, err := tx.GetToken(ctx, asset.Address)
	if err == nil {
		zap.L().Debug("Token already initialized", zap.String("token", asset.Address), zap.String("symbol", token.Symbol))
		return token, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to load token %s: %w", asset.Address, err)
	}

	token = &models.Token{
		Id:        asset.Address,
		Symbol:    asset.Symbol,
		Name:      asset.Name,
		Decimals:  asset.Decimals,
		Borrowers: []string{},
	}
	if err := tx.SaveToken(ctx, token); err != nil {
		return nil, false, fmt.Errorf("failed to save token %s: %w", asset.Address, err)
	}

	zap.L().Info("Token initialized",
		zap.String("token", token.Id),
		zap.String("symbol", token.Symbol),
		zap.Int("decimals", token.Decimals))
	return token, true, nil
}

// GetToken loads a token that must already have been bootstrapped
func (l *Ledger) GetToken(ctx context.Context, tx store.Tx, id string) (*models.Token, error) {
	token, err := tx.GetToken(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		zap.L().Error("Token missing for tracked reserve", zap.String("token", id))
		return nil, fmt.Errorf("%w: %s", ErrTokenNotBootstrapped, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token %s: %w", id, err)
	}
	return token, nil
}

// AddBorrower appends userId to the token borrower list if it is not there yet
func (l *Ledger) AddBorrower(ctx context.Context, tx store.Tx, token *models.Token, userId string) error {
	if token.HasBorrower(userId) {
		return nil
	}
	token.Borrowers = append(token.Borrowers, userId)
	if err := tx.SaveToken(ctx, token); err != nil {
		return fmt.Errorf("failed to save token %s: %w", token.Id, err)
	}
	zap.L().Debug("Borrower added", zap.String("token", token.Id), zap.String("user_id", userId))
	return nil
}
