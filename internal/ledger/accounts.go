package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BalanceId builds the composite (user, token) key. Both ids are lowercase hex.
func BalanceId(userId, tokenId string) string {
	return userId + "-" + tokenId
}

// GetOrCreateUser returns the user record, creating a bare one on first sight
func (l *Ledger) GetOrCreateUser(ctx context.Context, tx store.Tx, id string) (*models.User, error) {
	user, err := tx.GetUser(ctx, id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load user %s: %w", id, err)
	}

	user = &models.User{Id: id, CreatedAt: time.Now().UTC()}
	if err := tx.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user %s: %w", id, err)
	}
	zap.L().Debug("User created", zap.String("user_id", id))
	return user, nil
}

// GetOrCreateBalance returns the (user, token) balance, creating a zeroed one if absent
func (l *Ledger) GetOrCreateBalance(ctx context.Context, tx store.Tx, user *models.User, token *models.Token) (*models.Balance, error) {
	id := BalanceId(user.Id, token.Id)
	balance, err := tx.GetBalance(ctx, id)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load balance %s: %w", id, err)
	}

	balance = &models.Balance{
		Id:               id,
		UserId:           user.Id,
		TokenId:          token.Id,
		TotalSupplied:    decimal.Zero,
		TotalBorrowed:    decimal.Zero,
		AccruedInterest:  decimal.Zero,
		PendingSupplied:  decimal.Zero,
		PendingWithdrawn: decimal.Zero,
		PendingRepaid:    decimal.Zero,
		NetSupplied:      decimal.Zero,
		LiquidityIndex:   decimal.Zero,
	}
	if err := tx.SaveBalance(ctx, balance); err != nil {
		return nil, fmt.Errorf("failed to save balance %s: %w", id, err)
	}
	zap.L().Debug("Balance created", zap.String("user_id", user.Id), zap.String("token", token.Id))
	return balance, nil
}

// Touch stamps the balance with the provenance of the event that mutated it
func Touch(balance *models.Balance, meta models.EventMeta) {
	balance.Timestamp = meta.BlockTimestamp
	balance.BlockNumber = meta.BlockNumber
}
