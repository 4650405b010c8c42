package store

import (
	"context"
	"errors"

	"aave-ledger-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEvent = errors.New("duplicate event")
)

// Tx is a unit of work covering exactly one event. Getters return ErrNotFound
// for absent records; Save* are upserts.
type Tx interface {
	// --- Tokens ---
	GetToken(ctx context.Context, id string) (*models.Token, error)
	SaveToken(ctx context.Context, token *models.Token) error
	ListTokens(ctx context.Context) ([]models.Token, error)

	// --- Users ---
	GetUser(ctx context.Context, id string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)

	// --- Balances ---
	GetBalance(ctx context.Context, id string) (*models.Balance, error)
	SaveBalance(ctx context.Context, balance *models.Balance) error
	ListBalancesByUser(ctx context.Context, userId string) ([]models.Balance, error)

	// --- Loans ---
	GetLoan(ctx context.Context, id string) (*models.Loan, error)
	SaveLoan(ctx context.Context, loan *models.Loan) error
	DeleteLoan(ctx context.Context, id string) error
	// ListLoansByBalance returns the loans of a balance ordered by id
	ListLoansByBalance(ctx context.Context, balanceId string) ([]models.Loan, error)

	// --- Snapshots ---
	GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error
	// ListSnapshotsByBalance returns snapshots with fromHour <= hour <= toHour ordered by hour
	ListSnapshotsByBalance(ctx context.Context, balanceId string, fromHour, toHour int64) ([]models.Snapshot, error)

	// --- Ordering ---
	GetCursor(ctx context.Context, tokenId string) (*models.ReserveCursor, error)
	SaveCursor(ctx context.Context, cursor *models.ReserveCursor) error

	// --- Journal ---
	// RecordEvent returns ErrDuplicateEvent when the event key was already recorded
	RecordEvent(ctx context.Context, record *models.EventRecord) error
}

// Store defines the contract that every backend (SQLite, memory, ...) must satisfy.
type Store interface {
	// WithTx runs fn in a unit of work; it commits when fn returns nil and
	// discards every write otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// --- Lifecycle ---
	Close()
}
