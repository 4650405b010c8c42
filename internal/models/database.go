package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Borrow interest rate modes as emitted by the pool
const (
	BorrowTypeStable   = 1
	BorrowTypeVariable = 2
)

// Token is a tracked reserve asset. Borrowers only ever grows.
type Token struct {
	Id        string   `db:"id"`
	Symbol    string   `db:"symbol"`
	Name      string   `db:"name"`
	Decimals  int      `db:"decimals"`
	Borrowers []string `db:"borrowers"`
}

// HasBorrower reports whether userId is already in the borrower list
func (t *Token) HasBorrower(userId string) bool {
	for _, b := range t.Borrowers {
		if b == userId {
			return true
		}
	}
	return false
}

// User is a wallet that interacted with at least one tracked reserve
type User struct {
	Id        string    `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}

// Balance is one user's position in one tracked reserve (hot data)
type Balance struct {
	Id               string          `db:"id"`
	UserId           string          `db:"user_id"`
	TokenId          string          `db:"token_id"`
	TotalSupplied    decimal.Decimal `db:"total_supplied"`
	TotalBorrowed    decimal.Decimal `db:"total_borrowed"`
	AccruedInterest  decimal.Decimal `db:"accrued_interest"`
	PendingSupplied  decimal.Decimal `db:"pending_supplied"`
	PendingWithdrawn decimal.Decimal `db:"pending_withdrawn"`
	PendingRepaid    decimal.Decimal `db:"pending_repaid"`
	NetSupplied      decimal.Decimal `db:"net_supplied"`
	LiquidityIndex   decimal.Decimal `db:"liquidity_index"`
	Timestamp        int64           `db:"timestamp"`
	BlockNumber      uint64          `db:"block_number"`
}

// RecomputeNet derives NetSupplied from the committed totals.
// It must be called after every mutation of those totals.
func (b *Balance) RecomputeNet() {
	b.NetSupplied = b.TotalSupplied.Sub(b.TotalBorrowed.Add(b.AccruedInterest))
}

// NetConsistent reports whether NetSupplied matches the committed totals
func (b *Balance) NetConsistent() bool {
	return b.NetSupplied.Equal(b.TotalSupplied.Sub(b.TotalBorrowed.Add(b.AccruedInterest)))
}

// Loan is the outstanding position opened by a single borrow transaction
type Loan struct {
	Id              string          `db:"id"`
	BalanceId       string          `db:"balance_id"`
	Amount          decimal.Decimal `db:"amount"`
	BorrowRate      decimal.Decimal `db:"borrow_rate"`
	BorrowType      int             `db:"borrow_type"`
	AccruedInterest decimal.Decimal `db:"accrued_interest"`
	IsLiquidated    bool            `db:"is_liquidated"`
	Timestamp       int64           `db:"timestamp"`
	BlockNumber     uint64          `db:"block_number"`
	AccruedAt       int64           `db:"accrued_at"` // anchor for the next accrual step
}

// Snapshot is the last state of a balance seen during one hour bucket
type Snapshot struct {
	Id              string          `db:"id"`
	BalanceId       string          `db:"balance_id"`
	Hour            int64           `db:"hour"`
	TotalSupplied   decimal.Decimal `db:"total_supplied"`
	TotalBorrowed   decimal.Decimal `db:"total_borrowed"`
	AccruedInterest decimal.Decimal `db:"accrued_interest"`
	NetSupplied     decimal.Decimal `db:"net_supplied"`
	Timestamp       int64           `db:"timestamp"`
	BlockNumber     uint64          `db:"block_number"`
}

// ReserveCursor tracks the last accepted event position for a tracked reserve
type ReserveCursor struct {
	TokenId             string `db:"token_id"`
	Sequence            uint64 `db:"sequence"`
	LastBlock           uint64 `db:"last_block"`
	LastLogIndex        uint   `db:"last_log_index"`
	LastReconciledBlock uint64 `db:"last_reconciled_block"`
}

// Before reports whether (block, logIndex) precedes the cursor position
func (c *ReserveCursor) Before(block uint64, logIndex uint) bool {
	if block != c.LastBlock {
		return block < c.LastBlock
	}
	return logIndex < c.LastLogIndex
}

// EventRecord is an entry of the processed-event journal (cold data)
type EventRecord struct {
	Id          string    `db:"id"`
	EventKey    string    `db:"event_key"`
	Kind        string    `db:"kind"`
	BlockNumber uint64    `db:"block_number"`
	TxHash      string    `db:"tx_hash"`
	LogIndex    uint      `db:"log_index"`
	ProcessedAt time.Time `db:"processed_at"`
}
