package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"aave-ledger-go/internal/models"
)

// Compile-time check: *MemoryStore must satisfy Store.
var _ Store = (*MemoryStore)(nil)

type memoryState struct {
	tokens    map[string]models.Token
	users     map[string]models.User
	balances  map[string]models.Balance
	loans     map[string]models.Loan
	snapshots map[string]models.Snapshot
	cursors   map[string]models.ReserveCursor
	events    map[string]models.EventRecord
}

func newMemoryState() *memoryState {
	return &memoryState{
		tokens:    make(map[string]models.Token),
		users:     make(map[string]models.User),
		balances:  make(map[string]models.Balance),
		loans:     make(map[string]models.Loan),
		snapshots: make(map[string]models.Snapshot),
		cursors:   make(map[string]models.ReserveCursor),
		events:    make(map[string]models.EventRecord),
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	for k, v := range s.tokens {
		v.Borrowers = append([]string(nil), v.Borrowers...)
		c.tokens[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.loans {
		c.loans[k] = v
	}
	for k, v := range s.snapshots {
		c.snapshots[k] = v
	}
	for k, v := range s.cursors {
		c.cursors[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	return c
}

// MemoryStore is an in-process Store. Each unit of work runs against a copy
// of the state that replaces the committed state only on success.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := m.state.clone()
	if err := fn(&memoryTx{state: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *MemoryStore) Close() {}

// Counts returns the number of records per entity type, for assertions.
func (m *MemoryStore) Counts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]int{
		"tokens":    len(m.state.tokens),
		"users":     len(m.state.users),
		"balances":  len(m.state.balances),
		"loans":     len(m.state.loans),
		"snapshots": len(m.state.snapshots),
		"cursors":   len(m.state.cursors),
		"events":    len(m.state.events),
	}
}

type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) GetToken(_ context.Context, id string) (*models.Token, error) {
	token, ok := t.state.tokens[id]
	if !ok {
		return nil, fmt.Errorf("token %s: %w", id, ErrNotFound)
	}
	token.Borrowers = append([]string(nil), token.Borrowers...)
	return &token, nil
}

func (t *memoryTx) SaveToken(_ context.Context, token *models.Token) error {
	c := *token
	c.Borrowers = append([]string(nil), token.Borrowers...)
	t.state.tokens[token.Id] = c
	return nil
}

func (t *memoryTx) ListTokens(_ context.Context) ([]models.Token, error) {
	tokens := make([]models.Token, 0, len(t.state.tokens))
	for _, token := range t.state.tokens {
		token.Borrowers = append([]string(nil), token.Borrowers...)
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Id < tokens[j].Id })
	return tokens, nil
}

func (t *memoryTx) GetUser(_ context.Context, id string) (*models.User, error) {
	user, ok := t.state.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &user, nil
}

func (t *memoryTx) SaveUser(_ context.Context, user *models.User) error {
	t.state.users[user.Id] = *user
	return nil
}

func (t *memoryTx) ListUsers(_ context.Context) ([]models.User, error) {
	users := make([]models.User, 0, len(t.state.users))
	for _, user := range t.state.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Id < users[j].Id })
	return users, nil
}

func (t *memoryTx) GetBalance(_ context.Context, id string) (*models.Balance, error) {
	balance, ok := t.state.balances[id]
	if !ok {
		return nil, fmt.Errorf("balance %s: %w", id, ErrNotFound)
	}
	return &balance, nil
}

func (t *memoryTx) SaveBalance(_ context.Context, balance *models.Balance) error {
	t.state.balances[balance.Id] = *balance
	return nil
}

func (t *memoryTx) ListBalancesByUser(_ context.Context, userId string) ([]models.Balance, error) {
	var balances []models.Balance
	for _, balance := range t.state.balances {
		if balance.UserId == userId {
			balances = append(balances, balance)
		}
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].Id < balances[j].Id })
	return balances, nil
}

func (t *memoryTx) GetLoan(_ context.Context, id string) (*models.Loan, error) {
	loan, ok := t.state.loans[id]
	if !ok {
		return nil, fmt.Errorf("loan %s: %w", id, ErrNotFound)
	}
	return &loan, nil
}

func (t *memoryTx) SaveLoan(_ context.Context, loan *models.Loan) error {
	t.state.loans[loan.Id] = *loan
	return nil
}

func (t *memoryTx) DeleteLoan(_ context.Context, id string) error {
	delete(t.state.loans, id)
	return nil
}

func (t *memoryTx) ListLoansByBalance(_ context.Context, balanceId string) ([]models.Loan, error) {
	var loans []models.Loan
	for _, loan := range t.state.loans {
		if loan.BalanceId == balanceId {
			loans = append(loans, loan)
		}
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].Id < loans[j].Id })
	return loans, nil
}

func (t *memoryTx) GetSnapshot(_ context.Context, id string) (*models.Snapshot, error) {
	snapshot, ok := t.state.snapshots[id]
	if !ok {
		return nil, fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	return &snapshot, nil
}

func (t *memoryTx) SaveSnapshot(_ context.Context, snapshot *models.Snapshot) error {
	t.state.snapshots[snapshot.Id] = *snapshot
	return nil
}

func (t *memoryTx) ListSnapshotsByBalance(_ context.Context, balanceId string, fromHour, toHour int64) ([]models.Snapshot, error) {
	var snapshots []models.Snapshot
	for _, snapshot := range t.state.snapshots {
		if snapshot.BalanceId == balanceId && snapshot.Hour >= fromHour && snapshot.Hour <= toHour {
			snapshots = append(snapshots, snapshot)
		}
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Hour < snapshots[j].Hour })
	return snapshots, nil
}

func (t *memoryTx) GetCursor(_ context.Context, tokenId string) (*models.ReserveCursor, error) {
	cursor, ok := t.state.cursors[tokenId]
	if !ok {
		return nil, fmt.Errorf("cursor %s: %w", tokenId, ErrNotFound)
	}
	return &cursor, nil
}

func (t *memoryTx) SaveCursor(_ context.Context, cursor *models.ReserveCursor) error {
	t.state.cursors[cursor.TokenId] = *cursor
	return nil
}

func (t *memoryTx) RecordEvent(_ context.Context, record *models.EventRecord) error {
	if _, ok := t.state.events[record.EventKey]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEvent, record.EventKey)
	}
	t.state.events[record.EventKey] = *record
	return nil
}
