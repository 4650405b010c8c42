package indexer

import (
	"context"
	"math/big"
	"testing"

	"aave-ledger-go/internal/config"
	"aave-ledger-go/internal/ledger"
	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	ray    = "1000000000000000000000000000"
	tenPct = "100000000000000000000000000"
	year   = int64(config.DefaultSecondsInYear)
)

var (
	dai     = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	aDai    = common.HexToAddress("0x018008bfb33d285247A21d44E50697654f754e63")
	usdc    = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	aUsdc   = common.HexToAddress("0xBcca60bB61934080951369a648Fb03DF4F96263C")
	weth    = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	alice   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob     = common.HexToAddress("0x2222222222222222222222222222222222222222")
	keeper  = common.HexToAddress("0x3333333333333333333333333333333333333333")
	nullAdr = common.Address{}
)

func testConfig(dedupe bool) models.LedgerConfig {
	cfg := config.DefaultLedgerConfig()
	cfg.DedupeEvents = dedupe
	cfg.Assets = []models.TrackedAsset{
		{Address: dai.Hex(), AToken: aDai.Hex(), Symbol: "DAI", Name: "Dai Stablecoin", Decimals: 18},
		{Address: usdc.Hex(), AToken: aUsdc.Hex(), Symbol: "USDC", Name: "USD Coin", Decimals: 6},
	}
	return cfg
}

func newTestIndexer(t *testing.T, dedupe bool) (*Indexer, *store.MemoryStore) {
	t.Helper()
	cfg := testConfig(dedupe)
	l, err := ledger.New(cfg)
	require.NoError(t, err)

	s := store.NewMemoryStore()
	idx := New(s, l, cfg)
	created, err := idx.Bootstrap(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, created)
	return idx, s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

func meta(block uint64, ts int64, logIndex uint, from common.Address) models.EventMeta {
	return models.EventMeta{
		BlockNumber:    block,
		BlockTimestamp: ts,
		TxHash:         common.BigToHash(big.NewInt(int64(block*1000 + uint64(logIndex)))),
		TxFrom:         from,
		LogIndex:       logIndex,
	}
}

func loadBalance(t *testing.T, s store.Store, user, token common.Address) *models.Balance {
	t.Helper()
	var balance *models.Balance
	require.NoError(t, s.WithTx(context.Background(), func(tx store.Tx) error {
		var err error
		balance, err = tx.GetBalance(context.Background(), ledger.BalanceId(models.AddressId(user), models.AddressId(token)))
		return err
	}))
	return balance
}

func loadLoans(t *testing.T, s store.Store, balanceId string) []models.Loan {
	t.Helper()
	var loans []models.Loan
	require.NoError(t, s.WithTx(context.Background(), func(tx store.Tx) error {
		var err error
		loans, err = tx.ListLoansByBalance(context.Background(), balanceId)
		return err
	}))
	return loans
}

func flatRates(m models.EventMeta, reserve common.Address) *models.ReserveDataUpdatedEvent {
	return &models.ReserveDataUpdatedEvent{
		EventMeta:          m,
		Reserve:            reserve,
		LiquidityIndex:     dec(ray),
		StableBorrowRate:   dec(tenPct),
		VariableBorrowRate: dec(tenPct),
	}
}

func handle(t *testing.T, idx *Indexer, event models.Event) {
	t.Helper()
	outcome, err := idx.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)
}

func TestBootstrap_Idempotent(t *testing.T) {
	idx, s := newTestIndexer(t, true)

	created, err := idx.Bootstrap(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, created)
	require.Equal(t, 2, s.Counts()["tokens"])

	assets := idx.Assets()
	require.Len(t, assets, 2)
	require.Equal(t, models.AddressId(dai), assets[0].Address)
}

func TestLifecycle_SupplyBorrowAccrueRepay(t *testing.T) {
	require := require.New(t)
	idx, s := newTestIndexer(t, true)

	handle(t, idx, &models.SupplyEvent{EventMeta: meta(1, 1000, 0, alice), Reserve: dai, User: alice, OnBehalfOf: alice, Amount: dec("1000")})
	balance := loadBalance(t, s, alice, dai)
	requireDecimal(t, "1000", balance.PendingSupplied)
	require.True(balance.TotalSupplied.IsZero())
	require.Equal(0, s.Counts()["snapshots"])

	handle(t, idx, flatRates(meta(2, 1000, 0, alice), dai))
	balance = loadBalance(t, s, alice, dai)
	requireDecimal(t, "1000", balance.TotalSupplied)
	require.True(balance.PendingSupplied.IsZero())

	handle(t, idx, &models.BorrowEvent{
		EventMeta: meta(3, 2000, 0, alice), Reserve: dai, User: alice, OnBehalfOf: alice,
		Amount: dec("500"), InterestRateMode: models.BorrowTypeVariable, BorrowRate: dec(tenPct),
	})
	require.Equal(1, s.Counts()["loans"])

	handle(t, idx, flatRates(meta(4, 2000+year, 0, alice), dai))
	balance = loadBalance(t, s, alice, dai)
	requireDecimal(t, "500", balance.TotalBorrowed)
	requireDecimal(t, "50", balance.AccruedInterest)
	requireDecimal(t, "450", balance.NetSupplied)

	handle(t, idx, &models.RepayEvent{EventMeta: meta(5, 2000+year, 0, alice), Reserve: dai, User: alice, Repayer: alice, Amount: dec("100")})
	balance = loadBalance(t, s, alice, dai)
	requireDecimal(t, "100", balance.PendingRepaid)

	handle(t, idx, flatRates(meta(6, 2000+year, 0, alice), dai))
	balance = loadBalance(t, s, alice, dai)
	requireDecimal(t, "450", balance.TotalBorrowed)
	require.True(balance.AccruedInterest.IsZero())
	require.True(balance.PendingRepaid.IsZero())
	requireDecimal(t, "550", balance.NetSupplied)
	require.True(balance.NetConsistent())
	require.Equal(uint64(6), balance.BlockNumber)

	loans := loadLoans(t, s, balance.Id)
	require.Len(loans, 1)
	requireDecimal(t, "450", loans[0].Amount)

	require.NoError(s.WithTx(context.Background(), func(tx store.Tx) error {
		token, err := tx.GetToken(context.Background(), models.AddressId(dai))
		require.NoError(err)
		require.Equal([]string{models.AddressId(alice)}, token.Borrowers)

		cursor, err := tx.GetCursor(context.Background(), models.AddressId(dai))
		require.NoError(err)
		require.Equal(uint64(6), cursor.Sequence)
		require.Equal(uint64(6), cursor.LastReconciledBlock)
		return nil
	}))
	require.Equal(6, s.Counts()["events"])
}

func TestBorrow_ListsBorrowerOnce(t *testing.T) {
	idx, s := newTestIndexer(t, true)

	for i := uint(0); i < 2; i++ {
		handle(t, idx, &models.BorrowEvent{
			EventMeta: meta(1, 100, i, alice), Reserve: dai, User: alice, OnBehalfOf: alice,
			Amount: dec("10"), InterestRateMode: models.BorrowTypeStable, BorrowRate: dec(tenPct),
		})
	}

	require.NoError(t, s.WithTx(context.Background(), func(tx store.Tx) error {
		token, err := tx.GetToken(context.Background(), models.AddressId(dai))
		require.NoError(t, err)
		require.Len(t, token.Borrowers, 1)
		return nil
	}))
	require.Equal(t, 2, s.Counts()["loans"])
}

func TestUntrackedEvents_AreNoOps(t *testing.T) {
	require := require.New(t)
	idx, s := newTestIndexer(t, true)
	before := s.Counts()

	events := []models.Event{
		&models.BorrowEvent{EventMeta: meta(1, 1, 0, alice), Reserve: weth, OnBehalfOf: alice, Amount: dec("1"), InterestRateMode: 2},
		&models.RepayEvent{EventMeta: meta(1, 1, 1, alice), Reserve: weth, User: alice, Amount: dec("1")},
		&models.SupplyEvent{EventMeta: meta(1, 1, 2, alice), Reserve: weth, OnBehalfOf: alice, Amount: dec("1")},
		&models.WithdrawEvent{EventMeta: meta(1, 1, 3, alice), Reserve: weth, User: alice, Amount: dec("1")},
		&models.LiquidationCallEvent{EventMeta: meta(1, 1, 4, keeper), CollateralAsset: weth, DebtAsset: weth, User: alice},
		flatRates(meta(1, 1, 5, alice), weth),
		&models.TransferEvent{EventMeta: meta(1, 1, 6, alice), Token: weth, From: alice, To: bob, Value: dec("1")},
	}
	for _, event := range events {
		outcome, err := idx.Handle(context.Background(), event)
		require.NoError(err)
		require.Equal(OutcomeIgnored, outcome, event.Kind())
	}

	require.Equal(before, s.Counts())
}

func TestTransfer_MovesSuppliedPosition(t *testing.T) {
	require := require.New(t)
	idx, s := newTestIndexer(t, true)

	handle(t, idx, &models.SupplyEvent{EventMeta: meta(1, 100, 0, alice), Reserve: dai, OnBehalfOf: alice, Amount: dec("100")})
	handle(t, idx, flatRates(meta(2, 100, 0, alice), dai))

	handle(t, idx, &models.TransferEvent{EventMeta: meta(3, 200, 0, alice), Token: aDai, From: alice, To: bob, Value: dec("30")})

	sender := loadBalance(t, s, alice, dai)
	receiver := loadBalance(t, s, bob, dai)
	requireDecimal(t, "70", sender.TotalSupplied)
	requireDecimal(t, "70", sender.NetSupplied)
	requireDecimal(t, "30", receiver.TotalSupplied)
	requireDecimal(t, "30", receiver.NetSupplied)
	require.Equal(uint64(3), receiver.BlockNumber)

	// Mint and burn legs are already covered by Supply and Withdraw
	before := s.Counts()
	outcome, err := idx.Handle(context.Background(), &models.TransferEvent{EventMeta: meta(4, 300, 0, alice), Token: aDai, From: nullAdr, To: bob, Value: dec("5")})
	require.NoError(err)
	require.Equal(OutcomeIgnored, outcome)
	outcome, err = idx.Handle(context.Background(), &models.TransferEvent{EventMeta: meta(4, 300, 1, alice), Token: aDai, From: bob, To: nullAdr, Value: dec("5")})
	require.NoError(err)
	require.Equal(OutcomeIgnored, outcome)
	require.Equal(before, s.Counts())

	// The reserve address itself is not an aToken
	outcome, err = idx.Handle(context.Background(), &models.TransferEvent{EventMeta: meta(4, 300, 2, alice), Token: dai, From: alice, To: bob, Value: dec("5")})
	require.NoError(err)
	require.Equal(OutcomeIgnored, outcome)
}

func TestLiquidationCall_CollateralAndDebt(t *testing.T) {
	require := require.New(t)
	idx, s := newTestIndexer(t, true)

	handle(t, idx, &models.SupplyEvent{EventMeta: meta(1, 100, 0, alice), Reserve: dai, OnBehalfOf: alice, Amount: dec("1000")})
	handle(t, idx, flatRates(meta(2, 100, 0, alice), dai))
	handle(t, idx, &models.BorrowEvent{
		EventMeta: meta(3, 100, 0, alice), Reserve: usdc, OnBehalfOf: alice,
		Amount: dec("600"), InterestRateMode: models.BorrowTypeVariable, BorrowRate: dec(tenPct),
	})
	handle(t, idx, flatRates(meta(4, 100+year, 0, alice), usdc))

	debt := loadBalance(t, s, alice, usdc)
	requireDecimal(t, "600", debt.TotalBorrowed)
	requireDecimal(t, "60", debt.AccruedInterest)

	handle(t, idx, &models.LiquidationCallEvent{
		EventMeta:                  meta(5, 200+year, 0, keeper),
		CollateralAsset:            dai,
		DebtAsset:                  usdc,
		User:                       alice,
		DebtToCover:                dec("660"),
		LiquidatedCollateralAmount: dec("200"),
		Liquidator:                 keeper,
	})

	collateral := loadBalance(t, s, alice, dai)
	requireDecimal(t, "800", collateral.TotalSupplied)
	requireDecimal(t, "800", collateral.NetSupplied)

	debt = loadBalance(t, s, alice, usdc)
	require.True(debt.TotalBorrowed.IsZero())
	require.True(debt.AccruedInterest.IsZero())
	require.True(debt.NetConsistent())
	require.Empty(loadLoans(t, s, debt.Id))
}

func TestLiquidationCall_OnlyDebtTracked(t *testing.T) {
	idx, s := newTestIndexer(t, true)

	handle(t, idx, &models.BorrowEvent{
		EventMeta: meta(1, 100, 0, alice), Reserve: usdc, OnBehalfOf: alice,
		Amount: dec("50"), InterestRateMode: models.BorrowTypeStable, BorrowRate: dec(tenPct),
	})
	handle(t, idx, &models.LiquidationCallEvent{
		EventMeta: meta(2, 200, 0, keeper), CollateralAsset: weth, DebtAsset: usdc, User: alice,
		DebtToCover: dec("50"), LiquidatedCollateralAmount: dec("1"), Liquidator: keeper,
	})

	require.Equal(t, 0, s.Counts()["loans"])
	require.Equal(t, 1, s.Counts()["balances"])
}

func TestRepay_SnapshotUpsertWithinHour(t *testing.T) {
	idx, s := newTestIndexer(t, true)

	handle(t, idx, &models.RepayEvent{EventMeta: meta(1, 3600, 0, alice), Reserve: dai, User: alice, Amount: dec("1")})
	handle(t, idx, &models.RepayEvent{EventMeta: meta(2, 3700, 0, alice), Reserve: dai, User: alice, Amount: dec("2")})
	require.Equal(t, 1, s.Counts()["snapshots"])

	balance := loadBalance(t, s, alice, dai)
	require.NoError(t, s.WithTx(context.Background(), func(tx store.Tx) error {
		snapshots, err := tx.ListSnapshotsByBalance(context.Background(), balance.Id, 0, 1<<40)
		require.NoError(t, err)
		require.Len(t, snapshots, 1)
		require.Equal(t, uint64(2), snapshots[0].BlockNumber)
		return nil
	}))
	requireDecimal(t, "3", balance.PendingRepaid)
}

func TestDuplicateDelivery_SkippedWithJournal(t *testing.T) {
	require := require.New(t)
	idx, s := newTestIndexer(t, true)

	repay := &models.RepayEvent{EventMeta: meta(1, 100, 0, alice), Reserve: dai, User: alice, Amount: dec("40")}
	handle(t, idx, repay)

	_, err := idx.Handle(context.Background(), repay)
	require.ErrorIs(err, store.ErrDuplicateEvent)

	requireDecimal(t, "40", loadBalance(t, s, alice, dai).PendingRepaid)
	require.Equal(1, s.Counts()["events"])
}

func TestDuplicateDelivery_DoubleCountsWithoutJournal(t *testing.T) {
	require := require.New(t)
	idx, s := newTestIndexer(t, false)

	repay := &models.RepayEvent{EventMeta: meta(1, 100, 0, alice), Reserve: dai, User: alice, Amount: dec("40")}
	handle(t, idx, repay)
	handle(t, idx, repay)

	// Additive mutations are not idempotent on replay
	requireDecimal(t, "80", loadBalance(t, s, alice, dai).PendingRepaid)
	require.Equal(0, s.Counts()["events"])

	// Creation stays idempotent
	borrow := &models.BorrowEvent{
		EventMeta: meta(2, 100, 0, alice), Reserve: dai, OnBehalfOf: alice,
		Amount: dec("5"), InterestRateMode: models.BorrowTypeStable, BorrowRate: dec(tenPct),
	}
	handle(t, idx, borrow)
	handle(t, idx, borrow)
	require.Equal(1, s.Counts()["loans"])
}

func TestOutOfOrder_RejectedWithoutWrites(t *testing.T) {
	require := require.New(t)
	idx, s := newTestIndexer(t, true)

	handle(t, idx, &models.SupplyEvent{EventMeta: meta(10, 100, 3, alice), Reserve: dai, OnBehalfOf: alice, Amount: dec("5")})
	before := s.Counts()

	_, err := idx.Handle(context.Background(), &models.SupplyEvent{EventMeta: meta(10, 100, 2, alice), Reserve: dai, OnBehalfOf: alice, Amount: dec("7")})
	require.ErrorIs(err, ledger.ErrOutOfOrder)
	require.Equal(before, s.Counts())
	requireDecimal(t, "5", loadBalance(t, s, alice, dai).PendingSupplied)

	// Other reserves keep their own cursor
	handle(t, idx, &models.SupplyEvent{EventMeta: meta(9, 90, 0, alice), Reserve: usdc, OnBehalfOf: alice, Amount: dec("1")})
}

func TestTokenNotBootstrapped_IsFatal(t *testing.T) {
	cfg := testConfig(true)
	l, err := ledger.New(cfg)
	require.NoError(t, err)
	s := store.NewMemoryStore()
	idx := New(s, l, cfg)

	_, err = idx.Handle(context.Background(), flatRates(meta(1, 1, 0, alice), dai))
	require.ErrorIs(t, err, ledger.ErrTokenNotBootstrapped)
	require.Equal(t, 0, s.Counts()["balances"])
	require.Equal(t, 0, s.Counts()["events"])
}

func TestInvalidEvents(t *testing.T) {
	idx, s := newTestIndexer(t, true)

	_, err := idx.Handle(context.Background(), &models.SupplyEvent{EventMeta: meta(1, 1, 0, alice), Reserve: dai, OnBehalfOf: alice, Amount: dec("-1")})
	require.ErrorIs(t, err, ledger.ErrInvalidEvent)

	_, err = idx.Handle(context.Background(), &models.BorrowEvent{
		EventMeta: meta(1, 1, 1, alice), Reserve: dai, OnBehalfOf: alice, Amount: dec("1"), InterestRateMode: 7,
	})
	require.ErrorIs(t, err, ledger.ErrInvalidEvent)

	_, err = idx.Handle(context.Background(), unknownEvent{})
	require.ErrorIs(t, err, ledger.ErrInvalidEvent)

	require.Equal(t, 0, s.Counts()["balances"])
}

func TestReserveDataUpdate_WithoutSenderWritesNothing(t *testing.T) {
	require := require.New(t)
	idx, s := newTestIndexer(t, true)
	before := s.Counts()

	_, err := idx.Handle(context.Background(), flatRates(meta(2, 200, 0, nullAdr), dai))
	require.ErrorIs(err, ledger.ErrInvalidEvent)
	require.Equal(before, s.Counts())

	// the reserve cursor was not advanced, so the same position is still accepted
	handle(t, idx, flatRates(meta(2, 200, 0, alice), dai))
}

type unknownEvent struct{}

func (unknownEvent) Kind() string           { return "Unknown" }
func (unknownEvent) Meta() models.EventMeta { return models.EventMeta{} }
