package database

import (
	"context"
	"math/big"
	"testing"

	"aave-ledger-go/internal/config"
	"aave-ledger-go/internal/indexer"
	"aave-ledger-go/internal/ledger"
	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// The SQLite backend must produce the same ledger as the memory store
func TestLedgerOverSQLite(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	service := setupTestDb(t)

	dai := common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	aDai := common.HexToAddress("0x018008bfb33d285247A21d44E50697654f754e63")
	alice := common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob := common.HexToAddress("0x2222222222222222222222222222222222222222")
	year := int64(config.DefaultSecondsInYear)
	ray := dec("1000000000000000000000000000")
	rate := dec("100000000000000000000000000")

	cfg := config.DefaultLedgerConfig()
	cfg.Assets = []models.TrackedAsset{{Address: dai.Hex(), AToken: aDai.Hex(), Symbol: "DAI", Name: "Dai Stablecoin", Decimals: 18}}
	l, err := ledger.New(cfg)
	require.NoError(err)
	idx := indexer.New(service, l, cfg)
	_, err = idx.Bootstrap(ctx)
	require.NoError(err)

	meta := func(block uint64, ts int64, from common.Address) models.EventMeta {
		return models.EventMeta{BlockNumber: block, BlockTimestamp: ts, TxHash: common.BigToHash(new(big.Int).SetUint64(block)), TxFrom: from}
	}
	rdu := func(block uint64, ts int64, index string) *models.ReserveDataUpdatedEvent {
		return &models.ReserveDataUpdatedEvent{EventMeta: meta(block, ts, alice), Reserve: dai,
			LiquidityIndex: dec(index), StableBorrowRate: rate, VariableBorrowRate: rate}
	}

	events := []models.Event{
		&models.SupplyEvent{EventMeta: meta(1, 100, alice), Reserve: dai, OnBehalfOf: alice, Amount: dec("1000")},
		rdu(2, 100, ray.String()),
		&models.BorrowEvent{EventMeta: meta(3, 100, alice), Reserve: dai, OnBehalfOf: alice, Amount: dec("400"),
			InterestRateMode: models.BorrowTypeVariable, BorrowRate: rate},
		&models.RepayEvent{EventMeta: meta(4, 100+year, alice), Reserve: dai, User: alice, Amount: dec("20")},
		rdu(5, 100+year, "1100000000000000000000000000"),
		&models.TransferEvent{EventMeta: meta(6, 200+year, alice), Token: aDai, From: alice, To: bob, Value: dec("100")},
	}
	for _, event := range events {
		outcome, err := idx.Handle(ctx, event)
		require.NoError(err, event.Kind())
		require.Equal(indexer.OutcomeApplied, outcome)
	}

	_, err = idx.Handle(ctx, events[3])
	require.ErrorIs(err, store.ErrDuplicateEvent)

	require.NoError(service.WithTx(ctx, func(tx store.Tx) error {
		balance, err := tx.GetBalance(ctx, ledger.BalanceId(models.AddressId(alice), models.AddressId(dai)))
		require.NoError(err)
		// 1000 rebased by 1.1, then 100 transferred out
		require.True(balance.TotalSupplied.Equal(dec("1000")), balance.TotalSupplied.String())
		require.True(balance.TotalBorrowed.Equal(dec("400")), balance.TotalBorrowed.String())
		require.True(balance.AccruedInterest.Equal(dec("20")), balance.AccruedInterest.String())
		require.True(balance.NetConsistent())

		loans, err := tx.ListLoansByBalance(ctx, balance.Id)
		require.NoError(err)
		require.Len(loans, 1)
		require.True(loans[0].AccruedInterest.Equal(dec("20")))
		require.Equal(100+year, loans[0].AccruedAt)

		token, err := tx.GetToken(ctx, models.AddressId(dai))
		require.NoError(err)
		require.Equal([]string{models.AddressId(alice)}, token.Borrowers)

		receiver, err := tx.GetBalance(ctx, ledger.BalanceId(models.AddressId(bob), models.AddressId(dai)))
		require.NoError(err)
		require.True(receiver.NetSupplied.Equal(dec("100")))

		snapshots, err := tx.ListSnapshotsByBalance(ctx, balance.Id, 0, 1<<40)
		require.NoError(err)
		require.NotEmpty(snapshots)
		return nil
	}))
}
