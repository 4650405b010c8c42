package listener

import (
	"bytes"
	"context"
	"math/big"
	"testing"
	"time"

	"aave-ledger-go/internal/config"
	"aave-ledger-go/internal/dedupe"
	"aave-ledger-go/internal/feed"
	"aave-ledger-go/internal/indexer"
	"aave-ledger-go/internal/ledger"
	"aave-ledger-go/internal/metrics"
	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	dai   = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	aDai  = common.HexToAddress("0x018008bfb33d285247A21d44E50697654f754e63")
	weth  = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func newTestIndexer(t *testing.T, bootstrap bool) (*indexer.Indexer, *store.MemoryStore) {
	t.Helper()
	cfg := config.DefaultLedgerConfig()
	cfg.Assets = []models.TrackedAsset{{Address: dai.Hex(), AToken: aDai.Hex(), Symbol: "DAI", Name: "Dai Stablecoin", Decimals: 18}}

	l, err := ledger.New(cfg)
	require.NoError(t, err)
	s := store.NewMemoryStore()
	idx := indexer.New(s, l, cfg)
	if bootstrap {
		_, err = idx.Bootstrap(context.Background())
		require.NoError(t, err)
	}
	return idx, s
}

func meta(block uint64, logIndex uint) models.EventMeta {
	return models.EventMeta{
		BlockNumber:    block,
		BlockTimestamp: int64(block) * 12,
		TxHash:         common.BigToHash(big.NewInt(int64(block*1000 + uint64(logIndex)))),
		TxFrom:         alice,
		LogIndex:       logIndex,
	}
}

func supply(m models.EventMeta, reserve common.Address, amount int64) *models.SupplyEvent {
	return &models.SupplyEvent{EventMeta: m, Reserve: reserve, OnBehalfOf: alice, Amount: decimal.NewFromInt(amount)}
}

func TestRunClassifiesEvents(t *testing.T) {
	require := require.New(t)
	idx, _ := newTestIndexer(t, true)
	m, err := metrics.NewIngest()
	require.NoError(err)

	first := supply(meta(1, 0), dai, 1000)
	source := feed.NewSliceSource(
		first,
		&models.ReserveDataUpdatedEvent{EventMeta: meta(2, 0), Reserve: dai,
			LiquidityIndex: config.DefaultLedgerConfig().Ray},
		first,
		supply(meta(2, 1), weth, 5),
		supply(meta(1, 5), dai, 10),
		supply(meta(3, 0), dai, -1),
		supply(meta(4, 0), dai, 20),
	)

	var console bytes.Buffer
	listener := New(Config{
		Source:  source,
		Indexer: idx,
		Tracker: dedupe.NewMemoryTracker(time.Hour, 0),
		Metrics: m,
		Console: &console,
	})

	summary, err := listener.Run(context.Background())
	require.NoError(err)
	require.Equal(7, summary.Read)
	require.Equal(3, summary.Applied)
	require.Equal(1, summary.Skipped)
	require.Equal(1, summary.Ignored)
	require.Equal(1, summary.OutOfOrder)
	require.Equal(1, summary.Rejected)
	require.Equal(0, summary.Duplicates)
	require.Equal(uint64(4), summary.LastBlock)

	registry := m.Registry()
	require.NotNil(registry)
	require.Contains(console.String(), "Supply")
	require.Contains(console.String(), metrics.OutcomeOutOfOrder)

	expected := `
# HELP aave_ledger_reconciliations_total number of applied reserve data updates
# TYPE aave_ledger_reconciliations_total counter
aave_ledger_reconciliations_total 1
# HELP aave_ledger_last_block highest block number applied to the ledger
# TYPE aave_ledger_last_block gauge
aave_ledger_last_block 4
`
	require.NoError(testutil.GatherAndCompare(registry, bytes.NewBufferString(expected),
		"aave_ledger_reconciliations_total", "aave_ledger_last_block"))
}

func TestRunJournalDuplicateWithoutTracker(t *testing.T) {
	require := require.New(t)
	idx, s := newTestIndexer(t, true)

	event := supply(meta(1, 0), dai, 100)
	listener := New(Config{Source: feed.NewSliceSource(event, event), Indexer: idx})

	summary, err := listener.Run(context.Background())
	require.NoError(err)
	require.Equal(1, summary.Applied)
	require.Equal(1, summary.Duplicates)
	require.Equal(1, s.Counts()["events"])
}

func TestRunStopsOnMissingToken(t *testing.T) {
	require := require.New(t)
	idx, _ := newTestIndexer(t, false)

	listener := New(Config{
		Source:  feed.NewSliceSource(supply(meta(1, 0), dai, 100), supply(meta(2, 0), dai, 100)),
		Indexer: idx,
	})

	summary, err := listener.Run(context.Background())
	require.ErrorIs(err, ledger.ErrTokenNotBootstrapped)
	require.Equal(1, summary.Read)
	require.Equal(0, summary.Applied)
}

func TestRunCancelled(t *testing.T) {
	require := require.New(t)
	idx, _ := newTestIndexer(t, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	listener := New(Config{Source: feed.NewSliceSource(supply(meta(1, 0), dai, 100)), Indexer: idx})
	summary, err := listener.Run(ctx)
	require.ErrorIs(err, context.Canceled)
	require.Equal(0, summary.Read)
}
