package feed

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aave-ledger-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	txHash = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
	dai    = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
	alice  = "0x1111111111111111111111111111111111111111"
	bob    = "0x2222222222222222222222222222222222222222"
)

func line(kind, args string) string {
	return `{"kind":"` + kind + `","block_number":12,"block_timestamp":1700000000,"tx_hash":"` + txHash +
		`","tx_from":"` + alice + `","log_index":3,"args":` + args + `}`
}

func TestDecodeBorrow(t *testing.T) {
	require := require.New(t)

	event, err := Decode([]byte(line(models.KindBorrow,
		`{"reserve":"`+dai+`","user":"`+alice+`","on_behalf_of":"`+alice+`","amount":"1000000000000000000000",`+
			`"interest_rate_mode":2,"borrow_rate":"0x52b7d2dcc80cd2e4000000","referral":7}`)))
	require.NoError(err)

	borrow, ok := event.(*models.BorrowEvent)
	require.True(ok)
	require.Equal(uint64(12), borrow.BlockNumber)
	require.Equal(int64(1700000000), borrow.BlockTimestamp)
	require.Equal(uint(3), borrow.LogIndex)
	require.Equal(common.HexToHash(txHash), borrow.TxHash)
	require.Equal(common.HexToAddress(alice), borrow.TxFrom)
	require.Equal(common.HexToAddress(dai), borrow.Reserve)
	require.Equal(models.BorrowTypeVariable, borrow.InterestRateMode)
	require.Equal(uint16(7), borrow.Referral)
	require.True(borrow.Amount.Equal(decimal.RequireFromString("1000000000000000000000")))
	// 0x52b7d2dcc80cd2e4000000 is 1e26
	require.True(borrow.BorrowRate.Equal(decimal.New(1, 26)), borrow.BorrowRate.String())
}

func TestDecodeEveryKind(t *testing.T) {
	cases := []struct {
		kind string
		args string
	}{
		{models.KindRepay, `{"reserve":"` + dai + `","user":"` + alice + `","repayer":"` + bob + `","amount":"5","use_a_tokens":true}`},
		{models.KindSupply, `{"reserve":"` + dai + `","on_behalf_of":"` + alice + `","amount":"5"}`},
		{models.KindWithdraw, `{"reserve":"` + dai + `","user":"` + alice + `","to":"` + bob + `","amount":"5"}`},
		{models.KindLiquidationCall, `{"collateral_asset":"` + dai + `","debt_asset":"` + dai + `","user":"` + alice +
			`","debt_to_cover":"1","liquidated_collateral_amount":"2","liquidator":"` + bob + `"}`},
		{models.KindReserveDataUpdated, `{"reserve":"` + dai + `","liquidity_rate":"1","stable_borrow_rate":"2",` +
			`"variable_borrow_rate":"3","liquidity_index":"4","variable_borrow_index":"5"}`},
		{models.KindTransfer, `{"token":"` + dai + `","from":"` + alice + `","to":"` + bob + `","value":"0x10"}`},
	}

	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			event, err := Decode([]byte(line(tc.kind, tc.args)))
			require.NoError(t, err)
			require.Equal(t, tc.kind, event.Kind())
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	supply := line(models.KindSupply, `{"reserve":"`+dai+`","on_behalf_of":"`+alice+`","amount":"1"}`)
	rates := line(models.KindReserveDataUpdated, `{"reserve":"`+dai+`","liquidity_rate":"0","stable_borrow_rate":"0",`+
		`"variable_borrow_rate":"0","liquidity_index":"1","variable_borrow_index":"1"}`)

	cases := map[string]string{
		"not json":             `{"kind":`,
		"unknown kind":         line("Flashloan", `{}`),
		"bad address":          line(models.KindSupply, `{"reserve":"0x12","on_behalf_of":"`+alice+`","amount":"1"}`),
		"missing":              line(models.KindSupply, `{"reserve":"`+dai+`","on_behalf_of":"`+alice+`"}`),
		"negative":             line(models.KindSupply, `{"reserve":"`+dai+`","on_behalf_of":"`+alice+`","amount":"-1"}`),
		"fraction":             line(models.KindSupply, `{"reserve":"`+dai+`","on_behalf_of":"`+alice+`","amount":"1.5"}`),
		"over 256 bits":        line(models.KindSupply, `{"reserve":"`+dai+`","on_behalf_of":"`+alice+`","amount":"0x1`+strings.Repeat("0", 64)+`"}`),
		"short hash":           strings.Replace(supply, txHash, "0xabcd", 1),
		"no log index":         strings.Replace(supply, `,"log_index":3`, "", 1),
		"rates without sender": strings.Replace(rates, `"tx_from":"`+alice+`"`, `"tx_from":""`, 1),
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(data))
			require.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestJSONLines(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	supply := line(models.KindSupply, `{"reserve":"`+dai+`","on_behalf_of":"`+alice+`","amount":"1"}`)
	input := supply + "\n\n   \n" + supply + "\n{broken\n"
	source := NewJSONLines(strings.NewReader(input))

	for i := 0; i < 2; i++ {
		event, err := source.Next(ctx)
		require.NoError(err)
		require.Equal(models.KindSupply, event.Kind())
	}

	_, err := source.Next(ctx)
	require.ErrorIs(err, ErrMalformedRecord)
	require.Contains(err.Error(), "line 5")

	_, err = source.Next(ctx)
	require.ErrorIs(err, io.EOF)
}

func TestJSONLinesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := NewJSONLines(strings.NewReader(line(models.KindSupply, `{}`)))
	_, err := source.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestOpen(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "events.jsonl")
	supply := line(models.KindSupply, `{"reserve":"`+dai+`","on_behalf_of":"`+alice+`","amount":"1"}`)
	require.NoError(os.WriteFile(path, []byte(supply+"\n"), 0o600))

	source, err := Open(path)
	require.NoError(err)
	defer source.Close()

	event, err := source.Next(context.Background())
	require.NoError(err)
	require.Equal(models.KindSupply, event.Kind())

	_, err = Open(filepath.Join(t.TempDir(), "missing.jsonl"))
	require.Error(err)
}

func TestSliceSource(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	first := &models.SupplyEvent{Amount: decimal.NewFromInt(1)}
	second := &models.WithdrawEvent{Amount: decimal.NewFromInt(2)}
	source := NewSliceSource(first, second)

	event, err := source.Next(ctx)
	require.NoError(err)
	require.Same(first, event)

	event, err = source.Next(ctx)
	require.NoError(err)
	require.Same(second, event)

	_, err = source.Next(ctx)
	require.ErrorIs(err, io.EOF)
}
