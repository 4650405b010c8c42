package feed

import (
	"fmt"
	"strings"

	"aave-ledger-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// record is the wire shape of one feed line. Amounts are unsigned 256-bit
// integers written either in decimal or as 0x-prefixed hex.
type record struct {
	Kind           string `json:"kind"`
	BlockNumber    uint64 `json:"block_number"`
	BlockTimestamp int64  `json:"block_timestamp"`
	TxHash         string `json:"tx_hash"`
	TxFrom         string `json:"tx_from"`
	LogIndex       *uint  `json:"log_index"`
	Args           args   `json:"args"`
}

type args struct {
	Reserve                    string `json:"reserve"`
	User                       string `json:"user"`
	OnBehalfOf                 string `json:"on_behalf_of"`
	Repayer                    string `json:"repayer"`
	To                         string `json:"to"`
	From                       string `json:"from"`
	Token                      string `json:"token"`
	CollateralAsset            string `json:"collateral_asset"`
	DebtAsset                  string `json:"debt_asset"`
	Liquidator                 string `json:"liquidator"`
	Amount                     string `json:"amount"`
	Value                      string `json:"value"`
	BorrowRate                 string `json:"borrow_rate"`
	InterestRateMode           int    `json:"interest_rate_mode"`
	Referral                   uint16 `json:"referral"`
	UseATokens                 bool   `json:"use_a_tokens"`
	DebtToCover                string `json:"debt_to_cover"`
	LiquidatedCollateralAmount string `json:"liquidated_collateral_amount"`
	ReceiveAToken              bool   `json:"receive_a_token"`
	LiquidityRate              string `json:"liquidity_rate"`
	StableBorrowRate           string `json:"stable_borrow_rate"`
	VariableBorrowRate         string `json:"variable_borrow_rate"`
	LiquidityIndex             string `json:"liquidity_index"`
	VariableBorrowIndex        string `json:"variable_borrow_index"`
}

// parser keeps the first field error so decoding reads as a flat list
type parser struct {
	err error
}

func (p *parser) fail(field, value string, reason string) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s %q %s", ErrMalformedRecord, field, value, reason)
	}
}

func (p *parser) address(field, value string) common.Address {
	if !common.IsHexAddress(value) {
		p.fail(field, value, "is not a hex address")
		return common.Address{}
	}
	return common.HexToAddress(value)
}

// optionalAddress allows the field to be empty
func (p *parser) optionalAddress(field, value string) common.Address {
	if value == "" {
		return common.Address{}
	}
	return p.address(field, value)
}

func (p *parser) hash(field, value string) common.Hash {
	b, err := hexutil.Decode(value)
	if err != nil || len(b) != common.HashLength {
		p.fail(field, value, "is not a 32-byte hash")
		return common.Hash{}
	}
	return common.BytesToHash(b)
}

func (p *parser) amount(field, value string) decimal.Decimal {
	if value == "" {
		p.fail(field, value, "is missing")
		return decimal.Zero
	}

	parse := uint256.FromDecimal
	if strings.HasPrefix(value, "0x") {
		parse = uint256.FromHex
	}
	n, err := parse(value)
	if err != nil {
		p.fail(field, value, err.Error())
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.ToBig(), 0)
}

func (r *record) meta(p *parser) models.EventMeta {
	meta := models.EventMeta{
		BlockNumber:    r.BlockNumber,
		BlockTimestamp: r.BlockTimestamp,
		TxHash:         p.hash("tx_hash", r.TxHash),
		TxFrom:         p.optionalAddress("tx_from", r.TxFrom),
	}
	// a zero default would collide with the first log of the transaction
	if r.LogIndex == nil {
		p.fail("log_index", "", "is missing")
	} else {
		meta.LogIndex = *r.LogIndex
	}
	return meta
}

func (r *record) event() (models.Event, error) {
	p := &parser{}
	a := r.Args
	meta := r.meta(p)

	var event models.Event
	switch r.Kind {
	case models.KindBorrow:
		event = &models.BorrowEvent{
			EventMeta:        meta,
			Reserve:          p.address("reserve", a.Reserve),
			User:             p.address("user", a.User),
			OnBehalfOf:       p.address("on_behalf_of", a.OnBehalfOf),
			Amount:           p.amount("amount", a.Amount),
			InterestRateMode: a.InterestRateMode,
			BorrowRate:       p.amount("borrow_rate", a.BorrowRate),
			Referral:         a.Referral,
		}
	case models.KindRepay:
		event = &models.RepayEvent{
			EventMeta:  meta,
			Reserve:    p.address("reserve", a.Reserve),
			User:       p.address("user", a.User),
			Repayer:    p.optionalAddress("repayer", a.Repayer),
			Amount:     p.amount("amount", a.Amount),
			UseATokens: a.UseATokens,
		}
	case models.KindSupply:
		event = &models.SupplyEvent{
			EventMeta:  meta,
			Reserve:    p.address("reserve", a.Reserve),
			User:       p.optionalAddress("user", a.User),
			OnBehalfOf: p.address("on_behalf_of", a.OnBehalfOf),
			Amount:     p.amount("amount", a.Amount),
			Referral:   a.Referral,
		}
	case models.KindWithdraw:
		event = &models.WithdrawEvent{
			EventMeta: meta,
			Reserve:   p.address("reserve", a.Reserve),
			User:      p.address("user", a.User),
			To:        p.optionalAddress("to", a.To),
			Amount:    p.amount("amount", a.Amount),
		}
	case models.KindLiquidationCall:
		event = &models.LiquidationCallEvent{
			EventMeta:                  meta,
			CollateralAsset:            p.address("collateral_asset", a.CollateralAsset),
			DebtAsset:                  p.address("debt_asset", a.DebtAsset),
			User:                       p.address("user", a.User),
			DebtToCover:                p.amount("debt_to_cover", a.DebtToCover),
			LiquidatedCollateralAmount: p.amount("liquidated_collateral_amount", a.LiquidatedCollateralAmount),
			Liquidator:                 p.optionalAddress("liquidator", a.Liquidator),
			ReceiveAToken:              a.ReceiveAToken,
		}
	case models.KindReserveDataUpdated:
		// the sender is the account whose balance gets reconciled
		meta.TxFrom = p.address("tx_from", r.TxFrom)
		event = &models.ReserveDataUpdatedEvent{
			EventMeta:           meta,
			Reserve:             p.address("reserve", a.Reserve),
			LiquidityRate:       p.amount("liquidity_rate", a.LiquidityRate),
			StableBorrowRate:    p.amount("stable_borrow_rate", a.StableBorrowRate),
			VariableBorrowRate:  p.amount("variable_borrow_rate", a.VariableBorrowRate),
			LiquidityIndex:      p.amount("liquidity_index", a.LiquidityIndex),
			VariableBorrowIndex: p.amount("variable_borrow_index", a.VariableBorrowIndex),
		}
	case models.KindTransfer:
		event = &models.TransferEvent{
			EventMeta: meta,
			Token:     p.address("token", a.Token),
			From:      p.address("from", a.From),
			To:        p.address("to", a.To),
			Value:     p.amount("value", a.Value),
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedRecord, r.Kind)
	}

	if p.err != nil {
		return nil, p.err
	}
	return event, nil
}
