/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Event kinds as they appear in the feed
const (
	KindBorrow             = "Borrow"
	KindRepay              = "Repay"
	KindSupply             = "Supply"
	KindWithdraw           = "Withdraw"
	KindLiquidationCall    = "LiquidationCall"
	KindReserveDataUpdated = "ReserveDataUpdated"
	KindTransfer           = "Transfer"
)

// EventMeta carries the provenance shared by every event
type EventMeta struct {
	BlockNumber    uint64         `json:"block_number"`
	BlockTimestamp int64          `json:"block_timestamp"`
	TxHash         common.Hash    `json:"tx_hash"`
	TxFrom         common.Address `json:"tx_from"`
	LogIndex       uint           `json:"log_index"`
}

// Event is implemented by every typed pool or aToken event
type Event interface {
	Kind() string
	Meta() EventMeta
}

// EventKey identifies a single delivered log for duplicate detection
func EventKey(e Event) string {
	m := e.Meta()
	return fmt.Sprintf("%s:%d:%s", HashId(m.TxHash), m.LogIndex, e.Kind())
}

// AddressId returns the canonical lowercase hex id used as an entity key
func AddressId(a common.Address) string {
	return strings.ToLower(a.Hex())
}

// HashId returns the canonical lowercase hex form of a transaction hash
func HashId(h common.Hash) string {
	return strings.ToLower(h.Hex())
}

type BorrowEvent struct {
	EventMeta
	Reserve          common.Address
	User             common.Address
	OnBehalfOf       common.Address
	Amount           decimal.Decimal
	InterestRateMode int
	BorrowRate       decimal.Decimal
	Referral         uint16
}

func (e *BorrowEvent) Kind() string    { return KindBorrow }
func (e *BorrowEvent) Meta() EventMeta { return e.EventMeta }

type RepayEvent struct {
	EventMeta
	Reserve    common.Address
	User       common.Address
	Repayer    common.Address
	Amount     decimal.Decimal
	UseATokens bool
}

func (e *RepayEvent) Kind() string    { return KindRepay }
func (e *RepayEvent) Meta() EventMeta { return e.EventMeta }

type SupplyEvent struct {
	EventMeta
	Reserve    common.Address
	User       common.Address
	OnBehalfOf common.Address
	Amount     decimal.Decimal
	Referral   uint16
}

func (e *SupplyEvent) Kind() string    { return KindSupply }
func (e *SupplyEvent) Meta() EventMeta { return e.EventMeta }

type WithdrawEvent struct {
	EventMeta
	Reserve common.Address
	User    common.Address
	To      common.Address
	Amount  decimal.Decimal
}

func (e *WithdrawEvent) Kind() string    { return KindWithdraw }
func (e *WithdrawEvent) Meta() EventMeta { return e.EventMeta }

type LiquidationCallEvent struct {
	EventMeta
	CollateralAsset            common.Address
	DebtAsset                  common.Address
	User                       common.Address
	DebtToCover                decimal.Decimal
	LiquidatedCollateralAmount decimal.Decimal
	Liquidator                 common.Address
	ReceiveAToken              bool
}

func (e *LiquidationCallEvent) Kind() string    { return KindLiquidationCall }
func (e *LiquidationCallEvent) Meta() EventMeta { return e.EventMeta }

// ReserveDataUpdatedEvent carries ray-scaled rates and indices for a reserve
type ReserveDataUpdatedEvent struct {
	EventMeta
	Reserve             common.Address
	LiquidityRate       decimal.Decimal
	StableBorrowRate    decimal.Decimal
	VariableBorrowRate  decimal.Decimal
	LiquidityIndex      decimal.Decimal
	VariableBorrowIndex decimal.Decimal
}

func (e *ReserveDataUpdatedEvent) Kind() string    { return KindReserveDataUpdated }
func (e *ReserveDataUpdatedEvent) Meta() EventMeta { return e.EventMeta }

// TransferEvent is an ERC20 Transfer emitted by a tracked aToken contract
type TransferEvent struct {
	EventMeta
	Token common.Address
	From  common.Address
	To    common.Address
	Value decimal.Decimal
}

func (e *TransferEvent) Kind() string    { return KindTransfer }
func (e *TransferEvent) Meta() EventMeta { return e.EventMeta }
