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
	"github.com/shopspring/decimal"
)

// UserBalance is the read-side view of a user's position in one reserve
type UserBalance struct {
	BalanceId       string          `json:"balance_id"`
	TokenId         string          `json:"token_id"`
	Symbol          string          `json:"symbol"`
	TotalSupplied   decimal.Decimal `json:"total_supplied"`
	TotalBorrowed   decimal.Decimal `json:"total_borrowed"`
	AccruedInterest decimal.Decimal `json:"accrued_interest"`
	NetSupplied     decimal.Decimal `json:"net_supplied"`
	LiquidityIndex  decimal.Decimal `json:"liquidity_index"`
	Loans           int             `json:"loans"`
	BlockNumber     uint64          `json:"block_number"`
	Timestamp       int64           `json:"timestamp"`
}

// InvariantReport compares a stored net supply with the one derived from the totals
type InvariantReport struct {
	BalanceId string          `json:"balance_id"`
	Stored    decimal.Decimal `json:"stored"`
	Expected  decimal.Decimal `json:"expected"`
	Ok        bool            `json:"ok"`
}
