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

package database

const (
	// Token queries
	queryGetToken = `
		SELECT id, symbol, name, decimals, borrowers
		FROM tokens
		WHERE id = ?`

	queryUpsertToken = `
		INSERT INTO tokens (id, symbol, name, decimals, borrowers)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			symbol = excluded.symbol,
			name = excluded.name,
			decimals = excluded.decimals,
			borrowers = excluded.borrowers`

	queryListTokens = `
		SELECT id, symbol, name, decimals, borrowers
		FROM tokens
		ORDER BY id`

	// User queries
	queryGetUser = `
		SELECT id, created_at
		FROM users
		WHERE id = ?`

	queryInsertUser = `
		INSERT INTO users (id, created_at) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING`

	queryListUsers = `
		SELECT id, created_at
		FROM users
		ORDER BY id`

	// Balance queries
	balanceColumns = `id, user_id, token_id, total_supplied, total_borrowed, accrued_interest,
		pending_supplied, pending_withdrawn, pending_repaid, net_supplied, liquidity_index,
		timestamp, block_number`

	queryGetBalance = `
		SELECT ` + balanceColumns + `
		FROM balances
		WHERE id = ?`

	queryUpsertBalance = `
		INSERT INTO balances (` + balanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total_supplied = excluded.total_supplied,
			total_borrowed = excluded.total_borrowed,
			accrued_interest = excluded.accrued_interest,
			pending_supplied = excluded.pending_supplied,
			pending_withdrawn = excluded.pending_withdrawn,
			pending_repaid = excluded.pending_repaid,
			net_supplied = excluded.net_supplied,
			liquidity_index = excluded.liquidity_index,
			timestamp = excluded.timestamp,
			block_number = excluded.block_number,
			updated_at = CURRENT_TIMESTAMP`

	queryListBalancesByUser = `
		SELECT ` + balanceColumns + `
		FROM balances
		WHERE user_id = ?
		ORDER BY token_id`

	// Loan queries
	loanColumns = `id, balance_id, amount, borrow_rate, borrow_type, accrued_interest,
		is_liquidated, timestamp, block_number, accrued_at`

	queryGetLoan = `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE id = ?`

	queryUpsertLoan = `
		INSERT INTO loans (` + loanColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			borrow_rate = excluded.borrow_rate,
			accrued_interest = excluded.accrued_interest,
			is_liquidated = excluded.is_liquidated,
			accrued_at = excluded.accrued_at`

	queryDeleteLoan = `
		DELETE FROM loans WHERE id = ?`

	queryListLoansByBalance = `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE balance_id = ?
		ORDER BY id`

	// Snapshot queries
	snapshotColumns = `id, balance_id, hour, total_supplied, total_borrowed, accrued_interest,
		net_supplied, timestamp, block_number`

	queryGetSnapshot = `
		SELECT ` + snapshotColumns + `
		FROM snapshots
		WHERE id = ?`

	queryUpsertSnapshot = `
		INSERT INTO snapshots (` + snapshotColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total_supplied = excluded.total_supplied,
			total_borrowed = excluded.total_borrowed,
			accrued_interest = excluded.accrued_interest,
			net_supplied = excluded.net_supplied,
			timestamp = excluded.timestamp,
			block_number = excluded.block_number`

	queryListSnapshotsByBalance = `
		SELECT ` + snapshotColumns + `
		FROM snapshots
		WHERE balance_id = ? AND hour >= ? AND hour <= ?
		ORDER BY hour`

	// Ordering queries
	queryGetCursor = `
		SELECT token_id, sequence, last_block, last_log_index, last_reconciled_block
		FROM reserve_cursors
		WHERE token_id = ?`

	queryUpsertCursor = `
		INSERT INTO reserve_cursors (token_id, sequence, last_block, last_log_index, last_reconciled_block)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(token_id) DO UPDATE SET
			sequence = excluded.sequence,
			last_block = excluded.last_block,
			last_log_index = excluded.last_log_index,
			last_reconciled_block = excluded.last_reconciled_block`

	// Journal queries
	queryInsertProcessedEvent = `
		INSERT INTO processed_events (id, event_key, kind, block_number, tx_hash, log_index, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_key) DO NOTHING`
)
