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

package main

import (
	"context"
	"flag"
	"fmt"
	"math"

	"aave-ledger-go/internal/api"
	"aave-ledger-go/internal/common"
	"aave-ledger-go/internal/config"
	"aave-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers        int
	totalBalances     int
	usersWithBalances int
	violations        int
}

type report struct {
	service  *api.LedgerService
	decimals map[string]int
	ray      decimal.Decimal
	history  bool
}

func (r *report) printBalance(ctx context.Context, userId string, balance models.UserBalance, isLast bool) bool {
	symbol := common.BoxPrefix(isLast)
	detail := common.BoxDetailPrefix(isLast)
	decimals := r.decimals[balance.TokenId]

	check := r.service.CheckInvariant(&models.Balance{
		Id:              balance.BalanceId,
		TotalSupplied:   balance.TotalSupplied,
		TotalBorrowed:   balance.TotalBorrowed,
		AccruedInterest: balance.AccruedInterest,
		NetSupplied:     balance.NetSupplied,
	})
	status := "ok"
	if !check.Ok {
		status = "MISMATCH expected " + common.FormatAmount(check.Expected, decimals)
	}

	fmt.Printf("%s %-6s net %20s (supplied %s, borrowed %s, interest %s)\n",
		symbol,
		balance.Symbol,
		common.FormatAmount(balance.NetSupplied, decimals),
		common.FormatAmount(balance.TotalSupplied, decimals),
		common.FormatAmount(balance.TotalBorrowed, decimals),
		common.FormatAmount(balance.AccruedInterest, decimals))
	fmt.Printf("%s   index %s, loans %d, block %d, invariant %s\n",
		detail, common.FormatRay(balance.LiquidityIndex, r.ray), balance.Loans, balance.BlockNumber, status)

	loans, err := r.service.GetLoans(ctx, userId, balance.TokenId)
	if err != nil {
		zap.L().Error("Failed to get loans", zap.String("balance_id", balance.BalanceId), zap.Error(err))
	}
	for _, loan := range loans {
		fmt.Printf("%s   loan %s: %s + %s interest at %s (mode %d)\n",
			detail, common.ShortId(loan.Id),
			common.FormatAmount(loan.Amount, decimals),
			common.FormatAmount(loan.AccruedInterest, decimals),
			common.FormatRay(loan.BorrowRate, r.ray), loan.BorrowType)
	}

	if r.history {
		series, err := r.service.GetSnapshotSeries(ctx, userId, balance.TokenId, 0, math.MaxInt64)
		if err != nil {
			zap.L().Error("Failed to get snapshots", zap.String("balance_id", balance.BalanceId), zap.Error(err))
		}
		for _, snapshot := range series {
			fmt.Printf("%s   %s  net %s  borrowed %s\n",
				detail, common.FormatHour(snapshot.Hour),
				common.FormatAmount(snapshot.NetSupplied, decimals),
				common.FormatAmount(snapshot.TotalBorrowed, decimals))
		}
	}

	return check.Ok
}

func printUserHeader(userId string, balanceCount int) {
	fmt.Printf("\n┌─ User: %s\n", userId)
	fmt.Printf("│  Reserves: %d\n", balanceCount)
	common.PrintBoxSeparator(78)
}

func (r *report) processUser(ctx context.Context, userId string) (int, int, error) {
	balances, err := r.service.GetUserBalances(ctx, userId)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get balances: %w", err)
	}

	if len(balances) == 0 {
		return 0, 0, nil
	}

	printUserHeader(userId, len(balances))
	violations := 0
	for i, balance := range balances {
		if !r.printBalance(ctx, userId, balance, i == len(balances)-1) {
			violations++
		}
	}

	return len(balances), violations, nil
}

func (r *report) run(ctx context.Context, users []string, logger *zap.Logger) balanceStats {
	stats := balanceStats{}

	for _, userId := range users {
		stats.totalUsers++

		balanceCount, violations, err := r.processUser(ctx, userId)
		if err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", userId),
				zap.Error(err))
			continue
		}

		if balanceCount > 0 {
			stats.usersWithBalances++
			stats.totalBalances += balanceCount
			stats.violations += violations
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "Filter by a single user address (optional)")
	historyFlag := flag.Bool("history", false, "Print the hourly snapshot series of each balance")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	service := api.NewLedgerService(dbService)
	if err := service.HealthCheck(ctx); err != nil {
		logger.Fatal("Database unavailable", zap.Error(err))
	}

	users, err := common.InitializeUsers(ctx, service, *userFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	r := &report{
		service:  service,
		decimals: make(map[string]int),
		ray:      cfg.Ledger.Ray,
		history:  *historyFlag,
	}
	tokens, err := service.ListTokens(ctx)
	if err != nil {
		logger.Fatal("Failed to list tokens", zap.Error(err))
	}
	for _, token := range tokens {
		r.decimals[token.Id] = token.Decimals
	}

	common.PrintHeader("USER BALANCE REPORT", common.WideWidth)

	stats := r.run(ctx, users, logger)

	summary := fmt.Sprintf("SUMMARY: %d users with balances (%d total balances across %d users queried, %d invariant violations)",
		stats.usersWithBalances, stats.totalBalances, stats.totalUsers, stats.violations)
	common.PrintFooter(summary, common.WideWidth)

	logger.Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_balances", stats.usersWithBalances),
		zap.Int("total_balances", stats.totalBalances),
		zap.Int("invariant_violations", stats.violations))
}
