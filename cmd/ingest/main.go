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
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"aave-ledger-go/internal/common"
	"aave-ledger-go/internal/config"
	"aave-ledger-go/internal/feed"
	"aave-ledger-go/internal/listener"
	"aave-ledger-go/internal/metrics"

	"go.uber.org/zap"
)

// closer is satisfied by trackers that own a connection or a cleanup loop
type closer interface{ Close() error }
type stopper interface{ Stop() }

func main() {
	feedFlag := flag.String("feed", "", "Path to a JSON-lines event feed (default: $FEED_PATH)")
	quiet := flag.Bool("quiet", false, "Do not print one line per event")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	feedPath := *feedFlag
	if feedPath == "" {
		feedPath = cfg.Listener.FeedPath
	}
	if feedPath == "" {
		zap.L().Fatal("No event feed given, use -feed or FEED_PATH")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zap.L().Info("Starting Aave ledger ingestion")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if _, err := services.Indexer.Bootstrap(ctx); err != nil {
		zap.L().Fatal("Failed to bootstrap tokens", zap.Error(err))
	}

	tracker, err := common.InitializeTracker(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize tracker", zap.Error(err))
	}
	defer func() {
		switch t := tracker.(type) {
		case stopper:
			t.Stop()
		case closer:
			_ = t.Close()
		}
	}()

	ingestMetrics, err := metrics.NewIngest()
	if err != nil {
		zap.L().Fatal("Failed to register metrics", zap.Error(err))
	}

	source, err := feed.Open(feedPath)
	if err != nil {
		zap.L().Fatal("Failed to open feed", zap.Error(err))
	}
	defer source.Close()

	cfgListener := listener.Config{
		Source:  source,
		Indexer: services.Indexer,
		Tracker: tracker,
		Metrics: ingestMetrics,
	}
	if !*quiet {
		cfgListener.Console = os.Stdout
	}

	summary, runErr := listener.New(cfgListener).Run(ctx)

	if path := cfg.Metrics.TextfilePath; path != "" {
		if err := ingestMetrics.WriteTextfile(path); err != nil {
			zap.L().Error("Failed to write metrics", zap.Error(err))
		} else {
			zap.L().Info("Metrics written", zap.String("file", path))
		}
	}

	common.PrintHeader("INGESTION SUMMARY", common.DefaultWidth)
	fmt.Printf("  events read:      %d\n", summary.Read)
	fmt.Printf("  applied:          %d\n", summary.Applied)
	fmt.Printf("  ignored:          %d\n", summary.Ignored)
	fmt.Printf("  already seen:     %d\n", summary.Skipped)
	fmt.Printf("  duplicates:       %d\n", summary.Duplicates)
	fmt.Printf("  out of order:     %d\n", summary.OutOfOrder)
	fmt.Printf("  rejected:         %d\n", summary.Rejected)
	fmt.Printf("  last block:       %d\n", summary.LastBlock)
	common.PrintFooter(fmt.Sprintf("Completed in %s", summary.Elapsed), common.DefaultWidth)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			zap.L().Warn("Ingestion interrupted", zap.Error(runErr))
			return
		}
		zap.L().Fatal("Ingestion stopped", zap.Error(runErr))
	}
}
