package main

import (
	"context"
	"flag"

	"aave-ledger-go/internal/common"
	"aave-ledger-go/internal/config"
	"aave-ledger-go/internal/models"

	"go.uber.org/zap"
)

func loadConfig(assetsFile string) (*models.Config, error) {
	if assetsFile == "" {
		return config.Load()
	}

	cfg, err := config.LoadWithoutAssets()
	if err != nil {
		return nil, err
	}
	assets, err := config.LoadAssetConfig(assetsFile)
	if err != nil {
		return nil, err
	}
	cfg.Listener.AssetsFile = assetsFile
	cfg.Ledger.Assets = assets
	return cfg, nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	assetsFlag := flag.String("assets", "", "Path to the tracked assets file (default: $ASSETS_FILE)")
	flag.Parse()

	cfg, err := loadConfig(*assetsFlag)
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Asset configuration loaded",
		zap.String("file", cfg.Listener.AssetsFile),
		zap.Int("count", len(cfg.Ledger.Assets)))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	created, err := services.Indexer.Bootstrap(ctx)
	if err != nil {
		zap.L().Fatal("Failed to bootstrap tokens", zap.Error(err))
	}

	for _, asset := range services.Indexer.Assets() {
		zap.L().Info("Tracking reserve",
			zap.String("symbol", asset.Symbol),
			zap.String("token", asset.Address),
			zap.String("a_token", asset.AToken))
	}

	zap.L().Info("Initialization complete",
		zap.Int("tokens_created", created),
		zap.Int("tokens_tracked", len(cfg.Ledger.Assets)))
}
