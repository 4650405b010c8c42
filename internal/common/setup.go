package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"aave-ledger-go/internal/api"
	"aave-ledger-go/internal/database"
	"aave-ledger-go/internal/dedupe"
	"aave-ledger-go/internal/indexer"
	"aave-ledger-go/internal/ledger"
	"aave-ledger-go/internal/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService     *database.Service
	Ledger        *ledger.Ledger
	Indexer       *indexer.Indexer
	LedgerService *api.LedgerService
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the database and wires the ledger, the indexer
// and the read side on top of it
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	l, err := ledger.New(cfg.Ledger)
	if err != nil {
		dbService.Close()
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	zap.L().Info("Ledger initialized",
		zap.Int("tracked_assets", len(cfg.Ledger.Assets)),
		zap.Int64("seconds_in_year", cfg.Ledger.SecondsInYear),
		zap.Int64("snapshot_bucket", cfg.Ledger.SnapshotBucket),
		zap.Bool("dedupe_events", cfg.Ledger.DedupeEvents))

	return &Services{
		DbService:     dbService,
		Ledger:        l,
		Indexer:       indexer.New(dbService, l, cfg.Ledger),
		LedgerService: api.NewLedgerService(dbService),
	}, nil
}

// InitializeDatabaseOnly initializes just the database service
// Useful for read-only operations like querying balances
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

// InitializeTracker builds the processed event tracker named by the config
func InitializeTracker(ctx context.Context, cfg *models.Config) (dedupe.Tracker, error) {
	tracker, err := dedupe.New(ctx, cfg.Dedupe)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dedupe tracker: %w", err)
	}
	zap.L().Info("Dedupe tracker ready",
		zap.String("backend", cfg.Dedupe.Backend),
		zap.Duration("ttl", cfg.Dedupe.Ttl))
	return tracker, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
