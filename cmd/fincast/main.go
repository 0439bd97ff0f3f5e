// Package main is the entry point for the fincast projection engine.
// It wires the portfolio store, rate providers, scenario engine, projection
// cache and simulation service, seeds a demo portfolio when the database is
// empty, runs a default projection and prints it as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/orend/fincast/internal/config"
	"github.com/orend/fincast/internal/database"
	"github.com/orend/fincast/internal/domain"
	"github.com/orend/fincast/internal/modules/portfolio"
	"github.com/orend/fincast/internal/modules/projcache"
	"github.com/orend/fincast/internal/modules/projection"
	"github.com/orend/fincast/internal/modules/rates"
	"github.com/orend/fincast/internal/modules/scenario"
	"github.com/orend/fincast/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fincast: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)
	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting fincast")

	// Two databases: the portfolio store and the ephemeral projection cache
	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	if err != nil {
		return fmt.Errorf("failed to open portfolio database: %w", err)
	}
	defer portfolioDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	defer cacheDB.Close()

	healthCtx, healthCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer healthCancel()
	if err := portfolioDB.HealthCheck(healthCtx); err != nil {
		return fmt.Errorf("portfolio database unhealthy: %w", err)
	}

	// Repositories and services
	portfolioRepo := portfolio.NewRepository(portfolioDB.Conn(), log)
	if err := portfolioRepo.InitSchema(); err != nil {
		return err
	}
	portfolioSvc := portfolio.NewService(portfolioRepo, log)

	rateRepo := rates.NewRepository(portfolioDB.Conn(), log)
	if err := rateRepo.InitSchema(); err != nil {
		return err
	}
	rateProvider := rates.NewProvider(rateRepo, cfg.CPIDriftPct, log)

	cacheStore, err := projcache.NewSQLiteStore(cacheDB.Conn())
	if err != nil {
		return err
	}
	cache := projcache.New(cacheStore, time.Duration(cfg.CacheTTLHours)*time.Hour, log)

	janitor := projcache.NewJanitor(cache, log)
	if err := janitor.Start(cfg.CacheJanitorSchedule); err != nil {
		return err
	}
	defer janitor.Stop()

	applier := scenario.NewApplier(log)
	simulator := projection.NewSimulator(rateProvider, log)
	projectionSvc := projection.NewService(portfolioSvc, applier, simulator, cache, projection.Config{
		DefaultHorizonYears: cfg.DefaultHorizonYears,
		MaxHorizonYears:     cfg.MaxHorizonYears,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	demoUser := "demo"
	if len(cfg.SeedUsers) > 0 {
		demoUser = cfg.SeedUsers[0]
	}
	if cfg.SeedDemoData {
		for _, user := range cfg.SeedUsers {
			seeded, err := portfolioSvc.SeedDemo(user)
			if err != nil {
				return fmt.Errorf("failed to seed demo portfolio for %s: %w", user, err)
			}
			if seeded {
				log.Info().Str("user", user).Msg("Demo portfolio created")
			}
		}
	}

	result, err := projectionSvc.Project(ctx, &domain.ProjectionRequest{UserID: demoUser})
	if err != nil {
		return fmt.Errorf("projection failed: %w", err)
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(encoded))

	log.Info().
		Bool("from_cache", result.FromCache).
		Int("assets", len(result.Assets)).
		Int("loans", len(result.Loans)).
		Msg("Projection complete")

	// Wait for interrupt; the janitor keeps pruning the cache until then
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	// Truncate the WAL files so the next start opens compact databases
	if err := portfolioDB.WALCheckpoint(""); err != nil {
		log.Warn().Err(err).Msg("Portfolio WAL checkpoint failed")
	}
	if err := cacheDB.WALCheckpoint(""); err != nil {
		log.Warn().Err(err).Msg("Cache WAL checkpoint failed")
	}

	return nil
}
