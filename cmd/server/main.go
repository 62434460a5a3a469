package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/arena-ledger/arena-ledger/internal/api/http"
	"github.com/arena-ledger/arena-ledger/internal/application/engine"
	"github.com/arena-ledger/arena-ledger/internal/application/recon"
	"github.com/arena-ledger/arena-ledger/internal/config"
	"github.com/arena-ledger/arena-ledger/internal/infrastructure/authz"
	"github.com/arena-ledger/arena-ledger/internal/infrastructure/payrail"
	"github.com/arena-ledger/arena-ledger/internal/infrastructure/postgres"
	"github.com/arena-ledger/arena-ledger/internal/infrastructure/registry"
	"github.com/arena-ledger/arena-ledger/internal/infrastructure/sse"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, "internal/migrations"); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	// repositories
	journalRepo := postgres.NewJournalRepository(pool)

	// infrastructure
	resolver := registry.NewClient(cfg.IdentityBaseURL, cfg.ClientTimeout, logger)
	transfer := payrail.NewClient(cfg.PayRailBaseURL, cfg.ClientTimeout, logger)
	roles := authz.NewStatic(cfg.DepositorWallets, cfg.SessionCallerWallets, cfg.AdminWallets)
	eventHub := sse.NewHub()
	defer eventHub.Stop()

	// services
	engineSvc, err := engine.NewService(resolver, transfer, roles, journalRepo, engine.Params{
		PayoutPercentBP: cfg.PayoutPercentBP,
		OwnerIncomeBP:   cfg.OwnerIncomeBP,
		ReferrerBP:      cfg.ReferrerBP,
		PoolBP:          cfg.PoolBP,
		TreasuryWallet:  cfg.TreasuryWallet,
		EscrowWallet:    cfg.EscrowWallet,
		NativeDisabled:  cfg.NativeDisabled,
	}, logger)
	if err != nil {
		log.Fatalf("engine error: %v", err)
	}
	engineSvc.AttachEventSink(eventHub)
	reconSvc := recon.NewService(journalRepo, transfer, logger)

	// API server
	apiServer := httpapi.NewServer(engineSvc, reconSvc, eventHub, cfg.AdminTokenHash)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
