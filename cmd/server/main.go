// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/uracles/mini-wallet-application/internal/api"
	"github.com/uracles/mini-wallet-application/internal/auth"
	"github.com/uracles/mini-wallet-application/internal/config"
	"github.com/uracles/mini-wallet-application/internal/db"
	"github.com/uracles/mini-wallet-application/internal/logging"
	"github.com/uracles/mini-wallet-application/internal/wallet"
	"github.com/uracles/mini-wallet-application/pkg/ethutils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := logging.Init(cfg.Environment); err != nil {
		log.Fatalf("failed to initialize logging: %v", err)
	}
	defer logging.Sync()

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logging.Error("failed to connect to database", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logging.Error("failed to close database", zap.Error(err))
		}
	}()

	if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		logging.Error("failed to run migrations", zap.Error(err))
		os.Exit(1)
	}

	chain, err := ethutils.Dial(context.Background(), ethutils.Config{
		Network:        cfg.Network,
		ChainID:        cfg.ChainID,
		RPCURL:         cfg.NodeRPCURL,
		ExplorerAPIURL: cfg.ExplorerAPIURL,
		ExplorerAPIKey: cfg.ExplorerAPIKey,
	})
	if err != nil {
		logging.Error("failed to connect to node provider", zap.Error(err))
		os.Exit(1)
	}
	defer chain.Close()

	keybox, err := wallet.NewKeybox(cfg.EncryptionKey)
	if err != nil {
		logging.Error("failed to initialize keybox", zap.Error(err))
		os.Exit(1)
	}

	authSvc := auth.NewService(db.NewUserRepo(gdb), auth.NewTokenManager(cfg.JWTSecret))
	walletSvc := wallet.NewService(
		db.NewWalletRepo(gdb),
		db.NewTransactionRepo(gdb),
		chain,
		keybox,
		cfg.Network,
	)

	limiter := api.NewRateLimiter(cfg.RateLimitWindow, cfg.RateLimitGeneral, cfg.RateLimitAuth, cfg.RateLimitTransfer)
	resolver := api.NewResolver(cfg.IsProduction(), authSvc, walletSvc, limiter)

	schema, err := api.NewSchema(resolver)
	if err != nil {
		logging.Error("failed to build schema", zap.Error(err))
		os.Exit(1)
	}

	pingDB := func(ctx context.Context) error { return db.Ping(ctx, gdb) }

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.NewRouter(cfg, schema, authSvc.Verify, limiter, pingDB),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("server listening",
			zap.Int("port", cfg.Port),
			zap.String("environment", cfg.Environment),
			zap.String("network", cfg.Network))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("server stopped unexpectedly", zap.Error(err))
			os.Exit(1)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logging.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("graceful shutdown failed", zap.Error(err))
	}
}
