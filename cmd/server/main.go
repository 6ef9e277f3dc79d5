package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sheikh-saqib/research-funding-ledger/internal/api"
	"github.com/sheikh-saqib/research-funding-ledger/internal/auth"
	"github.com/sheikh-saqib/research-funding-ledger/internal/config"
	"github.com/sheikh-saqib/research-funding-ledger/internal/events/kafka"
	eventlog "github.com/sheikh-saqib/research-funding-ledger/internal/events/logging"
	interfaces "github.com/sheikh-saqib/research-funding-ledger/internal/interfaces"
	"github.com/sheikh-saqib/research-funding-ledger/internal/ledger"
	"github.com/sheikh-saqib/research-funding-ledger/internal/logger"
	"github.com/sheikh-saqib/research-funding-ledger/internal/money"
	"github.com/sheikh-saqib/research-funding-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/research-funding-ledger/internal/storage/postgres"
	"github.com/sheikh-saqib/research-funding-ledger/internal/storage/sqlite"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Configure logger
	log, err := logger.New(cfg.LogLevel, logger.RotationConfig{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	// 3. Open the store
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	log.Info("store ready", zap.String("store", cfg.Store))

	// 4. Event publisher
	var publisher interfaces.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopicPrefix)
		defer func() {
			if err := kp.Close(); err != nil {
				log.Warn("failed to close kafka writer", zap.Error(err))
			}
		}()
		publisher = kp
		log.Info("publishing events to kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic_prefix", cfg.KafkaTopicPrefix),
		)
	} else {
		publisher = eventlog.NewPublisher(log.Named("events"))
		log.Info("no kafka brokers configured, events written to the debug log")
	}

	units, err := money.NewConverter(cfg.UnitDecimals)
	if err != nil {
		return err
	}
	verifier, err := auth.NewVerifier(auth.Config{
		Audience: cfg.TokenAudience,
		MaxAge:   cfg.TokenMaxAge,
	})
	if err != nil {
		return err
	}

	ledgerService := ledger.NewLedger(store,
		ledger.WithPublisher(publisher),
		ledger.WithLogger(log.Named("ledger")),
	)
	server := api.NewServer(cfg.HTTPAddr, ledgerService, verifier, units, log.Named("api"))

	// 5. Serve until interrupted
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Warn("signal received, shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (interfaces.LedgerStore, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	case config.StoreSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return memory.NewMemoryLedgerStore(), func() {}, nil
	}
}
