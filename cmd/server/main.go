package main

import (
	"bubble-relay/auth"
	"bubble-relay/infrastructure/http/server"
	"bubble-relay/infrastructure/storage"
	"bubble-relay/internal"
	"bubble-relay/moderation"
	"bubble-relay/observability"
	"bubble-relay/runtime/workers"
	"bubble-relay/services"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
)

// Exit codes reported to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal or a server failure.
// Deferred closes run before main exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage (BadgerDB) & search index (Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	userRepository := storage.NewUserRepository(db, logger)
	clientRepository := storage.NewClientRepository(db, logger)
	sessionRepository := storage.NewSessionRepository(db)
	userIndex := storage.NewUserIndex(blugeWriter, logger)
	keyPackageRepository, err := storage.NewKeyPackageRepository(db, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = keyPackageRepository.Close() }()
	mailboxRepository := storage.NewMailboxRepository(db, logger)

	// 3. Services
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	probe, err := observability.NewProcessProbe()
	if err != nil {
		logger.Warn("Process stats unavailable", "error", err)
	}
	tokens := auth.NewTokenIssuer([]byte(config.JWTSecret))
	gate := auth.NewGate(tokens, sessionRepository, userRepository, logger)
	names, err := moderation.NewNamePolicy(config.ReservedNames)
	if err != nil {
		return exitConfig, err
	}

	relay := server.NewServer(logger, server.Services{
		Auth:        services.NewAuthService(logger, userRepository, sessionRepository, userIndex, tokens, names, config.AuthTokenDuration),
		Users:       services.NewUserService(logger, userRepository, userIndex, names, config.SearchLimit),
		Clients:     services.NewClientService(logger, clientRepository),
		KeyPackages: services.NewKeyPackageService(logger, clientRepository, keyPackageRepository, metrics),
		Mailbox:     services.NewMailboxService(logger, clientRepository, mailboxRepository, metrics),
	}, gate, metrics, probe, config.MaxBodyBytes)

	httpServer := &http.Server{
		Addr:              config.Address(),
		Handler:           relay.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errChan := make(chan error, 3)

	// 4. Background maintenance
	inspector := storage.NewInspector(db)
	sup := workers.NewSupervisor(logger).Add(
		workers.NewValueLogGC(db, logger, config.GCInterval, config.GCDiscardRatio),
		workers.NewPoolReporter(inspector, metrics, logger, config.PoolReportInterval, config.LowPoolThreshold),
	)
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		sup.Run(ctx)
	}()
	defer func() {
		sup.Stop()
		<-supervisorDone
	}()

	// 5. HTTP server
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var debugServer *http.Server
	if logger.Enabled(ctx, slog.LevelDebug) {
		debugServer = &http.Server{
			Addr:              fmt.Sprintf("localhost:%d", config.DebugPort),
			Handler:           internal.NewDebugHandler(inspector, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		logger.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://%s/inspect", debugServer.Addr))
		go func() {
			if err := debugServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("debug server error: %w", err)
			}
		}()
	}

	// 6. Wait for Stop or Error
	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case serveErr = <-errChan:
		logger.Error("Server failed, shutting down", "error", serveErr)
	}

	// 7. Graceful shutdown on both paths: in-flight requests finish before the
	// deferred closes stop workers and storage.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if debugServer != nil {
		if err := debugServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Debug server shutdown", "error", err)
		}
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return exitRuntime, errors.Join(serveErr, fmt.Errorf("http shutdown: %w", err))
	}
	if serveErr != nil {
		return exitRuntime, serveErr
	}
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath).
		WithLogger(storage.NewBadgerLogger(logger))
	if logger.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.INFO)
}
