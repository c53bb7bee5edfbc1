// Package main initializes and starts the betterfly sync server,
// setting up configuration, logging, database connections, repositories,
// services, handlers, and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/Quaternijkon/betterfly/internal/config"
	"github.com/Quaternijkon/betterfly/internal/db"
	"github.com/Quaternijkon/betterfly/internal/logger"
	"github.com/Quaternijkon/betterfly/internal/repository"
	"github.com/Quaternijkon/betterfly/internal/server/handler/http"
	"github.com/Quaternijkon/betterfly/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	db.StartTombstoneCleaner(ctx, postgresDB,
		options.CleanerInterval,
		options.TombstoneRetention,
		zapLogger,
	)

	authRepo := repository.NewPostgresAuthRepository(postgresDB)
	syncRepo := repository.NewPostgresSyncRepository(postgresDB)

	authService := service.NewAuthService(authRepo)
	syncService := service.NewSyncService(syncRepo)

	authHandler := &http.AuthHandler{AuthService: authService, Log: zapLogger}
	syncHandler := &http.SyncHandler{SyncService: syncService, Log: zapLogger}

	router := http.NewRouter(authHandler, syncHandler, authService, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	useTLS := options.TLSCert != ""
	if useTLS {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("starting server", zap.String("addr", options.Port), zap.Bool("tls", useTLS))
	if useTLS {
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server failed", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
