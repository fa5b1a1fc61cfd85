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

	"batch_transfer/internal/app/bootstrap"
	"batch_transfer/internal/app/service"
	"batch_transfer/internal/infrastructure/configloader"
	"batch_transfer/internal/infrastructure/metrics"
	networkclient "batch_transfer/internal/infrastructure/network/client"
	networkdefinition "batch_transfer/internal/infrastructure/network/definition"
	"batch_transfer/internal/infrastructure/restapi"
	"batch_transfer/internal/infrastructure/signer"
	"batch_transfer/internal/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.yml"
	}
	cfg, err := configloader.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := logger.NewZapLogger(logger.ZapOptions{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize zap logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()
	logger.RouteSlogToZap(zapLogger)
	appLogger := logger.NewSlogAdapter("service", "transferd")

	zapLogger.Info("Configuration loaded", zap.String("path", cfgPath))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	transferMetrics := metrics.NewMetrics(registry)

	store, err := bootstrap.OpenStore(cfg, appLogger, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to open status store", zap.Error(err))
	}
	sigJournal, err := bootstrap.OpenJournal(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to open signature journal", zap.Error(err))
	}

	defs := networkdefinition.NewNetworkDefinitionProvider(appLogger, cfg.Networks)
	backends := networkclient.NewBackendProvider(cfg, defs, appLogger)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), time.Minute)
	engine := bootstrap.BuildEngine(startupCtx, cfg, defs, backends, store, sigJournal, transferMetrics,
		appLogger, signer.TerminalPassphrase("Keystore passphrase: "))
	cancelStartup()
	if len(engine.Orchestrators) == 0 {
		zapLogger.Warn("No network is available, execution endpoints will return 404")
	}

	if sigJournal != nil && cfg.Journal.ReplaySpec != "" {
		replayer := service.NewJournalReplayer(sigJournal, store, appLogger, time.Minute)
		scheduler, err := replayer.Schedule(cfg.Journal.ReplaySpec)
		if err != nil {
			zapLogger.Fatal("Failed to schedule journal replay", zap.Error(err))
		}
		defer scheduler.Stop()
		zapLogger.Info("Journal replay scheduled", zap.String("spec", cfg.Journal.ReplaySpec))
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := restapi.SetupRouter(restapi.RouterDeps{
		Operations:     restapi.NewOperationsHandler(store, zapLogger),
		Execution:      restapi.NewExecutionHandler(engine.Services(), backends, store, zapLogger),
		Gatherer:       registry,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         zapLogger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info(fmt.Sprintf("Server starting on port %s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSecs)*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting")
}
