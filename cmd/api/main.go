package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/transactiondb/internal/api/handlers"
	"github.com/dvloznov/transactiondb/internal/api/middleware"
	"github.com/dvloznov/transactiondb/internal/config"
	"github.com/dvloznov/transactiondb/internal/gcs"
	"github.com/dvloznov/transactiondb/internal/ipc"
	"github.com/dvloznov/transactiondb/internal/jobs/inmemory"
	"github.com/dvloznov/transactiondb/internal/logger"
	"github.com/dvloznov/transactiondb/internal/service"
	"github.com/dvloznov/transactiondb/internal/store"
)

func main() {
	cfg := config.Load()

	// Parse command-line flags
	var (
		port      = flag.String("port", cfg.Port, "HTTP server port (or set PORT)")
		dbPath    = flag.String("db", cfg.DatabasePath, "Database file to open at startup (or set TXDB_PATH); empty starts unloaded")
		create    = flag.Bool("create", false, "Create the database file if it does not exist")
		logLevel  = flag.String("log-level", cfg.LogLevel, "Log level (or set LOG_LEVEL)")
		logFormat = flag.String("log-format", cfg.LogFormat, "Log format: console or json (or set LOG_FORMAT)")
	)
	flag.Parse()

	cfg.Port, cfg.DatabasePath, cfg.LogLevel, cfg.LogFormat = *port, *dbPath, *logLevel, *logFormat

	// Initialize logger
	if err := cfg.Validate(); err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Invalid configuration")
	}
	log, err := logger.NewWithConfig(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Invalid logging configuration")
	}

	// Initialize the store and the service around it
	st := store.New(store.WithLogger(log))
	svc := service.New(st,
		service.WithLogger(log),
		service.WithStorage(gcs.NewClient(cfg.GCSCredentialsFile)),
	)
	defer svc.CloseDatabase()

	ctx := context.Background()
	if cfg.DatabasePath != "" {
		var ok bool
		if *create {
			ok = svc.CreateDatabase(ctx, cfg.DatabasePath)
		} else {
			ok = svc.LoadDatabase(ctx, cfg.DatabasePath)
		}
		if !ok {
			log.Fatal().Str("path", cfg.DatabasePath).Msg("Failed to open database")
		}
	} else {
		log.Warn().Msg("No database configured - clients must call database:load or database:create")
	}

	// Backup jobs run on an in-memory queue
	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(100, jobStore)
	workerCtx, stopWorkers := context.WithCancel(logger.WithContext(ctx, log))
	defer stopWorkers()
	if err := queue.Start(workerCtx, svc.HandleJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job queue")
	}

	// Initialize handlers
	ipcHandler := handlers.NewIPCHandler(ipc.NewRouter(svc), log)
	jobsHandler := handlers.NewJobsHandler(queue, jobStore, log)
	healthHandler := handlers.NewHealthHandler(svc)
	mux := handlers.NewMux(ipcHandler, jobsHandler, healthHandler)

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.RequestID(log)(
			middleware.Logger(log)(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Backup jobs still running at shutdown")
	}

	log.Info().Msg("Server exited")
}
