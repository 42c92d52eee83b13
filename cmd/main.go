package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/alyeaaah/seventy-five-engine/brackets"
	"github.com/alyeaaah/seventy-five-engine/config"
	"github.com/alyeaaah/seventy-five-engine/db"
	"github.com/alyeaaah/seventy-five-engine/handlers"
	"github.com/alyeaaah/seventy-five-engine/repositories"
	api "github.com/alyeaaah/seventy-five-engine/routes"
	"github.com/alyeaaah/seventy-five-engine/services"
	"github.com/alyeaaah/seventy-five-engine/storage"
)

const lockTimeout = 5 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Score-sheet archival is optional; the engine runs fine without it.
	var uploader storage.FileUploader
	if cfg.R2Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("score-sheet archival disabled, R2 not configured")
	}

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub started")

	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	setRepo := repositories.NewPostgresSetRepository(dbConn)
	setLogRepo := repositories.NewPostgresSetLogRepository(dbConn)
	historyRepo := repositories.NewPostgresMatchHistoryRepository(dbConn)
	pointConfigRepo := repositories.NewPostgresPointConfigRepository(dbConn)
	awardRepo := repositories.NewPostgresPlayerMatchPointRepository(dbConn)
	coinLogRepo := repositories.NewPostgresCoinLogRepository(dbConn)
	groupRepo := repositories.NewPostgresGroupRepository(dbConn)
	groupTeamRepo := repositories.NewPostgresGroupTeamRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	courtFieldRepo := repositories.NewPostgresCourtFieldRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	logger.Info("repositories initialized")

	uow := services.NewSQLUnitOfWork(dbConn)
	locks := services.NewLockManager(lockTimeout)

	ledgerService := services.NewLedgerService(coinLogRepo, playerRepo, logger)
	pointsService := services.NewPointsService(pointConfigRepo, awardRepo, teamRepo, ledgerService, logger)
	bracketService := services.NewBracketService(matchRepo, groupRepo, groupTeamRepo, tournamentRepo, uow, locks, wsHub, logger)
	standingsService := services.NewStandingsService(matchRepo, setRepo, groupRepo, groupTeamRepo, bracketService, uow, locks, wsHub, logger)
	matchService := services.NewMatchService(
		matchRepo, setRepo, setLogRepo, historyRepo, teamRepo, courtFieldRepo,
		pointsService, bracketService, standingsService,
		uow, locks, wsHub, uploader, logger,
	)
	logger.Info("services initialized")

	// Background sweep: finalize groups whose matches have all finished and
	// resolve the knockout slots they feed.
	go func() {
		ticker := time.NewTicker(cfg.GroupSweepInterval)
		defer ticker.Stop()
		logger.Info("group finalize sweeper started", slog.Duration("interval", cfg.GroupSweepInterval))

		for range ticker.C {
			finalized, err := standingsService.SweepFinalizeGroups(context.Background())
			if err != nil {
				logger.Error("group finalize sweep failed", slog.Any("error", err))
				continue
			}
			if finalized > 0 {
				logger.Info("group finalize sweep completed", slog.Int("finalized", finalized))
			}
		}
	}()

	matchHandler := handlers.NewMatchHandler(matchService)
	groupHandler := handlers.NewGroupHandler(standingsService, bracketService)
	tournamentHandler := handlers.NewTournamentHandler(bracketService)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.CORSAllowedOrigins,
		matchHandler,
		groupHandler,
		tournamentHandler,
		ledgerHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
