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

	"finbook/internal/config"
	"finbook/internal/database"
	"finbook/internal/logger"
	"finbook/internal/middleware"
	"finbook/internal/router"
	"finbook/internal/seed"
	"finbook/internal/validator"
)

// @title           Finbook API
// @version         1.0
// @description     Finbook keeps a household ledger of bank transactions and the bookkeeping records explaining them.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey PipelineKey
// @in header
// @name X-API-Key

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	validator.Register()

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("failed to close database: %v", err)
		}
	}()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	if appConfig.CategorySeedFile != "" {
		f, err := seed.Load(appConfig.CategorySeedFile)
		if err != nil {
			return err
		}
		if _, err := seed.Apply(dbManager.DB(), f); err != nil {
			return fmt.Errorf("failed to seed categories: %w", err)
		}
	}

	var gate middleware.Gate = middleware.AnyPrincipal
	if len(appConfig.AllowedPrincipals) > 0 {
		gate = middleware.AllowList(appConfig.AllowedPrincipals...)
	}
	if appConfig.PipelineAPIKeyHash == "" {
		log.Warn("PIPELINE_API_KEY_HASH is not set; pipeline import is disabled")
	}

	handler := router.New(dbManager.DB(), router.Options{
		JWTSecret:          []byte(appConfig.JWTSecret),
		Gate:               gate,
		PipelineAPIKeyHash: appConfig.PipelineAPIKeyHash,
		MaxUploadBytes:     appConfig.MaxUploadBytes(),
		RequestLogging:     true,
	})

	srv := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting Finbook server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Infof("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exited")
	return nil
}
