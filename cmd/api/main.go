package main

import (
	"fmt"
	"os"

	"famledger/internal/app"
	"famledger/internal/config"
	"famledger/internal/database"
	"famledger/internal/logger"
	"famledger/internal/validator"
)

// @title           FamLedger API
// @version         1.0
// @description     Shared family ledger with category budgets, usage tracking and budget alerts.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
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

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	publisher, err := app.NewPublisher(appConfig)
	if err != nil {
		return fmt.Errorf("failed to connect notification publisher: %w", err)
	}
	defer publisher.Close()

	validator.Register()

	svc := app.NewServices(dbManager.DB(), appConfig, publisher)
	router := app.NewRouter(svc, appConfig.OpsAPIKey)

	if appConfig.OpsAPIKey == "" {
		log.Warn("OPS_API_KEY not set, operator endpoints are disabled")
	}
	log.Infof("Starting FamLedger server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
