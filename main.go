// File: mastermatch/main.go
package main

import (
	"os"
	"os/signal"
	"syscall"

	"mastermatch/config"
	"mastermatch/cron"
	"mastermatch/database"
	"mastermatch/database/repository"
	"mastermatch/services/dispatch"
	"mastermatch/services/technician"
	"mastermatch/utils"

	"github.com/hibiken/asynq"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskQueueDB,
	})
	defer asynqClient.Close()

	// repositories.
	techRepo := repository.NewMongoTechnicianRepo()
	ledger := repository.NewMongoLedgerRepo(config.Matching.SingleJobMode)

	// services.
	techService, err := technician.NewDefaultTechnicianService(techRepo, ledger, asynqClient, config.Matching)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize technician service: %v", err)
	}

	// The dispatch service is the embedding surface for order-management
	// callers; constructing it here fails fast on broken wiring.
	if _, err := dispatch.NewDefaultDispatchService(techRepo, ledger, techService, utils.GetCacheClient(), config.Matching); err != nil {
		logger.Sugar().Fatalf("main: failed to initialize dispatch service: %v", err)
	}

	// Scheduled availability tasks (break expiry, shift auto-close).
	cron.InitAvailabilityWorker(techService)

	logger.Sugar().Info("main: matching engine started")

	// Wait for an OS signal to shut down.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Sugar().Info("main: matching engine stopped gracefully")
}
