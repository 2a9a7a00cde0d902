package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"mastermatch/config"
	"mastermatch/services/tasks"
	"mastermatch/services/technician"

	"github.com/hibiken/asynq"
)

// InitAvailabilityWorker runs the async worker in background. It
// processes the scheduled availability tasks: break expiry flips a
// technician back online once the bounded break runs out.
func InitAvailabilityWorker(techSvc technician.TechnicianService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeBreakExpire, handleBreakExpiry(techSvc))
	mux.HandleFunc(tasks.TypeShiftClose, handleShiftClose(techSvc))

	// Start async worker with retry logic
	go func() {
		log.Println("[AvailabilityWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[AvailabilityWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[AvailabilityWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

// handleBreakExpiry is idempotent: the service re-checks the stored
// break deadline, so a task scheduled for a break that was already
// ended or replaced is a no-op.
func handleBreakExpiry(techSvc technician.TechnicianService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.BreakExpiryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[AvailabilityWorker] invalid payload: %v", err)
			return err
		}

		if err := techSvc.ExpireBreak(p.TechnicianID, p.Deadline); err != nil {
			log.Printf("[AvailabilityWorker] failed to expire break for %s: %v", p.TechnicianID, err)
			return err
		}
		return nil
	}
}

// handleShiftClose flips the technician offline at the end of the
// working day. Same idempotency contract as break expiry.
func handleShiftClose(techSvc technician.TechnicianService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.ShiftClosePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[AvailabilityWorker] invalid payload: %v", err)
			return err
		}

		if err := techSvc.CloseShift(p.TechnicianID, p.Deadline); err != nil {
			log.Printf("[AvailabilityWorker] failed to close shift for %s: %v", p.TechnicianID, err)
			return err
		}
		return nil
	}
}
