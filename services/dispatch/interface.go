package dispatch

import (
	"context"
	"fmt"
	"time"

	"mastermatch/config"
	ledgerRepo "mastermatch/database/repository/ledger"
	technicianRepo "mastermatch/database/repository/technician"
	"mastermatch/models"
	"mastermatch/services/technician"

	"github.com/go-redis/redis/v8"
)

// MatchResult is the successful outcome of MatchAndAssign.
type MatchResult struct {
	TechnicianID string            `json:"technicianId"`
	Assignment   models.Assignment `json:"assignment"`
	AutoAccepted bool              `json:"autoAccepted"`
	// Attempted counts the reservation attempts made, including the
	// winning one, for caller-side diagnostics.
	Attempted int `json:"attempted"`
}

// DispatchService orchestrates candidate selection, capacity
// reservation and the assignment lifecycle.
type DispatchService interface {
	// MatchAndAssign selects the best eligible technician for the
	// request and reserves capacity atomically. Reservation conflicts
	// fall through to the next ranked candidate; an exhausted list
	// yields a NoTechnicianAvailable error.
	MatchAndAssign(ctx context.Context, req models.ServiceRequest) (*MatchResult, error)
	// StartAssignment marks the job acknowledged by the technician.
	StartAssignment(ctx context.Context, assignmentID string) error
	// CompleteAssignment releases capacity and feeds the reliability
	// estimator positively.
	CompleteAssignment(ctx context.Context, assignmentID, outcome string) error
	// CancelAssignment releases capacity and counts against reliability.
	CancelAssignment(ctx context.Context, assignmentID, reason string) error
}

// DefaultDispatchService is the production implementation.
type DefaultDispatchService struct {
	TechRepo    technicianRepo.TechnicianRepository
	Ledger      ledgerRepo.LedgerRepository
	TechSvc     technician.TechnicianService
	CacheClient *redis.Client
	Cfg         config.MatchingConfig

	// clock overrides the wall clock in tests; nil means time.Now.
	clock func() time.Time
}

func (s *DefaultDispatchService) currentTime() time.Time {
	if s.clock != nil {
		return s.clock().UTC()
	}
	return time.Now().UTC()
}

func NewDefaultDispatchService(
	techRepo technicianRepo.TechnicianRepository,
	ledger ledgerRepo.LedgerRepository,
	techSvc technician.TechnicianService,
	cacheClient *redis.Client,
	cfg config.MatchingConfig,
) (*DefaultDispatchService, error) {
	if techRepo == nil || ledger == nil || techSvc == nil {
		return nil, fmt.Errorf("dispatch service initialization error: one or more dependencies are nil")
	}
	return &DefaultDispatchService{
		TechRepo:    techRepo,
		Ledger:      ledger,
		TechSvc:     techSvc,
		CacheClient: cacheClient,
		Cfg:         cfg,
	}, nil
}
