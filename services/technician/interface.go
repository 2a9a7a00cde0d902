package technician

import (
	"fmt"
	"time"

	"mastermatch/config"
	ledgerRepo "mastermatch/database/repository/ledger"
	technicianRepo "mastermatch/database/repository/technician"
	"mastermatch/models"

	"github.com/hibiken/asynq"
)

// TechnicianService manages technician lifecycle, availability and the
// reliability/rating metrics that feed matching.
type TechnicianService interface {
	// Account lifecycle
	CreateTechnician(t *models.Technician) (*models.Technician, error)
	GetTechnicianByID(id string) (*models.Technician, error)
	ChangeStatus(id, to string) error
	DeleteTechnician(id string) error

	// Availability state machine. online<->busy is reserved to the
	// capacity ledger and not reachable from here.
	GoOnline(id string) error
	GoOffline(id string) error
	StartBreak(id string, duration time.Duration) error
	EndBreak(id string) error
	ExpireBreak(id string, deadline time.Time) error
	CloseShift(id string, deadline time.Time) error

	// Metrics feeds
	RecordReview(technicianID string, review models.Review) error
	ReportIncident(technicianID string, incident models.Incident) error
	RecomputeReliability(technicianID string) (float64, error)
}

// DefaultTechnicianService is the production implementation.
type DefaultTechnicianService struct {
	Repo        technicianRepo.TechnicianRepository
	Ledger      ledgerRepo.LedgerRepository
	AsynqClient *asynq.Client
	Cfg         config.MatchingConfig
}

func NewDefaultTechnicianService(
	repo technicianRepo.TechnicianRepository,
	ledger ledgerRepo.LedgerRepository,
	asynqClient *asynq.Client,
	cfg config.MatchingConfig,
) (*DefaultTechnicianService, error) {
	if repo == nil || ledger == nil {
		return nil, fmt.Errorf("technician service initialization error: one or more dependencies are nil")
	}
	return &DefaultTechnicianService{
		Repo:        repo,
		Ledger:      ledger,
		AsynqClient: asynqClient,
		Cfg:         cfg,
	}, nil
}
