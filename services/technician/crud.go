package technician

import (
	"fmt"
	"time"

	"mastermatch/models"
	"mastermatch/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// allowedTransitions is the technician lifecycle table. Soft deletion is
// handled by DeleteTechnician and allowed from any state.
var allowedTransitions = map[string][]string{
	models.StatusPendingVerification: {models.StatusVerified},
	models.StatusVerified:            {models.StatusActive},
	models.StatusActive:              {models.StatusSuspended, models.StatusBlocked},
	models.StatusSuspended:           {models.StatusActive, models.StatusBlocked},
	models.StatusBlocked:             {models.StatusActive},
}

// CreateTechnician registers a new technician in pending verification.
func (s *DefaultTechnicianService) CreateTechnician(t *models.Technician) (*models.Technician, error) {
	logger := utils.GetLogger()

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Capacity.MaxActiveOrders <= 0 {
		t.Capacity.MaxActiveOrders = 1
	}
	t.Status = models.StatusPendingVerification
	t.OnlineStatus = models.OnlineStatusOffline
	t.Capacity.ActiveOrders = 0
	t.Capacity.BusySlots = nil
	t.Reliability.Score = 100
	t.Reliability.CompletionRate = 100
	t.Reliability.OnTimeRate = 100
	t.Reliability.ResponseRate = 100
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt

	if err := s.Repo.Create(t); err != nil {
		return nil, fmt.Errorf("failed to create technician: %w", err)
	}
	logger.Info("technician created",
		zap.String("technicianId", t.ID),
		zap.String("status", t.Status))
	return t, nil
}

func (s *DefaultTechnicianService) GetTechnicianByID(id string) (*models.Technician, error) {
	tech, err := s.Repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return tech, nil
}

// ChangeStatus applies an administrative or automated trust action to
// the technician lifecycle, validating against the transition table.
// Leaving active also forces the technician offline so a suspended or
// blocked worker cannot remain matchable.
func (s *DefaultTechnicianService) ChangeStatus(id, to string) error {
	tech, err := s.Repo.GetByID(id)
	if err != nil {
		return err
	}

	allowed := false
	for _, next := range allowedTransitions[tech.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return InvalidTransitionError{From: tech.Status, To: to}
	}

	update := bson.M{
		"status":    to,
		"updatedAt": time.Now().UTC(),
	}
	if to != models.StatusActive {
		update["onlineStatus"] = models.OnlineStatusOffline
	}
	if err := s.Repo.UpdateSet(id, update); err != nil {
		return fmt.Errorf("failed to change status for technician %s: %w", id, err)
	}

	utils.GetLogger().Info("technician status changed",
		zap.String("technicianId", id),
		zap.String("from", tech.Status),
		zap.String("to", to))
	return nil
}

// DeleteTechnician soft-deletes the record; it stays in the store for audit.
func (s *DefaultTechnicianService) DeleteTechnician(id string) error {
	if err := s.Repo.SoftDelete(id); err != nil {
		return err
	}
	utils.GetLogger().Info("technician soft-deleted", zap.String("technicianId", id))
	return nil
}
