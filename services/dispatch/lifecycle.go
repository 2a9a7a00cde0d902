package dispatch

import (
	"context"
	"errors"
	"time"

	ledgerRepo "mastermatch/database/repository/ledger"
	"mastermatch/models"
	"mastermatch/utils"

	"go.uber.org/zap"
)

// StartAssignment moves assigned -> active once the technician
// acknowledges and starts the work.
func (s *DefaultDispatchService) StartAssignment(ctx context.Context, assignmentID string) error {
	if err := s.Ledger.StartAssignment(ctx, assignmentID, time.Now().UTC()); err != nil {
		if errors.Is(err, ledgerRepo.ErrAssignmentNotFound) {
			return err
		}
		return NewCollaboratorError("start assignment", err)
	}
	return nil
}

// CompleteAssignment closes the job: capacity is released and the
// availability flip happens in the same atomic step at the ledger, the
// lifetime counters are bumped, and the reliability score is
// recomputed from the new counters.
func (s *DefaultDispatchService) CompleteAssignment(ctx context.Context, assignmentID, outcome string) error {
	a, err := s.Ledger.CloseAssignment(ctx, assignmentID, models.AssignmentCompleted, outcome, time.Now().UTC())
	if err != nil {
		if errors.Is(err, ledgerRepo.ErrAssignmentNotFound) {
			return err
		}
		return NewCollaboratorError("complete assignment", err)
	}

	if _, err := s.TechSvc.RecomputeReliability(a.TechnicianID); err != nil {
		// The counters are already durable; the next lifecycle event
		// recomputes from them.
		utils.GetLogger().Warn("reliability recompute failed after completion",
			zap.String("technicianId", a.TechnicianID), zap.Error(err))
	}

	utils.GetLogger().Info("assignment completed",
		zap.String("assignmentId", assignmentID),
		zap.String("technicianId", a.TechnicianID),
		zap.String("outcome", outcome))
	return nil
}

// CancelAssignment releases capacity and counts the cancellation
// against the technician's reliability. Allowed at any point before
// completion.
func (s *DefaultDispatchService) CancelAssignment(ctx context.Context, assignmentID, reason string) error {
	a, err := s.Ledger.CloseAssignment(ctx, assignmentID, models.AssignmentCancelled, reason, time.Now().UTC())
	if err != nil {
		if errors.Is(err, ledgerRepo.ErrAssignmentNotFound) {
			return err
		}
		return NewCollaboratorError("cancel assignment", err)
	}

	if _, err := s.TechSvc.RecomputeReliability(a.TechnicianID); err != nil {
		utils.GetLogger().Warn("reliability recompute failed after cancellation",
			zap.String("technicianId", a.TechnicianID), zap.Error(err))
	}

	utils.GetLogger().Info("assignment cancelled",
		zap.String("assignmentId", assignmentID),
		zap.String("technicianId", a.TechnicianID),
		zap.String("reason", reason))
	return nil
}
