package dispatch

import (
	"context"
	"errors"
	"time"

	ledgerRepo "mastermatch/database/repository/ledger"
	technicianRepo "mastermatch/database/repository/technician"
	"mastermatch/models"
	"mastermatch/services/technician"
	"mastermatch/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MatchAndAssign runs the full matching flow: snapshot, rank, reserve.
// The snapshot is stale by construction and never trusted for
// correctness — every reservation is a conditional update that
// re-checks capacity at the store, and a conflict just moves on to the
// next ranked candidate. No lock is held across the geo-query/scoring
// phase.
func (s *DefaultDispatchService) MatchAndAssign(ctx context.Context, req models.ServiceRequest) (*MatchResult, error) {
	logger := utils.GetLogger()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Urgency == "" {
		req.Urgency = models.UrgencyNormal
	}

	now := s.currentTime()
	attempted := 0

	// A preferred technician gets the first shot; ranked search is the
	// fallback when that reservation conflicts or the technician is
	// ineligible. Only an actual reservation attempt counts.
	if req.PreferredTechnicianID != "" {
		result, tried, err := s.tryPreferred(ctx, req, now)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
		if tried {
			attempted++
		}
	}

	candidates, err := s.fetchCandidates(ctx, req)
	if err != nil {
		return nil, err
	}

	ranked := s.rankCandidates(req, candidates, now)
	for _, rc := range ranked {
		techID := rc.Candidate.Technician.ID
		if techID == req.PreferredTechnicianID {
			// Already attempted above.
			continue
		}

		// Eligibility was judged against the snapshot clock; a schedule
		// boundary or vacation start may have passed since. Re-check on a
		// fresh read of the clock before committing capacity.
		attemptNow := s.currentTime()
		if !technician.IsMatchingEligible(rc.Candidate.Technician, attemptNow) {
			continue
		}
		attempted++

		assignment, err := s.reserve(ctx, req, techID, rc.AutoAccept, attemptNow)
		if err != nil {
			if errors.Is(err, ledgerRepo.ErrSlotConflict) {
				// Stale snapshot or concurrent winner; next candidate.
				continue
			}
			return nil, err
		}

		// The caller may have given up while we were reserving; an
		// abandoned request must not keep holding the slot.
		if ctx.Err() != nil {
			s.releaseOrphan(assignment)
			return nil, ctx.Err()
		}

		logger.Info("request assigned",
			zap.String("requestId", req.RequestID),
			zap.String("technicianId", techID),
			zap.Int("attempted", attempted),
			zap.Bool("autoAccepted", rc.AutoAccept))
		return &MatchResult{
			TechnicianID: techID,
			Assignment:   *assignment,
			AutoAccepted: rc.AutoAccept,
			Attempted:    attempted,
		}, nil
	}

	logger.Info("no technician available",
		zap.String("requestId", req.RequestID),
		zap.Int("candidates", len(ranked)),
		zap.Int("attempted", attempted))
	return nil, NewNoTechnicianError(req.RequestID, attempted)
}

// tryPreferred attempts the caller-supplied technician alone. A nil
// result means fall through to ranked search; tried reports whether a
// reservation was actually attempted, so the caller counts only real
// attempts.
func (s *DefaultDispatchService) tryPreferred(ctx context.Context, req models.ServiceRequest, now time.Time) (result *MatchResult, tried bool, err error) {
	tech, err := s.TechRepo.GetByID(req.PreferredTechnicianID)
	if err != nil {
		if errors.Is(err, technicianRepo.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, NewCollaboratorError("preferred technician lookup", err)
	}
	if !technician.IsMatchingEligible(*tech, now) || excludedFromRequest(req, *tech) {
		return nil, false, nil
	}
	if !containsFold(tech.Services, req.ServiceType) {
		return nil, false, nil
	}

	candidate := models.Candidate{Technician: *tech}
	assignment, err := s.reserve(ctx, req, tech.ID, autoAcceptEligible(req, candidate), now)
	if err != nil {
		if errors.Is(err, ledgerRepo.ErrSlotConflict) {
			return nil, true, nil
		}
		return nil, true, err
	}

	if ctx.Err() != nil {
		s.releaseOrphan(assignment)
		return nil, true, ctx.Err()
	}

	utils.GetLogger().Info("request assigned to preferred technician",
		zap.String("requestId", req.RequestID),
		zap.String("technicianId", tech.ID))
	return &MatchResult{
		TechnicianID: tech.ID,
		Assignment:   *assignment,
		AutoAccepted: assignment.AutoAccepted,
		Attempted:    1,
	}, true, nil
}

// reserve claims capacity and creates the assignment record in one
// transaction. ErrSlotConflict passes through untouched so the caller
// can fall to the next candidate; anything else is a collaborator fault.
func (s *DefaultDispatchService) reserve(ctx context.Context, req models.ServiceRequest, technicianID string, autoAccepted bool, now time.Time) (*models.Assignment, error) {
	start, end := req.Window(now, time.Duration(s.Cfg.DefaultJobMinutes)*time.Minute)
	assignment := &models.Assignment{
		ID:           uuid.New().String(),
		RequestID:    req.RequestID,
		TechnicianID: technicianID,
		ServiceType:  req.ServiceType,
		WindowStart:  start,
		WindowEnd:    end,
		Status:       models.AssignmentAssigned,
		AutoAccepted: autoAccepted,
		CreatedAt:    now,
	}

	if err := s.Ledger.ReserveAssignment(ctx, assignment); err != nil {
		if errors.Is(err, ledgerRepo.ErrSlotConflict) {
			return nil, ledgerRepo.ErrSlotConflict
		}
		return nil, NewCollaboratorError("reservation", err)
	}
	return assignment, nil
}

// releaseOrphan cleans up a reservation whose request was cancelled
// between the reserve and the reply. Detached from the caller's dead
// context on purpose.
func (s *DefaultDispatchService) releaseOrphan(a *models.Assignment) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.Ledger.CloseAssignment(ctx, a.ID, models.AssignmentCancelled, "request abandoned", time.Now().UTC()); err != nil {
		utils.GetLogger().Error("failed to release orphaned reservation",
			zap.String("assignmentId", a.ID),
			zap.String("technicianId", a.TechnicianID),
			zap.Error(err))
	}
}
