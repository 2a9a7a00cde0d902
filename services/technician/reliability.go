package technician

import (
	"fmt"
	"time"

	"mastermatch/config"
	"mastermatch/models"
	"mastermatch/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// ComputeReliability derives the 0-100 reliability score from lifetime
// outcomes and the penalties still active at `now`. Pure function; the
// on-time and response rates are read as stored, they are maintained by
// external event feeds.
func ComputeReliability(t models.Technician, cfg config.ReliabilityConfig, now time.Time) models.Reliability {
	rel := t.Reliability
	total := t.Stats.Lifetime.TotalOrders

	if total == 0 {
		rel.CompletionRate = 100
		rel.CancellationRate = 0
	} else {
		rel.CompletionRate = float64(t.Stats.Lifetime.CompletedOrders) / float64(total) * 100
		rel.CancellationRate = float64(t.Stats.Lifetime.CancelledOrders) / float64(total) * 100
	}

	raw := rel.CompletionRate*cfg.CompletionWeight +
		rel.OnTimeRate*cfg.OnTimeWeight +
		rel.ResponseRate*cfg.ResponseWeight +
		(100-rel.CancellationRate)*cfg.CancellationWeight

	var deduction float64
	for _, p := range rel.Penalties {
		if p.ActiveAt(now) {
			deduction += p.Points
		}
	}

	score := raw - deduction
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	rel.Score = score
	return rel
}

// RecomputeReliability refreshes the stored reliability score from the
// current lifetime counters and penalties. Called after every completed
// or cancelled assignment.
func (s *DefaultTechnicianService) RecomputeReliability(technicianID string) (float64, error) {
	tech, err := s.Repo.GetByID(technicianID)
	if err != nil {
		return 0, err
	}

	rel := ComputeReliability(*tech, s.Cfg.Reliability, time.Now().UTC())
	update := bson.M{
		"reliability.score":            rel.Score,
		"reliability.completionRate":   rel.CompletionRate,
		"reliability.cancellationRate": rel.CancellationRate,
	}
	if err := s.Repo.UpdateSet(technicianID, update); err != nil {
		return 0, fmt.Errorf("failed to store reliability for technician %s: %w", technicianID, err)
	}
	return rel.Score, nil
}

// ReportIncident appends a severity-priced penalty. Penalties are never
// deleted; they stop contributing once expired.
func (s *DefaultTechnicianService) ReportIncident(technicianID string, incident models.Incident) error {
	points, ok := s.Cfg.Reliability.PenaltyPoints(incident.Severity)
	if !ok {
		return fmt.Errorf("unknown incident severity %q", incident.Severity)
	}

	now := time.Now().UTC()
	penalty := models.Penalty{
		ID:        uuid.New().String(),
		Reason:    incident.Reason,
		Severity:  incident.Severity,
		Points:    points,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.Cfg.Reliability.PenaltyExpiry()),
	}
	if err := s.Repo.UpdatePush(technicianID, bson.M{"reliability.penalties": penalty}); err != nil {
		return fmt.Errorf("failed to append penalty for technician %s: %w", technicianID, err)
	}

	if _, err := s.RecomputeReliability(technicianID); err != nil {
		return err
	}

	utils.GetLogger().Warn("incident penalty applied",
		zap.String("technicianId", technicianID),
		zap.String("severity", incident.Severity),
		zap.Float64("points", points))
	return nil
}
