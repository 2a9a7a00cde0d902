package technician

import (
	"fmt"
	"strconv"
	"time"

	ledgerRepo "mastermatch/database/repository/ledger"
	"mastermatch/models"
	"mastermatch/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordReview folds a submitted review into the technician's rating
// aggregate: histogram bucket, lifetime average recomputed from the
// full histogram, incremental category means, the bounded recent-review
// view, and the per-service rolling average. Reviews are immutable, so
// the whole fold happens exactly once per review. The store write is a
// count-keyed compare-and-swap: a concurrent fold bumps the count, the
// swap misses and the fold reruns against the fresh aggregate, so no
// review is ever lost.
func (s *DefaultTechnicianService) RecordReview(technicianID string, review models.Review) error {
	if review.Stars < 1 || review.Stars > 5 {
		return fmt.Errorf("review stars must be within 1..5, got %d", review.Stars)
	}
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}

	// The per-service average keys off the assignment this review is
	// about; a review for an unknown request still counts globally.
	serviceType := ""
	if review.RequestID != "" {
		if a, err := s.Ledger.GetAssignmentByRequestID(review.RequestID); err == nil {
			serviceType = a.ServiceType
		} else if err != ledgerRepo.ErrAssignmentNotFound {
			return fmt.Errorf("failed to resolve assignment for review: %w", err)
		}
	}

	for {
		tech, err := s.Repo.GetByID(technicianID)
		if err != nil {
			return err
		}

		rating := foldReview(tech.Rating, review, s.Cfg.RecentReviewsCap)
		if serviceType != "" {
			rating.ServiceAverages = foldServiceAverage(rating.ServiceAverages, serviceType, float64(review.Stars))
		}

		swapped, err := s.Repo.CompareAndSetRating(technicianID, tech.Rating.Count, rating)
		if err != nil {
			return fmt.Errorf("failed to store rating for technician %s: %w", technicianID, err)
		}
		if swapped {
			utils.GetLogger().Info("review recorded",
				zap.String("technicianId", technicianID),
				zap.Int("stars", review.Stars),
				zap.Float64("average", rating.Average))
			return nil
		}
	}
}

// foldReview applies one review to a rating aggregate. Pure function;
// the histogram, never the bounded recent list, drives the average.
func foldReview(r models.Rating, review models.Review, recentCap int) models.Rating {
	if r.Histogram == nil {
		r.Histogram = make(map[string]int, 5)
	} else {
		// Copy so callers holding the old snapshot are not surprised.
		h := make(map[string]int, len(r.Histogram))
		for k, v := range r.Histogram {
			h[k] = v
		}
		r.Histogram = h
	}
	oldCount := r.Count

	r.Histogram[strconv.Itoa(review.Stars)]++
	r.Count = 0
	sum := 0
	for bucket, count := range r.Histogram {
		stars, err := strconv.Atoi(bucket)
		if err != nil {
			continue
		}
		r.Count += count
		sum += stars * count
	}
	if r.Count > 0 {
		r.Average = float64(sum) / float64(r.Count)
	}

	// Category sub-averages use the incremental mean with the
	// technician's total review count prior to this review.
	if len(review.CategoryScores) > 0 {
		averages := make(map[string]float64, len(r.CategoryAverages))
		for k, v := range r.CategoryAverages {
			averages[k] = v
		}
		for category, score := range review.CategoryScores {
			old := averages[category]
			averages[category] = (old*float64(oldCount) + score) / float64(oldCount+1)
		}
		r.CategoryAverages = averages
	}

	// Bounded display/audit view, oldest evicted first.
	recent := append(append([]models.Review(nil), r.RecentReviews...), review)
	if len(recent) > recentCap {
		recent = recent[len(recent)-recentCap:]
	}
	r.RecentReviews = recent

	return r
}

// foldServiceAverage updates the rolling average for one service type.
func foldServiceAverage(m map[string]models.ServiceRating, serviceType string, stars float64) map[string]models.ServiceRating {
	out := make(map[string]models.ServiceRating, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	cur := out[serviceType]
	out[serviceType] = models.ServiceRating{
		Average: (cur.Average*float64(cur.Count) + stars) / float64(cur.Count+1),
		Count:   cur.Count + 1,
	}
	return out
}
