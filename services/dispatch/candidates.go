package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	technicianRepo "mastermatch/database/repository/technician"
	"mastermatch/models"
	"mastermatch/utils"

	"go.uber.org/zap"
)

// fetchCandidates asks the geo candidate source for a snapshot of
// technicians near the request, going through the cache accelerator
// first. The snapshot is inherently stale the moment it is produced;
// correctness rests on the reservation step, so a cached snapshot is
// just as good as a fresh one within its short TTL. Cache failures are
// logged and fall through to the geo query — no correctness dependency.
func (s *DefaultDispatchService) fetchCandidates(ctx context.Context, req models.ServiceRequest) ([]models.Candidate, error) {
	criteria := technicianRepo.CandidateCriteria{
		Center:       req.Location,
		RadiusMeters: s.Cfg.SearchRadiusKm * 1000,
		ServiceType:  req.ServiceType,
		ExcludedIDs:  req.ExcludedTechnicianIDs,
		MinRating:    req.MinRating,
		VehicleBrand: req.VehicleBrand,
	}

	cacheKey := s.snapshotCacheKey(criteria)
	if s.CacheClient != nil {
		cached, err := s.CacheClient.Get(ctx, cacheKey).Result()
		if err == nil && cached != "" {
			var candidates []models.Candidate
			if err := json.Unmarshal([]byte(cached), &candidates); err == nil {
				return candidates, nil
			}
			// If unmarshal fails, we fall through to re-computation.
		}
	}

	candidates, err := s.TechRepo.FindCandidates(criteria)
	if err != nil {
		return nil, NewCollaboratorError("candidate search", err)
	}

	if s.CacheClient != nil && len(candidates) > 0 {
		if data, err := json.Marshal(candidates); err == nil {
			ttl := s.Cfg.SnapshotCacheTTL()
			if ttl <= 0 {
				ttl = 30 * time.Second
			}
			if err := s.CacheClient.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
				utils.GetLogger().Debug("snapshot cache write failed", zap.Error(err))
			}
		}
	}

	return candidates, nil
}

// snapshotCacheKey derives a stable key from the search criteria.
func (s *DefaultDispatchService) snapshotCacheKey(criteria technicianRepo.CandidateCriteria) string {
	b, err := json.Marshal(criteria)
	if err != nil {
		return fmt.Sprintf("candidates:%s", criteria.ServiceType)
	}
	return fmt.Sprintf("candidates:%x", b)
}
