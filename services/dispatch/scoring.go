package dispatch

import (
	"sort"
	"time"

	"mastermatch/models"
	"mastermatch/services/technician"
)

// RankedCandidate holds a candidate with its computed composite score
// and auto-accept eligibility.
type RankedCandidate struct {
	Candidate  models.Candidate
	Score      float64
	AutoAccept bool
}

// rankCandidates filters the snapshot down to matching-eligible
// technicians and orders them: auto-accept eligibility first, then
// composite score, with distance and id as deterministic tie-breakers.
// The result is truncated to the urgency-dependent top-N before any
// reservation attempt to bound matching latency. Pure function of the
// snapshot and wall clock; safe to run fully in parallel.
func (s *DefaultDispatchService) rankCandidates(req models.ServiceRequest, candidates []models.Candidate, now time.Time) []RankedCandidate {
	ranked := make([]RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		if !technician.IsMatchingEligible(c.Technician, now) {
			continue
		}
		if excludedFromRequest(req, c.Technician) {
			continue
		}
		ranked = append(ranked, RankedCandidate{
			Candidate:  c,
			Score:      s.compositeScore(req, c),
			AutoAccept: autoAcceptEligible(req, c),
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].AutoAccept != ranked[j].AutoAccept {
			return ranked[i].AutoAccept
		}
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Candidate.DistanceMeters != ranked[j].Candidate.DistanceMeters {
			return ranked[i].Candidate.DistanceMeters < ranked[j].Candidate.DistanceMeters
		}
		return ranked[i].Candidate.Technician.ID < ranked[j].Candidate.Technician.ID
	})

	topN := s.Cfg.TopNNormal
	if req.Urgency == models.UrgencyHigh {
		topN = s.Cfg.TopNHigh
	}
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// compositeScore is the weighted ranking value. The proximity term is
// strictly decreasing in distance and bounded above by the search
// radius, so closer technicians always outrank farther ones all else
// equal.
func (s *DefaultDispatchService) compositeScore(req models.ServiceRequest, c models.Candidate) float64 {
	cfg := s.Cfg.Scoring
	t := c.Technician

	proximity := (s.Cfg.SearchRadiusKm*1000 - c.DistanceMeters) / cfg.ProximityDivisor
	experience := float64(t.Stats.Lifetime.PerService[req.ServiceType])

	var brandBonus float64
	if req.VehicleBrand != "" && containsFold(t.Preferences.PreferredBrands, req.VehicleBrand) {
		brandBonus = cfg.BrandMatchBonus
	}

	return cfg.RatingWeight*t.Rating.Average +
		cfg.ReliabilityWeight*t.Reliability.Score +
		proximity +
		cfg.ExperienceWeight*experience +
		brandBonus -
		cfg.ActiveOrderPenalty*float64(t.Capacity.ActiveOrders)
}

// autoAcceptEligible checks the technician-configured rule that grants
// immediate assignment priority without manual confirmation.
func autoAcceptEligible(req models.ServiceRequest, c models.Candidate) bool {
	aa := c.Technician.Preferences.AutoAccept
	if !aa.Enabled {
		return false
	}
	if !containsFold(aa.Services, req.ServiceType) {
		return false
	}
	if aa.RadiusMeters > 0 && c.DistanceMeters > aa.RadiusMeters {
		return false
	}
	if aa.MinAmount > 0 && req.Amount < aa.MinAmount {
		return false
	}
	return true
}

// excludedFromRequest applies the request-side and technician-side
// exclusion lists that the geo query may not have seen (snapshots can
// come from cache).
func excludedFromRequest(req models.ServiceRequest, t models.Technician) bool {
	for _, id := range req.ExcludedTechnicianIDs {
		if id == t.ID {
			return true
		}
	}
	if containsFold(t.Preferences.ExcludedServices, req.ServiceType) {
		return true
	}
	if req.VehicleBrand != "" && containsFold(t.Preferences.ExcludedBrands, req.VehicleBrand) {
		return true
	}
	if t.Capacity.ActiveOrders >= t.Capacity.MaxActiveOrders {
		return true
	}
	return false
}
