package config

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/viper"
)

// ScoringConfig holds the composite score constants. The relative
// weighting between terms is load-bearing for ranking quality; tune
// with care.
type ScoringConfig struct {
	RatingWeight       float64 `mapstructure:"SCORE_RATING_WEIGHT"`
	ReliabilityWeight  float64 `mapstructure:"SCORE_RELIABILITY_WEIGHT"`
	ExperienceWeight   float64 `mapstructure:"SCORE_EXPERIENCE_WEIGHT"`
	BrandMatchBonus    float64 `mapstructure:"SCORE_BRAND_MATCH_BONUS"`
	ActiveOrderPenalty float64 `mapstructure:"SCORE_ACTIVE_ORDER_PENALTY"`
	ProximityDivisor   float64 `mapstructure:"SCORE_PROXIMITY_DIVISOR"`
}

// ReliabilityConfig holds the estimator weights and penalty policy.
// The four rate weights must sum to 1.0.
type ReliabilityConfig struct {
	CompletionWeight   float64 `mapstructure:"RELIABILITY_COMPLETION_WEIGHT"`
	OnTimeWeight       float64 `mapstructure:"RELIABILITY_ONTIME_WEIGHT"`
	ResponseWeight     float64 `mapstructure:"RELIABILITY_RESPONSE_WEIGHT"`
	CancellationWeight float64 `mapstructure:"RELIABILITY_CANCELLATION_WEIGHT"`

	PenaltyExpiryDays    int     `mapstructure:"RELIABILITY_PENALTY_EXPIRY_DAYS"`
	PenaltyLowPoints     float64 `mapstructure:"RELIABILITY_PENALTY_LOW"`
	PenaltyMediumPoints  float64 `mapstructure:"RELIABILITY_PENALTY_MEDIUM"`
	PenaltyHighPoints    float64 `mapstructure:"RELIABILITY_PENALTY_HIGH"`
	PenaltyCriticalPoint float64 `mapstructure:"RELIABILITY_PENALTY_CRITICAL"`
}

// MatchingConfig bundles every tunable the engine consumes read-only.
type MatchingConfig struct {
	Scoring     ScoringConfig     `mapstructure:",squash"`
	Reliability ReliabilityConfig `mapstructure:",squash"`

	SearchRadiusKm      float64 `mapstructure:"MATCH_SEARCH_RADIUS_KM"`
	TopNNormal          int     `mapstructure:"MATCH_TOP_N_NORMAL"`
	TopNHigh            int     `mapstructure:"MATCH_TOP_N_HIGH"`
	SingleJobMode       bool    `mapstructure:"MATCH_SINGLE_JOB_MODE"`
	DefaultJobMinutes   int     `mapstructure:"MATCH_DEFAULT_JOB_MINUTES"`
	SnapshotCacheTTLSec int     `mapstructure:"MATCH_SNAPSHOT_CACHE_TTL_SEC"`
	RecentReviewsCap    int     `mapstructure:"RATING_RECENT_REVIEWS_CAP"`
	MaxBreakMinutes     int     `mapstructure:"AVAILABILITY_MAX_BREAK_MINUTES"`
}

var Matching MatchingConfig

// DefaultMatching returns the built-in tunables. Used as viper defaults
// and directly when the engine is embedded without a loaded config.
func DefaultMatching() MatchingConfig {
	return MatchingConfig{
		Scoring: ScoringConfig{
			RatingWeight:       1000.0,
			ReliabilityWeight:  10.0,
			ExperienceWeight:   5.0,
			BrandMatchBonus:    200.0,
			ActiveOrderPenalty: 100.0,
			ProximityDivisor:   100.0,
		},
		Reliability: ReliabilityConfig{
			CompletionWeight:     0.4,
			OnTimeWeight:         0.3,
			ResponseWeight:       0.2,
			CancellationWeight:   0.1,
			PenaltyExpiryDays:    90,
			PenaltyLowPoints:     5.0,
			PenaltyMediumPoints:  10.0,
			PenaltyHighPoints:    20.0,
			PenaltyCriticalPoint: 50.0,
		},
		SearchRadiusKm:      15.0,
		TopNNormal:          10,
		TopNHigh:            5,
		SingleJobMode:       false,
		DefaultJobMinutes:   60,
		SnapshotCacheTTLSec: 30,
		RecentReviewsCap:    20,
		MaxBreakMinutes:     120,
	}
}

func setMatchingDefaults() {
	d := DefaultMatching()

	viper.SetDefault("SCORE_RATING_WEIGHT", d.Scoring.RatingWeight)
	viper.SetDefault("SCORE_RELIABILITY_WEIGHT", d.Scoring.ReliabilityWeight)
	viper.SetDefault("SCORE_EXPERIENCE_WEIGHT", d.Scoring.ExperienceWeight)
	viper.SetDefault("SCORE_BRAND_MATCH_BONUS", d.Scoring.BrandMatchBonus)
	viper.SetDefault("SCORE_ACTIVE_ORDER_PENALTY", d.Scoring.ActiveOrderPenalty)
	viper.SetDefault("SCORE_PROXIMITY_DIVISOR", d.Scoring.ProximityDivisor)

	viper.SetDefault("RELIABILITY_COMPLETION_WEIGHT", d.Reliability.CompletionWeight)
	viper.SetDefault("RELIABILITY_ONTIME_WEIGHT", d.Reliability.OnTimeWeight)
	viper.SetDefault("RELIABILITY_RESPONSE_WEIGHT", d.Reliability.ResponseWeight)
	viper.SetDefault("RELIABILITY_CANCELLATION_WEIGHT", d.Reliability.CancellationWeight)
	viper.SetDefault("RELIABILITY_PENALTY_EXPIRY_DAYS", d.Reliability.PenaltyExpiryDays)
	viper.SetDefault("RELIABILITY_PENALTY_LOW", d.Reliability.PenaltyLowPoints)
	viper.SetDefault("RELIABILITY_PENALTY_MEDIUM", d.Reliability.PenaltyMediumPoints)
	viper.SetDefault("RELIABILITY_PENALTY_HIGH", d.Reliability.PenaltyHighPoints)
	viper.SetDefault("RELIABILITY_PENALTY_CRITICAL", d.Reliability.PenaltyCriticalPoint)

	viper.SetDefault("MATCH_SEARCH_RADIUS_KM", d.SearchRadiusKm)
	viper.SetDefault("MATCH_TOP_N_NORMAL", d.TopNNormal)
	viper.SetDefault("MATCH_TOP_N_HIGH", d.TopNHigh)
	viper.SetDefault("MATCH_SINGLE_JOB_MODE", d.SingleJobMode)
	viper.SetDefault("MATCH_DEFAULT_JOB_MINUTES", d.DefaultJobMinutes)
	viper.SetDefault("MATCH_SNAPSHOT_CACHE_TTL_SEC", d.SnapshotCacheTTLSec)
	viper.SetDefault("RATING_RECENT_REVIEWS_CAP", d.RecentReviewsCap)
	viper.SetDefault("AVAILABILITY_MAX_BREAK_MINUTES", d.MaxBreakMinutes)
}

// Validate rejects weight tables that would silently skew every score.
// Reliability weights are required to sum to 1.0 exactly (within 1e-6)
// rather than being renormalized.
func (c MatchingConfig) Validate() error {
	sum := c.Reliability.CompletionWeight + c.Reliability.OnTimeWeight +
		c.Reliability.ResponseWeight + c.Reliability.CancellationWeight
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("reliability weights must sum to 1.0, got %.6f", sum)
	}
	if c.Scoring.ProximityDivisor <= 0 {
		return fmt.Errorf("proximity divisor must be positive, got %v", c.Scoring.ProximityDivisor)
	}
	if c.SearchRadiusKm <= 0 {
		return fmt.Errorf("search radius must be positive, got %v", c.SearchRadiusKm)
	}
	if c.TopNNormal <= 0 || c.TopNHigh <= 0 {
		return fmt.Errorf("candidate top-N limits must be positive")
	}
	if c.RecentReviewsCap <= 0 {
		return fmt.Errorf("recent reviews capacity must be positive")
	}
	return nil
}

// PenaltyPoints maps an incident severity to its deduction.
func (c ReliabilityConfig) PenaltyPoints(severity string) (float64, bool) {
	switch severity {
	case "low":
		return c.PenaltyLowPoints, true
	case "medium":
		return c.PenaltyMediumPoints, true
	case "high":
		return c.PenaltyHighPoints, true
	case "critical":
		return c.PenaltyCriticalPoint, true
	}
	return 0, false
}

// PenaltyExpiry returns the active window for new penalties.
func (c ReliabilityConfig) PenaltyExpiry() time.Duration {
	return time.Duration(c.PenaltyExpiryDays) * 24 * time.Hour
}

// SnapshotCacheTTL returns the candidate snapshot cache lifetime.
func (c MatchingConfig) SnapshotCacheTTL() time.Duration {
	return time.Duration(c.SnapshotCacheTTLSec) * time.Second
}
