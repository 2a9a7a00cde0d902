package models

import (
	"time"
)

// Urgency classes.
const (
	UrgencyNormal = "normal"
	UrgencyHigh   = "high"
)

// ServiceRequest is an incoming roadside/repair job to be matched.
type ServiceRequest struct {
	RequestID             string        `bson:"requestId" json:"requestId"`
	ServiceType           string        `bson:"serviceType" json:"serviceType"`
	Location              GeoPoint      `bson:"location" json:"location"`
	Urgency               string        `bson:"urgency" json:"urgency"` // "normal" or "high"
	PreferredTechnicianID string        `bson:"preferredTechnicianId,omitempty" json:"preferredTechnicianId,omitempty"`
	ExcludedTechnicianIDs []string      `bson:"excludedTechnicianIds,omitempty" json:"excludedTechnicianIds,omitempty"`
	VehicleBrand          string        `bson:"vehicleBrand,omitempty" json:"vehicleBrand,omitempty"`
	Amount                float64       `bson:"amount,omitempty" json:"amount,omitempty"`
	ScheduledAt           time.Time     `bson:"scheduledAt,omitzero" json:"scheduledAt,omitzero"` // zero means immediate
	EstimatedDuration     time.Duration `bson:"estimatedDuration,omitempty" json:"estimatedDuration,omitempty"`
	MinRating             float64       `bson:"minRating,omitempty" json:"minRating,omitempty"`
}

// Window returns the busy-slot window the request would occupy.
func (r ServiceRequest) Window(now time.Time, defaultDuration time.Duration) (time.Time, time.Time) {
	start := r.ScheduledAt
	if start.IsZero() {
		start = now
	}
	dur := r.EstimatedDuration
	if dur <= 0 {
		dur = defaultDuration
	}
	return start, start.Add(dur)
}
