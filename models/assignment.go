package models

import (
	"time"
)

// Assignment statuses.
const (
	AssignmentAssigned  = "assigned"
	AssignmentActive    = "active"
	AssignmentCompleted = "completed"
	AssignmentCancelled = "cancelled"
)

// Assignment is the record behind one busy slot. It is created when a
// reservation succeeds and only ever mutated through the coordinator's
// start/complete/cancel operations; records are never reused.
type Assignment struct {
	ID           string     `bson:"id" json:"id"`
	RequestID    string     `bson:"requestId" json:"requestId"`
	TechnicianID string     `bson:"technicianId" json:"technicianId"`
	ServiceType  string     `bson:"serviceType" json:"serviceType"`
	WindowStart  time.Time  `bson:"windowStart" json:"windowStart"`
	WindowEnd    time.Time  `bson:"windowEnd" json:"windowEnd"`
	Status       string     `bson:"status" json:"status"`
	Outcome      string     `bson:"outcome,omitempty" json:"outcome,omitempty"`
	CancelReason string     `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	AutoAccepted bool       `bson:"autoAccepted" json:"autoAccepted"`
	CreatedAt    time.Time  `bson:"createdAt" json:"createdAt"`
	StartedAt    *time.Time `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	ClosedAt     *time.Time `bson:"closedAt,omitempty" json:"closedAt,omitempty"`
}

// Open reports whether the assignment still holds capacity on its technician.
func (a Assignment) Open() bool {
	return a.Status == AssignmentAssigned || a.Status == AssignmentActive
}
