package models

import (
	"time"
)

// Review is a customer rating for one completed assignment. Immutable
// once created.
type Review struct {
	ID             string             `bson:"id" json:"id"`
	RequestID      string             `bson:"requestId" json:"requestId"`
	Stars          int                `bson:"stars" json:"stars"` // 1..5
	CategoryScores map[string]float64 `bson:"categoryScores,omitempty" json:"categoryScores,omitempty"`
	Comment        string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}

// Incident is a reported service failure that translates into a
// reliability penalty.
type Incident struct {
	Reason   string `bson:"reason" json:"reason"`
	Severity string `bson:"severity" json:"severity"` // low, medium, high, critical
}
