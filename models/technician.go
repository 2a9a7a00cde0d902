package models

import (
	"time"
)

// Technician lifecycle statuses.
const (
	StatusPendingVerification = "pending_verification"
	StatusVerified            = "verified"
	StatusActive              = "active"
	StatusSuspended           = "suspended"
	StatusBlocked             = "blocked"
	StatusDeleted             = "deleted"
)

// Availability states.
const (
	OnlineStatusOnline  = "online"
	OnlineStatusBusy    = "busy"
	OnlineStatusBreak   = "break"
	OnlineStatusOffline = "offline"
)

// GeoPoint represents a GeoJSON Point.
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`               // Always "Point"
	Coordinates []float64 `bson:"coordinates" json:"coordinates"` // [longitude, latitude]
}

func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

type Profile struct {
	Name        string `bson:"name" json:"name,omitempty"`
	Email       string `bson:"email" json:"email,omitempty"`
	PhoneNumber string `bson:"phoneNumber" json:"phoneNumber,omitempty"`
	Affiliated  bool   `bson:"affiliated" json:"affiliated"` // false for independent masters
}

type Location struct {
	Geo            GeoPoint  `bson:"geo" json:"geo"`
	AccuracyMeters float64   `bson:"accuracyMeters" json:"accuracyMeters,omitempty"`
	UpdatedAt      time.Time `bson:"updatedAt" json:"updatedAt,omitzero"`
}

// ServiceArea is a circular coverage zone. Extended areas may carry a
// surcharge rate; surcharge application itself happens outside the engine.
type ServiceArea struct {
	Center        GeoPoint `bson:"center" json:"center"`
	RadiusKm      float64  `bson:"radiusKm" json:"radiusKm"`
	Extended      bool     `bson:"extended" json:"extended"`
	SurchargeRate float64  `bson:"surchargeRate,omitempty" json:"surchargeRate,omitempty"`
}

// WorkingPeriod is a daily window in minutes from midnight, local time.
type WorkingPeriod struct {
	StartMinute int `bson:"startMinute" json:"startMinute"` // e.g., 480 for 8:00 AM
	EndMinute   int `bson:"endMinute" json:"endMinute"`     // e.g., 1080 for 6:00 PM
}

type VacationWindow struct {
	From     time.Time `bson:"from" json:"from"`
	To       time.Time `bson:"to" json:"to"`
	Approved bool      `bson:"approved" json:"approved"`
}

// BusySlot is a reserved time window representing one outstanding assignment.
type BusySlot struct {
	RequestID string    `bson:"requestId" json:"requestId"`
	Start     time.Time `bson:"start" json:"start"`
	End       time.Time `bson:"end" json:"end"`
}

// Capacity holds the per-technician reservation counters. ActiveOrders
// must always equal len(BusySlots) and never exceed MaxActiveOrders;
// both are mutated only through the capacity ledger.
type Capacity struct {
	MaxActiveOrders int        `bson:"maxActiveOrders" json:"maxActiveOrders"`
	ActiveOrders    int        `bson:"activeOrders" json:"activeOrders"`
	BusySlots       []BusySlot `bson:"busySlots" json:"busySlots,omitempty"`
}

type AutoAccept struct {
	Enabled      bool     `bson:"enabled" json:"enabled"`
	Services     []string `bson:"services,omitempty" json:"services,omitempty"`
	RadiusMeters float64  `bson:"radiusMeters,omitempty" json:"radiusMeters,omitempty"`
	MinAmount    float64  `bson:"minAmount,omitempty" json:"minAmount,omitempty"`
}

type OrderPreferences struct {
	PreferredServices []string   `bson:"preferredServices,omitempty" json:"preferredServices,omitempty"`
	ExcludedServices  []string   `bson:"excludedServices,omitempty" json:"excludedServices,omitempty"`
	PreferredBrands   []string   `bson:"preferredBrands,omitempty" json:"preferredBrands,omitempty"`
	ExcludedBrands    []string   `bson:"excludedBrands,omitempty" json:"excludedBrands,omitempty"`
	AutoAccept        AutoAccept `bson:"autoAccept" json:"autoAccept,omitzero"`
}

// ServiceRating is a rolling average for one service type.
type ServiceRating struct {
	Average float64 `bson:"average" json:"average"`
	Count   int     `bson:"count" json:"count"`
}

// Rating aggregates submitted reviews. The full histogram (keys "1".."5")
// is the source of truth for Average; RecentReviews is a bounded
// display/audit view and never feeds average computation.
type Rating struct {
	Histogram        map[string]int           `bson:"histogram,omitempty" json:"histogram,omitempty"`
	Average          float64                  `bson:"average" json:"average"`
	Count            int                      `bson:"count" json:"count"`
	CategoryAverages map[string]float64       `bson:"categoryAverages,omitempty" json:"categoryAverages,omitempty"`
	ServiceAverages  map[string]ServiceRating `bson:"serviceAverages,omitempty" json:"serviceAverages,omitempty"`
	RecentReviews    []Review                 `bson:"recentReviews,omitempty" json:"recentReviews,omitempty"`
}

// Penalty is a time-decayed reliability deduction. Expired penalties are
// filtered at read time, never purged.
type Penalty struct {
	ID        string    `bson:"id" json:"id"`
	Reason    string    `bson:"reason" json:"reason"`
	Severity  string    `bson:"severity" json:"severity"` // low, medium, high, critical
	Points    float64   `bson:"points" json:"points"`
	IssuedAt  time.Time `bson:"issuedAt" json:"issuedAt"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
}

// ActiveAt reports whether the penalty still contributes at the given instant.
func (p Penalty) ActiveAt(now time.Time) bool {
	return now.Before(p.ExpiresAt)
}

// Reliability is the 0-100 trust metric. CompletionRate and
// CancellationRate derive from lifetime counters; OnTimeRate and
// ResponseRate are maintained by external event feeds and read as stored.
type Reliability struct {
	Score            float64   `bson:"score" json:"score"`
	CompletionRate   float64   `bson:"completionRate" json:"completionRate"`
	OnTimeRate       float64   `bson:"onTimeRate" json:"onTimeRate"`
	ResponseRate     float64   `bson:"responseRate" json:"responseRate"`
	CancellationRate float64   `bson:"cancellationRate" json:"cancellationRate"`
	Penalties        []Penalty `bson:"penalties,omitempty" json:"penalties,omitempty"`
}

type LifetimeStats struct {
	TotalOrders     int            `bson:"totalOrders" json:"totalOrders"`
	CompletedOrders int            `bson:"completedOrders" json:"completedOrders"`
	CancelledOrders int            `bson:"cancelledOrders" json:"cancelledOrders"`
	PerService      map[string]int `bson:"perService,omitempty" json:"perService,omitempty"` // completed orders by service type
}

type TodayStats struct {
	Date          string `bson:"date" json:"date"` // e.g., "2026-08-31"
	Orders        int    `bson:"orders" json:"orders"`
	OnlineMinutes int    `bson:"onlineMinutes" json:"onlineMinutes"`
}

type Statistics struct {
	Lifetime LifetimeStats `bson:"lifetime" json:"lifetime"`
	Today    TodayStats    `bson:"today" json:"today,omitzero"`
}

type Technician struct {
	ID             string                     `bson:"id" json:"id"`
	Profile        Profile                    `bson:"profile" json:"profile"`
	Status         string                     `bson:"status" json:"status"`
	OnlineStatus   string                     `bson:"onlineStatus" json:"onlineStatus"`
	Location       Location                   `bson:"location" json:"location"`
	ServiceAreas   []ServiceArea              `bson:"serviceAreas,omitempty" json:"serviceAreas,omitempty"`
	Services       []string                   `bson:"services" json:"services"` // service types this technician performs
	WorkingHours   map[string][]WorkingPeriod `bson:"workingHours,omitempty" json:"workingHours,omitempty"` // keyed by lowercase weekday
	Vacations      []VacationWindow           `bson:"vacations,omitempty" json:"vacations,omitempty"`
	Capacity       Capacity                   `bson:"capacity" json:"capacity"`
	Preferences    OrderPreferences           `bson:"preferences" json:"preferences,omitzero"`
	Rating         Rating                     `bson:"rating" json:"rating,omitzero"`
	Reliability    Reliability                `bson:"reliability" json:"reliability,omitzero"`
	Stats          Statistics                 `bson:"stats" json:"stats,omitzero"`
	ShiftStartedAt *time.Time                 `bson:"shiftStartedAt,omitempty" json:"shiftStartedAt,omitempty"`
	BreakUntil     *time.Time                 `bson:"breakUntil,omitempty" json:"breakUntil,omitempty"`
	DeletedAt      *time.Time                 `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt      time.Time                  `bson:"createdAt" json:"createdAt,omitzero"`
	UpdatedAt      time.Time                  `bson:"updatedAt" json:"updatedAt,omitzero"`
}

// Candidate is a technician snapshot annotated with distance from the
// request location, as returned by the geo candidate source.
type Candidate struct {
	Technician     Technician `bson:",inline" json:"technician"`
	DistanceMeters float64    `bson:"distance" json:"distanceMeters"`
}
