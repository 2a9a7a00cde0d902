package technicianRepo

import (
	"errors"

	"mastermatch/models"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrNotFound is returned when no technician matches the given id.
var ErrNotFound = errors.New("technician not found")

// CandidateCriteria defines the geo candidate source query: technicians
// near a point, inside a radius, passing the request filter. Results
// come back annotated with distance in meters.
type CandidateCriteria struct {
	Center       models.GeoPoint
	RadiusMeters float64
	ServiceType  string
	ExcludedIDs  []string
	MinRating    float64
	VehicleBrand string
}

// TechnicianRepository defines methods for technician data access.
type TechnicianRepository interface {
	// GetByID retrieves a technician by its unique ID. Soft-deleted
	// records are not returned.
	GetByID(id string) (*models.Technician, error)
	// Create inserts a new technician record.
	Create(t *models.Technician) error
	// SoftDelete marks a technician as deleted, retaining the record for audit.
	SoftDelete(id string) error
	// UpdateSet patches fields with a $set document.
	UpdateSet(id string, updateDoc bson.M) error
	// UpdatePush appends to array fields with a $push document.
	UpdatePush(id string, updateDoc bson.M) error
	// CompareAndSetOnlineStatus flips the availability state only if the
	// current state is one of `from`. Returns false when the guard did
	// not match. `extra` fields are $set alongside the flip.
	CompareAndSetOnlineStatus(id string, from []string, to string, extra bson.M) (bool, error)
	// CompareAndSetRating replaces the rating aggregate only if the
	// stored review count still equals expectedCount. Returns false when
	// a concurrent fold won; the caller refolds from a fresh read.
	CompareAndSetRating(id string, expectedCount int, rating models.Rating) (bool, error)
	// IncTodayStats bumps the per-day rolling counters, resetting them
	// first when the stored day key differs from `day`.
	IncTodayStats(id string, day string, orders, onlineMinutes int) error
	// FindCandidates answers the geo candidate source contract.
	FindCandidates(criteria CandidateCriteria) ([]models.Candidate, error)
}
