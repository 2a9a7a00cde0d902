package technicianRepo

import (
	"fmt"
	"time"

	"mastermatch/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// FindCandidates runs the geo candidate query: technicians near the
// request point, gated on lifecycle status and availability, matching
// the request filter, annotated with distance in meters. Wall-clock
// gating (working hours, vacations) is applied by the caller — it has
// to be re-evaluated at reservation time anyway.
func (r *MongoTechnicianRepo) FindCandidates(criteria CandidateCriteria) ([]models.Candidate, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	if len(criteria.Center.Coordinates) != 2 {
		return nil, fmt.Errorf("invalid search center coordinates")
	}

	var pipeline mongo.Pipeline

	// 1) $geoNear: must come first to filter+sort by distance.
	pipeline = append(pipeline, bson.D{
		{Key: "$geoNear", Value: bson.D{
			{Key: "near", Value: bson.D{
				{Key: "type", Value: "Point"},
				{Key: "coordinates", Value: criteria.Center.Coordinates},
			}},
			{Key: "distanceField", Value: "distance"},
			{Key: "spherical", Value: true},
			{Key: "maxDistance", Value: criteria.RadiusMeters},
		}},
	})

	// 2) $match: lifecycle + availability gating and the request filter.
	matchFilter := bson.M{
		"status":       models.StatusActive,
		"onlineStatus": models.OnlineStatusOnline,
		"deletedAt":    bson.M{"$exists": false},
		"$expr": bson.M{"$lt": bson.A{
			"$capacity.activeOrders", "$capacity.maxActiveOrders",
		}},
	}
	if criteria.ServiceType != "" {
		matchFilter["services"] = criteria.ServiceType
		matchFilter["preferences.excludedServices"] = bson.M{"$ne": criteria.ServiceType}
	}
	if len(criteria.ExcludedIDs) > 0 {
		matchFilter["id"] = bson.M{"$nin": criteria.ExcludedIDs}
	}
	if criteria.MinRating > 0 {
		matchFilter["rating.average"] = bson.M{"$gte": criteria.MinRating}
	}
	if criteria.VehicleBrand != "" {
		matchFilter["preferences.excludedBrands"] = bson.M{"$ne": criteria.VehicleBrand}
	}
	pipeline = append(pipeline, bson.D{{Key: "$match", Value: matchFilter}})

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("candidate query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var candidates []models.Candidate
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, fmt.Errorf("failed to decode candidates: %w", err)
	}
	return candidates, nil
}
