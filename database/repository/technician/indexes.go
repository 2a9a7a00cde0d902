package technicianRepo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ensureIndexes creates indexes for frequently used fields in queries.
func (r *MongoTechnicianRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	// Partial index: only technicians currently reservable.
	partialOpts := options.Index().SetPartialFilterExpression(bson.M{
		"onlineStatus": "online",
	})
	onlineIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "onlineStatus", Value: 1}, {Key: "status", Value: 1}},
		Options: partialOpts,
	}
	// Compound geo + status for the candidate pipeline.
	geoCompoundIdx := mongo.IndexModel{
		Keys: bson.D{
			{Key: "location.geo", Value: "2dsphere"},
			{Key: "status", Value: 1},
			{Key: "onlineStatus", Value: 1},
		},
	}

	base := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "services", Value: 1}}},
		{Keys: bson.D{{Key: "rating.average", Value: -1}}},
		{Keys: bson.D{{Key: "capacity.busySlots.requestId", Value: 1}}},
		// keep a simple 2dsphere in case geo is queried alone
		{Keys: bson.D{{Key: "location.geo", Value: "2dsphere"}}},
	}

	indexModels := append(base, onlineIdx, geoCompoundIdx)
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
