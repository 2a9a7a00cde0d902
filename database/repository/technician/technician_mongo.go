package technicianRepo

import (
	"context"
	"fmt"
	"log"
	"time"

	"mastermatch/database"
	"mastermatch/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTechnicianRepo implements TechnicianRepository using MongoDB.
type MongoTechnicianRepo struct {
	coll *mongo.Collection
}

// NewMongoTechnicianRepo creates a new instance of TechnicianRepository using MongoDB.
func NewMongoTechnicianRepo() TechnicianRepository {
	coll := database.MongoClient.Database("mastermatch").Collection("technicians")
	repo := &MongoTechnicianRepo{coll: coll}
	if err := repo.ensureIndexes(); err != nil {
		// Index creation is best effort at startup; queries still work.
		log.Printf("technician indexes: %v", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoTechnicianRepo) GetByID(id string) (*models.Technician, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()
	var tech models.Technician
	filter := bson.M{"id": id, "deletedAt": bson.M{"$exists": false}}
	if err := r.coll.FindOne(ctx, filter).Decode(&tech); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch technician with id %s: %w", id, err)
	}
	return &tech, nil
}

func (r *MongoTechnicianRepo) Create(t *models.Technician) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()
	if _, err := r.coll.InsertOne(ctx, t); err != nil {
		return fmt.Errorf("failed to create technician: %w", err)
	}
	return nil
}

func (r *MongoTechnicianRepo) SoftDelete(id string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()
	filter := bson.M{"id": id, "deletedAt": bson.M{"$exists": false}}
	update := bson.M{"$set": bson.M{
		"status":       models.StatusDeleted,
		"onlineStatus": models.OnlineStatusOffline,
		"deletedAt":    time.Now().UTC(),
		"updatedAt":    time.Now().UTC(),
	}}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to soft-delete technician with id %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoTechnicianRepo) CompareAndSetOnlineStatus(id string, from []string, to string, extra bson.M) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	set := bson.M{"onlineStatus": to, "updatedAt": time.Now().UTC()}
	for k, v := range extra {
		set[k] = v
	}
	filter := bson.M{
		"id":           id,
		"onlineStatus": bson.M{"$in": from},
		"deletedAt":    bson.M{"$exists": false},
	}
	result, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to flip online status for technician %s: %w", id, err)
	}
	return result.MatchedCount > 0, nil
}

func (r *MongoTechnicianRepo) CompareAndSetRating(id string, expectedCount int, rating models.Rating) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"id":           id,
		"rating.count": expectedCount,
		"deletedAt":    bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{
		"rating":    rating,
		"updatedAt": time.Now().UTC(),
	}}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to store rating for technician %s: %w", id, err)
	}
	return result.MatchedCount > 0, nil
}
