package ledgerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mastermatch/database"
	"mastermatch/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoLedgerRepo implements LedgerRepository using MongoDB. It owns
// both the technician capacity sub-document and the assignments
// collection, since closing an assignment must touch both.
type MongoLedgerRepo struct {
	techColl       *mongo.Collection
	assignmentColl *mongo.Collection
	singleJobMode  bool
}

// NewMongoLedgerRepo creates a new instance of LedgerRepository using
// MongoDB. With singleJobMode any existing busy slot conflicts with a
// new reservation regardless of window overlap.
func NewMongoLedgerRepo(singleJobMode bool) LedgerRepository {
	db := database.MongoClient.Database("mastermatch")
	return &MongoLedgerRepo{
		techColl:       db.Collection("technicians"),
		assignmentColl: db.Collection("assignments"),
		singleJobMode:  singleJobMode,
	}
}

// reserveFilter builds the conditional filter for TryReserve. The
// availability flip, the capacity check and the overlap guard live in
// one UpdateOne so a concurrent reservation can never interleave.
func (repo *MongoLedgerRepo) reserveFilter(technicianID string, slot models.BusySlot) bson.M {
	filter := bson.M{
		"id":           technicianID,
		"status":       models.StatusActive,
		"onlineStatus": bson.M{"$in": []string{models.OnlineStatusOnline, models.OnlineStatusBusy}},
		"deletedAt":    bson.M{"$exists": false},
		"$expr": bson.M{"$lt": bson.A{
			"$capacity.activeOrders", "$capacity.maxActiveOrders",
		}},
	}
	if repo.singleJobMode {
		filter["capacity.activeOrders"] = 0
	} else {
		filter["capacity.busySlots"] = bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"start": bson.M{"$lt": slot.End},
			"end":   bson.M{"$gt": slot.Start},
		}}}
	}
	return filter
}

func (repo *MongoLedgerRepo) TryReserve(ctx context.Context, technicianID string, slot models.BusySlot) error {
	update := bson.M{
		"$inc":  bson.M{"capacity.activeOrders": 1},
		"$push": bson.M{"capacity.busySlots": slot},
		"$set":  bson.M{"onlineStatus": models.OnlineStatusBusy, "updatedAt": time.Now().UTC()},
	}
	res, err := repo.techColl.UpdateOne(ctx, repo.reserveFilter(technicianID, slot), update)
	if err != nil {
		return fmt.Errorf("reserve update failed for technician %s: %w", technicianID, err)
	}
	if res.MatchedCount == 0 {
		return ErrSlotConflict
	}
	return nil
}

// releasePipeline drops the slot for requestID, recomputes activeOrders
// from the remaining slots and flips busy back to online only when none
// remain. Expressed as a pipeline update so the whole release is the
// same atomic primitive as TryReserve.
func releasePipeline(requestID string) mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "capacity.busySlots", Value: bson.D{
				{Key: "$filter", Value: bson.D{
					{Key: "input", Value: "$capacity.busySlots"},
					{Key: "as", Value: "slot"},
					{Key: "cond", Value: bson.D{
						{Key: "$ne", Value: bson.A{"$$slot.requestId", requestID}},
					}},
				}},
			}},
		}}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "capacity.activeOrders", Value: bson.D{
				{Key: "$size", Value: "$capacity.busySlots"},
			}},
			{Key: "onlineStatus", Value: bson.D{
				{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$and", Value: bson.A{
						bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$size", Value: "$capacity.busySlots"}}, 0}}},
						bson.D{{Key: "$eq", Value: bson.A{"$onlineStatus", models.OnlineStatusBusy}}},
					}}},
					models.OnlineStatusOnline,
					"$onlineStatus",
				}},
			}},
			{Key: "updatedAt", Value: "$$NOW"},
		}}},
	}
}

func (repo *MongoLedgerRepo) Release(ctx context.Context, technicianID, requestID string) error {
	filter := bson.M{
		"id": technicianID,
		"capacity.busySlots": bson.M{"$elemMatch": bson.M{"requestId": requestID}},
	}
	res, err := repo.techColl.UpdateOne(ctx, filter, releasePipeline(requestID))
	if err != nil {
		return fmt.Errorf("release update failed for technician %s: %w", technicianID, err)
	}
	if res.MatchedCount == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (repo *MongoLedgerRepo) ReserveAssignment(ctx context.Context, a *models.Assignment) error {
	client := repo.techColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	slot := models.BusySlot{RequestID: a.RequestID, Start: a.WindowStart, End: a.WindowEnd}

	txnFn := func(sc mongo.SessionContext) error {
		if _, err := repo.assignmentColl.InsertOne(sc, a); err != nil {
			return fmt.Errorf("insert assignment failed: %w", err)
		}

		update := bson.M{
			"$inc":  bson.M{"capacity.activeOrders": 1},
			"$push": bson.M{"capacity.busySlots": slot},
			"$set":  bson.M{"onlineStatus": models.OnlineStatusBusy, "updatedAt": time.Now().UTC()},
		}
		res, err := repo.techColl.UpdateOne(sc, repo.reserveFilter(a.TechnicianID, slot), update)
		if err != nil {
			return fmt.Errorf("reserve update failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrSlotConflict
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		if errors.Is(err, ErrSlotConflict) {
			return ErrSlotConflict
		}
		return fmt.Errorf("reservation transaction failed: %w", err)
	}

	return nil
}
