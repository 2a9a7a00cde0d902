package ledgerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mastermatch/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (repo *MongoLedgerRepo) GetAssignment(id string) (*models.Assignment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var a models.Assignment
	if err := repo.assignmentColl.FindOne(ctx, bson.M{"id": id}).Decode(&a); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to fetch assignment with id %s: %w", id, err)
	}
	return &a, nil
}

func (repo *MongoLedgerRepo) GetAssignmentByRequestID(requestID string) (*models.Assignment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var a models.Assignment
	if err := repo.assignmentColl.FindOne(ctx, bson.M{"requestId": requestID}).Decode(&a); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to fetch assignment for request %s: %w", requestID, err)
	}
	return &a, nil
}

func (repo *MongoLedgerRepo) StartAssignment(ctx context.Context, id string, at time.Time) error {
	filter := bson.M{"id": id, "status": models.AssignmentAssigned}
	update := bson.M{"$set": bson.M{
		"status":    models.AssignmentActive,
		"startedAt": at,
	}}
	res, err := repo.assignmentColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to start assignment %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

// CloseAssignment closes an open assignment, releases the busy slot and
// bumps the technician's lifetime counters in one transaction. The
// assignment status guard makes the close idempotent: a second close
// matches nothing and reports ErrAssignmentNotFound without touching
// capacity again.
func (repo *MongoLedgerRepo) CloseAssignment(ctx context.Context, id, status, detail string, at time.Time) (*models.Assignment, error) {
	if status != models.AssignmentCompleted && status != models.AssignmentCancelled {
		return nil, fmt.Errorf("invalid close status %q", status)
	}

	a, err := repo.GetAssignment(id)
	if err != nil {
		return nil, err
	}
	if !a.Open() {
		return nil, ErrAssignmentNotFound
	}

	client := repo.techColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	set := bson.M{"status": status, "closedAt": at}
	if status == models.AssignmentCompleted {
		set["outcome"] = detail
	} else {
		set["cancelReason"] = detail
	}

	counters := bson.M{"stats.lifetime.totalOrders": 1}
	if status == models.AssignmentCompleted {
		counters["stats.lifetime.completedOrders"] = 1
		if a.ServiceType != "" {
			counters["stats.lifetime.perService."+a.ServiceType] = 1
		}
	} else {
		counters["stats.lifetime.cancelledOrders"] = 1
	}

	txnFn := func(sc mongo.SessionContext) error {
		res, err := repo.assignmentColl.UpdateOne(sc,
			bson.M{"id": id, "status": bson.M{"$in": []string{models.AssignmentAssigned, models.AssignmentActive}}},
			bson.M{"$set": set},
		)
		if err != nil {
			return fmt.Errorf("close assignment update failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrAssignmentNotFound
		}

		relRes, err := repo.techColl.UpdateOne(sc,
			bson.M{
				"id": a.TechnicianID,
				"capacity.busySlots": bson.M{"$elemMatch": bson.M{"requestId": a.RequestID}},
			},
			releasePipeline(a.RequestID),
		)
		if err != nil {
			return fmt.Errorf("capacity release failed: %w", err)
		}
		if relRes.MatchedCount == 0 {
			return ErrSlotNotFound
		}

		if _, err := repo.techColl.UpdateOne(sc, bson.M{"id": a.TechnicianID}, bson.M{"$inc": counters}); err != nil {
			return fmt.Errorf("counter update failed: %w", err)
		}

		// The today counter is day-keyed: bump when the stored day still
		// matches, reset the sub-document when it rolled over.
		if status == models.AssignmentCompleted {
			today := at.UTC().Format("2006-01-02")
			res, err := repo.techColl.UpdateOne(sc,
				bson.M{"id": a.TechnicianID, "stats.today.date": today},
				bson.M{"$inc": bson.M{"stats.today.orders": 1}},
			)
			if err != nil {
				return fmt.Errorf("today counter update failed: %w", err)
			}
			if res.MatchedCount == 0 {
				if _, err := repo.techColl.UpdateOne(sc,
					bson.M{"id": a.TechnicianID},
					bson.M{"$set": bson.M{"stats.today": models.TodayStats{Date: today, Orders: 1}}},
				); err != nil {
					return fmt.Errorf("today counter reset failed: %w", err)
				}
			}
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
		if errors.Is(err, ErrAssignmentNotFound) || errors.Is(err, ErrSlotNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("close transaction failed: %w", err)
	}

	a.Status = status
	a.ClosedAt = &at
	if status == models.AssignmentCompleted {
		a.Outcome = detail
	} else {
		a.CancelReason = detail
	}
	return a, nil
}
