package technicianRepo

import (
	"fmt"
	"time"

	"mastermatch/models"

	"go.mongodb.org/mongo-driver/bson"
)

func (r *MongoTechnicianRepo) UpdateSet(id string, updateDoc bson.M) error {
	return r.updateWithOperator(id, "$set", updateDoc)
}

func (r *MongoTechnicianRepo) UpdatePush(id string, updateDoc bson.M) error {
	return r.updateWithOperator(id, "$push", updateDoc)
}

func (r *MongoTechnicianRepo) updateWithOperator(id, operator string, updateDoc bson.M) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	update := bson.M{operator: updateDoc}
	filter := bson.M{"id": id, "deletedAt": bson.M{"$exists": false}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update technician with id %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// IncTodayStats bumps today's rolling counters. The day key is part of
// each mutation: the $inc only matches the current day, and a stale key
// resets the whole sub-document first, so counts from another day are
// never mixed in and a concurrent reset never loses a bump.
func (r *MongoTechnicianRepo) IncTodayStats(id, day string, orders, onlineMinutes int) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	inc := bson.M{}
	if orders != 0 {
		inc["stats.today.orders"] = orders
	}
	if onlineMinutes != 0 {
		inc["stats.today.onlineMinutes"] = onlineMinutes
	}
	if len(inc) == 0 {
		return nil
	}

	alive := bson.M{"$exists": false}
	for attempt := 0; attempt < 2; attempt++ {
		res, err := r.coll.UpdateOne(ctx,
			bson.M{"id": id, "deletedAt": alive, "stats.today.date": day},
			bson.M{"$inc": inc},
		)
		if err != nil {
			return fmt.Errorf("failed to bump today stats for technician %s: %w", id, err)
		}
		if res.MatchedCount > 0 {
			return nil
		}

		res, err = r.coll.UpdateOne(ctx,
			bson.M{"id": id, "deletedAt": alive, "stats.today.date": bson.M{"$ne": day}},
			bson.M{"$set": bson.M{"stats.today": models.TodayStats{
				Date:          day,
				Orders:        orders,
				OnlineMinutes: onlineMinutes,
			}}},
		)
		if err != nil {
			return fmt.Errorf("failed to reset today stats for technician %s: %w", id, err)
		}
		if res.MatchedCount > 0 {
			return nil
		}
		// Another writer reset the day between our two updates; the
		// $inc path matches on the next pass.
	}
	return ErrNotFound
}
