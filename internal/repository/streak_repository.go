package repository

import (
	"context"
	"time"

	"learning-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type StreakRepository struct {
	Col *mongo.Collection
}

func NewStreakRepository(db *mongo.Database) *StreakRepository {
	return &StreakRepository{Col: db.Collection("streaks")}
}

func (r *StreakRepository) FindByChild(ctx context.Context, childID string) (*models.Streak, error) {
	var streak models.Streak
	if err := r.Col.FindOne(ctx, bson.M{"child_id": childID}).Decode(&streak); err != nil {
		return nil, err
	}
	return &streak, nil
}

// SaveIfLastActive writes the streak only while last_active_date still holds
// the value the caller read, so the day transition is a single atomic
// compare-and-set. Returns false when another request moved the day forward
// first. For a child with no streak row yet, prev is the zero time and the
// row is upserted; a duplicate key on the child_id index means a concurrent
// first activity won.
func (r *StreakRepository) SaveIfLastActive(ctx context.Context, streak *models.Streak, prev time.Time) (bool, error) {
	if streak.ID == "" {
		streak.ID = primitive.NewObjectID().Hex()
	}
	streak.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(prev.IsZero())
	res, err := r.Col.UpdateOne(ctx,
		bson.M{"child_id": streak.ChildID, "last_active_date": prev},
		bson.M{"$set": bson.M{
			"current":           streak.Current,
			"longest":           streak.Longest,
			"last_active_date":  streak.LastActiveDate,
			"freezes_available": streak.FreezesAvailable,
			"updated_at":        streak.UpdatedAt,
		}, "$setOnInsert": bson.M{
			"_id": streak.ID,
		}},
		opts,
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return res.ModifiedCount > 0 || res.UpsertedCount > 0, nil
}

// ConsumeFreeze decrements a freeze credit only when one is available.
// The guard lives in the filter so the check and the decrement are one
// atomic operation.
func (r *StreakRepository) ConsumeFreeze(ctx context.Context, childID string) (bool, error) {
	res, err := r.Col.UpdateOne(ctx,
		bson.M{"child_id": childID, "freezes_available": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"freezes_available": -1}, "$set": bson.M{"updated_at": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// AddFreezes grants freeze credits, e.g. from a badge reward.
func (r *StreakRepository) AddFreezes(ctx context.Context, childID string, count int) error {
	opts := options.Update().SetUpsert(true)
	_, err := r.Col.UpdateOne(ctx,
		bson.M{"child_id": childID},
		bson.M{
			"$inc": bson.M{"freezes_available": count},
			"$set": bson.M{"updated_at": time.Now()},
			"$setOnInsert": bson.M{
				"_id":      primitive.NewObjectID().Hex(),
				"child_id": childID,
			},
		},
		opts,
	)
	return err
}
