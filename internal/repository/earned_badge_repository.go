package repository

import (
	"context"
	"time"

	"learning-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type EarnedBadgeRepository struct {
	Col *mongo.Collection
}

func NewEarnedBadgeRepository(db *mongo.Database) *EarnedBadgeRepository {
	return &EarnedBadgeRepository{Col: db.Collection("earned_badges")}
}

// Insert records the unlock. Returns false when the (child, badge) pair
// already exists: a lost race against another evaluation pass is a benign
// already-earned outcome, never an error.
func (r *EarnedBadgeRepository) Insert(ctx context.Context, earned *models.EarnedBadge) (bool, error) {
	if earned.ID == "" {
		earned.ID = primitive.NewObjectID().Hex()
	}
	if earned.EarnedAt.IsZero() {
		earned.EarnedAt = time.Now()
	}
	_, err := r.Col.InsertOne(ctx, earned)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *EarnedBadgeRepository) FindByChild(ctx context.Context, childID string) ([]models.EarnedBadge, error) {
	cur, err := r.Col.Find(ctx, bson.M{"child_id": childID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var earned []models.EarnedBadge
	for cur.Next(ctx) {
		var e models.EarnedBadge
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		earned = append(earned, e)
	}
	return earned, cur.Err()
}
