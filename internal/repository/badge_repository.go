package repository

import (
	"context"

	"learning-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BadgeRepository struct {
	Col *mongo.Collection
}

func NewBadgeRepository(db *mongo.Database) *BadgeRepository {
	return &BadgeRepository{Col: db.Collection("badges")}
}

func (r *BadgeRepository) FindAll(ctx context.Context) ([]models.Badge, error) {
	cur, err := r.Col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var badges []models.Badge
	for cur.Next(ctx) {
		var b models.Badge
		if err := cur.Decode(&b); err != nil {
			return nil, err
		}
		badges = append(badges, b)
	}
	return badges, cur.Err()
}

func (r *BadgeRepository) FindByCode(ctx context.Context, code string) (*models.Badge, error) {
	var badge models.Badge
	if err := r.Col.FindOne(ctx, bson.M{"_id": code}).Decode(&badge); err != nil {
		return nil, err
	}
	return &badge, nil
}

// SeedDefaults inserts the default catalog, leaving existing codes untouched.
func (r *BadgeRepository) SeedDefaults(ctx context.Context) error {
	opts := options.Update().SetUpsert(true)
	for _, badge := range models.DefaultBadgeCatalog() {
		_, err := r.Col.UpdateOne(ctx,
			bson.M{"_id": badge.Code},
			bson.M{"$setOnInsert": badge},
			opts,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
