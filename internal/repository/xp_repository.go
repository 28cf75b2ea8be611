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

// XPRepository owns both the append-only ledger and the denormalized
// progress counters so a single award can touch them in one transaction.
type XPRepository struct {
	client      *mongo.Client
	TxCol       *mongo.Collection
	ProgressCol *mongo.Collection
}

func NewXPRepository(client *mongo.Client, db *mongo.Database) *XPRepository {
	return &XPRepository{
		client:      client,
		TxCol:       db.Collection("xp_transactions"),
		ProgressCol: db.Collection("progress"),
	}
}

// Award appends the transaction and applies the same amount to the child's
// progress counters inside one Mongo transaction, so the ledger sum and
// TotalXP cannot drift apart. The counter update is an atomic $inc, never a
// read-modify-write, and the updated document is returned in the same
// operation. Level is recomputed from the new lifetime total.
func (r *XPRepository) Award(ctx context.Context, txn *models.XPTransaction, countQuestion, perfect bool) (*models.Progress, error) {
	if txn.ID == "" {
		txn.ID = primitive.NewObjectID().Hex()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}

	session, err := r.client.StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.TxCol.InsertOne(sc, txn); err != nil {
			return nil, err
		}

		inc := bson.M{
			"current_xp": txn.Amount,
			"total_xp":   txn.Amount,
		}
		if countQuestion {
			inc["questions_answered"] = 1
		}
		if perfect {
			inc["perfect_scores"] = 1
		}

		opts := options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After)

		var progress models.Progress
		err := r.ProgressCol.FindOneAndUpdate(sc,
			bson.M{"child_id": txn.ChildID},
			bson.M{
				"$inc": inc,
				"$set": bson.M{"updated_at": txn.CreatedAt},
				"$setOnInsert": bson.M{
					"_id":      primitive.NewObjectID().Hex(),
					"child_id": txn.ChildID,
					"level":    1,
				},
			},
			opts,
		).Decode(&progress)
		if err != nil {
			return nil, err
		}

		if newLevel := models.LevelForXP(progress.TotalXP); newLevel > progress.Level {
			_, err = r.ProgressCol.UpdateOne(sc,
				bson.M{"child_id": txn.ChildID},
				bson.M{"$set": bson.M{"level": newLevel}},
			)
			if err != nil {
				return nil, err
			}
			progress.Level = newLevel
		}
		return &progress, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Progress), nil
}

func (r *XPRepository) FindProgress(ctx context.Context, childID string) (*models.Progress, error) {
	var progress models.Progress
	if err := r.ProgressCol.FindOne(ctx, bson.M{"child_id": childID}).Decode(&progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *XPRepository) FindTransactionsSince(ctx context.Context, childID string, since time.Time) ([]models.XPTransaction, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cur, err := r.TxCol.Find(ctx, bson.M{
		"child_id":   childID,
		"created_at": bson.M{"$gte": since},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var txns []models.XPTransaction
	for cur.Next(ctx) {
		var t models.XPTransaction
		if err := cur.Decode(&t); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, cur.Err()
}

// SumAmounts aggregates the full ledger for a child. Used by the consistency
// check endpoint; must always equal Progress.TotalXP.
func (r *XPRepository) SumAmounts(ctx context.Context, childID string) (int64, error) {
	cur, err := r.TxCol.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"child_id": childID}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$amount"}}}},
	})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var out struct {
		Total int64 `bson:"total"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&out); err != nil {
			return 0, err
		}
	}
	return out.Total, cur.Err()
}
