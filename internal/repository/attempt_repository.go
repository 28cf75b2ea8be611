package repository

import (
	"context"
	"errors"
	"time"

	"learning-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrAlreadySolved is returned when a correct attempt already exists for the
// (child, exercise) pair. Backed by the partial unique index on is_correct.
var ErrAlreadySolved = errors.New("exercise already solved by this child")

type AttemptRepository struct {
	Col *mongo.Collection
}

func NewAttemptRepository(db *mongo.Database) *AttemptRepository {
	return &AttemptRepository{Col: db.Collection("attempts")}
}

// Create inserts the attempt, bumping the attempt number on a numbering
// collision so concurrent submissions keep a gapless 1,2,3,... sequence
// without application locks. A duplicate on the correct-answer guard index
// means another submission completed the exercise first.
func (r *AttemptRepository) Create(ctx context.Context, attempt *models.Attempt) error {
	if attempt.ID == "" {
		attempt.ID = primitive.NewObjectID().Hex()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}

	for retries := 0; retries < 5; retries++ {
		_, err := r.Col.InsertOne(ctx, attempt)
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return err
		}
		if attempt.IsCorrect {
			solved, checkErr := r.HasCorrect(ctx, attempt.ChildID, attempt.ExerciseID)
			if checkErr != nil {
				return checkErr
			}
			if solved {
				return ErrAlreadySolved
			}
		}
		attempt.AttemptNumber++
	}
	return errors.New("could not allocate attempt number")
}

// Delete removes an attempt. Used to undo a correct attempt whose XP award
// failed, so a retry can grade and award again.
func (r *AttemptRepository) Delete(ctx context.Context, id string) error {
	_, err := r.Col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// SetXPAwarded corrects the stored reward after a numbering-race bump moved
// the attempt to a different position on the retry curve.
func (r *AttemptRepository) SetXPAwarded(ctx context.Context, id string, xp int) error {
	_, err := r.Col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"xp_awarded": xp}})
	return err
}

func (r *AttemptRepository) CountByChildAndExercise(ctx context.Context, childID, exerciseID string) (int64, error) {
	return r.Col.CountDocuments(ctx, bson.M{"child_id": childID, "exercise_id": exerciseID})
}

func (r *AttemptRepository) HasCorrect(ctx context.Context, childID, exerciseID string) (bool, error) {
	count, err := r.Col.CountDocuments(ctx, bson.M{
		"child_id":    childID,
		"exercise_id": exerciseID,
		"is_correct":  true,
	})
	return count > 0, err
}

func (r *AttemptRepository) FindByChildAndExercise(ctx context.Context, childID, exerciseID string) ([]models.Attempt, error) {
	opts := options.Find().SetSort(bson.M{"attempt_number": 1})
	cur, err := r.Col.Find(ctx, bson.M{"child_id": childID, "exercise_id": exerciseID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var attempts []models.Attempt
	for cur.Next(ctx) {
		var a models.Attempt
		if err := cur.Decode(&a); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, cur.Err()
}
