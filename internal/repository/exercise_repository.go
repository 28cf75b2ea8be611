package repository

import (
	"context"
	"time"

	"learning-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ExerciseRepository struct {
	Col *mongo.Collection
}

func NewExerciseRepository(db *mongo.Database) *ExerciseRepository {
	return &ExerciseRepository{Col: db.Collection("exercises")}
}

func (r *ExerciseRepository) Create(ctx context.Context, exercise *models.Exercise) error {
	if exercise.ID == "" {
		exercise.ID = primitive.NewObjectID().Hex()
	}
	if exercise.CreatedAt.IsZero() {
		exercise.CreatedAt = time.Now()
	}
	_, err := r.Col.InsertOne(ctx, exercise)
	return err
}

func (r *ExerciseRepository) FindByID(ctx context.Context, id string) (*models.Exercise, error) {
	var exercise models.Exercise
	if err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&exercise); err != nil {
		return nil, err
	}
	return &exercise, nil
}

func (r *ExerciseRepository) FindByLesson(ctx context.Context, lessonID string) ([]models.Exercise, error) {
	cur, err := r.Col.Find(ctx, bson.M{"lesson_id": lessonID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var exercises []models.Exercise
	for cur.Next(ctx) {
		var e models.Exercise
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		exercises = append(exercises, e)
	}
	return exercises, cur.Err()
}
