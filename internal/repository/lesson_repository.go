package repository

import (
	"context"
	"time"

	"learning-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type LessonRepository struct {
	Col *mongo.Collection
}

func NewLessonRepository(db *mongo.Database) *LessonRepository {
	return &LessonRepository{Col: db.Collection("lessons")}
}

func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = primitive.NewObjectID().Hex()
	}
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = time.Now()
	}
	_, err := r.Col.InsertOne(ctx, lesson)
	return err
}

func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&lesson); err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *LessonRepository) FindByChild(ctx context.Context, childID string) ([]models.Lesson, error) {
	cur, err := r.Col.Find(ctx, bson.M{"child_id": childID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var lessons []models.Lesson
	for cur.Next(ctx) {
		var l models.Lesson
		if err := cur.Decode(&l); err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, cur.Err()
}
