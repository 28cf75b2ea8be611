package service

import (
	"context"
	"fmt"
	"strings"

	"learning-service/internal/models"
)

type LessonRepo interface {
	Create(ctx context.Context, lesson *models.Lesson) error
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	FindByChild(ctx context.Context, childID string) ([]models.Lesson, error)
}

type LessonService struct {
	lessons LessonRepo
}

func NewLessonService(lessons LessonRepo) *LessonService {
	return &LessonService{lessons: lessons}
}

func (s *LessonService) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	if strings.TrimSpace(lesson.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if lesson.ChildID == "" {
		return fmt.Errorf("%w: child_id is required", ErrValidation)
	}
	return s.lessons.Create(ctx, lesson)
}

func (s *LessonService) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: lesson %s", ErrNotFound, id)
		}
		return nil, err
	}
	return lesson, nil
}

func (s *LessonService) ListByChild(ctx context.Context, childID string) ([]models.Lesson, error) {
	return s.lessons.FindByChild(ctx, childID)
}
