package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"learning-service/internal/guidance"
	"learning-service/internal/judge"
	"learning-service/internal/models"
	"learning-service/internal/repository"
)

type ExerciseStore interface {
	Create(ctx context.Context, exercise *models.Exercise) error
	FindByID(ctx context.Context, id string) (*models.Exercise, error)
	FindByLesson(ctx context.Context, lessonID string) ([]models.Exercise, error)
}

type LessonStore interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
}

type AttemptStore interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	Delete(ctx context.Context, id string) error
	SetXPAwarded(ctx context.Context, id string, xp int) error
	CountByChildAndExercise(ctx context.Context, childID, exerciseID string) (int64, error)
	HasCorrect(ctx context.Context, childID, exerciseID string) (bool, error)
	FindByChildAndExercise(ctx context.Context, childID, exerciseID string) ([]models.Attempt, error)
}

type ExerciseService struct {
	exercises ExerciseStore
	lessons   LessonStore
	attempts  AttemptStore
	judge     judge.Judge
	ledger    Ledger
	publisher EventSink
}

func NewExerciseService(exercises ExerciseStore, lessons LessonStore, attempts AttemptStore, j judge.Judge, ledger Ledger, publisher EventSink) *ExerciseService {
	return &ExerciseService{
		exercises: exercises,
		lessons:   lessons,
		attempts:  attempts,
		judge:     j,
		ledger:    ledger,
		publisher: publisher,
	}
}

type SubmitAnswerResult struct {
	IsCorrect        bool           `json:"is_correct"`
	AlreadyCompleted bool           `json:"already_completed,omitempty"`
	Feedback         string         `json:"feedback"`
	Hint             string         `json:"hint,omitempty"`
	RevealedAnswer   string         `json:"revealed_answer,omitempty"`
	Explanation      string         `json:"explanation,omitempty"`
	XPAwarded        int            `json:"xp_awarded"`
	AttemptNumber    int            `json:"attempt_number"`
	LeveledUp        bool           `json:"leveled_up,omitempty"`
	NewLevel         int            `json:"new_level,omitempty"`
	NewBadges        []models.Badge `json:"new_badges,omitempty"`
}

// SubmitAnswer grades one submission. Correctness is decided by the external
// judge; rewards follow the diminishing retry curve; wrong answers escalate
// hints and eventually reveal the answer. Every judged submission persists an
// immutable attempt; a failed judge call persists nothing.
func (s *ExerciseService) SubmitAnswer(ctx context.Context, exerciseID, childID, answer, ageBand string) (*SubmitAnswerResult, error) {
	if strings.TrimSpace(answer) == "" {
		return nil, fmt.Errorf("%w: answer must not be empty", ErrValidation)
	}

	exercise, _, err := s.loadAuthorized(ctx, exerciseID, childID)
	if err != nil {
		return nil, err
	}

	solved, err := s.attempts.HasCorrect(ctx, childID, exerciseID)
	if err != nil {
		return nil, err
	}
	if solved {
		return alreadyCompletedResult(), nil
	}

	priorAttempts, err := s.attempts.CountByChildAndExercise(ctx, childID, exerciseID)
	if err != nil {
		return nil, err
	}
	attemptNumber := int(priorAttempts) + 1

	verdict, err := s.judge.Evaluate(ctx, judge.EvaluationRequest{
		Question:        exercise.Question,
		ExpectedAnswer:  exercise.CorrectAnswer,
		AcceptedAnswers: exercise.AcceptedAnswers,
		ExerciseType:    exercise.Type,
		Submission:      answer,
		AttemptNumber:   attemptNumber,
		AgeBand:         ageBand,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJudgeUnavailable, err)
	}

	attempt := &models.Attempt{
		ExerciseID:    exerciseID,
		ChildID:       childID,
		Answer:        answer,
		IsCorrect:     verdict.IsCorrect,
		AttemptNumber: attemptNumber,
		Feedback:      verdict.Feedback,
	}

	var result *SubmitAnswerResult
	if verdict.IsCorrect {
		result, err = s.recordCorrect(ctx, exercise, attempt)
	} else {
		result, err = s.recordIncorrect(ctx, exercise, attempt)
	}
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.Publish("learning.answer.submitted", map[string]interface{}{
			"child_id":    childID,
			"exercise_id": exerciseID,
			"is_correct":  verdict.IsCorrect,
			"attempt":     result.AttemptNumber,
		})
	}
	return result, nil
}

func (s *ExerciseService) recordCorrect(ctx context.Context, exercise *models.Exercise, attempt *models.Attempt) (*SubmitAnswerResult, error) {
	attempt.XPAwarded = models.RewardForAttempt(exercise.BaseXP(), attempt.AttemptNumber)

	requested := attempt.AttemptNumber
	if err := s.attempts.Create(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrAlreadySolved) {
			// A concurrent submission completed the exercise first
			return alreadyCompletedResult(), nil
		}
		return nil, err
	}
	if attempt.AttemptNumber != requested {
		// A numbering race bumped the attempt; the reward must follow the
		// number that was actually persisted.
		attempt.XPAwarded = models.RewardForAttempt(exercise.BaseXP(), attempt.AttemptNumber)
		if err := s.attempts.SetXPAwarded(ctx, attempt.ID, attempt.XPAwarded); err != nil {
			s.rollbackAttempt(ctx, attempt.ID)
			return nil, err
		}
	}

	result := &SubmitAnswerResult{
		IsCorrect:     true,
		Feedback:      attempt.Feedback,
		Explanation:   exercise.Explanation,
		XPAwarded:     attempt.XPAwarded,
		AttemptNumber: attempt.AttemptNumber,
	}

	award, err := s.ledger.AwardXP(ctx, AwardRequest{
		ChildID:    attempt.ChildID,
		Amount:     attempt.XPAwarded,
		Reason:     models.ReasonExerciseCorrect,
		SourceType: "exercise",
		SourceID:   attempt.ExerciseID,
		Perfect:    attempt.AttemptNumber == 1,
	})
	if err != nil {
		// A correct attempt must never stand without its ledger entry: left
		// in place it would mark the exercise solved with the reward lost.
		// Undo it so a retry can grade and award again.
		s.rollbackAttempt(ctx, attempt.ID)
		return nil, err
	}
	result.LeveledUp = award.LeveledUp
	result.NewLevel = award.NewLevel
	result.NewBadges = award.NewBadges
	return result, nil
}

func (s *ExerciseService) rollbackAttempt(ctx context.Context, attemptID string) {
	if err := s.attempts.Delete(ctx, attemptID); err != nil {
		log.Printf("failed to roll back attempt %s: %v", attemptID, err)
	}
}

func (s *ExerciseService) recordIncorrect(ctx context.Context, exercise *models.Exercise, attempt *models.Attempt) (*SubmitAnswerResult, error) {
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, err
	}

	result := &SubmitAnswerResult{
		IsCorrect:     false,
		Feedback:      attempt.Feedback,
		AttemptNumber: attempt.AttemptNumber,
	}

	switch g := guidance.Next(attempt.AttemptNumber, len(exercise.Hints)); g.Kind {
	case guidance.KindHint:
		result.Hint = exercise.Hints[g.HintIndex]
	case guidance.KindReveal:
		result.RevealedAnswer = exercise.CorrectAnswer
		result.Explanation = exercise.Explanation
	}
	return result, nil
}

type HintResult struct {
	Hint           string `json:"hint,omitempty"`
	RevealedAnswer string `json:"revealed_answer,omitempty"`
	Explanation    string `json:"explanation,omitempty"`
	AttemptsUsed   int    `json:"attempts_used"`
}

// GetHint shows the guidance the child would get on their next attempt
// without recording anything.
func (s *ExerciseService) GetHint(ctx context.Context, exerciseID, childID string) (*HintResult, error) {
	exercise, _, err := s.loadAuthorized(ctx, exerciseID, childID)
	if err != nil {
		return nil, err
	}

	priorAttempts, err := s.attempts.CountByChildAndExercise(ctx, childID, exerciseID)
	if err != nil {
		return nil, err
	}

	result := &HintResult{AttemptsUsed: int(priorAttempts)}
	switch g := guidance.Next(int(priorAttempts)+1, len(exercise.Hints)); g.Kind {
	case guidance.KindHint:
		result.Hint = exercise.Hints[g.HintIndex]
	case guidance.KindReveal:
		result.RevealedAnswer = exercise.CorrectAnswer
		result.Explanation = exercise.Explanation
	}
	return result, nil
}

// CreateExercise validates and stores a new exercise definition. Definitions
// are immutable once created: there is no update or delete path.
func (s *ExerciseService) CreateExercise(ctx context.Context, exercise *models.Exercise) error {
	switch exercise.Type {
	case models.ExerciseMultipleChoice, models.ExerciseShortAnswer, models.ExerciseFillIn, models.ExerciseTrueFalse:
	default:
		return fmt.Errorf("%w: unknown exercise type %q", ErrValidation, exercise.Type)
	}
	if _, ok := models.DifficultyBaseXP[exercise.Difficulty]; !ok {
		return fmt.Errorf("%w: unknown difficulty %q", ErrValidation, exercise.Difficulty)
	}
	if strings.TrimSpace(exercise.Question) == "" || strings.TrimSpace(exercise.CorrectAnswer) == "" {
		return fmt.Errorf("%w: question and correct answer are required", ErrValidation)
	}
	if len(exercise.Hints) > 2 {
		return fmt.Errorf("%w: an exercise carries at most two hints", ErrValidation)
	}
	if exercise.LessonID == "" {
		return fmt.Errorf("%w: lesson_id is required", ErrValidation)
	}
	if _, err := s.lessons.FindByID(ctx, exercise.LessonID); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: lesson %s", ErrNotFound, exercise.LessonID)
		}
		return err
	}
	return s.exercises.Create(ctx, exercise)
}

func (s *ExerciseService) GetExercise(ctx context.Context, id string) (*models.Exercise, error) {
	exercise, err := s.exercises.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: exercise %s", ErrNotFound, id)
		}
		return nil, err
	}
	return exercise, nil
}

func (s *ExerciseService) ListByLesson(ctx context.Context, lessonID string) ([]models.Exercise, error) {
	return s.exercises.FindByLesson(ctx, lessonID)
}

func (s *ExerciseService) GetAttempts(ctx context.Context, exerciseID, childID string) ([]models.Attempt, error) {
	return s.attempts.FindByChildAndExercise(ctx, childID, exerciseID)
}

func (s *ExerciseService) loadAuthorized(ctx context.Context, exerciseID, childID string) (*models.Exercise, *models.Lesson, error) {
	exercise, err := s.exercises.FindByID(ctx, exerciseID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, fmt.Errorf("%w: exercise %s", ErrNotFound, exerciseID)
		}
		return nil, nil, err
	}
	lesson, err := s.lessons.FindByID(ctx, exercise.LessonID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, fmt.Errorf("%w: lesson %s", ErrNotFound, exercise.LessonID)
		}
		return nil, nil, err
	}
	if lesson.ChildID != childID {
		return nil, nil, ErrForbidden
	}
	return exercise, lesson, nil
}

func alreadyCompletedResult() *SubmitAnswerResult {
	return &SubmitAnswerResult{
		IsCorrect:        true,
		AlreadyCompleted: true,
		Feedback:         "You already solved this one, great job! Try another exercise.",
		XPAwarded:        0,
	}
}
