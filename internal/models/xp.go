package models

import (
	"math"
	"time"
)

// XP transaction reason codes
const (
	ReasonLessonCompletion = "lesson_completion"
	ReasonFlashcardReview  = "flashcard_review"
	ReasonQuizCompletion   = "quiz_completion"
	ReasonExerciseCorrect  = "exercise_correct"
	ReasonStreakBonus      = "streak_bonus"
	ReasonBadgeUnlock      = "badge_unlock"
	ReasonManualAward      = "manual_award"
)

type XPTransaction struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	ChildID     string    `bson:"child_id" json:"child_id"`
	Amount      int       `bson:"amount" json:"amount"`
	Reason      string    `bson:"reason" json:"reason"`
	IsBonus     bool      `bson:"is_bonus" json:"is_bonus"`
	BonusReason string    `bson:"bonus_reason,omitempty" json:"bonus_reason,omitempty"`
	SourceType  string    `bson:"source_type,omitempty" json:"source_type,omitempty"`
	SourceID    string    `bson:"source_id,omitempty" json:"source_id,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// Progress is the denormalized per-child counter row. The sum of a child's
// XP transactions must always equal TotalXP.
type Progress struct {
	ID                string    `bson:"_id,omitempty" json:"id"`
	ChildID           string    `bson:"child_id" json:"child_id"`
	CurrentXP         int       `bson:"current_xp" json:"current_xp"`
	TotalXP           int       `bson:"total_xp" json:"total_xp"`
	Level             int       `bson:"level" json:"level"`
	QuestionsAnswered int       `bson:"questions_answered" json:"questions_answered"`
	PerfectScores     int       `bson:"perfect_scores" json:"perfect_scores"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updated_at"`
}

// FirstTryBonus is the flat bonus added when an exercise is solved on the
// first attempt.
const FirstTryBonus = 5

// RetryMultipliers defines the diminishing reward curve by attempt number.
// Attempts beyond the table fall through to RetryFloorMultiplier.
var RetryMultipliers = map[int]float64{
	1: 1.0,
	2: 1.0,
	3: 0.5,
}

const RetryFloorMultiplier = 0.25

// RewardForAttempt computes the XP reward for a correct answer on the given
// attempt number: full reward plus FirstTryBonus on attempt 1, full reward on
// attempt 2, half on attempt 3 and a quarter from attempt 4 on, floored to an
// integer.
func RewardForAttempt(baseXP, attemptNumber int) int {
	if attemptNumber <= 1 {
		return baseXP + FirstTryBonus
	}
	multiplier, exists := RetryMultipliers[attemptNumber]
	if !exists {
		multiplier = RetryFloorMultiplier
	}
	return int(math.Floor(float64(baseXP) * multiplier))
}

// LevelThresholds holds the cumulative total XP required to reach each level.
// Index i is the total XP needed for level i+1, so level 1 starts at 0.
var LevelThresholds = []int{
	0, 100, 250, 450, 700, 1000, 1350, 1750, 2200, 2700,
	3250, 3850, 4500, 5200, 5950, 6750, 7600, 8500, 9450, 10450,
}

// LevelForXP maps lifetime XP to a level. Deterministic and total-XP-only:
// the same total always yields the same level regardless of how it was earned.
func LevelForXP(totalXP int) int {
	level := 1
	for i, threshold := range LevelThresholds {
		if totalXP >= threshold {
			level = i + 1
		} else {
			break
		}
	}
	return level
}

// XPForNextLevel returns the total XP threshold of the next level, or -1 when
// the child is already at the top of the table.
func XPForNextLevel(level int) int {
	if level >= len(LevelThresholds) {
		return -1
	}
	return LevelThresholds[level]
}
