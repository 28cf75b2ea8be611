package models

import "time"

type Lesson struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	ChildID   string    `bson:"child_id" json:"child_id"`
	Title     string    `bson:"title" json:"title"`
	Subject   string    `bson:"subject" json:"subject"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

type Exercise struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	LessonID        string    `bson:"lesson_id" json:"lesson_id"`
	Type            string    `bson:"type" json:"type"`
	Question        string    `bson:"question" json:"question"`
	CorrectAnswer   string    `bson:"correct_answer" json:"correct_answer"`
	AcceptedAnswers []string  `bson:"accepted_answers" json:"accepted_answers"`
	Hints           []string  `bson:"hints" json:"hints"`
	Explanation     string    `bson:"explanation" json:"explanation"`
	Difficulty      string    `bson:"difficulty" json:"difficulty"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
}

// Exercise types supported by the grading engine
const (
	ExerciseMultipleChoice = "multiple_choice"
	ExerciseShortAnswer    = "short_answer"
	ExerciseFillIn         = "fill_in"
	ExerciseTrueFalse      = "true_false"
)

const (
	DifficultyEasy   = "EASY"
	DifficultyMedium = "MEDIUM"
	DifficultyHard   = "HARD"
)

// DifficultyBaseXP defines the base XP reward for each difficulty tier
var DifficultyBaseXP = map[string]int{
	DifficultyEasy:   10,
	DifficultyMedium: 20,
	DifficultyHard:   30,
}

// BaseXP returns the base reward for the exercise's difficulty tier.
func (e *Exercise) BaseXP() int {
	if xp, exists := DifficultyBaseXP[e.Difficulty]; exists {
		return xp
	}
	return DifficultyBaseXP[DifficultyEasy]
}

type Attempt struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	ExerciseID    string    `bson:"exercise_id" json:"exercise_id"`
	ChildID       string    `bson:"child_id" json:"child_id"`
	Answer        string    `bson:"answer" json:"answer"`
	IsCorrect     bool      `bson:"is_correct" json:"is_correct"`
	AttemptNumber int       `bson:"attempt_number" json:"attempt_number"`
	Feedback      string    `bson:"feedback" json:"feedback"`
	XPAwarded     int       `bson:"xp_awarded" json:"xp_awarded"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}
