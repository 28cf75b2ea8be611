package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"learning-service/internal/judge"
	"learning-service/internal/models"
	"learning-service/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
)

// In-memory stores backing the service tests. They mirror the repository
// contracts, including returning mongo.ErrNoDocuments for missing rows.

type memProgressStore struct {
	progress map[string]*models.Progress
	txns     []models.XPTransaction
	now      time.Time
}

func newMemProgressStore() *memProgressStore {
	return &memProgressStore{
		progress: make(map[string]*models.Progress),
		now:      time.Now().UTC(),
	}
}

func (m *memProgressStore) Award(ctx context.Context, txn *models.XPTransaction, countQuestion, perfect bool) (*models.Progress, error) {
	txn.CreatedAt = m.now
	m.txns = append(m.txns, *txn)

	p, ok := m.progress[txn.ChildID]
	if !ok {
		p = &models.Progress{ChildID: txn.ChildID, Level: 1}
		m.progress[txn.ChildID] = p
	}
	p.CurrentXP += txn.Amount
	p.TotalXP += txn.Amount
	if countQuestion {
		p.QuestionsAnswered++
		if perfect {
			p.PerfectScores++
		}
	}
	if level := models.LevelForXP(p.TotalXP); level > p.Level {
		p.Level = level
	}
	out := *p
	return &out, nil
}

func (m *memProgressStore) FindProgress(ctx context.Context, childID string) (*models.Progress, error) {
	p, ok := m.progress[childID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	out := *p
	return &out, nil
}

func (m *memProgressStore) FindTransactionsSince(ctx context.Context, childID string, since time.Time) ([]models.XPTransaction, error) {
	var out []models.XPTransaction
	for _, t := range m.txns {
		if t.ChildID == childID && !t.CreatedAt.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memProgressStore) SumAmounts(ctx context.Context, childID string) (int64, error) {
	var sum int64
	for _, t := range m.txns {
		if t.ChildID == childID {
			sum += int64(t.Amount)
		}
	}
	return sum, nil
}

type memStreakStore struct {
	streaks map[string]*models.Streak
}

func newMemStreakStore() *memStreakStore {
	return &memStreakStore{streaks: make(map[string]*models.Streak)}
}

func (m *memStreakStore) FindByChild(ctx context.Context, childID string) (*models.Streak, error) {
	s, ok := m.streaks[childID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	out := *s
	return &out, nil
}

func (m *memStreakStore) SaveIfLastActive(ctx context.Context, streak *models.Streak, prev time.Time) (bool, error) {
	if s, ok := m.streaks[streak.ChildID]; ok {
		if !s.LastActiveDate.Equal(prev) {
			return false, nil
		}
	} else if !prev.IsZero() {
		return false, nil
	}
	out := *streak
	m.streaks[streak.ChildID] = &out
	return true, nil
}

func (m *memStreakStore) ConsumeFreeze(ctx context.Context, childID string) (bool, error) {
	s, ok := m.streaks[childID]
	if !ok || s.FreezesAvailable <= 0 {
		return false, nil
	}
	s.FreezesAvailable--
	return true, nil
}

func (m *memStreakStore) AddFreezes(ctx context.Context, childID string, count int) error {
	s, ok := m.streaks[childID]
	if !ok {
		s = &models.Streak{ChildID: childID}
		m.streaks[childID] = s
	}
	s.FreezesAvailable += count
	return nil
}

type memBadgeCatalog struct {
	badges []models.Badge
}

func (m *memBadgeCatalog) FindAll(ctx context.Context) ([]models.Badge, error) {
	return m.badges, nil
}

func (m *memBadgeCatalog) FindByCode(ctx context.Context, code string) (*models.Badge, error) {
	for _, b := range m.badges {
		if b.Code == code {
			out := b
			return &out, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

type memEarnedBadgeStore struct {
	earned map[string]map[string]bool
	// when set, Insert pretends a concurrent pass already wrote the row
	loseRace bool
}

func newMemEarnedBadgeStore() *memEarnedBadgeStore {
	return &memEarnedBadgeStore{earned: make(map[string]map[string]bool)}
}

func (m *memEarnedBadgeStore) Insert(ctx context.Context, e *models.EarnedBadge) (bool, error) {
	if m.loseRace {
		return false, nil
	}
	byChild, ok := m.earned[e.ChildID]
	if !ok {
		byChild = make(map[string]bool)
		m.earned[e.ChildID] = byChild
	}
	if byChild[e.BadgeCode] {
		return false, nil
	}
	byChild[e.BadgeCode] = true
	return true, nil
}

func (m *memEarnedBadgeStore) FindByChild(ctx context.Context, childID string) ([]models.EarnedBadge, error) {
	var out []models.EarnedBadge
	for code := range m.earned[childID] {
		out = append(out, models.EarnedBadge{ChildID: childID, BadgeCode: code})
	}
	return out, nil
}

type memExerciseStore struct {
	exercises map[string]*models.Exercise
}

func newMemExerciseStore() *memExerciseStore {
	return &memExerciseStore{exercises: make(map[string]*models.Exercise)}
}

func (m *memExerciseStore) Create(ctx context.Context, e *models.Exercise) error {
	out := *e
	m.exercises[e.ID] = &out
	return nil
}

func (m *memExerciseStore) FindByID(ctx context.Context, id string) (*models.Exercise, error) {
	e, ok := m.exercises[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	out := *e
	return &out, nil
}

func (m *memExerciseStore) FindByLesson(ctx context.Context, lessonID string) ([]models.Exercise, error) {
	var out []models.Exercise
	for _, e := range m.exercises {
		if e.LessonID == lessonID {
			out = append(out, *e)
		}
	}
	return out, nil
}

type memLessonStore struct {
	lessons map[string]*models.Lesson
}

func newMemLessonStore() *memLessonStore {
	return &memLessonStore{lessons: make(map[string]*models.Lesson)}
}

func (m *memLessonStore) Create(ctx context.Context, l *models.Lesson) error {
	out := *l
	m.lessons[l.ID] = &out
	return nil
}

func (m *memLessonStore) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	l, ok := m.lessons[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	out := *l
	return &out, nil
}

func (m *memLessonStore) FindByChild(ctx context.Context, childID string) ([]models.Lesson, error) {
	var out []models.Lesson
	for _, l := range m.lessons {
		if l.ChildID == childID {
			out = append(out, *l)
		}
	}
	return out, nil
}

type memAttemptStore struct {
	attempts []models.Attempt
	nextID   int
}

// Create mirrors the real store's unique indexes: a correct attempt against
// an already-solved pair fails, and a numbering collision bumps the attempt
// number until it is free.
func (m *memAttemptStore) Create(ctx context.Context, a *models.Attempt) error {
	if a.IsCorrect {
		for _, prev := range m.attempts {
			if prev.ChildID == a.ChildID && prev.ExerciseID == a.ExerciseID && prev.IsCorrect {
				return repository.ErrAlreadySolved
			}
		}
	}
	for m.hasNumber(a.ChildID, a.ExerciseID, a.AttemptNumber) {
		a.AttemptNumber++
	}
	if a.ID == "" {
		m.nextID++
		a.ID = fmt.Sprintf("attempt-%d", m.nextID)
	}
	m.attempts = append(m.attempts, *a)
	return nil
}

func (m *memAttemptStore) hasNumber(childID, exerciseID string, number int) bool {
	for _, prev := range m.attempts {
		if prev.ChildID == childID && prev.ExerciseID == exerciseID && prev.AttemptNumber == number {
			return true
		}
	}
	return false
}

func (m *memAttemptStore) Delete(ctx context.Context, id string) error {
	for i, a := range m.attempts {
		if a.ID == id {
			m.attempts = append(m.attempts[:i], m.attempts[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memAttemptStore) SetXPAwarded(ctx context.Context, id string, xp int) error {
	for i := range m.attempts {
		if m.attempts[i].ID == id {
			m.attempts[i].XPAwarded = xp
		}
	}
	return nil
}

func (m *memAttemptStore) CountByChildAndExercise(ctx context.Context, childID, exerciseID string) (int64, error) {
	var n int64
	for _, a := range m.attempts {
		if a.ChildID == childID && a.ExerciseID == exerciseID {
			n++
		}
	}
	return n, nil
}

func (m *memAttemptStore) HasCorrect(ctx context.Context, childID, exerciseID string) (bool, error) {
	for _, a := range m.attempts {
		if a.ChildID == childID && a.ExerciseID == exerciseID && a.IsCorrect {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAttemptStore) FindByChildAndExercise(ctx context.Context, childID, exerciseID string) ([]models.Attempt, error) {
	var out []models.Attempt
	for _, a := range m.attempts {
		if a.ChildID == childID && a.ExerciseID == exerciseID {
			out = append(out, a)
		}
	}
	return out, nil
}

// stubJudge returns canned verdicts in order, or a fixed error.
type stubJudge struct {
	verdicts []judge.Verdict
	err      error
	calls    int
}

func (j *stubJudge) Evaluate(ctx context.Context, req judge.EvaluationRequest) (*judge.Verdict, error) {
	if j.err != nil {
		return nil, j.err
	}
	if j.calls >= len(j.verdicts) {
		return nil, errors.New("stub judge: no verdict scripted")
	}
	v := j.verdicts[j.calls]
	j.calls++
	return &v, nil
}

// capturingSink records published events.
type capturingSink struct {
	events []string
}

func (s *capturingSink) Publish(eventType string, payload interface{}) error {
	s.events = append(s.events, eventType)
	return nil
}

// countingEvaluator counts badge evaluation passes.
type countingEvaluator struct {
	calls  int
	badges []models.Badge
}

func (e *countingEvaluator) EvaluateForChild(ctx context.Context, childID string) ([]models.Badge, error) {
	e.calls++
	return e.badges, nil
}

// capturingLedger records award requests without touching any store.
type capturingLedger struct {
	requests []AwardRequest
}

func (l *capturingLedger) AwardXP(ctx context.Context, req AwardRequest) (*AwardResult, error) {
	l.requests = append(l.requests, req)
	return &AwardResult{XPAwarded: req.Amount}, nil
}

// capturingBadgeAwarder records badge XP awards.
type capturingBadgeAwarder struct {
	badges []models.Badge
}

func (l *capturingBadgeAwarder) AwardBadgeXP(ctx context.Context, childID string, badge models.Badge) error {
	l.badges = append(l.badges, badge)
	return nil
}
