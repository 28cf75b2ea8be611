package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"learning-service/internal/models"
)

// MaxSingleAward caps a single ledger entry. Anything above it is a caller
// bug or an abuse attempt.
const MaxSingleAward = 1000

type ProgressStore interface {
	Award(ctx context.Context, txn *models.XPTransaction, countQuestion, perfect bool) (*models.Progress, error)
	FindProgress(ctx context.Context, childID string) (*models.Progress, error)
	FindTransactionsSince(ctx context.Context, childID string, since time.Time) ([]models.XPTransaction, error)
	SumAmounts(ctx context.Context, childID string) (int64, error)
}

// BadgeEvaluator runs one badge evaluation pass for a child.
type BadgeEvaluator interface {
	EvaluateForChild(ctx context.Context, childID string) ([]models.Badge, error)
}

// EventSink is the publish side of the event bus.
type EventSink interface {
	Publish(eventType string, payload interface{}) error
}

// Ledger is the award entry point other services depend on.
type Ledger interface {
	AwardXP(ctx context.Context, req AwardRequest) (*AwardResult, error)
}

type AwardRequest struct {
	ChildID     string `json:"child_id"`
	Amount      int    `json:"amount"`
	Reason      string `json:"reason"`
	SourceType  string `json:"source_type,omitempty"`
	SourceID    string `json:"source_id,omitempty"`
	IsBonus     bool   `json:"is_bonus,omitempty"`
	BonusReason string `json:"bonus_reason,omitempty"`
	Perfect     bool   `json:"perfect,omitempty"`
}

type AwardResult struct {
	XPAwarded int            `json:"xp_awarded"`
	CurrentXP int            `json:"current_xp"`
	TotalXP   int            `json:"total_xp"`
	Level     int            `json:"level"`
	LeveledUp bool           `json:"leveled_up"`
	NewLevel  int            `json:"new_level,omitempty"`
	NewBadges []models.Badge `json:"new_badges,omitempty"`
}

type XPService struct {
	store     ProgressStore
	badges    BadgeEvaluator
	publisher EventSink
}

func NewXPService(store ProgressStore, publisher EventSink) *XPService {
	return &XPService{store: store, publisher: publisher}
}

// BindBadgeEvaluator wires the badge pass in after construction; the badge
// service and the ledger reference each other.
func (s *XPService) BindBadgeEvaluator(b BadgeEvaluator) {
	s.badges = b
}

// AwardXP appends a ledger entry, applies it to the child's counters and runs
// one badge evaluation pass over the refreshed stats.
func (s *XPService) AwardXP(ctx context.Context, req AwardRequest) (*AwardResult, error) {
	return s.award(ctx, req, true)
}

// AwardBadgeXP writes a badge's XP reward through the ledger without
// triggering another badge evaluation pass. One pass per external event is a
// hard cutoff; this is the single place it is enforced.
func (s *XPService) AwardBadgeXP(ctx context.Context, childID string, badge models.Badge) error {
	_, err := s.award(ctx, AwardRequest{
		ChildID:     childID,
		Amount:      badge.XPReward,
		Reason:      models.ReasonBadgeUnlock,
		SourceType:  "badge",
		SourceID:    badge.Code,
		IsBonus:     true,
		BonusReason: badge.Name,
	}, false)
	return err
}

func (s *XPService) award(ctx context.Context, req AwardRequest, evaluateBadges bool) (*AwardResult, error) {
	if req.ChildID == "" {
		return nil, fmt.Errorf("%w: child_id is required", ErrValidation)
	}
	if req.Amount <= 0 || req.Amount > MaxSingleAward {
		return nil, fmt.Errorf("%w: amount must be between 1 and %d", ErrValidation, MaxSingleAward)
	}
	if req.Reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrValidation)
	}

	txn := &models.XPTransaction{
		ChildID:     req.ChildID,
		Amount:      req.Amount,
		Reason:      req.Reason,
		IsBonus:     req.IsBonus,
		BonusReason: req.BonusReason,
		SourceType:  req.SourceType,
		SourceID:    req.SourceID,
	}

	countQuestion := req.Reason == models.ReasonExerciseCorrect
	progress, err := s.store.Award(ctx, txn, countQuestion, req.Perfect)
	if err != nil {
		return nil, fmt.Errorf("failed to award XP: %w", err)
	}

	result := &AwardResult{
		XPAwarded: req.Amount,
		CurrentXP: progress.CurrentXP,
		TotalXP:   progress.TotalXP,
		Level:     progress.Level,
	}
	if prevLevel := models.LevelForXP(progress.TotalXP - req.Amount); progress.Level > prevLevel {
		result.LeveledUp = true
		result.NewLevel = progress.Level
	}

	if s.publisher != nil {
		s.publisher.Publish("learning.xp.awarded", txn)
		if result.LeveledUp {
			s.publisher.Publish("learning.levelup", map[string]interface{}{
				"child_id": req.ChildID,
				"level":    result.NewLevel,
			})
		}
	}

	if evaluateBadges && s.badges != nil {
		newBadges, err := s.badges.EvaluateForChild(ctx, req.ChildID)
		if err != nil {
			// The award itself went through; a failed badge pass will be
			// retried by the next stat change.
			log.Printf("badge evaluation failed for child %s: %v", req.ChildID, err)
		} else {
			result.NewBadges = newBadges
		}
	}

	return result, nil
}

// GetProgress returns the child's progress row. Progress is created lazily on
// first award, so a child with no XP yet gets a zeroed level-1 view.
func (s *XPService) GetProgress(ctx context.Context, childID string) (*models.Progress, error) {
	progress, err := s.store.FindProgress(ctx, childID)
	if err != nil {
		if isNotFound(err) {
			return &models.Progress{ChildID: childID, Level: 1}, nil
		}
		return nil, err
	}
	return progress, nil
}

type XPStats struct {
	Today        int `json:"today"`
	Week         int `json:"week"`
	Month        int `json:"month"`
	DailyAverage int `json:"daily_average"`
}

// GetStats aggregates today / last 7 days / last 30 days XP from the ledger.
// Day boundaries are UTC, matching the streak tracker.
func (s *XPService) GetStats(ctx context.Context, childID string) (*XPStats, error) {
	today := models.UTCDate(time.Now())
	monthStart := today.AddDate(0, 0, -29)

	txns, err := s.store.FindTransactionsSince(ctx, childID, monthStart)
	if err != nil {
		return nil, err
	}

	stats := &XPStats{}
	weekStart := today.AddDate(0, 0, -6)
	for _, t := range txns {
		day := models.UTCDate(t.CreatedAt)
		stats.Month += t.Amount
		if !day.Before(weekStart) {
			stats.Week += t.Amount
		}
		if day.Equal(today) {
			stats.Today += t.Amount
		}
	}
	stats.DailyAverage = stats.Month / 30
	return stats, nil
}

type DailyXP struct {
	Date string `json:"date"`
	XP   int    `json:"xp"`
}

// GetXPHistory returns per-day XP totals for the last N days, zero-filled.
func (s *XPService) GetXPHistory(ctx context.Context, childID string, days int) ([]DailyXP, error) {
	if days <= 0 || days > 365 {
		return nil, fmt.Errorf("%w: days must be between 1 and 365", ErrValidation)
	}

	today := models.UTCDate(time.Now())
	start := today.AddDate(0, 0, -(days - 1))
	txns, err := s.store.FindTransactionsSince(ctx, childID, start)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]int)
	for _, t := range txns {
		byDay[models.UTCDate(t.CreatedAt).Format("2006-01-02")] += t.Amount
	}

	history := make([]DailyXP, 0, days)
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d).Format("2006-01-02")
		history = append(history, DailyXP{Date: date, XP: byDay[date]})
	}
	return history, nil
}

// VerifyLedger recomputes the ledger sum and compares it with the stored
// running total. The two must always match.
func (s *XPService) VerifyLedger(ctx context.Context, childID string) (bool, error) {
	sum, err := s.store.SumAmounts(ctx, childID)
	if err != nil {
		return false, err
	}
	progress, err := s.GetProgress(ctx, childID)
	if err != nil {
		return false, err
	}
	return sum == int64(progress.TotalXP), nil
}
