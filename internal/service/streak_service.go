package service

import (
	"context"
	"fmt"
	"time"

	"learning-service/internal/cache"
	"learning-service/internal/models"
)

type StreakStore interface {
	FindByChild(ctx context.Context, childID string) (*models.Streak, error)
	SaveIfLastActive(ctx context.Context, streak *models.Streak, prev time.Time) (bool, error)
	ConsumeFreeze(ctx context.Context, childID string) (bool, error)
	AddFreezes(ctx context.Context, childID string, count int) error
}

// StreakMilestones maps streak lengths to bonus XP awarded when the child
// reaches them.
var StreakMilestones = map[int]int{
	7:  35,
	30: 150,
}

// StreakService keeps consecutive-day activity counts. All day boundaries
// are UTC; a child active at 23:50 local time may land on the next UTC day.
type StreakService struct {
	store     StreakStore
	ledger    Ledger
	badges    BadgeEvaluator
	cache     *cache.Cache
	publisher EventSink
	now       func() time.Time
}

func NewStreakService(store StreakStore, c *cache.Cache, publisher EventSink) *StreakService {
	return &StreakService{
		store:     store,
		cache:     c,
		publisher: publisher,
		now:       time.Now,
	}
}

// BindLedger wires milestone bonus awards in after construction.
func (s *StreakService) BindLedger(l Ledger) {
	s.ledger = l
}

// BindBadgeEvaluator wires the badge pass for streak updates that do not
// cross an XP milestone.
func (s *StreakService) BindBadgeEvaluator(b BadgeEvaluator) {
	s.badges = b
}

// RecordActivity moves the streak forward for a qualifying activity today.
// Same-day repeats are no-ops; a one-day gap extends the streak; a single
// missed day can be bridged by consuming a freeze; anything longer resets
// the streak to 1 (today counts as day one).
func (s *StreakService) RecordActivity(ctx context.Context, childID string) (*models.Streak, error) {
	if childID == "" {
		return nil, fmt.Errorf("%w: child_id is required", ErrValidation)
	}
	today := models.UTCDate(s.now())

	streak, err := s.store.FindByChild(ctx, childID)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		streak = &models.Streak{ChildID: childID}
	}

	prevActive := streak.LastActiveDate
	extended := false
	freezeUsed := false
	if streak.LastActiveDate.IsZero() {
		streak.Current = 1
		extended = true
	} else {
		gap := models.DaysBetween(streak.LastActiveDate, today)
		switch {
		case gap <= 0:
			// Already counted today
			return streak, nil
		case gap == 1:
			streak.Current++
			extended = true
		case gap == 2:
			// Exactly one missed day: a freeze can bridge it
			consumed, err := s.store.ConsumeFreeze(ctx, childID)
			if err != nil {
				return nil, err
			}
			if consumed {
				freezeUsed = true
				streak.FreezesAvailable--
				streak.Current++
				extended = true
			} else {
				streak.Current = 1
			}
		default:
			streak.Current = 1
		}
	}

	if streak.Current > streak.Longest {
		streak.Longest = streak.Current
	}
	streak.LastActiveDate = today

	// Compare-and-set on the date the streak was read at: exactly one of any
	// number of concurrent requests moves the day forward, so milestone
	// bonuses and badge passes fire once per day.
	saved, err := s.store.SaveIfLastActive(ctx, streak, prevActive)
	if err != nil {
		return nil, err
	}
	if !saved {
		if freezeUsed {
			if err := s.store.AddFreezes(ctx, childID, 1); err != nil {
				return nil, err
			}
		}
		return s.store.FindByChild(ctx, childID)
	}
	s.cache.Delete(ctx, streakInfoKey(childID))

	if s.publisher != nil {
		s.publisher.Publish("learning.streak.updated", map[string]interface{}{
			"child_id": childID,
			"current":  streak.Current,
			"longest":  streak.Longest,
		})
	}

	// One badge/bonus pass per activity event. A milestone bonus goes
	// through the ledger, which runs the badge pass itself; otherwise the
	// pass runs directly so streak badges still unlock.
	if extended {
		if bonus, hit := StreakMilestones[streak.Current]; hit && s.ledger != nil {
			if _, err := s.ledger.AwardXP(ctx, AwardRequest{
				ChildID:     childID,
				Amount:      bonus,
				Reason:      models.ReasonStreakBonus,
				SourceType:  "streak",
				SourceID:    fmt.Sprintf("day_%d", streak.Current),
				IsBonus:     true,
				BonusReason: fmt.Sprintf("%d day streak", streak.Current),
			}); err != nil {
				return nil, err
			}
			return streak, nil
		}
	}
	if s.badges != nil {
		if _, err := s.badges.EvaluateForChild(ctx, childID); err != nil {
			return nil, err
		}
	}
	return streak, nil
}

// UseStreakFreeze spends one freeze credit ahead of a planned miss. Credits
// come from external rewards, not from this service.
func (s *StreakService) UseStreakFreeze(ctx context.Context, childID string) error {
	consumed, err := s.store.ConsumeFreeze(ctx, childID)
	if err != nil {
		return err
	}
	if !consumed {
		return ErrNoFreezeAvailable
	}
	s.cache.Delete(ctx, streakInfoKey(childID))
	return nil
}

// GrantFreezes credits freeze days, e.g. from a reward redemption.
func (s *StreakService) GrantFreezes(ctx context.Context, childID string, count int) error {
	if childID == "" {
		return fmt.Errorf("%w: child_id is required", ErrValidation)
	}
	if count <= 0 || count > 10 {
		return fmt.Errorf("%w: count must be between 1 and 10", ErrValidation)
	}
	if err := s.store.AddFreezes(ctx, childID, count); err != nil {
		return err
	}
	s.cache.Delete(ctx, streakInfoKey(childID))
	return nil
}

// GetStreakInfo is a pure read; results are cached briefly.
func (s *StreakService) GetStreakInfo(ctx context.Context, childID string) (*models.StreakInfo, error) {
	key := streakInfoKey(childID)
	var cached models.StreakInfo
	if hit, err := s.cache.GetStruct(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	streak, err := s.store.FindByChild(ctx, childID)
	if err != nil {
		if isNotFound(err) {
			return &models.StreakInfo{}, nil
		}
		return nil, err
	}

	info := &models.StreakInfo{
		Current:          streak.Current,
		Longest:          streak.Longest,
		IsActiveToday:    models.UTCDate(s.now()).Equal(models.UTCDate(streak.LastActiveDate)),
		FreezesAvailable: streak.FreezesAvailable,
	}
	s.cache.SetStruct(ctx, key, info, 30*time.Second)
	return info, nil
}

func streakInfoKey(childID string) string {
	return "streak_info:" + childID
}
