package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"learning-service/internal/cache"
	"learning-service/internal/models"
)

type BadgeCatalog interface {
	FindAll(ctx context.Context) ([]models.Badge, error)
	FindByCode(ctx context.Context, code string) (*models.Badge, error)
}

type EarnedBadgeStore interface {
	Insert(ctx context.Context, earned *models.EarnedBadge) (bool, error)
	FindByChild(ctx context.Context, childID string) ([]models.EarnedBadge, error)
}

type ProgressReader interface {
	FindProgress(ctx context.Context, childID string) (*models.Progress, error)
}

type StreakReader interface {
	FindByChild(ctx context.Context, childID string) (*models.Streak, error)
}

// BadgeXPAwarder writes a badge's XP reward through the ledger without
// starting a nested evaluation pass.
type BadgeXPAwarder interface {
	AwardBadgeXP(ctx context.Context, childID string, badge models.Badge) error
}

const badgeCatalogCacheKey = "badge_catalog"

type BadgeService struct {
	catalog   BadgeCatalog
	earned    EarnedBadgeStore
	progress  ProgressReader
	streaks   StreakReader
	ledger    BadgeXPAwarder
	cache     *cache.Cache
	publisher EventSink
}

func NewBadgeService(catalog BadgeCatalog, earned EarnedBadgeStore, progress ProgressReader, streaks StreakReader, c *cache.Cache, publisher EventSink) *BadgeService {
	return &BadgeService{
		catalog:   catalog,
		earned:    earned,
		progress:  progress,
		streaks:   streaks,
		cache:     c,
		publisher: publisher,
	}
}

// BindLedger wires badge XP rewards in after construction; the ledger and
// the badge service reference each other.
func (s *BadgeService) BindLedger(l BadgeXPAwarder) {
	s.ledger = l
}

type ChildBadges struct {
	Earned    []models.Badge `json:"earned"`
	Available []models.Badge `json:"available"`
}

// GetBadgesForChild partitions the catalog into earned and still-available
// badges for the child.
func (s *BadgeService) GetBadgesForChild(ctx context.Context, childID string) (*ChildBadges, error) {
	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	earnedRows, err := s.earned.FindByChild(ctx, childID)
	if err != nil {
		return nil, err
	}

	earnedCodes := make(map[string]bool, len(earnedRows))
	for _, e := range earnedRows {
		earnedCodes[e.BadgeCode] = true
	}

	result := &ChildBadges{Earned: []models.Badge{}, Available: []models.Badge{}}
	for _, b := range catalog {
		if earnedCodes[b.Code] {
			result.Earned = append(result.Earned, b)
		} else {
			result.Available = append(result.Available, b)
		}
	}
	return result, nil
}

// GetBadge looks a single badge up by its catalog code.
func (s *BadgeService) GetBadge(ctx context.Context, code string) (*models.Badge, error) {
	badge, err := s.catalog.FindByCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: badge %s", ErrNotFound, code)
		}
		return nil, err
	}
	return badge, nil
}

// EvaluateForChild builds a fresh stats snapshot and runs one evaluation
// pass. This is the single entry point for badge unlocking: every
// stat-mutating operation funnels through here exactly once per event.
func (s *BadgeService) EvaluateForChild(ctx context.Context, childID string) ([]models.Badge, error) {
	snapshot := models.StatsSnapshot{}

	if progress, err := s.progress.FindProgress(ctx, childID); err == nil {
		snapshot.QuestionsAnswered = progress.QuestionsAnswered
		snapshot.PerfectScores = progress.PerfectScores
		snapshot.Level = progress.Level
		snapshot.TotalXP = progress.TotalXP
	} else if !isNotFound(err) {
		return nil, err
	}

	if streak, err := s.streaks.FindByChild(ctx, childID); err == nil {
		snapshot.CurrentStreak = streak.Current
		snapshot.LongestStreak = streak.Longest
	} else if !isNotFound(err) {
		return nil, err
	}

	return s.EvaluateAndAward(ctx, childID, snapshot)
}

// EvaluateAndAward checks every not-yet-earned badge against the snapshot
// and records the ones whose requirement is met. Requirements are monotonic
// threshold checks, so the pass is idempotent and order-independent; an
// insert that loses a race is treated as already earned.
func (s *BadgeService) EvaluateAndAward(ctx context.Context, childID string, snapshot models.StatsSnapshot) ([]models.Badge, error) {
	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	earnedRows, err := s.earned.FindByChild(ctx, childID)
	if err != nil {
		return nil, err
	}
	earnedCodes := make(map[string]bool, len(earnedRows))
	for _, e := range earnedRows {
		earnedCodes[e.BadgeCode] = true
	}

	var newlyEarned []models.Badge
	for _, badge := range catalog {
		if earnedCodes[badge.Code] || !badge.MeetsRequirement(snapshot) {
			continue
		}

		inserted, err := s.earned.Insert(ctx, &models.EarnedBadge{
			ChildID:   childID,
			BadgeCode: badge.Code,
		})
		if err != nil {
			return newlyEarned, err
		}
		if !inserted {
			// Another pass got there first
			continue
		}

		newlyEarned = append(newlyEarned, badge)
		if s.ledger != nil && badge.XPReward > 0 {
			if err := s.ledger.AwardBadgeXP(ctx, childID, badge); err != nil {
				log.Printf("failed to award XP for badge %s: %v", badge.Code, err)
			}
		}
		if s.publisher != nil {
			s.publisher.Publish("learning.badge.earned", map[string]interface{}{
				"child_id": childID,
				"badge":    badge.Code,
				"name":     badge.Name,
			})
		}
	}
	return newlyEarned, nil
}

func (s *BadgeService) loadCatalog(ctx context.Context) ([]models.Badge, error) {
	var cached []models.Badge
	if hit, err := s.cache.GetStruct(ctx, badgeCatalogCacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	catalog, err := s.catalog.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetStruct(ctx, badgeCatalogCacheKey, catalog, 10*time.Minute)
	return catalog, nil
}
