package models

import "time"

const (
	BadgeCategoryStreak   = "STREAK"
	BadgeCategoryMastery  = "MASTERY"
	BadgeCategoryProgress = "PROGRESS"
)

const (
	RarityCommon    = "COMMON"
	RarityRare      = "RARE"
	RarityEpic      = "EPIC"
	RarityLegendary = "LEGENDARY"
)

// Metrics a badge requirement can compare against. Requirements are
// declarative threshold checks only, never procedural, so evaluation order
// within a pass does not matter.
const (
	MetricQuestionsAnswered = "questions_answered"
	MetricPerfectScores     = "perfect_scores"
	MetricCurrentStreak     = "current_streak"
	MetricLongestStreak     = "longest_streak"
	MetricLevel             = "level"
	MetricTotalXP           = "total_xp"
)

type BadgeRequirement struct {
	Metric    string `bson:"metric" json:"metric"`
	Threshold int    `bson:"threshold" json:"threshold"`
}

type Badge struct {
	Code        string           `bson:"_id" json:"code"`
	Name        string           `bson:"name" json:"name"`
	Description string           `bson:"description" json:"description"`
	Category    string           `bson:"category" json:"category"`
	Rarity      string           `bson:"rarity" json:"rarity"`
	Requirement BadgeRequirement `bson:"requirement" json:"requirement"`
	XPReward    int              `bson:"xp_reward" json:"xp_reward"`
}

type EarnedBadge struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	ChildID   string    `bson:"child_id" json:"child_id"`
	BadgeCode string    `bson:"badge_code" json:"badge_code"`
	EarnedAt  time.Time `bson:"earned_at" json:"earned_at"`
}

// StatsSnapshot is the view of a child's stats that badge requirements are
// evaluated against. All values only grow, so requirements are monotonic and
// badges are never revoked.
type StatsSnapshot struct {
	QuestionsAnswered int `json:"questions_answered"`
	PerfectScores     int `json:"perfect_scores"`
	CurrentStreak     int `json:"current_streak"`
	LongestStreak     int `json:"longest_streak"`
	Level             int `json:"level"`
	TotalXP           int `json:"total_xp"`
}

// MeetsRequirement reports whether the snapshot satisfies the badge's
// unlock requirement.
func (b *Badge) MeetsRequirement(stats StatsSnapshot) bool {
	var value int
	switch b.Requirement.Metric {
	case MetricQuestionsAnswered:
		value = stats.QuestionsAnswered
	case MetricPerfectScores:
		value = stats.PerfectScores
	case MetricCurrentStreak:
		value = stats.CurrentStreak
	case MetricLongestStreak:
		value = stats.LongestStreak
	case MetricLevel:
		value = stats.Level
	case MetricTotalXP:
		value = stats.TotalXP
	default:
		return false
	}
	return value >= b.Requirement.Threshold
}

// DefaultBadgeCatalog is seeded into the badges collection at startup.
// Seeding is idempotent: existing codes are left untouched.
func DefaultBadgeCatalog() []Badge {
	return []Badge{
		{Code: "first_answer", Name: "First Steps", Description: "Answer your first question", Category: BadgeCategoryProgress, Rarity: RarityCommon, Requirement: BadgeRequirement{Metric: MetricQuestionsAnswered, Threshold: 1}, XPReward: 10},
		{Code: "curious_mind", Name: "Curious Mind", Description: "Answer 50 questions", Category: BadgeCategoryProgress, Rarity: RarityCommon, Requirement: BadgeRequirement{Metric: MetricQuestionsAnswered, Threshold: 50}, XPReward: 25},
		{Code: "scholar", Name: "Scholar", Description: "Answer 250 questions", Category: BadgeCategoryProgress, Rarity: RarityRare, Requirement: BadgeRequirement{Metric: MetricQuestionsAnswered, Threshold: 250}, XPReward: 75},
		{Code: "perfectionist", Name: "Perfectionist", Description: "Get 10 answers right on the first try", Category: BadgeCategoryMastery, Rarity: RarityRare, Requirement: BadgeRequirement{Metric: MetricPerfectScores, Threshold: 10}, XPReward: 50},
		{Code: "sharp_shooter", Name: "Sharp Shooter", Description: "Get 50 answers right on the first try", Category: BadgeCategoryMastery, Rarity: RarityEpic, Requirement: BadgeRequirement{Metric: MetricPerfectScores, Threshold: 50}, XPReward: 150},
		{Code: "week_streak", Name: "On Fire", Description: "Keep a 7 day streak", Category: BadgeCategoryStreak, Rarity: RarityCommon, Requirement: BadgeRequirement{Metric: MetricCurrentStreak, Threshold: 7}, XPReward: 30},
		{Code: "month_streak", Name: "Unstoppable", Description: "Keep a 30 day streak", Category: BadgeCategoryStreak, Rarity: RarityEpic, Requirement: BadgeRequirement{Metric: MetricCurrentStreak, Threshold: 30}, XPReward: 200},
		{Code: "level_5", Name: "Rising Star", Description: "Reach level 5", Category: BadgeCategoryProgress, Rarity: RarityCommon, Requirement: BadgeRequirement{Metric: MetricLevel, Threshold: 5}, XPReward: 50},
		{Code: "level_10", Name: "Prodigy", Description: "Reach level 10", Category: BadgeCategoryProgress, Rarity: RarityRare, Requirement: BadgeRequirement{Metric: MetricLevel, Threshold: 10}, XPReward: 100},
		{Code: "xp_5000", Name: "XP Hunter", Description: "Earn 5000 lifetime XP", Category: BadgeCategoryProgress, Rarity: RarityLegendary, Requirement: BadgeRequirement{Metric: MetricTotalXP, Threshold: 5000}, XPReward: 250},
	}
}
