package models

import "time"

// Streak tracks consecutive-day activity for a child. Day boundaries are UTC:
// LastActiveDate is always stored truncated to UTC midnight.
type Streak struct {
	ID               string    `bson:"_id,omitempty" json:"id"`
	ChildID          string    `bson:"child_id" json:"child_id"`
	Current          int       `bson:"current" json:"current"`
	Longest          int       `bson:"longest" json:"longest"`
	LastActiveDate   time.Time `bson:"last_active_date" json:"last_active_date"`
	FreezesAvailable int       `bson:"freezes_available" json:"freezes_available"`
	UpdatedAt        time.Time `bson:"updated_at" json:"updated_at"`
}

// UTCDate truncates t to its UTC calendar date.
func UTCDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b in UTC.
func DaysBetween(a, b time.Time) int {
	return int(UTCDate(b).Sub(UTCDate(a)).Hours() / 24)
}

type StreakInfo struct {
	Current          int  `json:"current"`
	Longest          int  `json:"longest"`
	IsActiveToday    bool `json:"is_active_today"`
	FreezesAvailable int  `json:"freezes_available"`
}
