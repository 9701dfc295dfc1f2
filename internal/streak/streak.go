package streak

import (
	"slices"
	"time"
)

type Status string

const (
	StatusNew    Status = "new"
	StatusActive Status = "active"
	StatusAtRisk Status = "at_risk"
	StatusBroken Status = "broken"
)

const (
	bonusPercentPerDay = 5
	maxBonusPercent    = 50
)

// Milestones are celebrated when the new streak lands exactly on one of them.
var Milestones = []int{3, 7, 14, 30, 60, 100}

// State is the streak slice of a hero. LastActivity is a calendar date
// (midnight UTC) or nil when the hero never completed anything.
type State struct {
	Current      int
	Longest      int
	LastActivity *time.Time
}

type Update struct {
	PreviousStatus   Status    `json:"previous_status"`
	NewStreak        int       `json:"new_streak"`
	LongestStreak    int       `json:"longest_streak"`
	IsNewRecord      bool      `json:"is_new_record"`
	MilestoneReached *int      `json:"milestone_reached,omitempty"`
	LastActivity     time.Time `json:"last_activity_date"`
}

type Info struct {
	CurrentStreak       int        `json:"current_streak"`
	LongestStreak       int        `json:"longest_streak"`
	LastActivityDate    *time.Time `json:"last_activity_date"`
	IsActiveToday       bool       `json:"is_active_today"`
	Status              Status     `json:"streak_status"`
	NextMilestone       *int       `json:"next_milestone"`
	DaysToNextMilestone int        `json:"days_to_next_milestone"`
	BonusMultiplier     float64    `json:"bonus_multiplier"`
}

func StatusOf(last *time.Time, today time.Time) Status {
	if last == nil {
		return StatusNew
	}
	yesterday := today.AddDate(0, 0, -1)
	switch {
	case !last.Before(today):
		return StatusActive
	case last.Equal(yesterday):
		return StatusAtRisk
	default:
		return StatusBroken
	}
}

// Effective is the streak that still counts today: a broken streak is worth
// nothing even though the stored counter has not been reset yet.
func Effective(s State, today time.Time) int {
	switch StatusOf(s.LastActivity, today) {
	case StatusActive, StatusAtRisk:
		return s.Current
	default:
		return 0
	}
}

func BonusPercent(streak int) int {
	if streak <= 0 {
		return 0
	}
	return min(streak*bonusPercentPerDay, maxBonusPercent)
}

// BonusMultiplier is min(streak * 0.05, 0.5).
func BonusMultiplier(streak int) float64 {
	return float64(BonusPercent(streak)) / 100
}

// ApplyBonus returns round(base * (1 + multiplier)) for the given streak,
// rounding halves up. Integer math keeps 10 XP at 5% exactly on 10.5 -> 11.
func ApplyBonus(base, streak int) int {
	if base <= 0 {
		return base
	}
	return (base*(100+BonusPercent(streak)) + 50) / 100
}

// Advance computes the streak after one completion on today.
func Advance(s State, today time.Time) Update {
	status := StatusOf(s.LastActivity, today)

	next := s.Current
	switch status {
	case StatusNew, StatusBroken:
		next = 1
	case StatusAtRisk:
		next = s.Current + 1
	case StatusActive:
		if next < 1 {
			next = 1
		}
	}

	longest := max(s.Longest, next)
	u := Update{
		PreviousStatus: status,
		NewStreak:      next,
		LongestStreak:  longest,
		IsNewRecord:    longest > s.Longest,
		LastActivity:   today,
	}
	if status != StatusActive && slices.Contains(Milestones, next) {
		m := next
		u.MilestoneReached = &m
	}
	return u
}

func NextMilestone(streak int) *int {
	for _, m := range Milestones {
		if m > streak {
			next := m
			return &next
		}
	}
	return nil
}

func InfoFor(s State, today time.Time) Info {
	status := StatusOf(s.LastActivity, today)
	current := Effective(s, today)
	info := Info{
		CurrentStreak:    current,
		LongestStreak:    s.Longest,
		LastActivityDate: s.LastActivity,
		IsActiveToday:    status == StatusActive,
		Status:           status,
		NextMilestone:    NextMilestone(current),
		BonusMultiplier:  BonusMultiplier(current),
	}
	if info.NextMilestone != nil {
		info.DaysToNextMilestone = *info.NextMilestone - current
	}
	return info
}
