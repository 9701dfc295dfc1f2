package completion

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"heroQuestAPI/internal/badge"
	"heroQuestAPI/internal/level"
)

type SourceType string

const (
	SourceTask  SourceType = "task"
	SourceQuest SourceType = "quest"
)

// Completion is the immutable record of one fulfilled task or quest part.
// XPEarned is the bonus-inclusive amount actually granted.
type Completion struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	HeroID         uuid.UUID  `json:"hero_id" db:"hero_id"`
	SourceType     SourceType `json:"source_type" db:"source_type"`
	SourceID       uuid.UUID  `json:"source_id" db:"source_id"`
	XPEarned       int        `json:"xp_earned" db:"xp_earned"`
	IdempotencyKey *string    `json:"-" db:"idempotency_key"`
	Result         *Result    `json:"-" db:"result"`
	CompletedAt    time.Time  `json:"completed_at" db:"completed_at"`
}

// XPLogEntry is the append-only audit trail of XP grants.
type XPLogEntry struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	HeroID     uuid.UUID  `json:"hero_id" db:"hero_id"`
	Amount     int        `json:"xp_amount" db:"xp_amount"`
	SourceType SourceType `json:"source_type" db:"source_type"`
	SourceID   uuid.UUID  `json:"source_id" db:"source_id"`
	Reason     string     `json:"reason" db:"reason"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Result is everything one completion produced, returned in a single response
// so the client can animate XP, streak, level and badges together.
type Result struct {
	CompletionID      uuid.UUID      `json:"completion_id"`
	SourceType        SourceType     `json:"source_type"`
	SourceID          uuid.UUID      `json:"source_id"`
	BaseXP            int            `json:"base_xp"`
	XPAwarded         int            `json:"xp_awarded"`
	StreakBonus       int            `json:"streak_bonus"`
	BonusMultiplier   float64        `json:"bonus_multiplier"`
	NewTotalXP        int            `json:"new_total_xp"`
	NewStreak         int            `json:"new_streak"`
	LongestStreak     int            `json:"longest_streak"`
	IsNewStreakRecord bool           `json:"is_new_streak_record"`
	MilestoneReached  *int           `json:"milestone_reached,omitempty"`
	LevelUp           level.UpResult `json:"level_up"`
	NewBadges         []badge.View   `json:"new_badges"`
	QuestCompleted    bool           `json:"quest_completed"`
	Replayed          bool           `json:"replayed"`
}

// Reason is the ledger text for a grant.
func Reason(source SourceType, bonus int) string {
	switch source {
	case SourceQuest:
		if bonus > 0 {
			return fmt.Sprintf("Completed quest (+%d streak bonus)", bonus)
		}
		return "Completed quest participation"
	default:
		if bonus > 0 {
			return fmt.Sprintf("Completed task (+%d streak bonus)", bonus)
		}
		return "Completed task"
	}
}
