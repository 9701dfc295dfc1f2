package quest

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"heroQuestAPI/internal/apperr"
)

const (
	DefaultXPRewardPerParticipant = 50
	DefaultMinParticipants        = 2
)

// Quest is a group activity. IsCompleted is one-way and CompletedAt is set
// exactly once.
type Quest struct {
	ID                     uuid.UUID  `json:"id" db:"id"`
	FamilyID               uuid.UUID  `json:"family_id" db:"family_id"`
	Title                  string     `json:"title" db:"title"`
	Description            *string    `json:"description" db:"description"`
	XPRewardPerParticipant int        `json:"xp_reward_per_participant" db:"xp_reward_per_participant"`
	MinParticipants        int        `json:"min_participants" db:"min_participants"`
	MaxParticipants        *int       `json:"max_participants" db:"max_participants"`
	IsCompleted            bool       `json:"is_completed" db:"is_completed"`
	CompletedAt            *time.Time `json:"completed_at" db:"completed_at"`
	ExpiresAt              *time.Time `json:"expires_at" db:"expires_at"`
	CreatedByMemberID      uuid.UUID  `json:"created_by_member_id" db:"created_by_member_id"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}

type Participant struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	QuestID      uuid.UUID  `json:"quest_id" db:"quest_id"`
	HeroID       uuid.UUID  `json:"hero_id" db:"hero_id"`
	HasCompleted bool       `json:"has_completed" db:"has_completed"`
	CompletedAt  *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

type WithParticipants struct {
	Quest
	Participants []Participant `json:"participants"`
}

type HeroStats struct {
	TotalJoined       int `json:"total_joined"`
	TotalCompleted    int `json:"total_completed"`
	TotalXPFromQuests int `json:"total_xp_from_quests"`
}

type CreateQuestRequest struct {
	FamilyID               uuid.UUID  `json:"family_id"`
	Title                  string     `json:"title"`
	Description            *string    `json:"description"`
	XPRewardPerParticipant *int       `json:"xp_reward_per_participant"`
	MinParticipants        *int       `json:"min_participants"`
	MaxParticipants        *int       `json:"max_participants"`
	ExpiresAt              *time.Time `json:"expires_at"`
	CreatedByMemberID      uuid.UUID  `json:"created_by_member_id"`
}

// Build validates the request, fills defaults and returns the quest to insert.
func (r *CreateQuestRequest) Build(now time.Time) (*Quest, error) {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return nil, apperr.Validation("quest title is required")
	}
	if r.FamilyID == uuid.Nil {
		return nil, apperr.Validation("family id is required")
	}

	xp := DefaultXPRewardPerParticipant
	if r.XPRewardPerParticipant != nil {
		xp = *r.XPRewardPerParticipant
	}
	if xp < 0 {
		return nil, apperr.Validation("xp reward cannot be negative")
	}

	minP := DefaultMinParticipants
	if r.MinParticipants != nil {
		minP = *r.MinParticipants
	}
	if minP < 2 {
		return nil, apperr.Validation("a quest needs at least 2 participants, got %d", minP)
	}
	if r.MaxParticipants != nil && *r.MaxParticipants < minP {
		return nil, apperr.Validation("max participants (%d) is below min participants (%d)", *r.MaxParticipants, minP)
	}
	if r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
		return nil, apperr.Validation("expiry must be in the future")
	}

	return &Quest{
		ID:                     uuid.New(),
		FamilyID:               r.FamilyID,
		Title:                  title,
		Description:            r.Description,
		XPRewardPerParticipant: xp,
		MinParticipants:        minP,
		MaxParticipants:        r.MaxParticipants,
		ExpiresAt:              r.ExpiresAt,
		CreatedByMemberID:      r.CreatedByMemberID,
		CreatedAt:              now,
		UpdatedAt:              now,
	}, nil
}

func (q *Quest) Expired(now time.Time) bool {
	return q.ExpiresAt != nil && !now.Before(*q.ExpiresAt)
}

// CheckJoin is run only for heroes that are not yet participants; re-joining
// is a no-op handled by the caller.
func (q *Quest) CheckJoin(participantCount int, now time.Time) error {
	if q.IsCompleted {
		return apperr.Conflict("quest %s is already completed", q.ID)
	}
	if q.Expired(now) {
		return apperr.Conflict("quest %s has expired", q.ID)
	}
	if q.MaxParticipants != nil && participantCount >= *q.MaxParticipants {
		return apperr.Conflict("quest %s is full", q.ID)
	}
	return nil
}

// CheckLeave rejects leaving a quest the hero is not part of (never joined or
// already left) the same way as leaving a finished one.
func (q *Quest) CheckLeave(heroID uuid.UUID, p *Participant) error {
	if p == nil {
		return apperr.Conflict("hero %s is not a participant of quest %s", heroID, q.ID)
	}
	if q.IsCompleted {
		return apperr.Conflict("quest %s is already completed", q.ID)
	}
	if p.HasCompleted {
		return apperr.Conflict("hero %s already completed their part", p.HeroID)
	}
	return nil
}

func (q *Quest) CheckComplete(p *Participant) error {
	if p == nil {
		return apperr.Conflict("hero has not joined quest %s", q.ID)
	}
	if p.HasCompleted {
		return apperr.Conflict("hero %s already completed their part", p.HeroID)
	}
	return nil
}

// ReachesQuorum reports whether completedCount finishes the quest now. It is
// false once the quest is completed so the transition fires only once.
func (q *Quest) ReachesQuorum(completedCount int) bool {
	return !q.IsCompleted && completedCount >= q.MinParticipants
}
