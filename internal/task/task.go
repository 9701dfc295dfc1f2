package task

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"heroQuestAPI/internal/apperr"
	"heroQuestAPI/internal/completion"
)

const DefaultXPReward = 10

// Frequency is how often a task is meant to be done. It is shown to heroes
// but not enforced: a task can be completed any number of times a day.
type Frequency string

const (
	FrequencyOnce   Frequency = "once"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyCustom:
		return true
	}
	return false
}

// Task is a chore a family admin sets up. Deleting a task only deactivates
// it so past completions keep their source.
type Task struct {
	ID                uuid.UUID `json:"id" db:"id"`
	FamilyID          uuid.UUID `json:"family_id" db:"family_id"`
	Title             string    `json:"title" db:"title"`
	Description       *string   `json:"description" db:"description"`
	XPReward          int       `json:"xp_reward" db:"xp_reward"`
	Frequency         Frequency `json:"frequency" db:"frequency"`
	IsActive          bool      `json:"is_active" db:"is_active"`
	CreatedByMemberID uuid.UUID `json:"created_by_member_id" db:"created_by_member_id"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// WithStatus is a task as one hero sees it today.
type WithStatus struct {
	Task
	Completions    []completion.Completion `json:"completions"`
	CompletedToday bool                    `json:"completed_today"`
}

type CreateTaskRequest struct {
	FamilyID          uuid.UUID  `json:"family_id"`
	Title             string     `json:"title"`
	Description       *string    `json:"description"`
	XPReward          *int       `json:"xp_reward"`
	Frequency         *Frequency `json:"frequency"`
	CreatedByMemberID uuid.UUID  `json:"created_by_member_id"`
}

func (r *CreateTaskRequest) Build(now time.Time) (*Task, error) {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return nil, apperr.Validation("task title is required")
	}
	if r.FamilyID == uuid.Nil {
		return nil, apperr.Validation("family id is required")
	}

	xp := DefaultXPReward
	if r.XPReward != nil {
		xp = *r.XPReward
	}
	if xp < 0 {
		return nil, apperr.Validation("xp reward cannot be negative")
	}

	freq := FrequencyDaily
	if r.Frequency != nil {
		freq = *r.Frequency
	}
	if !freq.Valid() {
		return nil, apperr.Validation("unknown task frequency %q", freq)
	}

	return &Task{
		ID:                uuid.New(),
		FamilyID:          r.FamilyID,
		Title:             title,
		Description:       r.Description,
		XPReward:          xp,
		Frequency:         freq,
		IsActive:          true,
		CreatedByMemberID: r.CreatedByMemberID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// UpdateTaskRequest changes only the fields that are set.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	XPReward    *int       `json:"xp_reward"`
	Frequency   *Frequency `json:"frequency"`
	IsActive    *bool      `json:"is_active"`
}

// Apply validates the request and writes it onto t. t is untouched when an
// error is returned.
func (r *UpdateTaskRequest) Apply(t *Task, now time.Time) error {
	next := *t
	if r.Title != nil {
		next.Title = strings.TrimSpace(*r.Title)
		if next.Title == "" {
			return apperr.Validation("task title is required")
		}
	}
	if r.Description != nil {
		next.Description = r.Description
	}
	if r.XPReward != nil {
		if *r.XPReward < 0 {
			return apperr.Validation("xp reward cannot be negative")
		}
		next.XPReward = *r.XPReward
	}
	if r.Frequency != nil {
		if !r.Frequency.Valid() {
			return apperr.Validation("unknown task frequency %q", *r.Frequency)
		}
		next.Frequency = *r.Frequency
	}
	if r.IsActive != nil {
		next.IsActive = *r.IsActive
	}
	next.UpdatedAt = now
	*t = next
	return nil
}
