// Package store is the data store collaborator of the progression engine.
// Postgres is the production backend; Memory backs tests and local runs.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"heroQuestAPI/internal/badge"
	"heroQuestAPI/internal/completion"
	"heroQuestAPI/internal/hero"
	"heroQuestAPI/internal/quest"
	"heroQuestAPI/internal/task"
)

// Reader holds the read operations. Lookups of a single record return an
// error wrapping apperr.ErrNotFound when the record is absent, except
// GetParticipant and FindCompletionByKey which return nil, nil.
type Reader interface {
	GetHero(ctx context.Context, heroID uuid.UUID) (*hero.Hero, error)
	ListFamilyHeroes(ctx context.Context, familyID uuid.UUID) ([]*hero.Hero, error)
	GetTask(ctx context.Context, taskID uuid.UUID) (*task.Task, error)
	// ListFamilyTasks returns the family's active tasks, newest first.
	ListFamilyTasks(ctx context.Context, familyID uuid.UUID) ([]task.Task, error)

	GetQuest(ctx context.Context, questID uuid.UUID) (*quest.Quest, error)
	ListFamilyQuests(ctx context.Context, familyID uuid.UUID) ([]*quest.Quest, error)
	ListParticipants(ctx context.Context, questID uuid.UUID) ([]quest.Participant, error)
	GetParticipant(ctx context.Context, questID, heroID uuid.UUID) (*quest.Participant, error)
	HeroQuestStats(ctx context.Context, heroID uuid.UUID) (*quest.HeroStats, error)

	CountCompletions(ctx context.Context, heroID uuid.UUID, source completion.SourceType) (int, error)
	ListCompletionsSince(ctx context.Context, heroID uuid.UUID, since time.Time) ([]completion.Completion, error)
	// ListCompletions returns at most limit completions, newest first.
	ListCompletions(ctx context.Context, heroID uuid.UUID, limit int) ([]completion.Completion, error)
	FindCompletionByKey(ctx context.Context, heroID uuid.UUID, key string) (*completion.Completion, error)
	ListXPLog(ctx context.Context, heroID uuid.UUID, limit int) ([]completion.XPLogEntry, error)

	ListHeroBadges(ctx context.Context, heroID uuid.UUID) ([]badge.Award, error)
	// ListActiveBadges returns the stored catalog rows still marked active,
	// ordered by id.
	ListActiveBadges(ctx context.Context) ([]badge.Definition, error)
}

// Tx is a unit of work. Every write of one completion goes through a single
// Tx so a failure leaves no partial state behind.
type Tx interface {
	Reader

	// LockHero reads the hero and holds it until the transaction ends.
	LockHero(ctx context.Context, heroID uuid.UUID) (*hero.Hero, error)
	UpdateHeroProgress(ctx context.Context, h *hero.Hero) error

	InsertCompletion(ctx context.Context, c *completion.Completion) error
	// SetCompletionResult stores the response so a retried request with the
	// same idempotency key can be answered without new writes.
	SetCompletionResult(ctx context.Context, completionID uuid.UUID, r *completion.Result) error
	InsertXPLog(ctx context.Context, e *completion.XPLogEntry) error
	// AwardBadge reports whether this call created the (hero, badge) row.
	AwardBadge(ctx context.Context, heroID uuid.UUID, badgeID string, at time.Time) (bool, error)

	InsertTask(ctx context.Context, t *task.Task) error
	// UpdateTask overwrites the editable fields of an existing task.
	UpdateTask(ctx context.Context, t *task.Task) error

	LockQuest(ctx context.Context, questID uuid.UUID) (*quest.Quest, error)
	InsertQuest(ctx context.Context, q *quest.Quest) error
	DeleteQuest(ctx context.Context, questID uuid.UUID) error
	AddParticipant(ctx context.Context, p *quest.Participant) error
	RemoveParticipant(ctx context.Context, questID, heroID uuid.UUID) error
	MarkParticipantCompleted(ctx context.Context, questID, heroID uuid.UUID, at time.Time) error
	CountQuestCompleted(ctx context.Context, questID uuid.UUID) (int, error)
	// MarkQuestCompleted flips the quest once. It reports false when the
	// quest was already completed.
	MarkQuestCompleted(ctx context.Context, questID uuid.UUID, at time.Time) (bool, error)
}

type Store interface {
	Reader
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	SyncBadges(ctx context.Context, defs []badge.Definition) error
	Ping(ctx context.Context) error
	Close()
}
