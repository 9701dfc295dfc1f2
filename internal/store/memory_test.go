package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heroQuestAPI/internal/apperr"
	"heroQuestAPI/internal/badge"
	"heroQuestAPI/internal/completion"
	"heroQuestAPI/internal/hero"
	"heroQuestAPI/internal/quest"
	"heroQuestAPI/internal/task"
)

func seedHero(m *Memory) hero.Hero {
	h := hero.Hero{ID: uuid.New(), FamilyID: uuid.New(), HeroName: "Mia"}
	m.PutHero(h)
	return h
}

func TestMemoryRollbackOnError(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	h := seedHero(m)

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(tx Tx) error {
		locked, err := tx.LockHero(ctx, h.ID)
		require.NoError(t, err)
		locked.TotalXP = 99
		require.NoError(t, tx.UpdateHeroProgress(ctx, locked))
		require.NoError(t, tx.InsertXPLog(ctx, &completion.XPLogEntry{ID: uuid.New(), HeroID: h.ID, Amount: 99}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := m.GetHero(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TotalXP)

	log, err := m.ListXPLog(ctx, h.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestMemoryFaultInjection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	h := seedHero(m)
	m.FailOn("InsertXPLog", apperr.Unavailable("insert xp log", errors.New("disk full")))

	err := m.WithTx(ctx, func(tx Tx) error {
		return tx.InsertXPLog(ctx, &completion.XPLogEntry{ID: uuid.New(), HeroID: h.ID})
	})
	assert.True(t, apperr.Retryable(err))

	m.FailOn("InsertXPLog", nil)
	err = m.WithTx(ctx, func(tx Tx) error {
		return tx.InsertXPLog(ctx, &completion.XPLogEntry{ID: uuid.New(), HeroID: h.ID})
	})
	assert.NoError(t, err)
}

func TestMemoryAwardBadgeOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	h := seedHero(m)
	now := time.Now()

	var first, second bool
	require.NoError(t, m.WithTx(ctx, func(tx Tx) error {
		var err error
		first, err = tx.AwardBadge(ctx, h.ID, "xp_500", now)
		if err != nil {
			return err
		}
		second, err = tx.AwardBadge(ctx, h.ID, "xp_500", now.Add(time.Minute))
		return err
	}))

	assert.True(t, first)
	assert.False(t, second)

	awards, err := m.ListHeroBadges(ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, awards, 1)
	assert.Equal(t, now, awards[0].EarnedAt)
}

func TestMemoryIdempotencyKeyUnique(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	h := seedHero(m)
	key := "req-1"

	insert := func() error {
		return m.WithTx(ctx, func(tx Tx) error {
			return tx.InsertCompletion(ctx, &completion.Completion{
				ID: uuid.New(), HeroID: h.ID, SourceType: completion.SourceTask, IdempotencyKey: &key,
			})
		})
	}

	require.NoError(t, insert())
	assert.True(t, errors.Is(insert(), apperr.ErrConflict))

	found, err := m.FindCompletionByKey(ctx, h.ID, key)
	require.NoError(t, err)
	require.NotNil(t, found)

	missing, err := m.FindCompletionByKey(ctx, h.ID, "other")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryQuestFlipsOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	q := &quest.Quest{ID: uuid.New(), FamilyID: uuid.New(), Title: "Yard", MinParticipants: 2}
	first := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	var flipped, again bool
	require.NoError(t, m.WithTx(ctx, func(tx Tx) error {
		if err := tx.InsertQuest(ctx, q); err != nil {
			return err
		}
		var err error
		if flipped, err = tx.MarkQuestCompleted(ctx, q.ID, first); err != nil {
			return err
		}
		again, err = tx.MarkQuestCompleted(ctx, q.ID, first.Add(time.Hour))
		return err
	}))

	assert.True(t, flipped)
	assert.False(t, again)

	got, err := m.GetQuest(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	assert.Equal(t, first, *got.CompletedAt)
}

func TestMemoryParticipants(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	h := seedHero(m)
	q := &quest.Quest{ID: uuid.New(), FamilyID: h.FamilyID, Title: "Dishes", MinParticipants: 2}

	require.NoError(t, m.WithTx(ctx, func(tx Tx) error {
		if err := tx.InsertQuest(ctx, q); err != nil {
			return err
		}
		p := &quest.Participant{ID: uuid.New(), QuestID: q.ID, HeroID: h.ID}
		if err := tx.AddParticipant(ctx, p); err != nil {
			return err
		}
		return tx.AddParticipant(ctx, &quest.Participant{ID: uuid.New(), QuestID: q.ID, HeroID: h.ID})
	}))

	ps, err := m.ListParticipants(ctx, q.ID)
	require.NoError(t, err)
	assert.Len(t, ps, 1)

	err = m.WithTx(ctx, func(tx Tx) error {
		if err := tx.MarkParticipantCompleted(ctx, q.ID, h.ID, time.Now()); err != nil {
			return err
		}
		return tx.MarkParticipantCompleted(ctx, q.ID, h.ID, time.Now())
	})
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	// the failed transaction rolled back the first mark as well
	p, err := m.GetParticipant(ctx, q.ID, h.ID)
	require.NoError(t, err)
	assert.False(t, p.HasCompleted)

	err = m.WithTx(ctx, func(tx Tx) error {
		return tx.RemoveParticipant(ctx, q.ID, uuid.New())
	})
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestMemoryCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMemory().WithTx(ctx, func(tx Tx) error { return nil })
	assert.True(t, apperr.Retryable(err))
}

func TestMemorySyncBadgesDeactivatesRemoved(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	first := badge.Definition{ID: "first_task", Name: "First Task", Requirement: badge.Requirement{Kind: badge.KindTaskCount, Threshold: 1}}
	old := badge.Definition{ID: "old", Name: "Old", Requirement: badge.Requirement{Kind: badge.KindLevel, Threshold: 2}}

	require.NoError(t, m.SyncBadges(ctx, []badge.Definition{old, first}))
	active, err := m.ListActiveBadges(ctx)
	require.NoError(t, err)
	assert.Equal(t, []badge.Definition{first, old}, active)

	require.NoError(t, m.SyncBadges(ctx, []badge.Definition{first}))
	active, err = m.ListActiveBadges(ctx)
	require.NoError(t, err)
	assert.Equal(t, []badge.Definition{first}, active)
}

func TestMemoryTasks(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	familyID := uuid.New()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	older := task.Task{ID: uuid.New(), FamilyID: familyID, Title: "Dust", IsActive: true, CreatedAt: base}
	newer := task.Task{ID: uuid.New(), FamilyID: familyID, Title: "Mop", IsActive: true, CreatedAt: base.Add(time.Hour)}
	elsewhere := task.Task{ID: uuid.New(), FamilyID: uuid.New(), Title: "Rake", IsActive: true, CreatedAt: base}
	require.NoError(t, m.WithTx(ctx, func(tx Tx) error {
		for _, tk := range []task.Task{older, newer, elsewhere} {
			if err := tx.InsertTask(ctx, &tk); err != nil {
				return err
			}
		}
		return nil
	}))

	err := m.WithTx(ctx, func(tx Tx) error { return tx.InsertTask(ctx, &older) })
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	listed, err := m.ListFamilyTasks(ctx, familyID)
	require.NoError(t, err)
	assert.Equal(t, []task.Task{newer, older}, listed)

	newer.IsActive = false
	require.NoError(t, m.WithTx(ctx, func(tx Tx) error { return tx.UpdateTask(ctx, &newer) }))
	listed, err = m.ListFamilyTasks(ctx, familyID)
	require.NoError(t, err)
	assert.Equal(t, []task.Task{older}, listed)

	missing := task.Task{ID: uuid.New()}
	err = m.WithTx(ctx, func(tx Tx) error { return tx.UpdateTask(ctx, &missing) })
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestMemoryListCompletionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	h := seedHero(m)
	other := seedHero(m)
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	require.NoError(t, m.WithTx(ctx, func(tx Tx) error {
		for i := 0; i < 3; i++ {
			for _, heroID := range []uuid.UUID{h.ID, other.ID} {
				c := &completion.Completion{
					ID:          uuid.New(),
					HeroID:      heroID,
					SourceType:  completion.SourceTask,
					SourceID:    uuid.New(),
					CompletedAt: base.Add(time.Duration(i) * time.Hour),
				}
				if heroID == h.ID {
					ids = append(ids, c.ID)
				}
				if err := tx.InsertCompletion(ctx, c); err != nil {
					return err
				}
			}
		}
		return nil
	}))

	got, err := m.ListCompletions(ctx, h.ID, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids[2], got[0].ID)
	assert.Equal(t, ids[1], got[1].ID)

	all, err := m.ListCompletions(ctx, h.ID, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
