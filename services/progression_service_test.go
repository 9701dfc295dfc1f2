package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heroQuestAPI/internal/apperr"
	"heroQuestAPI/internal/badge"
	"heroQuestAPI/internal/completion"
	"heroQuestAPI/internal/streak"
)

func TestCompleteTaskStreakScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := f.addHero("Leo")
	chore := f.addTask(10)

	day1, err := f.progression.CompleteTask(ctx, h.ID, chore.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 10, day1.XPAwarded)
	assert.Equal(t, 0, day1.StreakBonus)
	assert.Equal(t, 0.0, day1.BonusMultiplier)
	assert.Equal(t, 1, day1.NewStreak)
	assert.Equal(t, 10, day1.NewTotalXP)

	f.clock.addDays(1)
	day2, err := f.progression.CompleteTask(ctx, h.ID, chore.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, day2.NewStreak)
	assert.Equal(t, 11, day2.XPAwarded)
	assert.Equal(t, 21, day2.NewTotalXP)
	assert.True(t, day2.IsNewStreakRecord)

	f.clock.addDays(2)
	day4, err := f.progression.CompleteTask(ctx, h.ID, chore.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, day4.NewStreak)
	assert.Equal(t, 10, day4.XPAwarded)
	assert.Equal(t, 0, day4.StreakBonus)
	assert.Equal(t, 31, day4.NewTotalXP)
	assert.Equal(t, 2, day4.LongestStreak)
	assert.False(t, day4.IsNewStreakRecord)

	stored, err := f.store.GetHero(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 31, stored.TotalXP)
	assert.Equal(t, 1, stored.CurrentStreak)
	assert.Equal(t, 2, stored.LongestStreak)
	assert.GreaterOrEqual(t, stored.LongestStreak, stored.CurrentStreak)
}

func TestCompleteTaskSameDayUsesUnchangedStreak(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := f.addHero("Ada")
	chore := f.addTask(20)

	_, err := f.progression.CompleteTask(ctx, h.ID, chore.ID, "")
	require.NoError(t, err)

	second, err := f.progression.CompleteTask(ctx, h.ID, chore.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, second.NewStreak)
	assert.Equal(t, 21, second.XPAwarded)
	assert.Equal(t, 0.05, second.BonusMultiplier)
	assert.Nil(t, second.MilestoneReached)
}

func TestCompleteTaskLedgerMatchesTotal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := f.addHero("Kai")
	chore := f.addTask(15)

	for day := 0; day < 5; day++ {
		for i := 0; i < 2; i++ {
			_, err := f.progression.CompleteTask(ctx, h.ID, chore.ID, "")
			require.NoError(t, err)
		}
		f.clock.addDays(1)
	}

	entries, err := f.store.ListXPLog(ctx, h.ID, 100)
	require.NoError(t, err)
	require.Len(t, entries, 10)

	sum := 0
	for _, e := range entries {
		sum += e.Amount
	}
	stored, err := f.store.GetHero(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.TotalXP, sum)

	withBonus := 0
	for _, e := range entries {
		if e.Amount > 15 {
			withBonus++
			assert.Contains(t, e.Reason, "streak bonus")
		} else {
			assert.Equal(t, "Completed task", e.Reason)
		}
	}
	assert.Equal(t, 9, withBonus)
}

func TestCompleteTaskMilestone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := f.addHero("Noa")
	chore := f.addTask(5)

	var last *completion.Result
	for day := 0; day < 3; day++ {
		var err error
		last, err = f.progression.CompleteTask(ctx, h.ID, chore.ID, "")
		require.NoError(t, err)
		f.clock.addDays(1)
	}

	require.NotNil(t, last.MilestoneReached)
	assert.Equal(t, 3, *last.MilestoneReached)
}

func TestCompleteTaskCrossing500AwardsBadgeOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := f.addHero("Zoe")
	big := f.addTask(600)

	res, err := f.progression.CompleteTask(ctx, h.ID, big.ID, "")
	require.NoError(t, err)

	ids := badgeIDs(res.NewBadges)
	assert.Contains(t, ids, "xp_500")
	assert.Contains(t, ids, "first_task")
	assert.True(t, res.LevelUp.LeveledUp)
	assert.Equal(t, 1, res.LevelUp.PreviousLevel)
	assert.Equal(t, 3, res.LevelUp.NewLevel)
	assert.Equal(t, 2, res.LevelUp.LevelsGained)

	again, err := f.badges.Evaluate(ctx, h.ID)
	require.NoError(t, err)
	assert.Empty(t, again)

	earned, err := f.badges.HeroBadges(ctx, h.ID)
	require.NoError(t, err)
	count := 0
	for _, e := range earned {
		if e.ID == "xp_500" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, float64(len(ids)), testutil.ToFloat64(f.metrics.BadgesAwarded.WithLabelValues(string(badge.RarityCommon)))+
		testutil.ToFloat64(f.metrics.BadgesAwarded.WithLabelValues(string(badge.RarityRare))))
}

func badgeIDs(views []badge.View) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

func TestCompleteTaskRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := f.addHero("Ivo")
	chore := f.addTask(10)

	f.store.FailOn("InsertXPLog", apperr.Unavailable("insert xp log", errors.New("connection reset")))
	_, err := f.progression.CompleteTask(ctx, h.ID, chore.ID, "")
	require.Error(t, err)
	assert.True(t, apperr.Retryable(err))

	stored, err := f.store.GetHero(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.TotalXP)
	assert.Equal(t, 0, stored.CurrentStreak)
	assert.Nil(t, stored.LastActivityDate)

	n, err := f.store.CountCompletions(ctx, h.ID, completion.SourceTask)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.store.FailOn("InsertXPLog", nil)
	res, err := f.progression.CompleteTask(ctx, h.ID, chore.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 10, res.NewTotalXP)
}

func TestCompleteTaskIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := f.addHero("Mila")
	chore := f.addTask(10)

	first, err := f.progression.CompleteTask(ctx, h.ID, chore.ID, "tap-1")
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	retry, err := f.progression.CompleteTask(ctx, h.ID, chore.ID, "tap-1")
	require.NoError(t, err)
	assert.True(t, retry.Replayed)
	assert.Equal(t, first.CompletionID, retry.CompletionID)
	assert.Equal(t, first.NewTotalXP, retry.NewTotalXP)

	stored, err := f.store.GetHero(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.TotalXP)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Replays))

	other := f.addTask(30)
	_, err = f.progression.CompleteTask(ctx, h.ID, other.ID, "tap-1")
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestCompleteTaskConcurrentSameHero(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := f.addHero("Rio")
	chore := f.addTask(10)

	const n = 10
	var wg sync.WaitGroup
	results := make([]*completion.Result, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.progression.CompleteTask(ctx, h.ID, chore.ID, "")
			if assert.NoError(t, err) {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	sum := 0
	for _, r := range results {
		require.NotNil(t, r)
		sum += r.XPAwarded
	}

	stored, err := f.store.GetHero(ctx, h.ID)
	require.NoError(t, err)
	// first one earns 10, the other nine carry the day-one streak bonus
	assert.Equal(t, 10+9*streak.ApplyBonus(10, 1), stored.TotalXP)
	assert.Equal(t, sum, stored.TotalXP)
	assert.Equal(t, 1, stored.CurrentStreak)
	assert.Equal(t, float64(n), testutil.ToFloat64(f.metrics.Completions.WithLabelValues("task")))
}

func TestCompleteTaskErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := f.addHero("Eli")

	_, err := f.progression.CompleteTask(ctx, uuid.New(), uuid.New(), "")
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "missing hero")

	_, err = f.progression.CompleteTask(ctx, h.ID, uuid.New(), "")
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "missing task")

	inactive := f.addTask(10)
	inactive.IsActive = false
	f.store.PutTask(inactive)
	_, err = f.progression.CompleteTask(ctx, h.ID, inactive.ID, "")
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "inactive task")

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'k'
	}
	chore := f.addTask(10)
	_, err = f.progression.CompleteTask(ctx, h.ID, chore.ID, string(long))
	assert.True(t, errors.Is(err, apperr.ErrValidation), "long key")
}
