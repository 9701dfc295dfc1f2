package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heroQuestAPI/internal/apperr"
	"heroQuestAPI/internal/task"
)

func TestTaskCreateAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	weekly := task.FrequencyWeekly
	created, err := f.tasks.Create(ctx, &task.CreateTaskRequest{
		FamilyID:          f.familyID,
		Title:             "  Take out the bins ",
		Frequency:         &weekly,
		CreatedByMemberID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Take out the bins", created.Title)
	assert.Equal(t, task.DefaultXPReward, created.XPReward)
	assert.Equal(t, task.FrequencyWeekly, created.Frequency)
	assert.True(t, created.IsActive)
	assert.Equal(t, f.clock.Now(), created.CreatedAt)

	got, err := f.tasks.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, *created, *got)

	f.clock.addDays(1)
	later, err := f.tasks.Create(ctx, &task.CreateTaskRequest{FamilyID: f.familyID, Title: "Dishes"})
	require.NoError(t, err)

	_, err = f.tasks.Create(ctx, &task.CreateTaskRequest{FamilyID: f.familyID, Title: ""})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	listed, err := f.tasks.ListFamily(ctx, f.familyID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, later.ID, listed[0].ID, "newest first")
	assert.Equal(t, created.ID, listed[1].ID)

	other, err := f.tasks.ListFamily(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, other)
	assert.Empty(t, other)
}

func TestTaskUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	chore := f.addTask(10)

	f.clock.addDays(1)
	title, xp := "Walk the dog", 25
	updated, err := f.tasks.Update(ctx, chore.ID, &task.UpdateTaskRequest{Title: &title, XPReward: &xp})
	require.NoError(t, err)
	assert.Equal(t, "Walk the dog", updated.Title)
	assert.Equal(t, 25, updated.XPReward)
	assert.Equal(t, f.clock.Now(), updated.UpdatedAt)

	negative := -1
	_, err = f.tasks.Update(ctx, chore.ID, &task.UpdateTaskRequest{XPReward: &negative})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	stored, err := f.tasks.Get(ctx, chore.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, stored.XPReward, "a rejected update leaves the task as it was")

	_, err = f.tasks.Update(ctx, uuid.New(), &task.UpdateTaskRequest{Title: &title})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	// the new reward applies to later completions
	h := f.addHero("Kit")
	res, err := f.progression.CompleteTask(ctx, h.ID, chore.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 25, res.XPAwarded)
}

func TestTaskDeactivate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := f.addHero("Rue")
	chore := f.addTask(10)

	done, err := f.progression.CompleteTask(ctx, h.ID, chore.ID, "")
	require.NoError(t, err)

	require.NoError(t, f.tasks.Deactivate(ctx, chore.ID))
	require.NoError(t, f.tasks.Deactivate(ctx, chore.ID))

	stored, err := f.tasks.Get(ctx, chore.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	listed, err := f.tasks.ListFamily(ctx, f.familyID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	_, err = f.progression.CompleteTask(ctx, h.ID, chore.ID, "")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	history, err := f.heroes.CompletionHistory(ctx, h.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, done.CompletionID, history[0].ID)

	assert.True(t, errors.Is(f.tasks.Deactivate(ctx, uuid.New()), apperr.ErrNotFound))
}

func TestTasksForHero(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := f.addHero("Bo")
	sibling := f.addHero("Cy")
	dishes, laundry := f.addTask(10), f.addTask(15)

	_, err := f.progression.CompleteTask(ctx, h.ID, dishes.ID, "")
	require.NoError(t, err)
	_, err = f.progression.CompleteTask(ctx, h.ID, dishes.ID, "")
	require.NoError(t, err)
	_, err = f.progression.CompleteTask(ctx, sibling.ID, laundry.ID, "")
	require.NoError(t, err)

	status := func() map[uuid.UUID]task.WithStatus {
		list, err := f.tasks.ForHero(ctx, h.ID)
		require.NoError(t, err)
		out := make(map[uuid.UUID]task.WithStatus, len(list))
		for _, ws := range list {
			out[ws.ID] = ws
		}
		return out
	}

	byID := status()
	require.Len(t, byID, 2)
	assert.True(t, byID[dishes.ID].CompletedToday)
	assert.Len(t, byID[dishes.ID].Completions, 2)
	assert.False(t, byID[laundry.ID].CompletedToday, "a sibling's completion does not count")
	assert.NotNil(t, byID[laundry.ID].Completions)

	f.clock.addDays(1)
	byID = status()
	assert.False(t, byID[dishes.ID].CompletedToday)
	assert.Empty(t, byID[dishes.ID].Completions)

	_, err = f.tasks.ForHero(ctx, uuid.New())
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestTaskUpdateRollsBackOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	chore := f.addTask(10)

	f.store.FailOn("UpdateTask", apperr.Unavailable("update task", errors.New("connection reset")))
	title := "Vacuum"
	_, err := f.tasks.Update(ctx, chore.ID, &task.UpdateTaskRequest{Title: &title})
	assert.True(t, errors.Is(err, apperr.ErrStoreUnavailable))

	stored, err := f.tasks.Get(ctx, chore.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chore", stored.Title)
}
