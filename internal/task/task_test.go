package task

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heroQuestAPI/internal/apperr"
)

func TestBuildDefaults(t *testing.T) {
	now := time.Date(2026, 2, 1, 7, 0, 0, 0, time.UTC)
	req := &CreateTaskRequest{FamilyID: uuid.New(), Title: " Make the bed "}

	tk, err := req.Build(now)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tk.ID)
	assert.Equal(t, "Make the bed", tk.Title)
	assert.Equal(t, DefaultXPReward, tk.XPReward)
	assert.Equal(t, FrequencyDaily, tk.Frequency)
	assert.True(t, tk.IsActive)
	assert.Equal(t, now, tk.CreatedAt)
	assert.Equal(t, now, tk.UpdatedAt)

	zero := 0
	req.XPReward = &zero
	tk, err = req.Build(now)
	require.NoError(t, err)
	assert.Equal(t, 0, tk.XPReward)
}

func TestBuildValidation(t *testing.T) {
	negative := -5
	bogus := Frequency("hourly")
	family := uuid.New()

	tests := []struct {
		name string
		req  CreateTaskRequest
	}{
		{"blank title", CreateTaskRequest{FamilyID: family, Title: "  "}},
		{"no family", CreateTaskRequest{Title: "Dishes"}},
		{"negative xp", CreateTaskRequest{FamilyID: family, Title: "Dishes", XPReward: &negative}},
		{"unknown frequency", CreateTaskRequest{FamilyID: family, Title: "Dishes", Frequency: &bogus}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.Build(time.Now())
			assert.True(t, errors.Is(err, apperr.ErrValidation), "got %v", err)
		})
	}
}

func TestApply(t *testing.T) {
	created := time.Date(2026, 2, 1, 7, 0, 0, 0, time.UTC)
	now := created.Add(48 * time.Hour)
	orig := Task{ID: uuid.New(), Title: "Dishes", XPReward: 10, Frequency: FrequencyDaily, IsActive: true, CreatedAt: created, UpdatedAt: created}

	tk := orig
	title, desc, weekly, off := "Dry the dishes", "after dinner", FrequencyWeekly, false
	require.NoError(t, (&UpdateTaskRequest{Title: &title, Description: &desc, Frequency: &weekly, IsActive: &off}).Apply(&tk, now))
	assert.Equal(t, "Dry the dishes", tk.Title)
	require.NotNil(t, tk.Description)
	assert.Equal(t, "after dinner", *tk.Description)
	assert.Equal(t, FrequencyWeekly, tk.Frequency)
	assert.False(t, tk.IsActive)
	assert.Equal(t, 10, tk.XPReward)
	assert.Equal(t, created, tk.CreatedAt)
	assert.Equal(t, now, tk.UpdatedAt)
}

func TestApplyLeavesTaskOnError(t *testing.T) {
	orig := Task{ID: uuid.New(), Title: "Dishes", XPReward: 10, Frequency: FrequencyDaily, IsActive: true}

	title, negative := "Laundry", -1
	tk := orig
	err := (&UpdateTaskRequest{Title: &title, XPReward: &negative}).Apply(&tk, time.Now())
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Equal(t, orig, tk)

	blank := " "
	err = (&UpdateTaskRequest{Title: &blank}).Apply(&tk, time.Now())
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Equal(t, orig, tk)
}

func TestFrequencyValid(t *testing.T) {
	for _, f := range []Frequency{FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyCustom} {
		assert.True(t, f.Valid(), f)
	}
	assert.False(t, Frequency("").Valid())
	assert.False(t, Frequency("monthly").Valid())
}
