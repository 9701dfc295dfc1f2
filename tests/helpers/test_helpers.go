package helpers

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"heroQuestAPI/internal/store"
)

// SetupTestDB connects to TEST_DATABASE_URL and applies the schema. Tests are
// skipped when it is not set so the package suite runs without Postgres.
func SetupTestDB(t *testing.T) *store.Postgres {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pg, err := store.NewPostgres(ctx, dbURL, store.DefaultPoolConfig(), store.DefaultRetryPolicy())
	require.NoError(t, err, "connect to test database")
	require.NoError(t, pg.Migrate(ctx), "migrate test database")

	return pg
}

// CleanupTestDB removes everything seeded for family and closes the pool.
// Completions, ledger rows and badges go with the heroes via ON DELETE CASCADE.
func CleanupTestDB(t *testing.T, pg *store.Postgres, familyID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	for _, stmt := range []string{
		"DELETE FROM quests WHERE family_id = $1",
		"DELETE FROM heroes WHERE family_id = $1",
		"DELETE FROM tasks WHERE family_id = $1",
	} {
		if _, err := pg.Pool().Exec(ctx, stmt, familyID); err != nil {
			t.Logf("Warning: failed to cleanup test data: %v", err)
		}
	}
	pg.Close()
}

func SeedHero(t *testing.T, pg *store.Postgres, familyID uuid.UUID, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pg.Pool().Exec(context.Background(),
		"INSERT INTO heroes (id, family_id, hero_name) VALUES ($1, $2, $3)", id, familyID, name)
	require.NoError(t, err)
	return id
}

func SeedTask(t *testing.T, pg *store.Postgres, familyID uuid.UUID, title string, xp int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pg.Pool().Exec(context.Background(),
		`INSERT INTO tasks (id, family_id, title, xp_reward, created_by_member_id)
		 VALUES ($1, $2, $3, $4, $5)`, id, familyID, title, xp, uuid.New())
	require.NoError(t, err)
	return id
}
