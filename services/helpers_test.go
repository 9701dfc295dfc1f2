package services

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"heroQuestAPI/internal/badge"
	"heroQuestAPI/internal/hero"
	"heroQuestAPI/internal/store"
	"heroQuestAPI/internal/task"
)

// manualClock is a clock tests move forward by hand.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) addDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, n)
}

type fixture struct {
	store       *store.Memory
	clock       *manualClock
	metrics     *Metrics
	badges      *BadgeService
	progression *ProgressionService
	quests      *QuestService
	heroes      *HeroService
	tasks       *TaskService
	familyID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry, err := badge.DefaultRegistry()
	require.NoError(t, err)

	f := &fixture{
		store:    store.NewMemory(),
		clock:    &manualClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
		metrics:  NewMetrics(prometheus.NewRegistry()),
		familyID: uuid.New(),
	}
	rt := Runtime{
		Store:    f.store,
		Clock:    f.clock,
		Location: time.UTC,
		Metrics:  f.metrics,
	}
	f.badges = NewBadgeService(rt, registry)
	f.progression = NewProgressionService(rt, f.badges)
	f.quests = NewQuestService(rt, f.progression)
	f.heroes = NewHeroService(rt, f.badges)
	f.tasks = NewTaskService(rt)
	return f
}

func (f *fixture) addHero(name string) hero.Hero {
	h := hero.Hero{ID: uuid.New(), FamilyID: f.familyID, HeroName: name}
	f.store.PutHero(h)
	return h
}

func (f *fixture) addTask(xp int) task.Task {
	t := task.Task{ID: uuid.New(), FamilyID: f.familyID, Title: "Chore", XPReward: xp, IsActive: true}
	f.store.PutTask(t)
	return t
}
