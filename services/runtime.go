package services

import (
	"time"

	"go.uber.org/zap"

	"heroQuestAPI/internal/clock"
	"heroQuestAPI/internal/lock"
	"heroQuestAPI/internal/store"
)

// Runtime carries the collaborators shared by every service.
type Runtime struct {
	Store    store.Store
	Clock    clock.Clock
	Location *time.Location
	Locker   lock.Locker
	Metrics  *Metrics
	Logger   *zap.Logger
}

func (rt Runtime) withDefaults() Runtime {
	if rt.Clock == nil {
		rt.Clock = clock.System{}
	}
	if rt.Location == nil {
		rt.Location = time.UTC
	}
	if rt.Locker == nil {
		rt.Locker = lock.NewKeyedMutex()
	}
	if rt.Metrics == nil {
		rt.Metrics = NewMetrics(nil)
	}
	if rt.Logger == nil {
		rt.Logger = zap.NewNop()
	}
	return rt
}

// now returns the current instant and the family's calendar date for it.
func (rt Runtime) now() (time.Time, time.Time) {
	now := rt.Clock.Now().UTC()
	return now, clock.Date(now, rt.Location)
}

// startOfDay is the instant the family's current day began.
func (rt Runtime) startOfDay() time.Time {
	local := rt.Clock.Now().In(rt.Location)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, rt.Location).UTC()
}
