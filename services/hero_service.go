package services

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"heroQuestAPI/internal/badge"
	"heroQuestAPI/internal/completion"
	"heroQuestAPI/internal/hero"
	"heroQuestAPI/internal/level"
	"heroQuestAPI/internal/quest"
	"heroQuestAPI/internal/streak"
)

const (
	defaultXPLogLimit = 50
	maxXPLogLimit     = 500
)

type HeroService struct {
	rt     Runtime
	badges *BadgeService
}

func NewHeroService(rt Runtime, badges *BadgeService) *HeroService {
	return &HeroService{rt: rt.withDefaults(), badges: badges}
}

type Profile struct {
	Hero       *hero.Hero       `json:"hero"`
	Level      level.Info       `json:"level"`
	Streak     streak.Info      `json:"streak"`
	Badges     []badge.Earned   `json:"badges"`
	QuestStats *quest.HeroStats `json:"quest_stats"`
}

func (s *HeroService) GetProfile(ctx context.Context, heroID uuid.UUID) (*Profile, error) {
	_, today := s.rt.now()

	h, err := s.rt.Store.GetHero(ctx, heroID)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		Hero:   h,
		Level:  level.InfoFor(h.TotalXP),
		Streak: streak.InfoFor(h.StreakState(), today),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		earned, err := s.badges.heroBadges(gctx, heroID)
		p.Badges = earned
		return err
	})
	g.Go(func() error {
		stats, err := s.rt.Store.HeroQuestStats(gctx, heroID)
		p.QuestStats = stats
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return p, nil
}

// XPLog returns the newest entries first. limit <= 0 means the default.
func (s *HeroService) XPLog(ctx context.Context, heroID uuid.UUID, limit int) ([]completion.XPLogEntry, error) {
	if limit <= 0 {
		limit = defaultXPLogLimit
	}
	limit = min(limit, maxXPLogLimit)

	if _, err := s.rt.Store.GetHero(ctx, heroID); err != nil {
		return nil, err
	}
	entries, err := s.rt.Store.ListXPLog(ctx, heroID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []completion.XPLogEntry{}
	}
	return entries, nil
}

// CompletionHistory returns the hero's completions newest first. limit <= 0
// means the default.
func (s *HeroService) CompletionHistory(ctx context.Context, heroID uuid.UUID, limit int) ([]completion.Completion, error) {
	if limit <= 0 {
		limit = defaultXPLogLimit
	}
	limit = min(limit, maxXPLogLimit)

	if _, err := s.rt.Store.GetHero(ctx, heroID); err != nil {
		return nil, err
	}
	out, err := s.rt.Store.ListCompletions(ctx, heroID, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []completion.Completion{}
	}
	return out, nil
}

// CompletionsToday lists what the hero completed since the start of the
// family's current day.
func (s *HeroService) CompletionsToday(ctx context.Context, heroID uuid.UUID) ([]completion.Completion, error) {
	if _, err := s.rt.Store.GetHero(ctx, heroID); err != nil {
		return nil, err
	}
	out, err := s.rt.Store.ListCompletionsSince(ctx, heroID, s.rt.startOfDay())
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []completion.Completion{}
	}
	return out, nil
}

// FamilySummary sums the hero rows at read time.
func (s *HeroService) FamilySummary(ctx context.Context, familyID uuid.UUID) (*hero.FamilySummary, error) {
	_, today := s.rt.now()
	heroes, err := s.rt.Store.ListFamilyHeroes(ctx, familyID)
	if err != nil {
		return nil, err
	}
	return hero.Summarize(familyID, heroes, today), nil
}

func (s *HeroService) LevelTable() []level.Threshold {
	return level.Thresholds()
}
