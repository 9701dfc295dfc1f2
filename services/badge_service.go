package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"heroQuestAPI/internal/badge"
	"heroQuestAPI/internal/completion"
	"heroQuestAPI/internal/hero"
	"heroQuestAPI/internal/store"
	"heroQuestAPI/internal/streak"
)

type BadgeService struct {
	rt       Runtime
	registry *badge.Registry
}

func NewBadgeService(rt Runtime, registry *badge.Registry) *BadgeService {
	return &BadgeService{rt: rt.withDefaults(), registry: registry}
}

type BadgeProgress struct {
	Progress []badge.Progress `json:"progress"`
	Next     []badge.View     `json:"next_badges"`
	Earned   int              `json:"earned_count"`
	Total    int              `json:"total_count"`
}

func (s *BadgeService) Registry() *badge.Registry {
	return s.registry
}

func (s *BadgeService) Catalog() []badge.View {
	return s.registry.Views()
}

// Sync writes the catalog to the store so hero_badges rows can reference it,
// then reads the active rows back and checks them against the registry.
func (s *BadgeService) Sync(ctx context.Context) error {
	if err := s.rt.Store.SyncBadges(ctx, s.registry.All()); err != nil {
		return err
	}
	stored, err := s.rt.Store.ListActiveBadges(ctx)
	if err != nil {
		return err
	}
	if err := s.registry.Verify(stored); err != nil {
		return fmt.Errorf("badge catalog out of sync: %w", err)
	}
	return nil
}

func (s *BadgeService) stats(ctx context.Context, r store.Reader, h *hero.Hero, today time.Time) (badge.Stats, error) {
	tasks, err := r.CountCompletions(ctx, h.ID, completion.SourceTask)
	if err != nil {
		return badge.Stats{}, err
	}
	quests, err := r.CountCompletions(ctx, h.ID, completion.SourceQuest)
	if err != nil {
		return badge.Stats{}, err
	}
	return badge.Stats{
		TotalTasks:    tasks,
		TotalQuests:   quests,
		CurrentStreak: streak.Effective(h.StreakState(), today),
		LongestStreak: h.LongestStreak,
		TotalXP:       h.TotalXP,
		Level:         h.Level(),
	}, nil
}

func (s *BadgeService) earnedSet(ctx context.Context, r store.Reader, heroID uuid.UUID) (map[string]bool, error) {
	awards, err := r.ListHeroBadges(ctx, heroID)
	if err != nil {
		return nil, err
	}
	earned := make(map[string]bool, len(awards))
	for _, a := range awards {
		earned[a.BadgeID] = true
	}
	return earned, nil
}

// evaluate awards every qualifying badge inside tx. Only badges whose row this
// call inserted are returned, so a badge shows up as new exactly once.
func (s *BadgeService) evaluate(ctx context.Context, tx store.Tx, h *hero.Hero, today, now time.Time) ([]badge.View, error) {
	stats, err := s.stats(ctx, tx, h, today)
	if err != nil {
		return nil, fmt.Errorf("failed to build badge stats: %w", err)
	}
	earned, err := s.earnedSet(ctx, tx, h.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load earned badges: %w", err)
	}

	newBadges := []badge.View{}
	for _, d := range s.registry.Evaluate(stats, earned) {
		inserted, err := tx.AwardBadge(ctx, h.ID, d.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to award badge %s: %w", d.ID, err)
		}
		if inserted {
			newBadges = append(newBadges, d.View())
		}
	}
	return newBadges, nil
}

// Evaluate re-runs the badge rules for a hero outside of a completion.
func (s *BadgeService) Evaluate(ctx context.Context, heroID uuid.UUID) ([]badge.View, error) {
	now, today := s.rt.now()

	var newBadges []badge.View
	err := s.rt.Store.WithTx(ctx, func(tx store.Tx) error {
		h, err := tx.LockHero(ctx, heroID)
		if err != nil {
			return err
		}
		newBadges, err = s.evaluate(ctx, tx, h, today, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordAwards(heroID, newBadges)
	return newBadges, nil
}

func (s *BadgeService) recordAwards(heroID uuid.UUID, views []badge.View) {
	for _, v := range views {
		s.rt.Metrics.BadgesAwarded.WithLabelValues(string(v.Rarity)).Inc()
		s.rt.Logger.Info("badge awarded",
			zap.String("hero_id", heroID.String()),
			zap.String("badge_id", v.ID),
			zap.String("rarity", string(v.Rarity)),
		)
	}
}

// HeroBadges joins the hero's unlock records with the catalog. Rows for
// badges no longer in the catalog are skipped.
func (s *BadgeService) HeroBadges(ctx context.Context, heroID uuid.UUID) ([]badge.Earned, error) {
	if _, err := s.rt.Store.GetHero(ctx, heroID); err != nil {
		return nil, err
	}
	return s.heroBadges(ctx, heroID)
}

func (s *BadgeService) heroBadges(ctx context.Context, heroID uuid.UUID) ([]badge.Earned, error) {
	awards, err := s.rt.Store.ListHeroBadges(ctx, heroID)
	if err != nil {
		return nil, err
	}

	out := make([]badge.Earned, 0, len(awards))
	for _, a := range awards {
		d, ok := s.registry.Get(a.BadgeID)
		if !ok {
			continue
		}
		out = append(out, badge.Earned{View: d.View(), EarnedAt: a.EarnedAt})
	}
	return out, nil
}

func (s *BadgeService) Progress(ctx context.Context, heroID uuid.UUID) (*BadgeProgress, error) {
	_, today := s.rt.now()

	h, err := s.rt.Store.GetHero(ctx, heroID)
	if err != nil {
		return nil, err
	}
	stats, err := s.stats(ctx, s.rt.Store, h, today)
	if err != nil {
		return nil, err
	}
	earned, err := s.earnedSet(ctx, s.rt.Store, heroID)
	if err != nil {
		return nil, err
	}

	next := s.registry.NextByCategory(earned)
	out := &BadgeProgress{
		Progress: s.registry.AllProgress(stats, earned),
		Next:     make([]badge.View, 0, len(next)),
		Total:    s.registry.Len(),
	}
	for _, d := range next {
		out.Next = append(out.Next, d.View())
	}
	for id := range earned {
		if _, ok := s.registry.Get(id); ok {
			out.Earned++
		}
	}
	return out, nil
}
