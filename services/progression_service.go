package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"heroQuestAPI/internal/apperr"
	"heroQuestAPI/internal/completion"
	"heroQuestAPI/internal/hero"
	"heroQuestAPI/internal/level"
	"heroQuestAPI/internal/quest"
	"heroQuestAPI/internal/store"
	"heroQuestAPI/internal/streak"
)

// ProgressionService turns one task or quest completion into XP, streak,
// level and badge changes. Every completion runs in a single transaction that
// starts by locking the hero row, so concurrent completions for the same hero
// are applied one after the other.
type ProgressionService struct {
	rt     Runtime
	badges *BadgeService
}

func NewProgressionService(rt Runtime, badges *BadgeService) *ProgressionService {
	return &ProgressionService{rt: rt.withDefaults(), badges: badges}
}

// source describes what is being completed. prepare runs after the hero is
// locked and returns the base XP; finish runs last.
type source struct {
	kind    completion.SourceType
	id      uuid.UUID
	prepare func(ctx context.Context, tx store.Tx, h *hero.Hero, now time.Time) (int, error)
	finish  func(ctx context.Context, tx store.Tx, h *hero.Hero, now time.Time) (bool, error)
}

func (s *ProgressionService) CompleteTask(ctx context.Context, heroID, taskID uuid.UUID, idempotencyKey string) (*completion.Result, error) {
	return s.complete(ctx, heroID, idempotencyKey, source{
		kind: completion.SourceTask,
		id:   taskID,
		prepare: func(ctx context.Context, tx store.Tx, h *hero.Hero, _ time.Time) (int, error) {
			t, err := tx.GetTask(ctx, taskID)
			if err != nil {
				return 0, err
			}
			if !t.IsActive {
				return 0, apperr.NotFound("task %s is not active", taskID)
			}
			if t.FamilyID != h.FamilyID {
				return 0, apperr.NotFound("task %s", taskID)
			}
			return t.XPReward, nil
		},
	})
}

// CompleteQuest records the hero's part of a quest and, when this completion
// reaches the quorum, marks the whole quest completed.
func (s *ProgressionService) CompleteQuest(ctx context.Context, heroID, questID uuid.UUID, idempotencyKey string) (*completion.Result, error) {
	var q *quest.Quest
	return s.complete(ctx, heroID, idempotencyKey, source{
		kind: completion.SourceQuest,
		id:   questID,
		prepare: func(ctx context.Context, tx store.Tx, _ *hero.Hero, _ time.Time) (int, error) {
			var err error
			if q, err = tx.LockQuest(ctx, questID); err != nil {
				return 0, err
			}
			p, err := tx.GetParticipant(ctx, questID, heroID)
			if err != nil {
				return 0, err
			}
			if err := q.CheckComplete(p); err != nil {
				return 0, err
			}
			return q.XPRewardPerParticipant, nil
		},
		finish: func(ctx context.Context, tx store.Tx, _ *hero.Hero, now time.Time) (bool, error) {
			if err := tx.MarkParticipantCompleted(ctx, questID, heroID, now); err != nil {
				return false, err
			}
			done, err := tx.CountQuestCompleted(ctx, questID)
			if err != nil {
				return false, err
			}
			if !q.ReachesQuorum(done) {
				return false, nil
			}
			return tx.MarkQuestCompleted(ctx, questID, now)
		},
	})
}

func (s *ProgressionService) complete(ctx context.Context, heroID uuid.UUID, idempotencyKey string, src source) (*completion.Result, error) {
	key := strings.TrimSpace(idempotencyKey)
	if len(key) > 255 {
		return nil, apperr.Validation("idempotency key is longer than 255 characters")
	}

	unlock, err := s.rt.Locker.Lock(ctx, "hero:"+heroID.String())
	if err != nil {
		return nil, apperr.Unavailable("acquire hero lock", err)
	}
	defer unlock()

	now, today := s.rt.now()

	var result *completion.Result
	err = s.rt.Store.WithTx(ctx, func(tx store.Tx) error {
		// 1. pre-event snapshot
		h, err := tx.LockHero(ctx, heroID)
		if err != nil {
			return err
		}

		if key != "" {
			prev, err := tx.FindCompletionByKey(ctx, heroID, key)
			if err != nil {
				return err
			}
			if prev != nil {
				if prev.Result == nil || prev.SourceType != src.kind || prev.SourceID != src.id {
					return apperr.Conflict("idempotency key %q was used for a different completion", key)
				}
				replay := *prev.Result
				replay.Replayed = true
				result = &replay
				return nil
			}
		}

		baseXP, err := src.prepare(ctx, tx, h, now)
		if err != nil {
			return err
		}

		previousXP := h.TotalXP
		state := h.StreakState()

		// 2. bonus from the streak as it stands before this event
		bonusStreak := streak.Effective(state, today)
		awarded := streak.ApplyBonus(baseXP, bonusStreak)

		// 3. completion record carries the bonus-inclusive amount
		c := &completion.Completion{
			ID:          uuid.New(),
			HeroID:      heroID,
			SourceType:  src.kind,
			SourceID:    src.id,
			XPEarned:    awarded,
			CompletedAt: now,
		}
		if key != "" {
			c.IdempotencyKey = &key
		}
		if err := tx.InsertCompletion(ctx, c); err != nil {
			return err
		}

		// 4. streak
		update := streak.Advance(state, today)
		h.ApplyStreak(update)

		// 5. xp
		h.TotalXP += awarded
		h.UpdatedAt = now
		if err := tx.UpdateHeroProgress(ctx, h); err != nil {
			return err
		}

		// 6. ledger
		bonus := awarded - baseXP
		if err := tx.InsertXPLog(ctx, &completion.XPLogEntry{
			ID:         uuid.New(),
			HeroID:     heroID,
			Amount:     awarded,
			SourceType: src.kind,
			SourceID:   src.id,
			Reason:     completion.Reason(src.kind, bonus),
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		// 7. level
		levelUp := level.CheckLevelUp(previousXP, h.TotalXP)

		// 8. badges
		newBadges, err := s.badges.evaluate(ctx, tx, h, today, now)
		if err != nil {
			return err
		}

		// 9. quest quorum
		questCompleted := false
		if src.finish != nil {
			if questCompleted, err = src.finish(ctx, tx, h, now); err != nil {
				return err
			}
		}

		result = &completion.Result{
			CompletionID:      c.ID,
			SourceType:        src.kind,
			SourceID:          src.id,
			BaseXP:            baseXP,
			XPAwarded:         awarded,
			StreakBonus:       bonus,
			BonusMultiplier:   streak.BonusMultiplier(bonusStreak),
			NewTotalXP:        h.TotalXP,
			NewStreak:         update.NewStreak,
			LongestStreak:     update.LongestStreak,
			IsNewStreakRecord: update.IsNewRecord,
			MilestoneReached:  update.MilestoneReached,
			LevelUp:           levelUp,
			NewBadges:         newBadges,
			QuestCompleted:    questCompleted,
		}
		return tx.SetCompletionResult(ctx, c.ID, result)
	})
	if err != nil {
		s.rt.Logger.Warn("completion failed",
			zap.String("hero_id", heroID.String()),
			zap.String("source", string(src.kind)),
			zap.String("source_id", src.id.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("complete %s %s: %w", src.kind, src.id, err)
	}

	s.record(heroID, result)
	return result, nil
}

func (s *ProgressionService) record(heroID uuid.UUID, r *completion.Result) {
	if r.Replayed {
		s.rt.Metrics.Replays.Inc()
		s.rt.Logger.Info("completion replayed",
			zap.String("hero_id", heroID.String()),
			zap.String("completion_id", r.CompletionID.String()),
		)
		return
	}

	m := s.rt.Metrics
	m.Completions.WithLabelValues(string(r.SourceType)).Inc()
	m.XPAwarded.WithLabelValues(string(r.SourceType)).Add(float64(r.XPAwarded))
	if r.LevelUp.LeveledUp {
		m.LevelUps.Inc()
	}
	if r.QuestCompleted {
		m.QuestsCompleted.Inc()
	}
	s.badges.recordAwards(heroID, r.NewBadges)

	s.rt.Logger.Info("completion recorded",
		zap.String("hero_id", heroID.String()),
		zap.String("source", string(r.SourceType)),
		zap.String("source_id", r.SourceID.String()),
		zap.Int("xp_awarded", r.XPAwarded),
		zap.Int("new_total_xp", r.NewTotalXP),
		zap.Int("new_streak", r.NewStreak),
		zap.Int("new_level", r.LevelUp.NewLevel),
		zap.Int("new_badges", len(r.NewBadges)),
		zap.Bool("quest_completed", r.QuestCompleted),
	)
}
