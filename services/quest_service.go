package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"heroQuestAPI/internal/apperr"
	"heroQuestAPI/internal/completion"
	"heroQuestAPI/internal/quest"
	"heroQuestAPI/internal/store"
)

type QuestService struct {
	rt          Runtime
	progression *ProgressionService
}

func NewQuestService(rt Runtime, progression *ProgressionService) *QuestService {
	return &QuestService{rt: rt.withDefaults(), progression: progression}
}

func (s *QuestService) Create(ctx context.Context, req *quest.CreateQuestRequest) (*quest.Quest, error) {
	now, _ := s.rt.now()
	q, err := req.Build(now)
	if err != nil {
		return nil, err
	}

	err = s.rt.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertQuest(ctx, q)
	})
	if err != nil {
		return nil, err
	}

	s.rt.Logger.Info("quest created",
		zap.String("quest_id", q.ID.String()),
		zap.String("family_id", q.FamilyID.String()),
		zap.Int("min_participants", q.MinParticipants),
	)
	return q, nil
}

func (s *QuestService) withParticipants(ctx context.Context, q *quest.Quest) (*quest.WithParticipants, error) {
	participants, err := s.rt.Store.ListParticipants(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	if participants == nil {
		participants = []quest.Participant{}
	}
	return &quest.WithParticipants{Quest: *q, Participants: participants}, nil
}

func (s *QuestService) Get(ctx context.Context, questID uuid.UUID) (*quest.WithParticipants, error) {
	q, err := s.rt.Store.GetQuest(ctx, questID)
	if err != nil {
		return nil, err
	}
	return s.withParticipants(ctx, q)
}

func (s *QuestService) ListFamily(ctx context.Context, familyID uuid.UUID) ([]*quest.WithParticipants, error) {
	quests, err := s.rt.Store.ListFamilyQuests(ctx, familyID)
	if err != nil {
		return nil, err
	}

	out := make([]*quest.WithParticipants, 0, len(quests))
	for _, q := range quests {
		wp, err := s.withParticipants(ctx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, wp)
	}
	return out, nil
}

// Delete removes the quest and its participants. Completions and ledger
// entries already granted stay.
func (s *QuestService) Delete(ctx context.Context, questID uuid.UUID) error {
	return s.rt.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.DeleteQuest(ctx, questID)
	})
}

// Join is idempotent: joining a quest the hero is already part of returns the
// existing participant row.
func (s *QuestService) Join(ctx context.Context, questID, heroID uuid.UUID) (*quest.Participant, error) {
	now, _ := s.rt.now()

	var out *quest.Participant
	err := s.rt.Store.WithTx(ctx, func(tx store.Tx) error {
		// hero before quest, the same order CompleteQuest takes them in
		h, err := tx.LockHero(ctx, heroID)
		if err != nil {
			return err
		}
		q, err := tx.LockQuest(ctx, questID)
		if err != nil {
			return err
		}
		if h.FamilyID != q.FamilyID {
			return apperr.Validation("hero %s does not belong to the family of quest %s", heroID, questID)
		}

		existing, err := tx.GetParticipant(ctx, questID, heroID)
		if err != nil {
			return err
		}
		if existing != nil {
			out = existing
			return nil
		}

		participants, err := tx.ListParticipants(ctx, questID)
		if err != nil {
			return err
		}
		if err := q.CheckJoin(len(participants), now); err != nil {
			return err
		}

		out = &quest.Participant{
			ID:        uuid.New(),
			QuestID:   questID,
			HeroID:    heroID,
			CreatedAt: now,
		}
		return tx.AddParticipant(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *QuestService) Leave(ctx context.Context, questID, heroID uuid.UUID) error {
	return s.rt.Store.WithTx(ctx, func(tx store.Tx) error {
		q, err := tx.LockQuest(ctx, questID)
		if err != nil {
			return err
		}
		p, err := tx.GetParticipant(ctx, questID, heroID)
		if err != nil {
			return err
		}
		if err := q.CheckLeave(heroID, p); err != nil {
			return err
		}
		return tx.RemoveParticipant(ctx, questID, heroID)
	})
}

func (s *QuestService) Complete(ctx context.Context, questID, heroID uuid.UUID, idempotencyKey string) (*completion.Result, error) {
	return s.progression.CompleteQuest(ctx, heroID, questID, idempotencyKey)
}

func (s *QuestService) HeroStats(ctx context.Context, heroID uuid.UUID) (*quest.HeroStats, error) {
	if _, err := s.rt.Store.GetHero(ctx, heroID); err != nil {
		return nil, err
	}
	return s.rt.Store.HeroQuestStats(ctx, heroID)
}
