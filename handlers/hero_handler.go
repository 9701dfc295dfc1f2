package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"heroQuestAPI/middleware"
	"heroQuestAPI/services"
)

const idempotencyHeader = "Idempotency-Key"

type HeroHandler struct {
	heroService        *services.HeroService
	badgeService       *services.BadgeService
	progressionService *services.ProgressionService
	questService       *services.QuestService
	log                *zap.Logger
}

func NewHeroHandler(
	heroService *services.HeroService,
	badgeService *services.BadgeService,
	progressionService *services.ProgressionService,
	questService *services.QuestService,
	log *zap.Logger,
) *HeroHandler {
	return &HeroHandler{
		heroService:        heroService,
		badgeService:       badgeService,
		progressionService: progressionService,
		questService:       questService,
		log:                log,
	}
}

func (h *HeroHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	heroID, ok := pathUUID(w, r, "heroID")
	if !ok {
		return
	}

	profile, err := h.heroService.GetProfile(ctx, heroID)
	if err != nil {
		respondWithServiceError(w, h.log, "GetProfile", err)
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

func (h *HeroHandler) GetBadges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	heroID, ok := pathUUID(w, r, "heroID")
	if !ok {
		return
	}

	badges, err := h.badgeService.HeroBadges(ctx, heroID)
	if err != nil {
		respondWithServiceError(w, h.log, "GetBadges", err)
		return
	}

	respondWithJSON(w, http.StatusOK, badges)
}

func (h *HeroHandler) GetBadgeProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	heroID, ok := pathUUID(w, r, "heroID")
	if !ok {
		return
	}

	progress, err := h.badgeService.Progress(ctx, heroID)
	if err != nil {
		respondWithServiceError(w, h.log, "GetBadgeProgress", err)
		return
	}

	respondWithJSON(w, http.StatusOK, progress)
}

func (h *HeroHandler) EvaluateBadges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	heroID, ok := pathUUID(w, r, "heroID")
	if !ok {
		return
	}

	newBadges, err := h.badgeService.Evaluate(ctx, heroID)
	if err != nil {
		respondWithServiceError(w, h.log, "EvaluateBadges", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"new_badges": newBadges})
}

func (h *HeroHandler) GetXPLog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	heroID, ok := pathUUID(w, r, "heroID")
	if !ok {
		return
	}

	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	entries, err := h.heroService.XPLog(ctx, heroID, limit)
	if err != nil {
		respondWithServiceError(w, h.log, "GetXPLog", err)
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

func (h *HeroHandler) GetCompletions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	heroID, ok := pathUUID(w, r, "heroID")
	if !ok {
		return
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	completions, err := h.heroService.CompletionHistory(ctx, heroID, limit)
	if err != nil {
		respondWithServiceError(w, h.log, "GetCompletions", err)
		return
	}

	respondWithJSON(w, http.StatusOK, completions)
}

func (h *HeroHandler) GetCompletionsToday(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	heroID, ok := pathUUID(w, r, "heroID")
	if !ok {
		return
	}

	completions, err := h.heroService.CompletionsToday(ctx, heroID)
	if err != nil {
		respondWithServiceError(w, h.log, "GetCompletionsToday", err)
		return
	}

	respondWithJSON(w, http.StatusOK, completions)
}

func (h *HeroHandler) GetQuestStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	heroID, ok := pathUUID(w, r, "heroID")
	if !ok {
		return
	}

	stats, err := h.questService.HeroStats(ctx, heroID)
	if err != nil {
		respondWithServiceError(w, h.log, "GetQuestStats", err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

func (h *HeroHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	heroID, ok := pathUUID(w, r, "heroID")
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "taskID")
	if !ok {
		return
	}

	result, err := h.progressionService.CompleteTask(ctx, heroID, taskID, r.Header.Get(idempotencyHeader))
	if err != nil {
		respondWithServiceError(w, h.log, "CompleteTask", err)
		return
	}

	h.log.Debug("task completed",
		zap.String("clerk_id", clerkID),
		zap.String("hero_id", heroID.String()),
		zap.Int("xp_awarded", result.XPAwarded),
	)
	respondWithJSON(w, http.StatusOK, result)
}
