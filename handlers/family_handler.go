package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"heroQuestAPI/middleware"
	"heroQuestAPI/services"
)

type FamilyHandler struct {
	heroService  *services.HeroService
	badgeService *services.BadgeService
	log          *zap.Logger
}

func NewFamilyHandler(heroService *services.HeroService, badgeService *services.BadgeService, log *zap.Logger) *FamilyHandler {
	return &FamilyHandler{
		heroService:  heroService,
		badgeService: badgeService,
		log:          log,
	}
}

func (h *FamilyHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	familyID, ok := pathUUID(w, r, "familyID")
	if !ok {
		return
	}

	summary, err := h.heroService.FamilySummary(ctx, familyID)
	if err != nil {
		respondWithServiceError(w, h.log, "GetSummary", err)
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

// GetLevels serves the static level table.
func (h *FamilyHandler) GetLevels(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.heroService.LevelTable())
}

// GetBadgeCatalog serves every badge definition with its derived display fields.
func (h *FamilyHandler) GetBadgeCatalog(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.badgeService.Catalog())
}
