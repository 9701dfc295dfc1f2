package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"heroQuestAPI/internal/quest"
	"heroQuestAPI/middleware"
	"heroQuestAPI/services"
)

type QuestHandler struct {
	questService *services.QuestService
	log          *zap.Logger
}

func NewQuestHandler(questService *services.QuestService, log *zap.Logger) *QuestHandler {
	return &QuestHandler{
		questService: questService,
		log:          log,
	}
}

type heroRequest struct {
	HeroID uuid.UUID `json:"hero_id"`
}

func decodeHeroRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req heroRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return uuid.Nil, false
	}
	if req.HeroID == uuid.Nil {
		respondWithError(w, http.StatusBadRequest, "hero_id is required")
		return uuid.Nil, false
	}
	return req.HeroID, true
}

func (h *QuestHandler) CreateQuest(w http.ResponseWriter, r *http.Request) {
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

	var req quest.CreateQuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.FamilyID = familyID

	q, err := h.questService.Create(ctx, &req)
	if err != nil {
		respondWithServiceError(w, h.log, "CreateQuest", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, q)
}

func (h *QuestHandler) ListFamilyQuests(w http.ResponseWriter, r *http.Request) {
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

	quests, err := h.questService.ListFamily(ctx, familyID)
	if err != nil {
		respondWithServiceError(w, h.log, "ListFamilyQuests", err)
		return
	}

	respondWithJSON(w, http.StatusOK, quests)
}

func (h *QuestHandler) GetQuest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	questID, ok := pathUUID(w, r, "questID")
	if !ok {
		return
	}

	q, err := h.questService.Get(ctx, questID)
	if err != nil {
		respondWithServiceError(w, h.log, "GetQuest", err)
		return
	}

	respondWithJSON(w, http.StatusOK, q)
}

func (h *QuestHandler) DeleteQuest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	questID, ok := pathUUID(w, r, "questID")
	if !ok {
		return
	}

	if err := h.questService.Delete(ctx, questID); err != nil {
		respondWithServiceError(w, h.log, "DeleteQuest", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Quest deleted successfully",
	})
}

func (h *QuestHandler) JoinQuest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	questID, ok := pathUUID(w, r, "questID")
	if !ok {
		return
	}
	heroID, ok := decodeHeroRequest(w, r)
	if !ok {
		return
	}

	p, err := h.questService.Join(ctx, questID, heroID)
	if err != nil {
		respondWithServiceError(w, h.log, "JoinQuest", err)
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

func (h *QuestHandler) LeaveQuest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	questID, ok := pathUUID(w, r, "questID")
	if !ok {
		return
	}
	heroID, ok := decodeHeroRequest(w, r)
	if !ok {
		return
	}

	if err := h.questService.Leave(ctx, questID, heroID); err != nil {
		respondWithServiceError(w, h.log, "LeaveQuest", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Left quest successfully",
	})
}

func (h *QuestHandler) CompleteQuest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	questID, ok := pathUUID(w, r, "questID")
	if !ok {
		return
	}
	heroID, ok := decodeHeroRequest(w, r)
	if !ok {
		return
	}

	result, err := h.questService.Complete(ctx, questID, heroID, r.Header.Get(idempotencyHeader))
	if err != nil {
		respondWithServiceError(w, h.log, "CompleteQuest", err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
