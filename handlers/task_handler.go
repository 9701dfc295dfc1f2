package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"heroQuestAPI/internal/task"
	"heroQuestAPI/middleware"
	"heroQuestAPI/services"
)

type TaskHandler struct {
	taskService *services.TaskService
	log         *zap.Logger
}

func NewTaskHandler(taskService *services.TaskService, log *zap.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		log:         log,
	}
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
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

	var req task.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.FamilyID = familyID

	t, err := h.taskService.Create(ctx, &req)
	if err != nil {
		respondWithServiceError(w, h.log, "CreateTask", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, t)
}

func (h *TaskHandler) ListFamilyTasks(w http.ResponseWriter, r *http.Request) {
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

	tasks, err := h.taskService.ListFamily(ctx, familyID)
	if err != nil {
		respondWithServiceError(w, h.log, "ListFamilyTasks", err)
		return
	}

	respondWithJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	taskID, ok := pathUUID(w, r, "taskID")
	if !ok {
		return
	}

	t, err := h.taskService.Get(ctx, taskID)
	if err != nil {
		respondWithServiceError(w, h.log, "GetTask", err)
		return
	}

	respondWithJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	taskID, ok := pathUUID(w, r, "taskID")
	if !ok {
		return
	}

	var req task.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	t, err := h.taskService.Update(ctx, taskID, &req)
	if err != nil {
		respondWithServiceError(w, h.log, "UpdateTask", err)
		return
	}

	respondWithJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	taskID, ok := pathUUID(w, r, "taskID")
	if !ok {
		return
	}

	if err := h.taskService.Deactivate(ctx, taskID); err != nil {
		respondWithServiceError(w, h.log, "DeleteTask", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Task deactivated successfully",
	})
}

func (h *TaskHandler) ListHeroTasks(w http.ResponseWriter, r *http.Request) {
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

	tasks, err := h.taskService.ForHero(ctx, heroID)
	if err != nil {
		respondWithServiceError(w, h.log, "ListHeroTasks", err)
		return
	}

	respondWithJSON(w, http.StatusOK, tasks)
}
