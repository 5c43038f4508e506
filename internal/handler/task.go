package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskfolio/taskfolio/internal/handler/dto"
	"github.com/taskfolio/taskfolio/internal/model"
	"github.com/taskfolio/taskfolio/internal/repository"
	"github.com/taskfolio/taskfolio/internal/service"
)

// TaskService defines the task operations the handlers depend on.
type TaskService interface {
	Create(ctx context.Context, userID string, input service.CreateTaskInput) (*model.Task, error)
	List(ctx context.Context, userID string) ([]*model.Task, error)
	Get(ctx context.Context, userID, taskID string) (*model.Task, error)
	Update(ctx context.Context, userID, taskID string, input service.UpdateTaskInput) (*model.Task, error)
	Delete(ctx context.Context, userID, taskID string) error
	Stats(ctx context.Context, userID string) (*model.TaskStats, error)
}

// TaskHandler handles HTTP requests for task operations.
type TaskHandler struct {
	svc    TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	task, err := h.svc.Create(r.Context(), userID, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("task_created",
		"task_id", task.ID,
		"user_id", userID,
	)

	writeJSON(w, http.StatusCreated, dto.TaskMessageResponse{
		Message: "Task created",
		Task:    dto.ToTaskResponse(task),
	})
}

// List handles GET /tasks.
// Tasks are returned newest first.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	tasks, err := h.svc.List(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTaskListResponse(tasks))
}

// Get handles GET /tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	taskID := chi.URLParam(r, "id")
	task, err := h.svc.Get(r.Context(), userID, taskID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTaskResponse(task))
}

// Update handles PUT /tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	taskID := chi.URLParam(r, "id")

	var req dto.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	task, err := h.svc.Update(r.Context(), userID, taskID, service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("task_updated",
		"task_id", task.ID,
		"user_id", userID,
	)

	writeJSON(w, http.StatusOK, dto.TaskMessageResponse{
		Message: "Task updated",
		Task:    dto.ToTaskResponse(task),
	})
}

// Delete handles DELETE /tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	taskID := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), userID, taskID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("task_deleted",
		"task_id", taskID,
		"user_id", userID,
	)

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Task deleted"})
}

// Stats handles GET /tasks/stats/overview.
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	stats, err := h.svc.Stats(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTaskStatsResponse(stats))
}

// handleServiceError maps task service errors to HTTP responses.
// Not-found covers both missing tasks and tasks owned by someone else.
func (h *TaskHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Task not found")
	case errors.Is(err, service.ErrTitleTooShort),
		errors.Is(err, service.ErrDueDateRequired),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidPriority):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, repository.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
