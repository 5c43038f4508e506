package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/taskfolio/taskfolio/internal/model"
	"github.com/taskfolio/taskfolio/internal/repository"
)

// Task service errors.
var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrTitleTooShort   = errors.New("title must be at least 3 characters")
	ErrDueDateRequired = errors.New("due date is required")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidPriority = errors.New("invalid priority")
)

// minTitleLength applies after whitespace trimming.
const minTitleLength = 3

// TaskService handles task business logic. Every operation is scoped to
// the authenticated owner; no method accepts an arbitrary owner filter.
type TaskService struct {
	repo *repository.Repository
}

// NewTaskService creates a new TaskService.
func NewTaskService(repo *repository.Repository) *TaskService {
	return &TaskService{repo: repo}
}

// CreateTaskInput defines input for creating a task.
// Status and Priority default to Pending/Medium when empty.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     time.Time
}

// Create validates input and persists a new task owned by userID.
func (s *TaskService) Create(ctx context.Context, userID string, input CreateTaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if len(title) < minTitleLength {
		return nil, ErrTitleTooShort
	}

	if input.DueDate.IsZero() {
		return nil, ErrDueDateRequired
	}

	status := model.StatusPending
	if input.Status != "" {
		status = model.TaskStatus(input.Status)
		if !status.IsValid() {
			return nil, ErrInvalidStatus
		}
	}

	priority := model.PriorityMedium
	if input.Priority != "" {
		priority = model.TaskPriority(input.Priority)
		if !priority.IsValid() {
			return nil, ErrInvalidPriority
		}
	}

	now := time.Now().UTC()
	task := &model.Task{
		ID:          ulid.Make().String(),
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      status,
		Priority:    priority,
		DueDate:     input.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	return task, nil
}

// List returns all tasks owned by userID, newest first.
func (s *TaskService) List(ctx context.Context, userID string) ([]*model.Task, error) {
	return s.repo.ListTasks(ctx, userID)
}

// Get retrieves one task. A task owned by another user is reported as
// not found, identically to a task that does not exist.
func (s *TaskService) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := s.repo.GetTask(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// UpdateTaskInput defines input for a partial task update.
// Nil fields are left unchanged; a pointer to an empty description is a
// real value, distinct from "not supplied".
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *time.Time
}

// Update applies only the supplied fields, re-validating each one.
// Ownership is checked before any field is written.
func (s *TaskService) Update(ctx context.Context, userID, taskID string, input UpdateTaskInput) (*model.Task, error) {
	task, err := s.repo.GetTask(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if len(title) < minTitleLength {
			return nil, ErrTitleTooShort
		}
		task.Title = title
	}

	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}

	if input.Status != nil {
		status := model.TaskStatus(*input.Status)
		if !status.IsValid() {
			return nil, ErrInvalidStatus
		}
		task.Status = status
	}

	if input.Priority != nil {
		priority := model.TaskPriority(*input.Priority)
		if !priority.IsValid() {
			return nil, ErrInvalidPriority
		}
		task.Priority = priority
	}

	if input.DueDate != nil {
		if input.DueDate.IsZero() {
			return nil, ErrDueDateRequired
		}
		task.DueDate = *input.DueDate
	}

	task.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateTask(ctx, task); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	return task, nil
}

// Delete removes a task permanently. Deletion is non-recoverable.
func (s *TaskService) Delete(ctx context.Context, userID, taskID string) error {
	if err := s.repo.DeleteTask(ctx, userID, taskID); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	return nil
}

// Stats returns aggregate counts over the user's tasks.
func (s *TaskService) Stats(ctx context.Context, userID string) (*model.TaskStats, error) {
	return s.repo.GetTaskStats(ctx, userID)
}
