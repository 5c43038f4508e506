package dto

import (
	"time"

	"github.com/taskfolio/taskfolio/internal/model"
)

// CreateTaskRequest represents the request body for creating a task.
// Status and priority are optional and default server-side.
type CreateTaskRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`
	Priority    string    `json:"priority,omitempty"`
	DueDate     time.Time `json:"dueDate"`
}

// UpdateTaskRequest represents the request body for a partial task update.
// Absent fields are left unchanged; an explicit empty description clears it.
type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// TaskResponse represents a task in API responses.
type TaskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	DueDate     time.Time `json:"dueDate"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TaskMessageResponse pairs a confirmation message with the affected task.
type TaskMessageResponse struct {
	Message string       `json:"message"`
	Task    TaskResponse `json:"task"`
}

// TaskStatsResponse represents aggregate task counts.
type TaskStatsResponse struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
	Overdue   int64 `json:"overdue"`
}

// ToTaskResponse converts a Task model to TaskResponse DTO.
func ToTaskResponse(task *model.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		Priority:    string(task.Priority),
		DueDate:     task.DueDate,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// ToTaskListResponse converts a slice of Task models, preserving order.
func ToTaskListResponse(tasks []*model.Task) []TaskResponse {
	responses := make([]TaskResponse, len(tasks))
	for i, task := range tasks {
		responses[i] = ToTaskResponse(task)
	}
	return responses
}

// ToTaskStatsResponse converts TaskStats to its response DTO.
func ToTaskStatsResponse(stats *model.TaskStats) TaskStatsResponse {
	return TaskStatsResponse{
		Total:     stats.Total,
		Pending:   stats.Pending,
		Completed: stats.Completed,
		Overdue:   stats.Overdue,
	}
}
