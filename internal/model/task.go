// Package model defines domain entities for the application.
package model

import "time"

// TaskStatus represents the completion state of a task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "Pending"
	StatusCompleted TaskStatus = "Completed"
)

// IsValid checks if the status is a known value.
func (s TaskStatus) IsValid() bool {
	return s == StatusPending || s == StatusCompleted
}

// TaskPriority represents the urgency of a task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

// IsValid checks if the priority is a known value.
func (p TaskPriority) IsValid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Task represents a work item owned by exactly one user.
// The owner reference is immutable after creation.
type Task struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     time.Time    `json:"dueDate"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// IsOverdue reports whether the task is pending past its due date.
// Overdue is derived at read time, never persisted.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status == StatusPending && t.DueDate.Before(now)
}

// TaskStats holds aggregate counts over one user's tasks.
type TaskStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
	Overdue   int64 `json:"overdue"`
}
