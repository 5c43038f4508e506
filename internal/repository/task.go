package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taskfolio/taskfolio/internal/model"
)

// ErrTaskNotFound covers both a missing task and an ownership mismatch.
// The two cases are deliberately indistinguishable so callers cannot probe
// for the existence of other users' tasks.
var ErrTaskNotFound = errors.New("task not found")

// CreateTask inserts a new task into the database.
func (r *Repository) CreateTask(ctx context.Context, task *model.Task) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `
		INSERT INTO tasks (id, user_id, title, description, status, priority, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.CreatedAt,
		task.UpdatedAt,
	)

	if err != nil {
		return mapStoreError(fmt.Errorf("failed to create task: %w", err))
	}

	return nil
}

// GetTask retrieves a task by ID, scoped to its owner.
func (r *Repository) GetTask(ctx context.Context, userID, taskID string) (*model.Task, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, title, description, status, priority, due_date, created_at, updated_at
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`

	task, err := scanTask(r.pool.QueryRow(ctx, query, taskID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, mapStoreError(fmt.Errorf("failed to get task: %w", err))
	}

	return task, nil
}

// ListTasks retrieves all tasks owned by a user, newest first.
// Returns an empty slice when the user has no tasks.
func (r *Repository) ListTasks(ctx context.Context, userID string) ([]*model.Task, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, title, description, status, priority, due_date, created_at, updated_at
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, mapStoreError(fmt.Errorf("failed to list tasks: %w", err))
	}
	defer rows.Close()

	tasks := make([]*model.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, mapStoreError(fmt.Errorf("error iterating tasks: %w", err))
	}

	return tasks, nil
}

// UpdateTask writes a task's mutable fields, scoped to its owner.
// A single UPDATE statement keeps the mutation atomic per record.
func (r *Repository) UpdateTask(ctx context.Context, task *model.Task) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `
		UPDATE tasks
		SET title = $3, description = $4, status = $5, priority = $6, due_date = $7, updated_at = $8
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.pool.Exec(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.UpdatedAt,
	)

	if err != nil {
		return mapStoreError(fmt.Errorf("failed to update task: %w", err))
	}

	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	return nil
}

// DeleteTask removes a task permanently, scoped to its owner.
func (r *Repository) DeleteTask(ctx context.Context, userID, taskID string) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `DELETE FROM tasks WHERE id = $1 AND user_id = $2`

	result, err := r.pool.Exec(ctx, query, taskID, userID)
	if err != nil {
		return mapStoreError(fmt.Errorf("failed to delete task: %w", err))
	}

	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	return nil
}

// GetTaskStats computes aggregate counts over one user's tasks.
// Overdue is derived at query time: pending with a due date strictly in
// the past. All counts share the same owner filter and point-in-time read.
func (r *Repository) GetTaskStats(ctx context.Context, userID string) (*model.TaskStats, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `
		SELECT
			count(*),
			count(*) FILTER (WHERE status = 'Pending'),
			count(*) FILTER (WHERE status = 'Completed'),
			count(*) FILTER (WHERE status = 'Pending' AND due_date < now())
		FROM tasks
		WHERE user_id = $1
	`

	var stats model.TaskStats
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Completed,
		&stats.Overdue,
	)
	if err != nil {
		return nil, mapStoreError(fmt.Errorf("failed to get task stats: %w", err))
	}

	return &stats, nil
}

// scanTask scans a single row into a Task model.
func scanTask(row pgx.Row) (*model.Task, error) {
	var task model.Task
	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}
