package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskfolio/taskfolio/internal/auth"
	"github.com/taskfolio/taskfolio/internal/handler/dto"
	"github.com/taskfolio/taskfolio/internal/model"
	"github.com/taskfolio/taskfolio/internal/repository"
	"github.com/taskfolio/taskfolio/internal/service"
)

type fakeTaskService struct {
	createFn func(ctx context.Context, userID string, input service.CreateTaskInput) (*model.Task, error)
	listFn   func(ctx context.Context, userID string) ([]*model.Task, error)
	getFn    func(ctx context.Context, userID, taskID string) (*model.Task, error)
	updateFn func(ctx context.Context, userID, taskID string, input service.UpdateTaskInput) (*model.Task, error)
	deleteFn func(ctx context.Context, userID, taskID string) error
	statsFn  func(ctx context.Context, userID string) (*model.TaskStats, error)
}

func (f *fakeTaskService) Create(ctx context.Context, userID string, input service.CreateTaskInput) (*model.Task, error) {
	return f.createFn(ctx, userID, input)
}

func (f *fakeTaskService) List(ctx context.Context, userID string) ([]*model.Task, error) {
	return f.listFn(ctx, userID)
}

func (f *fakeTaskService) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	return f.getFn(ctx, userID, taskID)
}

func (f *fakeTaskService) Update(ctx context.Context, userID, taskID string, input service.UpdateTaskInput) (*model.Task, error) {
	return f.updateFn(ctx, userID, taskID, input)
}

func (f *fakeTaskService) Delete(ctx context.Context, userID, taskID string) error {
	return f.deleteFn(ctx, userID, taskID)
}

func (f *fakeTaskService) Stats(ctx context.Context, userID string) (*model.TaskStats, error) {
	return f.statsFn(ctx, userID)
}

// taskRouter wires the handler through chi so URL params resolve.
func taskRouter(h *TaskHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/tasks", h.List)
	r.Post("/tasks", h.Create)
	r.Get("/tasks/stats/overview", h.Stats)
	r.Get("/tasks/{id}", h.Get)
	r.Put("/tasks/{id}", h.Update)
	r.Delete("/tasks/{id}", h.Delete)
	return r
}

func doAuthed(router http.Handler, method, target, body, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(auth.ContextWithUserID(req.Context(), userID))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestTaskCreate(t *testing.T) {
	var gotInput service.CreateTaskInput
	svc := &fakeTaskService{
		createFn: func(ctx context.Context, userID string, input service.CreateTaskInput) (*model.Task, error) {
			gotInput = input
			return &model.Task{
				ID:       "task-1",
				UserID:   userID,
				Title:    input.Title,
				Status:   model.StatusPending,
				Priority: model.PriorityMedium,
				DueDate:  input.DueDate,
			}, nil
		},
	}
	router := taskRouter(NewTaskHandler(svc, discardLogger()))

	rec := doAuthed(router, http.MethodPost, "/tasks",
		`{"title":"write the report","dueDate":"2026-09-15T12:00:00Z"}`, "user-1")

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if gotInput.Title != "write the report" {
		t.Errorf("title = %q", gotInput.Title)
	}
	if gotInput.DueDate.IsZero() {
		t.Error("due date was not parsed")
	}

	var body dto.TaskMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.Task.ID != "task-1" {
		t.Errorf("task id = %q, want task-1", body.Task.ID)
	}
	if body.Message == "" {
		t.Error("message missing from create response")
	}
}

func TestTaskCreateValidationError(t *testing.T) {
	svc := &fakeTaskService{
		createFn: func(ctx context.Context, userID string, input service.CreateTaskInput) (*model.Task, error) {
			return nil, service.ErrTitleTooShort
		},
	}
	router := taskRouter(NewTaskHandler(svc, discardLogger()))

	rec := doAuthed(router, http.MethodPost, "/tasks",
		`{"title":"ab","dueDate":"2026-09-15T12:00:00Z"}`, "user-1")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if body := decodeErrorBody(t, rec); body.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", body.Code)
	}
}

func TestTaskListReturnsArray(t *testing.T) {
	due := time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)
	svc := &fakeTaskService{
		listFn: func(ctx context.Context, userID string) ([]*model.Task, error) {
			return []*model.Task{
				{ID: "task-2", UserID: userID, Title: "newer", DueDate: due},
				{ID: "task-1", UserID: userID, Title: "older", DueDate: due},
			}, nil
		},
	}
	router := taskRouter(NewTaskHandler(svc, discardLogger()))

	rec := doAuthed(router, http.MethodGet, "/tasks", "", "user-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body []dto.TaskResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not a JSON array: %v\n%s", err, rec.Body.String())
	}
	if len(body) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(body))
	}
	if body[0].ID != "task-2" {
		t.Errorf("first task = %q, want the newest", body[0].ID)
	}
}

func TestTaskListEmptyIsArray(t *testing.T) {
	svc := &fakeTaskService{
		listFn: func(ctx context.Context, userID string) ([]*model.Task, error) {
			return []*model.Task{}, nil
		},
	}
	router := taskRouter(NewTaskHandler(svc, discardLogger()))

	rec := doAuthed(router, http.MethodGet, "/tasks", "", "user-1")

	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("empty list body = %q, want []", got)
	}
}

func TestTaskGetNotFound(t *testing.T) {
	svc := &fakeTaskService{
		getFn: func(ctx context.Context, userID, taskID string) (*model.Task, error) {
			return nil, service.ErrTaskNotFound
		},
	}
	router := taskRouter(NewTaskHandler(svc, discardLogger()))

	rec := doAuthed(router, http.MethodGet, "/tasks/someone-elses-task", "", "user-1")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if body := decodeErrorBody(t, rec); body.Code != "NOT_FOUND" {
		t.Errorf("code = %q, want NOT_FOUND", body.Code)
	}
}

func TestTaskUpdatePassesPointerFields(t *testing.T) {
	var gotInput service.UpdateTaskInput
	svc := &fakeTaskService{
		updateFn: func(ctx context.Context, userID, taskID string, input service.UpdateTaskInput) (*model.Task, error) {
			gotInput = input
			return &model.Task{ID: taskID, UserID: userID, Title: "kept"}, nil
		},
	}
	router := taskRouter(NewTaskHandler(svc, discardLogger()))

	rec := doAuthed(router, http.MethodPut, "/tasks/task-1",
		`{"status":"Completed","description":""}`, "user-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotInput.Title != nil {
		t.Error("title should be unset")
	}
	if gotInput.Status == nil || *gotInput.Status != "Completed" {
		t.Error("status pointer not passed through")
	}
	if gotInput.Description == nil || *gotInput.Description != "" {
		t.Error("explicit empty description should arrive as a pointer to empty")
	}
}

func TestTaskDelete(t *testing.T) {
	var gotTaskID string
	svc := &fakeTaskService{
		deleteFn: func(ctx context.Context, userID, taskID string) error {
			gotTaskID = taskID
			return nil
		},
	}
	router := taskRouter(NewTaskHandler(svc, discardLogger()))

	rec := doAuthed(router, http.MethodDelete, "/tasks/task-9", "", "user-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotTaskID != "task-9" {
		t.Errorf("task id = %q, want task-9", gotTaskID)
	}

	var body dto.MessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.Message == "" {
		t.Error("message missing from delete response")
	}
}

func TestTaskStats(t *testing.T) {
	svc := &fakeTaskService{
		statsFn: func(ctx context.Context, userID string) (*model.TaskStats, error) {
			return &model.TaskStats{Total: 5, Pending: 3, Completed: 2, Overdue: 1}, nil
		},
	}
	router := taskRouter(NewTaskHandler(svc, discardLogger()))

	rec := doAuthed(router, http.MethodGet, "/tasks/stats/overview", "", "user-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body dto.TaskStatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.Total != 5 || body.Pending != 3 || body.Completed != 2 || body.Overdue != 1 {
		t.Errorf("stats = %+v", body)
	}
}

func TestTaskStoreUnavailable(t *testing.T) {
	svc := &fakeTaskService{
		listFn: func(ctx context.Context, userID string) ([]*model.Task, error) {
			return nil, repository.ErrStoreUnavailable
		},
	}
	router := taskRouter(NewTaskHandler(svc, discardLogger()))

	rec := doAuthed(router, http.MethodGet, "/tasks", "", "user-1")

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if body := decodeErrorBody(t, rec); body.Code != "SERVICE_UNAVAILABLE" {
		t.Errorf("code = %q, want SERVICE_UNAVAILABLE", body.Code)
	}
}

func TestTaskEndpointsRequireAuthContext(t *testing.T) {
	router := taskRouter(NewTaskHandler(&fakeTaskService{}, discardLogger()))

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
