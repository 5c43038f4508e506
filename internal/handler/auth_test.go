package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/taskfolio/taskfolio/internal/auth"
	"github.com/taskfolio/taskfolio/internal/handler/dto"
	"github.com/taskfolio/taskfolio/internal/model"
	"github.com/taskfolio/taskfolio/internal/service"
)

type fakeUserService struct {
	registerFn       func(ctx context.Context, input service.RegisterInput) (*model.User, string, error)
	loginFn          func(ctx context.Context, email, password string) (string, error)
	getProfileFn     func(ctx context.Context, userID string) (*model.User, error)
	updateProfileFn  func(ctx context.Context, userID string, input service.UpdateProfileInput) (*model.User, error)
	changePasswordFn func(ctx context.Context, userID, currentPassword, newPassword string) error
}

func (f *fakeUserService) Register(ctx context.Context, input service.RegisterInput) (*model.User, string, error) {
	return f.registerFn(ctx, input)
}

func (f *fakeUserService) Login(ctx context.Context, email, password string) (string, error) {
	return f.loginFn(ctx, email, password)
}

func (f *fakeUserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	return f.getProfileFn(ctx, userID)
}

func (f *fakeUserService) UpdateProfile(ctx context.Context, userID string, input service.UpdateProfileInput) (*model.User, error) {
	return f.updateProfileFn(ctx, userID, input)
}

func (f *fakeUserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	return f.changePasswordFn(ctx, userID, currentPassword, newPassword)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegisterSuccess(t *testing.T) {
	now := time.Now().UTC()
	svc := &fakeUserService{
		registerFn: func(ctx context.Context, input service.RegisterInput) (*model.User, string, error) {
			return &model.User{
				ID:        "user-1",
				Name:      input.Name,
				Email:     "alice@example.com",
				CreatedAt: now,
			}, "signed-token", nil
		},
	}
	h := NewAuthHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"name":"Alice","email":"Alice@Example.com","password":"secret1"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	var body dto.RegisterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.Token != "signed-token" {
		t.Errorf("token = %q, want signed-token", body.Token)
	}
	if body.User.Email != "alice@example.com" {
		t.Errorf("email = %q, want the normalized form", body.User.Email)
	}
}

func TestRegisterValidationError(t *testing.T) {
	svc := &fakeUserService{
		registerFn: func(ctx context.Context, input service.RegisterInput) (*model.User, string, error) {
			return nil, "", service.ErrWeakPassword
		},
	}
	h := NewAuthHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"name":"Alice","email":"alice@example.com","password":"abc"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if body := decodeErrorBody(t, rec); body.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", body.Code)
	}
}

func TestRegisterInvalidJSON(t *testing.T) {
	h := NewAuthHandler(&fakeUserService{}, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if body := decodeErrorBody(t, rec); body.Code != "INVALID_JSON" {
		t.Errorf("code = %q, want INVALID_JSON", body.Code)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc := &fakeUserService{
		loginFn: func(ctx context.Context, email, password string) (string, error) {
			return "", service.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"alice@example.com","password":"wrong"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if body := decodeErrorBody(t, rec); body.Code != "INVALID_CREDENTIALS" {
		t.Errorf("code = %q, want INVALID_CREDENTIALS", body.Code)
	}
}

func TestLoginSuccess(t *testing.T) {
	svc := &fakeUserService{
		loginFn: func(ctx context.Context, email, password string) (string, error) {
			return "signed-token", nil
		},
	}
	h := NewAuthHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"alice@example.com","password":"secret1"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body dto.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.Token != "signed-token" {
		t.Errorf("token = %q, want signed-token", body.Token)
	}
}

func TestProfileWithoutAuthContext(t *testing.T) {
	h := NewAuthHandler(&fakeUserService{}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	rec := httptest.NewRecorder()
	h.Profile(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if body := decodeErrorBody(t, rec); body.Code != "UNAUTHORIZED" {
		t.Errorf("code = %q, want UNAUTHORIZED", body.Code)
	}
}

func TestProfileReturnsUser(t *testing.T) {
	svc := &fakeUserService{
		getProfileFn: func(ctx context.Context, userID string) (*model.User, error) {
			return &model.User{
				ID:           userID,
				Name:         "Alice",
				Email:        "alice@example.com",
				PasswordHash: "$argon2id$should-never-leak",
			}, nil
		},
	}
	h := NewAuthHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req = req.WithContext(auth.ContextWithUserID(req.Context(), "user-7"))
	rec := httptest.NewRecorder()
	h.Profile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if strings.Contains(rec.Body.String(), "argon2id") {
		t.Error("password hash leaked into the profile response")
	}

	var body dto.UserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.ID != "user-7" {
		t.Errorf("id = %q, want user-7", body.ID)
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	svc := &fakeUserService{
		changePasswordFn: func(ctx context.Context, userID, currentPassword, newPassword string) error {
			return service.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodPut, "/auth/change-password",
		strings.NewReader(`{"currentPassword":"wrong","newPassword":"newsecret"}`))
	req = req.WithContext(auth.ContextWithUserID(req.Context(), "user-7"))
	rec := httptest.NewRecorder()
	h.ChangePassword(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
