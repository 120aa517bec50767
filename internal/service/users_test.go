package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bigkaa/medstore/internal/domain/model"
	"github.com/bigkaa/medstore/internal/storage"
)

// --- Mock UserStore ---

// mockUserStore — мок storage.UserStore для unit-тестов.
type mockUserStore struct {
	createFn        func(ctx context.Context, user *model.User) error
	getByUsernameFn func(ctx context.Context, username string) (*model.User, error)
}

func (m *mockUserStore) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, storage.ErrNotFound
}

func newTestUserService(users storage.UserStore) *UserService {
	tokens := NewTokenManager("test-secret", time.Hour)
	return NewUserService(users, tokens, slog.Default())
}

// --- Тесты Register ---

// TestUserService_Register проверяет успешную регистрацию.
func TestUserService_Register(t *testing.T) {
	var created *model.User
	users := &mockUserStore{
		createFn: func(_ context.Context, user *model.User) error {
			created = user
			return nil
		},
	}

	svc := newTestUserService(users)

	profile, err := svc.Register(context.Background(), RegisterParams{
		Username:        "doctor",
		Email:           "doctor@clinic.example",
		Password:        "secret123",
		PasswordConfirm: "secret123",
	})
	if err != nil {
		t.Fatalf("Register ошибка: %v", err)
	}

	if profile.Username != "doctor" {
		t.Errorf("Username = %q, ожидался %q", profile.Username, "doctor")
	}
	if profile.Email != "doctor@clinic.example" {
		t.Errorf("Email = %q, ожидался %q", profile.Email, "doctor@clinic.example")
	}
	if profile.ID == "" {
		t.Error("ID профиля пустой")
	}

	if created == nil {
		t.Fatal("store.Create не вызван")
	}
	if created.PasswordHash == "secret123" {
		t.Error("пароль сохранён открытым текстом")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret123")); err != nil {
		t.Errorf("хэш пароля не совпадает с паролем: %v", err)
	}
	if created.CreatedAt.Location() != time.UTC {
		t.Error("CreatedAt не в UTC")
	}
}

// TestUserService_Register_Validation проверяет отказы валидации формы.
func TestUserService_Register_Validation(t *testing.T) {
	tests := []struct {
		name        string
		params      RegisterParams
		wantMessage string
	}{
		{
			name:        "пустое имя пользователя",
			params:      RegisterParams{Email: "a@b.c", Password: "secret123", PasswordConfirm: "secret123"},
			wantMessage: "Username is required",
		},
		{
			name:        "имя из одних пробелов",
			params:      RegisterParams{Username: "   ", Email: "a@b.c", Password: "secret123", PasswordConfirm: "secret123"},
			wantMessage: "Username is required",
		},
		{
			name:        "пустой email",
			params:      RegisterParams{Username: "doctor", Password: "secret123", PasswordConfirm: "secret123"},
			wantMessage: "Email is required",
		},
		{
			name:        "пустой пароль",
			params:      RegisterParams{Username: "doctor", Email: "a@b.c"},
			wantMessage: "Password is required",
		},
		{
			name:        "короткий пароль",
			params:      RegisterParams{Username: "doctor", Email: "a@b.c", Password: "abc", PasswordConfirm: "abc"},
			wantMessage: "Password must be at least 6 characters",
		},
		{
			name:        "пароли не совпадают",
			params:      RegisterParams{Username: "doctor", Email: "a@b.c", Password: "secret123", PasswordConfirm: "secret124"},
			wantMessage: "Passwords do not match",
		},
	}

	createCalled := false
	svc := newTestUserService(&mockUserStore{
		createFn: func(_ context.Context, _ *model.User) error {
			createCalled = true
			return nil
		},
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.params)

			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("ошибка = %v, ожидался AuthError", err)
			}
			if authErr.StatusCode != http.StatusBadRequest {
				t.Errorf("StatusCode = %d, ожидался %d", authErr.StatusCode, http.StatusBadRequest)
			}
			if authErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, ожидалось %q", authErr.Message, tt.wantMessage)
			}
		})
	}

	if createCalled {
		t.Error("store.Create вызван при невалидной форме")
	}
}

// TestUserService_Register_Duplicate проверяет конфликт имени пользователя.
func TestUserService_Register_Duplicate(t *testing.T) {
	users := &mockUserStore{
		createFn: func(_ context.Context, _ *model.User) error {
			return storage.ErrUsernameTaken
		},
	}
	svc := newTestUserService(users)

	_, err := svc.Register(context.Background(), RegisterParams{
		Username:        "doctor",
		Email:           "doctor@clinic.example",
		Password:        "secret123",
		PasswordConfirm: "secret123",
	})

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("ошибка = %v, ожидался AuthError", err)
	}
	if authErr.StatusCode != http.StatusConflict {
		t.Errorf("StatusCode = %d, ожидался %d", authErr.StatusCode, http.StatusConflict)
	}
	if authErr.Message != "Username is already taken" {
		t.Errorf("Message = %q, ожидалось %q", authErr.Message, "Username is already taken")
	}
}

// --- Тесты Login ---

// testUser возвращает пользователя с bcrypt-хэшем заданного пароля.
func testUser(t *testing.T, username, password string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("хэширование пароля: %v", err)
	}
	return &model.User{
		ID:           "user-1",
		Username:     username,
		Email:        username + "@clinic.example",
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
}

// TestUserService_Login проверяет успешный вход и валидность токена.
func TestUserService_Login(t *testing.T) {
	user := testUser(t, "doctor", "secret123")
	users := &mockUserStore{
		getByUsernameFn: func(_ context.Context, username string) (*model.User, error) {
			if username != "doctor" {
				return nil, storage.ErrNotFound
			}
			return user, nil
		},
	}

	tokens := NewTokenManager("test-secret", time.Hour)
	svc := NewUserService(users, tokens, slog.Default())

	result, err := svc.Login(context.Background(), "doctor", "secret123")
	if err != nil {
		t.Fatalf("Login ошибка: %v", err)
	}

	if result.Token == "" {
		t.Fatal("токен пустой")
	}
	if result.Profile.Username != "doctor" {
		t.Errorf("Profile.Username = %q, ожидался %q", result.Profile.Username, "doctor")
	}

	claims, err := tokens.Verify(result.Token)
	if err != nil {
		t.Fatalf("Verify ошибка: %v", err)
	}
	if claims.Username != "doctor" {
		t.Errorf("claims.Username = %q, ожидался %q", claims.Username, "doctor")
	}
	if claims.Subject != "user-1" {
		t.Errorf("claims.Subject = %q, ожидался %q", claims.Subject, "user-1")
	}
}

// TestUserService_Login_Rejected проверяет, что неизвестное имя и
// неверный пароль дают неразличимый ответ.
func TestUserService_Login_Rejected(t *testing.T) {
	user := testUser(t, "doctor", "secret123")
	users := &mockUserStore{
		getByUsernameFn: func(_ context.Context, username string) (*model.User, error) {
			if username != "doctor" {
				return nil, storage.ErrNotFound
			}
			return user, nil
		},
	}
	svc := newTestUserService(users)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "неизвестный пользователь", username: "stranger", password: "secret123"},
		{name: "неверный пароль", username: "doctor", password: "wrong-pass"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.username, tt.password)

			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("ошибка = %v, ожидался AuthError", err)
			}
			if authErr.StatusCode != http.StatusUnauthorized {
				t.Errorf("StatusCode = %d, ожидался %d", authErr.StatusCode, http.StatusUnauthorized)
			}
			if authErr.Message != "Invalid username or password" {
				t.Errorf("Message = %q, ожидалось %q", authErr.Message, "Invalid username or password")
			}
		})
	}
}

// TestUserService_Login_MissingFields проверяет отказ при пустых полях.
func TestUserService_Login_MissingFields(t *testing.T) {
	svc := newTestUserService(&mockUserStore{})

	for _, tt := range []struct {
		name     string
		username string
		password string
	}{
		{name: "пустое имя", username: "", password: "secret123"},
		{name: "пустой пароль", username: "doctor", password: ""},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.username, tt.password)

			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("ошибка = %v, ожидался AuthError", err)
			}
			if authErr.StatusCode != http.StatusBadRequest {
				t.Errorf("StatusCode = %d, ожидался %d", authErr.StatusCode, http.StatusBadRequest)
			}
		})
	}
}

// TestUserService_Profile проверяет получение профиля.
func TestUserService_Profile(t *testing.T) {
	user := testUser(t, "doctor", "secret123")
	users := &mockUserStore{
		getByUsernameFn: func(_ context.Context, _ string) (*model.User, error) {
			return user, nil
		},
	}
	svc := newTestUserService(users)

	profile, err := svc.Profile(context.Background(), "doctor")
	if err != nil {
		t.Fatalf("Profile ошибка: %v", err)
	}
	if profile.Username != "doctor" {
		t.Errorf("Username = %q, ожидался %q", profile.Username, "doctor")
	}
}

// TestUserService_Profile_NotFound проверяет ErrNotFound.
func TestUserService_Profile_NotFound(t *testing.T) {
	svc := newTestUserService(&mockUserStore{})

	_, err := svc.Profile(context.Background(), "stranger")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ошибка = %v, ожидалась ErrNotFound", err)
	}
}
