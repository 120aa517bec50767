package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/bigkaa/medstore/internal/domain/model"
	"github.com/bigkaa/medstore/internal/service"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestJWTAuth создаёт JWTAuth с менеджером токенов на тестовом секрете.
func newTestJWTAuth(ttl time.Duration) (*JWTAuth, *service.TokenManager) {
	tokens := service.NewTokenManager("test-secret", ttl)
	return NewJWTAuth(tokens, testLogger()), tokens
}

// issueToken выпускает токен для тестового пользователя.
func issueToken(t *testing.T, tokens *service.TokenManager) string {
	t.Helper()
	token, err := tokens.Issue(&model.User{ID: "user-123", Username: "doctor"})
	if err != nil {
		t.Fatalf("выпуск токена: %v", err)
	}
	return token
}

// --- Тесты JWT Middleware ---

// TestJWTAuth_ValidToken — валидный токен сессии.
func TestJWTAuth_ValidToken(t *testing.T) {
	auth, tokens := newTestJWTAuth(time.Hour)

	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			t.Fatal("claims не найдены в контексте")
		}

		if claims.Subject != "user-123" {
			t.Errorf("ожидался sub=user-123, получен %s", claims.Subject)
		}
		if claims.Username != "doctor" {
			t.Errorf("ожидался username=doctor, получен %s", claims.Username)
		}

		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, tokens))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("ожидался статус 200, получен %d, тело: %s", rec.Code, rec.Body.String())
	}
}

// TestJWTAuth_MissingToken — отсутствие Authorization header.
func TestJWTAuth_MissingToken(t *testing.T) {
	auth, _ := newTestJWTAuth(time.Hour)
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидался статус 401, получен %d", rec.Code)
	}
}

// TestJWTAuth_ExpiredToken — просроченный токен.
func TestJWTAuth_ExpiredToken(t *testing.T) {
	auth, tokens := newTestJWTAuth(-time.Hour)
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, tokens))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидался статус 401, получен %d", rec.Code)
	}
}

// TestJWTAuth_ForeignSecret — токен, подписанный чужим секретом.
func TestJWTAuth_ForeignSecret(t *testing.T) {
	auth, _ := newTestJWTAuth(time.Hour)
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	foreign := service.NewTokenManager("other-secret", time.Hour)
	token, err := foreign.Issue(&model.User{ID: "user-123", Username: "doctor"})
	if err != nil {
		t.Fatalf("выпуск токена: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидался статус 401, получен %d", rec.Code)
	}
}

// TestJWTAuth_InvalidFormat — некорректный формат Authorization.
func TestJWTAuth_InvalidFormat(t *testing.T) {
	auth, _ := newTestJWTAuth(time.Hour)
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"no bearer prefix", "token123"},
		{"empty bearer", "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("ожидался статус 401, получен %d", rec.Code)
			}
		})
	}
}

// --- Тесты context helpers ---

// TestClaimsFromContext_Empty — пустой контекст.
func TestClaimsFromContext_Empty(t *testing.T) {
	if claims := ClaimsFromContext(context.Background()); claims != nil {
		t.Errorf("ожидался nil, получено %+v", claims)
	}
}

// TestUsernameFromContext — извлечение имени пользователя.
func TestUsernameFromContext(t *testing.T) {
	claims := &service.Claims{Username: "doctor"}
	ctx := context.WithValue(context.Background(), ContextKeyClaims, claims)

	if username := UsernameFromContext(ctx); username != "doctor" {
		t.Errorf("ожидался doctor, получен %q", username)
	}
}

// TestUsernameFromContext_Empty — пустой контекст.
func TestUsernameFromContext_Empty(t *testing.T) {
	if username := UsernameFromContext(context.Background()); username != "" {
		t.Errorf("ожидалась пустая строка, получено %q", username)
	}
}
