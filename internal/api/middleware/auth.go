// auth.go — JWT middleware для аутентификации Portal Module.
// Извлекает Bearer token сессии, проверяет подпись (HS256) через
// TokenManager и помещает claims в контекст запроса.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/medstore/internal/api/errors"
	"github.com/bigkaa/medstore/internal/service"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyClaims — извлечённые claims в контексте запроса.
	ContextKeyClaims contextKey = "jwt_claims"
)

// TokenVerifier — проверка токена сессии.
// Реализуется service.TokenManager.
type TokenVerifier interface {
	Verify(tokenString string) (*service.Claims, error)
}

// JWTAuth — middleware для аутентификации по токену сессии.
type JWTAuth struct {
	tokens TokenVerifier
	logger *slog.Logger
}

// NewJWTAuth создаёт JWT middleware.
func NewJWTAuth(tokens TokenVerifier, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		tokens: tokens,
		logger: logger.With(slog.String("component", "jwt_auth")),
	}
}

// Middleware возвращает HTTP middleware для аутентификации.
// Извлекает Bearer token, валидирует подпись и срок действия,
// помещает claims в контекст.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Извлекаем Bearer token
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Missing Authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apierrors.Unauthorized(w, "Invalid Authorization header: expected Bearer token")
				return
			}

			tokenString := parts[1]
			if tokenString == "" {
				apierrors.Unauthorized(w, "Empty bearer token")
				return
			}

			claims, err := j.tokens.Verify(tokenString)
			if err != nil {
				j.logger.Debug("JWT валидация не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Invalid or expired token")
				return
			}

			// Помещаем claims в контекст и имя пользователя в лог запроса
			markAuthenticatedUser(r.Context(), claims.Username)
			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// --- Context helpers ---

// ClaimsFromContext извлекает claims из контекста запроса.
// Возвращает nil, если claims не найдены.
func ClaimsFromContext(ctx context.Context) *service.Claims {
	claims, _ := ctx.Value(ContextKeyClaims).(*service.Claims)
	return claims
}

// UsernameFromContext извлекает имя пользователя из контекста запроса.
// Возвращает пустую строку, если claims не найдены.
func UsernameFromContext(ctx context.Context) string {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return ""
	}
	return claims.Username
}
