// auth.go — обработчики регистрации и входа пользователей портала.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/medstore/internal/api/errors"
	"github.com/bigkaa/medstore/internal/api/middleware"
	"github.com/bigkaa/medstore/internal/domain/model"
	"github.com/bigkaa/medstore/internal/service"
)

// registerRequest — тело запроса POST /api/v1/auth/register.
type registerRequest struct {
	// Имя пользователя
	Username string `json:"username"`
	// Адрес электронной почты
	Email string `json:"email"`
	// Пароль
	Password string `json:"password"`
	// Подтверждение пароля
	PasswordConfirm string `json:"password_confirm"`
}

// loginRequest — тело запроса POST /api/v1/auth/login.
type loginRequest struct {
	// Имя пользователя
	Username string `json:"username"`
	// Пароль
	Password string `json:"password"`
}

// loginResponse — тело ответа на успешный вход.
type loginResponse struct {
	// Токен сессии (JWT)
	Token string `json:"token"`
	// Профиль вошедшего пользователя
	Profile model.Profile `json:"profile"`
}

// Register обрабатывает POST /api/v1/auth/register.
// Создаёт учётную запись и возвращает профиль со статусом 201.
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Invalid JSON body")
		return
	}

	profile, err := h.users.Register(r.Context(), service.RegisterParams{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, profile)
}

// Login обрабатывает POST /api/v1/auth/login.
// При успехе возвращает токен сессии и профиль пользователя.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Invalid JSON body")
		return
	}

	result, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:   result.Token,
		Profile: result.Profile,
	})
}

// Me обрабатывает GET /api/v1/auth/me.
// Возвращает профиль пользователя из JWT-контекста запроса.
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	username := middleware.UsernameFromContext(r.Context())
	if username == "" {
		apierrors.Unauthorized(w, "Authentication required")
		return
	}

	profile, err := h.users.Profile(r.Context(), username)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			// Токен валиден, но пользователь уже удалён из хранилища.
			h.logger.Warn("Профиль из токена не найден в хранилище",
				slog.String("username", username))
			apierrors.NotFound(w, "User not found")
			return
		}
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
