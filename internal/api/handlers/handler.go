// handler.go — основной обработчик API Portal Module.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/medstore/internal/api/errors"
	"github.com/bigkaa/medstore/internal/config"
	"github.com/bigkaa/medstore/internal/service"
	"github.com/bigkaa/medstore/internal/storage"
)

// APIHandler — основной обработчик API Portal Module.
type APIHandler struct {
	cfg     *config.Config
	health  *HealthHandler
	users   *service.UserService
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	cfg *config.Config,
	health *HealthHandler,
	users *service.UserService,
	catalog *service.CatalogService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		cfg:     cfg,
		health:  health,
		users:   users,
		catalog: catalog,
		logger:  logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError преобразует ошибку сервисного слоя в HTTP-ответ.
// Ошибки аутентификации и валидации возвращаются клиенту как есть,
// ошибки хранилища и все прочие скрываются за общими формулировками.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	var authErr *service.AuthError
	var valErr *service.ValidationError
	var storErr *storage.Error

	switch {
	case errors.As(err, &authErr):
		apierrors.AuthError(w, authErr.StatusCode, authErr.Message)
	case errors.As(err, &valErr):
		apierrors.ValidationError(w, valErr.Message)
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "File not found")
	case errors.As(err, &storErr):
		h.logger.Error("Ошибка хранилища", slog.String("error", err.Error()))
		apierrors.StorageError(w, "Storage backend unavailable")
	default:
		h.logger.Error("Необработанная ошибка сервиса", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Internal server error")
	}
}
