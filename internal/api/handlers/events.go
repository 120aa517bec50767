// events.go — SSE (Server-Sent Events) endpoint для real-time обновлений:
// состояние каталога и билеты активных загрузок.
// Каждый SSE-клиент обслуживается отдельной горутиной.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/medstore/internal/api/errors"
	"github.com/bigkaa/medstore/internal/api/middleware"
	"github.com/bigkaa/medstore/internal/domain/model"
)

// catalogStatusEvent — SSE-событие состояния каталога.
type catalogStatusEvent struct {
	// Общее количество записей каталога
	Total int `json:"total"`
	// Количество незавершённых загрузок
	ActiveUploads int `json:"active_uploads"`
}

// uploadStatusEvent — SSE-событие с билетами загрузки.
type uploadStatusEvent struct {
	Tickets []*model.UploadTicket `json:"tickets"`
}

// HandleEvents обрабатывает GET /api/v1/events — SSE endpoint.
// Периодически отправляет клиенту состояние каталога и билеты загрузок.
// Формат: event: catalog-status\ndata: {json}\n\n, event: upload-status\ndata: {json}\n\n
// Graceful disconnect при закрытии клиентом соединения (context cancel).
func (h *APIHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	username := middleware.UsernameFromContext(r.Context())
	if username == "" {
		apierrors.Unauthorized(w, "Authentication required")
		return
	}

	// Настраиваем заголовки SSE
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Отключаем буферизацию Nginx

	// Используем http.ResponseController для корректной работы Flush()
	// через обёрнутый ResponseWriter (logging middleware и др.).
	// ResponseController вызывает Unwrap() и находит оригинальный http.Flusher.
	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()

	h.logger.Debug("SSE клиент подключён",
		slog.String("username", username),
		slog.String("remote_addr", r.RemoteAddr),
	)

	// Отправляем начальные данные сразу при подключении
	h.sendCatalogStatus(w, rc)
	h.sendUploadStatus(w, rc)

	// Периодическая отправка
	ticker := time.NewTicker(h.cfg.SSEKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Клиент отключился
			h.logger.Debug("SSE клиент отключён",
				slog.String("username", username),
			)
			return
		case <-ticker.C:
			h.sendCatalogStatus(w, rc)
			h.sendUploadStatus(w, rc)
		}
	}
}

// sendCatalogStatus отправляет SSE-событие состояния каталога.
func (h *APIHandler) sendCatalogStatus(w http.ResponseWriter, rc *http.ResponseController) {
	active := 0
	for _, ticket := range h.catalog.Uploads() {
		if ticket.Status == model.TicketUploading {
			active++
		}
	}

	event := catalogStatusEvent{
		Total:         h.catalog.View().Total,
		ActiveUploads: active,
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Ошибка сериализации catalog-status", slog.String("error", err.Error()))
		return
	}

	// Формат SSE: event: catalog-status\ndata: {json}\n\n
	fmt.Fprintf(w, "event: catalog-status\ndata: %s\n\n", data)
	_ = rc.Flush()
}

// sendUploadStatus отправляет SSE-событие с билетами загрузки.
func (h *APIHandler) sendUploadStatus(w http.ResponseWriter, rc *http.ResponseController) {
	event := uploadStatusEvent{Tickets: h.catalog.Uploads()}

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Ошибка сериализации upload-status", slog.String("error", err.Error()))
		return
	}

	fmt.Fprintf(w, "event: upload-status\ndata: %s\n\n", data)
	_ = rc.Flush()
}
