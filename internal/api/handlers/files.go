// files.go — обработчики /api/v1/files endpoints.
// Каталог документов: список, загрузка, скачивание, удаление.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/medstore/internal/api/errors"
	"github.com/bigkaa/medstore/internal/api/middleware"
	"github.com/bigkaa/medstore/internal/domain/model"
	"github.com/bigkaa/medstore/internal/service"
)

// catalogViewResponse — тело ответа со списком видимых записей каталога.
type catalogViewResponse struct {
	// Видимые записи: после фильтра и сортировки
	Items []*model.FileRecord `json:"items"`
	// Общее количество записей каталога (до фильтра)
	Total int `json:"total"`
	// Действующая поисковая строка
	Search string `json:"search"`
	// Действующая конфигурация сортировки
	Sort model.SortConfig `json:"sort"`
}

// ticketsResponse — тело ответа с билетами загрузки.
type ticketsResponse struct {
	Tickets []*model.UploadTicket `json:"tickets"`
}

func viewResponse(view service.CatalogView) catalogViewResponse {
	return catalogViewResponse{
		Items:  view.Rows,
		Total:  view.Total,
		Search: view.Search,
		Sort:   view.Sort,
	}
}

// ListFiles обрабатывает GET /api/v1/files.
// Возвращает записи каталога с учётом действующего фильтра и сортировки.
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewResponse(h.catalog.View()))
}

// UploadFiles обрабатывает POST /api/v1/files.
// Multipart form: files (одно или несколько вхождений поля).
// Полезная нагрузка сохраняется во временные файлы, загрузка
// продолжается асинхронно; ответ 202 с билетами для отслеживания.
func (h *APIHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	username := middleware.UsernameFromContext(r.Context())
	if username == "" {
		apierrors.Unauthorized(w, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)

	// Парсим multipart form (буфер в памяти + запас на заголовки)
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32 MB buffer
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.WriteError(w, http.StatusRequestEntityTooLarge,
				apierrors.CodeValidationError, "Upload exceeds size limit")
			return
		}
		apierrors.ValidationError(w, "Invalid multipart form")
		return
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["files"]
	}

	inputs, err := h.spoolUploads(headers)
	if err != nil {
		h.logger.Error("Ошибка сохранения полезной нагрузки во временный файл",
			slog.String("error", err.Error()))
		apierrors.InternalError(w, "Failed to accept upload")
		return
	}

	tickets, err := h.catalog.Submit(r.Context(), username, inputs)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, ticketsResponse{Tickets: tickets})
}

// spoolUploads переносит содержимое multipart-частей во временные файлы.
// При ошибке уже созданные временные файлы удаляются.
func (h *APIHandler) spoolUploads(headers []*multipart.FileHeader) ([]service.UploadInput, error) {
	inputs := make([]service.UploadInput, 0, len(headers))

	cleanup := func() {
		for _, in := range inputs {
			_ = os.Remove(in.TempPath)
		}
	}

	for _, header := range headers {
		part, err := header.Open()
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("открытие части %q: %w", header.Filename, err)
		}

		tmp, err := os.CreateTemp("", "portal-upload-*")
		if err != nil {
			part.Close()
			cleanup()
			return nil, fmt.Errorf("создание временного файла: %w", err)
		}

		_, copyErr := io.Copy(tmp, part)
		part.Close()
		closeErr := tmp.Close()
		if copyErr != nil || closeErr != nil {
			_ = os.Remove(tmp.Name())
			cleanup()
			return nil, fmt.Errorf("запись части %q: %w", header.Filename, errors.Join(copyErr, closeErr))
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		inputs = append(inputs, service.UploadInput{
			Name:     header.Filename,
			MimeType: contentType,
			Size:     header.Size,
			TempPath: tmp.Name(),
		})
	}

	return inputs, nil
}

// DownloadFile обрабатывает GET /api/v1/files/{id}/download.
// Для удалённого хранилища отвечает редиректом на подписанный URL,
// для локального — отдаёт содержимое файла напрямую.
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.catalog.Download(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if result.URL != "" {
		http.Redirect(w, r, result.URL, http.StatusFound)
		return
	}

	defer result.Body.Close()

	contentType := result.Record.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Record.Name))
	if result.Record.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(result.Record.Size, 10))
	}

	if _, err := io.Copy(w, result.Body); err != nil {
		h.logger.Warn("Передача файла прервана",
			slog.String("file_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// DeleteFile обрабатывает DELETE /api/v1/files/{id}.
// Запись исчезает из каталога только после удаления в хранилище.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.catalog.Remove(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
