// catalog.go — обработчики управления видом каталога: поиск и сортировка.
package handlers

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/bigkaa/medstore/internal/api/errors"
)

// searchRequest — тело запроса PUT /api/v1/catalog/search.
type searchRequest struct {
	// Поисковая строка; пустая строка сбрасывает фильтр
	Term string `json:"term"`
}

// sortRequest — тело запроса POST /api/v1/catalog/sort.
type sortRequest struct {
	// Ключ сортировки: name, category, size или uploadDate
	Key string `json:"key"`
}

// SetSearch обрабатывает PUT /api/v1/catalog/search.
// Устанавливает поисковую строку и возвращает обновлённый вид каталога.
func (h *APIHandler) SetSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Invalid JSON body")
		return
	}

	writeJSON(w, http.StatusOK, viewResponse(h.catalog.SetSearch(req.Term)))
}

// ToggleSort обрабатывает POST /api/v1/catalog/sort.
// Повторный запрос с тем же ключом меняет направление сортировки.
func (h *APIHandler) ToggleSort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Invalid JSON body")
		return
	}

	view, err := h.catalog.ToggleSort(req.Key)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, viewResponse(view))
}
