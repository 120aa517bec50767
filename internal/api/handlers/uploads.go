// uploads.go — обработчик опроса билетов загрузки.
package handlers

import "net/http"

// ListUploads обрабатывает GET /api/v1/uploads.
// Возвращает снимок всех билетов загрузки: активных и завершённых,
// ещё не убранных из набора.
func (h *APIHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ticketsResponse{Tickets: h.catalog.Uploads()})
}
