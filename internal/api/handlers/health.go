// health.go — обработчики health endpoints Portal Module.
// /health/live — liveness probe (процесс жив)
// /health/ready — readiness probe (хранилище, каталог, AI-сервис)
// /metrics — Prometheus метрики
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/medstore/internal/config"
)

// ReadinessChecker — интерфейс проверки готовности зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok", "degraded", "fail") и сообщение.
	CheckReady() (status string, message string)
}

// namedCheck — зарегистрированная проверка готовности.
type namedCheck struct {
	name    string
	checker ReadinessChecker
}

// HealthHandler — обработчик health endpoints.
// Набор проверок готовности зависит от конфигурации: локальный или
// удалённый адаптер персистентности, опциональный AI-классификатор.
type HealthHandler struct {
	checks      []namedCheck
	promHandler http.Handler
}

// NewHealthHandler создаёт обработчик health endpoints без проверок.
// Проверки регистрируются через AddCheck при сборке приложения.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		promHandler: promhttp.Handler(),
	}
}

// AddCheck регистрирует проверку готовности под указанным именем.
// nil-проверка допустима: readiness вернёт для неё "fail".
func (h *HealthHandler) AddCheck(name string, checker ReadinessChecker) {
	h.checks = append(h.checks, namedCheck{name: name, checker: checker})
}

// nonCriticalChecker понижает "fail" внутренней проверки до "degraded".
type nonCriticalChecker struct {
	inner ReadinessChecker
}

// NonCritical оборачивает проверку зависимости, без которой портал
// продолжает работать: "fail" превращается в "degraded" и не
// переводит readiness в 503.
func NonCritical(checker ReadinessChecker) ReadinessChecker {
	return &nonCriticalChecker{inner: checker}
}

func (c *nonCriticalChecker) CheckReady() (string, string) {
	status, message := c.inner.CheckReady()
	if status == "fail" {
		return "degraded", message
	}
	return status, message
}

// healthCheckResult — результат проверки одной зависимости.
type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthLiveResponse — ответ liveness probe.
type healthLiveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

// healthReadyResponse — ответ readiness probe.
type healthReadyResponse struct {
	Status    string                       `json:"status"`
	Timestamp string                       `json:"timestamp"`
	Version   string                       `json:"version"`
	Service   string                       `json:"service"`
	Checks    map[string]healthCheckResult `json:"checks"`
}

// HealthLive — liveness probe. Возвращает 200 если процесс жив.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	resp := healthLiveResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   "portal-module",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// HealthReady — readiness probe. Выполняет зарегистрированные проверки.
// Возвращает 200 (ok/degraded) или 503 (fail).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	resp := healthReadyResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   "portal-module",
		Checks:    make(map[string]healthCheckResult, len(h.checks)),
	}

	statuses := make([]string, 0, len(h.checks))
	for _, check := range h.checks {
		result := healthCheckResult{Status: "fail", Message: "не инициализирован"}
		if check.checker != nil {
			status, message := check.checker.CheckReady()
			result = healthCheckResult{Status: status, Message: message}
		}
		resp.Checks[check.name] = result
		statuses = append(statuses, result.Status)
	}

	resp.Status = overallStatus(statuses...)

	w.Header().Set("Content-Type", "application/json")
	if resp.Status == "fail" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// GetMetrics — Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

// overallStatus определяет итоговый статус из статусов зависимостей.
// Если хотя бы одна зависимость fail — итог fail.
// Если хотя бы одна degraded — итог degraded.
// Иначе — ok.
func overallStatus(statuses ...string) string {
	hasDegraded := false
	for _, s := range statuses {
		if s == "fail" {
			return "fail"
		}
		if s == "degraded" {
			hasDegraded = true
		}
	}
	if hasDegraded {
		return "degraded"
	}
	return "ok"
}
