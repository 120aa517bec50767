// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Portal Module мониторит до двух зависимостей, в зависимости от конфигурации:
//   - PostgreSQL — SQL checker через существующий pgxpool (connection pool mode,
//     critical); только в удалённом режиме хранения
//   - AI-сервис классификации — HTTP checker к /models endpoint (non-critical,
//     т.к. классификация деградирует до эвристики); только если задан PM_AI_URL
//
// Connection pool mode предпочтителен, т.к. отражает реальную способность сервиса
// работать с зависимостью и может обнаружить исчерпание пула соединений.
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker для AI-сервиса
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"     // PostgreSQL checker (pool mode)
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
//
// db может быть nil (локальный режим хранения — PostgreSQL не мониторится),
// aiURL может быть пустым (классификация работает на эвристике). Хотя бы
// одна зависимость должна присутствовать.
//
// Параметры:
//   - serviceID — имя вершины графа текущего приложения (e.g. "portal-module")
//   - group — имя группы в метриках (PM_DEPHEALTH_GROUP)
//   - db — *sql.DB, полученный из pgxpool через stdlib.OpenDBFromPool()
//   - pgConnURL — URL подключения к PostgreSQL (для метрик/лейблов, не для подключения)
//   - aiURL — базовый URL AI-сервиса классификации (PM_AI_URL)
//   - checkInterval — интервал проверки зависимостей (PM_DEPHEALTH_CHECK_INTERVAL)
func NewDephealthService(
	serviceID string,
	group string,
	db *sql.DB,
	pgConnURL string,
	aiURL string,
	checkInterval time.Duration,
	logger *slog.Logger,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, db, pgConnURL, aiURL, checkInterval, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	serviceID string,
	group string,
	db *sql.DB,
	pgConnURL string,
	aiURL string,
	checkInterval time.Duration,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, db, pgConnURL, aiURL, checkInterval, logger,
		dephealth.WithRegisterer(registerer))
}

// newDephealthService — внутренний конструктор.
func newDephealthService(
	serviceID string,
	group string,
	db *sql.DB,
	pgConnURL string,
	aiURL string,
	checkInterval time.Duration,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
	}

	deps := make([]string, 0, 2)

	if db != nil {
		// PostgreSQL — connection pool mode через существующий pgxpool.
		// Проверка идёт через *sql.DB (адаптер pgxpool), что отражает реальное
		// состояние пула соединений и может обнаружить его исчерпание.
		// Используем pgcheck.New + dephealth.AddDependency напрямую,
		// чтобы не тянуть contrib/sqldb с транзитивной зависимостью на MySQL.
		opts = append(opts, dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(db)),
			dephealth.FromURL(pgConnURL),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(true),
		))
		deps = append(deps, "postgresql")
	}

	if aiURL != "" {
		// AI-сервис — HTTP checker к /models. По умолчанию dephealth проверяет
		// /health, но OpenAI-совместимые сервисы такого endpoint не дают;
		// GET /models — их стандартный дешёвый способ подтвердить доступность.
		// Non-critical: при недоступности AI классификация переходит на эвристику.
		opts = append(opts, dephealth.HTTP("ai-api",
			dephealth.FromURL(aiURL),
			dephealth.WithHTTPHealthPath(aiModelsPath(aiURL)),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(false),
		))
		deps = append(deps, "ai-api")
	}

	if len(deps) == 0 {
		return nil, errors.New("нет зависимостей для мониторинга")
	}

	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(serviceID, group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// aiModelsPath возвращает path для health check AI-сервиса: path базового
// URL плюс /models. Для https://api.example.com/v1 получится /v1/models.
func aiModelsPath(aiURL string) string {
	parsed, err := url.Parse(aiURL)
	if err != nil || parsed.Path == "" || parsed.Path == "/" {
		return "/models"
	}
	return strings.TrimRight(parsed.Path, "/") + "/models"
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
