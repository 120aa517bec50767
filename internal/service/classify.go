// classify.go — подбор категории медицинского документа.
// Сначала спрашивается AI-сервис (если настроен); при любой ошибке
// или нераспознанном ответе срабатывает локальная эвристика по
// ключевым словам имени файла. Результаты кэшируются в LRU с TTL
// (обёртка над hashicorp/golang-lru/v2/expirable).
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/medstore/internal/domain/model"
)

// Prometheus-метрики классификации.
var (
	classifyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pm_classify_total",
		Help: "Общее количество классификаций по источнику результата.",
	}, []string{"source"})
	classifyFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pm_classify_fallback_total",
		Help: "Количество откатов с AI-классификации на эвристику.",
	})
)

// keywordRules — упорядоченные правила эвристики: выигрывает первое
// правило, чьё ключевое слово встречается в имени файла. Кардиология
// стоит раньше лучевой диагностики, чтобы heart_scan относился к ней,
// а не к Radiology по слову scan.
var keywordRules = []struct {
	category model.Category
	keywords []string
}{
	{model.CategoryCardiology, []string{"cardio", "heart", "ecg", "ekg"}},
	{model.CategoryPediatrics, []string{"pediatric", "child", "growth", "vaccin"}},
	{model.CategoryNeurology, []string{"neuro", "brain", "eeg"}},
	{model.CategoryOncology, []string{"onco", "tumor", "chemo", "biopsy"}},
	{model.CategoryRadiology, []string{"xray", "x-ray", "mri", "scan", "ultrasound"}},
	{model.CategoryOrthopedics, []string{"ortho", "bone", "fracture", "joint"}},
	{model.CategoryLaboratory, []string{"lab", "blood", "test", "urine", "sample"}},
}

// aiClassifier — внешний классификатор (реализуется aiclient.Client).
type aiClassifier interface {
	Classify(ctx context.Context, name, mimeType string, categories []string) (string, error)
}

// ClassifyService — сервис классификации документов.
type ClassifyService struct {
	ai     aiClassifier // nil, если AI-сервис не настроен
	cache  *expirable.LRU[string, model.Category]
	logger *slog.Logger
}

// NewClassifyService создаёт сервис классификации.
// ai может быть nil — тогда работает только эвристика.
// cacheSize — максимальное количество записей в кэше,
// cacheTTL — время жизни записи после добавления.
func NewClassifyService(ai aiClassifier, cacheSize int, cacheTTL time.Duration, logger *slog.Logger) *ClassifyService {
	return &ClassifyService{
		ai:     ai,
		cache:  expirable.NewLRU[string, model.Category](cacheSize, nil, cacheTTL),
		logger: logger.With(slog.String("component", "classify_service")),
	}
}

// Classify подбирает категорию документа по имени файла и MIME-типу.
// Никогда не возвращает ошибку: любой сбой внешнего сервиса гасится
// эвристикой, в худшем случае — категорией по умолчанию.
func (s *ClassifyService) Classify(ctx context.Context, name, mimeType string) model.Category {
	key := cacheKey(name, mimeType)

	if cat, ok := s.cache.Get(key); ok {
		classifyTotal.WithLabelValues("cache").Inc()
		return cat
	}

	if s.ai != nil {
		label, err := s.ai.Classify(ctx, name, mimeType, categoryNames())
		switch {
		case err != nil:
			classifyFallbackTotal.Inc()
			s.logger.Warn("AI-классификация не удалась, используется эвристика",
				slog.String("file", name),
				slog.String("error", err.Error()),
			)
		default:
			if cat, ok := model.ParseCategory(label); ok {
				classifyTotal.WithLabelValues("ai").Inc()
				s.cache.Add(key, cat)
				return cat
			}
			classifyFallbackTotal.Inc()
			s.logger.Debug("AI вернул нераспознанную категорию, используется эвристика",
				slog.String("file", name),
				slog.String("label", label),
			)
		}
	}

	cat := keywordCategory(name)
	classifyTotal.WithLabelValues("keyword").Inc()
	s.cache.Add(key, cat)

	return cat
}

// cacheKey строит ключ кэша из имени файла и MIME-типа: один и тот же
// файл с разными MIME-типами кэшируется раздельно.
func cacheKey(name, mimeType string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + strings.ToLower(strings.TrimSpace(mimeType))
}

// keywordCategory подбирает категорию по ключевым словам имени файла.
func keywordCategory(name string) model.Category {
	lower := strings.ToLower(name)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return model.CategoryGeneral
}

// categoryNames возвращает имена категорий для подсказки модели.
func categoryNames() []string {
	cats := model.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return names
}
