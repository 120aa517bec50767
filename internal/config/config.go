// Пакет config — загрузка и валидация конфигурации Portal Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Portal Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8000-8009)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Максимальный суммарный размер множественной загрузки, байт
	MaxUploadSize int64
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// --- Аутентификация ---

	// Секрет подписи JWT (HS256)
	JWTSecret string
	// Время жизни выданного токена
	TokenTTL time.Duration

	// --- Локальное хранилище ---

	// Каталог данных локального адаптера
	DataDir string

	// --- PostgreSQL (удалённый адаптер; включается заданным PM_DB_HOST) ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string
	// Максимальное число подключений пула pgxpool
	DBMaxConns int
	// Время жизни подключения пула до пересоздания
	DBConnLifetime time.Duration

	// --- Объектное хранилище (удалённый адаптер) ---

	// Адрес S3-совместимого хранилища
	S3Endpoint string
	// Регион S3
	S3Region string
	// Идентификатор ключа доступа
	S3AccessKey string
	// Секретный ключ доступа
	S3SecretKey string
	// Имя бакета с полезной нагрузкой
	S3Bucket string
	// Адресация бакета через путь (нужно для MinIO)
	S3UsePathStyle bool
	// Время жизни подписанной ссылки на скачивание
	DownloadURLTTL time.Duration

	// --- Классификация ---

	// URL AI-сервиса (пусто — классификация только по ключевым словам)
	AIURL string
	// API-ключ AI-сервиса
	AIKey string
	// Модель AI-сервиса
	AIModel string
	// Таймаут запроса к AI-сервису
	AITimeout time.Duration
	// Размер кэша результатов классификации
	ClassifyCacheSize int
	// Время жизни записи в кэше классификации
	ClassifyCacheTTL time.Duration

	// --- Имитация прогресса загрузки ---

	// Интервал между шагами прогресса тикета
	UploadTickInterval time.Duration
	// Задержка перед удалением завершённого тикета из списка
	UploadLinger time.Duration

	// --- Наблюдаемость ---

	// Имя группы в метриках topologymetrics (PM_DEPHEALTH_GROUP)
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Интервал keep-alive сообщений SSE-потока каталога
	SSEKeepAlive time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// PM_PORT — порт HTTP-сервера (по умолчанию 8004)
	cfg.Port, err = getEnvInt("PM_PORT", 8004)
	if err != nil {
		return nil, fmt.Errorf("PM_PORT: %w", err)
	}
	if cfg.Port < 8000 || cfg.Port > 8009 {
		return nil, fmt.Errorf("PM_PORT: значение %d вне допустимого диапазона 8000-8009", cfg.Port)
	}

	// PM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("PM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("PM_LOG_LEVEL: %w", err)
	}

	// PM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("PM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("PM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// PM_MAX_UPLOAD_SIZE — лимит размера загрузки (по умолчанию 50 МБ)
	cfg.MaxUploadSize, err = getEnvInt64("PM_MAX_UPLOAD_SIZE", 50<<20)
	if err != nil {
		return nil, fmt.Errorf("PM_MAX_UPLOAD_SIZE: %w", err)
	}
	if cfg.MaxUploadSize < 1 {
		return nil, fmt.Errorf("PM_MAX_UPLOAD_SIZE: значение должно быть положительным")
	}

	// PM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("PM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PM_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- Аутентификация ---

	// PM_JWT_SECRET — обязательный
	cfg.JWTSecret, err = getEnvRequired("PM_JWT_SECRET")
	if err != nil {
		return nil, err
	}

	// PM_TOKEN_TTL — время жизни токена (по умолчанию 24h)
	cfg.TokenTTL, err = getEnvDuration("PM_TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("PM_TOKEN_TTL: %w", err)
	}
	if cfg.TokenTTL < time.Minute {
		return nil, fmt.Errorf("PM_TOKEN_TTL: значение %s меньше минимального (1m)", cfg.TokenTTL)
	}

	// --- Локальное хранилище ---

	// PM_DATA_DIR — каталог данных локального адаптера (по умолчанию ./data)
	cfg.DataDir = getEnvDefault("PM_DATA_DIR", "data")

	// --- PostgreSQL ---

	// PM_DB_HOST — опциональный: если задан, включается удалённый
	// адаптер персистентности (PostgreSQL + S3).
	cfg.DBHost = getEnvDefault("PM_DB_HOST", "")

	// PM_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("PM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("PM_DB_PORT: %w", err)
	}

	// PM_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("PM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("PM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// PM_DB_MAX_CONNS — размер пула подключений (по умолчанию 8)
	cfg.DBMaxConns, err = getEnvInt("PM_DB_MAX_CONNS", 8)
	if err != nil {
		return nil, fmt.Errorf("PM_DB_MAX_CONNS: %w", err)
	}
	if cfg.DBMaxConns < 1 {
		return nil, fmt.Errorf("PM_DB_MAX_CONNS: значение должно быть положительным")
	}

	// PM_DB_CONN_LIFETIME — время жизни подключения пула (по умолчанию 30m)
	cfg.DBConnLifetime, err = getEnvDuration("PM_DB_CONN_LIFETIME", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("PM_DB_CONN_LIFETIME: %w", err)
	}

	if cfg.RemoteMode() {
		// В удалённом режиме остальные параметры БД обязательны.
		cfg.DBName, err = getEnvRequired("PM_DB_NAME")
		if err != nil {
			return nil, err
		}
		cfg.DBUser, err = getEnvRequired("PM_DB_USER")
		if err != nil {
			return nil, err
		}
		cfg.DBPassword, err = getEnvRequired("PM_DB_PASSWORD")
		if err != nil {
			return nil, err
		}

		// --- Объектное хранилище ---

		cfg.S3Endpoint, err = getEnvRequired("PM_S3_ENDPOINT")
		if err != nil {
			return nil, err
		}
		cfg.S3AccessKey, err = getEnvRequired("PM_S3_ACCESS_KEY")
		if err != nil {
			return nil, err
		}
		cfg.S3SecretKey, err = getEnvRequired("PM_S3_SECRET_KEY")
		if err != nil {
			return nil, err
		}
		cfg.S3Bucket, err = getEnvRequired("PM_S3_BUCKET")
		if err != nil {
			return nil, err
		}
	}

	// PM_S3_REGION — регион S3 (по умолчанию us-east-1)
	cfg.S3Region = getEnvDefault("PM_S3_REGION", "us-east-1")

	// PM_S3_USE_PATH_STYLE — адресация через путь (по умолчанию true, MinIO)
	cfg.S3UsePathStyle, err = getEnvBool("PM_S3_USE_PATH_STYLE", true)
	if err != nil {
		return nil, fmt.Errorf("PM_S3_USE_PATH_STYLE: %w", err)
	}

	// PM_DOWNLOAD_URL_TTL — время жизни подписанной ссылки (по умолчанию 5m)
	cfg.DownloadURLTTL, err = getEnvDuration("PM_DOWNLOAD_URL_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("PM_DOWNLOAD_URL_TTL: %w", err)
	}

	// --- Классификация ---

	// PM_AI_URL — URL AI-сервиса (опционально)
	cfg.AIURL = strings.TrimRight(getEnvDefault("PM_AI_URL", ""), "/")

	// PM_AI_KEY — API-ключ AI-сервиса
	cfg.AIKey = getEnvDefault("PM_AI_KEY", "")

	// PM_AI_MODEL — модель AI-сервиса (по умолчанию gpt-4o-mini)
	cfg.AIModel = getEnvDefault("PM_AI_MODEL", "gpt-4o-mini")

	// PM_AI_TIMEOUT — таймаут запроса к AI-сервису (по умолчанию 10s)
	cfg.AITimeout, err = getEnvDuration("PM_AI_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PM_AI_TIMEOUT: %w", err)
	}

	// PM_CLASSIFY_CACHE_SIZE — размер кэша классификации (по умолчанию 256)
	cfg.ClassifyCacheSize, err = getEnvInt("PM_CLASSIFY_CACHE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("PM_CLASSIFY_CACHE_SIZE: %w", err)
	}
	if cfg.ClassifyCacheSize < 1 {
		return nil, fmt.Errorf("PM_CLASSIFY_CACHE_SIZE: значение должно быть положительным")
	}

	// PM_CLASSIFY_CACHE_TTL — TTL кэша классификации (по умолчанию 1h)
	cfg.ClassifyCacheTTL, err = getEnvDuration("PM_CLASSIFY_CACHE_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("PM_CLASSIFY_CACHE_TTL: %w", err)
	}

	// --- Имитация прогресса загрузки ---

	// PM_UPLOAD_TICK_INTERVAL — интервал шага прогресса (по умолчанию 200ms)
	cfg.UploadTickInterval, err = getEnvDuration("PM_UPLOAD_TICK_INTERVAL", 200*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("PM_UPLOAD_TICK_INTERVAL: %w", err)
	}

	// PM_UPLOAD_LINGER — задержка удаления завершённого тикета (по умолчанию 2s)
	cfg.UploadLinger, err = getEnvDuration("PM_UPLOAD_LINGER", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PM_UPLOAD_LINGER: %w", err)
	}

	// --- Наблюдаемость ---

	// PM_DEPHEALTH_GROUP — имя группы в метриках topologymetrics (по умолчанию "portal-module")
	cfg.DephealthGroup = getEnvDefault("PM_DEPHEALTH_GROUP", "portal-module")

	// PM_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("PM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// PM_SSE_KEEPALIVE — интервал keep-alive SSE (по умолчанию 15s)
	cfg.SSEKeepAlive, err = getEnvDuration("PM_SSE_KEEPALIVE", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PM_SSE_KEEPALIVE: %w", err)
	}

	return cfg, nil
}

// RemoteMode сообщает, выбран ли удалённый адаптер персистентности.
// Критерий — заданный хост PostgreSQL.
func (c *Config) RemoteMode() bool {
	return c.DBHost != ""
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает подключение к PostgreSQL в формате URL.
// Используется topologymetrics для извлечения host/port в лейблы метрик.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает 64-битное целое из переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
