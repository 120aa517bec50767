// Точка входа Portal Module — портал документов медицинского офиса.
// Загружает конфигурацию, выбирает адаптер персистентности (локальная
// директория или PostgreSQL + S3), создаёт сервисный слой и API handlers,
// запускает мониторинг зависимостей (topologymetrics) и HTTP-сервер
// с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"

	"github.com/bigkaa/medstore/internal/aiclient"
	"github.com/bigkaa/medstore/internal/api/handlers"
	"github.com/bigkaa/medstore/internal/api/middleware"
	"github.com/bigkaa/medstore/internal/catalog"
	"github.com/bigkaa/medstore/internal/config"
	"github.com/bigkaa/medstore/internal/database"
	"github.com/bigkaa/medstore/internal/server"
	"github.com/bigkaa/medstore/internal/service"
	"github.com/bigkaa/medstore/internal/storage"
	"github.com/bigkaa/medstore/internal/storage/localstore"
	"github.com/bigkaa/medstore/internal/storage/pgstore"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения (и .env файла)
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Portal Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	ctx := context.Background()

	// 3. Адаптер персистентности.
	// Задан PM_DB_HOST — удалённый режим: PostgreSQL + S3.
	// Иначе — локальная директория данных.
	var (
		store      storage.Store
		users      storage.UserStore
		storeCheck handlers.ReadinessChecker
		pgDB       *sql.DB
	)

	if cfg.RemoteMode() {
		// 3.1 Применение миграций БД
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			os.Exit(1)
		}

		// 3.2 Подключение к PostgreSQL (pgxpool)
		pool, connErr := database.Connect(ctx, cfg, logger)
		if connErr != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", connErr.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		// 3.3 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
		// Проверка здоровья PostgreSQL идёт через существующий пул соединений,
		// что позволяет обнаружить его исчерпание.
		pgDB = stdlib.OpenDBFromPool(pool)
		defer pgDB.Close()

		// 3.4 Объектное хранилище полезной нагрузки (S3)
		payloads, s3Err := pgstore.NewPayloads(ctx, pgstore.S3Options{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Bucket:       cfg.S3Bucket,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if s3Err != nil {
			logger.Error("Ошибка создания S3-клиента", slog.String("error", s3Err.Error()))
			os.Exit(1)
		}

		store = pgstore.New(pool, payloads, logger)
		users = pgstore.NewUsers(pool, logger)
		storeCheck = database.NewReadinessChecker(pool)

		logger.Info("Удалённый адаптер персистентности инициализирован",
			slog.String("db_host", cfg.DBHost),
			slog.String("s3_bucket", cfg.S3Bucket),
		)
	} else {
		local, localErr := localstore.New(cfg.DataDir, logger)
		if localErr != nil {
			logger.Error("Ошибка инициализации локального хранилища", slog.String("error", localErr.Error()))
			os.Exit(1)
		}
		localUsers, usersErr := localstore.NewUsers(cfg.DataDir, logger)
		if usersErr != nil {
			logger.Error("Ошибка инициализации хранилища пользователей", slog.String("error", usersErr.Error()))
			os.Exit(1)
		}

		store = local
		users = localUsers
		storeCheck = local

		logger.Info("Локальный адаптер персистентности инициализирован",
			slog.String("data_dir", cfg.DataDir),
		)
	}

	// 4. Каталог и набор тикетов загрузки
	cat := catalog.New(logger)
	tickets := catalog.NewTicketSet()

	// 5. Классификация: AI-сервис (опционально) поверх эвристики
	var classifySvc *service.ClassifyService
	var aiClient *aiclient.Client
	if cfg.AIURL != "" {
		aiClient = aiclient.New(cfg.AIURL, cfg.AIKey, cfg.AIModel,
			&http.Client{Timeout: cfg.AITimeout}, logger)
		classifySvc = service.NewClassifyService(aiClient,
			cfg.ClassifyCacheSize, cfg.ClassifyCacheTTL, logger)
		logger.Info("AI-классификатор подключён",
			slog.String("url", cfg.AIURL),
			slog.String("model", cfg.AIModel),
		)
	} else {
		classifySvc = service.NewClassifyService(nil,
			cfg.ClassifyCacheSize, cfg.ClassifyCacheTTL, logger)
		logger.Info("AI-классификатор не настроен, классификация по ключевым словам")
	}

	// 6. Учётный сервис: менеджер токенов + пользователи
	tokens := service.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	usersSvc := service.NewUserService(users, tokens, logger)

	// 7. Сервис каталога и начальное заполнение из хранилища
	catalogSvc := service.NewCatalogService(cfg, store, cat, tickets, classifySvc, logger)
	catalogSvc.Load(ctx)

	// 8. Readiness checkers: хранилище, каталог, AI (non-critical)
	healthHandler := handlers.NewHealthHandler()
	healthHandler.AddCheck("storage", storeCheck)
	healthHandler.AddCheck("catalog", catalogSvc)
	if aiClient != nil {
		healthHandler.AddCheck("ai", handlers.NonCritical(aiClient))
	}

	// 9. API handler
	apiHandler := handlers.NewAPIHandler(cfg, healthHandler, usersSvc, catalogSvc, logger)

	// 10. JWT middleware
	jwtAuth := middleware.NewJWTAuth(tokens, logger)

	// 11. topologymetrics — мониторинг зависимостей (PostgreSQL, AI-сервис).
	// В локальном режиме без AI внешних зависимостей нет — мониторинг не запускается.
	var dephealthSvc *service.DephealthService
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"portal-module",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.AIURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Info("Мониторинг зависимостей не запущен",
			slog.String("reason", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
			dephealthSvc = nil
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 12. Создание и запуск HTTP-сервера
	srv, err := server.New(cfg, logger, apiHandler, jwtAuth)
	if err != nil {
		logger.Error("Ошибка создания сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 13. Graceful shutdown фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Portal Module остановлен")
}
