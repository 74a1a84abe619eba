// Точка входа File Service — backend хранения пользовательских файлов.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// инициализирует объектное хранилище, Redis и LLM-клиент, создаёт сервисный
// слой и API handlers, запускает HTTP-сервер с JWT middleware
// и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/animenative/file-service/internal/api/handlers"
	"github.com/animenative/file-service/internal/api/middleware"
	"github.com/animenative/file-service/internal/cache"
	"github.com/animenative/file-service/internal/config"
	"github.com/animenative/file-service/internal/database"
	"github.com/animenative/file-service/internal/llm"
	"github.com/animenative/file-service/internal/repository"
	"github.com/animenative/file-service/internal/server"
	"github.com/animenative/file-service/internal/service"
	"github.com/animenative/file-service/internal/storage"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("File Service запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5. Клиент объектного хранилища (S3-совместимое)
	store, err := storage.New(cfg, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Клиент объектного хранилища создан",
		slog.String("endpoint", cfg.S3Endpoint),
		slog.String("bucket", cfg.S3Bucket),
	)

	// 6. Клиент Redis
	redisClient := cache.New(cfg, logger)
	defer redisClient.Close()

	// 7. LLM-клиент (опционально: без API Key /chat отвечает 503)
	var chatHandler *handlers.ChatHandler
	if cfg.LLMAPIKey != "" {
		llmClient, err := llm.New(cfg, logger)
		if err != nil {
			logger.Error("Ошибка создания LLM-клиента", slog.String("error", err.Error()))
			os.Exit(1)
		}
		chatHandler = handlers.NewChatHandler(llmClient, redisClient, logger)
		logger.Info("LLM-клиент создан", slog.String("model", cfg.LLMModel))
	} else {
		logger.Warn("FS_LLM_API_KEY не задан — /api/v1/chat/ отключён")
	}

	// 8. Repository и сервисный слой
	fileRepo := repository.NewFileRepository(pool)
	cacheService := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)

	uploadService := service.NewUploadService(
		cfg,
		service.NewValidator(cfg),
		service.NewKeyNamer(),
		store,
		fileRepo,
		logger,
	)
	deleteService := service.NewDeleteService(fileRepo, store, cacheService, logger)
	listService := service.NewListService(fileRepo, cacheService, cfg, logger)

	// 9. Health handler с проверками зависимостей
	idpChecker, err := middleware.NewIdPReadinessChecker(cfg.JWKSURL, cfg.JWKSCACertPath, cfg.JWKSClientTimeout)
	if err != nil {
		logger.Error("Ошибка создания IdP readiness checker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	healthHandler := handlers.NewHealthHandler(
		database.NewReadinessChecker(pool),
		store,
		redisClient,
		idpChecker,
	)

	// 10. API handler
	apiHandler := handlers.NewAPIHandler(
		uploadService,
		deleteService,
		listService,
		chatHandler,
		healthHandler,
		logger,
	)

	// 11. JWT middleware (JWKS провайдера идентичности)
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWKSURL,
		cfg.JWKSCACertPath,
		cfg.JWTIssuer,
		cfg.JWKSClientTimeout,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. HTTP-сервер: metrics → logging → JWT (health и metrics вне JWT)
	srv := server.New(cfg, logger, apiHandler,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
		server.JWTAuthWithExclusions(jwtAuth.Middleware(), "/health", "/metrics"),
	)

	// 13. Запуск сервера (блокирующий вызов с graceful shutdown)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("File Service остановлен")
}
