// Точка входа Tier2 API — административного бэкенда платформы совместной
// работы с файлами. Загружает конфигурацию, подключается к PostgreSQL,
// применяет миграции, создаёт клиента сервера коллаборации, сервисный слой
// и обработчики, запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/grouponesailor/tier2/internal/api/handlers"
	"github.com/grouponesailor/tier2/internal/api/middleware"
	"github.com/grouponesailor/tier2/internal/api/openapi"
	"github.com/grouponesailor/tier2/internal/collabclient"
	"github.com/grouponesailor/tier2/internal/config"
	"github.com/grouponesailor/tier2/internal/database"
	"github.com/grouponesailor/tier2/internal/queuebackend"
	"github.com/grouponesailor/tier2/internal/repository"
	"github.com/grouponesailor/tier2/internal/server"
	"github.com/grouponesailor/tier2/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения (T2_*)
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg.Log, "tier2-api")
	slog.SetDefault(logger)
	logger.Info("Tier2 API запускается",
		slog.Int("port", cfg.Port),
		slog.String("environment", cfg.Environment),
	)

	if os.Getenv("T2_DEPHEALTH_GROUP") == "" {
		logger.Warn("T2_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

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

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Клиент сервера коллаборации
	collab, err := collabclient.New(cfg.CollabURL, cfg.CollabCACertPath, cfg.CollabTimeout, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента сервера коллаборации", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Клиент сервера коллаборации создан", slog.String("url", cfg.CollabURL))

	var extraChecks []handlers.NamedChecker

	// 6. Источник очередей: сервер коллаборации или RabbitMQ
	var backend queuebackend.Backend
	switch cfg.QueueBackend {
	case config.QueueBackendAMQP:
		amqpBackend := queuebackend.NewAMQPBackend(cfg.AMQPURL, cfg.AMQPQueues, cfg.AMQPErrorQueue, cfg.AMQPScanLimit, logger)
		defer amqpBackend.Close() //nolint:errcheck // закрытие при выходе
		backend = amqpBackend
		extraChecks = append(extraChecks, handlers.NamedChecker{Name: "rabbitmq", Checker: amqpBackend})
	default:
		backend = queuebackend.NewCollabBackend(collab, logger)
	}
	logger.Info("Источник очередей выбран", slog.String("backend", backend.Name()))

	// 7. Общий кэш пользователей в Redis (опционально)
	var shared *service.RedisCache
	if cfg.RedisAddr != "" {
		redisClient, err := service.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			// Без Redis работает только локальный LRU.
			logger.Warn("Redis недоступен, используется только локальный кэш",
				slog.String("addr", cfg.RedisAddr),
				slog.String("error", err.Error()),
			)
		} else {
			defer redisClient.Close() //nolint:errcheck // закрытие при выходе
			shared = service.NewRedisCache(redisClient, "tier2:", cfg.CacheTTL)
			extraChecks = append(extraChecks, handlers.NamedChecker{Name: "redis", Checker: shared})
			logger.Info("Redis подключён", slog.String("addr", cfg.RedisAddr))
		}
	}

	// 8. Repositories
	auditRepo := repository.NewAuditLogRepository(pool)
	viewRepo := repository.NewFileViewRepository(pool)
	journal := repository.NewQueueJournal(pool)

	// 9. Services
	auditSvc := service.NewAuditService(auditRepo, logger)
	filesSvc := service.NewFileService(collab, viewRepo, auditSvc, logger)
	midurSvc := service.NewMidurService(collab, logger)
	queuesSvc := service.NewQueueService(backend, journal, logger)
	usersSvc := service.NewUserService(collab, cfg.CacheSize, cfg.CacheTTL, shared, logger)

	// 10. JWT middleware (если задан T2_JWT_JWKS_URL)
	var jwtAuth *middleware.JWTAuth
	if cfg.AuthEnabled() {
		jwtAuth, err = middleware.NewJWTAuth(
			cfg.JWTJWKSURL,
			cfg.CollabCACertPath,
			cfg.JWTIssuer,
			cfg.RoleAdminGroups,
			cfg.RoleReadonlyGroups,
			cfg.JWKSRefreshInterval,
			cfg.JWTLeeway,
			logger,
		)
		if err != nil {
			logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
			os.Exit(1)
		}
		jwksChecker, err := middleware.NewJWKSReadinessChecker(cfg.JWTJWKSURL, cfg.CollabCACertPath, 3*time.Second)
		if err != nil {
			logger.Error("Ошибка создания JWKS readiness checker", slog.String("error", err.Error()))
			os.Exit(1)
		}
		extraChecks = append(extraChecks, handlers.NamedChecker{Name: "jwks", Checker: jwksChecker})
		logger.Info("JWT middleware инициализирован",
			slog.String("jwks_url", cfg.JWTJWKSURL),
			slog.String("issuer", cfg.JWTIssuer),
		)
	} else {
		logger.Warn("T2_JWT_JWKS_URL не задана, аутентификация отключена")
	}

	// 11. Проверка запросов по OpenAPI документу
	doc, err := openapi.Load(ctx)
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI документа", slog.String("error", err.Error()))
		os.Exit(1)
	}
	validator, err := middleware.NewRequestValidator(doc, logger)
	if err != nil {
		logger.Error("Ошибка создания валидатора запросов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. topologymetrics — мониторинг зависимостей (PostgreSQL + сервер коллаборации)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"tier2-api",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL("postgres"),
		cfg.CollabURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
	} else {
		defer dephealthSvc.Stop()
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 13. Handlers и маршрутизатор
	router := server.NewRouter(server.Handlers{
		Health: handlers.NewHealthHandler(database.NewReadinessChecker(pool), collab, cfg.Environment, extraChecks...),
		Files:  handlers.NewFilesHandler(filesSvc, logger),
		Midur:  handlers.NewMidurHandler(midurSvc, logger),
		Queues: handlers.NewQueuesHandler(queuesSvc, logger),
		Users:  handlers.NewUsersHandler(usersSvc, logger),
		Audit:  handlers.NewAuditHandler(auditSvc, logger),
	}, server.RouterOptions{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		JWTAuth:            jwtAuth,
		Validator:          validator,
	}, logger)

	// 14. HTTP-сервер (блокирующий вызов с graceful shutdown)
	opts := server.Options{
		Port:            cfg.Port,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
	srv := server.New(opts, router, logger)

	if err := srv.Run(); err != nil {
		logger.Error("Сервер завершился с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Tier2 API остановлен")
}
