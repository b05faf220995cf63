package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/grouponesailor/tier2/internal/api/errors"
	"github.com/grouponesailor/tier2/internal/api/handlers"
	"github.com/grouponesailor/tier2/internal/api/middleware"
	"github.com/grouponesailor/tier2/internal/api/openapi"
	"github.com/grouponesailor/tier2/internal/domain/rbac"
)

// Handlers — набор обработчиков Tier2 API.
type Handlers struct {
	Health *handlers.HealthHandler
	Files  *handlers.FilesHandler
	Midur  *handlers.MidurHandler
	Queues *handlers.QueuesHandler
	Users  *handlers.UsersHandler
	Audit  *handlers.AuditHandler
}

// RouterOptions — middleware маршрутизатора.
// JWTAuth nil отключает аутентификацию и проверку ролей.
// Validator nil отключает проверку запросов по OpenAPI документу.
type RouterOptions struct {
	CORSAllowedOrigins []string
	JWTAuth            *middleware.JWTAuth
	Validator          *middleware.RequestValidator
}

// NewRouter собирает chi-маршрутизатор Tier2 API.
func NewRouter(h Handlers, opts RouterOptions, logger *slog.Logger) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware
	router.Use(middleware.CORS(opts.CORSAllowedOrigins))
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health и metrics проверяются Kubernetes напрямую, без токена.
	if opts.JWTAuth != nil {
		router.Use(JWTAuthWithExclusions(opts.JWTAuth.Middleware(), "/health", "/metrics", "/openapi.yaml"))
	}
	if opts.Validator != nil {
		router.Use(opts.Validator.Middleware())
	}

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.NotFound(w, "Маршрут не найден")
	})

	router.Get("/health", h.Health.Health)
	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Get("/metrics", h.Health.GetMetrics)
	router.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(openapi.Spec())
	})

	// Изменяющие операции доступны только роли admin.
	admin := func(r chi.Router) chi.Router {
		if opts.JWTAuth == nil {
			return r
		}
		return r.With(middleware.RequireRole(rbac.RoleAdmin))
	}
	// Чтение доступно любой роли.
	reader := func(r chi.Router) chi.Router {
		if opts.JWTAuth == nil {
			return r
		}
		return r.With(middleware.RequireRole(rbac.RoleReadonly))
	}

	router.Route("/api", func(r chi.Router) {
		// Файлы
		reader(r).Get("/files/locked", h.Files.ListLockedFiles)
		admin(r).Post("/files/unlock", h.Files.UnlockFile)
		reader(r).Get("/files/{fileId}/versions", h.Files.GetFileVersions)
		admin(r).Post("/files/{fileId}/restore-version", h.Files.RestoreFileVersion)
		reader(r).Get("/files/{fileId}/permissions", h.Files.GetFilePermissions)
		reader(r).Get("/files/{fileId}/check-access/{username}", h.Files.CheckFileAccess)
		reader(r).Get("/files/{fileId}/classification-history", h.Files.GetClassificationHistory)
		admin(r).Put("/file/restore", h.Files.RestoreFile)
		admin(r).Put("/directory/restore", h.Files.RestoreDirectory)
		reader(r).Get("/deleted-items", h.Files.ListDeletedItems)
		admin(r).Post("/deleted-items/{id}/restore", h.Files.RecoverDeletedItem)
		reader(r).Get("/file/views/id/{fileId}", h.Files.GetFileViews)
		admin(r).Post("/file/views/id/{fileId}", h.Files.RecordFileView)

		// Midur
		reader(r).Get("/midur/getItemPermissions/{itemId}", h.Midur.GetItemPermissions)
		reader(r).Get("/maintenance/getStorageId/id/{id}", h.Midur.GetStorageID)

		// Очереди
		reader(r).Get("/queues", h.Queues.ListQueues)
		reader(r).Get("/queues/error/count", h.Queues.GetErrorQueueCount)
		reader(r).Get("/queues/operations", h.Queues.ListQueueOperations)
		admin(r).Post("/queues/transfer", h.Queues.TransferMessages)
		reader(r).Get("/queues/{queueName}/search/{itemId}", h.Queues.FindItemInQueue)
		reader(r).Get("/queues/{queueName}/messages/preview", h.Queues.PreviewMessages)
		admin(r).Post("/queues/{queueName}/purge", h.Queues.PurgeQueue)

		// Пользователи
		reader(r).Get("/users", h.Users.SearchUsers)
		reader(r).Get("/users/active", h.Users.ListActiveUsers)
		reader(r).Get("/users/ad-sync-status", h.Users.GetADSyncStatus)
		reader(r).Get("/users/{username}", h.Users.GetUser)
		reader(r).Get("/users/{username}/ad-groups", h.Users.GetUserADGroups)
		reader(r).Get("/users/{username}/check-access/{itemId}", h.Users.CheckUserAccess)

		// Аудит
		reader(r).Get("/audit-logs", h.Audit.SearchAuditLogs)
	})

	// Поиск файлов повторяет путь сервера коллаборации.
	reader(router).Post("/files", h.Files.SearchFiles)

	return router
}
