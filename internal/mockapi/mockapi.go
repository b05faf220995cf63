// Пакет mockapi — HTTP API mock-сервера коллаборации.
// Отдаёт данные mockserver.Store в формате настоящего сервера
// коллаборации, а также выпускает JWT для тестовой среды (GET /jwks, POST /token).
package mockapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grouponesailor/tier2/internal/api/middleware"
	"github.com/grouponesailor/tier2/internal/mockserver"
)

// systemActor — автор изменений, пришедших без явного пользователя.
const systemActor = "system"

// Handler — обработчики mock-сервера.
type Handler struct {
	store  *mockserver.Store
	tokens *TokenIssuer
	logger *slog.Logger
}

// New создаёт обработчики mock-сервера.
// tokens может быть nil — тогда /jwks и /token не регистрируются.
func New(store *mockserver.Store, tokens *TokenIssuer, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		tokens: tokens,
		logger: logger.With(slog.String("component", "mock_api")),
	}
}

// Routes возвращает роутер со всеми маршрутами mock-сервера.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.RequestLogger(h.logger))

	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.Handler())

	if h.tokens != nil {
		r.Get("/jwks", h.jwks)
		r.Post("/token", h.issueToken)
	}

	r.Route("/api/files", func(r chi.Router) {
		r.Get("/locked", h.lockedFiles)
		r.Post("/unlock", h.unlock)
		r.Put("/restore", h.restoreFile)
		r.Get("/{id}/lock-status", h.lockStatus)
		r.Get("/{id}/versions", h.fileVersions)
		r.Post("/{id}/restore-version", h.restoreVersion)
		r.Get("/{id}/permissions", h.filePermissions)
		r.Get("/{id}/classification-history", h.classificationHistory)
	})
	r.Put("/api/directory/restore", h.restoreDirectory)
	r.Get("/api/deleted-items", h.deletedItems)
	r.Post("/api/deleted-items/{id}/restore", h.recoverItem)

	r.Post("/files", h.searchFiles)
	r.Get("/api/midur/getItemPermissions/{itemId}", h.itemPermissions)
	r.Get("/api/maintenance/getStorageId/id/{id}", h.storageID)

	r.Route("/api/queues", func(r chi.Router) {
		r.Get("/", h.listQueues)
		r.Get("/error/count", h.errorQueueCount)
		r.Post("/transfer", h.transfer)
		r.Get("/{queueName}/search/{itemId}", h.findInQueue)
		r.Get("/{queueName}/messages/preview", h.previewMessages)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", h.searchUsers)
		r.Get("/{username}", h.user)
		r.Get("/{username}/ad-groups", h.userADGroups)
		r.Get("/{username}/permissions/{itemId}", h.userPermissions)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"files":  h.store.FileCount(),
	})
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeMessage отвечает телом {"message": ...}, как сервер коллаборации.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// decodeBody разбирает JSON-тело запроса. При ошибке ответ уже записан.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func optString(s string) *string {
	return &s
}
