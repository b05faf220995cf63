package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/grouponesailor/tier2/internal/service"
)

// UsersHandler — справочник пользователей и проверка доступа.
type UsersHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUsersHandler создаёт обработчик пользователей.
func NewUsersHandler(users *service.UserService, logger *slog.Logger) *UsersHandler {
	return &UsersHandler{
		users:  users,
		logger: logger.With(slog.String("component", "users_handler")),
	}
}

// SearchUsers — GET /api/users?search=.
func (h *UsersHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	out, err := h.users.SearchUsers(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ListActiveUsers — GET /api/users/active.
func (h *UsersHandler) ListActiveUsers(w http.ResponseWriter, r *http.Request) {
	out, err := h.users.ActiveUsers(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetADSyncStatus — GET /api/users/ad-sync-status.
func (h *UsersHandler) GetADSyncStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.users.ADSyncStatus())
}

// GetUser — GET /api/users/{username}.
func (h *UsersHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	out, err := h.users.GetUser(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetUserADGroups — GET /api/users/{username}/ad-groups.
func (h *UsersHandler) GetUserADGroups(w http.ResponseWriter, r *http.Request) {
	out, err := h.users.ADGroups(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// CheckUserAccess — GET /api/users/{username}/check-access/{itemId}?requiredAccess=.
func (h *UsersHandler) CheckUserAccess(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathUUID(w, r, "itemId")
	if !ok {
		return
	}
	out, err := h.users.CheckAccess(r.Context(), chi.URLParam(r, "username"), itemID, r.URL.Query().Get("requiredAccess"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
