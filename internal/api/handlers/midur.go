package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/grouponesailor/tier2/internal/service"
)

// MidurHandler — конвертные эндпоинты для внешних систем.
type MidurHandler struct {
	midur  *service.MidurService
	logger *slog.Logger
}

// NewMidurHandler создаёт обработчик Midur.
func NewMidurHandler(midur *service.MidurService, logger *slog.Logger) *MidurHandler {
	return &MidurHandler{
		midur:  midur,
		logger: logger.With(slog.String("component", "midur_handler")),
	}
}

// GetItemPermissions — GET /api/midur/getItemPermissions/{itemId}.
func (h *MidurHandler) GetItemPermissions(w http.ResponseWriter, r *http.Request) {
	var callingSystemID *int
	if !queryParam(w, r, "callingSystemId", &callingSystemID) {
		return
	}
	out, err := h.midur.ItemPermissions(r.Context(), chi.URLParam(r, "itemId"), r.URL.Query().Get("reqId"), deref(callingSystemID))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetStorageID — GET /api/maintenance/getStorageId/id/{id}.
func (h *MidurHandler) GetStorageID(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.midur.StorageID(r.Context(), chi.URLParam(r, "id")))
}
