package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/grouponesailor/tier2/internal/domain/model"
	"github.com/grouponesailor/tier2/internal/service"
)

// QueuesHandler — мониторинг и управление очередями.
type QueuesHandler struct {
	queues *service.QueueService
	logger *slog.Logger
}

// NewQueuesHandler создаёт обработчик очередей.
func NewQueuesHandler(queues *service.QueueService, logger *slog.Logger) *QueuesHandler {
	return &QueuesHandler{
		queues: queues,
		logger: logger.With(slog.String("component", "queues_handler")),
	}
}

// ListQueues — GET /api/queues.
func (h *QueuesHandler) ListQueues(w http.ResponseWriter, r *http.Request) {
	out, err := h.queues.Queues(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetErrorQueueCount — GET /api/queues/error/count.
func (h *QueuesHandler) GetErrorQueueCount(w http.ResponseWriter, r *http.Request) {
	out, err := h.queues.ErrorQueueCount(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// FindItemInQueue — GET /api/queues/{queueName}/search/{itemId}.
func (h *QueuesHandler) FindItemInQueue(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathUUID(w, r, "itemId")
	if !ok {
		return
	}
	out, err := h.queues.Find(r.Context(), callerFrom(r), chi.URLParam(r, "queueName"), itemID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// PreviewMessages — GET /api/queues/{queueName}/messages/preview?count=.
func (h *QueuesHandler) PreviewMessages(w http.ResponseWriter, r *http.Request) {
	var count *int
	if !queryParam(w, r, "count", &count) {
		return
	}
	n := service.DefaultPreviewCount
	if count != nil {
		n = *count
	}

	out, err := h.queues.Preview(r.Context(), callerFrom(r), chi.URLParam(r, "queueName"), n)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// TransferMessages — POST /api/queues/transfer.
// Отказ сервера очередей возвращается как 400 с телом результата.
func (h *QueuesHandler) TransferMessages(w http.ResponseWriter, r *http.Request) {
	var req model.TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.queues.Transfer(r.Context(), callerFrom(r), req)
	h.writeResult(w, out, err)
}

// PurgeQueue — POST /api/queues/{queueName}/purge. Очистка всегда отклоняется.
func (h *QueuesHandler) PurgeQueue(w http.ResponseWriter, r *http.Request) {
	var req model.PurgeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.queues.Purge(r.Context(), callerFrom(r), chi.URLParam(r, "queueName"), req)
	h.writeResult(w, out, err)
}

func (h *QueuesHandler) writeResult(w http.ResponseWriter, out *model.TransferResult, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, out)
	case errors.Is(err, service.ErrRejected) && out != nil:
		writeJSON(w, http.StatusBadRequest, out)
	default:
		writeServiceError(w, h.logger, err)
	}
}

// ListQueueOperations — GET /api/queues/operations?queueName&limit&offset.
func (h *QueuesHandler) ListQueueOperations(w http.ResponseWriter, r *http.Request) {
	var limit, offset *int
	if !queryParam(w, r, "limit", &limit) || !queryParam(w, r, "offset", &offset) {
		return
	}
	out, err := h.queues.Operations(r.Context(), r.URL.Query().Get("queueName"), deref(limit), deref(offset))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
