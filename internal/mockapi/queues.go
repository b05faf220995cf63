package mockapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/grouponesailor/tier2/internal/domain/model"
	"github.com/grouponesailor/tier2/internal/mockserver"
)

const (
	queueNotFound       = "Queue not found"
	previewBodyLimit    = 200
	defaultPreviewCount = 10
)

func (h *Handler) listQueues(w http.ResponseWriter, _ *http.Request) {
	queues := h.store.Queues()
	now := time.Now().UTC()

	resp := model.CollabQueueList{
		Count:     len(queues),
		Timestamp: now,
		Queues:    make([]model.CollabQueue, 0, len(queues)),
	}
	for _, q := range queues {
		resp.Queues = append(resp.Queues, collabQueue(q))
	}
	writeJSON(w, http.StatusOK, resp)
}

// collabQueue — очередь без потребителей считается неисправной.
func collabQueue(q mockserver.Queue) model.CollabQueue {
	return model.CollabQueue{
		Name:          q.Name,
		MessageCount:  len(q.Messages),
		ConsumerCount: q.ConsumerCount,
		IsHealthy:     q.ConsumerCount > 0,
		LastChecked:   q.LastChecked,
		Status:        model.QueueStatusFor(len(q.Messages)).String(),
	}
}

func (h *Handler) errorQueueCount(w http.ResponseWriter, _ *http.Request) {
	count := h.store.ErrorQueueCount()
	writeJSON(w, http.StatusOK, model.CollabQueueCount{
		QueueName:    mockserver.ErrorQueue,
		MessageCount: count,
		Timestamp:    time.Now().UTC(),
		Status:       model.QueueStatusFor(count).String(),
	})
}

func (h *Handler) findInQueue(w http.ResponseWriter, r *http.Request) {
	queueName := chi.URLParam(r, "queueName")
	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid item ID format")
		return
	}

	msg, queueFound := h.store.FindInQueue(queueName, itemID)
	if !queueFound {
		writeMessage(w, http.StatusNotFound, queueNotFound)
		return
	}
	if msg == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"found":     false,
			"queueName": queueName,
			"itemId":    itemID,
			"message":   "Item not found in queue",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"found":     true,
		"queueName": queueName,
		"itemId":    itemID,
		"message":   msg,
	})
}

func (h *Handler) previewMessages(w http.ResponseWriter, r *http.Request) {
	queueName := chi.URLParam(r, "queueName")
	count := defaultPreviewCount
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid count")
			return
		}
		count = n
	}

	messages, total, ok := h.store.PreviewMessages(queueName, count)
	if !ok {
		writeMessage(w, http.StatusNotFound, queueNotFound)
		return
	}

	resp := model.CollabPreview{
		QueueName:      queueName,
		TotalMessages:  total,
		RequestedCount: count,
		Timestamp:      time.Now().UTC(),
		Messages:       make([]model.CollabQueueMessage, 0, len(messages)),
	}
	for _, m := range messages {
		m.MessageBody = truncateBody(m.MessageBody)
		m.Headers = nil
		resp.Messages = append(resp.Messages, m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// truncateBody обрезает тело сообщения до previewBodyLimit символов.
func truncateBody(body string) string {
	runes := []rune(body)
	if len(runes) <= previewBodyLimit {
		return body
	}
	return string(runes[:previewBodyLimit]) + "..."
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req model.CollabTransferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SourceQueue == "" || req.TargetQueue == "" {
		writeMessage(w, http.StatusBadRequest, "SourceQueue and TargetQueue are required")
		return
	}
	if req.AdminUser == "" {
		writeMessage(w, http.StatusBadRequest, "AdminUser is required")
		return
	}

	moved, ok := h.store.TransferMessages(req.SourceQueue, req.TargetQueue, req.MessageIDs, req.AdminUser)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Transfer failed. Check queue names and message IDs.")
		return
	}
	writeJSON(w, http.StatusOK, model.CollabTransferResult{
		Success:       true,
		Message:       "Messages transferred successfully",
		SourceQueue:   req.SourceQueue,
		TargetQueue:   req.TargetQueue,
		MessageCount:  moved,
		TransferredBy: req.AdminUser,
		Timestamp:     time.Now().UTC(),
	})
}
