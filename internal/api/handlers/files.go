package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/grouponesailor/tier2/internal/domain/model"
	"github.com/grouponesailor/tier2/internal/service"
)

// FilesHandler — файлы, корзина, поиск и статистика просмотров.
type FilesHandler struct {
	files  *service.FileService
	logger *slog.Logger
}

// NewFilesHandler создаёт обработчик файловых операций.
func NewFilesHandler(files *service.FileService, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		files:  files,
		logger: logger.With(slog.String("component", "files_handler")),
	}
}

// ListLockedFiles — GET /api/files/locked.
func (h *FilesHandler) ListLockedFiles(w http.ResponseWriter, r *http.Request) {
	out, err := h.files.LockedFiles(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// UnlockFile — POST /api/files/unlock. Всегда 200, отказ передаётся в ex.
func (h *FilesHandler) UnlockFile(w http.ResponseWriter, r *http.Request) {
	var req model.UnlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.files.Unlock(r.Context(), callerFrom(r), req))
}

// GetFileVersions — GET /api/files/{fileId}/versions.
func (h *FilesHandler) GetFileVersions(w http.ResponseWriter, r *http.Request) {
	fileID, ok := pathUUID(w, r, "fileId")
	if !ok {
		return
	}
	out, err := h.files.Versions(r.Context(), fileID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// RestoreFileVersion — POST /api/files/{fileId}/restore-version.
func (h *FilesHandler) RestoreFileVersion(w http.ResponseWriter, r *http.Request) {
	fileID, ok := pathUUID(w, r, "fileId")
	if !ok {
		return
	}
	var req model.FileVersionRestoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.files.RestoreVersion(r.Context(), callerFrom(r), fileID, req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetFilePermissions — GET /api/files/{fileId}/permissions.
func (h *FilesHandler) GetFilePermissions(w http.ResponseWriter, r *http.Request) {
	fileID, ok := pathUUID(w, r, "fileId")
	if !ok {
		return
	}
	out, err := h.files.Permissions(r.Context(), fileID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// CheckFileAccess — GET /api/files/{fileId}/check-access/{username}.
func (h *FilesHandler) CheckFileAccess(w http.ResponseWriter, r *http.Request) {
	fileID, ok := pathUUID(w, r, "fileId")
	if !ok {
		return
	}
	out, err := h.files.CheckAccess(r.Context(), fileID, chi.URLParam(r, "username"), r.URL.Query().Get("requiredAccess"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetClassificationHistory — GET /api/files/{fileId}/classification-history.
func (h *FilesHandler) GetClassificationHistory(w http.ResponseWriter, r *http.Request) {
	fileID, ok := pathUUID(w, r, "fileId")
	if !ok {
		return
	}
	out, err := h.files.ClassificationHistory(r.Context(), fileID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// searchUnavailable — ответ поиска при недоступном сервере коллаборации.
type searchUnavailable struct {
	Message string `json:"message"`
}

// SearchFiles — POST /files. Статус и тело ответа сервера коллаборации
// передаются клиенту без изменений.
func (h *FilesHandler) SearchFiles(w http.ResponseWriter, r *http.Request) {
	var req model.FilesSearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status, body, err := h.files.Search(r.Context(), req, r.URL.Query().Get("classification"))
	if err != nil {
		if errors.Is(err, service.ErrUpstreamUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, searchUnavailable{Message: "MockServer is not available"})
			return
		}
		writeServiceError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// RestoreFile — PUT /api/file/restore. Всегда 200, ошибка передаётся в ex.
func (h *FilesHandler) RestoreFile(w http.ResponseWriter, r *http.Request) {
	var req model.RestoreItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.files.RestoreFile(r.Context(), callerFrom(r), req))
}

// RestoreDirectory — PUT /api/directory/restore.
func (h *FilesHandler) RestoreDirectory(w http.ResponseWriter, r *http.Request) {
	var req model.RestoreItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.files.RestoreDirectory(r.Context(), callerFrom(r), req))
}

// ListDeletedItems — GET /api/deleted-items.
func (h *FilesHandler) ListDeletedItems(w http.ResponseWriter, r *http.Request) {
	out, err := h.files.DeletedItems(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// RecoverDeletedItem — POST /api/deleted-items/{id}/restore. Тело необязательно.
func (h *FilesHandler) RecoverDeletedItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req model.RecoverDeletedRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.files.RecoverItem(r.Context(), callerFrom(r), itemID, req.Justification)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetFileViews — GET /api/file/views/id/{fileId}.
func (h *FilesHandler) GetFileViews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.files.Views(r.Context(), chi.URLParam(r, "fileId")))
}

// RecordFileView — POST /api/file/views/id/{fileId}.
func (h *FilesHandler) RecordFileView(w http.ResponseWriter, r *http.Request) {
	var req model.RecordViewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.files.RecordView(r.Context(), chi.URLParam(r, "fileId"), req.UserID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

