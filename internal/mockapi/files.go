package mockapi

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/grouponesailor/tier2/internal/domain/model"
	"github.com/grouponesailor/tier2/internal/mockserver"
)

const fileNotFound = "File not found"

// fileFromPath возвращает файл по {id} из пути. При ошибке ответ уже записан.
func (h *Handler) fileFromPath(w http.ResponseWriter, r *http.Request) (mockserver.File, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid file ID format")
		return mockserver.File{}, false
	}
	f, ok := h.store.File(id)
	if !ok {
		writeMessage(w, http.StatusNotFound, fileNotFound)
		return mockserver.File{}, false
	}
	return f, true
}

// shortToken возвращает 16 шестнадцатеричных символов случайного UUID.
func shortToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func (h *Handler) lockStatus(w http.ResponseWriter, r *http.Request) {
	f, ok := h.fileFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, model.LockStatus{
		FileID:        f.ID,
		FileName:      f.Name,
		IsLocked:      f.IsLocked,
		LockedBy:      f.LockedBy,
		LockTimestamp: f.LockTimestamp,
		CanUnlock:     f.IsLocked,
	})
}

func (h *Handler) lockedFiles(w http.ResponseWriter, _ *http.Request) {
	files := h.store.LockedFiles()
	resp := model.LockedFiles{Count: len(files), Files: make([]model.FileLock, 0, len(files))}
	for _, f := range files {
		resp.Files = append(resp.Files, model.FileLock{
			FileID:        f.ID,
			FileName:      f.Name,
			FilePath:      f.Path,
			LockedBy:      f.LockedBy,
			LockTimestamp: f.LockTimestamp,
			Size:          f.Size,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// unlock отвечает 200 всегда; отказ передаётся в поле ex.
func (h *Handler) unlock(w http.ResponseWriter, r *http.Request) {
	var req model.UnlockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp := model.UnlockResponse{
		ID:             req.RequestBody.ID,
		Locked:         true,
		ResponseHeader: model.ResponseHeader{ReqID: req.RequestHeader.ReqID},
	}

	id, err := uuid.Parse(req.RequestBody.ID)
	if err != nil {
		resp.Ex = optString("Invalid file ID format")
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if !h.store.UnlockFile(id, systemActor) {
		resp.Ex = optString("File not found or not locked")
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp.Locked = false
	resp.Signature = shortToken()
	resp.Etag = shortToken()
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) fileVersions(w http.ResponseWriter, r *http.Request) {
	f, ok := h.fileFromPath(w, r)
	if !ok {
		return
	}
	versions := slices.Clone(f.Versions)
	slices.SortFunc(versions, func(a, b model.FileVersion) int { return b.VersionNumber - a.VersionNumber })
	if versions == nil {
		versions = []model.FileVersion{}
	}
	writeJSON(w, http.StatusOK, model.FileVersions{FileID: f.ID, FileName: f.Name, Versions: versions})
}

func (h *Handler) restoreVersion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid file ID format")
		return
	}
	var req model.RestoreVersionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AdminUser == "" {
		writeMessage(w, http.StatusBadRequest, "AdminUser is required")
		return
	}
	if !h.store.RestoreFileVersion(id, req.VersionNumber, req.AdminUser) {
		writeMessage(w, http.StatusBadRequest, "File not found or version not found")
		return
	}
	writeJSON(w, http.StatusOK, model.RestoreVersionResult{
		Success:           true,
		Message:           "File version restored successfully",
		FileID:            id,
		RestoredToVersion: req.VersionNumber,
		RestoredBy:        req.AdminUser,
		Timestamp:         time.Now().UTC(),
	})
}

func (h *Handler) filePermissions(w http.ResponseWriter, r *http.Request) {
	f, ok := h.fileFromPath(w, r)
	if !ok {
		return
	}
	perms := f.Permissions
	if perms == nil {
		perms = []model.Permission{}
	}
	writeJSON(w, http.StatusOK, model.FilePermissions{
		FileID:      f.ID,
		FileName:    f.Name,
		FilePath:    f.Path,
		Permissions: perms,
	})
}

func (h *Handler) classificationHistory(w http.ResponseWriter, r *http.Request) {
	f, ok := h.fileFromPath(w, r)
	if !ok {
		return
	}
	history := slices.Clone(f.History)
	slices.SortFunc(history, func(a, b model.ClassificationChange) int { return b.ChangedAt.Compare(a.ChangedAt) })
	if history == nil {
		history = []model.ClassificationChange{}
	}
	writeJSON(w, http.StatusOK, model.ClassificationHistory{
		FileID:                f.ID,
		FileName:              f.Name,
		CurrentClassification: f.Classification,
		History:               history,
	})
}

// restoreFile и restoreDirectory, как и unlock, сообщают об ошибке в поле ex.
func (h *Handler) restoreFile(w http.ResponseWriter, r *http.Request) {
	h.restoreItem(w, r, "File", h.store.RestoreDeletedFile)
}

func (h *Handler) restoreDirectory(w http.ResponseWriter, r *http.Request) {
	h.restoreItem(w, r, "Directory", h.store.RestoreDeletedFolder)
}

func (h *Handler) restoreItem(
	w http.ResponseWriter,
	r *http.Request,
	kind string,
	restore func(id uuid.UUID, actor string, newParentID *uuid.UUID) error,
) {
	var req model.RestoreItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp := model.RestoreItemResponse{
		ID:             req.RequestBody.ID,
		ResponseHeader: model.ResponseHeader{ReqID: req.RequestHeader.ReqID},
	}

	id, err := uuid.Parse(req.RequestBody.ID)
	if err != nil {
		resp.Ex = optString("Invalid item ID format")
		writeJSON(w, http.StatusOK, resp)
		return
	}

	var parentID *uuid.UUID
	if p := req.RequestBody.NewParentID; p != nil && *p != "" {
		parsed, err := uuid.Parse(*p)
		if err != nil {
			resp.Ex = optString("Invalid parent ID format")
			writeJSON(w, http.StatusOK, resp)
			return
		}
		parentID = &parsed
	}

	switch err := restore(id, systemActor, parentID); {
	case errors.Is(err, mockserver.ErrParentNotFound):
		resp.Ex = optString("Parent directory not found")
	case errors.Is(err, mockserver.ErrParentCycle):
		resp.Ex = optString("Cannot move directory into itself or its subdirectory")
	case err != nil:
		resp.Ex = optString(kind + " not found or not deleted")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) deletedItems(w http.ResponseWriter, _ *http.Request) {
	items := h.store.DeletedItems()
	writeJSON(w, http.StatusOK, model.DeletedItems{Count: len(items), Items: items})
}

func (h *Handler) recoverItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid item ID format")
		return
	}
	var req model.RecoverItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AdminUser == "" {
		writeMessage(w, http.StatusBadRequest, "AdminUser is required")
		return
	}

	itemType, ok := h.store.RecoverDeletedItem(id, req.AdminUser)
	if !ok {
		writeMessage(w, http.StatusNotFound, "Deleted item not found")
		return
	}
	writeJSON(w, http.StatusOK, model.RecoverItemResult{
		Success:    true,
		Message:    itemType + " restored successfully",
		ItemID:     id,
		ItemType:   itemType,
		RestoredBy: req.AdminUser,
		Timestamp:  time.Now().UTC(),
	})
}
