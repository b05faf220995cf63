package mockapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/grouponesailor/tier2/internal/domain/model"
	"github.com/grouponesailor/tier2/internal/mockserver"
)

// Параметры фиксированного курсора поиска.
const samplePitID = "aaa=efgrwhfrwf"

var sampleSort = []int64{2658136474, 478034234238}

// sampleHit — постоянное первое совпадение в выдаче поиска.
func sampleHit(query string) model.FileHit {
	updated := time.Date(2025, 6, 3, 12, 12, 13, 0, time.UTC)
	name := "fwqded"
	if strings.Contains(strings.ToLower(query), "shoki") {
		name = "shoki_document"
	}
	return model.FileHit{Metadata: model.FileMetadata{
		AuthorizationLevel:  "FULLY_ATHORIZED",
		Extension:           "pptx",
		UpdateDate:          updated,
		UpdateID:            "",
		FullNamePath:        "/app/im/aaa/bbb/ccc.pptx",
		OwnerID:             "0111111",
		Type:                1,
		FullPath:            "/app/im/aaa/bbb/ccc.pptx",
		LastOperationDate:   time.Date(2025, 6, 3, 12, 12, 13, 770816000, time.UTC),
		ParentID:            "222",
		LastOperationByUser: "0222222",
		ParentName:          "Shoki Hahamod",
		Size:                277882,
		LastOperation:       "file_saved",
		Name:                name,
		Attributes:          []any{},
		ID:                  "111",
		Status:              1,
		CreateDate:          updated,
	}}
}

// fileHit переводит файл хранилища в совпадение поиска.
func (h *Handler) fileHit(f mockserver.File) model.FileHit {
	meta := model.FileMetadata{
		AuthorizationLevel:  "FULLY_ATHORIZED",
		Extension:           f.Extension,
		UpdateDate:          f.UpdatedAt(),
		FullNamePath:        f.Path,
		OwnerID:             f.CreatedBy,
		Type:                1,
		FullPath:            f.Path,
		LastOperationDate:   f.UpdatedAt(),
		LastOperationByUser: f.CreatedBy,
		Size:                f.Size,
		LastOperation:       "file_saved",
		Name:                f.Name,
		Attributes:          []any{},
		ID:                  f.ID.String(),
		Status:              1,
		CreateDate:          f.CreatedAt,
	}
	for _, v := range f.Versions {
		if v.IsCurrent {
			meta.UpdateID = v.VersionID.String()
			meta.LastOperationByUser = v.CreatedBy
		}
	}
	if f.ParentID != nil {
		meta.ParentID = f.ParentID.String()
		if folder, ok := h.store.Folder(*f.ParentID); ok {
			meta.ParentName = folder.Name
		}
	}
	return model.FileHit{Metadata: meta}
}

func (h *Handler) searchFiles(w http.ResponseWriter, r *http.Request) {
	var req model.FilesSearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	classification := r.URL.Query().Get("classification")

	files := h.store.SearchFiles(req.Q, classification)
	resp := model.FilesSearchResponse{
		Paging: model.PagingInfo{PitID: samplePitID, Sort: sampleSort},
		Hits:   make([]model.FileHit, 0, len(files)+1),
	}
	resp.Hits = append(resp.Hits, sampleHit(req.Q))
	for _, f := range files {
		resp.Hits = append(resp.Hits, h.fileHit(f))
	}

	h.logger.Debug("Поиск файлов",
		slog.String("q", req.Q),
		slog.String("classification", classification),
		slog.Int("hits", len(resp.Hits)),
	)
	writeJSON(w, http.StatusOK, resp)
}

// itemPermissions отдаёт постоянный набор субъектов AD для любого элемента.
func (h *Handler) itemPermissions(w http.ResponseWriter, r *http.Request) {
	reqID := r.URL.Query().Get("reqId")
	itemID, err := strconv.Atoi(chi.URLParam(r, "itemId"))
	if err != nil {
		writeJSON(w, http.StatusOK, model.ItemPermissionsResponse{
			ResponseHeader: model.ResponseHeader{ReqID: reqID},
			Ex:             optString("Invalid item ID format"),
		})
		return
	}

	writeJSON(w, http.StatusOK, model.ItemPermissionsResponse{
		ResponseBody: model.ItemPermissionsBody{
			ItemID:          itemID,
			DirectAdItems:   []model.AdItem{{AdID: "088888", AdName: "Shimon", AccessMethods: []int{1, 2, 3}}},
			IsInherite:      true,
			InheriteAdItems: []model.AdItem{{AdID: "0777777", AdName: "Ted", AccessMethods: []int{1, 2, 3, 8}}},
		},
		ResponseHeader: model.ResponseHeader{ReqID: reqID},
	})
}

// storageFileType — тип хранилища «файловый ресурс».
const storageFileType = 9

func (h *Handler) storageID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, model.StorageIDResponse{
		ResponseBody: model.StorageIDBody{
			ItemID:      id,
			StorageID:   `\\server\share\` + id + ".txt",
			StorageType: storageFileType,
		},
		ResponseHeader: model.ResponseHeader{ReqID: id},
	})
}
