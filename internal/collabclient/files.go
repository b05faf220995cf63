package collabclient

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/grouponesailor/tier2/internal/domain/model"
)

// LockedFiles возвращает заблокированные файлы (GET /api/files/locked).
func (c *Client) LockedFiles(ctx context.Context) (*model.LockedFiles, error) {
	var out model.LockedFiles
	if err := c.callJSON(ctx, "locked_files", http.MethodGet, "/api/files/locked", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Unlock разблокирует файл (POST /api/files/unlock).
func (c *Client) Unlock(ctx context.Context, req model.UnlockRequest) (*model.UnlockResponse, error) {
	var out model.UnlockResponse
	if err := c.callJSON(ctx, "unlock", http.MethodPost, "/api/files/unlock", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FileVersions возвращает версии файла.
func (c *Client) FileVersions(ctx context.Context, fileID uuid.UUID) (*model.FileVersions, error) {
	var out model.FileVersions
	path := "/api/files/" + fileID.String() + "/versions"
	if err := c.callJSON(ctx, "file_versions", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RestoreVersion восстанавливает версию файла.
func (c *Client) RestoreVersion(ctx context.Context, fileID uuid.UUID, req model.RestoreVersionRequest) (*model.RestoreVersionResult, error) {
	var out model.RestoreVersionResult
	path := "/api/files/" + fileID.String() + "/restore-version"
	if err := c.callJSON(ctx, "restore_version", http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FilePermissions возвращает права на файл.
func (c *Client) FilePermissions(ctx context.Context, fileID uuid.UUID) (*model.FilePermissions, error) {
	var out model.FilePermissions
	path := "/api/files/" + fileID.String() + "/permissions"
	if err := c.callJSON(ctx, "file_permissions", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClassificationHistory возвращает историю классификации файла.
func (c *Client) ClassificationHistory(ctx context.Context, fileID uuid.UUID) (*model.ClassificationHistory, error) {
	var out model.ClassificationHistory
	path := "/api/files/" + fileID.String() + "/classification-history"
	if err := c.callJSON(ctx, "classification_history", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RestoreFile восстанавливает файл (PUT /api/files/restore).
func (c *Client) RestoreFile(ctx context.Context, req model.RestoreItemRequest) (*model.RestoreItemResponse, error) {
	var out model.RestoreItemResponse
	if err := c.callJSON(ctx, "restore_file", http.MethodPut, "/api/files/restore", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RestoreDirectory восстанавливает каталог (PUT /api/directory/restore).
func (c *Client) RestoreDirectory(ctx context.Context, req model.RestoreItemRequest) (*model.RestoreItemResponse, error) {
	var out model.RestoreItemResponse
	if err := c.callJSON(ctx, "restore_directory", http.MethodPut, "/api/directory/restore", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletedItems возвращает содержимое корзины.
func (c *Client) DeletedItems(ctx context.Context) (*model.DeletedItems, error) {
	var out model.DeletedItems
	if err := c.callJSON(ctx, "deleted_items", http.MethodGet, "/api/deleted-items", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecoverItem восстанавливает удалённый файл или папку.
func (c *Client) RecoverItem(ctx context.Context, itemID uuid.UUID, req model.RecoverItemRequest) (*model.RecoverItemResult, error) {
	var out model.RecoverItemResult
	path := "/api/deleted-items/" + itemID.String() + "/restore"
	if err := c.callJSON(ctx, "recover_item", http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchFiles выполняет поиск (POST /files) и возвращает ответ как есть:
// статус и тело передаются вызывающему без проверки.
func (c *Client) SearchFiles(ctx context.Context, req model.FilesSearchRequest, classification string) (int, []byte, error) {
	path := "/files"
	if classification != "" {
		path += "?classification=" + url.QueryEscape(classification)
	}

	status, data, err := c.do(ctx, "search_files", http.MethodPost, path, req)
	if err != nil {
		return 0, nil, err
	}
	if status == http.StatusOK {
		c.logger.Debug("Поиск файлов выполнен",
			slog.Int64("hits", gjson.GetBytes(data, "hits.#").Int()),
		)
	}
	return status, data, nil
}
