package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/grouponesailor/tier2/internal/collabclient"
	"github.com/grouponesailor/tier2/internal/domain/model"
	"github.com/grouponesailor/tier2/internal/repository"
)

// Сообщения поля ex для конвертных ответов.
const (
	exInvalidFileID    = "Invalid file ID format"
	exNotLocked        = "File not found or not locked"
	exUpstreamDown     = "Collaboration server is not available"
	exViewsUnavailable = "File views are not available"
	msgFileNotFound    = "File not found"
	msgVersionNotFound = "File or version not found"
	msgDeletedNotFound = "Deleted item not found"
	entityFile         = "File"
	entityDirectory    = "Directory"
	entityDeletedItem  = "DeletedItem"
	entityQueue        = "Queue"
)

// FileClient — файловые операции сервера коллаборации.
type FileClient interface {
	LockedFiles(ctx context.Context) (*model.LockedFiles, error)
	Unlock(ctx context.Context, req model.UnlockRequest) (*model.UnlockResponse, error)
	FileVersions(ctx context.Context, fileID uuid.UUID) (*model.FileVersions, error)
	RestoreVersion(ctx context.Context, fileID uuid.UUID, req model.RestoreVersionRequest) (*model.RestoreVersionResult, error)
	FilePermissions(ctx context.Context, fileID uuid.UUID) (*model.FilePermissions, error)
	ClassificationHistory(ctx context.Context, fileID uuid.UUID) (*model.ClassificationHistory, error)
	RestoreFile(ctx context.Context, req model.RestoreItemRequest) (*model.RestoreItemResponse, error)
	RestoreDirectory(ctx context.Context, req model.RestoreItemRequest) (*model.RestoreItemResponse, error)
	DeletedItems(ctx context.Context) (*model.DeletedItems, error)
	RecoverItem(ctx context.Context, itemID uuid.UUID, req model.RecoverItemRequest) (*model.RecoverItemResult, error)
	SearchFiles(ctx context.Context, req model.FilesSearchRequest, classification string) (int, []byte, error)
	UserPermissions(ctx context.Context, username string, itemID uuid.UUID, requiredAccess string) (*model.UserPermissions, error)
}

// FileService — операции администратора над файлами и корзиной.
type FileService struct {
	client FileClient
	views  repository.FileViewRepository
	audit  *AuditService
	logger *slog.Logger
}

// NewFileService создаёт файловый сервис.
func NewFileService(client FileClient, views repository.FileViewRepository, audit *AuditService, logger *slog.Logger) *FileService {
	return &FileService{
		client: client,
		views:  views,
		audit:  audit,
		logger: logger.With(slog.String("component", "files")),
	}
}

// newSignature возвращает 32 шестнадцатеричных символа (UUID без дефисов).
func newSignature() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// LockedFiles возвращает заблокированные файлы.
func (s *FileService) LockedFiles(ctx context.Context) (*model.LockedFiles, error) {
	out, err := s.client.LockedFiles(ctx)
	if err != nil {
		return nil, upstreamError(err, "")
	}
	return out, nil
}

// Unlock снимает блокировку с файла. Результат всегда возвращается
// в конверте: при отказе locked=true и заполнено ex.
func (s *FileService) Unlock(ctx context.Context, caller Caller, req model.UnlockRequest) *model.UnlockResponse {
	id := req.RequestBody.ID
	resp := &model.UnlockResponse{
		ID:             id,
		Locked:         true,
		ResponseHeader: model.ResponseHeader{ReqID: req.RequestHeader.ReqID},
	}
	if _, err := uuid.Parse(id); err != nil {
		resp.Ex = optional(exInvalidFileID)
		return resp
	}

	up, err := s.client.Unlock(ctx, req)
	switch {
	case errors.Is(err, collabclient.ErrUnavailable):
		resp.Ex = optional(exUpstreamDown)
	case err != nil, up.Ex != nil, up.Locked:
		resp.Ex = optional(exNotLocked)
	default:
		resp.Locked = false
		resp.Signature = newSignature()
		resp.Etag = newSignature()
	}

	comments := ""
	if resp.Ex != nil {
		comments = *resp.Ex
	}
	s.audit.Record(ctx, caller.audit(auditEntry{
		Action:     "UnlockFile",
		EntityType: entityFile,
		EntityID:   id,
		LogType:    model.AuditUnlock,
		Category:   model.CategoryFileOperation,
		RiskLevel:  model.RiskMedium,
		OldValues:  map[string]any{"locked": true},
		NewValues:  map[string]any{"locked": resp.Locked},
		Comments:   comments,
	}))
	s.logger.Info("Запрос разблокировки файла",
		slog.String("file_id", id),
		slog.Bool("unlocked", !resp.Locked),
		slog.String("actor", caller.Actor()),
	)
	return resp
}

// Versions возвращает версии файла.
func (s *FileService) Versions(ctx context.Context, fileID uuid.UUID) (*model.FileVersions, error) {
	out, err := s.client.FileVersions(ctx, fileID)
	if err != nil {
		return nil, upstreamError(err, msgFileNotFound)
	}
	return out, nil
}

// RestoreVersion восстанавливает файл до указанной версии.
func (s *FileService) RestoreVersion(ctx context.Context, caller Caller, fileID uuid.UUID, req model.FileVersionRestoreRequest) (*model.RestoreVersionResult, error) {
	justification := strings.TrimSpace(req.Justification)
	if justification == "" {
		return nil, fmt.Errorf("%w: Justification is required", ErrValidation)
	}
	if req.VersionID < 1 {
		return nil, fmt.Errorf("%w: versionId must be positive", ErrValidation)
	}

	up, err := s.client.RestoreVersion(ctx, fileID, model.RestoreVersionRequest{
		VersionNumber: req.VersionID,
		AdminUser:     caller.Actor(),
		Comments:      &justification,
	})
	if err != nil {
		if errors.Is(err, collabclient.ErrUnavailable) {
			return nil, upstreamError(err, "")
		}
		var se *collabclient.StatusError
		if errors.As(err, &se) && se.StatusCode >= 500 {
			return nil, upstreamError(err, "")
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, msgVersionNotFound)
	}

	s.audit.Record(ctx, caller.audit(auditEntry{
		Action:     "RestoreFileVersion",
		EntityType: entityFile,
		EntityID:   fileID.String(),
		LogType:    model.AuditVersionRestore,
		Category:   model.CategoryFileOperation,
		RiskLevel:  model.RiskHigh,
		NewValues:  map[string]any{"versionNumber": req.VersionID, "createBackup": req.CreateBackup},
		Comments:   justification,
	}))

	msg := up.Message
	if msg == "" {
		msg = fmt.Sprintf("File restored to version %d", req.VersionID)
	}
	return &model.RestoreVersionResult{
		Success:           true,
		Message:           msg,
		FileID:            fileID,
		RestoredToVersion: req.VersionID,
		Timestamp:         time.Now().UTC(),
	}, nil
}

// Permissions возвращает права на файл.
func (s *FileService) Permissions(ctx context.Context, fileID uuid.UUID) (*model.FilePermissions, error) {
	out, err := s.client.FilePermissions(ctx, fileID)
	if err != nil {
		return nil, upstreamError(err, msgFileNotFound)
	}
	return out, nil
}

// CheckAccess проверяет доступ пользователя к файлу.
func (s *FileService) CheckAccess(ctx context.Context, fileID uuid.UUID, username, requiredAccess string) (*model.UserPermissions, error) {
	required, err := requiredLevel(requiredAccess)
	if err != nil {
		return nil, err
	}
	out, err := s.client.UserPermissions(ctx, username, fileID, required)
	if collabclient.IsNotFound(err) {
		return unknownUserPermissions(username, fileID, required), nil
	}
	if err != nil {
		return nil, upstreamError(err, "")
	}
	return out, nil
}

// ClassificationHistory возвращает историю классификации файла.
func (s *FileService) ClassificationHistory(ctx context.Context, fileID uuid.UUID) (*model.ClassificationHistory, error) {
	out, err := s.client.ClassificationHistory(ctx, fileID)
	if err != nil {
		return nil, upstreamError(err, msgFileNotFound)
	}
	return out, nil
}

// Search передаёт запрос поиска серверу коллаборации и возвращает
// его статус и тело без изменений.
func (s *FileService) Search(ctx context.Context, req model.FilesSearchRequest, classification string) (int, []byte, error) {
	status, body, err := s.client.SearchFiles(ctx, req, classification)
	if err != nil {
		return 0, nil, upstreamError(err, "")
	}
	s.logger.Debug("Поиск файлов",
		slog.String("q", req.Q),
		slog.String("classification", classification),
		slog.Int("status", status),
		slog.Int64("hits", gjson.GetBytes(body, "hits.#").Int()),
	)
	return status, body, nil
}

// RestoreFile восстанавливает удалённый файл.
func (s *FileService) RestoreFile(ctx context.Context, caller Caller, req model.RestoreItemRequest) *model.RestoreItemResponse {
	return s.restoreItem(ctx, caller, entityFile, s.client.RestoreFile, req)
}

// RestoreDirectory восстанавливает удалённый каталог.
func (s *FileService) RestoreDirectory(ctx context.Context, caller Caller, req model.RestoreItemRequest) *model.RestoreItemResponse {
	return s.restoreItem(ctx, caller, entityDirectory, s.client.RestoreDirectory, req)
}

func (s *FileService) restoreItem(
	ctx context.Context,
	caller Caller,
	entity string,
	restore func(context.Context, model.RestoreItemRequest) (*model.RestoreItemResponse, error),
	req model.RestoreItemRequest,
) *model.RestoreItemResponse {
	resp := &model.RestoreItemResponse{
		ID:             req.RequestBody.ID,
		ResponseHeader: model.ResponseHeader{ReqID: req.RequestHeader.ReqID},
	}

	up, err := restore(ctx, req)
	switch {
	case errors.Is(err, collabclient.ErrUnavailable):
		resp.Ex = optional(exUpstreamDown)
	case err != nil:
		var se *collabclient.StatusError
		msg := entity + " not found or not deleted"
		if errors.As(err, &se) && se.Message() != "" {
			msg = se.Message()
		}
		resp.Ex = optional(msg)
	case up.Ex != nil:
		resp.Ex = up.Ex
	}

	comments := ""
	if resp.Ex != nil {
		comments = *resp.Ex
	}
	s.audit.Record(ctx, caller.audit(auditEntry{
		Action:     "Restore" + entity,
		EntityType: entity,
		EntityID:   req.RequestBody.ID,
		LogType:    model.AuditRecovery,
		Category:   model.CategoryDataRecovery,
		RiskLevel:  model.RiskHigh,
		NewValues: map[string]any{
			"override":    req.RequestBody.Override,
			"newParentId": req.RequestBody.NewParentID,
			"restored":    resp.Ex == nil,
		},
		Comments: comments,
	}))
	return resp
}

// DeletedItems возвращает содержимое корзины.
func (s *FileService) DeletedItems(ctx context.Context) (*model.DeletedItems, error) {
	out, err := s.client.DeletedItems(ctx)
	if err != nil {
		return nil, upstreamError(err, "")
	}
	return out, nil
}

// RecoverItem восстанавливает элемент из корзины.
func (s *FileService) RecoverItem(ctx context.Context, caller Caller, itemID uuid.UUID, justification *string) (*model.RecoverItemResult, error) {
	out, err := s.client.RecoverItem(ctx, itemID, model.RecoverItemRequest{
		AdminUser:     caller.Actor(),
		Justification: justification,
	})
	if err != nil {
		return nil, upstreamError(err, msgDeletedNotFound)
	}

	comments := ""
	if justification != nil {
		comments = *justification
	}
	s.audit.Record(ctx, caller.audit(auditEntry{
		Action:     "RecoverDeletedItem",
		EntityType: entityDeletedItem,
		EntityID:   itemID.String(),
		LogType:    model.AuditRecovery,
		Category:   model.CategoryDataRecovery,
		RiskLevel:  model.RiskHigh,
		NewValues:  map[string]any{"itemType": out.ItemType},
		Comments:   comments,
	}))
	return out, nil
}

// Views возвращает статистику просмотров файла. Ошибка чтения
// возвращается в поле ex.
func (s *FileService) Views(ctx context.Context, fileID string) *model.FileViews {
	resp := &model.FileViews{
		ItemID:         fileID,
		Views:          []model.FileView{},
		ResponseHeader: model.ResponseHeader{ReqID: uuid.NewString()},
	}
	views, err := s.views.ListByItem(ctx, fileID)
	if err != nil {
		s.logger.Error("Ошибка чтения просмотров файла",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		resp.Ex = optional(exViewsUnavailable)
		return resp
	}
	resp.Views = views
	return resp
}

// RecordView фиксирует просмотр файла пользователем.
func (s *FileService) RecordView(ctx context.Context, fileID, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: userId is required", ErrValidation)
	}
	return s.views.Record(ctx, fileID, userID, time.Now().UTC())
}
