package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/grouponesailor/tier2/internal/domain/model"
)

var hex32 = regexp.MustCompile(`^[0-9a-f]{32}$`)

func newTestFileService(t *testing.T) (*FileService, *fakeAuditRepo, *fakeViews) {
	t.Helper()
	client, _ := newCollab(t)
	repo := &fakeAuditRepo{}
	views := newFakeViews()
	return NewFileService(client, views, NewAuditService(repo, testLogger()), testLogger()), repo, views
}

func unlockRequest(id string) model.UnlockRequest {
	var req model.UnlockRequest
	req.RequestHeader = model.RequestHeader{ReqID: "req-42", CallingSystemID: 7}
	req.RequestBody.ID = id
	return req
}

func TestFileService_UnlockInvalidID(t *testing.T) {
	svc, repo, _ := newTestFileService(t)

	resp := svc.Unlock(context.Background(), testCaller, unlockRequest("not-a-uuid"))
	if !resp.Locked || resp.Ex == nil || *resp.Ex != "Invalid file ID format" {
		t.Errorf("ответ = %+v", resp)
	}
	if resp.ResponseHeader.ReqID != "req-42" {
		t.Errorf("reqId = %q, ожидался req-42", resp.ResponseHeader.ReqID)
	}
	if repo.count() != 0 {
		t.Error("некорректный идентификатор не должен попадать в аудит")
	}
}

func TestFileService_Unlock(t *testing.T) {
	svc, repo, _ := newTestFileService(t)
	ctx := context.Background()

	resp := svc.Unlock(ctx, testCaller, unlockRequest(lockedFileID.String()))
	if resp.Locked || resp.Ex != nil {
		t.Fatalf("ожидалась успешная разблокировка: %+v", resp)
	}
	if !hex32.MatchString(resp.Signature) || !hex32.MatchString(resp.Etag) {
		t.Errorf("signature=%q etag=%q, ожидались 32 hex-символа", resp.Signature, resp.Etag)
	}
	if resp.Signature == resp.Etag {
		t.Error("signature и etag должны различаться")
	}

	entry := repo.last(t)
	if entry.LogType != model.AuditUnlock || entry.Category != model.CategoryFileOperation || entry.RiskLevel != model.RiskMedium {
		t.Errorf("запись аудита = %+v", entry)
	}
	if entry.UserName != "jane.admin" || entry.IPAddress == nil || *entry.UserAgent != "tier2-test" {
		t.Errorf("инициатор в аудите = %+v", entry)
	}

	// Повторная разблокировка: файл уже не заблокирован.
	resp = svc.Unlock(ctx, testCaller, unlockRequest(lockedFileID.String()))
	if !resp.Locked || resp.Ex == nil || *resp.Ex != "File not found or not locked" {
		t.Errorf("повторная разблокировка: %+v", resp)
	}
}

func TestFileService_UnlockUpstreamDown(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewFileService(newDownCollab(t), newFakeViews(), NewAuditService(repo, testLogger()), testLogger())

	resp := svc.Unlock(context.Background(), testCaller, unlockRequest(lockedFileID.String()))
	if !resp.Locked || resp.Ex == nil || *resp.Ex != "Collaboration server is not available" {
		t.Errorf("ответ = %+v", resp)
	}
	if _, err := svc.LockedFiles(context.Background()); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("ожидалась ErrUpstreamUnavailable, получено %v", err)
	}
}

func TestFileService_VersionsAndRestore(t *testing.T) {
	svc, repo, _ := newTestFileService(t)
	ctx := context.Background()

	versions, err := svc.Versions(ctx, lockedFileID)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions.Versions) != 2 || versions.Versions[0].VersionNumber != 2 {
		t.Errorf("версии = %+v", versions.Versions)
	}

	if _, err := svc.Versions(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("неизвестный файл: ожидалась ErrNotFound, получено %v", err)
	}

	_, err = svc.RestoreVersion(ctx, testCaller, lockedFileID, model.FileVersionRestoreRequest{VersionID: 1})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("без обоснования: ожидалась ErrValidation, получено %v", err)
	}

	_, err = svc.RestoreVersion(ctx, testCaller, lockedFileID, model.FileVersionRestoreRequest{VersionID: 9, Justification: "rollback"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("несуществующая версия: ожидалась ErrNotFound, получено %v", err)
	}

	res, err := svc.RestoreVersion(ctx, testCaller, lockedFileID, model.FileVersionRestoreRequest{VersionID: 1, Justification: "rollback"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.RestoredToVersion != 1 || res.FileID != lockedFileID {
		t.Errorf("результат = %+v", res)
	}
	entry := repo.last(t)
	if entry.LogType != model.AuditVersionRestore || entry.RiskLevel != model.RiskHigh || *entry.Comments != "rollback" {
		t.Errorf("запись аудита = %+v", entry)
	}

	versions, _ = svc.Versions(ctx, lockedFileID)
	if versions.Versions[0].CreatedBy != "jane.admin" {
		t.Errorf("новая версия создана %q, ожидался jane.admin", versions.Versions[0].CreatedBy)
	}
}

func TestFileService_PermissionsHistoryAccess(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	ctx := context.Background()

	perms, err := svc.Permissions(ctx, lockedFileID)
	if err != nil {
		t.Fatal(err)
	}
	if len(perms.Permissions) == 0 {
		t.Error("ожидались права на файл")
	}

	history, err := svc.ClassificationHistory(ctx, lockedFileID)
	if err != nil {
		t.Fatal(err)
	}
	if history.CurrentClassification != "Internal" || len(history.History) != 1 {
		t.Errorf("история = %+v", history)
	}

	access, err := svc.CheckAccess(ctx, lockedFileID, "john.doe", "delete")
	if err != nil {
		t.Fatal(err)
	}
	if !access.HasAccess || access.RequiredAccess != "Delete" {
		t.Errorf("проверка доступа = %+v", access)
	}

	denied, err := svc.CheckAccess(ctx, lockedFileID, "ghost", "")
	if err != nil {
		t.Fatalf("неизвестный пользователь: %v", err)
	}
	if denied.HasAccess || denied.DenialReason == nil || *denied.DenialReason != "User not found" {
		t.Errorf("неизвестный пользователь: ожидался отказ, получено %+v", denied)
	}
	if denied.Username != "ghost" || denied.RequiredAccess != "Read" || denied.ItemID != lockedFileID {
		t.Errorf("неизвестный пользователь: %+v", denied)
	}
}

func TestFileService_Search(t *testing.T) {
	svc, _, _ := newTestFileService(t)

	status, body, err := svc.Search(context.Background(), model.FilesSearchRequest{Q: "budget"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if status != 200 {
		t.Errorf("status = %d", status)
	}
	if gjson.GetBytes(body, "hits.#").Int() < 1 {
		t.Errorf("ожидались совпадения: %s", body)
	}
}

func TestFileService_RestoreItems(t *testing.T) {
	svc, repo, _ := newTestFileService(t)
	ctx := context.Background()

	var req model.RestoreItemRequest
	req.RequestHeader.ReqID = "r-1"
	req.RequestBody.ID = oldFolderID.String()

	resp := svc.RestoreDirectory(ctx, testCaller, req)
	if resp.Ex != nil {
		t.Fatalf("восстановление каталога: ex=%q", *resp.Ex)
	}
	if resp.ID != oldFolderID.String() || resp.ResponseHeader.ReqID != "r-1" {
		t.Errorf("ответ = %+v", resp)
	}
	entry := repo.last(t)
	if entry.LogType != model.AuditRecovery || entry.Category != model.CategoryDataRecovery || entry.EntityType != "Directory" {
		t.Errorf("запись аудита = %+v", entry)
	}

	req.RequestBody.ID = deletedFileID.String()
	if resp := svc.RestoreFile(ctx, testCaller, req); resp.Ex != nil {
		t.Fatalf("восстановление файла: ex=%q", *resp.Ex)
	}

	// Повторно файл уже не удалён.
	resp = svc.RestoreFile(ctx, testCaller, req)
	if resp.Ex == nil {
		t.Error("повторное восстановление должно вернуть ex")
	}

	req.RequestBody.ID = "bad-id"
	if resp := svc.RestoreFile(ctx, testCaller, req); resp.Ex == nil || *resp.Ex != "Invalid item ID format" {
		t.Errorf("некорректный идентификатор: %+v", resp)
	}
}

func TestFileService_DeletedAndRecover(t *testing.T) {
	svc, repo, _ := newTestFileService(t)
	ctx := context.Background()

	deleted, err := svc.DeletedItems(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if deleted.Count != 2 {
		t.Errorf("в корзине %d элементов, ожидалось 2", deleted.Count)
	}

	just := "restore request #17"
	res, err := svc.RecoverItem(ctx, testCaller, deletedFileID, &just)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.RestoredBy != "jane.admin" {
		t.Errorf("результат = %+v", res)
	}
	if entry := repo.last(t); entry.LogType != model.AuditRecovery || *entry.Comments != just {
		t.Errorf("запись аудита = %+v", entry)
	}

	if _, err := svc.RecoverItem(ctx, testCaller, deletedFileID, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторное восстановление: ожидалась ErrNotFound, получено %v", err)
	}
}

func TestFileService_Views(t *testing.T) {
	svc, _, views := newTestFileService(t)
	ctx := context.Background()

	if err := svc.RecordView(ctx, "42", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("пустой userId: ожидалась ErrValidation, получено %v", err)
	}
	for range 2 {
		if err := svc.RecordView(ctx, "42", "john.doe"); err != nil {
			t.Fatal(err)
		}
	}

	resp := svc.Views(ctx, "42")
	if resp.Ex != nil || len(resp.Views) != 1 || resp.Views[0].ViewCounter != 2 {
		t.Errorf("просмотры = %+v", resp)
	}
	if _, err := uuid.Parse(resp.ResponseHeader.ReqID); err != nil {
		t.Errorf("reqId должен быть UUID: %q", resp.ResponseHeader.ReqID)
	}

	views.fail = true
	resp = svc.Views(ctx, "42")
	if resp.Ex == nil || len(resp.Views) != 0 {
		t.Errorf("ошибка чтения должна вернуться в ex: %+v", resp)
	}
}

func TestFileService_AuditFailureDoesNotFail(t *testing.T) {
	svc, repo, _ := newTestFileService(t)
	repo.fail = true

	resp := svc.Unlock(context.Background(), testCaller, unlockRequest(lockedFileID.String()))
	if resp.Locked {
		t.Errorf("сбой аудита не должен отменять разблокировку: %+v", resp)
	}
}
