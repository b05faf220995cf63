package service

import (
	"context"
	"errors"
	"testing"
)

func TestMidurService_ItemPermissions(t *testing.T) {
	client, _ := newCollab(t)
	svc := NewMidurService(client, testLogger())
	ctx := context.Background()

	if _, err := svc.ItemPermissions(ctx, "abc", "r-1", 1); !errors.Is(err, ErrValidation) {
		t.Errorf("нечисловой itemId: ожидалась ErrValidation, получено %v", err)
	}

	resp, err := svc.ItemPermissions(ctx, "42", "r-1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Ex != nil || resp.ResponseBody.ItemID != 42 || resp.ResponseHeader.ReqID != "r-1" {
		t.Errorf("ответ = %+v", resp)
	}
	if len(resp.ResponseBody.DirectAdItems) != 1 || resp.ResponseBody.DirectAdItems[0].AdName != "Shimon" {
		t.Errorf("directAdItems = %+v", resp.ResponseBody.DirectAdItems)
	}
}

func TestMidurService_UpstreamDown(t *testing.T) {
	svc := NewMidurService(newDownCollab(t), testLogger())
	ctx := context.Background()

	resp, err := svc.ItemPermissions(ctx, "7", "r-2", 1)
	if err != nil {
		t.Fatalf("сбой сервера коллаборации должен вернуться в ex: %v", err)
	}
	if resp.Ex == nil || *resp.Ex != "Collaboration server is not available" {
		t.Errorf("ex = %v", resp.Ex)
	}
	if resp.ResponseBody.ItemID != 7 || resp.ResponseHeader.ReqID != "r-2" {
		t.Errorf("ответ = %+v", resp)
	}

	storage := svc.StorageID(ctx, "abc")
	if storage.Ex == nil || storage.ResponseBody.ItemID != "abc" {
		t.Errorf("storage = %+v", storage)
	}
	if storage.ResponseHeader.ReqID != "abc" {
		t.Errorf("reqId в конверте ошибки = %q, ожидалось abc", storage.ResponseHeader.ReqID)
	}
}

func TestMidurService_StorageID(t *testing.T) {
	client, _ := newCollab(t)
	svc := NewMidurService(client, testLogger())

	resp := svc.StorageID(context.Background(), "123")
	if resp.Ex != nil || resp.ResponseBody.StorageID != `\\server\share\123.txt` || resp.ResponseBody.StorageType != 9 {
		t.Errorf("ответ = %+v", resp)
	}
	if resp.ResponseHeader.ReqID != "123" {
		t.Errorf("reqId = %q, ожидалось 123", resp.ResponseHeader.ReqID)
	}
}
