package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/grouponesailor/tier2/internal/collabclient"
	"github.com/grouponesailor/tier2/internal/domain/model"
)

// fakeDirectory считает обращения к каталогу пользователей.
type fakeDirectory struct {
	users      map[string]model.User
	userCalls  atomic.Int32
	groupCalls atomic.Int32
	release    chan struct{}
	err        error
}

func newFakeDirectory() *fakeDirectory {
	dept := "Operations"
	return &fakeDirectory{users: map[string]model.User{
		"jane.smith": {ID: "user2", Username: "jane.smith", DisplayName: "Jane Smith", Department: &dept,
			IsEnabled: true, AdGroups: []string{"Domain Users", "Knowledge Managers"}},
		"old.account": {ID: "user9", Username: "old.account", IsEnabled: false},
	}}
}

func (d *fakeDirectory) SearchUsers(_ context.Context, _ string) ([]model.User, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := []model.User{}
	for _, u := range d.users {
		out = append(out, u)
	}
	return out, nil
}

func (d *fakeDirectory) User(ctx context.Context, username string) (*model.User, error) {
	d.userCalls.Add(1)
	if d.release != nil {
		select {
		case <-d.release:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", collabclient.ErrUnavailable, ctx.Err())
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	u, ok := d.users[username]
	if !ok {
		return nil, &collabclient.StatusError{StatusCode: 404, Body: []byte(`{"message":"User not found"}`)}
	}
	return &u, nil
}

func (d *fakeDirectory) UserGroupNames(_ context.Context, username string) ([]string, error) {
	d.groupCalls.Add(1)
	u, ok := d.users[username]
	if !ok {
		return nil, &collabclient.StatusError{StatusCode: 404, Body: []byte(`{"message":"User not found"}`)}
	}
	return u.AdGroups, nil
}

func (d *fakeDirectory) UserPermissions(_ context.Context, username string, itemID uuid.UUID, required string) (*model.UserPermissions, error) {
	u, ok := d.users[username]
	if !ok {
		return nil, &collabclient.StatusError{StatusCode: 404, Body: []byte(`{"message":"User not found"}`)}
	}
	resp := &model.UserPermissions{Username: u.Username, DisplayName: u.DisplayName, ItemID: itemID, RequiredAccess: required}
	if required == "Read" {
		resp.HasAccess = true
	} else {
		reason := fmt.Sprintf("User has no %s access", required)
		resp.DenialReason = &reason
	}
	return resp, nil
}

func TestUserService_GetUserCached(t *testing.T) {
	dir := newFakeDirectory()
	svc := NewUserService(dir, 100, time.Minute, nil, testLogger())
	ctx := context.Background()

	for range 3 {
		u, err := svc.GetUser(ctx, "jane.smith")
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if u.DisplayName != "Jane Smith" {
			t.Errorf("DisplayName = %q", u.DisplayName)
		}
	}
	if n := dir.userCalls.Load(); n != 1 {
		t.Errorf("обращений к каталогу = %d, ожидалось 1", n)
	}
}

func TestUserService_GetUserNotFound(t *testing.T) {
	svc := NewUserService(newFakeDirectory(), 100, time.Minute, nil, testLogger())

	_, err := svc.GetUser(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
}

func TestUserService_UpstreamUnavailable(t *testing.T) {
	dir := newFakeDirectory()
	dir.err = fmt.Errorf("%w: connection refused", collabclient.ErrUnavailable)
	svc := NewUserService(dir, 100, time.Minute, nil, testLogger())

	if _, err := svc.GetUser(context.Background(), "jane.smith"); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("GetUser: ожидалась ErrUpstreamUnavailable, получено %v", err)
	}
	if _, err := svc.SearchUsers(context.Background(), ""); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("SearchUsers: ожидалась ErrUpstreamUnavailable, получено %v", err)
	}
}

func TestUserService_ConcurrentMissesCollapse(t *testing.T) {
	dir := newFakeDirectory()
	dir.release = make(chan struct{})
	svc := NewUserService(dir, 100, time.Minute, nil, testLogger())

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for range 10 {
		wg.Go(func() {
			_, err := svc.GetUser(context.Background(), "jane.smith")
			errs <- err
		})
	}

	// Ждём, пока первый запрос дойдёт до каталога, затем отпускаем его.
	deadline := time.Now().Add(2 * time.Second)
	for dir.userCalls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(dir.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("GetUser: %v", err)
		}
	}
	if n := dir.userCalls.Load(); n != 1 {
		t.Errorf("обращений к каталогу = %d, ожидалось 1", n)
	}
}

func TestUserService_CancelledCallerDoesNotFailOthers(t *testing.T) {
	dir := newFakeDirectory()
	dir.release = make(chan struct{})
	svc := NewUserService(dir, 100, time.Minute, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.GetUser(ctx, "jane.smith")
		firstErr <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for dir.userCalls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	secondErr := make(chan error, 1)
	go func() {
		u, err := svc.GetUser(context.Background(), "jane.smith")
		if err == nil && u.Username != "jane.smith" {
			err = fmt.Errorf("получен пользователь %q", u.Username)
		}
		secondErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	// Первый вызывающий уходит, пока запрос к каталогу ещё не завершён.
	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("первый вызов: ожидалась context.Canceled, получено %v", err)
	}

	close(dir.release)
	if err := <-secondErr; err != nil {
		t.Errorf("второй вызов завершился ошибкой после отмены первого: %v", err)
	}
	if n := dir.userCalls.Load(); n != 1 {
		t.Errorf("обращений к каталогу = %d, ожидалось 1", n)
	}
}

func TestUserService_SharedCache(t *testing.T) {
	shared, _ := newTestRedis(t, time.Minute)
	ctx := context.Background()

	first := newFakeDirectory()
	if _, err := NewUserService(first, 100, time.Minute, shared, testLogger()).ADGroups(ctx, "jane.smith"); err != nil {
		t.Fatal(err)
	}

	// Второй экземпляр получает группы из Redis без обращения к каталогу.
	second := newFakeDirectory()
	groups, err := NewUserService(second, 100, time.Minute, shared, testLogger()).ADGroups(ctx, "jane.smith")
	if err != nil {
		t.Fatal(err)
	}
	if second.groupCalls.Load() != 0 {
		t.Errorf("второй экземпляр обратился к каталогу %d раз", second.groupCalls.Load())
	}
	if groups.Count != 2 || groups.Groups[1] != "Knowledge Managers" {
		t.Errorf("группы = %+v", groups)
	}
}

func TestUserService_ActiveUsers(t *testing.T) {
	svc := NewUserService(newFakeDirectory(), 100, time.Minute, nil, testLogger())

	users, err := svc.ActiveUsers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].UserName != "jane.smith" {
		t.Errorf("активные пользователи = %+v", users)
	}
	if users[0].GroupCount != 2 {
		t.Errorf("GroupCount = %d, ожидалось 2", users[0].GroupCount)
	}
}

func TestUserService_CheckAccess(t *testing.T) {
	svc := NewUserService(newFakeDirectory(), 100, time.Minute, nil, testLogger())
	ctx := context.Background()
	item := uuid.New()

	res, err := svc.CheckAccess(ctx, "jane.smith", item, "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasAccess || res.RequestedPermission != "Read" || res.ItemID != item {
		t.Errorf("результат = %+v", res)
	}

	res, err = svc.CheckAccess(ctx, "jane.smith", item, "delete")
	if err != nil {
		t.Fatal(err)
	}
	if res.HasAccess || res.DenialReason == nil || res.RequestedPermission != "Delete" {
		t.Errorf("ожидался отказ с причиной: %+v", res)
	}

	if _, err := svc.CheckAccess(ctx, "jane.smith", item, "Own"); !errors.Is(err, ErrValidation) {
		t.Errorf("ожидалась ErrValidation, получено %v", err)
	}

	// Неизвестный пользователь — отказ, а не ошибка.
	res, err = svc.CheckAccess(ctx, "ghost", item, "Read")
	if err != nil {
		t.Fatalf("неизвестный пользователь: %v", err)
	}
	if res.HasAccess || res.DenialReason == nil || *res.DenialReason != "User not found" {
		t.Errorf("ожидался отказ User not found: %+v", res)
	}
	if res.UserName != "ghost" || res.DisplayName != "ghost" || res.ItemID != item {
		t.Errorf("результат = %+v", res)
	}
}

func TestUserService_ADSyncStatus(t *testing.T) {
	svc := NewUserService(newFakeDirectory(), 100, time.Minute, nil, testLogger())
	st := svc.ADSyncStatus()

	if st.Status != "completed successfully" || st.TotalUsers != 150 || st.SyncDuration != "5m0s" {
		t.Errorf("статус синхронизации = %+v", st)
	}
	if age := time.Since(st.LastSyncTime); age < 59*time.Minute || age > 61*time.Minute {
		t.Errorf("lastSyncTime отстоит на %v, ожидался 1h", age)
	}
}
