package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/grouponesailor/tier2/internal/collabclient"
	"github.com/grouponesailor/tier2/internal/domain/model"
	"github.com/grouponesailor/tier2/internal/mockapi"
	"github.com/grouponesailor/tier2/internal/mockserver"
)

var (
	lockedFileID  = uuid.MustParse("10000000-0000-0000-0000-000000000001")
	deletedFileID = uuid.MustParse("10000000-0000-0000-0000-000000000002")
	oldFolderID   = uuid.MustParse("00000000-0000-0000-0000-000000000004")
)

var testCaller = Caller{UserName: "jane.admin", IPAddress: "10.0.0.7:51234", UserAgent: "tier2-test"}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newCollab поднимает mock-сервер коллаборации на встроенных данных.
func newCollab(t *testing.T) (*collabclient.Client, *mockserver.Store) {
	t.Helper()
	seed, err := mockserver.LoadSeed("")
	if err != nil {
		t.Fatal(err)
	}
	store := mockserver.NewStore(seed, nil, testLogger())
	srv := httptest.NewServer(mockapi.New(store, nil, testLogger()).Routes())
	t.Cleanup(srv.Close)

	client, err := collabclient.New(srv.URL, "", 5*time.Second, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return client, store
}

// newDownCollab возвращает клиента к остановленному серверу.
func newDownCollab(t *testing.T) *collabclient.Client {
	t.Helper()
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	client, err := collabclient.New(url, "", time.Second, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return client
}

// fakeAuditRepo — журнал аудита в памяти.
type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
	fail    bool
	filter  model.AuditFilter
}

func (r *fakeAuditRepo) Create(_ context.Context, e *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("база недоступна")
	}
	e.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeAuditRepo) Search(_ context.Context, f model.AuditFilter) ([]model.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filter = f
	start := (f.Page - 1) * f.PageSize
	if start >= len(r.entries) {
		return []model.AuditLog{}, nil
	}
	end := min(start+f.PageSize, len(r.entries))
	return append([]model.AuditLog(nil), r.entries[start:end]...), nil
}

func (r *fakeAuditRepo) Count(_ context.Context, _ model.AuditFilter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries), nil
}

func (r *fakeAuditRepo) last(t *testing.T) model.AuditLog {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		t.Fatal("журнал аудита пуст")
	}
	return r.entries[len(r.entries)-1]
}

func (r *fakeAuditRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// fakeViews — статистика просмотров в памяти.
type fakeViews struct {
	mu    sync.Mutex
	views map[string]map[string]*model.FileView
	fail  bool
}

func newFakeViews() *fakeViews {
	return &fakeViews{views: map[string]map[string]*model.FileView{}}
}

func (v *fakeViews) Record(_ context.Context, itemID, userID string, at time.Time) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.fail {
		return errors.New("база недоступна")
	}
	byUser, ok := v.views[itemID]
	if !ok {
		byUser = map[string]*model.FileView{}
		v.views[itemID] = byUser
	}
	if fv, ok := byUser[userID]; ok {
		fv.ViewCounter++
		fv.LastViewDate = at
		return nil
	}
	byUser[userID] = &model.FileView{UserID: userID, ViewCounter: 1, FirstViewDate: at, LastViewDate: at}
	return nil
}

func (v *fakeViews) ListByItem(_ context.Context, itemID string) ([]model.FileView, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.fail {
		return nil, errors.New("база недоступна")
	}
	out := []model.FileView{}
	for _, fv := range v.views[itemID] {
		out = append(out, *fv)
	}
	return out, nil
}

// fakeJournal — журнал операций над очередями в памяти.
type fakeJournal struct {
	mu     sync.Mutex
	ops    []model.QueueOperation
	audits []model.AuditLog
	filter model.QueueOperationFilter
}

func (j *fakeJournal) Record(_ context.Context, op *model.QueueOperation, audit *model.AuditLog) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	op.ID = int64(len(j.ops) + 1)
	j.ops = append(j.ops, *op)
	if audit != nil {
		j.audits = append(j.audits, *audit)
	}
	return nil
}

func (j *fakeJournal) List(_ context.Context, f model.QueueOperationFilter) ([]model.QueueOperation, int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.filter = f
	return append([]model.QueueOperation(nil), j.ops...), len(j.ops), nil
}

func (j *fakeJournal) lastOp(t *testing.T) model.QueueOperation {
	t.Helper()
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.ops) == 0 {
		t.Fatal("журнал операций пуст")
	}
	return j.ops[len(j.ops)-1]
}
