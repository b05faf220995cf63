package server

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/tidwall/gjson"

	"github.com/grouponesailor/tier2/internal/api/handlers"
	"github.com/grouponesailor/tier2/internal/api/middleware"
	"github.com/grouponesailor/tier2/internal/api/openapi"
	"github.com/grouponesailor/tier2/internal/collabclient"
	"github.com/grouponesailor/tier2/internal/domain/model"
	"github.com/grouponesailor/tier2/internal/mockapi"
	"github.com/grouponesailor/tier2/internal/mockserver"
	"github.com/grouponesailor/tier2/internal/queuebackend"
	"github.com/grouponesailor/tier2/internal/service"
)

const (
	testIssuer   = "tier2-test"
	lockedFileID = "10000000-0000-0000-0000-000000000001"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// memAudit — журнал аудита в памяти.
type memAudit struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (m *memAudit) Create(_ context.Context, e *model.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memAudit) Search(_ context.Context, _ model.AuditFilter) ([]model.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.AuditLog, 0, len(m.entries))
	for i := len(m.entries) - 1; i >= 0; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *memAudit) Count(_ context.Context, _ model.AuditFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

// memViews — статистика просмотров в памяти.
type memViews struct {
	mu    sync.Mutex
	views map[string]map[string]*model.FileView
}

func (m *memViews) Record(_ context.Context, itemID, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.views == nil {
		m.views = map[string]map[string]*model.FileView{}
	}
	if m.views[itemID] == nil {
		m.views[itemID] = map[string]*model.FileView{}
	}
	v, ok := m.views[itemID][userID]
	if !ok {
		v = &model.FileView{UserID: userID, FirstViewDate: at}
		m.views[itemID][userID] = v
	}
	v.ViewCounter++
	v.LastViewDate = at
	return nil
}

func (m *memViews) ListByItem(_ context.Context, itemID string) ([]model.FileView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.FileView{}
	for _, v := range m.views[itemID] {
		out = append(out, *v)
	}
	return out, nil
}

// memJournal — журнал операций над очередями в памяти.
type memJournal struct {
	mu    sync.Mutex
	ops   []model.QueueOperation
	audit *memAudit
}

func (m *memJournal) Record(ctx context.Context, op *model.QueueOperation, audit *model.AuditLog) error {
	m.mu.Lock()
	op.ID = int64(len(m.ops) + 1)
	m.ops = append(m.ops, *op)
	m.mu.Unlock()
	if audit != nil {
		return m.audit.Create(ctx, audit)
	}
	return nil
}

func (m *memJournal) List(_ context.Context, f model.QueueOperationFilter) ([]model.QueueOperation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.QueueOperation{}
	for i := len(m.ops) - 1; i >= 0; i-- {
		if f.QueueName == "" || m.ops[i].QueueName == f.QueueName {
			out = append(out, m.ops[i])
		}
	}
	return out, len(out), nil
}

type testEnv struct {
	router http.Handler
	audit  *memAudit
	tokens *mockapi.TokenIssuer
}

// newTestEnv собирает Tier2 API поверх mock-сервера коллаборации.
// withAuth включает JWT с группами tier2-admins и tier2-viewers.
func newTestEnv(t *testing.T, withAuth bool) *testEnv {
	t.Helper()
	logger := testLogger()

	seed, err := mockserver.LoadSeed("")
	if err != nil {
		t.Fatal(err)
	}
	collabSrv := httptest.NewServer(mockapi.New(mockserver.NewStore(seed, nil, logger), nil, logger).Routes())
	t.Cleanup(collabSrv.Close)

	client, err := collabclient.New(collabSrv.URL, "", 5*time.Second, logger)
	if err != nil {
		t.Fatal(err)
	}

	audit := &memAudit{}
	auditSvc := service.NewAuditService(audit, logger)
	journal := &memJournal{audit: audit}

	doc, err := openapi.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	validator, err := middleware.NewRequestValidator(doc, logger)
	if err != nil {
		t.Fatal(err)
	}

	env := &testEnv{audit: audit}
	opts := RouterOptions{CORSAllowedOrigins: []string{"http://localhost:4200"}, Validator: validator}

	if withAuth {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatal(err)
		}
		env.tokens, err = mockapi.NewTokenIssuer(key, testIssuer, logger)
		if err != nil {
			t.Fatal(err)
		}
		kf, err := keyfunc.NewJWKSetJSON(json.RawMessage(env.tokens.JWKS()))
		if err != nil {
			t.Fatal(err)
		}
		opts.JWTAuth = middleware.NewJWTAuthWithKeyfunc(kf, testIssuer, []string{"tier2-admins"}, []string{"tier2-viewers"}, logger)
	}

	env.router = NewRouter(Handlers{
		Health: handlers.NewHealthHandler(nil, client, "test"),
		Files:  handlers.NewFilesHandler(service.NewFileService(client, &memViews{}, auditSvc, logger), logger),
		Midur:  handlers.NewMidurHandler(service.NewMidurService(client, logger), logger),
		Queues: handlers.NewQueuesHandler(service.NewQueueService(queuebackend.NewCollabBackend(client, logger), journal, logger), logger),
		Users:  handlers.NewUsersHandler(service.NewUserService(client, 100, time.Minute, nil, logger), logger),
		Audit:  handlers.NewAuditHandler(auditSvc, logger),
	}, opts, logger)
	return env
}

func (e *testEnv) token(t *testing.T, username string, groups ...string) string {
	t.Helper()
	tok, err := e.tokens.Issue(username, username, groups, nil, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (e *testEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	env := newTestEnv(t, false)

	if rec := env.do(http.MethodGet, "/health/live", "", ""); rec.Code != http.StatusOK {
		t.Errorf("/health/live: код = %d", rec.Code)
	}
	// PostgreSQL не подключён — готовность fail.
	rec := env.do(http.MethodGet, "/health/ready", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/health/ready: код = %d, ожидалось 503", rec.Code)
	}
	if got := gjson.Get(rec.Body.String(), "checks.collab_server.status").String(); got != "ok" {
		t.Errorf("collab_server = %q, ожидалось ok", got)
	}
	if rec := env.do(http.MethodGet, "/openapi.yaml", "", ""); !strings.Contains(rec.Body.String(), "Tier2 Management API") {
		t.Error("/openapi.yaml не отдаёт документ")
	}
}

func TestRouter_UsersAndFiles(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(http.MethodGet, "/api/users/john.doe", "", "")
	if rec.Code != http.StatusOK || gjson.Get(rec.Body.String(), "username").String() != "john.doe" {
		t.Errorf("GET user: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/api/users/nobody", "", "")
	if rec.Code != http.StatusNotFound || gjson.Get(rec.Body.String(), "error.code").String() != "NOT_FOUND" {
		t.Errorf("GET unknown user: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/api/users/active", "", "")
	if rec.Code != http.StatusOK || gjson.Get(rec.Body.String(), "#").Int() != 3 {
		t.Errorf("GET active: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/api/files/locked", "", "")
	if rec.Code != http.StatusOK || gjson.Get(rec.Body.String(), "count").Int() < 1 {
		t.Errorf("GET locked: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodPost, "/api/files/unlock",
		`{"requestHeader":{"reqId":"r-1","callingSystemId":7},"requestBody":{"id":"`+lockedFileID+`"}}`, "")
	if rec.Code != http.StatusOK || gjson.Get(rec.Body.String(), "locked").Bool() {
		t.Errorf("POST unlock: %d %s", rec.Code, rec.Body.String())
	}
	if len(gjson.Get(rec.Body.String(), "signature").String()) != 32 {
		t.Errorf("signature: %s", rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/api/audit-logs?page=1&pageSize=10", "", "")
	if rec.Code != http.StatusOK || gjson.Get(rec.Body.String(), "totalCount").Int() != 1 {
		t.Errorf("GET audit-logs: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_CheckAccessUnknownUser(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(http.MethodGet, "/api/users/ghost/check-access/"+lockedFileID+"?requiredAccess=Read", "", "")
	body := rec.Body.String()
	if rec.Code != http.StatusOK {
		t.Fatalf("код = %d, ожидалось 200: %s", rec.Code, body)
	}
	if gjson.Get(body, "hasAccess").Bool() || gjson.Get(body, "denialReason").String() != "User not found" {
		t.Errorf("ожидался отказ User not found: %s", body)
	}
	if gjson.Get(body, "userName").String() != "ghost" || gjson.Get(body, "itemId").String() != lockedFileID {
		t.Errorf("тело = %s", body)
	}

	rec = env.do(http.MethodGet, "/api/files/"+lockedFileID+"/check-access/ghost", "", "")
	body = rec.Body.String()
	if rec.Code != http.StatusOK || gjson.Get(body, "hasAccess").Bool() {
		t.Errorf("files check-access: %d %s", rec.Code, body)
	}
	if gjson.Get(body, "denialReason").String() != "User not found" || gjson.Get(body, "requiredAccess").String() != "Read" {
		t.Errorf("files check-access: %s", body)
	}
}

func TestRouter_StorageIDEchoesReqID(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(http.MethodGet, "/api/maintenance/getStorageId/id/item-5", "", "")
	if rec.Code != http.StatusOK || gjson.Get(rec.Body.String(), "responseHeader.reqId").String() != "item-5" {
		t.Errorf("getStorageId: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_FileViews(t *testing.T) {
	env := newTestEnv(t, false)

	if rec := env.do(http.MethodPost, "/api/file/views/id/F-1", `{"userId":"john.doe"}`, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("POST view: %d %s", rec.Code, rec.Body.String())
	}
	env.do(http.MethodPost, "/api/file/views/id/F-1", `{"userId":"john.doe"}`, "")

	rec := env.do(http.MethodGet, "/api/file/views/id/F-1", "", "")
	body := rec.Body.String()
	if rec.Code != http.StatusOK || gjson.Get(body, "views.0.viewCounter").Int() != 2 {
		t.Errorf("GET views: %d %s", rec.Code, body)
	}
	if gjson.Get(body, "responseHeader.reqId").String() == "" {
		t.Errorf("нет reqId: %s", body)
	}
}

func TestRouter_Validation(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name, method, path, body string
	}{
		{"fileId не UUID", http.MethodGet, "/api/files/not-a-uuid/versions", ""},
		{"itemId не число", http.MethodGet, "/api/midur/getItemPermissions/abc", ""},
		{"transfer без имён очередей", http.MethodPost, "/api/queues/transfer", `{"justification":"x"}`},
		{"restore-version без обоснования", http.MethodPost, "/api/files/" + lockedFileID + "/restore-version", `{"versionId":1}`},
		{"просмотр без userId", http.MethodPost, "/api/file/views/id/F-1", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.body, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("код = %d, ожидалось 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouter_Queues(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(http.MethodGet, "/api/queues/error/count", "", "")
	if gjson.Get(rec.Body.String(), "messageCount").Int() != 2 {
		t.Errorf("error count: %s", rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/api/queues/error/messages/preview?count=1", "", "")
	if rec.Code != http.StatusOK || gjson.Get(rec.Body.String(), "messages.#").Int() != 1 {
		t.Errorf("preview: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodPost, "/api/queues/error/purge", `{"justification":"cleanup","confirmPurge":true}`, "")
	if rec.Code != http.StatusBadRequest || gjson.Get(rec.Body.String(), "success").Bool() {
		t.Errorf("purge: %d %s", rec.Code, rec.Body.String())
	}
	if msg := gjson.Get(rec.Body.String(), "message").String(); msg != "Purge operation was rejected for security reasons" {
		t.Errorf("purge message = %q", msg)
	}

	rec = env.do(http.MethodGet, "/api/queues/operations?queueName=error", "", "")
	if rec.Code != http.StatusOK || gjson.Get(rec.Body.String(), "totalCount").Int() != 2 {
		t.Errorf("operations: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_NotFoundRoute(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(http.MethodGet, "/api/unknown", "", "")
	if rec.Code != http.StatusNotFound || gjson.Get(rec.Body.String(), "error.code").String() != "NOT_FOUND" {
		t.Errorf("код = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	env := newTestEnv(t, true)

	req := httptest.NewRequest(http.MethodOptions, "/api/queues", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("код = %d, ожидалось 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:4200" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRouter_Auth(t *testing.T) {
	env := newTestEnv(t, true)
	admin := env.token(t, "jane.admin", "tier2-admins")
	viewer := env.token(t, "joe.viewer", "tier2-viewers")
	outsider := env.token(t, "eve", "Domain Users")
	unlock := `{"requestBody":{"id":"` + lockedFileID + `"}}`

	tests := []struct {
		name, method, path, body, token string
		want                            int
	}{
		{"health без токена", http.MethodGet, "/health", "", "", http.StatusOK},
		{"metrics без токена", http.MethodGet, "/metrics", "", "", http.StatusOK},
		{"API без токена", http.MethodGet, "/api/queues", "", "", http.StatusUnauthorized},
		{"чтение readonly", http.MethodGet, "/api/queues", "", viewer, http.StatusOK},
		{"чтение без роли", http.MethodGet, "/api/queues", "", outsider, http.StatusForbidden},
		{"unlock readonly", http.MethodPost, "/api/files/unlock", unlock, viewer, http.StatusForbidden},
		{"unlock admin", http.MethodPost, "/api/files/unlock", unlock, admin, http.StatusOK},
		{"поиск readonly", http.MethodPost, "/files", `{"q":""}`, viewer, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.body, tt.token)
			if rec.Code != tt.want {
				t.Errorf("код = %d, ожидалось %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	// Инициатор операции берётся из токена.
	if got := env.audit.entries[len(env.audit.entries)-1].UserName; got != "jane.admin" {
		t.Errorf("userName в аудите = %q, ожидалось jane.admin", got)
	}
}
