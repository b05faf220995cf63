package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/tidwall/gjson"

	apierrors "github.com/grouponesailor/tier2/internal/api/errors"
	"github.com/grouponesailor/tier2/internal/api/openapi"
)

func TestMetricsMiddleware_RoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware())
	r.Get("/api/files/{fileId}/versions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/files/{fileId}/versions", "200")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b", "c"} {
		req := httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/versions", nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Errorf("счётчик вырос на %v, ожидалось 3", got)
	}

	unmatched := httpRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404")
	before = testutil.ToFloat64(unmatched)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	if got := testutil.ToFloat64(unmatched) - before; got != 1 {
		t.Errorf("несопоставленный запрос: счётчик вырос на %v", got)
	}
}

func TestRequestLogger_PassesStatus(t *testing.T) {
	h := RequestLogger(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot || rec.Body.String() != "short" {
		t.Errorf("ответ изменён middleware: %d %q", rec.Code, rec.Body.String())
	}
}

func TestRequestLogger_Tier2Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierrors.Forbidden(w, "Недостаточно прав")
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/queues/error/purge", nil)
	req = req.WithContext(WithClaims(req.Context(), &AuthClaims{Subject: "u1", PreferredUsername: "joe.viewer"}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	if gjson.Get(line, "error_code").String() != "FORBIDDEN" {
		t.Errorf("нет error_code: %s", line)
	}
	if gjson.Get(line, "user").String() != "joe.viewer" || gjson.Get(line, "level").String() != "WARN" {
		t.Errorf("запись журнала = %s", line)
	}
}

func TestCORS(t *testing.T) {
	var called bool
	h := CORS([]string{"http://localhost:4200"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("preflight разрешённого origin", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodOptions, "/api/file/restore", nil)
		req.Header.Set("Origin", "http://localhost:4200")
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)
		req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent || called {
			t.Errorf("статус %d, обработчик вызван: %v", rec.Code, called)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:4200" {
			t.Error("нет Access-Control-Allow-Origin")
		}
		if !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "PUT") {
			t.Errorf("методы = %q", rec.Header().Get("Access-Control-Allow-Methods"))
		}
		if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
			t.Error("для явного origin credentials должны быть разрешены")
		}
		if rec.Header().Get("Access-Control-Max-Age") != "600" {
			t.Errorf("max-age = %q", rec.Header().Get("Access-Control-Max-Age"))
		}
	})

	t.Run("preflight чужого origin", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodOptions, "/api/queues", nil)
		req.Header.Set("Origin", "http://evil.test")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if called || rec.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Errorf("обработчик вызван: %v, заголовки %v", called, rec.Header())
		}
	})

	t.Run("обычный запрос", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/api/queues", nil)
		req.Header.Set("Origin", "http://localhost:4200")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if !called || rec.Header().Get("Access-Control-Allow-Origin") == "" {
			t.Error("запрос должен дойти до обработчика с заголовком CORS")
		}
	})
}

func TestCORS_WildcardWithoutCredentials(t *testing.T) {
	h := CORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, method := range []string{http.MethodGet, http.MethodOptions} {
		req := httptest.NewRequest(method, "/api/queues", nil)
		req.Header.Set("Origin", "https://evil.example")
		if method == http.MethodOptions {
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" && got != "https://evil.example" {
			t.Errorf("%s: Access-Control-Allow-Origin = %q", method, got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
			t.Errorf("%s: Access-Control-Allow-Credentials = %q при \"*\"", method, got)
		}
	}
}

func newTestValidator(t *testing.T) func(http.Handler) http.Handler {
	t.Helper()
	doc, err := openapi.Load(context.Background())
	if err != nil {
		t.Fatalf("загрузка OpenAPI: %v", err)
	}
	v, err := NewRequestValidator(doc, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return v.Middleware()
}

func TestRequestValidator(t *testing.T) {
	var called bool
	h := newTestValidator(t)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"валидная разблокировка", http.MethodPost, "/api/files/unlock",
			`{"requestHeader":{"reqId":"r1","callingSystemId":1},"requestBody":{"id":"abc"}}`, http.StatusOK},
		{"без requestBody", http.MethodPost, "/api/files/unlock", `{}`, http.StatusBadRequest},
		{"itemId не число", http.MethodGet, "/api/midur/getItemPermissions/abc", "", http.StatusBadRequest},
		{"itemId число", http.MethodGet, "/api/midur/getItemPermissions/42?reqId=r", "", http.StatusOK},
		{"pageSize вне диапазона", http.MethodGet, "/api/audit-logs?pageSize=1000", "", http.StatusBadRequest},
		{"page вне диапазона", http.MethodGet, "/api/audit-logs?page=9223372036854775807", "", http.StatusBadRequest},
		{"перенос без очереди", http.MethodPost, "/api/queues/transfer", `{"sourceQueueName":"error"}`, http.StatusBadRequest},
		{"неописанный маршрут", http.MethodGet, "/health/live", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("статус %d, ожидался %d, тело: %s", rec.Code, tt.want, rec.Body.String())
			}
			if called != (tt.want == http.StatusOK) {
				t.Errorf("обработчик вызван: %v", called)
			}
			if tt.want == http.StatusBadRequest && !strings.Contains(rec.Body.String(), "VALIDATION_ERROR") {
				t.Errorf("ожидался код VALIDATION_ERROR: %s", rec.Body.String())
			}
		})
	}
}

func TestRequestValidator_BodyStillReadable(t *testing.T) {
	var body string
	h := newTestValidator(t)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
	}))

	payload := `{"userId":"john.doe"}`
	req := httptest.NewRequest(http.MethodPost, "/api/file/views/id/f-1", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if body != payload {
		t.Errorf("тело после проверки = %q, ожидалось %q", body, payload)
	}
}
