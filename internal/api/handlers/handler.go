// Пакет handlers — HTTP-обработчики Tier2 API.
// Обработчики разбирают параметры, вызывают сервисный слой и
// сопоставляют sentinel-ошибки сервисов с кодами ответа.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/grouponesailor/tier2/internal/api/errors"
	"github.com/grouponesailor/tier2/internal/api/middleware"
	"github.com/grouponesailor/tier2/internal/service"
)

// maxBodySize — ограничение размера тела запроса.
const maxBodySize = 1 << 20

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса в dst. При ошибке ответ 400 уже записан.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(dst); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректное тело запроса: %v", err))
		return false
	}
	return true
}

// callerFrom формирует инициатора операции из JWT и параметров запроса.
func callerFrom(r *http.Request) service.Caller {
	return service.Caller{
		UserName:  middleware.ActorFromContext(r.Context()),
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
}

// pathUUID разбирает UUID из параметра пути. При ошибке ответ 400 уже записан.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (openapi_types.UUID, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный параметр %s: %v", name, err))
		return id, false
	}
	return id, true
}

// queryParam разбирает необязательный query-параметр в dst (указатель на указатель).
// При ошибке ответ 400 уже записан.
func queryParam(w http.ResponseWriter, r *http.Request, name string, dst any) bool {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dst); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный параметр %s: %v", name, err))
		return false
	}
	return true
}

// writeServiceError сопоставляет ошибку сервисного слоя с ответом.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrRejected):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrUpstreamUnavailable):
		logger.Warn("Сервер коллаборации недоступен", slog.String("error", err.Error()))
		apierrors.UpstreamUnavailable(w, err.Error())
	default:
		logger.Error("Внутренняя ошибка", slog.String("error", err.Error()))
		apierrors.InternalError(w)
	}
}
