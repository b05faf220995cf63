// Пакет errors — ответы с ошибками Tier2 API.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Код ошибки дублируется в заголовке X-Tier2-Error-Code: по нему журнал
// запросов различает отказы валидации, авторизации и сервера коллаборации.
package errors

import (
	"encoding/json"
	"net/http"
)

// Code — машинный код ошибки, описанный в OpenAPI документе.
type Code string

const (
	CodeValidationError     Code = "VALIDATION_ERROR"
	CodeNotFound            Code = "NOT_FOUND"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeConflict            Code = "CONFLICT"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeInternalError       Code = "INTERNAL_ERROR"
)

// HeaderErrorCode — заголовок ответа с кодом ошибки.
const HeaderErrorCode = "X-Tier2-Error-Code"

var statusByCode = map[Code]int{
	CodeValidationError:     http.StatusBadRequest,
	CodeNotFound:            http.StatusNotFound,
	CodeUnauthorized:        http.StatusUnauthorized,
	CodeForbidden:           http.StatusForbidden,
	CodeConflict:            http.StatusConflict,
	CodeUpstreamUnavailable: http.StatusBadGateway,
	CodeInternalError:       http.StatusInternalServerError,
}

// Сообщения для пустого message.
var defaultMessages = map[Code]string{
	CodeValidationError:     "Некорректные входные данные",
	CodeNotFound:            "Ресурс не найден",
	CodeUnauthorized:        "Требуется аутентификация",
	CodeForbidden:           "Недостаточно прав",
	CodeConflict:            "Операция отклонена",
	CodeUpstreamUnavailable: "Сервер коллаборации недоступен",
	CodeInternalError:       "Внутренняя ошибка сервера",
}

// Status возвращает HTTP-статус кода. Неизвестный код — 500.
func (c Code) Status() int {
	if s, ok := statusByCode[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Write записывает ответ ошибки; статус определяется кодом.
func Write(w http.ResponseWriter, code Code, message string) {
	if message == "" {
		message = defaultMessages[code]
	}
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set(HeaderErrorCode, string(code))
	w.WriteHeader(code.Status())
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{Code: code, Message: message},
	})
}

func ValidationError(w http.ResponseWriter, message string) {
	Write(w, CodeValidationError, message)
}

func NotFound(w http.ResponseWriter, message string) {
	Write(w, CodeNotFound, message)
}

func Unauthorized(w http.ResponseWriter, message string) {
	Write(w, CodeUnauthorized, message)
}

func Forbidden(w http.ResponseWriter, message string) {
	Write(w, CodeForbidden, message)
}

// Conflict — операция над очередью отклонена политикой (например, очистка).
func Conflict(w http.ResponseWriter, message string) {
	Write(w, CodeConflict, message)
}

// UpstreamUnavailable — сервер коллаборации недоступен или ответил 5xx.
func UpstreamUnavailable(w http.ResponseWriter, message string) {
	Write(w, CodeUpstreamUnavailable, message)
}

// InternalError — детали ошибки клиенту не передаются.
func InternalError(w http.ResponseWriter) {
	Write(w, CodeInternalError, "")
}
