// errors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает ошибку сервисного слоя (sentinel-значения service,
// *service.ValidationError, ошибки chat и контекста), на выход даёт:
//   - корректный HTTP-статус;
//   - тело {success:false, code, message, request_id} без утечки деталей.
//
// Ошибки зависимостей (хранилище, кэш, внешние сервисы) всегда отдаются как 500/internal.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/go-career-advisor/internal/chat"
	"github.com/pribylovaa/go-career-advisor/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrInvalidBody — тело запроса не разобрано (битый JSON, неизвестные поля, лишние данные).
	ErrInvalidBody = stderrors.New("invalid request body")
	// ErrMethodNotAllowed — маршрут есть, метода нет.
	ErrMethodNotAllowed = stderrors.New("method not allowed")
)

// ErrorResponse — единый формат ответа об ошибке.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// messageError подменяет текст ответа, сохраняя исходную ошибку для маппинга статуса.
type messageError struct {
	err error
	msg string
}

func (e *messageError) Error() string { return e.err.Error() }
func (e *messageError) Unwrap() error { return e.err }

// WithMessage задаёт сообщение для клиента вместо стандартного для данного статуса.
func WithMessage(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &messageError{err: err, msg: msg}
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal, чтобы не маскировать баг;
//   - *service.ValidationError — 400 с сообщением из ошибки;
//   - известные sentinel-ошибки — по таблице ниже;
//   - прочее — 500/internal.
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := classify(err)

	var me *messageError
	if stderrors.As(err, &me) && status != http.StatusInternalServerError {
		msg = me.msg
	}

	return status, ErrorResponse{Success: false, Code: code, Message: msg}
}

// classify — таблица маппинга:
//   - ValidationError, ErrInvalidBody, chat.ErrEmptyMessage -> 400
//   - ErrInvalidCredentials -> 401 "Invalid credentials"
//   - ErrUnauthorized -> 401 (истёкший и поддельный токен неразличимы)
//   - ErrForbidden -> 403
//   - ErrNotFound -> 404, ErrMethodNotAllowed -> 405
//   - ErrUnavailable -> 503 (зависимость не сконфигурирована)
//   - context.Canceled -> 499, context.DeadlineExceeded -> 504
//   - прочее -> 500
func classify(err error) (int, string, string) {
	if err == nil {
		return http.StatusInternalServerError, "internal", "Internal server error"
	}

	var ve *service.ValidationError
	switch {
	case stderrors.As(err, &ve):
		return http.StatusBadRequest, "invalid_argument", ve.Message
	case stderrors.Is(err, ErrInvalidBody):
		return http.StatusBadRequest, "invalid_argument", "Invalid request body"
	case stderrors.Is(err, chat.ErrEmptyMessage):
		return http.StatusBadRequest, "invalid_argument", "Message is required and must be a non-empty string"
	case stderrors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "unauthenticated", "Invalid credentials"
	case stderrors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthenticated", "Unauthorized"
	case stderrors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "permission_denied", "Forbidden"
	case stderrors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found", "Not found"
	case stderrors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed"
	case stderrors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable", "Service unavailable"
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "Request canceled"
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "Request timed out"
	default:
		return http.StatusInternalServerError, "internal", "Internal server error"
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
