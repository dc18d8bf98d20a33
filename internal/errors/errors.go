// errors стандартизирует ответы об ошибках HTTP-слоя дашборда.
// На вход принимает ошибку клиента upstream, менеджера сессии или
// контекста, на выход даёт:
//   - корректный HTTP-статус;
//   - короткий стабильный code и безопасное message;
//   - сообщения валидации сервера как есть (details).
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"net/url"

	"github.com/pribylovaa/metrics-tracker/internal/client"
	"github.com/pribylovaa/metrics-tracker/internal/session"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError - единый формат для фронта.
type APIError struct {
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Details   []string `json:"details,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// ErrorResponse - корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

func resp(code, msg string, details ...string) ErrorResponse {
	return ErrorResponse{Error: APIError{Code: code, Message: msg, Details: details}}
}

// ToHTTP конвертирует ошибку в HTTP-статус и ответ для фронта.
//
// Поведение:
//   - err == nil - программная ошибка вызова: 500/internal;
//   - session.ErrSessionExpired - 401/session_expired (хендлер уводит на логин);
//   - *client.APIError - по статусу upstream (400, 401, 403, 404; 5xx -> 502);
//   - отмена/дедлайн контекста - 499/504;
//   - сетевая ошибка до upstream - 502/upstream_unreachable;
//   - прочее - 500/internal без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, resp("internal", "internal error")
	}

	if stderrors.Is(err, session.ErrSessionExpired) {
		return http.StatusUnauthorized, resp("session_expired", "session expired, please log in again")
	}

	var apiErr *client.APIError
	if stderrors.As(err, &apiErr) {
		return fromAPI(apiErr)
	}

	switch {
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, resp("canceled", "canceled")
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, resp("deadline_exceeded", "deadline exceeded")
	}

	var urlErr *url.Error
	var netErr net.Error
	if stderrors.As(err, &urlErr) || stderrors.As(err, &netErr) {
		return http.StatusBadGateway, resp("upstream_unreachable", "upstream unreachable")
	}

	return http.StatusInternalServerError, resp("internal", "internal error")
}

func fromAPI(e *client.APIError) (int, ErrorResponse) {
	switch {
	case stderrors.Is(e, client.ErrValidation):
		return http.StatusBadRequest, resp("validation", e.Message(), e.Messages...)
	case stderrors.Is(e, client.ErrUnauthorized):
		return http.StatusUnauthorized, resp("unauthenticated", e.Message())
	case stderrors.Is(e, client.ErrForbidden):
		return http.StatusForbidden, resp("permission_denied", client.ForbiddenMessage)
	case stderrors.Is(e, client.ErrNotFound):
		return http.StatusNotFound, resp("not_found", "not found")
	case stderrors.Is(e, client.ErrServer):
		return http.StatusBadGateway, resp("upstream_error", "upstream error")
	default:
		return http.StatusBadGateway, resp("upstream_unexpected", e.Message())
	}
}

// WriteError - хелпер для HTTP-хендлеров.
// Пишет статус и тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		body.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// BadRequest - 400 для ошибок разбора входа самого дашборда.
func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	body := resp("invalid_argument", msg)
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		body.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(body)
}
