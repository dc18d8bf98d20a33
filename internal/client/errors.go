package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrServer       = errors.New("server error")
	ErrUnexpected   = errors.New("unexpected status")
)

// ForbiddenMessage - текст для пользователя при 403.
const ForbiddenMessage = "Only admins are allowed to perform this action"

// ErrPasswordMismatch - проверка регистрации до обращения к серверу.
var ErrPasswordMismatch = &APIError{
	Code:     "validation",
	Messages: []string{"Passwords do not match."},
	kind:     ErrValidation,
}

// APIError - ответ upstream с кодом не 2xx. Сообщения сервера сохраняются как есть.
type APIError struct {
	Status   int
	Code     string
	Messages []string
	kind     error
}

func (e *APIError) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if msg == "" {
		msg = http.StatusText(e.Status)
	}

	if e.Status == 0 {
		return fmt.Sprintf("api %s: %s", e.Code, msg)
	}

	return fmt.Sprintf("api %s (%d): %s", e.Code, e.Status, msg)
}

func (e *APIError) Unwrap() error { return e.kind }

// Message - первое сообщение (или текст статуса).
func (e *APIError) Message() string {
	if len(e.Messages) > 0 {
		return e.Messages[0]
	}

	return http.StatusText(e.Status)
}

func classify(status int) (string, error) {
	switch {
	case status == http.StatusBadRequest:
		return "validation", ErrValidation
	case status == http.StatusUnauthorized:
		return "unauthorized", ErrUnauthorized
	case status == http.StatusForbidden:
		return "forbidden", ErrForbidden
	case status == http.StatusNotFound:
		return "not_found", ErrNotFound
	case status >= http.StatusInternalServerError:
		return "server", ErrServer
	default:
		return "unexpected", ErrUnexpected
	}
}

// decodeError строит APIError из ответа. Тело читается не больше 1 MiB.
func decodeError(resp *http.Response) *APIError {
	code, kind := classify(resp.StatusCode)
	e := &APIError{Status: resp.StatusCode, Code: code, kind: kind}

	if resp.StatusCode == http.StatusForbidden {
		e.Messages = []string{ForbiddenMessage}
		return e
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		if s := strings.TrimSpace(string(raw)); s != "" && len(s) < 512 {
			e.Messages = []string{s}
		}
		return e
	}

	e.Messages = messages(body, "")
	return e
}

// messages разворачивает ошибки DRF:
//
//	{"detail": "..."}                     -> ["..."]
//	{"errors": {"email": ["taken"]}}      -> ["email: taken"]
//	{"password": ["too short", "common"]} -> ["password: too short", "password: common"]
func messages(v any, field string) []string {
	prefix := func(s string) string {
		if field == "" || field == "detail" || field == "error" || field == "errors" || field == "non_field_errors" || field == "message" {
			return s
		}
		return field + ": " + s
	}

	switch t := v.(type) {
	case string:
		return []string{prefix(t)}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, messages(item, field)...)
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			if k == "code" {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var out []string
		for _, k := range keys {
			out = append(out, messages(t[k], k)...)
		}
		return out
	case nil:
		return nil
	default:
		return []string{prefix(fmt.Sprint(t))}
	}
}
