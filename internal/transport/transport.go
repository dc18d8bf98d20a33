// transport - клиентская цепочка http.RoundTripper для REST API трекера:
// подстановка Bearer, обновление токена на 401 и один повтор запроса,
// request id, user-agent, таймаут и логирование исходящих вызовов.
package transport

import (
	"context"
	"net/http"
)

// Middleware оборачивает RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc - адаптер функции к http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain применяет мидлвары в порядке перечисления: первый - внешний.
func Chain(rt http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}

	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}

	return rt
}

type ctxKey string

const ctxRequestID ctxKey = "request_id"

// HeaderRequestID - заголовок корреляции запросов.
const HeaderRequestID = "X-Request-Id"

// WithRequestID кладёт request id в контекст; RequestID() перенесёт его в заголовок.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestID, id)
}

// RequestIDFrom достаёт request id из контекста ("" если нет).
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxRequestID).(string)
	return id
}
