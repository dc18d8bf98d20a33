package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	logctx "github.com/pribylovaa/metrics-tracker/internal/pkg/log"
)

// RequestID обеспечивает X-Request-Id у исходящего запроса:
// заголовок вызывающего, иначе id из контекста, иначе новый uuid.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(HeaderRequestID) != "" {
				return next.RoundTrip(r)
			}

			id := RequestIDFrom(r.Context())
			if id == "" {
				id = uuid.NewString()
			}

			r2 := r.Clone(WithRequestID(r.Context(), id))
			r2.Header.Set(HeaderRequestID, id)
			return next.RoundTrip(r2)
		})
	}
}

// UserAgent выставляет User-Agent, если вызывающий его не задал. Пустой ua - no-op.
func UserAgent(ua string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if ua == "" {
			return next
		}

		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get("User-Agent") != "" {
				return next.RoundTrip(r)
			}

			r2 := r.Clone(r.Context())
			r2.Header.Set("User-Agent", ua)
			return next.RoundTrip(r2)
		})
	}
}

// Timeout навешивает таймаут d, если у контекста ещё нет дедлайна.
// Контекст отменяется при закрытии тела ответа, а не при возврате RoundTrip.
func Timeout(d time.Duration) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if d <= 0 {
			return next
		}

		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if _, ok := r.Context().Deadline(); ok {
				return next.RoundTrip(r)
			}

			ctx, cancel := context.WithTimeout(r.Context(), d)
			resp, err := next.RoundTrip(r.WithContext(ctx))
			if err != nil {
				cancel()
				return nil, err
			}

			resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		})
	}
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// Logging пишет одну запись на исходящий вызов: msg="upstream",
// method, path, status, dur. Заголовки и тела не логируются.
func Logging(base *slog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			l := base
			if l == nil {
				l = logctx.From(r.Context())
			}

			if rid := r.Header.Get(HeaderRequestID); rid != "" {
				l = l.With(slog.String("request_id", rid))
			}

			start := time.Now()
			resp, err := next.RoundTrip(r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Duration("dur", time.Since(start)),
			}

			lvl := slog.LevelInfo
			switch {
			case err != nil:
				lvl = slog.LevelWarn
				attrs = append(attrs, slog.String("err", err.Error()))
			case resp.StatusCode >= http.StatusInternalServerError:
				lvl = slog.LevelWarn
				attrs = append(attrs, slog.Int("status", resp.StatusCode))
			default:
				attrs = append(attrs, slog.Int("status", resp.StatusCode))
			}

			l.LogAttrs(r.Context(), lvl, "upstream", attrs...)
			return resp, err
		})
	}
}
