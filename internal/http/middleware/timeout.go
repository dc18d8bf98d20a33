package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	logctx "github.com/pribylovaa/metrics-tracker/internal/pkg/log"
)

// Timeout ограничивает обработку запроса дашбордом. d <= 0 - no-op.
// Уже заданный дедлайн не трогаем. Ответ 504 формирует хендлер,
// здесь превышение только попадает в лог.
// Refresh токена идёт на своём контексте и этим дедлайном не прерывается.
func Timeout(d time.Duration) Middleware {
	if d <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, ok := ctx.Deadline(); !ok {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}

			next.ServeHTTP(w, r.WithContext(ctx))

			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				logctx.From(ctx).Warn("deadline_exceeded",
					slog.String("path", r.URL.Path),
					slog.Duration("limit", d),
				)
			}
		})
	}
}
