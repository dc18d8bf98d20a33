// guard - локальная проверка доступа к маршрутам дашборда.
// Сервер не опрашивается: решение принимается по access-токену из хранилища.
package guard

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/metrics-tracker/internal/credstore"
	"github.com/pribylovaa/metrics-tracker/internal/tokencodec"
)

type Guard struct {
	store credstore.Store
	now   func() time.Time
	log   *slog.Logger
}

type Option func(*Guard)

// WithClock подменяет источник времени (тесты).
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.log = l
		}
	}
}

func New(store credstore.Store, opts ...Option) *Guard {
	g := &Guard{store: store, now: time.Now, log: slog.Default()}
	for _, o := range opts {
		o(g)
	}

	return g
}

// Authenticated - access есть, разбирается и не истёк.
// Истёкший access удаляется из хранилища (refresh остаётся).
func (g *Guard) Authenticated(ctx context.Context) bool {
	const op = "guard.Authenticated"

	access, ok, err := g.store.Get(ctx, credstore.KeyAccess)
	if err != nil {
		g.log.Warn("store_read_failed", slog.String("op", op), slog.String("err", err.Error()))
		return false
	}

	if !ok || access == "" {
		return false
	}

	claims, err := tokencodec.Decode(access)
	if err != nil {
		g.log.Debug("access_malformed", slog.String("op", op))
		return false
	}

	if claims.Expired(g.now()) {
		if err := g.store.Delete(ctx, credstore.KeyAccess); err != nil {
			g.log.Warn("expired_access_delete_failed", slog.String("op", op), slog.String("err", err.Error()))
		}
		return false
	}

	return true
}

// Protect пускает дальше только аутентифицированных, остальных - 302 на loginPath.
func (g *Guard) Protect(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !g.Authenticated(r.Context()) {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GuestOnly уводит уже вошедших со страниц входа/регистрации на defaultPath.
func (g *Guard) GuestOnly(defaultPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g.Authenticated(r.Context()) {
				http.Redirect(w, r, defaultPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Fallback - обработчик неизвестных путей: на defaultPath или loginPath.
func (g *Guard) Fallback(defaultPath, loginPath string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := loginPath
		if g.Authenticated(r.Context()) {
			target = defaultPath
		}
		http.Redirect(w, r, target, http.StatusFound)
	})
}
