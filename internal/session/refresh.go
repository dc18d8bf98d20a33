package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/metrics-tracker/internal/credstore"
	"github.com/pribylovaa/metrics-tracker/internal/metrics"
	"github.com/pribylovaa/metrics-tracker/internal/models"
	"github.com/pribylovaa/metrics-tracker/internal/pkg/redact"
)

// EnsureFreshCredential возвращает годный access после отказа с stale.
//
// Одновременно выполняется не больше одного refresh: первый вызов его
// запускает, остальные ждут тот же результат. Если в хранилище уже лежит
// выданный после stale access, он возвращается без сетевого вызова.
// Отмена ctx прекращает только ожидание, но не сам refresh.
// После выхода (LoggedOut) refresh не запускается до нового Login/Restore.
// При провале выход (очистка хранилища, переход на логин) завершается
// до того, как ожидающие получат ErrSessionExpired.
func (m *Manager) EnsureFreshCredential(ctx context.Context, stale string) (string, error) {
	const op = "session.EnsureFreshCredential"

	for {
		m.mu.Lock()
		if m.state == StateLoggedOut {
			m.mu.Unlock()
			return "", fmt.Errorf("%s: %w", op, ErrSessionExpired)
		}

		if f := m.flight; f != nil {
			m.mu.Unlock()
			m.opts.Metrics.RefreshCoalesced()
			m.log.Debug("refresh_joined", slog.String("op", op))
			return wait(ctx, f)
		}

		last, gen := m.lastIssued, m.gen
		m.mu.Unlock()

		// Более новый access годится, только пока он действительно в хранилище.
		if last != "" && last != stale {
			cur, ok, err := m.store.Get(ctx, credstore.KeyAccess)
			if err != nil {
				return "", fmt.Errorf("%s: read access: %w", op, err)
			}

			if ok && cur == last {
				m.log.Debug("refresh_skipped_newer_access", slog.String("op", op), slog.String("stale", redact.Token(stale)))
				return cur, nil
			}
		}

		m.mu.Lock()
		// Пока хранилище читалось, сессия могла измениться: проверяем заново.
		if m.gen != gen || m.flight != nil || m.state == StateLoggedOut {
			m.mu.Unlock()
			continue
		}

		f := &flight{done: make(chan struct{})}
		m.flight = f
		m.state = StateRefreshing
		m.mu.Unlock()

		m.log.Info("refresh_started", slog.String("op", op), slog.String("stale", redact.Token(stale)))
		go m.run(context.WithoutCancel(ctx), f)

		return wait(ctx, f)
	}
}

func wait(ctx context.Context, f *flight) (string, error) {
	select {
	case <-f.done:
		return f.access, f.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// run выполняет refresh и публикует результат в f.
func (m *Manager) run(base context.Context, f *flight) {
	const op = "session.refresh"
	start := time.Now()

	ctx, cancel := context.WithTimeout(base, m.opts.RefreshTimeout)
	resp, err := m.refresh(ctx)
	cancel()

	if err == nil {
		err = m.commit(base, f, resp)
	}

	if err == nil {
		m.opts.Metrics.RefreshDone(true)
		m.log.Info("refresh_ok", slog.String("op", op), slog.Duration("dur", time.Since(start)),
			slog.Bool("rotated", resp.Refresh != ""))
		f.access = resp.Access
		close(f.done)
		return
	}

	m.opts.Metrics.RefreshDone(false)
	m.log.Warn("refresh_failed", slog.String("op", op), slog.Duration("dur", time.Since(start)), slog.String("err", err.Error()))

	reason := metrics.ReasonRefreshFailed
	if errors.Is(err, ErrNoRefreshToken) {
		reason = metrics.ReasonNoRefreshToken
	}

	// Выход завершается раньше, чем ожидающие узнают об ошибке.
	_ = m.teardown(base, f, reason)

	f.err = fmt.Errorf("%w: %w", ErrSessionExpired, err)
	close(f.done)
}

func (m *Manager) refresh(ctx context.Context) (*models.RefreshResponse, error) {
	rt, ok, err := m.store.Get(ctx, credstore.KeyRefresh)
	if err != nil {
		return nil, fmt.Errorf("read refresh: %w", err)
	}

	if !ok || rt == "" {
		return nil, ErrNoRefreshToken
	}

	resp, err := m.auth.Refresh(ctx, rt)
	if err != nil {
		return nil, err
	}

	if resp == nil || resp.Access == "" {
		return nil, ErrEmptyAccess
	}

	return resp, nil
}

// commit сохраняет результат, если этот refresh всё ещё актуален.
// Запись в хранилище идёт под writeMu, но без mu: Login и выход ждут её
// завершения, а ожидающие refresh не блокируются сетевым вызовом.
func (m *Manager) commit(ctx context.Context, f *flight, resp *models.RefreshResponse) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if !m.current(f) {
		return errSuperseded
	}

	if err := credstore.SetPair(ctx, m.store, resp.Access, resp.Refresh); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.flight = nil
	m.state = StateAuthenticated
	m.lastIssued = resp.Access
	m.gen++

	return nil
}

func (m *Manager) current(f *flight) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.flight == f
}
