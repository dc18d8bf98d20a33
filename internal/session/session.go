// session - менеджер сессии: состояние аутентификации, единственный
// одновременный refresh, принудительный выход при неустранимой ошибке.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pribylovaa/metrics-tracker/internal/credstore"
	"github.com/pribylovaa/metrics-tracker/internal/metrics"
	"github.com/pribylovaa/metrics-tracker/internal/models"
	"github.com/pribylovaa/metrics-tracker/internal/pkg/redact"
)

var (
	// ErrSessionExpired - refresh не удался, сессия завершена.
	ErrSessionExpired = errors.New("session expired")
	// ErrNoRefreshToken - в хранилище нет refresh-токена.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrNoAccessToken - в хранилище нет access-токена.
	ErrNoAccessToken = errors.New("no access token")
	// ErrEmptyAccess - сервер вернул пустой access.
	ErrEmptyAccess = errors.New("empty access token in response")

	errSuperseded = errors.New("session replaced during refresh")
)

//go:generate mockgen -source=session.go -destination=../../mocks/session.go -package=mocks

// AuthAPI - вызовы upstream, которые делает менеджер.
// Реализация не должна сама проходить через обновление токена.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*models.TokenPair, error)
	Refresh(ctx context.Context, refresh string) (*models.RefreshResponse, error)
	Verify(ctx context.Context, token string) error
}

// Navigator переводит пользователя на другой маршрут (аналог redirect в браузере).
type Navigator interface {
	Navigate(ctx context.Context, path string)
}

// NavigatorFunc - адаптер функции к Navigator.
type NavigatorFunc func(ctx context.Context, path string)

func (f NavigatorFunc) Navigate(ctx context.Context, path string) { f(ctx, path) }

type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
	StateRefreshing
	StateLoggedOut
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	case StateLoggedOut:
		return "logged_out"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Options struct {
	// LoginPath - куда уводит Navigator при выходе. По умолчанию "/login".
	LoginPath string
	// RefreshTimeout ограничивает один refresh. По умолчанию 10s.
	RefreshTimeout time.Duration
	Metrics        *metrics.Session
	Logger         *slog.Logger
}

// flight - один refresh, общий для всех ожидающих.
type flight struct {
	done   chan struct{}
	access string
	err    error
}

type Manager struct {
	store credstore.Store
	auth  AuthAPI
	nav   Navigator
	opts  Options
	log   *slog.Logger

	// writeMu упорядочивает записи в хранилище (Login, commit, выход).
	// Захватывается раньше mu; mu не держится во время сетевых вызовов.
	writeMu sync.Mutex

	mu         sync.Mutex
	state      State
	flight     *flight
	lastIssued string
	// gen растёт при каждой смене lastIssued.
	gen uint64
}

func New(store credstore.Store, auth AuthAPI, nav Navigator, opts Options) *Manager {
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}

	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 10 * time.Second
	}

	if nav == nil {
		nav = NavigatorFunc(func(context.Context, string) {})
	}

	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}

	return &Manager{
		store: store,
		auth:  auth,
		nav:   nav,
		opts:  opts,
		log:   l.With(slog.String("component", "session")),
		state: StateAnonymous,
	}
}

// Restore выставляет состояние по содержимому хранилища.
func (m *Manager) Restore(ctx context.Context) (State, error) {
	const op = "session.Restore"

	access, ok, err := m.store.Get(ctx, credstore.KeyAccess)
	if err != nil {
		return m.State(), fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if ok && access != "" {
		m.state = StateAuthenticated
		m.lastIssued = access
	} else {
		m.state = StateAnonymous
		m.lastIssued = ""
	}
	m.gen++

	return m.state, nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Login обменивает логин/пароль на пару токенов и сохраняет её.
// При ошибке состояние не меняется, ошибка сервера возвращается как есть.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	const op = "session.Login"

	pair, err := m.auth.Login(ctx, username, password)
	if err != nil {
		m.log.Info("login_failed", slog.String("op", op), slog.String("username", redact.Email(username)), slog.String("err", err.Error()))
		return err
	}

	if pair == nil || pair.Access == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyAccess)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := credstore.SetPair(ctx, m.store, pair.Access, pair.Refresh); err != nil {
		return fmt.Errorf("%s: store: %w", op, err)
	}

	// Незавершённый refresh от прошлой сессии больше не коммитится.
	m.mu.Lock()
	m.flight = nil
	m.state = StateAuthenticated
	m.lastIssued = pair.Access
	m.gen++
	m.mu.Unlock()

	m.log.Info("login_ok", slog.String("op", op), slog.String("username", redact.Email(username)))
	return nil
}

// AccessToken - текущий access из хранилища ("" если нет).
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	v, _, err := m.store.Get(ctx, credstore.KeyAccess)
	if err != nil {
		return "", fmt.Errorf("session.AccessToken: %w", err)
	}

	return v, nil
}

// Verify спрашивает сервер, действителен ли текущий access.
func (m *Manager) Verify(ctx context.Context) error {
	const op = "session.Verify"

	access, err := m.AccessToken(ctx)
	if err != nil {
		return err
	}

	if access == "" {
		return fmt.Errorf("%s: %w", op, ErrNoAccessToken)
	}

	if err := m.auth.Verify(ctx, access); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Logout очищает хранилище и уводит на страницу входа.
// Повторный вызов в состоянии LoggedOut ничего не делает.
func (m *Manager) Logout(ctx context.Context) error {
	return m.teardown(ctx, nil, metrics.ReasonUser)
}

// teardown - общий выход. f != nil: выход из-за провала этого refresh;
// если сессию уже заменили (Login, Logout), ничего не делаем.
func (m *Manager) teardown(ctx context.Context, f *flight, reason string) error {
	const op = "session.Logout"

	m.writeMu.Lock()

	m.mu.Lock()
	if f != nil && m.flight != f {
		m.mu.Unlock()
		m.writeMu.Unlock()
		return nil
	}

	if m.state == StateLoggedOut {
		m.flight = nil
		m.mu.Unlock()
		m.writeMu.Unlock()
		return nil
	}

	m.state = StateLoggedOut
	m.flight = nil
	m.lastIssued = ""
	m.gen++
	m.mu.Unlock()

	m.opts.Metrics.Logout(reason)
	m.log.Info("logout", slog.String("op", op), slog.String("reason", reason))

	err := m.store.Clear(ctx)
	m.writeMu.Unlock()
	if err != nil {
		m.log.Error("logout_clear_failed", slog.String("op", op), slog.String("err", err.Error()))
		err = fmt.Errorf("%s: %w", op, err)
	}

	m.nav.Navigate(ctx, m.opts.LoginPath)
	return err
}
