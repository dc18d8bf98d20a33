package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/metrics-tracker/internal/client"
	apierrors "github.com/pribylovaa/metrics-tracker/internal/errors"
	"github.com/pribylovaa/metrics-tracker/internal/models"
	logctx "github.com/pribylovaa/metrics-tracker/internal/pkg/log"
	"github.com/pribylovaa/metrics-tracker/internal/session"
)

// Sessions - часть session.Manager, нужная хендлерам.
type Sessions interface {
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	State() session.State
}

// Accounts - публичные вызовы (без Bearer и без refresh).
type Accounts interface {
	Register(ctx context.Context, email, password, confirm string) (*models.RegisterResponse, error)
	VerifyEmail(ctx context.Context, token, uid string) error
}

// Tracker - ресурсы трекера за transport.Pipeline.
type Tracker interface {
	Me(ctx context.Context) (*models.User, error)

	Teams(ctx context.Context) ([]models.Team, error)
	CreateTeam(ctx context.Context, t models.Team) (*models.Team, error)
	UpdateTeam(ctx context.Context, id int64, t models.Team) (*models.Team, error)
	DeleteTeam(ctx context.Context, id int64) error

	Metrics(ctx context.Context) ([]models.Metric, error)
	CreateMetric(ctx context.Context, m models.Metric) (*models.Metric, error)
	UpdateMetric(ctx context.Context, id int64, m models.Metric) (*models.Metric, error)
	DeleteMetric(ctx context.Context, id int64) error

	Records(ctx context.Context) ([]models.Record, error)
	CreateRecord(ctx context.Context, r models.Record) (*models.Record, error)
	UpdateRecord(ctx context.Context, id int64, r models.Record) (*models.Record, error)
	DeleteRecord(ctx context.Context, id int64) error

	Summary(ctx context.Context) (*models.Summary, error)
}

// Handlers агрегирует зависимости.
type Handlers struct {
	Sessions    Sessions
	Accounts    Accounts
	Tracker     Tracker
	LoginPath   string
	DefaultPath string
}

func New(s Sessions, a Accounts, t Tracker, loginPath, defaultPath string) *Handlers {
	return &Handlers{Sessions: s, Accounts: a, Tracker: t, LoginPath: loginPath, DefaultPath: defaultPath}
}

// writeJSON - единый ответ JSON с нужным Content-Type.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict - строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// fail пишет ошибку. Завершённая сессия уводит на страницу входа (303).
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if h.sessionGone(err) {
		logctx.From(r.Context()).Info("redirect_to_login", slog.String("path", r.URL.Path))
		http.Redirect(w, r, h.LoginPath, http.StatusSeeOther)
		return
	}

	apierrors.WriteError(w, r, err)
}

// sessionGone - refresh не удался (или 401 пришёл уже после выхода).
func (h *Handlers) sessionGone(err error) bool {
	if errors.Is(err, session.ErrSessionExpired) {
		return true
	}

	return errors.Is(err, client.ErrUnauthorized) && h.Sessions.State() == session.StateLoggedOut
}

// view - JSON-описание страницы для фронта.
type view struct {
	View  string `json:"view"`
	State string `json:"state,omitempty"`
}
