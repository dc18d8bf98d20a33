package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pribylovaa/metrics-tracker/internal/client"
	"github.com/pribylovaa/metrics-tracker/internal/config"
	"github.com/pribylovaa/metrics-tracker/internal/credstore"
	"github.com/pribylovaa/metrics-tracker/internal/metrics"
	"github.com/pribylovaa/metrics-tracker/internal/session"
	"github.com/pribylovaa/metrics-tracker/internal/transport"
)

// Clients агрегирует хранилище, менеджер сессии и оба REST-клиента.
type Clients struct {
	Store   credstore.Store
	Session *session.Manager
	// Auth - вызовы аутентификации: без Bearer и без refresh.
	Auth *client.Client
	// API - ресурсы трекера поверх transport.Pipeline.
	API     *client.Client
	Metrics *metrics.Session
}

// New открывает хранилище и собирает клиентов. reg может быть nil.
func New(ctx context.Context, cfg config.Config, log *slog.Logger, nav session.Navigator, reg prometheus.Registerer) (*Clients, error) {
	const op = "internal/clients/New"

	origin, err := cfg.API.Origin()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	st, err := credstore.Open(ctx, cfg.Store, origin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m := metrics.New(reg)

	// Общая цепочка исходящих вызовов: request id -> user agent -> logging -> timeout.
	base := transport.Chain(http.DefaultTransport,
		transport.RequestID(),
		transport.UserAgent(cfg.API.UserAgent),
		transport.Logging(log),
		transport.Timeout(cfg.Timeouts.Request),
	)

	auth, err := client.New(cfg.API.BaseURL, &http.Client{Transport: base}, cfg.Timeouts.Request)
	if err != nil {
		_ = credstore.Close(st)
		return nil, fmt.Errorf("%s: auth client: %w", op, err)
	}

	sess := session.New(st, auth, nav, session.Options{
		LoginPath:      cfg.Routes.LoginPath,
		RefreshTimeout: cfg.Timeouts.Refresh,
		Metrics:        m,
		Logger:         log,
	})

	if _, err := sess.Restore(ctx); err != nil {
		_ = credstore.Close(st)
		return nil, fmt.Errorf("%s: restore session: %w", op, err)
	}

	pipe := transport.NewPipeline(base, sess, transport.PipelineOptions{
		PublicEndpoints: cfg.API.PublicEndpoints,
		Metrics:         m,
		Logger:          log,
	})

	api, err := client.New(cfg.API.BaseURL, &http.Client{Transport: pipe}, cfg.Timeouts.Request)
	if err != nil {
		_ = credstore.Close(st)
		return nil, fmt.Errorf("%s: api client: %w", op, err)
	}

	return &Clients{Store: st, Session: sess, Auth: auth, API: api, Metrics: m}, nil
}

// Close освобождает ресурсы хранилища.
func (c *Clients) Close() error {
	return credstore.Close(c.Store)
}
