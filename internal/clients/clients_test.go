package clients

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/metrics-tracker/internal/config"
	"github.com/pribylovaa/metrics-tracker/internal/credstore"
	"github.com/pribylovaa/metrics-tracker/internal/session"
)

func testConfig(baseURL string) config.Config {
	var cfg config.Config
	cfg.API.BaseURL = baseURL
	cfg.API.UserAgent = "metrics-tracker-test"
	cfg.Timeouts.Request = time.Second
	cfg.Timeouts.Refresh = time.Second
	cfg.Store.Kind = config.StoreMemory
	cfg.Routes.LoginPath = "/login"
	return cfg
}

func TestNew_BadBaseURL(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := New(context.Background(), testConfig("not a url"), log, nil, nil)
	require.Error(t, err)
}

func TestNew_FileStoreRestoresSession(t *testing.T) {
	t.Parallel()

	cfg := testConfig("http://127.0.0.1:1/api")
	cfg.Store.Kind = config.StoreFile
	cfg.Store.Dir = t.TempDir()

	st, err := credstore.Open(context.Background(), cfg.Store, "http://127.0.0.1:1")
	require.NoError(t, err)
	require.NoError(t, credstore.SetPair(context.Background(), st, "a", "r"))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cl, err := New(context.Background(), cfg, log, nil, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cl.Close() })

	require.Equal(t, session.StateAuthenticated, cl.Session.State())
}

func TestNew_PublicAndProtectedClients(t *testing.T) {
	t.Parallel()

	var (
		mu                       sync.Mutex
		loginAuth, teamsAuth, ua string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		loginAuth = r.Header.Get("Authorization")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access":"acc","refresh":"ref"}`)
	})
	mux.HandleFunc("GET /api/teams/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		teamsAuth = r.Header.Get("Authorization")
		ua = r.Header.Get("User-Agent")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cl, err := New(context.Background(), testConfig(srv.URL+"/api"), log, nil, prometheus.NewRegistry())
	require.NoError(t, err)

	ctx := context.Background()
	require.Equal(t, session.StateAnonymous, cl.Session.State())
	require.NoError(t, cl.Session.Login(ctx, "a@b.c", "pw"))

	_, err = cl.API.Teams(ctx)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Empty(t, loginAuth)
	require.Equal(t, "Bearer acc", teamsAuth)
	require.Equal(t, "metrics-tracker-test", ua)
}
