package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/metrics-tracker/internal/credstore"
	"github.com/pribylovaa/metrics-tracker/internal/models"
	"github.com/pribylovaa/metrics-tracker/internal/session"
)

// fakeCreds - управляемый источник учётных данных.
type fakeCreds struct {
	mu       sync.Mutex
	access   string
	fresh    string
	err      error
	refreshN atomic.Int32
	stales   []string
}

func (f *fakeCreds) AccessToken(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access, nil
}

func (f *fakeCreds) EnsureFreshCredential(_ context.Context, stale string) (string, error) {
	f.refreshN.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stales = append(f.stales, stale)
	if f.err != nil {
		return "", f.err
	}
	f.access = f.fresh
	return f.fresh, nil
}

func silent() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// upstream отвечает 200 на Bearer good, иначе 401; считает запросы и тела.
type upstream struct {
	srv    *httptest.Server
	calls  atomic.Int32
	mu     sync.Mutex
	auths  []string
	bodies []string
	status func(r *http.Request) int
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()

	u := &upstream{}
	u.status = func(r *http.Request) int {
		if r.Header.Get("Authorization") == "Bearer good" {
			return http.StatusOK
		}
		return http.StatusUnauthorized
	}

	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		b, _ := io.ReadAll(r.Body)

		u.mu.Lock()
		u.auths = append(u.auths, r.Header.Get("Authorization"))
		u.bodies = append(u.bodies, string(b))
		u.mu.Unlock()

		w.WriteHeader(u.status(r))
		_, _ = w.Write([]byte(`{"detail":"x"}`))
	}))
	t.Cleanup(u.srv.Close)

	return u
}

func (u *upstream) client(creds Credentials) *http.Client {
	return &http.Client{Transport: NewPipeline(http.DefaultTransport, creds, PipelineOptions{Logger: silent()})}
}

func TestPipeline_AttachesBearer(t *testing.T) {
	t.Parallel()

	u := newUpstream(t)
	creds := &fakeCreds{access: "good"}

	resp, err := u.client(creds).Get(u.srv.URL + "/api/teams/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"Bearer good"}, u.auths)
	require.EqualValues(t, 0, creds.refreshN.Load())
}

func TestPipeline_NoAccess_NoHeader(t *testing.T) {
	t.Parallel()

	u := newUpstream(t)
	u.status = func(*http.Request) int { return http.StatusOK }

	resp, err := u.client(&fakeCreds{}).Get(u.srv.URL + "/api/summary/")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, []string{""}, u.auths)
}

func TestPipeline_PublicEndpoints_NoHeaderAndNoRefresh(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"/api/register/", "/api/login/", "/api/token/", "/api/token/refresh/", "/api/verify-email/"} {
		u := newUpstream(t)
		creds := &fakeCreds{access: "good", fresh: "good"}

		req, err := http.NewRequest(http.MethodPost, u.srv.URL+path, strings.NewReader(`{}`))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer leaked")

		resp, err := u.client(creds).Do(req)
		require.NoError(t, err, path)
		resp.Body.Close()

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		require.Equal(t, []string{""}, u.auths, path)
		require.EqualValues(t, 0, creds.refreshN.Load(), path)
	}
}

func TestPipeline_401_RefreshAndReplayOnce(t *testing.T) {
	t.Parallel()

	u := newUpstream(t)
	creds := &fakeCreds{access: "stale", fresh: "good"}

	req, err := http.NewRequest(http.MethodPost, u.srv.URL+"/api/records/", bytes.NewBufferString(`{"value":1}`))
	require.NoError(t, err)

	resp, err := u.client(creds).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 2, u.calls.Load())
	require.Equal(t, []string{"Bearer stale", "Bearer good"}, u.auths)
	require.Equal(t, []string{`{"value":1}`, `{"value":1}`}, u.bodies)
	require.Equal(t, []string{"stale"}, creds.stales)
}

// Тело без GetBody буферизуется и повторяется целиком.
func TestPipeline_ReplayUnbufferedBody(t *testing.T) {
	t.Parallel()

	u := newUpstream(t)
	creds := &fakeCreds{access: "stale", fresh: "good"}

	req, err := http.NewRequest(http.MethodPut, u.srv.URL+"/api/teams/1/", io.NopCloser(strings.NewReader(`{"name":"a"}`)))
	require.NoError(t, err)
	require.Nil(t, req.GetBody)

	resp, err := u.client(creds).Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{`{"name":"a"}`, `{"name":"a"}`}, u.bodies)
}

// Повтор, снова получивший 401, не повторяется ещё раз.
func TestPipeline_ReplayedRequestNeverRetriedAgain(t *testing.T) {
	t.Parallel()

	u := newUpstream(t)
	u.status = func(*http.Request) int { return http.StatusUnauthorized }
	creds := &fakeCreds{access: "stale", fresh: "also-bad"}

	resp, err := u.client(creds).Get(u.srv.URL + "/api/teams/")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.EqualValues(t, 2, u.calls.Load())
	require.EqualValues(t, 1, creds.refreshN.Load())
}

// Провал refresh: наружу уходит исходный 401 с читаемым телом.
func TestPipeline_RefreshFailure_ReturnsOriginal401(t *testing.T) {
	t.Parallel()

	u := newUpstream(t)
	creds := &fakeCreds{access: "stale", err: session.ErrSessionExpired}

	resp, err := u.client(creds).Get(u.srv.URL + "/api/teams/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"detail":"x"}`, string(b))
	require.EqualValues(t, 1, u.calls.Load())
}

func TestPipeline_ServerError_NoRefresh(t *testing.T) {
	t.Parallel()

	for _, code := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable} {
		u := newUpstream(t)
		u.status = func(*http.Request) int { return code }
		creds := &fakeCreds{access: "good"}

		resp, err := u.client(creds).Get(u.srv.URL + "/api/summary/")
		require.NoError(t, err)
		resp.Body.Close()

		require.Equal(t, code, resp.StatusCode)
		require.EqualValues(t, 0, creds.refreshN.Load())
	}
}

func TestPipeline_OtherStatusesPassThrough(t *testing.T) {
	t.Parallel()

	for _, code := range []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound} {
		u := newUpstream(t)
		u.status = func(*http.Request) int { return code }
		creds := &fakeCreds{access: "good"}

		resp, err := u.client(creds).Get(u.srv.URL + "/api/teams/")
		require.NoError(t, err)
		resp.Body.Close()

		require.Equal(t, code, resp.StatusCode)
		require.EqualValues(t, 0, creds.refreshN.Load())
	}
}

func TestPipeline_TransportError(t *testing.T) {
	t.Parallel()

	boom := errors.New("dial failed")
	p := NewPipeline(RoundTripperFunc(func(*http.Request) (*http.Response, error) { return nil, boom }), &fakeCreds{access: "a"}, PipelineOptions{Logger: silent()})

	req := httptest.NewRequest(http.MethodGet, "http://upstream/api/teams/", nil)
	_, err := p.RoundTrip(req)
	require.ErrorIs(t, err, boom)
}

// Исходный запрос не модифицируется.
func TestPipeline_DoesNotMutateRequest(t *testing.T) {
	t.Parallel()

	u := newUpstream(t)
	creds := &fakeCreds{access: "stale", fresh: "good"}

	req, err := http.NewRequest(http.MethodGet, u.srv.URL+"/api/teams/", nil)
	require.NoError(t, err)

	resp, err := u.client(creds).Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Empty(t, req.Header.Get("Authorization"))
}

// fakeAuth - AuthAPI для связки с настоящим session.Manager.
type fakeAuth struct {
	calls   atomic.Int32
	delay   time.Duration
	fail    bool
	nextTok string
}

func (a *fakeAuth) Login(context.Context, string, string) (*models.TokenPair, error) {
	return nil, errors.New("not used")
}

func (a *fakeAuth) Refresh(ctx context.Context, _ string) (*models.RefreshResponse, error) {
	a.calls.Add(1)
	select {
	case <-time.After(a.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if a.fail {
		return nil, errors.New("refresh rejected")
	}
	return &models.RefreshResponse{Access: a.nextTok}, nil
}

func (a *fakeAuth) Verify(context.Context, string) error { return nil }

// N одновременных 401 с настоящим менеджером: один refresh, N успешных повторов.
func TestPipeline_WithSession_ConcurrentRequestsShareOneRefresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := credstore.NewMemory()
	require.NoError(t, credstore.SetPair(ctx, st, "stale", "r1"))

	auth := &fakeAuth{delay: 30 * time.Millisecond, nextTok: "good"}
	var navs atomic.Int32
	mgr := session.New(st, auth, session.NavigatorFunc(func(context.Context, string) { navs.Add(1) }), session.Options{Logger: silent()})
	_, err := mgr.Restore(ctx)
	require.NoError(t, err)

	u := newUpstream(t)
	cl := u.client(mgr)

	const n = 12
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := cl.Get(u.srv.URL + "/api/metrics/")
			if err != nil {
				return
			}
			codes[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.Equal(t, http.StatusOK, codes[i], i)
	}
	require.EqualValues(t, 1, auth.calls.Load())
	require.EqualValues(t, 0, navs.Load())
	require.Equal(t, session.StateAuthenticated, mgr.State())
}

func TestPipeline_WithSession_RefreshFailureLogsOutOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := credstore.NewMemory()
	require.NoError(t, credstore.SetPair(ctx, st, "stale", "r1"))

	auth := &fakeAuth{delay: 20 * time.Millisecond, fail: true}
	var navs atomic.Int32
	mgr := session.New(st, auth, session.NavigatorFunc(func(_ context.Context, path string) {
		require.Equal(t, "/login", path)
		navs.Add(1)
	}), session.Options{Logger: silent()})
	_, err := mgr.Restore(ctx)
	require.NoError(t, err)

	u := newUpstream(t)
	cl := u.client(mgr)

	const n = 6
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := cl.Get(u.srv.URL + "/api/teams/")
			if err != nil {
				return
			}
			codes[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.Equal(t, http.StatusUnauthorized, codes[i])
	}
	require.EqualValues(t, 1, auth.calls.Load())
	require.EqualValues(t, 1, navs.Load())

	_, ok, err := st.Get(ctx, credstore.KeyRefresh)
	require.NoError(t, err)
	require.False(t, ok)
}
