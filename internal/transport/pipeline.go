package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pribylovaa/metrics-tracker/internal/metrics"
	"github.com/pribylovaa/metrics-tracker/internal/pkg/redact"
)

// DefaultPublicEndpoints - пути, к которым Bearer не прикладывается и на
// которых 401 не запускает обновление токена. Сравнение по подстроке пути.
var DefaultPublicEndpoints = []string{"/register/", "/login/", "/token/", "/verify-email/"}

// maxReplays - сколько раз запрос может быть повторён после refresh.
const maxReplays = 1

// Credentials - источник access-токена и координатор его обновления.
// Реализуется session.Manager.
type Credentials interface {
	AccessToken(ctx context.Context) (string, error)
	EnsureFreshCredential(ctx context.Context, stale string) (string, error)
}

type PipelineOptions struct {
	PublicEndpoints []string
	Metrics         *metrics.Session
	Logger          *slog.Logger
}

// Pipeline - RoundTripper с подстановкой учётных данных и восстановлением после 401.
type Pipeline struct {
	next    http.RoundTripper
	creds   Credentials
	public  []string
	metrics *metrics.Session
	log     *slog.Logger
}

func NewPipeline(next http.RoundTripper, creds Credentials, opts PipelineOptions) *Pipeline {
	if next == nil {
		next = http.DefaultTransport
	}

	public := opts.PublicEndpoints
	if len(public) == 0 {
		public = DefaultPublicEndpoints
	}

	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}

	return &Pipeline{
		next:    next,
		creds:   creds,
		public:  public,
		metrics: opts.Metrics,
		log:     l.With(slog.String("component", "pipeline")),
	}
}

// Middleware - Pipeline как звено Chain.
func (p *Pipeline) Middleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		cp := *p
		cp.next = next
		return &cp
	}
}

// IsPublic - путь совпадает с одним из публичных шаблонов.
func (p *Pipeline) IsPublic(path string) bool {
	for _, pat := range p.public {
		if pat != "" && strings.Contains(path, pat) {
			return true
		}
	}

	return false
}

func (p *Pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	const op = "transport.Pipeline"
	ctx := req.Context()

	if p.IsPublic(req.URL.Path) {
		r := req.Clone(ctx)
		r.Header.Del("Authorization")
		return p.next.RoundTrip(r)
	}

	base, err := replayable(req)
	if err != nil {
		return nil, fmt.Errorf("%s: buffer body: %w", op, err)
	}

	access, err := p.creds.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for attempt := 0; ; attempt++ {
		r, err := withAccess(base, access)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		resp, err := p.next.RoundTrip(r)
		if err != nil {
			return nil, err
		}

		if attempt > 0 {
			p.metrics.ReplayDone(resp.StatusCode != http.StatusUnauthorized)
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			p.log.Warn("upstream_server_error", slog.String("op", op),
				slog.String("path", req.URL.Path), slog.Int("status", resp.StatusCode))
			return resp, nil
		}

		if resp.StatusCode != http.StatusUnauthorized || attempt >= maxReplays {
			return resp, nil
		}

		fresh, ferr := p.creds.EnsureFreshCredential(ctx, access)
		if ferr != nil {
			// Выход уже выполнен; вызывающий получает исходный 401.
			p.log.Info("refresh_rejected", slog.String("op", op),
				slog.String("path", req.URL.Path), slog.String("err", ferr.Error()))
			return resp, nil
		}

		drain(resp.Body)

		p.log.Debug("replay", slog.String("op", op), slog.String("path", req.URL.Path),
			slog.String("access", redact.Token(fresh)))
		access = fresh
	}
}

// replayable возвращает копию запроса, тело которой можно перечитать через GetBody.
func replayable(req *http.Request) (*http.Request, error) {
	r := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return r, nil
	}

	// Каждая попытка получает тело из GetBody; исходное закрываем сразу.
	if req.GetBody != nil {
		_ = req.Body.Close()
		return r, nil
	}

	buf, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, err
	}

	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}
	r.Body, _ = r.GetBody()
	r.ContentLength = int64(len(buf))

	return r, nil
}

// withAccess - клон base со свежим телом и заголовком Authorization.
func withAccess(base *http.Request, access string) (*http.Request, error) {
	r := base.Clone(base.Context())

	if base.GetBody != nil {
		body, err := base.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewind body: %w", err)
		}
		r.Body = body
	}

	if access != "" {
		r.Header.Set("Authorization", "Bearer "+access)
	} else {
		r.Header.Del("Authorization")
	}

	return r, nil
}

func drain(body io.ReadCloser) {
	if body == nil {
		return
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
