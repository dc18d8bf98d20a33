package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/metrics-tracker/internal/guard"
	"github.com/pribylovaa/metrics-tracker/internal/http/handlers"
	"github.com/pribylovaa/metrics-tracker/internal/http/middleware"
)

// Options - параметры сборки HTTP-роутера дашборда.
type Options struct {
	Logger      *slog.Logger
	Timeout     time.Duration
	LoginPath   string
	DefaultPath string
}

// NewRouter собирает http.Handler с chi, middleware и охраной маршрутов.
func NewRouter(h *handlers.Handlers, g *guard.Guard, opts Options) http.Handler {
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}

	if opts.DefaultPath == "" {
		opts.DefaultPath = "/dashboard"
	}

	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до логирования
		middleware.Logging(opts.Logger),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	registerRoutes(root, h, g, opts)

	// Неизвестный путь: на основной экран или на вход.
	fallback := g.Fallback(opts.DefaultPath, opts.LoginPath)
	root.NotFound(fallback.ServeHTTP)

	return root
}

// registerRoutes - единая точка регистрации маршрутов дашборда.
func registerRoutes(r chi.Router, h *handlers.Handlers, g *guard.Guard, opts Options) {
	// гостевые страницы
	r.Group(func(r chi.Router) {
		r.Use(g.GuestOnly(opts.DefaultPath))

		r.Get("/login", h.LoginView)
		r.Post("/login", h.Login)
		r.Get("/register", h.RegisterView)
		r.Post("/register", h.Register)
	})

	// открыты всем
	r.Get("/email-verify", h.VerifyEmail)
	r.Post("/logout", h.Logout)

	// защищённые
	r.Group(func(r chi.Router) {
		r.Use(g.Protect(opts.LoginPath))

		r.Get(opts.DefaultPath, h.Dashboard)
		r.Get("/summary", h.Summary)

		r.Get("/teams", h.ListTeams)
		r.Post("/teams", h.CreateTeam)
		r.Put("/teams/{id}", h.UpdateTeam)
		r.Delete("/teams/{id}", h.DeleteTeam)

		r.Get("/metrics", h.ListMetrics)
		r.Post("/metrics", h.CreateMetric)
		r.Put("/metrics/{id}", h.UpdateMetric)
		r.Delete("/metrics/{id}", h.DeleteMetric)

		r.Get("/records", h.ListRecords)
		r.Post("/records", h.CreateRecord)
		r.Put("/records/{id}", h.UpdateRecord)
		r.Delete("/records/{id}", h.DeleteRecord)
	})
}
