package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/metrics-tracker/internal/clients"
	"github.com/pribylovaa/metrics-tracker/internal/config"
	"github.com/pribylovaa/metrics-tracker/internal/guard"
	dashhttp "github.com/pribylovaa/metrics-tracker/internal/http"
	"github.com/pribylovaa/metrics-tracker/internal/http/handlers"
	logctx "github.com/pribylovaa/metrics-tracker/internal/pkg/log"
	"github.com/pribylovaa/metrics-tracker/internal/session"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	// .env необязателен.
	_ = godotenv.Load()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting dashboard", "env", cfg.Env, "api", cfg.API.BaseURL)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Переход на вход после провала refresh: сам редирект отдаёт хендлер,
	// здесь только фиксируем событие.
	nav := session.NavigatorFunc(func(ctx context.Context, path string) {
		logctx.From(ctx).Info("navigate", slog.String("path", path))
	})

	cl, err := clients.New(rootCtx, *cfg, log, nav, prometheus.DefaultRegisterer)
	if err != nil {
		log.Error("clients_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if cerr := cl.Close(); cerr != nil {
			log.Warn("clients_close_failed", slog.String("err", cerr.Error()))
		}
	}()

	log.Info("clients_initialized", slog.String("store", cfg.Store.Kind), slog.String("session", cl.Session.State().String()))

	h := handlers.New(cl.Session, cl.Auth, cl.API, cfg.Routes.LoginPath, cfg.Routes.DefaultPath)
	g := guard.New(cl.Store, guard.WithLogger(log))

	router := dashhttp.NewRouter(h, g, dashhttp.Options{
		Logger:      log,
		Timeout:     cfg.Timeouts.Request,
		LoginPath:   cfg.Routes.LoginPath,
		DefaultPath: cfg.Routes.DefaultPath,
	})

	var ready int32 // 0 - not ready; 1 - ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())

	httpSrv := &http.Server{Addr: cfg.HTTP.Addr(), Handler: router, ReadHeaderTimeout: 5 * time.Second}
	metricsSrv := &http.Server{Addr: cfg.Metrics.Addr(), Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	serveErrCh := make(chan error, 2)
	for _, srv := range []*http.Server{httpSrv, metricsSrv} {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			log.Error("http_listen_failed", slog.String("addr", srv.Addr), slog.String("err", err.Error()))
			os.Exit(1)
		}

		log.Info("http_listen_start", slog.String("addr", srv.Addr))

		go func(srv *http.Server) {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErrCh <- err
			}
		}(srv)
	}

	atomic.StoreInt32(&ready, 1)
	log.Info("dashboard_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		log.Error("http_serve_failed", slog.String("err", err.Error()))
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	for _, srv := range []*http.Server{httpSrv, metricsSrv} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http_shutdown_incomplete", slog.String("addr", srv.Addr), slog.String("err", err.Error()))
		}
	}

	log.Info("service_stopped")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
