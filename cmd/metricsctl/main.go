// metricsctl - консольный клиент трекера метрик.
// Учётные данные хранятся между запусками (store.kind=file по умолчанию).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pribylovaa/metrics-tracker/internal/clients"
	"github.com/pribylovaa/metrics-tracker/internal/config"
	"github.com/pribylovaa/metrics-tracker/internal/session"
)

const usage = `usage: metricsctl [-config path] [-v] <command> [flags]

commands:
  login -email E -password P
  logout
  register -email E -password P -confirm P
  verify-email -token T -uid U
  status                     local session state
  verify                     ask the server whether the access token is valid
  me
  teams   list | create | update | delete
  metrics list | create | update | delete
  records list | create | update | delete
  summary
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("metricsctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	configPath := fs.String("config", "", "path to config file")
	verbose := fs.Bool("v", false, "debug logging to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "metricsctl:", err)
		return 1
	}

	log := setupLogger(stderr, *verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	nav := session.NavigatorFunc(func(context.Context, string) {
		fmt.Fprintln(stderr, "session expired: run `metricsctl login`")
	})

	cl, err := clients.New(ctx, *cfg, log, nav, nil)
	if err != nil {
		fmt.Fprintln(stderr, "metricsctl:", err)
		return 1
	}
	defer func() { _ = cl.Close() }()

	a := newApp(cl, stdout, stderr)
	if err := a.run(ctx, fs.Args()); err != nil {
		fmt.Fprintln(stderr, "metricsctl:", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(stderr, usage)
			return 2
		}
		return 1
	}

	return 0
}

// setupLogger - CLI пишет в stderr; по умолчанию только предупреждения.
func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	lvl := slog.LevelWarn
	if verbose {
		lvl = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
