package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/pribylovaa/metrics-tracker/internal/client"
	"github.com/pribylovaa/metrics-tracker/internal/clients"
	"github.com/pribylovaa/metrics-tracker/internal/credstore"
	"github.com/pribylovaa/metrics-tracker/internal/guard"
	"github.com/pribylovaa/metrics-tracker/internal/session"
	"github.com/pribylovaa/metrics-tracker/internal/tokencodec"
)

var (
	errUsage       = errors.New("usage")
	errNotLoggedIn = errors.New("not logged in: run `metricsctl login`")
	errExpired     = errors.New("session expired: run `metricsctl login`")
)

type app struct {
	cl     *clients.Clients
	guard  *guard.Guard
	out    io.Writer
	errOut io.Writer
	now    func() time.Time
}

func newApp(cl *clients.Clients, out, errOut io.Writer) *app {
	return &app{cl: cl, guard: guard.New(cl.Store), out: out, errOut: errOut, now: time.Now}
}

type command struct {
	run func(ctx context.Context, a *app, args []string) error
	// protected - нужен действующий access (как защищённый маршрут).
	protected bool
}

var commands = map[string]command{
	"login":        {run: cmdLogin},
	"logout":       {run: cmdLogout},
	"register":     {run: cmdRegister},
	"verify-email": {run: cmdVerifyEmail},
	"status":       {run: cmdStatus},
	"verify":       {run: cmdVerify},
	"me":           {run: cmdMe, protected: true},
	"teams":        {run: cmdTeams, protected: true},
	"metrics":      {run: cmdMetrics, protected: true},
	"records":      {run: cmdRecords, protected: true},
	"summary":      {run: cmdSummary, protected: true},
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command", errUsage)
	}

	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	if cmd.protected && !a.guard.Authenticated(ctx) {
		return errNotLoggedIn
	}

	err := cmd.run(ctx, a, args[1:])
	if err != nil && a.sessionGone(err) {
		return errExpired
	}

	return err
}

func (a *app) sessionGone(err error) bool {
	if errors.Is(err, session.ErrSessionExpired) {
		return true
	}

	return errors.Is(err, client.ErrUnauthorized) && a.cl.Session.State() == session.StateLoggedOut
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *app) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %w", errUsage, fs.Name(), err)
	}

	if fs.NArg() > 0 {
		return fmt.Errorf("%w: %s: unexpected arguments %v", errUsage, fs.Name(), fs.Args())
	}

	return nil
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func required(fs *flag.FlagSet, names ...string) error {
	for _, n := range names {
		if fs.Lookup(n).Value.String() == "" {
			return fmt.Errorf("%w: %s: -%s is required", errUsage, fs.Name(), n)
		}
	}

	return nil
}

// --- auth ---

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	if err := required(fs, "email", "password"); err != nil {
		return err
	}

	if err := a.cl.Session.Login(ctx, *email, *password); err != nil {
		return err
	}

	_, err := fmt.Fprintln(a.out, "logged in")
	return err
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	if err := a.parse(a.flags("logout"), args); err != nil {
		return err
	}

	if err := a.cl.Session.Logout(ctx); err != nil {
		return err
	}

	_, err := fmt.Fprintln(a.out, "logged out")
	return err
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := a.flags("register")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password")
	confirm := fs.String("confirm", "", "password confirmation")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	if err := required(fs, "email", "password", "confirm"); err != nil {
		return err
	}

	out, err := a.cl.Auth.Register(ctx, *email, *password, *confirm)
	if err != nil {
		return err
	}

	return a.print(out)
}

func cmdVerifyEmail(ctx context.Context, a *app, args []string) error {
	fs := a.flags("verify-email")
	token := fs.String("token", "", "token from the verification link")
	uid := fs.String("uid", "", "uid from the verification link")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	if err := required(fs, "token", "uid"); err != nil {
		return err
	}

	if err := a.cl.Auth.VerifyEmail(ctx, *token, *uid); err != nil {
		return err
	}

	_, err := fmt.Fprintln(a.out, "email verified")
	return err
}

type status struct {
	State     string     `json:"state"`
	Access    bool       `json:"access"`
	Refresh   bool       `json:"refresh"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired"`
}

// cmdStatus показывает локальное состояние без обращения к серверу
// и без изменения хранилища.
func cmdStatus(ctx context.Context, a *app, args []string) error {
	if err := a.parse(a.flags("status"), args); err != nil {
		return err
	}

	st := status{State: a.cl.Session.State().String()}

	access, ok, err := a.cl.Store.Get(ctx, credstore.KeyAccess)
	if err != nil {
		return err
	}
	st.Access = ok && access != ""

	refresh, ok, err := a.cl.Store.Get(ctx, credstore.KeyRefresh)
	if err != nil {
		return err
	}
	st.Refresh = ok && refresh != ""

	if st.Access {
		claims, err := tokencodec.Decode(access)
		if err != nil {
			st.Expired = true
		} else {
			st.ExpiresAt = claims.ExpiresAt
			st.Expired = claims.Expired(a.now())
		}
	}

	return a.print(st)
}

func cmdVerify(ctx context.Context, a *app, args []string) error {
	if err := a.parse(a.flags("verify"), args); err != nil {
		return err
	}

	if err := a.cl.Session.Verify(ctx); err != nil {
		return err
	}

	_, err := fmt.Fprintln(a.out, "token is valid")
	return err
}

func cmdMe(ctx context.Context, a *app, args []string) error {
	if err := a.parse(a.flags("me"), args); err != nil {
		return err
	}

	u, err := a.cl.API.Me(ctx)
	if err != nil {
		return err
	}

	return a.print(u)
}

func cmdSummary(ctx context.Context, a *app, args []string) error {
	if err := a.parse(a.flags("summary"), args); err != nil {
		return err
	}

	s, err := a.cl.API.Summary(ctx)
	if err != nil {
		return err
	}

	return a.print(s)
}
