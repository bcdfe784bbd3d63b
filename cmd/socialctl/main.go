package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HammerMeetNail/socialsync/internal/api"
	"github.com/HammerMeetNail/socialsync/internal/cache"
	"github.com/HammerMeetNail/socialsync/internal/config"
	"github.com/HammerMeetNail/socialsync/internal/database"
	"github.com/HammerMeetNail/socialsync/internal/logging"
	"github.com/HammerMeetNail/socialsync/internal/middleware"
	"github.com/HammerMeetNail/socialsync/internal/services"
	"github.com/HammerMeetNail/socialsync/internal/session"
)

const sessionTTL = 30 * 24 * time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stdin, os.LookupEnv); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		logging.Debug("Command failed", map[string]interface{}{"error": err.Error()})
		stop()
		os.Exit(1)
	}
}

// run executes one command line and releases everything it opened.
func run(ctx context.Context, args []string, out io.Writer, in io.Reader, lookupEnv func(string) (string, bool)) error {
	a := &app{out: out, lookupEnv: lookupEnv}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	root.SetIn(in)
	return root.ExecuteContext(ctx)
}

// describe turns an error into the line shown to the user.
func describe(err error) string {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return "No data for this user"
	case errors.Is(err, services.ErrAuthentication) && api.ServerMessage(err) == "":
		return "Not signed in. Run 'socialctl login' first."
	}
	return services.UserMessage(err, err.Error())
}

// app is the state shared by every command of one invocation.
type app struct {
	out       io.Writer
	lookupEnv func(string) (string, bool)

	cfg     *config.Config
	session *session.Manager
	svc     *services.Services
	closers []func() error
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg

	logger := logging.Default
	if cfg.App.Debug {
		logging.SetDefaultLevel(logging.LevelDebug)
		logger.Debug("Debug logging enabled", map[string]interface{}{
			"env":      cfg.App.Environment,
			"base_url": cfg.API.BaseURL,
		})
	}

	store, err := a.sessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	a.session = session.NewManager(store)
	if err := a.session.Restore(ctx); err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}

	hc := &http.Client{
		Timeout: cfg.API.Timeout,
		Transport: middleware.Chain(nil,
			middleware.NewRequestID(),
			middleware.NewRequestLogger(logger),
			middleware.NewRateLimiter(cfg.API.RateLimit, cfg.API.RateBurst),
			middleware.NewSessionAuth(a.session),
		),
	}
	client, err := api.NewClient(cfg.API.BaseURL, api.WithHTTPClient(hc), api.WithUserAgent(cfg.API.UserAgent))
	if err != nil {
		return fmt.Errorf("creating api client: %w", err)
	}

	a.svc = services.New(services.Dependencies{
		API:       client,
		Session:   a.session,
		Cache:     cache.New(cache.WithDefaultTTL(cfg.Cache.TTL)),
		Avatar:    services.AvatarOptions{MaxBytes: cfg.Avatar.MaxBytes, Size: cfg.Avatar.Size},
		SearchTTL: cfg.Cache.SearchTTL,
	})
	a.closers = append(a.closers, func() error {
		a.svc.Close()
		return nil
	})
	return nil
}

func (a *app) sessionStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.Session.Backend {
	case config.SessionBackendMemory:
		return session.NewMemoryStore(), nil
	case config.SessionBackendRedis:
		logging.Debug("Connecting to Redis", map[string]interface{}{"addr": cfg.Redis.Addr()})
		rdb, err := database.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		return rdb.SessionStore(cfg.Session.RedisKey, sessionTTL), nil
	default:
		return session.NewFileStore(cfg.Session.File, cfg.Session.Secret), nil
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logging.Warn("Error during shutdown", map[string]interface{}{"error": err.Error()})
		}
	}
	a.closers = nil
}
