package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/verse91/clipy/internal/credits"
	"github.com/verse91/clipy/internal/handshake"
	"github.com/verse91/clipy/internal/identity"
	"github.com/verse91/clipy/internal/models"
	"github.com/verse91/clipy/internal/repositories"
	"github.com/verse91/clipy/internal/server"
	"github.com/verse91/clipy/internal/web"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 5 * time.Second

// frontend is the wired web front: the auth context, the message bus the callback publishes on and the router.
type frontend struct {
	auth    *identity.Auth
	client  *identity.Client
	flows   *identity.Flows
	bus     *handshake.Bus
	tracker *credits.Tracker
	limiter *server.RateLimiter
	router  *server.BasicRouter
	stop    func()
}

// newFrontend wires every route onto one router. withAPI adds the credits API backed by db.
func (r *Runner) newFrontend(ctx context.Context, db *sql.DB, withAPI bool) (*frontend, error) {
	auth, err := r.loadAuth(ctx, db)
	if err != nil {
		return nil, err
	}

	var provider server.Provider
	client, err := r.identityClient()
	if err != nil {
		r.logger.Warn("sign-in disabled", "error", err)
	} else {
		provider = client
	}

	origin := r.config.Server.Origin
	bus := handshake.NewBus()
	flows := identity.NewFlows(identity.DefaultFlowTTL)
	tracker := credits.NewTracker(r.creditsClient(), r.logger, nil)

	// The tracker follows the signed-in user so the navbar balance is current.
	follow := func(session *models.Session) {
		if session == nil || session.User == nil {
			tracker.SetUser(ctx, "", "")
			return
		}
		tracker.SetUser(ctx, session.User.ID, session.AccessToken)
	}
	unsubscribe := auth.Subscribe(func(event identity.Event, session *models.Session) {
		r.logger.Debug("auth event", "event", event)
		go follow(session)
	})
	go follow(auth.Session())

	pages, err := web.New(web.Options{
		Origin:      origin,
		CheckoutURL: r.config.Checkout.URL,
		Users:       auth,
		Balance:     tracker,
		SignOut:     auth,
		Logger:      r.logger,
	})
	if err != nil {
		unsubscribe()
		return nil, err
	}

	metrics, err := server.NewMetrics()
	if err != nil {
		unsubscribe()
		return nil, err
	}

	limiter := server.NewRateLimiter(r.config.Server.RateLimitRPS, r.config.Server.RateLimitBurst, r.logger)

	router := server.NewBasicRouter()
	router.Use(
		server.RequestID,
		server.Logger(r.logger),
		server.Recoverer(r.logger),
		server.CORS(r.config.Server.AllowedOrigins),
		limiter.Middleware(),
		metrics.Middleware(),
	)

	var profiles server.ProfileRecorder
	if withAPI {
		profiles = repositories.NewProfileRepository(db)
	}

	router.Handler(pages)
	router.Handler(server.NewSignInHandler(provider, flows, origin, pages, r.logger))
	router.Handler(server.NewCallbackHandler(server.CallbackConfig{
		Provider: provider,
		Flows:    flows,
		Sessions: auth,
		Profiles: profiles,
		Bus:      bus,
		Origin:   origin,
		Renderer: pages,
		Logger:   r.logger,
	}))
	router.Handle(http.MethodGet, "/health", http.HandlerFunc(server.Health))
	router.Handle(http.MethodGet, "/metrics", metrics.Handler())

	if withAPI {
		if r.config.Identity.JWTSecret == "" || r.config.API.AdminKey == "" {
			r.logger.Warn("credits API is missing JWT_SECRET or ADMIN_SECRET_KEY; affected routes will fail")
		}
		router.Handler(server.NewCreditsHandler(
			repositories.NewProfileRepository(db),
			r.config.Identity.JWTSecret,
			r.config.API.AdminKey,
			r.logger,
		))
	}

	return &frontend{
		auth:    auth,
		client:  client,
		flows:   flows,
		bus:     bus,
		tracker: tracker,
		limiter: limiter,
		router:  router,
		stop:    unsubscribe,
	}, nil
}

// run serves the frontend on ln until ctx is done, sweeping idle rate limit entries meanwhile.
func (r *Runner) run(ctx context.Context, ln net.Listener, f *frontend) error {
	srv := &http.Server{
		Handler:           f.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return f.limiter.Sweep(ctx, server.DefaultSweepInterval)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Serve runs the web front until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := r.newFrontend(ctx, db, cmd.Bool("api"))
	if err != nil {
		return err
	}
	defer f.stop()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	r.logger.Infof("serving clipy at %v", r.config.Server.Origin)
	if cmd.Bool("api") {
		r.logger.Info("credits API enabled", "prefix", "/api/v1")
	}
	if cmd.Bool("open") {
		if err := r.open(r.config.Server.Origin); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
		}
	}

	return r.run(ctx, ln, f)
}
