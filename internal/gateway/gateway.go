// ABOUTME: Gateway orchestrator that wires store, rotation engine, events, and HTTP server
// ABOUTME: Manages route registration, health endpoints, and the server lifecycle

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/2389/brokerage-crm/internal/auth"
	"github.com/2389/brokerage-crm/internal/config"
	"github.com/2389/brokerage-crm/internal/events"
	"github.com/2389/brokerage-crm/internal/metrics"
	"github.com/2389/brokerage-crm/internal/rotation"
	"github.com/2389/brokerage-crm/internal/store"
)

// Gateway orchestrates the crm-gateway server components.
type Gateway struct {
	config     *config.Config
	store      store.Store
	engine     *rotation.Engine
	publisher  events.Publisher
	verifier   *auth.JWTVerifier
	httpServer *http.Server
	logger     *slog.Logger

	// listener is set by Run once the HTTP address is bound
	listener net.Listener
	ready    chan struct{}
}

// initStore creates the store selected by database.driver.
func initStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		s, err = store.NewPostgresStore(ctx, cfg.Database.DSN)
	default:
		s, err = store.NewSQLiteStore(cfg.Database.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// initPublisher connects to RabbitMQ when events are enabled, otherwise
// assignments are only logged.
func initPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if !cfg.Events.Enabled {
		return events.NewNopPublisher(logger), nil
	}
	p, err := events.NewAMQPPublisher(ctx, events.ConnectionOptions{
		URL:           cfg.Events.AMQPURL,
		RetryAttempts: cfg.Events.RetryAttempts,
		Delay:         cfg.Events.RetryDelay,
		Logger:        logger,
	}, cfg.Events.Exchange)
	if err != nil {
		return nil, fmt.Errorf("initializing event publisher: %w", err)
	}
	return p, nil
}

// New creates a new Gateway instance with the given configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, err := initStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	publisher, err := initPublisher(ctx, cfg, logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	gw, err := newGateway(cfg, s, publisher, logger)
	if err != nil {
		publisher.Close()
		s.Close()
		return nil, err
	}
	return gw, nil
}

// newGateway builds a Gateway over an already opened store and publisher.
func newGateway(cfg *config.Config, s store.Store, publisher events.Publisher, logger *slog.Logger) (*Gateway, error) {
	mode := rotation.CursorMode(cfg.Rotation.CursorMode)
	if mode != "" && !mode.Valid() {
		return nil, fmt.Errorf("unknown cursor mode %q", cfg.Rotation.CursorMode)
	}

	gw := &Gateway{
		config:    cfg,
		store:     s,
		publisher: publisher,
		logger:    logger.With("component", "gateway"),
		ready:     make(chan struct{}),
	}

	gw.engine = rotation.NewEngine(rotation.Config{
		Store:      s,
		Publisher:  publisher,
		Mode:       mode,
		SettingKey: cfg.Rotation.SettingKey,
		Logger:     logger,
	})

	if cfg.Auth.JWTSecret != "" {
		verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		if err != nil {
			return nil, fmt.Errorf("creating HTTP JWT verifier: %w", err)
		}
		gw.verifier = verifier
	}

	mux := http.NewServeMux()

	// Health endpoints - no auth required
	mux.HandleFunc("/health", gw.handleHealth)
	mux.HandleFunc("/health/ready", gw.handleReady)

	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
		gw.logger.Info("metrics enabled", "path", cfg.Metrics.Path)
	}

	gw.registerHTTPAPIRoutes(mux)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// registerHTTPAPIRoutes registers API routes on the mux with or without auth middleware.
func (g *Gateway) registerHTTPAPIRoutes(mux *http.ServeMux) {
	protect := func(h http.Handler) http.Handler { return h }
	if g.verifier != nil {
		protect = auth.HTTPAuthMiddleware(g.verifier)
		g.logger.Info("HTTP auth middleware enabled")
	} else {
		g.logger.Warn("HTTP auth disabled - no jwt_secret configured")
	}
	admin := auth.RequireAdminHTTP()

	routes := map[string]http.Handler{
		"/leads/assign":          http.HandlerFunc(g.handleAssignLead),
		"/leads/assign-batch":    http.HandlerFunc(g.handleAssignBatch),
		"/api/team-members":      http.HandlerFunc(g.handleTeamMembers),
		"/api/team-members/{id}": http.HandlerFunc(g.handleTeamMember),
		"/api/leads":             http.HandlerFunc(g.handleLeads),
		"/api/leads/{id}":        http.HandlerFunc(g.handleLead),
		"/api/communications":    http.HandlerFunc(g.handleCommunications),
		"/api/properties":        http.HandlerFunc(g.handleProperties),
		"/api/rotation":          http.HandlerFunc(g.handleRotationStatus),
		"/api/rotation/reset":    admin(http.HandlerFunc(g.handleRotationReset)),
	}
	for pattern, h := range routes {
		mux.Handle(pattern, protect(h))
	}
}

// Handler returns the gateway's HTTP handler.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// Addr returns the bound HTTP address. It blocks until Run has bound the
// listener or ctx is done.
func (g *Gateway) Addr(ctx context.Context) (string, error) {
	select {
	case <-g.ready:
		return g.listener.Addr().String(), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Run starts the HTTP server and blocks until ctx is canceled or the server
// fails, then shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		_ = g.gracefulShutdown()
		return fmt.Errorf("listening on %s: %w", g.config.Server.HTTPAddr, err)
	}
	g.listener = ln
	close(g.ready)

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		g.logger.Info("context canceled, initiating shutdown")
		return g.gracefulShutdown()
	})

	return eg.Wait()
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// The run context is already canceled at this point.
func (g *Gateway) gracefulShutdown() error {
	timeout := g.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return g.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server and releases the publisher and store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))
	errs = appendCloseError(errs, "publisher close", g.publisher.Close())
	errs = appendCloseError(errs, "store close", g.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the store answers a ping.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := g.store.Ping(ctx); err != nil {
		g.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
