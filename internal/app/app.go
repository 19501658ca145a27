// Package app wires configuration, storage and services into the runnable
// serve, worker, migrate and healthcheck commands.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/passdesk/internal/auth"
	"github.com/hitoshi/passdesk/internal/config"
	"github.com/hitoshi/passdesk/internal/database"
	"github.com/hitoshi/passdesk/internal/handler"
	"github.com/hitoshi/passdesk/internal/i18n"
	"github.com/hitoshi/passdesk/internal/idcard"
	"github.com/hitoshi/passdesk/internal/live"
	"github.com/hitoshi/passdesk/internal/logger"
	"github.com/hitoshi/passdesk/internal/metrics"
	"github.com/hitoshi/passdesk/internal/middleware"
	"github.com/hitoshi/passdesk/internal/passport"
	"github.com/hitoshi/passdesk/internal/photo"
	"github.com/hitoshi/passdesk/internal/repository"
	"github.com/hitoshi/passdesk/internal/security"
	"github.com/hitoshi/passdesk/internal/user"
	"github.com/hitoshi/passdesk/internal/worker/cleanup"
	"github.com/hitoshi/passdesk/internal/worker/sweep"
)

const shutdownTimeout = 30 * time.Second

// Init installs the JSON logger on w and loads the configuration.
func Init(w io.Writer) (*config.Config, error) {
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if !logger.SetLevel(cfg.LogLevel) {
		slog.Warn("unknown log level, keeping info",
			slog.String("log_level", cfg.LogLevel),
		)
	}

	return cfg, nil
}

// Run is the entry point. args is os.Args[1:].
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck skips full initialization
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// runServe starts the API server and the change broker, and shuts both down
// when ctx is cancelled.
func runServe(ctx context.Context, cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	log := slog.Default()

	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	passportRepo := repository.NewPostgresPassportRepo(db)

	notifier, err := newNotifier(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer notifier.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mc := metrics.NewCollector(reg)

	ssrfGuard := security.NewSSRFGuard()
	encoder := photo.NewEncoder(cfg.PhotoMaxBytes)
	importer := photo.NewImporter(ssrfGuard, cfg.PhotoFetchTimeout, encoder)

	renderer, err := idcard.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to build card renderer: %w", err)
	}

	var oauthProvider auth.OAuthProvider
	if cfg.GoogleLoginEnabled() {
		oauthProvider = auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
	}
	authService := auth.NewService(
		oauthProvider, userRepo, identRepo, sessionRepo,
		auth.ServiceConfig{
			SessionMaxAge:  cfg.SessionMaxAge,
			AllowAnonymous: cfg.AllowAnonymousLogin,
		},
	)

	passportService := passport.NewService(
		passportRepo, notifier, security.NewTextSanitizer(), encoder, mc, log,
	)
	userService := user.NewService(userRepo, sessionRepo, passportRepo)

	broker := live.NewBroker(log)

	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitLogin),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            log,
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Metrics: mc,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(reg),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		PassportService: passportService,
		Changes:         broker,
		CardRenderer:    renderer,
		Negotiator:      i18n.NewNegotiator(cfg.DefaultLanguage),

		PhotoEncoder:  encoder,
		PhotoImporter: importer,

		UserService: userService,
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return broker.Run(gctx, notifier)
	})

	g.Go(func() error {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down API server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker runs the expiry sweep and the session cleanup until ctx is
// cancelled. The sweep gauge is exposed on a small /metrics listener.
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	log := slog.Default()

	passportRepo := repository.NewPostgresPassportRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)

	reg := prometheus.NewRegistry()
	mc := metrics.NewCollector(reg)

	scheduler := sweep.NewScheduler(passportRepo, mc, log)
	cleanupJob := cleanup.NewCleanupJob(sessionRepo, log)

	r := chi.NewRouter()
	r.Get("/health", handler.NewHealthHandler(db))
	r.Handle("/metrics", metrics.Handler(reg))
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("worker starting",
		slog.Duration("sweep_interval", cfg.SweepInterval),
		slog.Duration("session_cleanup_interval", cfg.SessionCleanupInterval),
		slog.String("addr", server.Addr),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cleanupJob.Start(gctx, cfg.SessionCleanupInterval)
		return nil
	})
	g.Go(func() error {
		scheduler.Start(gctx, cfg.SweepInterval)
		return nil
	})
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("worker listen error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down worker...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate applies every pending migration.
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.SchemaVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// newNotifier picks Redis pub/sub when REDIS_URL is set and PostgreSQL
// LISTEN/NOTIFY otherwise.
func newNotifier(ctx context.Context, cfg *config.Config, db *sql.DB, log *slog.Logger) (live.Notifier, error) {
	if cfg.RedisURL == "" {
		slog.Info("change notifications via postgres")
		return live.NewPGNotifier(db, cfg.DatabaseURL, log), nil
	}

	client, err := live.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("change notifications via redis")
	return live.NewRedisNotifier(client), nil
}

// runHealthcheck GETs /health on the local server. Used as the container
// health check where no shell is available.
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL hides the password and query of a database URL.
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	u.RawQuery = ""
	return u.Redacted()
}
