// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"

	"github.com/carterperez-dev/flashdeck/internal/admin"
	"github.com/carterperez-dev/flashdeck/internal/ai"
	"github.com/carterperez-dev/flashdeck/internal/analytics"
	"github.com/carterperez-dev/flashdeck/internal/auth"
	"github.com/carterperez-dev/flashdeck/internal/config"
	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/deck"
	"github.com/carterperez-dev/flashdeck/internal/flashcard"
	"github.com/carterperez-dev/flashdeck/internal/health"
	"github.com/carterperez-dev/flashdeck/internal/jobs"
	"github.com/carterperez-dev/flashdeck/internal/mail"
	"github.com/carterperez-dev/flashdeck/internal/middleware"
	"github.com/carterperez-dev/flashdeck/internal/payment"
	"github.com/carterperez-dev/flashdeck/internal/server"
	"github.com/carterperez-dev/flashdeck/internal/study"
	"github.com/carterperez-dev/flashdeck/internal/subscription"
	"github.com/carterperez-dev/flashdeck/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, closeLog, err := setupLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	verifier, err := auth.NewVerifier(ctx, cfg.Identity, nil)
	if err != nil {
		return fmt.Errorf("identity verifier: %w", err)
	}
	logger.Info("identity verifier initialized",
		"algorithm", cfg.Identity.Algorithm,
		"jwks", cfg.Identity.JWKSURL != "",
	)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo, redis, logger)
	userHandler := user.NewHandler(userSvc)

	subscriptionSvc := subscription.NewService(userSvc)
	subscriptionHandler := subscription.NewHandler(
		subscriptionSvc,
		defaultCurrency(cfg.Payments),
	)

	cardRepo := flashcard.NewRepository(db.DB)
	cardSvc := flashcard.NewService(cardRepo, userSvc, ai.NewClient(cfg.AI, nil))
	cardHandler := flashcard.NewHandler(cardSvc, cfg.AI.MaxInputChars)

	deckSvc := deck.NewService(db, deck.NewRepository(db.DB), cardRepo, userSvc)
	deckHandler := deck.NewHandler(deckSvc)

	studySvc := study.NewService(db, study.NewRepository(db.DB), cardRepo)
	studyHandler := study.NewHandler(studySvc)

	analyticsHandler := analytics.NewHandler(
		analytics.NewService(analytics.NewRepository(db.DB)),
	)

	mailer := mail.New(cfg.Mail, logger)

	paymentSvc := payment.NewService(payment.ServiceConfig{
		DB:             db,
		Repo:           payment.NewRepository(db.DB),
		Users:          userRepo,
		Ensurer:        userSvc,
		Gateways:       enabledGateways(cfg.Payments),
		DefaultGateway: cfg.Payments.DefaultGateway,
		Claims:         redis,
		Mailer:         mailer,
		Logger:         logger,
	})
	paymentHandler := payment.NewHandler(paymentSvc)
	logger.Info("payment gateways configured", "gateways", paymentSvc.Gateways())

	identityWebhook := auth.NewWebhookHandler(cfg.Identity.WebhookSecret, userSvc, logger)

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		Users:      userSvc,
		Cards:      cardRepo,
		Payments:   paymentSvc,
	})

	scheduler := jobs.New(logger)
	if cfg.Jobs.Enabled {
		tasks := []jobs.Task{
			jobs.SubscriptionSweep(userSvc, cfg.Jobs.SubscriptionSweep, logger),
			jobs.JWKSRefresh(verifier, cfg.Jobs.JWKSRefresh),
			jobs.WebhookEventPurge(paymentSvc, cfg.Jobs.WebhookEventRetention, logger),
		}
		for _, task := range tasks {
			if err := scheduler.Add(task); err != nil {
				return err
			}
		}
		scheduler.Start()
	}

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	authenticator := middleware.Authenticator(verifier)
	syncUser := middleware.SyncUser(userSvc)
	adminOnly := middleware.RequireAdmin
	generateLimit := middleware.PlanRateLimiter(
		redis.Client,
		subscription.GenerationLimits,
		subscriptionSvc.PlanFor,
	)

	router.Route("/v1", func(r chi.Router) {
		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		subscriptionHandler.RegisterRoutes(r, authenticator)

		cardHandler.RegisterRoutes(r, authenticator, syncUser, generateLimit)
		deckHandler.RegisterRoutes(r, authenticator, syncUser)
		studyHandler.RegisterRoutes(r, authenticator, syncUser)
		analyticsHandler.RegisterRoutes(r, authenticator, syncUser, subscriptionSvc.RequirePro)
		paymentHandler.RegisterRoutes(r, authenticator, syncUser)

		if cfg.Identity.WebhookSecret != "" {
			identityWebhook.RegisterRoutes(r)
		}

		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if cfg.Jobs.Enabled {
		scheduler.Stop()
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func enabledGateways(cfg config.PaymentsConfig) []payment.Gateway {
	client := &http.Client{Timeout: 15 * time.Second}

	var gateways []payment.Gateway
	if cfg.Razorpay.Enabled {
		gateways = append(gateways, payment.NewRazorpay(cfg.Razorpay, client))
	}
	if cfg.Stripe.Enabled {
		gateways = append(gateways, payment.NewStripe(cfg.Stripe, client))
	}
	return gateways
}

func defaultCurrency(cfg config.PaymentsConfig) string {
	if cfg.DefaultGateway == payment.GatewayStripe {
		return cfg.Stripe.Currency
	}
	return cfg.Razorpay.Currency
}

// setupLogger writes to stdout and, when log.file_path is set, also to a
// daily rotated file. The returned func closes the file sink.
func setupLogger(cfg config.LogConfig) (*slog.Logger, func(), error) {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var out io.Writer = os.Stdout
	closeFn := func() {}

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}

		rotator, err := rotatelogs.New(
			cfg.FilePath+".%Y%m%d",
			rotatelogs.WithLinkName(cfg.FilePath),
			rotatelogs.WithMaxAge(cfg.MaxAge),
			rotatelogs.WithRotationTime(cfg.RotationTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}

		out = io.MultiWriter(os.Stdout, rotator)
		closeFn = func() {
			_ = rotator.Close() //nolint:errcheck // best-effort on exit
		}
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler), closeFn, nil
}
