package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/telecare/telecare/internal/config"
	"github.com/telecare/telecare/internal/domain/billing"
	"github.com/telecare/telecare/internal/domain/consultation"
	"github.com/telecare/telecare/internal/domain/notes"
	"github.com/telecare/telecare/internal/domain/orders"
	"github.com/telecare/telecare/internal/domain/patient"
	"github.com/telecare/telecare/internal/domain/pharmacy"
	"github.com/telecare/telecare/internal/domain/session"
	"github.com/telecare/telecare/internal/platform/db"
	"github.com/telecare/telecare/internal/platform/middleware"
	"github.com/telecare/telecare/internal/platform/notification"
	"github.com/telecare/telecare/internal/platform/querycache"
	"github.com/telecare/telecare/internal/resource"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "telecare-server",
		Short: "Telecare clinical and administrative API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Cache. Redis when configured, otherwise an in-process store with an
	// idle-entry sweeper.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	var cacheStore querycache.Store
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		client := redis.NewClient(opts)
		rs := querycache.NewRedisStore(client, "telecare")
		if err := rs.Ping(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		cacheStore = rs
		logger.Info().Msg("using redis cache store")
	} else {
		ms := querycache.NewMemoryStore()
		ms.StartSweeper(sweepCtx, cfg.CacheSweep, cfg.CacheIdleEvict)
		cacheStore = ms
		logger.Info().Msg("using in-memory cache store")
	}
	cache := querycache.New(cacheStore, cfg.CacheTTL, logger)
	querycache.RegisterMetrics()

	// Notifications: log sink always, plus an in-memory feed the API exposes.
	feed := notification.NewMemorySink(200)
	notifier := notification.NewNotifier(notification.LogSink{Logger: logger}, feed)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	api := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	// Domain wiring: store -> resource -> service -> handler.
	patientRes := resource.New(resource.Descriptor{
		Name: "patients",
	}, patient.NewStore(pool), cache)
	patientSvc := patient.NewService(patientRes, notifier)
	patient.NewHandler(patientSvc).RegisterRoutes(api)

	noteRes := resource.New(resource.Descriptor{
		Name:      "notes",
		Immutable: []string{"patient_id", "author_id", "author_name"},
	}, notes.NewStore(pool), cache)
	noteSvc := notes.NewService(noteRes, notifier)
	notes.NewHandler(noteSvc).RegisterRoutes(api)

	consultationRes := resource.New(resource.Descriptor{
		Name:      "consultations",
		Immutable: []string{"patient_id"},
	}, consultation.NewStore(pool), cache)
	consultationSvc := consultation.NewService(consultationRes, notifier)
	consultation.NewHandler(consultationSvc).RegisterRoutes(api)

	orderRes := resource.New(resource.Descriptor{
		Name:      "orders",
		Immutable: []string{"patient_id"},
	}, orders.NewOrderStore(pool), cache)
	itemRes := resource.New(resource.Descriptor{
		Name:      "order-items",
		Immutable: []string{"order_id"},
	}, orders.NewItemStore(pool), cache)
	orderSvc := orders.NewService(orderRes, itemRes, orders.PgTxRunner(pool), notifier)
	orders.NewHandler(orderSvc).RegisterRoutes(api)

	pharmacyRes := resource.New(resource.Descriptor{
		Name: "pharmacies",
	}, pharmacy.NewStore(pool), cache)
	pharmacySvc := pharmacy.NewService(pharmacyRes, notifier)
	pharmacy.NewHandler(pharmacySvc).RegisterRoutes(api)

	sessionRes := resource.New(resource.Descriptor{
		Name:      "sessions",
		Immutable: []string{"patient_id", "consultation_id"},
	}, session.NewStore(pool), cache)
	sessionSvc := session.NewService(sessionRes, notifier)
	session.NewHandler(sessionSvc).RegisterRoutes(api)

	subscriptionRes := resource.New(resource.Descriptor{
		Name:      "subscriptions",
		Immutable: []string{"patient_id"},
	}, billing.NewSubscriptionStore(pool), cache)
	invoiceRes := resource.New(resource.Descriptor{
		Name:      "invoices",
		Immutable: []string{"subscription_id"},
	}, billing.NewInvoiceStore(pool), cache)
	billingSvc := billing.NewService(subscriptionRes, invoiceRes, notifier)
	billing.NewHandler(billingSvc).RegisterRoutes(api)

	notification.NewHandler(notifier, feed).RegisterRoutes(api)

	// Invalidation event stream; exempt from the request timeout by path.
	api.GET("/events", querycache.SSEHandler(cache))

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
