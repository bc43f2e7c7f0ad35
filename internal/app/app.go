package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"

	"pizzeria-service/internal/config"
	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/gateway/yookassa"
	httpHandler "pizzeria-service/internal/handler/http"
	promMetrics "pizzeria-service/internal/metrics"
	mw "pizzeria-service/internal/middleware"
	"pizzeria-service/internal/repository/postgres"
	redisRepo "pizzeria-service/internal/repository/redis"
	"pizzeria-service/internal/service"
	grpcTransport "pizzeria-service/internal/transport/grpc"
	"pizzeria-service/internal/worker"
	"pizzeria-service/pkg/database"
	"pizzeria-service/pkg/hash"
	"pizzeria-service/pkg/jwt"
	"pizzeria-service/pkg/kafka"
)

const (
	jobTimeout          = 30 * time.Second
	rateLimiterMaxIdle  = 10 * time.Minute
	rateLimiterCleanup  = "@every 5m"
	gracefulStopTimeout = 15 * time.Second
)

type App struct {
	cfg           *config.Config
	log           *slog.Logger
	dbPool        *pgxpool.Pool
	redis         *goredis.Client
	publisher     domain.EventPublisher
	router        *gin.Engine
	server        *http.Server
	grpcServer    *grpcTransport.Server
	metricsServer *http.Server
	registry      *prometheus.Registry
	scheduler     *worker.Scheduler
}

func MustNewApp(cfg *config.Config, log *slog.Logger) *App {
	const op = "app.MustNewApp"
	log = log.With(slog.String("op", op))

	log.Info("Attempting to connect to the main database...")
	dbDSN := database.BuildDSN(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	dbPool, err := database.NewPostgresPool(context.Background(), dbDSN, log)
	if err != nil {
		log.Error("CRITICAL: Failed to initialize main database connection", slog.String("error", err.Error()))
		panic(fmt.Sprintf("failed to initialize database connection: %v", err))
	}
	log.Info("Successfully connected to the main database")

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "file://migrations"
		log.Warn("MIGRATIONS_PATH environment variable not set, using default local path", slog.String("path", migrationsPath))
	} else {
		log.Info("Using migrations path from MIGRATIONS_PATH env var", slog.String("path", migrationsPath))
	}

	log.Info("Attempting to apply database migrations...",
		slog.String("path", migrationsPath),
		slog.String("db", fmt.Sprintf("postgresql://%s:***@%s:%s/%s?sslmode=%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name, cfg.Database.SSLMode)),
	)
	runMigrations(log, migrationsPath, MigrationDatabaseURL(cfg.Database))

	application, err := NewApp(cfg, log, dbPool)
	if err != nil {
		dbPool.Close()
		log.Error("CRITICAL: Failed to initialize application", slog.String("error", err.Error()))
		panic(fmt.Sprintf("failed to initialize application: %v", err))
	}
	return application
}

// MigrationDatabaseURL собирает URL для golang-migrate из настроек БД.
func MigrationDatabaseURL(db config.Database) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.User, db.Password),
		Host:     db.Host + ":" + db.Port,
		Path:     "/" + db.Name,
		RawQuery: "sslmode=" + url.QueryEscape(db.SSLMode) + "&x-migrations-table=schema_migrations",
	}
	return u.String()
}

func NewApp(cfg *config.Config, log *slog.Logger, dbPool *pgxpool.Pool) (*App, error) {
	const op = "app.NewApp"
	log = log.With(slog.String("op", op))
	log.Info("Initializing application components...")

	minOrderAmount, err := decimal.NewFromString(cfg.Shop.MinOrderAmount)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid shop.min_order_amount %q: %w", op, cfg.Shop.MinOrderAmount, err)
	}
	allowList, err := yookassa.NewIPAllowList(cfg.YooKassa.AllowedIPs)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid yookassa.allowed_ips: %w", op, err)
	}

	registry := promMetrics.NewRegistry()
	metricsCollector := promMetrics.NewCollector(registry)
	metricsServer := promMetrics.RunMetricsServer(":"+cfg.Metrics.Port, registry)
	log.Info("Metrics server configured", slog.String("port", cfg.Metrics.Port))

	userRepo := postgres.NewUserRepository(dbPool, log)
	cityRepo := postgres.NewCityRepository(dbPool, log)
	catalogRepo := postgres.NewCatalogRepository(dbPool, log)
	addressRepo := postgres.NewAddressRepository(dbPool, log)
	cartRepo := postgres.NewCartRepository(dbPool, log)
	orderRepo := postgres.NewOrderRepository(dbPool, log)
	paymentRepo := postgres.NewPaymentRepository(dbPool, log)
	outboxRepo := postgres.NewOutboxRepository(dbPool, log)
	txManager := postgres.NewTxManager(dbPool, log)

	rdb, catalogCache := newCatalogCache(cfg.Redis, log)

	gateway := yookassa.NewClient(cfg.YooKassa.ShopID, cfg.YooKassa.SecretKey, cfg.YooKassa.BaseURL, cfg.YooKassa.Timeout, log)
	if cfg.YooKassa.ShopID == "" || cfg.YooKassa.SecretKey == "" {
		log.Warn("YooKassa credentials are not configured, payments will fail at the gateway")
	}

	tokens := jwt.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTttl)
	hasher := hash.NewBcryptHasher(cfg.Hasher.BcryptCost)

	authService := service.NewAuthService(log, tokens, userRepo, hasher, cfg.Auth.AdminEmails)
	catalogService := service.NewCatalogService(log, catalogRepo, cityRepo, catalogCache, cfg.Redis.TTL)
	addressService := service.NewAddressService(log, addressRepo, cityRepo, txManager)
	cartService := service.NewCartService(log, cartRepo, catalogRepo, txManager, cfg.Shop.MaxItemQuantity)
	orderService := service.NewOrderService(log, txManager, cartRepo, addressRepo, orderRepo, paymentRepo, outboxRepo, gateway, metricsCollector,
		service.OrderSettings{
			MinOrderAmount:   minOrderAmount,
			MaxItemQuantity:  cfg.Shop.MaxItemQuantity,
			DeliveryLeadTime: cfg.Shop.DeliveryLeadTime,
			ReturnURL:        cfg.YooKassa.ReturnURL,
		})
	paymentService := service.NewPaymentService(log, txManager, orderRepo, paymentRepo, outboxRepo, gateway, metricsCollector,
		service.PaymentSettings{
			VerifyWithAPI:  cfg.YooKassa.VerifyWithAPI,
			UnpaidOrderTTL: cfg.Shop.UnpaidOrderTTL,
			ReconcileBatch: cfg.Scheduler.ReconcileBatch,
		})
	adminOrderService := service.NewAdminOrderService(log, txManager, orderRepo, paymentRepo, userRepo, outboxRepo, gateway, metricsCollector)

	authHandler := httpHandler.NewAuthHandler(log, authService, cartService, cfg.Auth.JWTttl)
	catalogHandler := httpHandler.NewCatalogHandler(log, catalogService)
	addressHandler := httpHandler.NewAddressHandler(log, addressService)
	cartHandler := httpHandler.NewCartHandler(log, cartService)
	orderHandler := httpHandler.NewOrderHandler(log, orderService)
	adminOrderHandler := httpHandler.NewAdminOrderHandler(log, adminOrderService)
	webhookHandler := httpHandler.NewWebhookHandler(log, paymentService)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.HTTPServer.TrustedProxies); err != nil {
		return nil, fmt.Errorf("%s: invalid http.trusted_proxies: %w", op, err)
	}

	router.Use(mw.Recovery(log))
	logMiddleware := mw.NewLoggingMiddleware(log)
	router.Use(logMiddleware.LogRequest)
	router.Use(mw.PrometheusMiddleware(metricsCollector))
	authMiddleware := mw.NewAuthMiddleware(log, tokens)
	rateLimiter := mw.NewRateLimiter(log, cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	api := router.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", rateLimiter.Handler, authHandler.PostRegister)
			authGroup.POST("/login", rateLimiter.Handler, mw.CartToken, authHandler.PostLogin)
			authGroup.GET("/me", authMiddleware.Authorize, authHandler.GetMe)
		}

		api.GET("/categories", catalogHandler.GetCategories)
		api.GET("/categories/:slug/products", catalogHandler.GetCategoryProducts)
		api.GET("/products/:slug", catalogHandler.GetProduct)
		api.GET("/cities", catalogHandler.GetCities)

		addressGroup := api.Group("/addresses", authMiddleware.Authorize)
		{
			addressGroup.GET("", addressHandler.GetAddresses)
			addressGroup.POST("", addressHandler.PostAddress)
			addressGroup.PUT("/:id", addressHandler.PutAddress)
			addressGroup.DELETE("/:id", addressHandler.DeleteAddress)
			addressGroup.POST("/:id/default", addressHandler.PostDefaultAddress)
		}

		cartGroup := api.Group("/cart", authMiddleware.OptionalAuthorize, mw.CartToken)
		{
			cartGroup.GET("", cartHandler.GetCart)
			cartGroup.DELETE("", cartHandler.DeleteCart)
			cartGroup.POST("/items", cartHandler.PostCartItem)
			cartGroup.PATCH("/items/:variantId", cartHandler.PatchCartItem)
			cartGroup.DELETE("/items/:variantId", cartHandler.DeleteCartItem)
		}

		api.GET("/checkout", authMiddleware.Authorize, orderHandler.GetCheckout)

		orderGroup := api.Group("/orders", authMiddleware.Authorize)
		{
			orderGroup.GET("", orderHandler.GetOrders)
			orderGroup.POST("", orderHandler.PostOrder)
			orderGroup.GET("/:id", orderHandler.GetOrder)
			orderGroup.POST("/:id/pay", orderHandler.PostRetryPayment)
		}

		adminGroup := api.Group("/admin", authMiddleware.Authorize, mw.RequireRole(domain.RoleAdmin))
		{
			adminGroup.GET("/orders", adminOrderHandler.GetOrders)
			adminGroup.GET("/orders/active", adminOrderHandler.GetActiveOrders)
			adminGroup.GET("/orders/:id", adminOrderHandler.GetOrder)
			adminGroup.PATCH("/orders/:id/status", adminOrderHandler.PatchOrderStatus)
		}

		api.POST("/payments/yookassa/webhook", mw.RequireSourceIP(log, allowList), webhookHandler.PostYooKassa)
	}

	grpcServer := grpcTransport.NewServer(log, adminOrderService, cfg.GRPCServer.Port)
	log.Info("gRPC server configured", slog.String("port", cfg.GRPCServer.Port))

	publisher, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix)
	if err != nil && !errors.Is(err, kafka.ErrDisabled) {
		return nil, fmt.Errorf("%s: kafka publisher: %w", op, err)
	}

	scheduler := worker.NewScheduler(log)
	var eventPublisher domain.EventPublisher
	if publisher != nil {
		eventPublisher = publisher
		relay := worker.NewOutboxRelay(log, outboxRepo, publisher, cfg.Scheduler.OutboxBatchSize)
		if err := scheduler.Add("outbox-relay", cfg.Scheduler.OutboxRelay, jobTimeout, relay.Run); err != nil {
			return nil, err
		}
	} else {
		log.Warn("Kafka brokers are not configured, outbox relay is disabled")
	}
	if err := scheduler.Add("reconcile-payments", cfg.Scheduler.ReconcilePayments, jobTimeout, paymentService.ReconcileStale); err != nil {
		return nil, err
	}
	if err := scheduler.Add("rate-limiter-cleanup", rateLimiterCleanup, jobTimeout, func(context.Context) (int, error) {
		return rateLimiter.Cleanup(rateLimiterMaxIdle), nil
	}); err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPServer.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  1 * time.Minute,
	}
	log.Info("HTTP server configured", slog.String("port", cfg.HTTPServer.Port))

	log.Info("Application components initialized successfully")

	return &App{
		cfg:           cfg,
		log:           log,
		dbPool:        dbPool,
		redis:         rdb,
		publisher:     eventPublisher,
		router:        router,
		server:        httpServer,
		grpcServer:    grpcServer,
		metricsServer: metricsServer,
		registry:      registry,
		scheduler:     scheduler,
	}, nil
}

// newCatalogCache подключает Redis. Без адреса или при недоступном Redis каталог читается из БД напрямую.
func newCatalogCache(cfg config.Redis, log *slog.Logger) (*goredis.Client, domain.CatalogCache) {
	if cfg.Addr == "" {
		log.Info("Redis address is not configured, catalog cache disabled")
		return nil, redisRepo.NoopCache{}
	}

	rdb, err := redisRepo.NewClient(context.Background(), cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		log.Warn("Redis is unavailable, catalog cache disabled", slog.String("error", err.Error()))
		return nil, redisRepo.NoopCache{}
	}

	log.Info("Catalog cache connected", slog.String("addr", cfg.Addr), slog.Duration("ttl", cfg.TTL))
	return rdb, redisRepo.NewCatalogCache(rdb, log)
}

func runMigrations(log *slog.Logger, migrationsPath, databaseURL string) {
	const op = "app.runMigrations"
	log = log.With(slog.String("op", op))

	var m *migrate.Migrate
	var migrateErr error
	maxRetries := 5
	retryDelay := 3 * time.Second

	log.Info("Starting database migration process...")

	for attempt := 1; attempt <= maxRetries; attempt++ {
		m, migrateErr = migrate.New(migrationsPath, databaseURL)
		if migrateErr != nil {
			log.Warn("Failed to initialize migrate instance, retrying...",
				slog.Int("attempt", attempt), slog.Int("max_attempts", maxRetries),
				slog.String("error", migrateErr.Error()), slog.Duration("delay", retryDelay),
			)
			if attempt < maxRetries {
				time.Sleep(retryDelay)
			}
			continue
		}

		log.Info("Applying migrations...", slog.Int("attempt", attempt))
		migrateErr = m.Up()
		sourceErr, dbErr := m.Close()
		if sourceErr != nil {
			log.Error("Error closing migrate source connection", slog.String("error", sourceErr.Error()))
		}
		if dbErr != nil {
			log.Error("Error closing migrate database connection", slog.String("error", dbErr.Error()))
		}

		if migrateErr == nil {
			log.Info("Database migrations applied successfully.")
			return
		}
		if errors.Is(migrateErr, migrate.ErrNoChange) {
			log.Info("Database schema is up to date. No changes applied.")
			return
		}

		log.Warn("Failed to apply migrations, retrying...",
			slog.Int("attempt", attempt), slog.Int("max_attempts", maxRetries),
			slog.String("error", migrateErr.Error()), slog.Duration("delay", retryDelay),
		)
		if attempt < maxRetries {
			time.Sleep(retryDelay)
		}
	}

	log.Error("FATAL: Could not apply database migrations after multiple attempts", slog.String("error", migrateErr.Error()))
	panic(fmt.Sprintf("could not apply database migrations: %v", migrateErr))
}

func (a *App) GetRouter() *gin.Engine {
	return a.router
}

// Gatherer нужен тестам, чтобы читать метрики без HTTP сервера.
func (a *App) Gatherer() prometheus.Gatherer {
	return a.registry
}

func (a *App) Run() {
	const op = "App.Run"
	log := a.log.With(slog.String("op", op))
	errChan := make(chan error, 3)

	go func() {
		log.Info("Starting main HTTP server", slog.String("address", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server ListenAndServe error", slog.String("error", err.Error()))
			errChan <- fmt.Errorf("http server failed: %w", err)
		} else {
			log.Info("HTTP server stopped listening")
		}
	}()

	go func() {
		if err := a.grpcServer.Start(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("gRPC server start error", slog.String("error", err.Error()))
			errChan <- fmt.Errorf("grpc server failed: %w", err)
		} else {
			log.Info("gRPC server stopped listening")
		}
	}()

	go func() {
		log.Info("Starting Metrics server", slog.String("address", a.metricsServer.Addr))
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server ListenAndServe error", slog.String("error", err.Error()))
			errChan <- fmt.Errorf("metrics server failed: %w", err)
		} else {
			log.Info("Metrics server stopped listening")
		}
	}()

	a.scheduler.Start()
	log.Info("Background scheduler started")

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Error("Server failed to start or run, initiating shutdown", slog.String("error", err.Error()))
	case sig := <-shutdownChan:
		log.Info("Shutdown signal received, initiating graceful shutdown", slog.String("signal", sig.String()))
	}

	a.Shutdown()
}

// Shutdown останавливает приём запросов, затем фоновые задачи и закрывает соединения.
func (a *App) Shutdown() {
	log := a.log.With(slog.String("op", "App.Shutdown"))
	log.Info("Starting graceful shutdown...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulStopTimeout)
	defer shutdownCancel()

	a.grpcServer.Stop()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server graceful shutdown failed", slog.String("error", err.Error()))
	} else {
		log.Info("HTTP server stopped gracefully")
	}

	a.scheduler.Stop(shutdownCtx)

	if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Metrics server graceful shutdown failed", slog.String("error", err.Error()))
	} else {
		log.Info("Metrics server stopped gracefully")
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			log.Error("Kafka publisher close failed", slog.String("error", err.Error()))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Error("Redis client close failed", slog.String("error", err.Error()))
		}
	}

	log.Info("Closing database connection pool...")
	a.dbPool.Close()
	log.Info("Database connection pool closed")

	log.Info("Graceful shutdown completed")
}
