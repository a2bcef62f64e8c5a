package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/foodville/marketplace-api/internal/access"
	"github.com/foodville/marketplace-api/internal/asset"
	"github.com/foodville/marketplace-api/internal/config"
	"github.com/foodville/marketplace-api/internal/handler"
	"github.com/foodville/marketplace-api/internal/metrics"
	"github.com/foodville/marketplace-api/internal/middleware"
	"github.com/foodville/marketplace-api/internal/migrations"
	"github.com/foodville/marketplace-api/internal/notify"
	"github.com/foodville/marketplace-api/internal/repository"
	"github.com/foodville/marketplace-api/internal/service"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	if cfg.DB.AutoMigrate {
		if err := migrations.Up(cfg.DB.MigrateURL()); err != nil {
			log.Error("run migrations", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	publisher := notify.NewAMQPPublisher(amqpCh, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Queue, cfg.Notify.Brand, cfg.Notify.Currency, log)
	if err := publisher.Setup(); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Notifications
	hub := notify.NewHub(cfg.CORS.AllowOrigins, log)
	notifier := notify.NewFanout(log).Add("amqp", publisher).Add("websocket", hub)

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	storeRepo := repository.NewStoreRepository(dbPool)
	categoryRepo := repository.NewCategoryRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	feedbackRepo := repository.NewFeedbackRepository(dbPool)
	tx := repository.NewTransactor(dbPool)

	// Access control
	resolver := access.NewResolver(userRepo, redisClient, cfg.Cache.RoleTTL, log)
	roleSync := access.NewRoleSync(userRepo, resolver)

	media := asset.NewLocalStorage(cfg.Media.Root, cfg.Media.BaseURL, cfg.Media.MaxBytes)
	guard := service.NewRedisCheckoutGuard(redisClient, cfg.Cache.IdempotencyTTL)
	now := time.Now

	// Services
	accountSvc := service.NewAccountService(userRepo, cartRepo, tx, cfg.JWT.Secret, cfg.JWT.Expiration, now)
	storeSvc := service.NewStoreService(storeRepo, tx, roleSync, media, now, log)
	categorySvc := service.NewCategoryService(categoryRepo, storeRepo)
	productSvc := service.NewProductService(productRepo, categoryRepo, storeRepo, media, redisClient, cfg.Cache.ProductTTL, log)
	cartSvc := service.NewCartService(cartRepo, productRepo, tx, media)
	orderSvc := service.NewOrderService(orderRepo, cartRepo, storeRepo, tx, guard, notifier, media, now, log)
	feedbackSvc := service.NewFeedbackService(feedbackRepo, orderRepo, storeRepo)

	// Handlers
	handlers := handler.Handlers{
		Account:  handler.NewAccountHandler(accountSvc),
		Store:    handler.NewStoreHandler(storeSvc),
		Category: handler.NewCategoryHandler(categorySvc),
		Product:  handler.NewProductHandler(productSvc),
		Cart:     handler.NewCartHandler(cartSvc),
		Order:    handler.NewOrderHandler(orderSvc),
		Feedback: handler.NewFeedbackHandler(feedbackSvc),
		Feed:     handler.NewFeedHandler(hub),
		Health: handler.NewHealthHandler(
			handler.Check{Name: "postgres", Ping: dbPool.Ping},
			handler.Check{Name: "redis", Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
			handler.Check{Name: "rabbitmq", Ping: func(context.Context) error {
				if amqpConn.IsClosed() {
					return amqp.ErrClosed
				}
				return nil
			}},
		),
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, log)

	// Router
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log), metrics.Instrument())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORS.AllowOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.Static("/media", cfg.Media.Root)

	handler.Register(router, handlers, handler.Guards{
		Auth:         middleware.Authenticate(cfg.JWT.Secret, resolver),
		OptionalAuth: middleware.OptionalAuth(cfg.JWT.Secret, resolver),
		RateLimit:    limiter.Handler(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Websocket connections are hijacked and not tracked by Shutdown.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	cancel()
	log.Info("server stopped")
}
