package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Sophie-Muchiri12/rentmg/internal/api"
	"github.com/Sophie-Muchiri12/rentmg/internal/auth"
	"github.com/Sophie-Muchiri12/rentmg/internal/config"
	"github.com/Sophie-Muchiri12/rentmg/internal/db"
	"github.com/Sophie-Muchiri12/rentmg/internal/middleware"
	"github.com/Sophie-Muchiri12/rentmg/internal/models"
	"github.com/Sophie-Muchiri12/rentmg/internal/mpesa"
	"github.com/Sophie-Muchiri12/rentmg/internal/observ"
	"github.com/Sophie-Muchiri12/rentmg/internal/payments"
	"github.com/Sophie-Muchiri12/rentmg/internal/repository/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	observ.RegisterMetrics()

	// Startup has no request deadline; connect with the root context.
	database, err := db.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	revocations := auth.NewRedisRevocations(rdb)

	pool := database.Pool()
	userRepo := postgres.NewUserStore(pool)
	propertyRepo := postgres.NewPropertyStore(pool)
	unitRepo := postgres.NewUnitStore(pool)
	leaseRepo := postgres.NewLeaseStore(pool)
	paymentRepo := postgres.NewPaymentStore(pool)
	issueRepo := postgres.NewIssueStore(pool)

	gateway := mpesa.NewClient(cfg.Mpesa, logger)
	paymentService := payments.NewService(paymentRepo, leaseRepo, gateway, logger)

	authHandler := api.NewAuthHandler(userRepo, revocations, cfg.JWTSecret, cfg.TokenTTL, logger)
	propertyHandler := api.NewPropertyHandler(propertyRepo, unitRepo, leaseRepo, logger)
	unitHandler := api.NewUnitHandler(unitRepo, propertyRepo, logger)
	leaseHandler := api.NewLeaseHandler(leaseRepo, unitRepo, userRepo, logger)
	paymentHandler := api.NewPaymentHandler(paymentService, logger)
	issueHandler := api.NewIssueHandler(issueRepo, logger)

	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery(), observ.MetricsMiddleware())

	logger.Info("starting RentMG",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	// Public surface: health for load balancers, the metrics scrape
	// endpoint, auth entry points, and the gateway callback (the gateway
	// cannot present our tokens; correlation is by checkout id only).
	srv.GET("/v1/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	srv.GET("/metrics", gin.WrapH(observ.MetricsHandler()))
	srv.POST("/v1/auth/register", authHandler.Register)
	srv.POST("/v1/auth/login", authHandler.Login)
	srv.POST("/v1/payments/mpesa/callback", paymentHandler.Callback)

	v1 := srv.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret, revocations))

	v1.POST("/auth/logout", authHandler.Logout)
	v1.GET("/auth/me", authHandler.Me)

	ownerOnly := middleware.RequireRole(models.RoleLandlord, models.RolePropertyManager)

	v1.POST("/properties", ownerOnly, propertyHandler.Create)
	v1.GET("/properties", propertyHandler.List)
	v1.GET("/properties/:id", propertyHandler.GetByID)
	v1.GET("/properties/:id/units", propertyHandler.Units)
	v1.GET("/properties/:id/tenants", propertyHandler.Tenants)
	v1.GET("/properties/:id/summary", propertyHandler.Summary)

	v1.POST("/units", ownerOnly, unitHandler.Create)
	v1.GET("/units/:id", unitHandler.GetByID)

	v1.POST("/leases", ownerOnly, leaseHandler.Create)
	v1.GET("/leases", leaseHandler.List)
	v1.GET("/leases/:id", leaseHandler.GetByID)
	v1.PATCH("/leases/:id/status", ownerOnly, leaseHandler.UpdateStatus)

	v1.POST("/payments/mpesa/initiate", paymentHandler.Initiate)
	v1.GET("/payments", paymentHandler.List)
	v1.GET("/payments/:id", paymentHandler.GetByID)
	v1.POST("/payments", ownerOnly, paymentHandler.RecordManual)
	v1.POST("/payments/:id/cancel", ownerOnly, paymentHandler.Cancel)

	v1.POST("/issues", issueHandler.Create)
	v1.GET("/issues", issueHandler.List)
	v1.GET("/issues/:id", issueHandler.GetByID)
	v1.PATCH("/issues/:id", issueHandler.Update)

	return srv.Run(":" + cfg.Port)
}
