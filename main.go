package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	apirest "github.com/aprclub/aprclub/server/api/rest"
	"github.com/aprclub/aprclub/server/api/sse"
	"github.com/aprclub/aprclub/server/audit"
	"github.com/aprclub/aprclub/server/cache"
	"github.com/aprclub/aprclub/server/config"
	dbadapter "github.com/aprclub/aprclub/server/db"
	"github.com/aprclub/aprclub/server/ledger"
	mw "github.com/aprclub/aprclub/server/middleware"
	"github.com/aprclub/aprclub/server/model"
	"github.com/aprclub/aprclub/server/notify"
	"github.com/aprclub/aprclub/server/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(nil)

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Notifications / Aura ----
	dispatcher := notify.NewDispatcher(db, pubsub, logger)
	defer dispatcher.Stop()
	aura := notify.NewAura(db, logger)
	defer aura.Stop()

	// ---- Ledger Service ----
	ledgerSvc := ledger.NewService(db, c, cfg.Ledger, dispatcher, aura, logger)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	sched.AddTicker("bounty_expiry", cfg.Ledger.BountySweepInterval, func() {
		n, err := ledgerSvc.ExpireDueBounties(context.Background())
		if err != nil {
			logger.Error("bounty expiry sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("expired bounties", zap.Int("count", n))
		}
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	friendsH := apirest.NewFriendsHandler(ledgerSvc)
	workflowH := apirest.NewWorkflowHandler(ledgerSvc, auditSvc)
	notifH := apirest.NewNotificationHandler(db)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		friendsG := api.Group("/friendships")
		friendsG.Use(mw.Auth(cfg.Security, c))
		friendsG.GET("", friendsH.List)
		friendsG.POST("", friendsH.Create)
		friendsG.GET("/:id", friendsH.Get)
		friendsG.DELETE("/:id", friendsH.Delete)
		friendsG.POST("/:id/block", friendsH.Block)
		friendsG.POST("/:id/checkin", workflowH.Checkin)
		friendsG.POST("/:id/mercy", workflowH.FileMercy)
		friendsG.POST("/:id/bailout", workflowH.Bailout)

		mercyG := api.Group("/mercy")
		mercyG.Use(mw.Auth(cfg.Security, c))
		mercyG.POST("/:id/respond", workflowH.RespondMercy)

		bountyG := api.Group("/bounties")
		bountyG.Use(mw.Auth(cfg.Security, c))
		bountyG.POST("", workflowH.CreateBounty)
		bountyG.POST("/:id/claim", workflowH.ClaimBounty)
		bountyG.GET("/on/:userID", workflowH.ListBounties)

		notifG := api.Group("/notifications")
		notifG.Use(mw.Auth(cfg.Security, c))
		notifG.GET("", notifH.List)
		notifG.POST("/:id/read", notifH.MarkRead)
	}

	// ---- SSE notification stream ----
	sseH := sse.NewHandler(pubsub, c, cfg.Security, logger)
	r.GET("/sse", sseH.ServeSSE)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("HTTP server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
