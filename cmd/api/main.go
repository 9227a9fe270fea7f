package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/shuttle-global/twilio-demo-app/internal/audit"
	"github.com/shuttle-global/twilio-demo-app/internal/cache"
	"github.com/shuttle-global/twilio-demo-app/internal/config"
	"github.com/shuttle-global/twilio-demo-app/internal/ivr"
	"github.com/shuttle-global/twilio-demo-app/internal/linkpage"
	"github.com/shuttle-global/twilio-demo-app/internal/metrics"
	"github.com/shuttle-global/twilio-demo-app/internal/shuttle"
	"github.com/shuttle-global/twilio-demo-app/internal/sms"
	"github.com/shuttle-global/twilio-demo-app/pkg/logger"
	"github.com/shuttle-global/twilio-demo-app/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local convenience; real deployments inject env directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Optional gateway lookup cache.
	var lookups *cache.Cache
	if cfg.Redis.Host != "" {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		lookups = cache.New(rdb, 0)
	}

	// Optional call event persistence.
	var auditSvc *audit.Service
	if cfg.DB.Host != "" {
		db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		auditSvc = audit.NewService(audit.NewPostgresRepo(db))
	}

	api := shuttle.NewClient(cfg.Shuttle.APIHost, lookups)
	tokens := linkpage.NewTokens(cfg.Link.Secret, cfg.Link.TTL)

	handlers := &ivr.Handlers{
		API: api,
		SMS: sms.NewSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken),
		Links: &linkpage.Links{
			GatewayHost:   cfg.Shuttle.APIHost,
			PublicBaseURL: cfg.Link.PublicBaseURL,
			Tokens:        tokens,
		},
		SMSFrom: cfg.Twilio.SMSFrom,
		Audit:   auditSvc,
	}

	page := &linkpage.PageHandler{
		SharedKey: cfg.SharedKey,
		Tokens:    tokens,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(metrics.Middleware())

	registerRoutes(r, handlers, page)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
