package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sitepulse/internal/authz"
	"sitepulse/internal/ch"
	"sitepulse/internal/config"
	"sitepulse/internal/geo"
	"sitepulse/internal/httpx"
	"sitepulse/internal/ingest"
	"sitepulse/internal/livestream"
	"sitepulse/internal/pipeline"
	"sitepulse/internal/privacy"
	"sitepulse/internal/ratelimit"
	"sitepulse/internal/sites"
	"sitepulse/internal/stats"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	registry, err := sites.LoadFile(cfg.SitesConfigPath)
	if err != nil {
		logger.Fatal("load sites registry", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := ch.New(ctx, cfg.ClickHouseDSN)
	if err != nil {
		logger.Fatal("clickhouse", zap.Error(err))
	}
	defer client.Close()
	if err := client.EnsureSchema(ctx); err != nil {
		logger.Fatal("ensure schema", zap.Error(err))
	}

	limiter := ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow,
		ratelimit.WithSweepInterval(cfg.SweepInterval))
	defer limiter.Close()

	sink := ingest.NewSink(client, cfg.BatchSize, cfg.BatchInterval, cfg.InsertTimeout, logger)
	defer func() { _ = sink.Close() }()

	broker := livestream.NewBroker()

	var locator geo.Locator = geo.Noop{}
	if cfg.GeoFromHeaders {
		locator = geo.EdgeHeaders{}
	}

	collector := ingest.NewHandler(
		registry,
		limiter,
		privacy.NewHasher(cfg.IdentitySalt),
		pipeline.NewNormalizer(cfg.PlaceholderHost),
		broker,
		sink,
		locator,
		cfg.BotPatterns,
		logger,
	)

	var authorizer authz.Authorizer = authz.AllowAll{}
	if cfg.AuthServiceURL != "" {
		authorizer = authz.NewHTTPAuthorizer(cfg.AuthServiceURL)
	} else {
		logger.Warn("AUTH_SERVICE_URL unset, dashboard reads are unauthenticated")
	}

	queries := stats.NewHandlers(stats.NewService(client), registry, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpx.NewHTTPMetrics("analytics_api").Handler())
	router.Use(httpx.CORSMiddleware(cfg.CORSAllowOrigins))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/v1/collect", collector.Collect)

	site := router.Group("/v1/sites/:site_id", authz.RequireSiteAccess(authorizer))
	queries.Register(site)
	site.GET("/live/ws", livestream.WSHandler(broker, logger))

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		logger.Info("analytics api listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	waitForSignal()
	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
