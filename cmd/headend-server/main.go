package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/edirooss/headend-server/internal/analysis"
	"github.com/edirooss/headend-server/internal/channelcfg"
	"github.com/edirooss/headend-server/internal/config"
	"github.com/edirooss/headend-server/internal/execx"
	"github.com/edirooss/headend-server/internal/http/handler"
	mw "github.com/edirooss/headend-server/internal/http/middleware"
	"github.com/edirooss/headend-server/internal/metrics"
	"github.com/edirooss/headend-server/internal/repo"
	"github.com/edirooss/headend-server/internal/service"
	"github.com/edirooss/headend-server/internal/systemd"
	"github.com/edirooss/headend-server/internal/unit"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	handleVersion()

	// Read env
	isDev := os.Getenv("ENV") == "dev"

	cfgPath := "headend-server.yaml"
	if p := os.Getenv("HEADEND_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Create Zap logger
	log := buildLogger(isDev)
	defer log.Sync()
	log = log.Named("main")

	// Create Gin router
	if !isDev {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = zap.NewStdLog(log.Named("gin")).Writer()
	r := gin.New()

	// Wire the core
	rdb := buildRedisClient(cfg.RedisAddr, 0)
	runner := execx.NewExecRunner()
	mtr := metrics.NewCollector()

	resolver := unit.NewResolver(cfg.UnitTemplateMap())
	channels := repo.NewChannelRepository(log, rdb)
	ctrl := systemd.NewController(log, runner, resolver, mtr, systemd.ControllerOptions{
		Settle: cfg.ControlSettle(),
	})
	journal := systemd.NewJournalReader(log, runner)
	orch := service.NewOrchestrator(log, ctrl, channels, service.OrchestratorOptions{})

	analyzer := analysis.NewAnalyzer(log, runner, mtr, analysis.AnalyzerOptions{
		Bin:          cfg.Analyzer.Bin,
		QuickBin:     cfg.Analyzer.QuickBin,
		FeedTemplate: cfg.Analyzer.FeedTemplate,
		Window:       cfg.Analyzer.Window(),
		Timeout:      cfg.Analyzer.Timeout(),
	})
	cache := analysis.NewCache(log, analyzer, mtr, cfg.AnalysisCacheTTL())
	summary := service.NewAnalysisSummary(log, channels, analyzer, service.SummaryOptions{})

	applier := channelcfg.NewApplier(log, channels, ctrl)

	// Apply Gin middlewares
	{
		r.Use(gin.Recovery()) // Recovery first (outermost)
		r.Use(mw.RequestID())

		if isDev { // Enable CORS for local Vite dev
			r.Use(cors.New(cors.Config{
				AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
				AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowHeaders:     []string{"X-Request-ID", "Content-Type"},
				ExposeHeaders:    []string{"X-Request-ID", "X-Cache", "X-Summary-Generated-At"},
				AllowCredentials: true,
				MaxAge:           12 * time.Hour,
			}))
		} else { // Behind Nginx + TLS
			r.SetTrustedProxies([]string{"127.0.0.1"})
			r.Use(secure.New(secure.Config{
				SSLProxyHeaders: map[string]string{
					"X-Forwarded-Proto": "https",
				},
			}))
		}

		r.Use(accessLog(log))

		r.Use(func(c *gin.Context) {
			// Hard 1MB max request body; nothing here takes large payloads.
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
			c.Next()
		})
	}

	// Register route handlers
	{
		r.GET("/api/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))

		channelshndlr := handler.NewChannelsHandler(log, ctrl, orch, channels, resolver, journal)
		analysishndlr := handler.NewAnalysisHandler(log, cache, summary, channels)
		confighndlr := handler.NewConfigHandler(log, channels, applier)

		requireValidID := mw.RequireValidChannelID()

		// --- Head-end wide views ---
		r.GET("/api/channels/status", channelshndlr.StatusAll)
		r.GET("/api/analysis/summary", analysishndlr.Summary)

		// --- Per channel-service ---
		r.GET("/api/channels/:id/services/:kind", requireValidID, channelshndlr.GetServiceState)
		r.POST("/api/channels/:id/services/:kind/:action", requireValidID, channelshndlr.ControlService)
		r.GET("/api/channels/:id/services/:kind/logs", requireValidID, channelshndlr.GetServiceLogs)

		// --- Bulk control ---
		r.POST("/api/services/:kind/bulk", channelshndlr.BulkControl)

		// --- Analysis ---
		r.GET("/api/channels/:id/analysis", requireValidID, analysishndlr.GetChannelAnalysis)

		// --- Channel configuration ---
		r.GET("/api/channels/:id/config", requireValidID, confighndlr.GetConfig)
		r.PUT("/api/channels/:id/config", requireValidID, confighndlr.ApplyConfig)
	}

	httpsrv := &http.Server{
		Addr:              cfg.ListenAddr + ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 2 * time.Second,  // kills header-drip Slowloris
		ReadTimeout:       10 * time.Second, // full request read (incl. body)
		WriteTimeout:      60 * time.Second, // bulk calls can take a while
		IdleTimeout:       60 * time.Second, // keep-alive cap
		MaxHeaderBytes:    1 << 20,          // 1MB cap
	}

	log.Info("running HTTP server", zap.String("addr", httpsrv.Addr))
	if err := httpsrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server failed", zap.Error(err))
	}
	log.Info("server closed")
}

// handleVersion prints build metadata and exits when -v/--version is provided.
func handleVersion() {
	v := flag.Bool("v", false, "print version and exit")
	flag.BoolVar(v, "version", false, "print version and exit")
	flag.Parse()

	if *v {
		fmt.Printf("headend-server %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildDate)
		os.Exit(0)
	}
}

// accessLog records HTTP request/response details with Zap after handling.
func accessLog(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("access")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		var errs []error
		for _, ge := range c.Errors {
			if ge.Err != nil {
				errs = append(errs, ge.Err)
			}
		}
		joinedErr := errors.Join(errs...)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", latency),
			zap.String("request_id", mw.GetRequestID(c)),
		}
		if joinedErr != nil {
			fields = append(fields, zap.Error(joinedErr))
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// helpers

func buildLogger(isDev bool) *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	if isDev {
		logConfig.Level.SetLevel(zap.DebugLevel)
	} else {
		logConfig.Level.SetLevel(zap.InfoLevel)
	}
	return zap.Must(logConfig.Build())
}

func buildRedisClient(addr string, db int) *redis.Client {
	opts := &redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	}

	return redis.NewClient(opts)
}
