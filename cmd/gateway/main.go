package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/apigate/internal/config"
	"github.com/benvon/apigate/internal/database"
	"github.com/benvon/apigate/internal/gateway"
	"github.com/benvon/apigate/internal/handlers"
	"github.com/benvon/apigate/internal/logger"
	"github.com/benvon/apigate/internal/middleware"
	"github.com/benvon/apigate/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	var zapLogger *zap.Logger
	if debugMode {
		zapLogger, err = logger.NewDevelopmentLogger(true)
	} else {
		zapLogger, err = logger.NewProductionLogger(false)
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_gateway",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("proxy_prefix", cfg.ProxyPrefix),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "apigate", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	if err := db.Migrate(context.Background()); err != nil {
		zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
	}
	zapLogger.Info("connected_to_database")

	// Connect to Redis for rate limit counters
	counterStore, err := gateway.NewRedisCounterStore(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := counterStore.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// Repositories
	keyRepo := database.NewAPIKeyRepository(db)
	serviceRepo := database.NewServiceRepository(db)
	logRepo := database.NewRequestLogRepository(db)

	// Service registry snapshot with periodic refresh
	registry, err := gateway.NewSnapshotRegistry(context.Background(), serviceRepo, zapLogger, 1*time.Minute)
	if err != nil {
		zapLogger.Fatal("failed_to_load_service_registry", zap.Error(err))
	}

	// Pipeline stages
	authenticator := gateway.NewAuthenticator(keyRepo, zapLogger)
	authenticator.SetLastUsedRecorder(keyRepo)
	limiter := gateway.NewRateLimiter(counterStore, zapLogger)
	router := gateway.NewRouter(registry)
	forwarder := gateway.NewForwarder(cfg.SensitiveHeaders, zapLogger)
	auditWriter := gateway.NewAuditWriter(logRepo, zapLogger, 0)
	pipeline := gateway.NewPipeline(authenticator, limiter, router, forwarder, auditWriter, zapLogger)

	// Handlers
	proxyHandler := handlers.NewProxyHandler(pipeline)
	healthHandler := handlers.NewHealthHandler(registry, forwarder)
	statsHandler := handlers.NewStatsHandler(logRepo, zapLogger)

	// Setup router
	r := mux.NewRouter()

	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware("apigate"))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.Recovery(zapLogger))
	r.Use(middleware.SecurityEvents(zapLogger))

	// Per-IP flood protection in front of everything, including
	// unauthenticated traffic. Per-key limits live inside the pipeline.
	floodMW, err := middleware.FloodLimit(counterStore.Client(), cfg.FloodLimitRate)
	if err != nil {
		zapLogger.Fatal("failed_to_create_flood_limiter", zap.Error(err))
	}
	r.Use(floodMW)

	// Operational endpoints: request logging and body size cap apply here,
	// not on the proxy path (proxied bodies are streamed to the backends).
	opsLogging := middleware.Logging(zapLogger)
	opsSize := middleware.MaxRequestSize(middleware.DefaultMaxRequestSize)

	opsRouter := r.NewRoute().Subrouter()
	opsRouter.Use(opsLogging, opsSize)
	healthHandler.RegisterRoutes(opsRouter)
	statsHandler.RegisterRoutes(opsRouter)

	// Proxy routes; the pipeline does its own request logging via the audit writer.
	proxyHandler.RegisterRoutes(r, cfg.ProxyPrefix)

	corsMW := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-API-Key"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: corsMW.Handler(r),
		// No WriteTimeout: proxied responses are bounded per-service by the
		// forwarder, and a global cap would cut off slow-but-legal backends.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB max header size
	}

	// Background loops: registry refresh and audit drain
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go registry.Start(bgCtx)
	go auditWriter.Start(bgCtx)

	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	// Stop background loops after in-flight requests finish so the audit
	// writer can flush its buffer.
	bgCancel()
	select {
	case <-auditWriter.Done():
	case <-time.After(10 * time.Second):
		zapLogger.Warn("audit_writer_flush_timed_out")
	}

	zapLogger.Info("server_exited")
}
