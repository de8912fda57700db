package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	pb "github.com/blazerhq/blazer/gen/proto"
	"github.com/blazerhq/blazer/internal/v1/config"
	"github.com/blazerhq/blazer/internal/v1/health"
	"github.com/blazerhq/blazer/internal/v1/lobby"
	"github.com/blazerhq/blazer/internal/v1/logging"
	"github.com/blazerhq/blazer/internal/v1/middleware"
	"github.com/blazerhq/blazer/internal/v1/ratelimit"
	"github.com/blazerhq/blazer/internal/v1/session"
	"github.com/blazerhq/blazer/internal/v1/store"
	"github.com/blazerhq/blazer/internal/v1/tracing"
)

func main() {
	// Load .env file for local development.
	// Try multiple paths to handle different ways of running the app
	envPaths := []string{".env", "../../../.env", "../../.env"}
	var envLoaded bool
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("Loaded environment from", "path", path)
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		slog.Warn("No .env file found in any expected location, relying on environment variables")
	}

	cfg, err := config.ValidateEnv()
	if err != nil {
		slog.Error("Environment validation failed", "error", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.DevelopmentMode, cfg.LogLevel); err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// --- Tracing (optional) ---
	if cfg.OtelEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, "lobby", cfg.OtelEndpoint)
		if err != nil {
			slog.Error("Failed to initialize tracing", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				slog.Error("Failed to shut down tracer provider", "error", err)
			}
		}()
	}

	// --- Store ---
	kv, err := store.NewClient(store.Config{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	st := store.New(kv)

	// --- Lobby service ---
	registry := session.NewRegistry()
	lobbySrv, err := lobby.NewServer(ctx, st, registry, lobby.Config{
		RoomCapacity:       cfg.RoomCapacity,
		CommonRoomCapacity: cfg.CommonRoomCapacity,
	})
	if err != nil {
		slog.Error("Failed to create lobby server", "error", err)
		os.Exit(1)
	}

	// --- Rate limiting ---
	var limiter *ratelimit.RateLimiter
	if !cfg.DevelopmentMode {
		limiter, err = ratelimit.New(cfg.RateLimitPing, cfg.RateLimitRoom, kv.Redis())
		if err != nil {
			slog.Error("Failed to create rate limiter", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("Running in DEVELOPMENT MODE, rate limiting disabled")
	}

	// --- gRPC server ---
	unary := []grpc.UnaryServerInterceptor{middleware.UnaryCorrelation()}
	stream := []grpc.StreamServerInterceptor{middleware.StreamCorrelation()}
	if limiter != nil {
		unary = append(unary, limiter.UnaryInterceptor())
		stream = append(stream, limiter.StreamInterceptor())
	}

	grpcServer := grpc.NewServer(
		grpc.ForceServerCodec(pb.Codec{}),
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	)
	pb.RegisterLobbyServer(grpcServer, lobbySrv)

	lis, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		slog.Error("Failed to listen", "port", cfg.Port, "error", err)
		os.Exit(1)
	}

	go func() {
		slog.Info("Lobby gRPC server starting", "port", cfg.Port)
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC server stopped", "error", err)
			syscall.Kill(os.Getpid(), syscall.SIGTERM)
		}
	}()

	// --- Admin server (health + metrics) ---
	if !cfg.DevelopmentMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins(cfg.AllowedOrigins)
	router.Use(cors.New(corsConfig))

	healthHandler := health.NewHandler(st)
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	adminSrv := &http.Server{
		Addr:    ":" + cfg.AdminPort,
		Handler: router,
	}
	go func() {
		slog.Info("Admin server starting", "port", cfg.AdminPort)
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Admin server stopped", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting new RPCs and let live streams drain; force-stop the
	// stragglers when the deadline passes.
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
		slog.Info("gRPC server drained")
	case <-shutdownCtx.Done():
		slog.Warn("Shutdown deadline reached, force-stopping gRPC server")
		grpcServer.Stop()
	}

	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Admin server forced to shutdown", "error", err)
	}

	if err := kv.Close(); err != nil {
		slog.Error("Failed to close Redis connection", "error", err)
	} else {
		slog.Info("Redis connection closed")
	}

	slog.Info("Server exiting")
}

func allowedOrigins(raw string) []string {
	if raw == "" {
		return []string{"http://localhost:3000"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
