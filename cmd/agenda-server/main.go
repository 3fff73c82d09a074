package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"agendafacil/backend/internal/cache"
	"agendafacil/backend/internal/clock"
	"agendafacil/backend/internal/config"
	"agendafacil/backend/internal/events"
	"agendafacil/backend/internal/idempotency"
	"agendafacil/backend/internal/metrics"
	"agendafacil/backend/internal/service/booking"
	"agendafacil/backend/internal/service/schedule"
	"agendafacil/backend/internal/store/postgres"
	"agendafacil/backend/internal/telemetry"
	grpcTransport "agendafacil/backend/internal/transport/grpc"
)

const serviceName = "agenda-server"

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("grpc_addr", cfg.GRPCAddr),
		slog.String("log_level", cfg.LogLevel),
		slog.String("timezone", cfg.Location.String()),
		slog.String("cache_backend", cfg.CacheBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Error("tracing setup failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown failed", slog.Any("err", err))
		}
	}()

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	if cfg.DatabaseMigrate {
		applied, err := postgres.Migrate(ctx, db)
		if err != nil {
			log.Error("database migration failed", slog.Any("err", err))
			os.Exit(1)
		}
		log.Info("database migrated", slog.Any("applied", applied))
	}

	store, closeCache, err := openCache(ctx, cfg, log)
	if err != nil {
		log.Error("cache setup failed", slog.Any("err", err), slog.String("cache_backend", cfg.CacheBackend))
		os.Exit(1)
	}
	defer closeCache()

	publisher := openPublisher(cfg, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("event publisher close failed", slog.Any("err", err))
		}
	}()

	metrics.Register()

	clk := clock.System{}
	scheduleRepo := postgres.NewScheduleRepo(db)
	bookingRepo := postgres.NewBookingRepo(db)

	engine := booking.NewService(booking.Deps{
		Schedule:  scheduleRepo,
		Bookings:  bookingRepo,
		Cache:     store,
		Guard:     idempotency.NewGuard(store, cfg.IdempotencyTTL, clk),
		Clock:     clk,
		Publisher: publisher,
		Metrics:   metrics.Prometheus{},
		Log:       log,
	}, booking.Options{
		Location:      cfg.Location,
		MonthCacheTTL: cfg.MonthCacheTTL,
	})
	panel := schedule.NewService(scheduleRepo, bookingRepo, engine, clk, log)

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcTransport.RequestTimeoutInterceptor(cfg.GRPCRequestTimeout),
			grpcTransport.RateLimitInterceptor(grpcTransport.NewPeerLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst), log),
		),
	)
	grpcTransport.RegisterBookingEngineServer(grpcServer, grpcTransport.NewBookingServer(engine, log))
	grpcTransport.RegisterSchedulePanelServer(grpcServer, grpcTransport.NewPanelServer(panel, log))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(grpcTransport.BookingEngineServiceName, healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcTransport.SchedulePanelServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr))
		os.Exit(1)
	}

	metricsServer := newMetricsServer(cfg.MetricsAddr)

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	if metricsServer != nil {
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
		log.Info("metrics server started", slog.String("metrics_addr", cfg.MetricsAddr))
	}

	log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("server stopped with error", slog.Any("err", err))
		}
	}

	healthServer.Shutdown()
	shutdown(log, grpcServer, cfg.ShutdownTimeout)
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown failed", slog.Any("err", err))
		}
	}
}

func openCache(ctx context.Context, cfg config.Config, log *slog.Logger) (cache.Store, func(), error) {
	if cfg.CacheBackend != config.CacheBackendRedis {
		return cache.NewLocal(clock.System{}), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	log.Info("redis cache connected", slog.String("redis_addr", cfg.RedisAddr))
	return cache.NewRedis(client, "agenda:"), func() {
		if err := client.Close(); err != nil {
			log.Warn("redis close failed", slog.Any("err", err))
		}
	}, nil
}

func openPublisher(cfg config.Config, log *slog.Logger) events.Publisher {
	brokers := events.SplitBrokers(cfg.KafkaBrokers)
	if len(brokers) == 0 {
		log.Info("booking events disabled", slog.String("reason", "no_brokers"))
		return events.Nop{}
	}
	log.Info("booking events enabled", slog.Any("brokers", brokers), slog.String("topic", cfg.KafkaTopic))
	return events.NewKafkaPublisher(brokers, cfg.KafkaTopic, log)
}

func newMetricsServer(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func shutdown(log *slog.Logger, s *grpc.Server, timeout time.Duration) {
	log.Info("shutting down grpc server", slog.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
