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

	"connectrpc.com/connect"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/auth"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/cache"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/config"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/httpapi"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/jobs"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/limits"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/metrics"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/middleware"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/receipts"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/service"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/storage/sqlite"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/subscription"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/telemetry"
	apiv1 "github.com/Jaiharishan/Split-Generator-Backend/pkg/api/v1"
	"github.com/Jaiharishan/Split-Generator-Backend/pkg/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.SetupWithOptions(logging.Options{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: logging.Format(cfg.Logging.Format),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("Failed to flush traces", "error", err)
		}
	}()

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", cfg.Database.Path)

	summaries, closeCache, err := newSummaryCache(ctx, cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	blobs, err := newReceiptBlobs(ctx, cfg.Receipts)
	if err != nil {
		return err
	}

	m := metrics.New()
	gate := limits.NewGate(cfg.Quotas())
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)
	authenticator := auth.NewPasswordAuthenticator(store)

	receiptService := receipts.NewService(blobs, store, cfg.Receipts.MaxUploadBytes, m, logger)
	bills := service.NewBillService(store, gate, summaries, m, logger).WithReceipts(receiptService)
	subs := subscription.NewService(store, cfg.Stripe.PremiumPriceIDs, m, logger)

	router := mux.NewRouter()
	router.Use(middleware.HTTPMetrics(m))
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	// Interceptors run outermost first.
	authed := connect.WithInterceptors(
		middleware.MetricsInterceptor(m),
		middleware.RequireAuth(jwtManager),
		middleware.LoggingInterceptor(logger),
	)
	public := connect.WithInterceptors(
		middleware.MetricsInterceptor(m),
		middleware.OptionalAuth(jwtManager),
		middleware.LoggingInterceptor(logger),
	)
	accountPath, accountHandler := apiv1.NewAccountServiceHandler(service.NewAccountService(authenticator, jwtManager, store, gate, logger), public)
	router.PathPrefix(accountPath).Handler(accountHandler)

	billPath, billHandler := apiv1.NewBillServiceHandler(bills, authed)
	router.PathPrefix(billPath).Handler(billHandler)

	templatePath, templateHandler := apiv1.NewTemplateServiceHandler(service.NewTemplateService(store, gate, m, logger), authed)
	router.PathPrefix(templatePath).Handler(templateHandler)

	rest := httpapi.NewHandlers(store, bills, receiptService, subs, httpapi.WebhookConfig{
		Secret:    cfg.Stripe.WebhookSecret,
		Tolerance: cfg.Stripe.Tolerance,
	}, logger)
	rest.RegisterRoutes(router, middleware.RequireAuthHTTP(jwtManager))

	var handler http.Handler = router
	handler = middleware.CORS(cfg.Server.AllowedOrigin)(handler)
	handler = middleware.HTTPLogging(logger)(handler)
	handler = otelhttp.NewHandler(handler, "http.server")

	// h2c serves HTTP/2 without TLS for gRPC-style Connect clients.
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      h2c.NewHandler(handler, &http2.Server{}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	scheduler, err := jobs.New(subs, jobs.Config{
		ExpirySweep:    cfg.Jobs.ExpirySweep,
		EventPrune:     cfg.Jobs.EventPrune,
		EventRetention: cfg.Jobs.EventRetention,
	}, logger)
	if err != nil {
		return err
	}
	scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting", "address", cfg.Server.Addr, "version", version, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		if err := scheduler.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// newSummaryCache builds the in-process cache, backed by Redis when a URL
// is configured. The returned func releases the Redis connection.
func newSummaryCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (cache.SummaryCache, func(), error) {
	local := cache.NewLRU(cfg.Size, cfg.TTL)
	if cfg.RedisURL == "" {
		return local, func() {}, nil
	}

	shared, err := cache.NewRedisFromURL(ctx, cfg.RedisURL, cfg.TTL, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Summary cache backed by Redis")
	return cache.NewTiered(local, shared), func() { shared.Close() }, nil
}

// newReceiptBlobs selects S3 when a bucket is configured and the local
// directory otherwise.
func newReceiptBlobs(ctx context.Context, cfg config.ReceiptsConfig) (receipts.Blobs, error) {
	if cfg.S3Bucket == "" {
		return receipts.NewFileStore(cfg.Dir)
	}
	return receipts.NewS3Store(ctx, receipts.S3Config{
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		Endpoint:     cfg.S3Endpoint,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		UsePathStyle: cfg.S3UsePathStyle,
	})
}
