package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pix"
	"github.com/xenking/storefront/internal/events"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

const serviceName = "storefront-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
	)

	healthSvc := health.New()
	healthSvc.Register(health.Check{
		Name: "goroutines",
		Kind: health.Liveness,
		Fn:   health.GoroutineCountCheck(10000),
	})

	store, err := openStorage(ctx, cfg, healthSvc)
	if err != nil {
		return err
	}
	defer store.close()

	publisher, err := events.NewFromConfig(ctx, cfg.Events)
	if err != nil {
		return errors.Wrap(err, "create event publisher")
	}
	if cfg.Events.Enabled() {
		lg.Info("Publishing events",
			zap.String("queue_url", cfg.Events.QueueURL),
			zap.String("topic_arn", cfg.Events.TopicARN),
		)
	}

	metrics, err := coupon.NewMetrics(m.MeterProvider().Meter("storefront/coupon"))
	if err != nil {
		return errors.Wrap(err, "coupon metrics")
	}
	couponOpts := []coupon.Option{
		coupon.WithMetrics(metrics),
		coupon.WithPublisher(publisher),
	}
	if cfg.CodeFilter.Enabled {
		filter := coupon.NewCodeFilter(cfg.CodeFilter.Capacity, cfg.CodeFilter.FPRate)
		go filter.Run(ctx, store.coupons, cfg.CodeFilter.Interval)
		couponOpts = append(couponOpts, coupon.WithCodeFilter(filter))
	}

	couponSvc := coupon.NewService(store.coupons, couponOpts...)
	orderSvc := order.NewService(couponSvc, store.orders, store.tx, pix.NewGenerator(cfg.Pix),
		order.WithPublisher(publisher),
		order.WithTracerProvider(m.TracerProvider()),
	)

	h := handler.New(
		handler.Config{ImageBaseURL: cfg.ImageBaseURL},
		couponSvc,
		orderSvc,
		store.products,
		auth.NewAuthenticator(store.apiKeys, []byte(cfg.APIKeyPepper)),
	)
	router := h.Router(httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.CouponValidateMax,
		Window: cfg.RateLimit.Window,
	}))
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Recovery(),
			httpmiddleware.Instrument(serviceName, m),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				Origins:          cfg.CORS.Origins,
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
				Skip:   httpmiddleware.PathPrefix("/livez", "/readyz"),
			}),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
