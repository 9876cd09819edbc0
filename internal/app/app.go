package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/bazaar-checkout/internal/domain/auth"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
	"github.com/xenking/bazaar-checkout/internal/domain/payment"
	"github.com/xenking/bazaar-checkout/internal/domain/product"
	"github.com/xenking/bazaar-checkout/internal/handler"
	"github.com/xenking/bazaar-checkout/internal/notify"
	"github.com/xenking/bazaar-checkout/internal/razorpay"
	"github.com/xenking/bazaar-checkout/internal/storage/memory"
	"github.com/xenking/bazaar-checkout/internal/storage/postgres"
	"github.com/xenking/bazaar-checkout/pkg/health"
	"github.com/xenking/bazaar-checkout/pkg/httpmiddleware"
)

// storage bundles what the services need from a storage backend.
type storage struct {
	uow      order.UnitOfWork
	products product.Repository
	pinger   health.Pinger
	close    func()
}

func openStorage(ctx context.Context, lg *zap.Logger, cfg *Config) (*storage, error) {
	if cfg.Storage == StorageMemory {
		lg.Warn("Using in-memory storage, data is lost on restart")
		s := memory.New()
		return &storage{uow: s, products: s, close: func() {}}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	return &storage{
		uow:      postgres.NewUnitOfWork(pool),
		products: postgres.NewProductRepository(pool),
		pinger:   pool,
		close:    pool.Close,
	}, nil
}

// notificationChannels builds the enabled post-commit channels.
func notificationChannels(cfg *Config, m *app.Telemetry) ([]notify.Channel, error) {
	var channels []notify.Channel
	if cfg.SMTP.Host != "" {
		email, err := notify.NewEmail(notify.EmailConfig{
			FrontendURL: cfg.FrontendURL,
			Currency:    cfg.Currency,
		}, notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}))
		if err != nil {
			return nil, errors.Wrap(err, "email channel")
		}
		channels = append(channels, email)
	}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.AdminChatID != "" {
		channels = append(channels, notify.NewTelegram(notify.TelegramConfig{
			BotToken:    cfg.Telegram.BotToken,
			AdminChatID: cfg.Telegram.AdminChatID,
			BaseURL:     cfg.Telegram.BaseURL,
			Currency:    cfg.Currency,
		}, m.TracerProvider()))
	}
	return channels, nil
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
	)

	st, err := openStorage(ctx, lg, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	// Notifications.
	channels, err := notificationChannels(cfg, m)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		Workers:   cfg.Notify.Workers,
		QueueSize: cfg.Notify.QueueSize,
		Timeout:   cfg.Notify.Timeout,
	}, channels...)
	// Stopped only after the server stops accepting orders.
	notifyCtx, stopNotify := context.WithCancel(context.WithoutCancel(ctx))
	defer stopNotify()
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		if err := dispatcher.Run(notifyCtx); err != nil {
			lg.Error("Notification dispatcher stopped", zap.Error(err))
		}
	}()

	// Domain services.
	if cfg.Razorpay.KeySecret == "" {
		lg.Warn("Razorpay key secret is not set, Razorpay payments will fail verification")
	}
	orderService, err := order.NewService(st.uow,
		payment.NewSignatureVerifier([]byte(cfg.Razorpay.KeySecret)),
		order.WithNotifier(dispatcher),
		order.WithTracerProvider(m.TracerProvider()),
		order.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	var gateway payment.Gateway
	if cfg.Razorpay.KeyID != "" && cfg.Razorpay.KeySecret != "" {
		gateway = razorpay.New(razorpay.Config{
			KeyID:     cfg.Razorpay.KeyID,
			KeySecret: cfg.Razorpay.KeySecret,
			BaseURL:   cfg.Razorpay.BaseURL,
			Timeout:   cfg.Razorpay.Timeout,
		}, razorpay.WithTracerProvider(m.TracerProvider()))
	}

	// Health check service.
	healthSvc := health.New()
	if st.pinger != nil {
		healthSvc.Add(health.Check{
			Name:    "postgres",
			Kind:    health.Readiness,
			Timeout: 5 * time.Second,
			Func:    health.PingCheck(st.pinger),
		})
	}
	healthSvc.Add(health.Check{
		Name: "notifications",
		Kind: health.Readiness,
		Func: health.BacklogCheck(dispatcher.Backlog, cfg.Notify.QueueSize*9/10),
	})
	healthSvc.Add(health.Check{
		Name: "goroutines",
		Kind: health.Liveness,
		Func: health.GoroutineCountCheck(10000),
	})
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// HTTP handlers.
	h := handler.New(
		handler.Config{ImageBaseURL: cfg.ImageBaseURL, Currency: cfg.Currency},
		st.products,
		orderService,
		gateway,
		auth.NewTokens([]byte(cfg.JWTSecret)),
	)

	instrument, err := httpmiddleware.Instrument("bazaar-api", m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "instrument")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		instrument,
		httpmiddleware.LogRequests(),
	)
	healthSvc.Register(router)
	h.Register(router)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(router, "bazaar-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
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
		stopNotify()

		select {
		case <-dispatcherDone:
		case <-shutdownCtx.Done():
			lg.Warn("Notification backlog not drained", zap.Int("pending", dispatcher.Backlog()))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
