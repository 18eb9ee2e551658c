package main

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicbook/clinicbook/internal/auth"
	"github.com/clinicbook/clinicbook/internal/booking"
	"github.com/clinicbook/clinicbook/internal/config"
	"github.com/clinicbook/clinicbook/internal/db"
	"github.com/clinicbook/clinicbook/internal/handlers"
	"github.com/clinicbook/clinicbook/internal/httpx"
	"github.com/clinicbook/clinicbook/internal/kafkax"
	"github.com/clinicbook/clinicbook/internal/model"
	"github.com/clinicbook/clinicbook/internal/otelx"
	"github.com/clinicbook/clinicbook/internal/outbox"
	"github.com/clinicbook/clinicbook/internal/runtime"
	"github.com/clinicbook/clinicbook/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "clinicbook")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
		MinConns: int32(config.Int("DB_MIN_CONNS", 1)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if dir := config.String("MIGRATIONS_DIR", ""); dir != "" {
		if err := pool.Migrate(ctx, dir); err != nil {
			logger.Error("migrations failed", "err", err)
			panic(err)
		}
	}

	outboxRepo := outbox.NewRepository(pool)
	repo := storage.NewRepository(pool, outboxRepo)

	if err := seedAdmin(ctx, repo); err != nil {
		logger.Error("admin bootstrap failed", "err", err)
		panic(err)
	}

	clinicTZ := config.String("CLINIC_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(clinicTZ)
	if err != nil {
		logger.Warn("invalid CLINIC_TIMEZONE, falling back to UTC", "value", clinicTZ)
		loc = time.UTC
	}

	svc := booking.New(repo, logger,
		booking.WithLocation(loc),
		booking.WithReminderOffsets(config.ReminderOffsets(config.String("REMINDER_OFFSETS_MINUTES", "1440,60"))),
	)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	handler := handlers.New(svc, repo, logger, handlers.Config{
		JWTSecret:                     jwtSecret,
		TokenTTL:                      time.Duration(config.Int("TOKEN_TTL_MINUTES", 24*60)) * time.Minute,
		StripeSecretKey:               config.String("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:           config.String("STRIPE_WEBHOOK_SECRET", ""),
		StripeWebhookToleranceSeconds: config.Int("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300),
		CheckoutSuccessURL:            config.String("CHECKOUT_SUCCESS_URL", ""),
		CheckoutCancelURL:             config.String("CHECKOUT_CANCEL_URL", ""),
		Currency:                      config.String("PAYMENT_CURRENCY", "usd"),
	})

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if kafkaBrokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)

	authAny := auth.Require(jwtSecret)
	adminOnly := auth.Require(jwtSecret, model.RoleAdmin)
	doctorOnly := auth.Require(jwtSecret, model.RoleDoctor)

	mux.HandleFunc("/api/v1/auth/register", handler.Register)
	mux.HandleFunc("/api/v1/auth/login", handler.Login)
	mux.HandleFunc("/api/v1/slots", handler.Slots)
	mux.Handle("/api/v1/doctors", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Listing is public; provisioning is admin-only.
		if r.Method == http.MethodGet {
			handler.Doctors(w, r)
			return
		}
		adminOnly(http.HandlerFunc(handler.Doctors)).ServeHTTP(w, r)
	}))
	mux.Handle("/api/v1/appointments", authAny(http.HandlerFunc(handler.Appointments)))
	mux.Handle("/api/v1/appointments/", authAny(http.HandlerFunc(handler.AppointmentByID)))
	mux.Handle("/api/v1/schedules", doctorOnly(http.HandlerFunc(handler.Schedules)))
	mux.Handle("/api/v1/schedules/", doctorOnly(http.HandlerFunc(handler.ScheduleByWeekday)))
	mux.Handle("/api/v1/payments/checkout", authAny(http.HandlerFunc(handler.CreateCheckout)))
	mux.HandleFunc("/api/v1/webhooks/stripe", handler.StripeWebhook)

	rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var limiter httpx.Middleware
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer rdb.Close()
		limiter = httpx.NewRedisRateLimiter(rdb, rateLimit, time.Minute, service).Middleware(logger, true)
	} else {
		limiter = httpx.NewMemoryRateLimiter(rateLimit, time.Minute).Middleware()
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(config.CommaList(config.String("CORS_ALLOWED_ORIGINS", ""))),
		httpx.WithBodyLimit(int64(config.Int("MAX_BODY_BYTES", 1<<20))),
		limiter,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, service)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// seedAdmin creates the bootstrap admin account when ADMIN_EMAIL and
// ADMIN_PASSWORD are configured. Doctors can only be provisioned by an
// admin, so a fresh deployment needs this seed.
func seedAdmin(ctx context.Context, repo *storage.Repository) error {
	email := config.String("ADMIN_EMAIL", "")
	password := config.String("ADMIN_PASSWORD", "")
	if email == "" || password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return repo.EnsureAdmin(ctx, model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         "Administrator",
		Role:         model.RoleAdmin,
	})
}
