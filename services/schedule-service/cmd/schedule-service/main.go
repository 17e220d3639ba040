package main

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mkondo/clinicdesk/libs/config"
	"github.com/mkondo/clinicdesk/libs/db"
	"github.com/mkondo/clinicdesk/libs/httpx"
	"github.com/mkondo/clinicdesk/libs/kafkax"
	otelx "github.com/mkondo/clinicdesk/libs/otel"
	"github.com/mkondo/clinicdesk/libs/runtime"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/consumer"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/docstore"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/handlers"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/inbox"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/model"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/outbox"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/persist"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/roster"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/session"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/timegrid"
)

// demoStaff backs the grid when no roster service is configured.
var demoStaff = []model.StaffMember{
	{ID: "staff-1", Name: "Dr. Aoki", Color: "#80c0ff", Category: "doctor", SortOrder: 1, Active: true},
	{ID: "staff-2", Name: "Dr. Ito", Color: "#ffc080", Category: "doctor", SortOrder: 2, Active: true},
	{ID: "staff-3", Name: "Ns. Sato", Color: "#a0e0a0", Category: "nurse", SortOrder: 3, Active: true},
}

func main() {
	service := config.String("SERVICE_NAME", "schedule-service")
	port, err := config.Port("PORT", "8084")
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

	var readyChecks []runtime.ReadyCheck

	// Document store: Postgres in production, in-memory when no DATABASE_URL
	// is set (local development and the pointer simulator).
	var (
		store docstore.Store
		pool  *db.Pool
	)
	brokers := config.String("KAFKA_BROKERS", "")
	if dbURL := config.String("DATABASE_URL", ""); dbURL != "" {
		pool, err = db.Open(ctx, dbURL)
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})

		outboxRepo := outbox.NewRepository(pool)
		store = docstore.NewPostgres(pool, outboxRepo)

		outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   brokers,
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		go outboxPublisher.Run(ctx)
		if brokers != "" {
			readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
		}
	} else {
		logger.Warn("no DATABASE_URL; using in-memory document store")
		store = docstore.NewMemory()
	}

	var rdb *redis.Client
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		redisDB := 0
		if v, err := strconv.Atoi(config.String("REDIS_DB", "0")); err == nil && v >= 0 {
			redisDB = v
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()
	}

	rosterProvider, err := roster.NewProvider(logger,
		config.String("ROSTER_BASE_URL", ""),
		config.String("ROSTER_GRPC_ADDR", ""),
		demoStaff)
	if err != nil {
		logger.Error("roster provider init failed; using static fallback", "err", err)
		rosterProvider = roster.NewStaticProvider(demoStaff)
	}
	var rosterCache *roster.CachedProvider
	if rdb != nil {
		rosterCache = roster.NewCachedProvider(rosterProvider, rdb,
			config.Duration("ROSTER_CACHE_TTL", 5*time.Minute), logger)
		rosterProvider = rosterCache
	}

	syncer := persist.NewSyncer(store, logger)
	manager := session.NewManager(syncer, rosterProvider, logger, session.Config{
		Week:          parseWeek(logger),
		DayStart:      parseTime(logger, "BUSINESS_OPEN", timegrid.DefaultDayStart),
		DayEnd:        parseTime(logger, "BUSINESS_CLOSE", timegrid.DefaultDayEnd),
		SlotMinutes:   config.Int("SLOT_MINUTES", timegrid.DefaultSlotMinutes),
		ArmDelay:      config.Duration("DRAG_ARM_DELAY", 0),
		UndoDepth:     config.Int("UNDO_DEPTH", 0),
		TTL:           config.Duration("SESSION_TTL", 30*time.Minute),
		SweepInterval: config.Duration("SESSION_SWEEP_INTERVAL", time.Minute),
		MaxDays:       config.Int("MAX_WINDOW_DAYS", 7),
	})
	go manager.Run(ctx)

	// Roster change events drop the cached staff list.
	if pool != nil && brokers != "" && rosterCache != nil {
		eventConsumer := consumer.New(logger, inbox.NewRepository(pool), rosterCache, consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", "schedule-service"),
			Topic:   config.String("KAFKA_CONSUME_TOPIC", consumer.EventStaffUpdated),
		})
		go eventConsumer.Run(ctx)
	}

	sessionHandler := handlers.NewSessionHandler(manager, logger)
	rangeHandler := handlers.NewRangeHandler(syncer, logger)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/sessions", sessionHandler.Open)
	mux.HandleFunc("/api/v1/sessions/close", sessionHandler.Close)
	mux.HandleFunc("/api/v1/sessions/pointer", sessionHandler.Pointer)
	mux.HandleFunc("/api/v1/sessions/appointments", sessionHandler.Appointments)
	mux.HandleFunc("/api/v1/sessions/appointments/update", sessionHandler.UpdateAppointment)
	mux.HandleFunc("/api/v1/sessions/appointments/delete", sessionHandler.DeleteAppointment)
	mux.HandleFunc("/api/v1/sessions/undo", sessionHandler.Undo)
	mux.HandleFunc("/api/v1/appointments", rangeHandler.List)

	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var rateLimitMW httpx.Middleware
	if rdb != nil {
		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl:schedule"))
		rateLimitMW = rl.Middleware(logger, true)
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	// The front-desk console talks to this service from the browser.
	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: splitList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: splitList("GET,POST,OPTIONS"),
			AllowedHeaders: splitList("Content-Type,X-Request-Id"),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		rateLimitMW,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "schedule")
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

func parseTime(logger *slog.Logger, key string, fallback timegrid.TimeOfDay) timegrid.TimeOfDay {
	raw := strings.TrimSpace(config.String(key, ""))
	if raw == "" {
		return fallback
	}
	t, err := timegrid.ParseTimeOfDay(raw)
	if err != nil {
		logger.Warn("invalid time of day; using default", "key", key, "value", raw)
		return fallback
	}
	return t
}

// parseWeek builds the weekly business hours from the environment. Break and
// last-reception settings apply to every open day; weekdays listed in
// CLOSED_WEEKDAYS (0=Sunday) are closed outright.
func parseWeek(logger *slog.Logger) timegrid.WeekSchedule {
	open := parseTime(logger, "BUSINESS_OPEN", timegrid.DefaultDayStart)
	closeAt := parseTime(logger, "BUSINESS_CLOSE", timegrid.DefaultDayEnd)
	lastReception := parseTime(logger, "LAST_RECEPTION", timegrid.NewTimeOfDay(18, 30))

	var brk *timegrid.Interval
	breakStart := parseTime(logger, "BREAK_START", timegrid.NewTimeOfDay(13, 0))
	breakEnd := parseTime(logger, "BREAK_END", timegrid.NewTimeOfDay(14, 0))
	if breakEnd > breakStart {
		brk = &timegrid.Interval{Start: breakStart, End: breakEnd}
	}

	closed := map[int]bool{}
	for _, part := range strings.Split(config.String("CLOSED_WEEKDAYS", "0"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		day, err := strconv.Atoi(part)
		if err != nil || day < 0 || day > 6 {
			logger.Warn("invalid closed weekday", "value", part)
			continue
		}
		closed[day] = true
	}

	var week timegrid.WeekSchedule
	for day := range week {
		week[day] = timegrid.BusinessHours{
			Open:          open,
			Close:         closeAt,
			Break:         brk,
			LastReception: lastReception,
			Closed:        closed[day],
		}
	}
	return week
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
