package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"clinichat/internal/api"
	"clinichat/internal/availability"
	"clinichat/internal/config"
	"clinichat/internal/engine"
	"clinichat/internal/faq"
	"clinichat/internal/metrics"
	"clinichat/internal/reminders"
	"clinichat/internal/report"
	"clinichat/internal/session"
	"clinichat/internal/store"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("CLINICHAT_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	bookingStore, err := store.New(cfg.Database.Path, cfg.HoldTTL(), &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer bookingStore.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sessions live in memory; with redis configured they survive restarts and
	// memory becomes the failover.
	memory := session.NewMemoryStore(cfg.SessionTTL())
	memory.StartCleanup(ctx, cfg.SessionCleanupInterval())

	var sessions session.Repository = memory
	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sessions = session.NewFailoverRepository(
			session.NewRedisStore(rdb, cfg.SessionTTL()), memory, &logger)
	}

	generator := availability.NewGenerator(&cfg.Schedule, bookingStore)
	answerer := faq.NewKeywordAnswerer(nil)

	chat := engine.New(sessions, bookingStore, generator, answerer, &logger, engine.Options{
		MaxOfferedSlots:  cfg.MaxOfferedSlots(),
		AlternativeDates: cfg.AlternativeDates(),
		LookaheadDays:    cfg.LookaheadDays(),
	})

	bookingStore.StartHoldSweeper(ctx, time.Minute)

	if cfg.Reminders.Enabled {
		svc := reminders.NewService(bookingStore, &reminders.LogSender{Logger: &logger}, &logger, reminders.Options{
			Advance:    cfg.ReminderAdvance(),
			Sweep:      cfg.ReminderSweep(),
			RatePerSec: cfg.Reminders.SendRatePerSec,
			Burst:      cfg.Reminders.SendBurst,
		})
		svc.Start(ctx)
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, bookingStore, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	reporter := report.NewGenerator(bookingStore)
	server := api.NewHTTPServer(chat, bookingStore, generator, reporter, &logger, cfg.LookaheadDays())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Routes(),
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", cfg.Server.Port).Msg("clinichat server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("api server error")
	}
}

func startHealthServer(ctx context.Context, port int, bookingStore *store.Store, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := bookingStore.Ping(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
