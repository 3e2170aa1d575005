package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/vet-scheduling/internal/api"
	"github.com/hackgods/vet-scheduling/internal/appointment"
	"github.com/hackgods/vet-scheduling/internal/auth"
	"github.com/hackgods/vet-scheduling/internal/availability"
	"github.com/hackgods/vet-scheduling/internal/calendar"
	"github.com/hackgods/vet-scheduling/internal/config"
	"github.com/hackgods/vet-scheduling/internal/credit"
	"github.com/hackgods/vet-scheduling/internal/db"
	"github.com/hackgods/vet-scheduling/internal/logger"
	"github.com/hackgods/vet-scheduling/internal/notify"
	redisclient "github.com/hackgods/vet-scheduling/internal/redis"
	"github.com/hackgods/vet-scheduling/internal/verification"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Service: "api-server"}).Fatal("config load error", "error", err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Service: "api-server"})
	log.Info("api-server starting up", "env", cfg.Env, "http_port", cfg.HTTPPort, "timezone", cfg.Location.String())

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolConfig{
		MaxConns: int32(cfg.PGMaxConns),
		MinConns: int32(cfg.PGMinConns),
	})
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", "error", err)
	}
	defer pgPool.Close()
	log.Info("connected to postgres")

	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		PoolSize: cfg.RedisPoolSize,
		Timeout:  cfg.RedisTimeout,
	})
	if err != nil {
		log.Fatal("redis connection error", "error", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", "error", err)
		}
	}()
	log.Info("connected to redis")

	var sender notify.Sender = notify.NewLogSender(log)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSender, err := notify.NewKafkaSender(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Fatal("kafka sender error", "error", err)
		}
		defer func() {
			if err := kafkaSender.Close(); err != nil {
				log.Warn("error closing kafka writer", "error", err)
			}
		}()
		sender = kafkaSender
		log.Info("publishing notifications to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	dispatcher := notify.NewDispatcher(sender, log, cfg.NotifyTimeout)

	slotSvc := availability.NewService(availability.NewPgRepository(pgPool), log, cfg.Location)
	calendarSvc := calendar.NewService(calendar.NewPgRepository(pgPool), log, cfg.CalendarMaxMonths)
	creditSvc := credit.NewService(credit.NewPgRepository(pgPool), log)
	appointmentSvc := appointment.NewService(
		appointment.NewPgRepository(pgPool),
		redisclient.NewRedisDayLocker(rdb, cfg.LockTTL, cfg.LockWait),
		dispatcher,
		log,
		cfg,
	)
	verificationSvc := verification.NewService(
		verification.NewPgRepository(pgPool),
		redisclient.NewCooldown(rdb),
		dispatcher,
		log,
		cfg.NotifyCooldown,
	)

	router := api.NewRouter(api.RouterConfig{
		Slots:        slotSvc,
		Calendar:     calendarSvc,
		Appointments: appointmentSvc,
		Credits:      creditSvc,
		Verification: verificationSvc,
		Tokens:       auth.NewTokenParser(cfg.JWTSecret),
		Health:       api.NewHealthHandler(pgPool, api.RedisPinger(rdb), cfg.Env, version),
		Log:          log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		log.Error("http server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", "error", err)
	}

	// let notifications for already-committed changes go out before the writer closes
	dispatcher.Wait()

	log.Info("api-server stopped")
}
