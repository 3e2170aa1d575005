package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/vet-scheduling/internal/appointment"
	"github.com/hackgods/vet-scheduling/internal/config"
	"github.com/hackgods/vet-scheduling/internal/db"
	"github.com/hackgods/vet-scheduling/internal/logger"
	"github.com/hackgods/vet-scheduling/internal/notify"
	redisclient "github.com/hackgods/vet-scheduling/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Service: "sweeper"}).Fatal("config load error", "error", err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Service: "sweeper"})
	log.Info("sweeper starting up",
		"env", cfg.Env,
		"interval", cfg.WorkerInterval,
		"confirmation_deadline", cfg.ConfirmationDeadline,
		"reminder_lead_time", cfg.ReminderLeadTime,
	)

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
		defer func() { _ = kafkaSender.Close() }()
		sender = kafkaSender
	}
	dispatcher := notify.NewDispatcher(sender, log, cfg.NotifyTimeout)
	defer dispatcher.Wait()

	svc := appointment.NewService(
		appointment.NewPgRepository(pgPool),
		redisclient.NewRedisDayLocker(rdb, cfg.LockTTL, cfg.LockWait),
		dispatcher,
		log,
		cfg,
	)

	// run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping sweeper")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, log *logger.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()

	cancelled, err := svc.AutoCancelStalePending(runCtx)
	if err != nil {
		log.Error("auto-cancel run error", "error", err)
	}

	reminded, err := svc.SendReminders(runCtx)
	if err != nil {
		log.Error("reminder run error", "error", err)
	}

	log.Info("sweep complete",
		"cancelled", cancelled,
		"reminded", reminded,
		"duration", time.Since(start),
	)
}
