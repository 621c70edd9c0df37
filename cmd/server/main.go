package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rewardpoints/internal/config"
	"rewardpoints/internal/handler"
	"rewardpoints/internal/infrastructure/cache"
	"rewardpoints/internal/infrastructure/database"
	"rewardpoints/internal/infrastructure/lock"
	"rewardpoints/internal/infrastructure/mq"
	"rewardpoints/internal/job"
	"rewardpoints/pkg/idgen"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the yaml config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("load .env")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	setupLogging(cfg.Log.Level)
	idgen.Init(cfg.Server.WorkerID)

	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}

	var (
		locker      lock.Locker
		revocations cache.RevocationList
	)
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(&cfg.Redis)
		if err != nil {
			log.WithError(err).Fatal("connect redis")
		}
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient, cfg.Business.LockTTL)
		revocations = cache.NewRedisRevocationList(redisClient)
	} else {
		log.Warn("redis disabled: using in-process account locks and token revocation")
		locker = lock.NewLocalLocker()
		revocations = cache.NewMemoryRevocationList()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Kafka.Enabled {
		producer, err := mq.NewKafkaProducer(&cfg.Kafka)
		if err != nil {
			log.WithError(err).Fatal("create kafka producer")
		}
		publisher := mq.NewKafkaPublisher(producer)
		defer publisher.Close()

		outboxSender := job.NewOutboxSender(db, publisher, cfg)
		go outboxSender.Start(ctx)
	} else {
		log.Warn("kafka disabled: outbox events stay pending")
	}

	h := handler.NewHandler(db, locker, revocations, cfg)

	if err := h.Catalog().SeedRewards(ctx, cfg.Catalog.Rewards); err != nil {
		log.WithError(err).Fatal("seed reward catalog")
	}

	reminder := job.NewRequestReminderJob(h.Requests(), cfg)
	if err := reminder.Start(ctx); err != nil {
		log.WithError(err).Fatal("start request reminder job")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler.SetupRouter(h, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	cancel()
	reminder.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}

	log.Info("server stopped")
}

func setupLogging(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, using info")
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
