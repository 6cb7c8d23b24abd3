package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"pagetrust/config"
	"pagetrust/internal/autoscan"
	"pagetrust/internal/clients"
	"pagetrust/internal/clients/kafka_client"
	"pagetrust/internal/consumers"
	"pagetrust/internal/logging"
	"pagetrust/internal/monitoring"
	"pagetrust/internal/pipeline"
	"pagetrust/internal/store"
)

// The watcher consumes page-navigation events from Kafka and drives
// invalidation plus auto-scans, independently of the API server.
func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs
		slog.Warn("[Main] Shutdown signal received")
		cancel()
	}()

	cfg := config.FromEnv()

	kv, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("[Main] Failed to initialize store",
			slog.String("backend", cfg.StoreBackend),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	results := store.NewResultStore(kv)
	settings := store.NewSettingsStore(kv)

	client := clients.NewAnalysisClient(cfg.AnalysisAPIURL, cfg.AnalysisTimeout)

	healthy := &atomic.Bool{}
	healthy.Store(true)
	go monitoring.MonitorAnalysisServiceHealth(ctx, client, healthy)

	exec := pipeline.NewExecutor(client, results, pipeline.Config{
		ImageConcurrency: cfg.ImageConcurrency,
		LocalSentiment:   cfg.LocalSentiment,
	})
	scheduler := autoscan.NewScheduler(exec, results, settings, healthy)

	kafkaCfg := kafka_client.GetKafkaConfig()
	consumer, err := kafka_client.NewConsumer(kafkaCfg)
	if err != nil {
		slog.Error("[Main] Failed to create consumer",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer consumer.Close()

	consumers.StartNavigationConsumer(ctx, consumer, scheduler)
}

func buildStore(ctx context.Context, cfg config.Config) (store.KeyValueStore, func(), error) {
	switch cfg.StoreBackend {
	case config.STORE_BACKEND_VALKEY:
		s, err := store.NewValkeyStore(cfg.Valkey)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.STORE_BACKEND_DYNAMODB:
		s, err := store.NewDynamoStore(ctx, cfg.Dynamo)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		return store.NewMemoryStore(), func() {}, nil
	}
}
