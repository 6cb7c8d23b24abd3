package main

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"pagetrust/config"
	"pagetrust/internal/api"
	"pagetrust/internal/autoscan"
	"pagetrust/internal/clients"
	"pagetrust/internal/clients/kafka_client"
	"pagetrust/internal/logging"
	"pagetrust/internal/models"
	"pagetrust/internal/monitoring"
	"pagetrust/internal/pipeline"
	"pagetrust/internal/qa"
	"pagetrust/internal/store"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	var publish func(models.NavigationEvent) error
	if cfg.KafkaEnabled {
		kafkaCfg := kafka_client.GetKafkaConfig()
		for {
			err := kafka_client.InitProducer(kafkaCfg)
			if err == nil {
				break
			}
			slog.Warn("Kafka init failed, retrying...", slog.String("error", err.Error()))
			time.Sleep(5 * time.Second)
		}
		defer kafka_client.CloseProducer()
		publish = kafka_client.PublishNavigation
	}

	var answerer *qa.Answerer
	if cfg.OpenAIAPIKey != "" {
		answerer = qa.NewAnswerer(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}

	engine := api.New(api.Deps{
		Executor:          exec,
		Results:           results,
		Settings:          settings,
		Client:            client,
		Scheduler:         scheduler,
		PublishNavigation: publish,
		Answerer:          answerer,
		Healthy:           healthy,
	})

	slog.Info("[Main] Starting API server",
		slog.String("addr", cfg.HTTPAddr),
		slog.String("store", cfg.StoreBackend),
		slog.Bool("kafka", cfg.KafkaEnabled))
	if err := engine.Run(cfg.HTTPAddr); err != nil {
		slog.Error("[Main] Server exited",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
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
