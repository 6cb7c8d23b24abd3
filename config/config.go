package config

import (
	"os"
	"strconv"
	"time"

	"pagetrust/internal/store"
)

// Store backends.
const (
	STORE_BACKEND_MEMORY   = "memory"
	STORE_BACKEND_VALKEY   = "valkey"
	STORE_BACKEND_DYNAMODB = "dynamodb"
)

// Config is the full, explicit configuration of a pagetrust process. It
// is built once at startup and passed down; packages below the
// composition root never read the environment themselves.
type Config struct {
	HTTPAddr string

	AnalysisAPIURL  string
	AnalysisTimeout time.Duration

	StoreBackend string
	Valkey       store.ValkeyConfig
	Dynamo       store.DynamoConfig

	ImageConcurrency int
	LocalSentiment   bool

	OpenAIAPIKey string
	OpenAIModel  string

	KafkaEnabled bool
}

// FromEnv assembles a Config from the process environment with sensible
// local-dev defaults.
func FromEnv() Config {
	return Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		AnalysisAPIURL:  getEnv("ANALYSIS_API_URL", "http://localhost:3000"),
		AnalysisTimeout: getDuration("ANALYSIS_TIMEOUT", 120*time.Second),

		StoreBackend: getEnv("STORE_BACKEND", STORE_BACKEND_MEMORY),
		Valkey: store.ValkeyConfig{
			Address:  getEnv("VALKEY_ADDRESS", "localhost:6379"),
			Password: os.Getenv("VALKEY_PASSWORD"),
			UseTLS:   getBool("VALKEY_TLS", false),
			SelectDB: getInt("VALKEY_DB", 0),
		},
		Dynamo: store.DynamoConfig{
			Region:   getEnv("AWS_REGION", "us-west-2"),
			Table:    getEnv("DYNAMODB_TABLE", "pagetrust_results"),
			Endpoint: os.Getenv("DYNAMODB_ENDPOINT"),
		},

		ImageConcurrency: getInt("IMAGE_CONCURRENCY", 1),
		LocalSentiment:   getBool("LOCAL_SENTIMENT", false),

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  os.Getenv("OPENAI_MODEL"),

		KafkaEnabled: getBool("KAFKA_ENABLED", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
