package store

import "context"

const (
	// AnalysisKeyPrefix namespaces persisted PageAnalysis entries; the
	// rest of the key is the exact page URL.
	AnalysisKeyPrefix = "analysis_"

	settingsKey = "pagetrust_settings"
)

// KeyValueStore is the persistence capability the core depends on.
// Backends: Valkey, DynamoDB, in-memory.
type KeyValueStore interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// ListKeys returns every key starting with prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

func AnalysisKey(pageURL string) string {
	return AnalysisKeyPrefix + pageURL
}
