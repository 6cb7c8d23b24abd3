package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"pagetrust/internal/models"
)

// ResultStore persists one PageAnalysis per URL on top of a KeyValueStore.
type ResultStore struct {
	kv KeyValueStore
}

func NewResultStore(kv KeyValueStore) *ResultStore {
	return &ResultStore{kv: kv}
}

// Save upserts the analysis for its URL, overwriting any prior entry.
func (r *ResultStore) Save(ctx context.Context, analysis *models.PageAnalysis) error {
	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("[ResultStore] failed to marshal analysis for %s: %w", analysis.URL, err)
	}
	if err := r.kv.Set(ctx, AnalysisKey(analysis.URL), data); err != nil {
		return fmt.Errorf("[ResultStore] failed to save analysis for %s: %w", analysis.URL, err)
	}

	slog.Info("[ResultStore] Stored analysis",
		slog.String("url", analysis.URL),
		slog.String("risk", string(analysis.OverallRisk)))
	return nil
}

// Load returns the stored analysis for the exact URL, or (nil, nil) when
// none exists.
func (r *ResultStore) Load(ctx context.Context, pageURL string) (*models.PageAnalysis, error) {
	data, ok, err := r.kv.Get(ctx, AnalysisKey(pageURL))
	if err != nil {
		return nil, fmt.Errorf("[ResultStore] failed to load analysis for %s: %w", pageURL, err)
	}
	if !ok {
		return nil, nil
	}

	var analysis models.PageAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, fmt.Errorf("[ResultStore] failed to unmarshal analysis for %s: %w", pageURL, err)
	}
	return &analysis, nil
}

// InvalidateOthers deletes every stored analysis except the one for
// currentURL. Storage is bounded to a single analysis at a time.
func (r *ResultStore) InvalidateOthers(ctx context.Context, currentURL string) error {
	keys, err := r.kv.ListKeys(ctx, AnalysisKeyPrefix)
	if err != nil {
		return fmt.Errorf("[ResultStore] failed to list analysis keys: %w", err)
	}

	keep := AnalysisKey(currentURL)
	removed := 0
	for _, key := range keys {
		if key == keep {
			continue
		}
		if err := r.kv.Delete(ctx, key); err != nil {
			slog.Warn("[ResultStore] Failed to delete stale analysis",
				slog.String("key", key),
				slog.String("error", err.Error()))
			continue
		}
		removed++
	}

	if removed > 0 {
		slog.Info("[ResultStore] Invalidated stale analyses",
			slog.Int("removed", removed),
			slog.String("current_url", currentURL))
	}
	return nil
}
