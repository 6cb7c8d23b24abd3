package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"pagetrust/internal/models"
)

// SettingsStore keeps the user settings under a single well-known key.
type SettingsStore struct {
	kv KeyValueStore
}

func NewSettingsStore(kv KeyValueStore) *SettingsStore {
	return &SettingsStore{kv: kv}
}

// Load returns the persisted settings, or the defaults when none were
// saved yet.
func (s *SettingsStore) Load(ctx context.Context) (models.Settings, error) {
	data, ok, err := s.kv.Get(ctx, settingsKey)
	if err != nil {
		return models.DefaultSettings(), fmt.Errorf("[SettingsStore] failed to load settings: %w", err)
	}
	if !ok {
		return models.DefaultSettings(), nil
	}

	var settings models.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		slog.Warn("[SettingsStore] Stored settings are unreadable, falling back to defaults",
			slog.String("error", err.Error()))
		return models.DefaultSettings(), nil
	}
	return settings, nil
}

func (s *SettingsStore) Save(ctx context.Context, settings models.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("[SettingsStore] failed to marshal settings: %w", err)
	}
	if err := s.kv.Set(ctx, settingsKey, data); err != nil {
		return fmt.Errorf("[SettingsStore] failed to save settings: %w", err)
	}
	return nil
}
