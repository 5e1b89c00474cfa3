package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
)

const settingsKey = "tradepilot:trading_settings"

// RedisSettingsStore persists TradingSettings as a Redis hash, one field
// per setting, values JSON-encoded. Missing hash falls back to defaults.
type RedisSettingsStore struct {
	client *redis.Client

	mu sync.Mutex
}

func NewRedisSettingsStore(client *redis.Client) *RedisSettingsStore {
	return &RedisSettingsStore{client: client}
}

func (s *RedisSettingsStore) Get(ctx context.Context) (models.TradingSettings, error) {
	fields, err := s.client.HGetAll(ctx, settingsKey).Result()
	if err != nil {
		return models.TradingSettings{}, fmt.Errorf("settings hgetall: %w", err)
	}
	if len(fields) == 0 {
		return models.DefaultTradingSettings(), nil
	}
	return settingsFromFields(fields)
}

// UpdateSetting applies one keyed change atomically. The key must match a
// settings JSON tag; the merged result is validated before persisting.
func (s *RedisSettingsStore) UpdateSetting(ctx context.Context, key string, value interface{}) (models.TradingSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Get(ctx)
	if err != nil {
		return models.TradingSettings{}, err
	}

	raw, err := json.Marshal(current)
	if err != nil {
		return models.TradingSettings{}, fmt.Errorf("marshal settings: %w", err)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return models.TradingSettings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	if _, ok := obj[key]; !ok {
		return models.TradingSettings{}, fmt.Errorf("unknown setting %q: %w", key, drepo.ErrSettingsValidation)
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return models.TradingSettings{}, fmt.Errorf("encode value: %w", err)
	}
	obj[key] = encoded

	merged, err := json.Marshal(obj)
	if err != nil {
		return models.TradingSettings{}, fmt.Errorf("merge settings: %w", err)
	}
	var next models.TradingSettings
	if err := json.Unmarshal(merged, &next); err != nil {
		return models.TradingSettings{}, fmt.Errorf("setting %q: %v: %w", key, err, drepo.ErrSettingsValidation)
	}
	if err := next.Validate(); err != nil {
		return models.TradingSettings{}, fmt.Errorf("setting %q: %v: %w", key, err, drepo.ErrSettingsValidation)
	}

	if err := s.persist(ctx, next); err != nil {
		return models.TradingSettings{}, err
	}
	return next, nil
}

func (s *RedisSettingsStore) Replace(ctx context.Context, settings models.TradingSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, drepo.ErrSettingsValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx, settings)
}

func (s *RedisSettingsStore) ResetToDefaults(ctx context.Context) (models.TradingSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defaults := models.DefaultTradingSettings()
	if err := s.persist(ctx, defaults); err != nil {
		return models.TradingSettings{}, err
	}
	return defaults, nil
}

func (s *RedisSettingsStore) persist(ctx context.Context, settings models.TradingSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("unmarshal settings: %w", err)
	}

	fields := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		fields[k] = string(v)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, settingsKey)
	pipe.HSet(ctx, settingsKey, fields)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("settings hset: %w", err)
	}
	return nil
}

func settingsFromFields(fields map[string]string) (models.TradingSettings, error) {
	obj := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		obj[k] = json.RawMessage(v)
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return models.TradingSettings{}, fmt.Errorf("merge fields: %w", err)
	}

	// unknown or corrupted fields must not brick the engine
	settings := models.DefaultTradingSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		return models.DefaultTradingSettings(), nil
	}
	if err := settings.Validate(); err != nil {
		return models.DefaultTradingSettings(), nil
	}
	return settings, nil
}

var _ drepo.SettingsStore = (*RedisSettingsStore)(nil)
