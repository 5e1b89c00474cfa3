package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
)

const (
	autoTradingKey   = "tradepilot:auto_trading"
	positionPrefix   = "tradepilot:position:"
	lossPrefix       = "tradepilot:losses:"
	lastSignalPrefix = "tradepilot:last_signal:"
)

// RedisStateStore persists runtime trading state: the auto-trading flag,
// per-symbol loss counters, open positions and signal emission times.
// Keys survive restarts so reconciliation can pick up where it left off.
type RedisStateStore struct {
	client *redis.Client
}

func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func (s *RedisStateStore) AutoTradingState(ctx context.Context) (models.AutoTradingState, error) {
	raw, err := s.client.Get(ctx, autoTradingKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.AutoTradingState{Enabled: false}, nil
	}
	if err != nil {
		return models.AutoTradingState{}, fmt.Errorf("auto trading get: %w", err)
	}
	var st models.AutoTradingState
	if err := json.Unmarshal(raw, &st); err != nil {
		return models.AutoTradingState{}, fmt.Errorf("auto trading decode: %w", err)
	}
	return st, nil
}

func (s *RedisStateStore) SetAutoTradingState(ctx context.Context, st models.AutoTradingState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("auto trading encode: %w", err)
	}
	if err := s.client.Set(ctx, autoTradingKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("auto trading set: %w", err)
	}
	return nil
}

func (s *RedisStateStore) LossCounter(ctx context.Context, symbol string) (models.LossCounter, error) {
	raw, err := s.client.Get(ctx, lossPrefix+symbol).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.LossCounter{Symbol: symbol}, nil
	}
	if err != nil {
		return models.LossCounter{}, fmt.Errorf("loss counter get: %w", err)
	}
	var c models.LossCounter
	if err := json.Unmarshal(raw, &c); err != nil {
		return models.LossCounter{}, fmt.Errorf("loss counter decode: %w", err)
	}
	return c, nil
}

func (s *RedisStateStore) SetLossCounter(ctx context.Context, c models.LossCounter) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("loss counter encode: %w", err)
	}
	if err := s.client.Set(ctx, lossPrefix+c.Symbol, raw, 0).Err(); err != nil {
		return fmt.Errorf("loss counter set: %w", err)
	}
	return nil
}

func (s *RedisStateStore) LastSignalAt(ctx context.Context, symbol string) (time.Time, error) {
	raw, err := s.client.Get(ctx, lastSignalPrefix+symbol).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("last signal get: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("last signal parse: %w", err)
	}
	return t, nil
}

func (s *RedisStateStore) SetLastSignalAt(ctx context.Context, symbol string, t time.Time) error {
	if err := s.client.Set(ctx, lastSignalPrefix+symbol, t.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		return fmt.Errorf("last signal set: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Position(ctx context.Context, symbol string) (*models.Position, error) {
	raw, err := s.client.Get(ctx, positionPrefix+symbol).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("position get: %w", err)
	}
	var p models.Position
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("position decode: %w", err)
	}
	return &p, nil
}

func (s *RedisStateStore) Positions(ctx context.Context) ([]*models.Position, error) {
	var (
		positions []*models.Position
		cursor    uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, positionPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("position scan: %w", err)
		}
		for _, key := range keys {
			raw, err := s.client.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("position get %s: %w", key, err)
			}
			var p models.Position
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("position decode %s: %w", key, err)
			}
			positions = append(positions, &p)
		}
		if next == 0 {
			return positions, nil
		}
		cursor = next
	}
}

func (s *RedisStateStore) SavePosition(ctx context.Context, p *models.Position) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("position encode: %w", err)
	}
	if err := s.client.Set(ctx, positionPrefix+p.Symbol, raw, 0).Err(); err != nil {
		return fmt.Errorf("position set: %w", err)
	}
	return nil
}

func (s *RedisStateStore) DeletePosition(ctx context.Context, symbol string) error {
	if err := s.client.Del(ctx, positionPrefix+symbol).Err(); err != nil {
		return fmt.Errorf("position del: %w", err)
	}
	return nil
}

var _ drepo.StateStore = (*RedisStateStore)(nil)
