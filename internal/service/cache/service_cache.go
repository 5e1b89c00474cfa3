package cache

import (
	"context"
	"errors"
	"time"

	pkgcache "TradePilot/pkg/cache"
)

// ServiceCache adapts a cache.Service to the BytesCache API. With a
// layered backend, market data responses survive process restarts and
// repeat reads within the TTL are served from memory.
type ServiceCache struct {
	svc pkgcache.Service
}

func NewServiceCache(svc pkgcache.Service) *ServiceCache {
	return &ServiceCache{svc: svc}
}

func (s *ServiceCache) GetBytes(key string) ([]byte, bool, error) {
	var raw string
	err := s.svc.Get(context.Background(), key, &raw)
	if err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(raw), true, nil
}

func (s *ServiceCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	return s.svc.Set(context.Background(), key, string(value), ttl)
}

var _ BytesCache = (*ServiceCache)(nil)
