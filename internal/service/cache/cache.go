package cache

import "time"

// BytesCache is the minimal cache API the market data pipeline needs:
// raw bytes keyed by string, each entry with its own TTL.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
