package ports

import (
	"context"
	"time"
)

// Cache is a string key-value store used for derived read models such as
// the dashboard. Entries may expire; a miss is never an error.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
