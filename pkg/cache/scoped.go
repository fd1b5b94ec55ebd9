package cache

import (
	"context"
	"time"
)

// scoped wraps a Cache and prefixes every key.
type scoped struct {
	inner  Cache
	prefix string
}

// Scoped returns a view of inner that prefixes all keys with prefix.
// This keeps entries from different registries apart when they share one
// backend:
//
//	npm := cache.Scoped(c, "https://registry.npmjs.org|")
//	mirror := cache.Scoped(c, "http://localhost:4873|")
//
// Closing the scoped view closes inner.
func Scoped(inner Cache, prefix string) Cache {
	if inner == nil {
		inner = NewNullCache()
	}
	return &scoped{inner: inner, prefix: prefix}
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.inner.Set(ctx, s.prefix+key, data, ttl)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

func (s *scoped) Close() error { return s.inner.Close() }
