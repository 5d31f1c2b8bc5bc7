package cache

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/zonemap/pkg/observability"
)

// Instrument wraps c so every Get and Set is reported to the registered
// cache hooks. The key type is the key's kind segment ("zones", "scene" or
// "artifact"), found behind any scope prefix.
func Instrument(c Cache) Cache {
	if _, ok := c.(instrumented); ok {
		return c
	}
	return instrumented{c}
}

type instrumented struct{ Cache }

func (c instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err == nil {
		if ok {
			observability.Cache().OnCacheHit(ctx, keyType(key))
		} else {
			observability.Cache().OnCacheMiss(ctx, keyType(key))
		}
	}
	return data, ok, err
}

func (c instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.Cache.Set(ctx, key, data, ttl)
	if err == nil {
		observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
	}
	return err
}

// Clear forwards to the wrapped cache when it supports clearing.
func (c instrumented) Clear(ctx context.Context) (int, error) {
	if cl, ok := c.Cache.(Clearer); ok {
		return cl.Clear(ctx)
	}
	return 0, nil
}

func keyType(key string) string {
	parts := strings.Split(key, ":")
	for _, p := range parts {
		switch p {
		case "zones", "scene", "artifact":
			return p
		}
	}
	return parts[0]
}
