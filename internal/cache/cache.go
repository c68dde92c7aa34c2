package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Cache defines the interface for caching operations
type Cache interface {
	// Get returns the value and whether the key was found
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set adds a value with the given expiration, 0 uses the cache default and
	// NoExpiration keeps the entry until it is deleted
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)

	Delete(ctx context.Context, key string)

	// DeleteByPrefix removes all keys with the given prefix
	DeleteByPrefix(ctx context.Context, prefix string)

	Flush(ctx context.Context)
}

// NoExpiration marks entries that never expire
const NoExpiration time.Duration = -1

// Key prefixes
const (
	PrefixStats    = "stats:v1"
	PrefixStatsGen = "stats_gen:v1"
	PrefixAuthUser = "auth_user:v1"
)

// GenerateKey joins prefix and params with colons
func GenerateKey(prefix string, params ...interface{}) string {
	parts := make([]string, len(params)+1)
	parts[0] = prefix

	for i, param := range params {
		parts[i+1] = fmt.Sprintf("%v", param)
	}

	return strings.Join(parts, ":")
}
