package config

import (
	"time"
)

// CacheConfig defines settings for the in-memory caching layers: the TTL
// cache backing the smart cache, the change-event log, and the cache
// warmer. The caches are process-local; none of these knobs affect other
// instances.
type CacheConfig struct {
	TTL           time.Duration // lifetime of smart-cache entries
	Capacity      int           // max entries before FIFO eviction
	Sweep         time.Duration // janitor interval (0 disables the sweep)
	ChangeLogSize int           // max buffered change events
	WarmPageSize  int           // scripts prefetched per warmed page
	WarmFreshness time.Duration // how long warmed data is served
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:           envDur("CACHE_TTL", 30*time.Second),
		Capacity:      envInt("CACHE_CAPACITY", 500),
		Sweep:         envDur("CACHE_SWEEP_INTERVAL", time.Minute),
		ChangeLogSize: envInt("CACHE_CHANGELOG_SIZE", 100),
		WarmPageSize:  envInt("CACHE_WARM_PAGE_SIZE", 20),
		WarmFreshness: envDur("CACHE_WARM_FRESHNESS", 5*time.Minute),
	}
}
