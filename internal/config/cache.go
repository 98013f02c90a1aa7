package config

import "time"

// CacheConfig defines settings for the response cache placed in front of
// the public session reads (GET /v1/sessions/:id and its seat map).
// When Enabled is false or no Redis client is configured, caching is
// disabled.  TTL bounds how stale an availability figure may be; entries
// are not evicted on write.  Prefix namespaces keys and MaxBodyBytes
// skips unusually large responses.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
func LoadCacheConfig() CacheConfig {
	c := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 5*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache:sessions"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if c.TTL <= 0 { c.TTL = time.Second }
	return c
}
