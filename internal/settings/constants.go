package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the UI site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback UI site name.
	DefaultSiteName = "ReelCraft"
	// RateLimitMaxRequestsKey controls requests allowed per window.
	RateLimitMaxRequestsKey = "RATE_LIMIT_MAX_REQUESTS"
	// RateLimitWindowSecondsKey controls the rate limit window length.
	RateLimitWindowSecondsKey = "RATE_LIMIT_WINDOW_SECONDS"
	// RateLimitRedisEnabledKey toggles Redis-backed rate limiting.
	RateLimitRedisEnabledKey = "RATE_LIMIT_REDIS_ENABLED"
	// RateLimitRedisAddrKey defines the Redis address for rate limiting.
	RateLimitRedisAddrKey = "RATE_LIMIT_REDIS_ADDR"
	// RateLimitRedisPasswordKey defines the Redis password for rate limiting.
	RateLimitRedisPasswordKey = "RATE_LIMIT_REDIS_PASSWORD"
	// RateLimitRedisDBKey defines the Redis DB index for rate limiting.
	RateLimitRedisDBKey = "RATE_LIMIT_REDIS_DB"
	// RateLimitRedisPrefixKey defines the Redis key prefix for rate limiting.
	RateLimitRedisPrefixKey = "RATE_LIMIT_REDIS_PREFIX"
	// DefaultRateLimitMaxRequests is the fallback requests-per-window limit.
	DefaultRateLimitMaxRequests = 20
	// DefaultRateLimitWindowSeconds is the fallback window length in seconds.
	DefaultRateLimitWindowSeconds = 60
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "reelcraft:rl"
)
