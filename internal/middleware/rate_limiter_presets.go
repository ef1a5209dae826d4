package middleware

// StrictRateLimiter - For credential endpoints (register, login)
// Burst: 5 requests, Sustained: 1 request per second
func StrictRateLimiter() *RateLimiterConfig {
	return CustomRateLimiter("auth", 5, 1.0)
}

// DefaultRateLimiterConfig returns default rate limiter settings
// 10 requests per second with burst capacity of 20
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return CustomRateLimiter("api", 20, 10.0)
}

// CustomRateLimiter builds a bucket of capacity tokens refilled at
// refillRate per second, keyed under scope.
func CustomRateLimiter(scope string, capacity int, refillRate float64) *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:   capacity,
		RefillRate: refillRate,
		Scope:      scope,
	}
}
