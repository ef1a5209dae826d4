package middleware

import (
	"strconv"
	"time"

	"table_admin/internal/observability"

	"github.com/gin-gonic/gin"
)

// unmatchedRoute labels requests that hit no route, so arbitrary paths
// cannot inflate the label set.
const unmatchedRoute = "unmatched"

// PrometheusMiddleware records request count, latency and in-flight requests
// per route template. Paths listed in skip, such as the scrape endpoint, are
// not recorded.
func PrometheusMiddleware(metrics *observability.Metrics, skip ...string) gin.HandlerFunc {
	if metrics == nil {
		return func(c *gin.Context) { c.Next() }
	}

	skipped := make(map[string]struct{}, len(skip))
	for _, path := range skip {
		skipped[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		metrics.HTTPRequestsInFlight.Inc()
		start := time.Now()
		defer func() {
			metrics.HTTPRequestsInFlight.Dec()

			route := c.FullPath()
			if route == "" {
				route = unmatchedRoute
			}
			status := strconv.Itoa(c.Writer.Status())

			metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
		}()

		c.Next()
	}
}
