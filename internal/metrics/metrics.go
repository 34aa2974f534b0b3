package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liblogin_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "liblogin_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ImpressionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liblogin_impressions_recorded_total",
			Help: "Login page impressions accepted by the ingestor",
		},
		[]string{"device_class", "unique_today"},
	)

	ContentResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liblogin_content_resolutions_total",
			Help: "Content bundle resolutions by the template tier that served them",
		},
		[]string{"tier"},
	)

	LandingCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liblogin_landing_cache_lookups_total",
			Help: "Landing URL cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)

// Middleware records request count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
