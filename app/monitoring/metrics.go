package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HttpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogfeed_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HttpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blogfeed_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "blogfeed_active_connections",
			Help: "Number of requests currently being served",
		},
	)

	FollowEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogfeed_follow_events_total",
			Help: "Follow graph changes by outcome",
		},
		[]string{"action"},
	)

	FeedCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogfeed_feed_cache_lookups_total",
			Help: "Global feed cache lookups by result",
		},
		[]string{"result"},
	)

	PostsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "blogfeed_posts_created_total",
			Help: "Number of posts published",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HttpRequestsTotal,
		HttpRequestDuration,
		ActiveConnections,
		FollowEvents,
		FeedCacheLookups,
		PostsCreated,
	)
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
