package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foodgram_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	// Domain
	RecipesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_recipes_written_total",
			Help: "Recipes created, updated or deleted",
		},
		[]string{"action"}, // create|update|delete
	)
	RelationToggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_relation_toggles_total",
			Help: "Favorite, shopping cart and subscription changes",
		},
		[]string{"kind", "op"}, // op: add|remove
	)
	ShoppingListDownloads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "foodgram_shopping_list_downloads_total",
			Help: "Shopping list CSV exports",
		},
	)
	AuthEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_auth_events_total",
			Help: "Login, logout and failed login attempts",
		},
		[]string{"event"},
	)
)

// Handler serves /metrics
var Handler = promhttp.Handler

var once sync.Once

// Init registers the collectors with the default registry. Later calls are no-ops.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestLatency,
			RecipesWritten,
			RelationToggles,
			ShoppingListDownloads,
			AuthEvents,
		)
	})
}
