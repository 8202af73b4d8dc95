package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

var (
	metricsOnce sync.Once

	relationshipOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relationship_operations_total",
			Help: "Total number of relationship operations by kind and outcome",
		},
		[]string{"op", "status"},
	)

	logAppendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "log_appends_total",
			Help: "Total number of message and comment log appends",
		},
		[]string{"log", "status"},
	)

	broadcastDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_deliveries_total",
			Help: "Realtime events handed to client buffers, or dropped because the buffer was full",
		},
		[]string{"status"},
	)

	realtimeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connections",
			Help: "Number of connected realtime clients",
		},
	)

	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blob_uploads_total",
			Help: "Total number of blob uploads by outcome",
		},
		[]string{"status"},
	)

	eventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domain_events_published_total",
			Help: "Total number of domain events published",
		},
		[]string{"routing_key", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// Register registers every collector on reg once. Later calls are no-ops.
func Register(reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		reg.MustRegister(
			relationshipOpsTotal,
			logAppendsTotal,
			broadcastDeliveriesTotal,
			realtimeConnections,
			uploadsTotal,
			eventsPublishedTotal,
			httpRequestsTotal,
			httpRequestDuration,
		)
	})
}

// Status maps an error to a status label.
func Status(err error) string {
	if err != nil {
		return StatusFailed
	}
	return StatusSuccess
}

func IncRelationshipOp(op, status string) {
	relationshipOpsTotal.WithLabelValues(op, status).Inc()
}

func IncLogAppend(log, status string) {
	logAppendsTotal.WithLabelValues(log, status).Inc()
}

func AddBroadcastDeliveries(delivered, dropped int) {
	if delivered > 0 {
		broadcastDeliveriesTotal.WithLabelValues("delivered").Add(float64(delivered))
	}
	if dropped > 0 {
		broadcastDeliveriesTotal.WithLabelValues("dropped").Add(float64(dropped))
	}
}

func IncConnections() { realtimeConnections.Inc() }
func DecConnections() { realtimeConnections.Dec() }

func IncUpload(status string) {
	uploadsTotal.WithLabelValues(status).Inc()
}

func IncEventPublished(routingKey, status string) {
	if routingKey == "" {
		routingKey = "unknown"
	}
	eventsPublishedTotal.WithLabelValues(routingKey, status).Inc()
}

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unknown"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
