package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "breezbook"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	grpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "gRPC requests by method and status code.",
		},
		[]string{"method", "code"},
	)

	availabilityDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "availability_duration_seconds",
			Help:      "Time spent computing and pricing availability.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"tenant"},
	)

	slotsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "availability_slots",
			Help:      "Bookable slots returned per availability request.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"tenant"},
	)

	unresourceable = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresourceable_bookings_total",
			Help:      "Existing bookings that no longer fit the resource pool.",
		},
		[]string{"tenant"},
	)

	quotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Quote requests by outcome.",
		},
		[]string{"tenant", "outcome"},
	)

	bookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome.",
		},
		[]string{"tenant", "outcome"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job and result.",
		},
		[]string{"job", "result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests, grpcRequests, availabilityDuration, slotsReturned,
			unresourceable, quotes, bookings, jobRuns,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func IncHTTP(endpoint string, code int) {
	httpRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}

func IncGRPC(method, code string) {
	grpcRequests.WithLabelValues(method, code).Inc()
}

// ObserveAvailability records one availability computation.
func ObserveAvailability(tenant string, elapsed time.Duration, slots int) {
	availabilityDuration.WithLabelValues(tenant).Observe(elapsed.Seconds())
	slotsReturned.WithLabelValues(tenant).Observe(float64(slots))
}

func AddUnresourceable(tenant string, n int) {
	if n > 0 {
		unresourceable.WithLabelValues(tenant).Add(float64(n))
	}
}

func IncQuote(tenant, outcome string) {
	quotes.WithLabelValues(tenant, outcome).Inc()
}

func IncBooking(tenant, outcome string) {
	bookings.WithLabelValues(tenant, outcome).Inc()
}

func IncJob(job string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	jobRuns.WithLabelValues(job, result).Inc()
}
