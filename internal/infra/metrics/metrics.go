package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fastprodman/fortunefloor/internal/domain"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fortunefloor",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fortunefloor",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fortunefloor",
			Subsystem: "economy",
			Name:      "operations_total",
			Help:      "Machine operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)

	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fortunefloor",
			Subsystem: "economy",
			Name:      "operation_duration_seconds",
			Help:      "Duration of machine operations including the transaction.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)

	sweepItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fortunefloor",
			Subsystem: "sweep",
			Name:      "items_total",
			Help:      "Items processed by background sweeps.",
		},
		[]string{"sweep", "outcome"},
	)

	sweepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fortunefloor",
			Subsystem: "sweep",
			Name:      "run_duration_seconds",
			Help:      "Duration of one sweep pass.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"sweep"},
	)

	payouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fortunefloor",
			Subsystem: "economy",
			Name:      "payout_fortune_total",
			Help:      "FORTUNE credited to users by operation.",
		},
		[]string{"operation"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		operations,
		operationDuration,
		sweepItems,
		sweepDuration,
		payouts,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Outcome classifies an operation error into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrDuplicateOperation):
		return "duplicate"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrOwnership):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrTierLocked),
		errors.Is(err, domain.ErrMaxLevelReached):
		return "rejected"
	default:
		return "error"
	}
}

// ObserveOperation records one service call.
func ObserveOperation(op string, err error, d time.Duration) {
	operations.WithLabelValues(op, Outcome(err)).Inc()
	operationDuration.WithLabelValues(op).Observe(d.Seconds())
}

// AddPayout adds a credited amount. Float precision is fine for dashboards.
func AddPayout(op string, amount float64) {
	if amount <= 0 {
		return
	}
	payouts.WithLabelValues(op).Add(amount)
}

// ObserveSweep records the outcome of one sweep pass.
func ObserveSweep(sweep string, ok, failed int, d time.Duration) {
	sweepItems.WithLabelValues(sweep, "ok").Add(float64(ok))
	sweepItems.WithLabelValues(sweep, "failed").Add(float64(failed))
	sweepDuration.WithLabelValues(sweep).Observe(d.Seconds())
}

// InstrumentHandler wraps a chi router with request metrics keyed by route pattern.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}

	r.status = http.StatusSwitchingProtocols

	return h.Hijack()
}
