package metric

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fintrack"

// Registry holds the client metrics.
type Registry struct {
	reg *prometheus.Registry

	RequestsTotal        *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
	SessionsExpired      prometheus.Counter
	AuthFailures         prometheus.Counter
	ImportedTransactions *prometheus.CounterVec
}

// NewRegistry creates a registry with every client metric registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Requests sent to the finance API by method and status code.",
		}, []string{"method", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Round-trip latency of finance API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		SessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "session_expired_total",
			Help:      "Protected requests rejected with 401.",
		}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "auth_failures_total",
			Help:      "Authentication attempts rejected by the finance API.",
		}),
		ImportedTransactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "transactions_total",
			Help:      "Imported transactions by result (created, skipped, failed).",
		}, []string{"result"}),
	}

	r.reg.MustRegister(
		r.RequestsTotal,
		r.RequestDuration,
		r.SessionsExpired,
		r.AuthFailures,
		r.ImportedTransactions,
	)
	return r
}

// MustRegister adds extra collectors, such as the session Collector.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	if r == nil {
		return
	}
	r.reg.MustRegister(cs...)
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.Gatherers{}
	}
	return r.reg
}

// ObserveRequest records one completed round trip. code is 0 when the
// transport failed before a response arrived.
func (r *Registry) ObserveRequest(method string, code int, d time.Duration) {
	if r == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	r.RequestsTotal.WithLabelValues(method, label).Inc()
	r.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// SessionExpired counts a 401 on a protected request.
func (r *Registry) SessionExpired() {
	if r == nil {
		return
	}
	r.SessionsExpired.Inc()
}

// AuthFailed counts a rejected authentication.
func (r *Registry) AuthFailed() {
	if r == nil {
		return
	}
	r.AuthFailures.Inc()
}

// Imported counts n import rows with the given result.
func (r *Registry) Imported(result string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.ImportedTransactions.WithLabelValues(result).Add(float64(n))
}

// WriteTextfile writes the registry in text exposition format to path.
// The file is replaced atomically.
func (r *Registry) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
