package connection

import (
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/fintrack-go/internal/telemetry/logger"
	"github.com/yndnr/fintrack-go/internal/telemetry/metric"
)

// RequestIDHeader correlates a CLI log line with API server logs.
const RequestIDHeader = "X-Request-ID"

// instrumentedTransport tags, logs and measures each round trip. It
// never logs headers, so the bearer token cannot leak through it.
type instrumentedTransport struct {
	base      http.RoundTripper
	logger    logger.Logger
	metrics   *metric.Registry
	userAgent string
}

func newInstrumentedTransport(base http.RoundTripper, log logger.Logger, m *metric.Registry, ua string) *instrumentedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &instrumentedTransport{base: base, logger: log, metrics: m, userAgent: ua}
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	id := req.Header.Get(RequestIDHeader)
	if id == "" {
		id = ulid.Make().String()
		req.Header.Set(RequestIDHeader, id)
	}
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	log := t.logger.WithContext(req.Context()).With("request_id", id, "method", req.Method, "path", req.URL.Path)

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	elapsed := time.Since(start)

	if err != nil {
		t.metrics.ObserveRequest(req.Method, 0, elapsed)
		log.Debug("api request failed", "error", err, "duration", elapsed)
		return nil, err
	}
	t.metrics.ObserveRequest(req.Method, resp.StatusCode, elapsed)
	log.Debug("api request", "status", resp.StatusCode, "duration", elapsed)
	return resp, nil
}
