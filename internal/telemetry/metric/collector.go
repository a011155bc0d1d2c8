package metric

import "github.com/prometheus/client_golang/prometheus"

// TokenSource is the read side of a credential store.
type TokenSource interface {
	Get(key string) (string, bool, error)
}

// Collector reports whether a session token is currently stored. The
// store is read at gather time, so the value reflects a login or logout
// performed during the same process.
type Collector struct {
	src  TokenSource
	key  string
	desc *prometheus.Desc
}

// NewCollector creates a collector reading key from src.
func NewCollector(src TokenSource, key string) *Collector {
	return &Collector{
		src: src,
		key: key,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "client", "session_authenticated"),
			"1 when a session token is stored, 0 otherwise.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	v := 0.0
	if _, ok, err := c.src.Get(c.key); err == nil && ok {
		v = 1
	}
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, v)
}
