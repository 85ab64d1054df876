package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes a Registry to Prometheus. Dotted metric names become
// underscored and are prefixed with the namespace; histograms are exported
// as summaries without quantiles.
type Collector struct {
	namespace string
	registry  *Registry
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for r. An empty namespace adds no
// prefix.
func NewCollector(namespace string, r *Registry) *Collector {
	return &Collector{namespace: namespace, registry: r}
}

// Register registers a collector for r with reg.
func Register(reg prometheus.Registerer, namespace string, r *Registry) error {
	return reg.Register(NewCollector(namespace, r))
}

// Describe implements prometheus.Collector. It sends nothing, which makes
// this an unchecked collector: the metric set grows at runtime.
func (c *Collector) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.registry.Each(
		func(m *Counter) {
			ch <- prometheus.MustNewConstMetric(c.desc(m.Name()), prometheus.CounterValue, float64(m.Value()))
		},
		func(m *Gauge) {
			ch <- prometheus.MustNewConstMetric(c.desc(m.Name()), prometheus.GaugeValue, float64(m.Value()))
		},
		func(m *Histogram) {
			s := m.Snapshot()
			ch <- prometheus.MustNewConstSummary(c.desc(m.Name()), s.Count, s.Sum, nil)
		},
	)
}

func (c *Collector) desc(name string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(c.namespace, "", promName(name)), name, nil, nil)
}

// promName maps a dotted registry name to a valid Prometheus name.
func promName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == ':':
			return r
		default:
			return '_'
		}
	}, name)
}
