package metrics

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrKindConflict is the panic value when a name is requested as a
// different kind than it was first registered with.
var ErrKindConflict = errors.New("metrics: name already registered as another kind")

const (
	kindCounter   = "counter"
	kindGauge     = "gauge"
	kindHistogram = "histogram"
)

// Registry holds metrics by name. Lookups create the metric on first use,
// so callers never see nil. Names are unique across kinds.
type Registry struct {
	mu         sync.RWMutex
	kinds      map[string]string
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds:      make(map[string]string),
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

// getOrCreate returns m[name], creating it with mk under the write lock if
// it is missing. It panics with ErrKindConflict if name is taken by a
// metric of another kind.
func getOrCreate[T any](r *Registry, m map[string]*T, kind, name string, mk func(string) *T) *T {
	r.mu.RLock()
	v, ok := m[name]
	r.mu.RUnlock()
	if ok {
		return v
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok = m[name]; ok {
		return v
	}
	if other, taken := r.kinds[name]; taken {
		panic(errors.Wrapf(ErrKindConflict, "%q is a %s, requested as %s", name, other, kind))
	}
	v = mk(name)
	m[name] = v
	r.kinds[name] = kind
	return v
}

// Counter returns the counter registered under name.
func (r *Registry) Counter(name string) *Counter {
	return getOrCreate(r, r.counters, kindCounter, name, NewCounter)
}

// Gauge returns the gauge registered under name.
func (r *Registry) Gauge(name string) *Gauge {
	return getOrCreate(r, r.gauges, kindGauge, name, NewGauge)
}

// Histogram returns the histogram registered under name.
func (r *Registry) Histogram(name string) *Histogram {
	return getOrCreate(r, r.histograms, kindHistogram, name, NewHistogram)
}

// Each calls the matching function for every registered metric, in name
// order within each kind. Nil functions skip that kind.
func (r *Registry) Each(counter func(*Counter), gauge func(*Gauge), hist func(*Histogram)) {
	r.mu.RLock()
	counters := sortedValues(r.counters)
	gauges := sortedValues(r.gauges)
	hists := sortedValues(r.histograms)
	r.mu.RUnlock()

	for _, c := range counters {
		if counter != nil {
			counter(c)
		}
	}
	for _, g := range gauges {
		if gauge != nil {
			gauge(g)
		}
	}
	for _, h := range hists {
		if hist != nil {
			hist(h)
		}
	}
}

// Snapshot returns a point-in-time copy of every metric. Counters and gauges
// map to int64, histograms to HistogramSnapshot.
func (r *Registry) Snapshot() map[string]interface{} {
	snap := make(map[string]interface{})
	r.Each(
		func(c *Counter) { snap[c.Name()] = c.Value() },
		func(g *Gauge) { snap[g.Name()] = g.Value() },
		func(h *Histogram) { snap[h.Name()] = h.Snapshot() },
	)
	return snap
}

func sortedValues[T any](m map[string]*T) []*T {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*T, len(names))
	for i, name := range names {
		out[i] = m[name]
	}
	return out
}
