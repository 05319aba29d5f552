package introspect

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	builds prometheus.Counter
	hits   prometheus.Counter
	misses prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		builds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beanpath",
			Subsystem: "introspection",
			Name:      "builds_total",
			Help:      "Number of type descriptor sets built.",
		}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beanpath",
			Subsystem: "introspection",
			Name:      "hits_total",
			Help:      "Number of lookups answered from the cache.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beanpath",
			Subsystem: "introspection",
			Name:      "misses_total",
			Help:      "Number of lookups that had to build an entry.",
		}),
	}

	var err error
	m.builds, err = register(reg, m.builds)
	if err != nil {
		return nil, err
	}
	m.hits, err = register(reg, m.hits)
	if err != nil {
		return nil, err
	}
	m.misses, err = register(reg, m.misses)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// register reuses an already registered counter so several caches can share
// one registry.
func register(reg prometheus.Registerer, c prometheus.Counter) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (m *metrics) build() {
	if m != nil {
		m.builds.Inc()
	}
}

func (m *metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}
