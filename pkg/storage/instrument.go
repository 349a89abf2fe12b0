package storage

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"persistentstore/pkg/domain"
)

// Metrics counts storage operations, labeled by storage name and operation
// (get, hit, set, delete, change).
type Metrics struct {
	ops *prometheus.CounterVec
}

// NewMetrics registers the counters on reg, reusing them if another Metrics
// already registered them.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "persistentstore",
		Name:      "storage_operations_total",
		Help:      "Storage operations by storage name and operation.",
	}, []string{"storage", "op"})

	if err := reg.Register(ops); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		ops = existing
	}
	return &Metrics{ops: ops}, nil
}

// Instrument wraps s so its operations are counted under name. Self-updating
// storages stay self-updating and also count delivered changes.
func (m *Metrics) Instrument(s domain.Storage[string], name string) domain.Storage[string] {
	in := &instrumented{
		next: s,
		get:  m.ops.WithLabelValues(name, "get"),
		hit:  m.ops.WithLabelValues(name, "hit"),
		set:  m.ops.WithLabelValues(name, "set"),
		del:  m.ops.WithLabelValues(name, "delete"),
	}
	if su, ok := s.(domain.SelfUpdateStorage[string]); ok {
		return &instrumentedSelfUpdate{
			instrumented: in,
			next:         su,
			change:       m.ops.WithLabelValues(name, "change"),
		}
	}
	return in
}

type instrumented struct {
	next               domain.Storage[string]
	get, hit, set, del prometheus.Counter
}

func (s *instrumented) GetValue(key string) (string, bool) {
	s.get.Inc()
	v, ok := s.next.GetValue(key)
	if ok {
		s.hit.Inc()
	}
	return v, ok
}

func (s *instrumented) SetValue(key, value string) {
	s.set.Inc()
	s.next.SetValue(key, value)
}

func (s *instrumented) DeleteValue(key string) {
	s.del.Inc()
	s.next.DeleteValue(key)
}

type instrumentedSelfUpdate struct {
	*instrumented
	next   domain.SelfUpdateStorage[string]
	change prometheus.Counter
}

func (s *instrumentedSelfUpdate) AddListener(key string, listener domain.Listener[string]) func() {
	return s.next.AddListener(key, func(c domain.Change[string]) {
		s.change.Inc()
		listener(c)
	})
}
