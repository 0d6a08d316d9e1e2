package handler

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreWriterMetrics instruments StoreWriter flushes.
type StoreWriterMetrics struct {
	Batches        prometheus.Counter
	Statements     *prometheus.CounterVec
	UpdateDuration prometheus.Histogram
	Failures       prometheus.Counter
}

// NewStoreWriterMetrics creates the store writer metrics and registers them
// with reg. Collectors already registered under the same names are reused,
// so several writers may share one registry. A nil reg skips registration.
func NewStoreWriterMetrics(reg prometheus.Registerer) (*StoreWriterMetrics, error) {
	m := &StoreWriterMetrics{
		Batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rdfstream",
			Subsystem: "store",
			Name:      "batches_total",
			Help:      "Number of Update calls issued to the storage provider.",
		}),
		Statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rdfstream",
			Subsystem: "store",
			Name:      "statements_total",
			Help:      "Statements written to the storage provider by kind.",
		}, []string{"kind"}),
		UpdateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rdfstream",
			Subsystem: "store",
			Name:      "update_seconds",
			Help:      "Latency of storage provider Update calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rdfstream",
			Subsystem: "store",
			Name:      "update_failures_total",
			Help:      "Update calls that returned an error.",
		}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	m.Batches, err = register(reg, m.Batches)
	if err != nil {
		return nil, err
	}
	m.Statements, err = register(reg, m.Statements)
	if err != nil {
		return nil, err
	}
	m.UpdateDuration, err = register(reg, m.UpdateDuration)
	if err != nil {
		return nil, err
	}
	m.Failures, err = register(reg, m.Failures)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
