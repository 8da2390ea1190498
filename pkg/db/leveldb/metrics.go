package leveldb

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	ops   *prometheus.CounterVec
	iters prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leveldb",
			Name:      "operations_total",
			Help:      "Binding operations by name and result (ok, error, usage).",
		}, []string{"op", "result"}),
		iters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leveldb",
			Name:      "open_iterators",
			Help:      "Native iterators created and not yet destroyed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ops, m.iters)
	}
	return m
}

func (m *metrics) observe(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrUsage):
		result = "usage"
	default:
		result = "error"
	}
	m.ops.WithLabelValues(op, result).Inc()
}
