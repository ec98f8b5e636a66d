// Package observability bundles the Prometheus metrics exposed by the link
// tracker and provides a ready-to-mount /metrics handler.
package observability

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReconcilerCollector bundles the reconciliation metrics. All recording
// methods are safe on a nil collector so callers never need to branch.
type ReconcilerCollector struct {
	gatherer prometheus.Gatherer

	Runs              *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	LinksCreated      *prometheus.CounterVec
	LinksDisconnected *prometheus.CounterVec
	ActiveLinks       *prometheus.GaugeVec
}

// NewReconcilerCollector registers the reconciliation metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewReconcilerCollector(reg prometheus.Registerer) (*ReconcilerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "topology_reconcile_runs_total",
		Help: "Total reconciliation runs, labeled by topology source and result.",
	}, []string{"topology", "result"}))
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "topology_reconcile_duration_seconds",
		Help:    "Reconciliation run latency in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"topology"}))
	if err != nil {
		return nil, err
	}

	created, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "topology_links_created_total",
		Help: "Links created on first sighting of an edge.",
	}, []string{"topology"}))
	if err != nil {
		return nil, err
	}

	disconnected, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "topology_links_disconnected_total",
		Help: "Active links transitioned to disconnected after vanishing from the source graph.",
	}, []string{"topology"}))
	if err != nil {
		return nil, err
	}

	active, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "topology_links_active",
		Help: "Current number of active links per topology source.",
	}, []string{"topology"}))
	if err != nil {
		return nil, err
	}

	return &ReconcilerCollector{
		gatherer:          gatherer,
		Runs:              runs,
		RunDuration:       duration,
		LinksCreated:      created,
		LinksDisconnected: disconnected,
		ActiveLinks:       active,
	}, nil
}

// ObserveRun records one reconciliation run.
func (c *ReconcilerCollector) ObserveRun(topology string, d time.Duration, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.Runs.WithLabelValues(topology, result).Inc()
	c.RunDuration.WithLabelValues(topology).Observe(d.Seconds())
}

// AddCreated counts links created during a run.
func (c *ReconcilerCollector) AddCreated(topology string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.LinksCreated.WithLabelValues(topology).Add(float64(n))
}

// AddDisconnected counts links disconnected during a run.
func (c *ReconcilerCollector) AddDisconnected(topology string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.LinksDisconnected.WithLabelValues(topology).Add(float64(n))
}

// SetActive records the current active link count for a source.
func (c *ReconcilerCollector) SetActive(topology string, n int) {
	if c == nil {
		return
	}
	c.ActiveLinks.WithLabelValues(topology).Set(float64(n))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ReconcilerCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, cv *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(cv); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector.(*prometheus.CounterVec), nil
		}
		return nil, err
	}
	return cv, nil
}

func registerHistogramVec(reg prometheus.Registerer, hv *prometheus.HistogramVec) (*prometheus.HistogramVec, error) {
	if err := reg.Register(hv); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector.(*prometheus.HistogramVec), nil
		}
		return nil, err
	}
	return hv, nil
}

func registerGaugeVec(reg prometheus.Registerer, gv *prometheus.GaugeVec) (*prometheus.GaugeVec, error) {
	if err := reg.Register(gv); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector.(*prometheus.GaugeVec), nil
		}
		return nil, err
	}
	return gv, nil
}
