// Package metrics owns the Prometheus registry served on /metrics.
package metrics

import (
	"context"
	"net/http"

	metricsstore "github.com/dalemusser/clubhouse/internal/app/store/metrics"
	"github.com/dalemusser/clubhouse/internal/app/system/timeouts"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clubhouse"

// Metrics is safe for concurrent use. A nil *Metrics is valid and records
// nothing, so stores can be built without one in tests.
type Metrics struct {
	reg *prometheus.Registry

	membershipOps *prometheus.CounterVec
	drift         *prometheus.GaugeVec
	reconciles    *prometheus.CounterVec
}

// CountsFunc supplies entity totals at scrape time.
type CountsFunc func(ctx context.Context) metricsstore.Counts

// New registers the app collectors plus the Go and process collectors.
// counts may be nil.
func New(counts CountsFunc) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		membershipOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "membership_operations_total",
			Help:      "Membership mutations by operation and result.",
		}, []string{"op", "result"}),
		drift: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_drift",
			Help:      "Inconsistencies found by the last reconciliation, by kind.",
		}, []string{"kind"}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_runs_total",
			Help:      "Reconciliation runs by result.",
		}, []string{"result"}),
	}
	m.reg.MustRegister(
		m.membershipOps,
		m.drift,
		m.reconciles,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if counts != nil {
		m.reg.MustRegister(newCountsCollector(counts))
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests).
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// MembershipOp counts one membership mutation.
func (m *Metrics) MembershipOp(op, result string) {
	if m == nil {
		return
	}
	m.membershipOps.WithLabelValues(op, result).Inc()
}

// Reconciled records a reconciliation run and the drift it found.
func (m *Metrics) Reconciled(result string, drift map[string]int) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(result).Inc()
	for kind, n := range drift {
		m.drift.WithLabelValues(kind).Set(float64(n))
	}
}

/* ------------------------------ counts ------------------------------ */

type countsCollector struct {
	fetch       CountsFunc
	clubs       *prometheus.Desc
	students    *prometheus.Desc
	memberships *prometheus.Desc
}

func newCountsCollector(fetch CountsFunc) *countsCollector {
	return &countsCollector{
		fetch:       fetch,
		clubs:       prometheus.NewDesc(namespace+"_clubs", "Number of clubs.", nil, nil),
		students:    prometheus.NewDesc(namespace+"_students", "Number of students.", nil, nil),
		memberships: prometheus.NewDesc(namespace+"_memberships", "Sum of club member counts.", nil, nil),
	}
}

func (c *countsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.clubs
	ch <- c.students
	ch <- c.memberships
}

func (c *countsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
	defer cancel()
	n := c.fetch(ctx)
	ch <- prometheus.MustNewConstMetric(c.clubs, prometheus.GaugeValue, float64(n.Clubs))
	ch <- prometheus.MustNewConstMetric(c.students, prometheus.GaugeValue, float64(n.Students))
	ch <- prometheus.MustNewConstMetric(c.memberships, prometheus.GaugeValue, float64(n.Memberships))
}
