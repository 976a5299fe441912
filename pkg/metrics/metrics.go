// Package metrics holds the Prometheus collectors of a check run. The run is a
// batch job, so instead of being scraped the registry is pushed once to a
// Pushgateway when the run finishes. A nil *Metrics is valid and records
// nothing.
package metrics

import (
	"context"
	"domainwatch/pkg/domain"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "domainwatch"

// Sources of a domain record.
const (
	SourceRegistrar = "registrar"
	SourceWhois     = "whois"
	SourceOverride  = "override"
)

// Outcomes of a single domain check.
const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeForbidden = "forbidden"
	OutcomeError     = "error"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

// Metrics contains the collectors of one run, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	checks               *prometheus.CounterVec
	rateLimitWaits       *prometheus.CounterVec
	rateLimitWaitSeconds *prometheus.CounterVec
	whoisAttempts        *prometheus.CounterVec
	whoisDuration        prometheus.Histogram
	daysUntilExpiry      *prometheus.GaugeVec
	alertsSelected       prometheus.Gauge
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Domain checks by source and outcome.",
		}, []string{"source", "outcome"}),
		rateLimitWaits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_waits_total",
			Help:      "Times a registrar request had to wait for the next rate window.",
		}, []string{"account"}),
		rateLimitWaitSeconds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_wait_seconds_total",
			Help:      "Seconds spent waiting for registrar rate windows.",
		}, []string{"account"}),
		whoisAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "whois_attempts_total",
			Help:      "WHOIS query attempts by outcome.",
		}, []string{"outcome"}),
		whoisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "whois_query_duration_seconds",
			Help:      "Latency of single WHOIS queries.",
			Buckets:   DefaultBuckets,
		}),
		daysUntilExpiry: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "days_until_expiry",
			Help:      "Days until the domain expires.",
		}, []string{"domain", "account"}),
		alertsSelected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alerts_selected",
			Help:      "Domains selected for the expiry alert in the last run.",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}

	return m.registry
}

// CheckCompleted counts one finished domain check.
func (m *Metrics) CheckCompleted(source, outcome string) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(source, outcome).Inc()
}

// RateLimitWaited records a wait for the next rate window.
func (m *Metrics) RateLimitWaited(account string, d time.Duration) {
	if m == nil {
		return
	}
	m.rateLimitWaits.WithLabelValues(account).Inc()
	m.rateLimitWaitSeconds.WithLabelValues(account).Add(d.Seconds())
}

// WhoisAttempt records a single WHOIS query.
func (m *Metrics) WhoisAttempt(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.whoisAttempts.WithLabelValues(outcome).Inc()
	m.whoisDuration.Observe(d.Seconds())
}

// ObserveRecord exports the days left of a record with a known expiry.
func (m *Metrics) ObserveRecord(r domain.Record) {
	if m == nil || !r.HasExpiry() {
		return
	}
	m.daysUntilExpiry.WithLabelValues(r.Name, r.Account).Set(float64(r.DaysUntilExpiry))
}

// AlertsSelected records how many domains were selected for alerting.
func (m *Metrics) AlertsSelected(n int) {
	if m == nil {
		return
	}
	m.alertsSelected.Set(float64(n))
}

// Push sends every collector to the Pushgateway at url under the given job name.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m == nil {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("could not push metrics: %w", err)
	}

	return nil
}
