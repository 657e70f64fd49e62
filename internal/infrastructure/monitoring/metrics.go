// Package monitoring provides the Prometheus metrics, zap logging, and
// OpenTelemetry tracing implementations for the CLE License Enforcement
// Service.
package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/turtacn/cle/internal/domain/service"
)

// Metrics manages the licensing Prometheus metrics.
type Metrics struct {
	LicenseLoads       *prometheus.CounterVec
	ClientAdmissions   *prometheus.CounterVec
	IssuerAdmissions   *prometheus.CounterVec
	EvaluationDuration *prometheus.HistogramVec
	LicensesHeld       prometheus.Gauge
	LicensesActive     prometheus.Gauge
	KnownClients       prometheus.Gauge
	KnownIssuers       prometheus.Gauge
}

var _ service.Metrics = (*Metrics)(nil)

// NewMetrics creates and registers the licensing metrics on the given
// registerer. Pass prometheus.DefaultRegisterer in production; tests use a
// fresh registry to avoid duplicate-registration panics.
//
// Parameters:
//   - reg: The Prometheus registerer to attach the metrics to.
//
// Returns:
//   - *Metrics: The registered metric set.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LicenseLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cle_license_loads_total",
				Help: "Total number of license ingestion attempts.",
			},
			[]string{"source", "result"},
		),
		ClientAdmissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cle_client_admissions_total",
				Help: "Total number of client admission decisions.",
			},
			[]string{"allowed", "reason"},
		),
		IssuerAdmissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cle_issuer_admissions_total",
				Help: "Total number of issuer admission decisions.",
			},
			[]string{"allowed", "reason"},
		),
		EvaluationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cle_license_evaluation_seconds",
				Help:    "Duration of effective-license evaluations.",
				Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10),
			},
			[]string{"tier"},
		),
		LicensesHeld: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cle_licenses_held",
			Help: "Number of licenses currently held in the collection.",
		}),
		LicensesActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cle_licenses_active",
			Help: "Number of licenses contributing to the effective grant.",
		}),
		KnownClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cle_known_clients",
			Help: "Number of grandfathered client identifiers.",
		}),
		KnownIssuers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cle_known_issuers",
			Help: "Number of grandfathered issuers.",
		}),
	}
}

// RecordLicenseLoad records a license ingestion attempt.
func (m *Metrics) RecordLicenseLoad(source string, success bool) {
	result := "success"
	if !success {
		result = "rejected"
	}
	m.LicenseLoads.WithLabelValues(source, result).Inc()
}

// RecordClientAdmission records a client admission decision.
func (m *Metrics) RecordClientAdmission(allowed bool, reason string) {
	m.ClientAdmissions.WithLabelValues(strconv.FormatBool(allowed), reason).Inc()
}

// RecordIssuerAdmission records an issuer admission decision.
func (m *Metrics) RecordIssuerAdmission(allowed bool, reason string) {
	m.IssuerAdmissions.WithLabelValues(strconv.FormatBool(allowed), reason).Inc()
}

// RecordEvaluation records the duration of one effective-license fold.
func (m *Metrics) RecordEvaluation(tier string, duration time.Duration) {
	m.EvaluationDuration.WithLabelValues(tier).Observe(duration.Seconds())
}

// UpdateLicenseCounts updates the gauges for held and active licenses.
func (m *Metrics) UpdateLicenseCounts(held, active int) {
	m.LicensesHeld.Set(float64(held))
	m.LicensesActive.Set(float64(active))
}

// UpdateKnownCounts updates the gauges for grandfathered principals.
func (m *Metrics) UpdateKnownCounts(clients, issuers int64) {
	m.KnownClients.Set(float64(clients))
	m.KnownIssuers.Set(float64(issuers))
}
