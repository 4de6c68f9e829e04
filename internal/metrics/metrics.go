package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for leadmail
type Metrics struct {
	// Campaigns
	CampaignsTotal          *prometheus.CounterVec
	CampaignsInFlight       prometheus.Gauge
	CampaignDurationSeconds prometheus.Histogram
	MessagesTotal           *prometheus.CounterVec

	// Configuration checks and imports
	SMTPChecksTotal    *prometheus.CounterVec
	LeadsImportedTotal *prometheus.CounterVec

	// API
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec
	APIErrorsTotal            *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a Metrics instance on its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		CampaignsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadmail_campaigns_total",
				Help: "Total number of campaigns by outcome",
			},
			[]string{"outcome"},
		),
		CampaignsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadmail_campaigns_in_flight",
				Help: "Number of campaigns currently sending",
			},
		),
		CampaignDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "leadmail_campaign_duration_seconds",
				Help:    "Wall-clock time to attempt every recipient of a campaign",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
			},
		),
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadmail_messages_total",
				Help: "Total number of campaign messages by status",
			},
			[]string{"status"},
		),
		SMTPChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadmail_smtp_checks_total",
				Help: "SMTP verify and test-send attempts by kind and result",
			},
			[]string{"kind", "result"},
		),
		LeadsImportedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadmail_leads_imported_total",
				Help: "Imported lead rows by result",
			},
			[]string{"result"},
		),
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadmail_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadmail_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		APIErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadmail_api_errors_total",
				Help: "Total number of API errors by type",
			},
			[]string{"error_type"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.CampaignsTotal,
		m.CampaignsInFlight,
		m.CampaignDurationSeconds,
		m.MessagesTotal,
		m.SMTPChecksTotal,
		m.LeadsImportedTotal,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.APIErrorsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the process-wide metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the process-wide metrics instance, possibly nil
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// The helpers below are no-ops until SetGlobal is called.

func CampaignStarted() {
	if m := Global(); m != nil {
		m.CampaignsInFlight.Inc()
	}
}

// CampaignFinished records a completed campaign. Outcome is "all_sent",
// "partial" or "all_failed".
func CampaignFinished(sent, failed int, seconds float64) {
	m := Global()
	if m == nil {
		return
	}
	m.CampaignsInFlight.Dec()
	m.CampaignDurationSeconds.Observe(seconds)

	outcome := "partial"
	switch {
	case failed == 0:
		outcome = "all_sent"
	case sent == 0:
		outcome = "all_failed"
	}
	m.CampaignsTotal.WithLabelValues(outcome).Inc()
}

func IncMessage(status string) {
	if m := Global(); m != nil {
		m.MessagesTotal.WithLabelValues(status).Inc()
	}
}

// IncSMTPCheck records a verify ("verify") or test-send ("test_send") result
func IncSMTPCheck(kind string, err error) {
	m := Global()
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.SMTPChecksTotal.WithLabelValues(kind, result).Inc()
}

func AddLeadsImported(inserted, failed int) {
	m := Global()
	if m == nil {
		return
	}
	m.LeadsImportedTotal.WithLabelValues("inserted").Add(float64(inserted))
	m.LeadsImportedTotal.WithLabelValues("failed").Add(float64(failed))
}
