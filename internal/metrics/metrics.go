package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Discovery metrics
	TokensDiscovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatchr_tokens_discovered_total",
			Help: "Tokens returned by source adapters after normalization",
		},
		[]string{"source"},
	)

	AdapterErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatchr_adapter_errors_total",
			Help: "Adapter fetches that failed and degraded to an empty list",
		},
		[]string{"source"},
	)

	// Enrichment metrics
	EnrichmentFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatchr_enrichment_failures_total",
			Help: "Per-token enrichment sub-steps that yielded no patch",
		},
		[]string{"step"}, // scrape, market, creator
	)

	EnrichmentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hatchr_enrichment_duration_seconds",
			Help:    "Duration of the enrichment stage per scan",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20},
		},
	)

	// Alert scan metrics
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatchr_scans_total",
			Help: "Alert scan invocations",
		},
		[]string{"status"}, // success, error
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hatchr_scan_duration_seconds",
			Help:    "Duration of a full alert scan",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 15, 30},
		},
	)

	FreshTokens = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hatchr_fresh_tokens_per_scan",
			Help:    "Tokens past the cursor per scan",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	AlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatchr_alerts_sent_total",
			Help: "Notifications dispatched, by threshold type",
		},
		[]string{"type"}, // score90, vol1000
	)

	AlertSendErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hatchr_alert_send_errors_total",
			Help: "Notification dispatches that failed at the delivery sink",
		},
	)

	// Outbound API metrics
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatchr_api_requests_total",
			Help: "Outbound API requests",
		},
		[]string{"api", "status"}, // clanker/flaunch/dexscreener/basescan/neynar
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hatchr_api_request_duration_seconds",
			Help:    "Duration of outbound API requests",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"api"},
	)

	// Webhook intake metrics
	WebhookPayloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatchr_webhook_payloads_total",
			Help: "Webhook payloads by outcome",
		},
		[]string{"outcome"}, // stored, dropped_low_score, dropped_no_match, rejected_signature, invalid
	)

	// Hatchr score distribution (x100 scale for bucket readability)
	HatchrScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hatchr_scores",
			Help:    "Distribution of computed hatchr scores (0-100 scale)",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 85, 90, 95, 100},
		},
	)

	HealthChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatchr_health_checks_total",
			Help: "Health check requests",
		},
		[]string{"status"},
	)
)

// RecordScan records one alert scan invocation
func RecordScan(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ScansTotal.WithLabelValues(status).Inc()
	ScanDuration.Observe(duration.Seconds())
}

// RecordAPIRequest records an outbound API call
func RecordAPIRequest(api string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	APIRequests.WithLabelValues(api, status).Inc()
	APIRequestDuration.WithLabelValues(api).Observe(duration.Seconds())
}

// RecordHatchrScore records a computed composite score
func RecordHatchrScore(score float64) {
	HatchrScores.Observe(score * 100)
}

// RecordHealthCheck records a health probe
func RecordHealthCheck(healthy bool) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	HealthChecks.WithLabelValues(status).Inc()
}
