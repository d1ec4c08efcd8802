package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds the application metric vectors.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Assessment
	AssessmentsTotal   CounterVec
	AssessmentDuration HistogramVec

	// Certificate
	CertificatesIssuedTotal CounterVec
	IssuanceDuration        HistogramVec
	IssuanceAttempts        HistogramVec
	IssuanceFailuresTotal   CounterVec
	VerificationsTotal      CounterVec

	// Infrastructure
	CacheHitsTotal         CounterVec
	CacheMissesTotal       CounterVec
	MessagesProcessedTotal CounterVec
	MessageProcessDuration HistogramVec

	// System
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultIssuanceDurationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 20}
	DefaultAttemptBuckets          = []float64{1, 2, 3, 4, 5}
)

// NewAppMetrics registers all metrics with collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	m.AssessmentsTotal = collector.RegisterCounter("assessments_total", "Completed assessments", "kind", "level")
	m.AssessmentDuration = collector.RegisterHistogram("assessment_duration_seconds", "Assessment scoring duration", DefaultHTTPDurationBuckets, "kind")

	m.CertificatesIssuedTotal = collector.RegisterCounter("certificates_issued_total", "Issued certificates", "certificate_type", "recommendation_source")
	m.IssuanceDuration = collector.RegisterHistogram("certificate_issuance_duration_seconds", "Certificate issuance duration", DefaultIssuanceDurationBuckets, "certificate_type")
	m.IssuanceAttempts = collector.RegisterHistogram("certificate_issuance_attempts", "Insert attempts per issued certificate", DefaultAttemptBuckets)
	m.IssuanceFailuresTotal = collector.RegisterCounter("certificate_issuance_failures_total", "Failed certificate issuances", "code")
	m.VerificationsTotal = collector.RegisterCounter("certificate_verifications_total", "Certificate verifications", "result")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.MessagesProcessedTotal = collector.RegisterCounter("messages_processed_total", "Processed broker messages", "topic", "status")
	m.MessageProcessDuration = collector.RegisterHistogram("message_process_duration_seconds", "Message processing duration", DefaultHTTPDurationBuckets, "topic")

	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type")

	return m
}

// ObserveAssessment records one completed assessment.
func (m *AppMetrics) ObserveAssessment(kind, level string, d time.Duration) {
	m.AssessmentsTotal.WithLabelValues(kind, level).Inc()
	m.AssessmentDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveIssuance records the outcome of one issuance call. code is the
// error code on failure and empty on success.
func (m *AppMetrics) ObserveIssuance(certType, source string, attempts int, d time.Duration, code string) {
	if code != "" {
		m.IssuanceFailuresTotal.WithLabelValues(code).Inc()
		return
	}
	m.CertificatesIssuedTotal.WithLabelValues(certType, source).Inc()
	m.IssuanceDuration.WithLabelValues(certType).Observe(d.Seconds())
	m.IssuanceAttempts.WithLabelValues().Observe(float64(attempts))
}

// ObserveVerification records one verification verdict.
func (m *AppMetrics) ObserveVerification(valid bool) {
	result := "valid"
	if !valid {
		result = "invalid"
	}
	m.VerificationsTotal.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCacheAccess counts a hit or miss on cache.
func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// RecordMessage records one consumed message.
func RecordMessage(metrics *AppMetrics, topic string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.MessagesProcessedTotal.WithLabelValues(topic, status).Inc()
	metrics.MessageProcessDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

// RecordHealth sets the health gauge for component.
func RecordHealth(metrics *AppMetrics, component string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	metrics.HealthCheckStatus.WithLabelValues(component).Set(v)
}

// RecordError counts an error by component and type.
func RecordError(metrics *AppMetrics, component, errorType string) {
	metrics.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
