package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	t.Helper()
	c := newTestCollector(t)
	return NewAppMetrics(c), c
}

func TestNewAppMetrics_AllRegistered(t *testing.T) {
	m, _ := newTestAppMetrics(t)
	require.NotNil(t, m)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.CertificatesIssuedTotal)
	assert.NotNil(t, m.VerificationsTotal)
	assert.NotNil(t, m.MessagesProcessedTotal)
}

func TestRecordHTTPRequest(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordHTTPRequest(m, "POST", "/api/v1/certificates", 201, 40*time.Millisecond)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_http_requests_total{method="POST",path="/api/v1/certificates",status_code="201"} 1`)
	assert.Contains(t, out, `test_unit_http_request_duration_seconds_count{method="POST",path="/api/v1/certificates"} 1`)
}

func TestObserveIssuance(t *testing.T) {
	m, c := newTestAppMetrics(t)
	m.ObserveIssuance("maturity", "fallback", 2, 120*time.Millisecond, "")
	m.ObserveIssuance("maturity", "", 3, time.Second, "CRT_002")

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_certificates_issued_total{certificate_type="maturity",recommendation_source="fallback"} 1`)
	assert.Contains(t, out, `test_unit_certificate_issuance_attempts_sum 2`)
	assert.Contains(t, out, `test_unit_certificate_issuance_failures_total{code="CRT_002"} 1`)
}

func TestObserveAssessmentAndVerification(t *testing.T) {
	m, c := newTestAppMetrics(t)
	m.ObserveAssessment("risk", "high", time.Millisecond)
	m.ObserveVerification(true)
	m.ObserveVerification(false)
	m.ObserveVerification(false)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_assessments_total{kind="risk",level="high"} 1`)
	assert.Contains(t, out, `test_unit_certificate_verifications_total{result="valid"} 1`)
	assert.Contains(t, out, `test_unit_certificate_verifications_total{result="invalid"} 2`)
}

func TestRecordHelpers(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordCacheAccess(m, "certificate", true)
	RecordCacheAccess(m, "certificate", false)
	RecordMessage(m, "certificate.issued", nil, time.Millisecond)
	RecordMessage(m, "certificate.issued", errors.New("boom"), time.Millisecond)
	RecordHealth(m, "postgres", true)
	RecordError(m, "worker", "archive")

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_cache_hits_total{cache="certificate"} 1`)
	assert.Contains(t, out, `test_unit_cache_misses_total{cache="certificate"} 1`)
	assert.Contains(t, out, `test_unit_messages_processed_total{status="error",topic="certificate.issued"} 1`)
	assert.Contains(t, out, `test_unit_health_check_status{component="postgres"} 1`)
	assert.Contains(t, out, `test_unit_errors_total{component="worker",error_type="archive"} 1`)
}
