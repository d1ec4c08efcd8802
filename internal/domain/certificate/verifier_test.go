package certificate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/AIComply/internal/domain/assessment"
	"github.com/turtacn/AIComply/pkg/errors"
)

func composed(t *testing.T) *CertificateRecord {
	t.Helper()
	rec, err := newTestComposer(t, nil).Compose(context.Background(), Input{
		OrganizationName: "Acme GmbH",
		SystemName:       "Credit Scoring",
		CertificateType:  TypeRiskAssessment,
		Risk:             &assessment.RiskAssessmentResult{RiskLevel: assessment.RiskHigh, RiskScore: 85},
	})
	require.NoError(t, err)
	return rec
}

func TestCanonicalPayload(t *testing.T) {
	rec := &CertificateRecord{
		CertificateNumber: "RA-2025-K3F9QZ21",
		OrganizationName:  "Müller & Söhne <AI>",
		SystemName:        "",
		IssuedAt:          time.Date(2025, 3, 1, 11, 0, 0, 500000000, time.FixedZone("CET", 3600)),
		ComplianceScore:   70,
	}
	payload, err := CanonicalPayload(rec)
	require.NoError(t, err)
	assert.Equal(t, `["RA-2025-K3F9QZ21","Müller & Söhne <AI>","","2025-03-01T10:00:00.5Z",70]`, string(payload))

	sum := sha256.Sum256(payload)
	hash, err := ComputeHash(rec)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:]), hash)
}

func TestVerify_FreshRecordIdempotent(t *testing.T) {
	rec := composed(t)
	assert.True(t, Verify(rec))
	assert.True(t, Verify(rec))
}

func TestVerify_SingleFieldTamper(t *testing.T) {
	tests := map[string]func(r *CertificateRecord){
		"certificate number": func(r *CertificateRecord) { r.CertificateNumber = "RA-2025-AAAAAAAA" },
		"organization name":  func(r *CertificateRecord) { r.OrganizationName = "Acme AG" },
		"system name":        func(r *CertificateRecord) { r.SystemName = "" },
		"issued at":          func(r *CertificateRecord) { r.IssuedAt = r.IssuedAt.Add(time.Microsecond) },
		"compliance score":   func(r *CertificateRecord) { r.ComplianceScore++ },
		"stored hash case":   func(r *CertificateRecord) { r.Certification.Hash = strings.ToUpper(r.Certification.Hash) },
		"stored hash empty":  func(r *CertificateRecord) { r.Certification.Hash = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			rec := composed(t)
			mutate(rec)
			assert.False(t, Verify(rec))
			assert.False(t, Verify(rec))
		})
	}
}

func TestVerify_InvalidUTF8Names(t *testing.T) {
	rec := &CertificateRecord{
		CertificateNumber: "RA-2025-K3F9QZ21",
		OrganizationName:  "Acme\uFFFD",
		IssuedAt:          fixedIssue,
		ComplianceScore:   70,
	}
	replacementHash, err := ComputeHash(rec)
	require.NoError(t, err)

	// "Acme\xff" and "Acme\xfe" would both encode as "Acme\uFFFD"
	for _, org := range []string{"Acme\xff", "Acme\xfe"} {
		rec.OrganizationName = org
		rec.Certification.Hash = replacementHash
		_, err := CanonicalPayload(rec)
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidCertificateInput), org)
		assert.False(t, Verify(rec), org)
	}

	valid := composed(t)
	valid.SystemName = "Credit\xffScoring"
	assert.False(t, Verify(valid))

	report := Inspect(valid, fixedIssue)
	assert.False(t, report.Valid)
	assert.Empty(t, report.ExpectedHash)
}

func TestVerify_NonCanonicalFieldsDoNotAffectHash(t *testing.T) {
	rec := composed(t)
	rec.ComplianceDetails.Recommendations = []string{"edited"}
	rec.Certification.Authority = "other"
	assert.True(t, Verify(rec))
}

func TestVerify_TimezoneIndependent(t *testing.T) {
	rec := composed(t)
	rec.IssuedAt = rec.IssuedAt.In(time.FixedZone("X", -5*3600))
	assert.True(t, Verify(rec))
}

func TestVerify_Nil(t *testing.T) {
	assert.False(t, Verify(nil))
}

func TestInspect(t *testing.T) {
	rec := composed(t)

	report := Inspect(rec, rec.IssuedAt.Add(time.Hour))
	assert.True(t, report.Valid)
	assert.False(t, report.Expired)
	assert.True(t, report.WellFormedNumber)
	assert.Equal(t, report.StoredHash, report.ExpectedHash)
	assert.Empty(t, report.Reason)

	expired := Inspect(rec, rec.ValidUntil.Add(time.Second))
	assert.True(t, expired.Valid)
	assert.True(t, expired.Expired)
	assert.Equal(t, "certificate has expired", expired.Reason)

	rec.ComplianceScore = 99
	tampered := Inspect(rec, rec.IssuedAt)
	assert.False(t, tampered.Valid)
	assert.NotEqual(t, tampered.StoredHash, tampered.ExpectedHash)
	assert.Equal(t, "integrity hash mismatch", tampered.Reason)

	missing := Inspect(nil, time.Now())
	assert.False(t, missing.Valid)
	assert.Equal(t, "certificate record is missing", missing.Reason)
}
