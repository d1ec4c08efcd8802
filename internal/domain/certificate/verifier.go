package certificate

import (
	"crypto/subtle"
	"time"
)

// Verify recomputes the canonical hash of record and compares it with the
// stored hash in constant time. Nil, unhashed or malformed records yield
// false; Verify never panics and never mutates record.
func Verify(record *CertificateRecord) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	if record == nil || record.Certification.Hash == "" {
		return false
	}
	expected, err := ComputeHash(record)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(record.Certification.Hash)) == 1
}

// VerificationReport is the detailed outcome of inspecting a certificate.
type VerificationReport struct {
	CertificateNumber string    `json:"certificate_number"`
	Valid             bool      `json:"valid"`
	Expired           bool      `json:"expired"`
	WellFormedNumber  bool      `json:"well_formed_number"`
	StoredHash        string    `json:"stored_hash"`
	ExpectedHash      string    `json:"expected_hash,omitempty"`
	ValidUntil        time.Time `json:"valid_until"`
	CheckedAt         time.Time `json:"checked_at"`
	Reason            string    `json:"reason,omitempty"`
}

// Inspect verifies record and reports the stored and expected hashes and
// whether the certificate has expired at now. Valid reflects integrity only.
func Inspect(record *CertificateRecord, now time.Time) (report VerificationReport) {
	report.CheckedAt = now.UTC()
	defer func() {
		if recover() != nil {
			report.Valid = false
			report.Reason = "malformed certificate record"
		}
	}()
	if record == nil {
		report.Reason = "certificate record is missing"
		return report
	}
	report.CertificateNumber = record.CertificateNumber
	report.StoredHash = record.Certification.Hash
	report.ValidUntil = record.ValidUntil
	report.WellFormedNumber = ValidSerial(record.CertificateNumber)
	report.Expired = record.IsExpired(now)

	if expected, err := ComputeHash(record); err == nil {
		report.ExpectedHash = expected
	}
	report.Valid = Verify(record)
	switch {
	case report.StoredHash == "":
		report.Reason = "certificate carries no integrity hash"
	case !report.Valid:
		report.Reason = "integrity hash mismatch"
	case report.Expired:
		report.Reason = "certificate has expired"
	}
	return report
}
