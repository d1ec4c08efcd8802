package certificate

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/turtacn/AIComply/pkg/errors"
)

// Canonical serialisation
//
// The integrity hash covers exactly five fields, in this order, encoded as a
// JSON array with HTML escaping disabled and no trailing newline:
//
//	[certificateNumber, organizationName, systemName, issuedAt, complianceScore]
//
// issuedAt is formatted as RFC 3339 with nanoseconds in UTC
// (time.RFC3339Nano), systemName is "" when absent and complianceScore is a
// JSON integer. The digest is SHA-256, hex-encoded in lower case. Example:
//
//	["RA-2025-K3F9QZ21","Acme GmbH","Credit Scoring","2025-03-01T10:00:00Z",70]
//
// Every string field must be valid UTF-8. encoding/json would replace invalid
// bytes with U+FFFD, letting distinct names share a hash, so such records are
// rejected instead.
//
// Composed certificates truncate issuedAt to microseconds so that the value
// survives a round trip through PostgreSQL timestamptz unchanged.

// CanonicalPayload returns the exact bytes that are hashed for c.
func CanonicalPayload(c *CertificateRecord) ([]byte, error) {
	for _, f := range [...]struct{ name, value string }{
		{"certificate number", c.CertificateNumber},
		{"organization name", c.OrganizationName},
		{"system name", c.SystemName},
	} {
		if !utf8.ValidString(f.value) {
			return nil, errors.Newf(errors.ErrCodeInvalidCertificateInput, "%s is not valid UTF-8", f.name)
		}
	}
	fields := []interface{}{
		c.CertificateNumber,
		c.OrganizationName,
		c.SystemName,
		c.IssuedAt.UTC().Format(time.RFC3339Nano),
		c.ComplianceScore,
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ComputeHash returns the lower-case hex SHA-256 of CanonicalPayload(c).
func ComputeHash(c *CertificateRecord) (string, error) {
	payload, err := CanonicalPayload(c)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
