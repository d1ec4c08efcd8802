package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/AIComply/internal/domain/certificate"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/pkg/errors"
)

const (
	metaHash   = "Certificate-Hash"
	metaType   = "Certificate-Type"
	metaNumber = "Certificate-Number"
)

// CertificateArchive writes issued certificates to object storage as JSON
// documents. Archiving the same certificate twice is a no-op, so redelivered
// events are harmless.
type CertificateArchive struct {
	client *Client
	logger logging.Logger
}

// NewCertificateArchive binds the archive to client's bucket.
func NewCertificateArchive(client *Client, log logging.Logger) *CertificateArchive {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CertificateArchive{client: client, logger: log}
}

// ObjectKey returns certificates/<org-slug>/<year>/<number>.json.
func ObjectKey(rec *certificate.CertificateRecord) string {
	return fmt.Sprintf("certificates/%s/%04d/%s.json",
		slug(rec.OrganizationName), rec.IssuedAt.UTC().Year(), rec.CertificateNumber)
}

// Archive stores rec and returns its object key.
func (a *CertificateArchive) Archive(ctx context.Context, rec *certificate.CertificateRecord) (string, error) {
	if rec == nil || rec.CertificateNumber == "" {
		return "", errors.InvalidParam("certificate number is required for archiving")
	}
	if err := a.client.ensureOpen(); err != nil {
		return "", err
	}
	bucket := a.client.Bucket()
	key := ObjectKey(rec)

	info, err := a.client.api.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	switch {
	case err == nil:
		if info.UserMetadata[metaHash] == rec.Certification.Hash {
			a.logger.Debug("certificate already archived", logging.String("object_key", key))
			return key, nil
		}
		a.logger.Warn("archived certificate differs, writing new version",
			logging.String("object_key", key),
			logging.String("certificate_number", rec.CertificateNumber),
		)
	case minio.ToErrorResponse(err).Code != "NoSuchKey":
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "failed to stat archived certificate")
	}

	body, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode certificate")
	}

	_, err = a.client.api.PutObject(ctx, bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			metaHash:   rec.Certification.Hash,
			metaType:   string(rec.CertificateType),
			metaNumber: rec.CertificateNumber,
		},
		UserTags: map[string]string{
			"certificate_type": string(rec.CertificateType),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "failed to upload certificate")
	}

	a.logger.Info("certificate archived",
		logging.String("bucket", bucket),
		logging.String("object_key", key),
		logging.Int("bytes", len(body)),
	)
	return key, nil
}

// slug lower-cases s and collapses every run of non-alphanumerics to "-".
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "unknown"
	}
	return out
}
