package certification

import (
	"context"
	"time"

	"github.com/turtacn/AIComply/internal/domain/certificate"
)

// EventPublisher announces stored certificates.
type EventPublisher interface {
	PublishCertificateIssued(ctx context.Context, evt *certificate.IssuedEvent) error
}

// CertificateCache fronts certificate reads. GetOrLoad must call load at
// most once per key for concurrent callers and must return load's error
// unchanged.
type CertificateCache interface {
	GetOrLoad(ctx context.Context, number string, load func(ctx context.Context) (*certificate.CertificateRecord, error)) (*certificate.CertificateRecord, error)
	Put(ctx context.Context, rec *certificate.CertificateRecord) error
}

// RegistrySearcher queries the public certificate registry.
type RegistrySearcher interface {
	Search(ctx context.Context, q certificate.RegistryQuery) (*certificate.RegistryPage, error)
}

// CertificateArchive stores certificate documents durably and returns the
// object key.
type CertificateArchive interface {
	Archive(ctx context.Context, rec *certificate.CertificateRecord) (string, error)
}

// RegistryIndexer adds certificates to the public registry.
type RegistryIndexer interface {
	IndexCertificate(ctx context.Context, rec *certificate.CertificateRecord) error
}

// Metrics receives service-level observations. Arguments are plain values so
// any metrics backend can satisfy it without importing this package.
type Metrics interface {
	ObserveAssessment(kind, level string, d time.Duration)
	ObserveIssuance(certType, source string, attempts int, d time.Duration, code string)
	ObserveVerification(valid bool)
}

type noopMetrics struct{}

func (noopMetrics) ObserveAssessment(string, string, time.Duration)            {}
func (noopMetrics) ObserveIssuance(string, string, int, time.Duration, string) {}
func (noopMetrics) ObserveVerification(bool)                                   {}
