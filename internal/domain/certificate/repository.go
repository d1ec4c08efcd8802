package certificate

import "context"

// Repository stores issued certificates. Create is a single atomic insert;
// a duplicate certificate number fails with ErrCodeSerialCollision and
// leaves the existing record untouched.
type Repository interface {
	Create(ctx context.Context, rec *CertificateRecord) error
	GetByNumber(ctx context.Context, number string) (*CertificateRecord, error)
	// ListByOrganization returns one page of the organisation's certificates,
	// newest first, and the number of matches across all pages. An empty
	// status matches every certificate.
	ListByOrganization(ctx context.Context, organizationName string, status OverallStatus, limit, offset int) ([]*CertificateRecord, int64, error)
}
