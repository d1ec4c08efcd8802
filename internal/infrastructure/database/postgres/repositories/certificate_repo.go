package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/turtacn/AIComply/internal/domain/assessment"
	"github.com/turtacn/AIComply/internal/domain/certificate"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/pkg/errors"
)

// pgxQuerier is the subset of *pgxpool.Pool used by CertificateRepository.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// CertificateRepository stores certificates through pgx. The unique
// constraint on certificate_number is what detects serial collisions.
type CertificateRepository struct {
	db  pgxQuerier
	log logging.Logger
}

// NewCertificateRepository accepts a *pgxpool.Pool or anything with the same
// query methods.
func NewCertificateRepository(db pgxQuerier, log logging.Logger) *CertificateRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CertificateRepository{db: db, log: log}
}

var _ certificate.Repository = (*CertificateRepository)(nil)

const certificateColumns = `
	id, certificate_number, organization_name, system_name, system_id, certificate_type,
	issued_at, valid_until, risk_level, compliance_score, maturity_level,
	certification_criteria, compliance_details, certification,
	user_id, recommendation_source`

// Create inserts rec. A duplicate certificate number maps to
// ErrCodeSerialCollision and the stored row is left untouched.
func (r *CertificateRepository) Create(ctx context.Context, rec *certificate.CertificateRecord) error {
	if rec == nil {
		return errors.InvalidParam("certificate cannot be nil")
	}
	criteria, err := json.Marshal(rec.CertificationCriteria)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode certification criteria")
	}
	details, err := json.Marshal(rec.ComplianceDetails)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode compliance details")
	}
	certification, err := json.Marshal(rec.Certification)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode certification")
	}

	query := `INSERT INTO certificates (` + certificateColumns + `, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = r.db.Exec(ctx, query,
		rec.ID, rec.CertificateNumber, rec.OrganizationName, rec.SystemName, rec.SystemID,
		string(rec.CertificateType), rec.IssuedAt, rec.ValidUntil, string(rec.RiskLevel),
		rec.ComplianceScore, string(rec.MaturityLevel), criteria, details, certification,
		rec.UserID, rec.RecommendationSource, rec.Certification.Hash,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return errors.Wrapf(err, errors.ErrCodeSerialCollision, "certificate number %s already issued", rec.CertificateNumber)
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create certificate")
	}

	r.log.Debug("certificate stored",
		logging.String("certificate_number", rec.CertificateNumber),
		logging.String("organization", rec.OrganizationName),
	)
	return nil
}

// GetByNumber returns the stored certificate or ErrCodeCertificateNotFound.
func (r *CertificateRepository) GetByNumber(ctx context.Context, number string) (*certificate.CertificateRecord, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE certificate_number = $1`
	rec, err := scanCertificate(r.db.QueryRow(ctx, query, number))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Newf(errors.ErrCodeCertificateNotFound, "certificate %s not found", number)
		}
		if errors.IsCode(err, errors.ErrCodeSerialization) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get certificate")
	}
	return rec, nil
}

const certificateOrgFilter = `WHERE organization_name = $1
		AND ($2::text = '' OR compliance_details->>'overall_status' = $2::text)`

// ListByOrganization returns the organisation's certificates, newest first.
// The status filter runs in SQL so the total covers every page.
func (r *CertificateRepository) ListByOrganization(ctx context.Context, organizationName string, status certificate.OverallStatus, limit, offset int) ([]*certificate.CertificateRecord, int64, error) {
	limit, offset = clampPage(limit, offset)

	var total int64
	countQuery := `SELECT COUNT(*) FROM certificates ` + certificateOrgFilter
	if err := r.db.QueryRow(ctx, countQuery, organizationName, string(status)).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count certificates")
	}
	if total == 0 || int64(offset) >= total {
		return []*certificate.CertificateRecord{}, total, nil
	}

	query := `SELECT ` + certificateColumns + ` FROM certificates ` + certificateOrgFilter + `
		ORDER BY issued_at DESC, certificate_number
		LIMIT $3 OFFSET $4`

	rows, err := r.db.Query(ctx, query, organizationName, string(status), limit, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list certificates")
	}
	defer rows.Close()

	var out []*certificate.CertificateRecord
	for rows.Next() {
		rec, err := scanCertificate(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan certificate")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate certificates")
	}
	return out, total, nil
}

func scanCertificate(row pgx.Row) (*certificate.CertificateRecord, error) {
	var (
		rec                              certificate.CertificateRecord
		certType, riskLevel, maturity    string
		criteria, details, certification []byte
	)
	err := row.Scan(
		&rec.ID, &rec.CertificateNumber, &rec.OrganizationName, &rec.SystemName, &rec.SystemID, &certType,
		&rec.IssuedAt, &rec.ValidUntil, &riskLevel, &rec.ComplianceScore, &maturity,
		&criteria, &details, &certification,
		&rec.UserID, &rec.RecommendationSource,
	)
	if err != nil {
		return nil, err
	}
	rec.CertificateType = certificate.CertificateType(certType)
	rec.RiskLevel = assessment.RiskLevel(riskLevel)
	rec.MaturityLevel = assessment.MaturityLevel(maturity)
	rec.IssuedAt = rec.IssuedAt.UTC()
	rec.ValidUntil = rec.ValidUntil.UTC()

	if err := json.Unmarshal(criteria, &rec.CertificationCriteria); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode certification criteria")
	}
	if err := json.Unmarshal(details, &rec.ComplianceDetails); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode compliance details")
	}
	if err := json.Unmarshal(certification, &rec.Certification); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode certification")
	}
	return &rec, nil
}
