package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/AIComply/internal/domain/assessment"
	"github.com/turtacn/AIComply/internal/domain/certificate"
	"github.com/turtacn/AIComply/pkg/errors"
)

// fakeRow copies its values into the scan destinations in column order.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r.values))
	}
	for i, v := range r.values {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(v))
	}
	return nil
}

type fakeQuerier struct {
	execSQL   string
	execArgs  []any
	execErr   error
	row       pgx.Row
	rowSQL    string
	rowArgs   []any
	queryErr  error
	querySQL  string
	queryArgs []any
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = sql
	f.execArgs = args
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.rowSQL = sql
	f.rowArgs = args
	return f.row
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.querySQL = sql
	f.queryArgs = args
	return nil, f.queryErr
}

func sampleCertificate(t *testing.T) *certificate.CertificateRecord {
	t.Helper()
	issued := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	rec := &certificate.CertificateRecord{
		ID:                "0b7a4c1e-8d0f-4f3e-9a51-2c6d7e8f9a01",
		CertificateNumber: "MA-2025-AAAABBBB",
		OrganizationName:  "Acme GmbH",
		SystemName:        "Credit Scoring",
		CertificateType:   certificate.TypeMaturity,
		IssuedAt:          issued,
		ValidUntil:        issued.AddDate(1, 0, 0),
		ComplianceScore:   70,
		MaturityLevel:     assessment.MaturityManaged,
		CertificationCriteria: certificate.CertificationCriteria{
			EvaluatedDomains: []string{"governance"},
		},
		ComplianceDetails: certificate.ComplianceDetails{
			OverallStatus:  certificate.StatusPartiallyCompliant,
			NextReviewDate: issued.AddDate(0, 0, 270),
		},
		Certification: certificate.Certification{
			Authority: "AIComply Certification Authority",
			Version:   "1.0.0",
		},
		RecommendationSource: "fallback",
	}
	hash, err := certificate.ComputeHash(rec)
	require.NoError(t, err)
	rec.Certification.Hash = hash
	return rec
}

func rowFor(t *testing.T, rec *certificate.CertificateRecord) fakeRow {
	t.Helper()
	criteria, _ := json.Marshal(rec.CertificationCriteria)
	details, _ := json.Marshal(rec.ComplianceDetails)
	cert, _ := json.Marshal(rec.Certification)
	return fakeRow{values: []any{
		rec.ID, rec.CertificateNumber, rec.OrganizationName, rec.SystemName, rec.SystemID, string(rec.CertificateType),
		rec.IssuedAt.In(time.FixedZone("CEST", 2*3600)), rec.ValidUntil, string(rec.RiskLevel), rec.ComplianceScore, string(rec.MaturityLevel),
		criteria, details, cert,
		rec.UserID, rec.RecommendationSource,
	}}
}

func TestCertificateRepository_Create(t *testing.T) {
	db := &fakeQuerier{}
	repo := NewCertificateRepository(db, nil)
	rec := sampleCertificate(t)

	require.NoError(t, repo.Create(context.Background(), rec))
	assert.Contains(t, db.execSQL, "INSERT INTO certificates")
	require.Len(t, db.execArgs, 17)
	assert.Equal(t, "MA-2025-AAAABBBB", db.execArgs[1])
	assert.Equal(t, "maturity", db.execArgs[5])
	assert.Equal(t, rec.Certification.Hash, db.execArgs[16])
}

func TestCertificateRepository_Create_DuplicateNumberIsCollision(t *testing.T) {
	db := &fakeQuerier{execErr: &pgconn.PgError{Code: "23505", ConstraintName: "uq_certificates_number"}}
	repo := NewCertificateRepository(db, nil)

	err := repo.Create(context.Background(), sampleCertificate(t))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialCollision))
}

func TestCertificateRepository_Create_OtherFailure(t *testing.T) {
	db := &fakeQuerier{execErr: &pgconn.PgError{Code: "23514"}}
	repo := NewCertificateRepository(db, nil)

	err := repo.Create(context.Background(), sampleCertificate(t))
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
	assert.False(t, errors.IsCode(err, errors.ErrCodeSerialCollision))
}

func TestCertificateRepository_Create_Nil(t *testing.T) {
	repo := NewCertificateRepository(&fakeQuerier{}, nil)
	assert.True(t, errors.IsValidation(repo.Create(context.Background(), nil)))
}

func TestCertificateRepository_GetByNumber_HashStillVerifies(t *testing.T) {
	rec := sampleCertificate(t)
	repo := NewCertificateRepository(&fakeQuerier{row: rowFor(t, rec)}, nil)

	got, err := repo.GetByNumber(context.Background(), rec.CertificateNumber)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.IssuedAt.Location())
	assert.Equal(t, certificate.StatusPartiallyCompliant, got.ComplianceDetails.OverallStatus)
	assert.Equal(t, []string{"governance"}, got.CertificationCriteria.EvaluatedDomains)

	hash, err := certificate.ComputeHash(got)
	require.NoError(t, err)
	assert.Equal(t, got.Certification.Hash, hash)
}

func TestCertificateRepository_GetByNumber_NotFound(t *testing.T) {
	repo := NewCertificateRepository(&fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}, nil)

	_, err := repo.GetByNumber(context.Background(), "CF-2025-00000000")
	assert.True(t, errors.IsCode(err, errors.ErrCodeCertificateNotFound))
}

func TestCertificateRepository_GetByNumber_CorruptJSON(t *testing.T) {
	row := rowFor(t, sampleCertificate(t))
	row.values[13] = []byte("{broken")
	repo := NewCertificateRepository(&fakeQuerier{row: row}, nil)

	_, err := repo.GetByNumber(context.Background(), "MA-2025-AAAABBBB")
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

func TestCertificateRepository_ListByOrganization_QueryError(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{values: []any{int64(3)}}, queryErr: fmt.Errorf("conn reset")}
	repo := NewCertificateRepository(q, nil)

	_, _, err := repo.ListByOrganization(context.Background(), "Acme GmbH", "", 10, 0)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestCertificateRepository_ListByOrganization_StatusFilterInSQL(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{values: []any{int64(7)}}, queryErr: fmt.Errorf("stop after query")}
	repo := NewCertificateRepository(q, nil)

	_, _, _ = repo.ListByOrganization(context.Background(), "Acme GmbH", certificate.StatusCompliant, 5, 5)

	assert.Contains(t, q.rowSQL, "COUNT(*)")
	assert.Contains(t, q.rowSQL, "compliance_details->>'overall_status'")
	assert.Equal(t, []any{"Acme GmbH", "compliant"}, q.rowArgs)
	assert.Contains(t, q.querySQL, "compliance_details->>'overall_status'")
	assert.Equal(t, []any{"Acme GmbH", "compliant", 5, 5}, q.queryArgs, "filter must apply before LIMIT/OFFSET")
}

func TestCertificateRepository_ListByOrganization_OffsetPastTotal(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{values: []any{int64(2)}}}
	repo := NewCertificateRepository(q, nil)

	list, total, err := repo.ListByOrganization(context.Background(), "Acme GmbH", certificate.StatusCompliant, 10, 20)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, int64(2), total)
	assert.Empty(t, q.querySQL, "no page query when the offset is past the total")
}

func TestCertificateRepository_ListByOrganization_CountError(t *testing.T) {
	repo := NewCertificateRepository(&fakeQuerier{row: fakeRow{err: fmt.Errorf("conn reset")}}, nil)

	_, _, err := repo.ListByOrganization(context.Background(), "Acme GmbH", "", 10, 0)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}
