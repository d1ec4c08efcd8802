package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/turtacn/AIComply/internal/domain/assessment"
	"github.com/turtacn/AIComply/internal/infrastructure/database/postgres"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/pkg/errors"
)

type postgresAssessmentRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPostgresAssessmentRepo returns an assessment.Repository backed by lib/pq.
func NewPostgresAssessmentRepo(conn *postgres.Connection, log logging.Logger) assessment.Repository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresAssessmentRepo{conn: conn, log: log}
}

func (r *postgresAssessmentRepo) executor() queryExecutor {
	return r.conn.DB()
}

// AI systems

const aiSystemColumns = `id, user_id, organization_name, name, description, application_domain, purpose, compliance_score, created_at`

func (r *postgresAssessmentRepo) CreateAISystem(ctx context.Context, sys *assessment.AISystem) error {
	query := `
		INSERT INTO ai_systems (` + aiSystemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	var score sql.NullInt64
	if sys.ComplianceScore != nil {
		score = sql.NullInt64{Int64: int64(*sys.ComplianceScore), Valid: true}
	}
	_, err := r.executor().ExecContext(ctx, query,
		sys.ID, sys.UserID, sys.OrganizationName, sys.Name, sys.Description,
		sys.ApplicationDomain, sys.Purpose, score, sys.CreatedAt,
	)
	if err != nil {
		if pqCode(err) == pgUniqueViolation {
			return errors.Wrap(err, errors.ErrCodeConflict, "ai system already exists")
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create ai system")
	}
	return nil
}

func (r *postgresAssessmentRepo) GetAISystem(ctx context.Context, id string) (*assessment.AISystem, error) {
	query := `SELECT ` + aiSystemColumns + ` FROM ai_systems WHERE id = $1`
	sys, err := scanAISystem(r.executor().QueryRowContext(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.Newf(errors.ErrCodeAISystemNotFound, "ai system %s not found", id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get ai system")
	}
	return sys, nil
}

func (r *postgresAssessmentRepo) ListAISystems(ctx context.Context, userID string, limit, offset int) ([]*assessment.AISystem, error) {
	limit, offset = clampPage(limit, offset)
	query := `SELECT ` + aiSystemColumns + ` FROM ai_systems WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.executor().QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list ai systems")
	}
	defer rows.Close()

	var out []*assessment.AISystem
	for rows.Next() {
		sys, err := scanAISystem(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan ai system")
		}
		out = append(out, sys)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate ai systems")
	}
	return out, nil
}

func (r *postgresAssessmentRepo) UpdateAISystemScore(ctx context.Context, id string, score int) error {
	query := `UPDATE ai_systems SET compliance_score = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.executor().ExecContext(ctx, query, assessment.ClampScore(score), id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update ai system score")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.Newf(errors.ErrCodeAISystemNotFound, "ai system %s not found", id)
	}
	return nil
}

func scanAISystem(row scanner) (*assessment.AISystem, error) {
	var (
		sys   assessment.AISystem
		score sql.NullInt64
	)
	err := row.Scan(
		&sys.ID, &sys.UserID, &sys.OrganizationName, &sys.Name, &sys.Description,
		&sys.ApplicationDomain, &sys.Purpose, &score, &sys.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if score.Valid {
		v := int(score.Int64)
		sys.ComplianceScore = &v
	}
	return &sys, nil
}

// Risk assessments

func (r *postgresAssessmentRepo) CreateRiskAssessment(ctx context.Context, a *assessment.RiskAssessment) error {
	if a.Result == nil {
		return errors.InvalidParam("risk assessment result cannot be nil")
	}
	questionnaire, err := json.Marshal(a.Questionnaire)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode questionnaire")
	}
	result, err := json.Marshal(a.Result)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode risk result")
	}

	query := `
		INSERT INTO risk_assessments (
			id, user_id, organization_name, system_id, questionnaire, result,
			risk_level, risk_score, table_version, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.executor().ExecContext(ctx, query,
		a.ID, a.UserID, a.OrganizationName, nullString(a.SystemID), questionnaire, result,
		string(a.Result.RiskLevel), a.Result.RiskScore, a.TableVersion, a.CreatedAt,
	)
	if err != nil {
		if pqCode(err) == pgForeignKeyViolation {
			return errors.Newf(errors.ErrCodeAISystemNotFound, "ai system %s not found", a.SystemID)
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create risk assessment")
	}
	r.log.Debug("risk assessment stored",
		logging.String("id", a.ID),
		logging.String("risk_level", string(a.Result.RiskLevel)),
	)
	return nil
}

func (r *postgresAssessmentRepo) GetRiskAssessment(ctx context.Context, id string) (*assessment.RiskAssessment, error) {
	query := `
		SELECT id, user_id, organization_name, system_id, questionnaire, result, table_version, created_at
		FROM risk_assessments WHERE id = $1
	`
	var (
		a             assessment.RiskAssessment
		systemID      sql.NullString
		questionnaire []byte
		result        []byte
	)
	err := r.executor().QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.OrganizationName, &systemID, &questionnaire, &result, &a.TableVersion, &a.CreatedAt,
	)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.Newf(errors.ErrCodeAssessmentNotFound, "risk assessment %s not found", id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get risk assessment")
	}
	a.SystemID = systemID.String
	if err := json.Unmarshal(questionnaire, &a.Questionnaire); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode questionnaire")
	}
	if err := json.Unmarshal(result, &a.Result); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode risk result")
	}
	return &a, nil
}

// Maturity assessments

func (r *postgresAssessmentRepo) CreateMaturityAssessment(ctx context.Context, a *assessment.MaturityAssessment) error {
	if a.Result == nil {
		return errors.InvalidParam("maturity assessment result cannot be nil")
	}
	responses, err := json.Marshal(a.Responses)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode responses")
	}
	result, err := json.Marshal(a.Result)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode maturity result")
	}

	query := `
		INSERT INTO maturity_assessments (
			id, user_id, organization_name, framework_id, responses, result,
			overall_maturity, overall_score, table_version, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.executor().ExecContext(ctx, query,
		a.ID, a.UserID, a.OrganizationName, a.FrameworkID, responses, result,
		string(a.Result.OverallMaturity), a.Result.OverallScore, a.TableVersion, a.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create maturity assessment")
	}
	r.log.Debug("maturity assessment stored",
		logging.String("id", a.ID),
		logging.Int("overall_score", a.Result.OverallScore),
	)
	return nil
}

func (r *postgresAssessmentRepo) GetMaturityAssessment(ctx context.Context, id string) (*assessment.MaturityAssessment, error) {
	query := `
		SELECT id, user_id, organization_name, framework_id, responses, result, table_version, created_at
		FROM maturity_assessments WHERE id = $1
	`
	var (
		a         assessment.MaturityAssessment
		responses []byte
		result    []byte
	)
	err := r.executor().QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.OrganizationName, &a.FrameworkID, &responses, &result, &a.TableVersion, &a.CreatedAt,
	)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.Newf(errors.ErrCodeAssessmentNotFound, "maturity assessment %s not found", id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get maturity assessment")
	}
	if err := json.Unmarshal(responses, &a.Responses); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode responses")
	}
	if err := json.Unmarshal(result, &a.Result); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode maturity result")
	}
	return &a, nil
}
