package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/incubatehub/compliance-api/internal/models"
)

const applicationColumns = `id, participant_id, company_code, application_status, COALESCE(beneficiary_name, '') AS beneficiary_name,
COALESCE(email, '') AS email, compliance_documents, revision, updated_at`

// ApplicationRepository reads and writes applications stored in Postgres with a JSONB document array.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// ListAccepted returns accepted applications for a company.
func (r *ApplicationRepository) ListAccepted(ctx context.Context, companyCode string) ([]models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE company_code = $1 AND application_status = $2 ORDER BY id`, applicationColumns)
	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query, companyCode, models.ApplicationStatusAccepted); err != nil {
		return nil, fmt.Errorf("list accepted applications: %w", err)
	}
	return apps, nil
}

// ListByParticipant returns the accepted applications referencing a participant.
func (r *ApplicationRepository) ListByParticipant(ctx context.Context, companyCode, participantID string) ([]models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE company_code = $1 AND participant_id = $2 AND application_status = $3 ORDER BY id`, applicationColumns)
	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query, companyCode, participantID, models.ApplicationStatusAccepted); err != nil {
		return nil, fmt.Errorf("list participant applications: %w", err)
	}
	return apps, nil
}

// GetByID fetches one application.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE id = $1`, applicationColumns)
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("get application: %w", err)
	}
	return &app, nil
}

// UpdateComplianceDocuments replaces the whole document array and bumps the revision.
// With expectedRevision >= 0 the write only applies when the stored revision matches.
func (r *ApplicationRepository) UpdateComplianceDocuments(ctx context.Context, id string, docs models.ComplianceDocumentList, expectedRevision int64) (int64, error) {
	var (
		row *sqlx.Row
		rev int64
	)
	if expectedRevision >= 0 {
		const query = `UPDATE applications SET compliance_documents = $1, revision = revision + 1, updated_at = NOW()
WHERE id = $2 AND revision = $3 RETURNING revision`
		row = r.db.QueryRowxContext(ctx, query, docs, id, expectedRevision)
	} else {
		const query = `UPDATE applications SET compliance_documents = $1, revision = revision + 1, updated_at = NOW()
WHERE id = $2 RETURNING revision`
		row = r.db.QueryRowxContext(ctx, query, docs, id)
	}

	if err := row.Scan(&rev); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("update compliance documents: %w", err)
		}
		return 0, r.missOrConflict(ctx, id)
	}
	return rev, nil
}

func (r *ApplicationRepository) missOrConflict(ctx context.Context, id string) error {
	var current int64
	if err := r.db.GetContext(ctx, &current, `SELECT revision FROM applications WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrApplicationNotFound
		}
		return fmt.Errorf("check application revision: %w", err)
	}
	return ErrRevisionConflict
}
