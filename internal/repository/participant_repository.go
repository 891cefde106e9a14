package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/incubatehub/compliance-api/internal/models"
)

const participantColumns = `id, company_code, COALESCE(beneficiary_name, '') AS beneficiary_name, COALESCE(email, '') AS email, COALESCE(phone, '') AS phone`

// ParticipantRepository reads participant contact records from Postgres.
type ParticipantRepository struct {
	db *sqlx.DB
}

// NewParticipantRepository constructs the repository.
func NewParticipantRepository(db *sqlx.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// ListByCompany returns every participant of a company.
func (r *ParticipantRepository) ListByCompany(ctx context.Context, companyCode string) ([]models.Participant, error) {
	query := fmt.Sprintf(`SELECT %s FROM participants WHERE company_code = $1 ORDER BY id`, participantColumns)
	var participants []models.Participant
	if err := r.db.SelectContext(ctx, &participants, query, companyCode); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return participants, nil
}

// GetByID fetches a single participant.
func (r *ParticipantRepository) GetByID(ctx context.Context, id string) (*models.Participant, error) {
	query := fmt.Sprintf(`SELECT %s FROM participants WHERE id = $1`, participantColumns)
	var participant models.Participant
	if err := r.db.GetContext(ctx, &participant, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return &participant, nil
}
