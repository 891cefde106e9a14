package dto

import (
	"time"

	"github.com/incubatehub/compliance-api/internal/models"
)

// ReportRequest captures POST /compliance/exports payload.
type ReportRequest struct {
	CompanyCode   string                   `json:"companyCode" validate:"required"`
	Type          models.ReportType        `json:"type" validate:"required,oneof=participants documents"`
	Format        models.ReportFormat      `json:"format" validate:"required,oneof=csv pdf xlsx"`
	ParticipantID *string                  `json:"participantId,omitempty"`
	Statuses      []models.EffectiveStatus `json:"statuses,omitempty" validate:"omitempty,dive,oneof=valid expiring expired missing pending invalid"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID          string              `json:"id"`
	CompanyCode string              `json:"companyCode"`
	Type        models.ReportType   `json:"type"`
	Format      models.ReportFormat `json:"format"`
	Status      models.ReportStatus `json:"status"`
	Progress    int                 `json:"progress"`
	ResultURL   *string             `json:"resultUrl,omitempty"`
	Error       *string             `json:"error,omitempty"`
	FinishedAt  *time.Time          `json:"finishedAt,omitempty"`
}
