package dto

import "github.com/incubatehub/compliance-api/internal/models"

// OverviewQuery captures GET /compliance/overview and /compliance/stats query parameters.
// CompanyCode may be omitted when the token is bound to a company.
type OverviewQuery struct {
	CompanyCode string `form:"companyCode"`
	Refresh     bool   `form:"refresh"`
}

// VerifyDocumentRequest captures a reviewer decision on one document.
// Either DocID or the Type/DocumentName/ExpiryDate composite identifies the document.
type VerifyDocumentRequest struct {
	CompanyCode   string                    `json:"companyCode" validate:"required"`
	ParticipantID string                    `json:"participantId" validate:"required"`
	DocID         string                    `json:"docId,omitempty"`
	Type          string                    `json:"type,omitempty" validate:"required_without=DocID"`
	DocumentName  string                    `json:"documentName,omitempty"`
	ExpiryDate    models.DateLike           `json:"expiryDate"`
	Status        models.VerificationStatus `json:"status" validate:"required,oneof=verified queried"`
	Comment       string                    `json:"comment,omitempty" validate:"omitempty,max=2000"`
	ReviewerName  string                    `json:"reviewerName,omitempty" validate:"omitempty,max=200"`
}

// ParticipantComplianceResponse wraps one participant summary.
type ParticipantComplianceResponse struct {
	CompanyCode string                              `json:"companyCode"`
	Summary     models.ParticipantComplianceSummary `json:"summary"`
}

// RemindersResponse lists reminder payloads for a company.
type RemindersResponse struct {
	CompanyCode string                   `json:"companyCode"`
	Reminders   []models.ReminderPayload `json:"reminders"`
}

// DispatchRemindersRequest triggers publication of reminders to the notifier queue.
type DispatchRemindersRequest struct {
	CompanyCode string `json:"companyCode" validate:"required"`
}

// DispatchRemindersResponse reports how many reminders were published.
type DispatchRemindersResponse struct {
	CompanyCode string `json:"companyCode"`
	Published   int    `json:"published"`
}
