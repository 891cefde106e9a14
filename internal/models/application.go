package models

import "time"

// ApplicationStatusAccepted marks applications admitted into a programme.
const ApplicationStatusAccepted = "accepted"

// Application is a programme application owning the embedded compliance documents.
type Application struct {
	ID                  string                 `db:"id" json:"id" bson:"_id"`
	ParticipantID       string                 `db:"participant_id" json:"participantId" bson:"participantId"`
	CompanyCode         string                 `db:"company_code" json:"companyCode" bson:"companyCode"`
	ApplicationStatus   string                 `db:"application_status" json:"applicationStatus" bson:"applicationStatus"`
	BeneficiaryName     string                 `db:"beneficiary_name" json:"beneficiaryName,omitempty" bson:"beneficiaryName,omitempty"`
	Email               string                 `db:"email" json:"email,omitempty" bson:"email,omitempty"`
	ComplianceDocuments ComplianceDocumentList `db:"compliance_documents" json:"complianceDocuments" bson:"complianceDocuments"`
	Revision            int64                  `db:"revision" json:"revision" bson:"revision"`
	UpdatedAt           time.Time              `db:"updated_at" json:"updatedAt" bson:"updatedAt"`
}

// Participant is the SME record used to enrich summaries with contact details.
type Participant struct {
	ID              string `db:"id" json:"id" bson:"_id"`
	CompanyCode     string `db:"company_code" json:"companyCode" bson:"companyCode"`
	BeneficiaryName string `db:"beneficiary_name" json:"beneficiaryName" bson:"beneficiaryName"`
	Email           string `db:"email" json:"email,omitempty" bson:"email,omitempty"`
	Phone           string `db:"phone" json:"phone,omitempty" bson:"phone,omitempty"`
}
