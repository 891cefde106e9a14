package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EffectiveStatus is the computed compliance state of a document. It is never stored.
type EffectiveStatus string

const (
	StatusValid    EffectiveStatus = "valid"
	StatusExpiring EffectiveStatus = "expiring"
	StatusExpired  EffectiveStatus = "expired"
	StatusMissing  EffectiveStatus = "missing"
	StatusPending  EffectiveStatus = "pending"
	StatusInvalid  EffectiveStatus = "invalid"
)

// EffectiveStatuses lists every status bucket.
var EffectiveStatuses = []EffectiveStatus{StatusValid, StatusExpiring, StatusExpired, StatusMissing, StatusPending, StatusInvalid}

// VerificationStatus is a reviewer's judgement of a document.
type VerificationStatus string

const (
	VerificationVerified   VerificationStatus = "verified"
	VerificationQueried    VerificationStatus = "queried"
	VerificationUnverified VerificationStatus = "unverified"
)

// RawComplianceDocument is one entry of an application's embedded compliance array as stored.
type RawComplianceDocument struct {
	ID                  string   `json:"id,omitempty" bson:"id,omitempty"`
	ParticipantID       string   `json:"participantId,omitempty" bson:"participantId,omitempty"`
	Type                string   `json:"type" bson:"type"`
	DocumentName        string   `json:"documentName,omitempty" bson:"documentName,omitempty"`
	Status              string   `json:"status,omitempty" bson:"status,omitempty"`
	IssueDate           DateLike `json:"issueDate" bson:"issueDate"`
	ExpiryDate          DateLike `json:"expiryDate" bson:"expiryDate"`
	URL                 string   `json:"url,omitempty" bson:"url,omitempty"`
	VerificationStatus  string   `json:"verificationStatus,omitempty" bson:"verificationStatus,omitempty"`
	VerificationComment string   `json:"verificationComment,omitempty" bson:"verificationComment,omitempty"`
	LastVerifiedBy      string   `json:"lastVerifiedBy,omitempty" bson:"lastVerifiedBy,omitempty"`
	LastVerifiedAt      string   `json:"lastVerifiedAt,omitempty" bson:"lastVerifiedAt,omitempty"`
	UploadedBy          string   `json:"uploadedBy,omitempty" bson:"uploadedBy,omitempty"`
	UploadedAt          string   `json:"uploadedAt,omitempty" bson:"uploadedAt,omitempty"`
	Notes               string   `json:"notes,omitempty" bson:"notes,omitempty"`
}

// ComplianceDocumentList is the embedded array persisted as JSONB.
type ComplianceDocumentList []RawComplianceDocument

// Value marshals the list to JSON for persistence.
func (l ComplianceDocumentList) Value() (driver.Value, error) {
	if l == nil {
		l = ComplianceDocumentList{}
	}
	data, err := json.Marshal([]RawComplianceDocument(l))
	if err != nil {
		return nil, fmt.Errorf("marshal compliance documents: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON array into the list.
func (l *ComplianceDocumentList) Scan(value interface{}) error {
	if value == nil {
		*l = ComplianceDocumentList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ComplianceDocumentList", value)
	}
	if len(data) == 0 {
		*l = ComplianceDocumentList{}
		return nil
	}
	var docs []RawComplianceDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("unmarshal compliance documents: %w", err)
	}
	*l = docs
	return nil
}

// NormalizedDocument is a raw document with resolved dates and bounded enumerations.
// The embedded raw fields keep the original free text for display.
type NormalizedDocument struct {
	RawComplianceDocument
	StatusRaw             string             `json:"statusRaw"`
	VerificationStatusRaw VerificationStatus `json:"verificationStatusRaw"`
	Expiry                *time.Time         `json:"expiry,omitempty"`
	Issue                 *time.Time         `json:"issue,omitempty"`
	HasFile               bool               `json:"hasFile"`
}

// ComplianceDocument pairs a normalized document with its effective status.
type ComplianceDocument struct {
	NormalizedDocument
	EffectiveStatus EffectiveStatus `json:"effectiveStatus"`
}

// ComplianceCounts tallies documents on the status axis and the verification axis.
type ComplianceCounts struct {
	Valid      int `json:"valid"`
	Expiring   int `json:"expiring"`
	Expired    int `json:"expired"`
	Missing    int `json:"missing"`
	Pending    int `json:"pending"`
	Invalid    int `json:"invalid"`
	Total      int `json:"total"`
	Verified   int `json:"verified"`
	Queried    int `json:"queried"`
	Unverified int `json:"unverified"`
}

// StatusSum adds the six status buckets.
func (c ComplianceCounts) StatusSum() int {
	return c.Valid + c.Expiring + c.Expired + c.Missing + c.Pending + c.Invalid
}

// VerificationSum adds the three verification buckets.
func (c ComplianceCounts) VerificationSum() int {
	return c.Verified + c.Queried + c.Unverified
}

// Of returns the bucket for one status.
func (c ComplianceCounts) Of(status EffectiveStatus) int {
	switch status {
	case StatusValid:
		return c.Valid
	case StatusExpiring:
		return c.Expiring
	case StatusExpired:
		return c.Expired
	case StatusMissing:
		return c.Missing
	case StatusPending:
		return c.Pending
	case StatusInvalid:
		return c.Invalid
	default:
		return 0
	}
}

// Add accumulates other into c.
func (c *ComplianceCounts) Add(other ComplianceCounts) {
	c.Valid += other.Valid
	c.Expiring += other.Expiring
	c.Expired += other.Expired
	c.Missing += other.Missing
	c.Pending += other.Pending
	c.Invalid += other.Invalid
	c.Total += other.Total
	c.Verified += other.Verified
	c.Queried += other.Queried
	c.Unverified += other.Unverified
}

// ParticipantComplianceSummary is the per-participant roll-up.
type ParticipantComplianceSummary struct {
	ParticipantID   string               `json:"participantId"`
	Name            string               `json:"name"`
	Email           string               `json:"email,omitempty"`
	Phone           string               `json:"phone,omitempty"`
	Documents       []ComplianceDocument `json:"documents"`
	Counts          ComplianceCounts     `json:"counts"`
	ComplianceScore int                  `json:"complianceScore"`
	ActionNeeded    bool                 `json:"actionNeeded"`
	LastActivity    string               `json:"lastActivity,omitempty"`
	LastActivityAt  *time.Time           `json:"lastActivityAt,omitempty"`
}

// GlobalComplianceStats rolls summaries up across participants.
type GlobalComplianceStats struct {
	Participants       int              `json:"participants"`
	TotalDocuments     int              `json:"totalDocuments"`
	Counts             ComplianceCounts `json:"counts"`
	AvgComplianceScore int              `json:"avgComplianceScore"`
	ActionNeededCount  int              `json:"actionNeededCount"`
}

// ComplianceOverview is what the dashboard loads for one company.
type ComplianceOverview struct {
	CompanyCode string                         `json:"companyCode"`
	Summaries   []ParticipantComplianceSummary `json:"summaries"`
	Stats       GlobalComplianceStats          `json:"stats"`
	GeneratedAt time.Time                      `json:"generatedAt"`
}

// ReminderIssue names one document that needs follow-up.
type ReminderIssue struct {
	Type         string          `json:"type"`
	Status       EffectiveStatus `json:"status"`
	DocumentName string          `json:"documentName,omitempty"`
}

// ReminderPayload is handed to the downstream notifier.
type ReminderPayload struct {
	ParticipantID string          `json:"participantId"`
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	Issues        []ReminderIssue `json:"issues"`
}
