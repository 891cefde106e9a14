// Package compliance turns raw compliance document records into effective
// statuses, per-participant summaries and cross-participant statistics.
// Everything here is pure: callers supply the clock and the tenant scope.
package compliance

import (
	"strings"

	"github.com/incubatehub/compliance-api/internal/models"
)

// Normalize resolves dates and bounds the free-text enumerations of a raw document.
// It never fails; malformed input degrades to defaults.
func Normalize(raw models.RawComplianceDocument) models.NormalizedDocument {
	statusRaw := normalizeText(raw.Status)
	if statusRaw == "" {
		statusRaw = string(models.StatusPending)
	}

	return models.NormalizedDocument{
		RawComplianceDocument: raw,
		StatusRaw:             statusRaw,
		VerificationStatusRaw: ParseVerificationStatus(raw.VerificationStatus),
		Expiry:                raw.ExpiryDate.TimePtr(),
		Issue:                 raw.IssueDate.TimePtr(),
		HasFile:               strings.TrimSpace(raw.URL) != "" && statusRaw != string(models.StatusMissing),
	}
}

// ParseVerificationStatus maps free text onto verified, queried or unverified.
func ParseVerificationStatus(raw string) models.VerificationStatus {
	switch models.VerificationStatus(normalizeText(raw)) {
	case models.VerificationVerified:
		return models.VerificationVerified
	case models.VerificationQueried:
		return models.VerificationQueried
	default:
		return models.VerificationUnverified
	}
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
