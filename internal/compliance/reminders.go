package compliance

import (
	"strings"

	"github.com/incubatehub/compliance-api/internal/models"
)

// BuildReminderPayloads lists the non-valid documents of every reachable participant.
// Summaries without an email or without issues produce no payload.
func BuildReminderPayloads(summaries []models.ParticipantComplianceSummary) []models.ReminderPayload {
	payloads := make([]models.ReminderPayload, 0)
	for _, summary := range summaries {
		email := strings.TrimSpace(summary.Email)
		if email == "" {
			continue
		}
		issues := make([]models.ReminderIssue, 0)
		for _, doc := range summary.Documents {
			if !NeedsAction(doc.EffectiveStatus) {
				continue
			}
			issues = append(issues, models.ReminderIssue{
				Type:         doc.Type,
				Status:       doc.EffectiveStatus,
				DocumentName: doc.DocumentName,
			})
		}
		if len(issues) == 0 {
			continue
		}
		payloads = append(payloads, models.ReminderPayload{
			ParticipantID: summary.ParticipantID,
			Email:         email,
			Name:          summary.Name,
			Issues:        issues,
		})
	}
	return payloads
}
